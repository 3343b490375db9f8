// Package config loads typed configuration from environment variables.
//
// Struct fields are mapped with caarlos0/env tags. A .env file is read once
// through godotenv before the first load, and each (type, prefix) pair is
// parsed only once per process:
//
//	var cfg autobind.Config
//	if err := config.Load(&cfg, config.WithPrefix("AUTOBIND_")); err != nil {
//	    return err
//	}
//
// Parse skips the cache, and WithEnvironment supplies variables from a map,
// which keeps tests independent of the process environment.
package config

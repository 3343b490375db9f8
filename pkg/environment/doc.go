// Package environment names the deployment environment an application runs
// in. Values are parsed from configuration and select logger presets.
package environment

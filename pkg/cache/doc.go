// Package cache provides generic, thread-safe, size-bounded caches with a
// selectable eviction policy and optional TTL, plus a registry of named caches
// shared by the binding pipeline.
//
// # Policies
//
//   - PolicyLRU: an access moves the entry to the front; the back is evicted.
//   - PolicyLFU: the entry with the fewest accesses is evicted; ties go to the
//     oldest insertion.
//   - PolicyFIFO: the earliest inserted entry is evicted; accesses do not matter.
//
// TTL works with every policy. Get treats expired entries as misses and removes
// them; Set sweeps expired entries before falling back to policy eviction; Len
// and Stats count live entries only.
//
// # Usage
//
//	c := cache.New[string, int](cache.Config{MaxSize: 3, Policy: cache.PolicyLRU})
//
//	c.Set("a", 1)
//	c.SetWithTTL("b", 2, 2*time.Second)
//
//	if v, ok := c.Get("a"); ok {
//		// use v
//	}
//
//	v, err := c.GetOrLoad("c", func() (int, error) {
//		return compute()
//	})
//
// Inserting into a full cache evicts exactly one entry before the insert, so
// Len never exceeds MaxSize.
//
// # Registry
//
// A Registry holds named caches configured per name. The binding pipeline uses
// the Signatures, Schemas, Instances and ContentTypes names:
//
//	reg := cache.MustNewRegistry(
//		cache.WithConfig(cache.Instances, cache.Config{MaxSize: 4096, Policy: cache.PolicyLFU, TTL: time.Minute}),
//		cache.WithRegistryMetrics(cache.NewMetrics()),
//	)
//	sigs := cache.Named[signature.Key, signature.ParameterMap](reg, cache.Signatures)
//
// Default returns a process-wide registry created on first use.
//
// # Fingerprints
//
// Fingerprint derives a stable key from a model name and raw request data.
// Maps are flattened to sorted pairs; opaque values make the key non-shareable.
//
// # Thread Safety
//
// Every operation on one cache takes that cache's mutex. Operations that span
// two caches are not atomic with respect to each other.
package cache

package config

// Defaults governing bounded traversal and the parse cache. These values are
// safety nets, not tuning knobs: they exist so a pathological input degrades
// into partial results instead of a hung process.
const (
	DefaultMaxRecursionDepth  = 50
	DefaultTraversalTimeoutMs = 5000
	// VerboseTimeoutFactor widens the traversal budget when verbose
	// diagnostics are enabled, since logging inflates per-node cost.
	VerboseTimeoutFactor = 6

	DefaultCacheMaxTotalMB = 64
	DefaultCacheTTLMinutes = 30
)

type Config struct {
	Traversal Traversal
	Cache     Cache
	Verbose   bool
	Include   []string
	Exclude   []string
}

type Traversal struct {
	MaxRecursionDepth int // Maximum nesting depth before the circuit breaker trips
	TimeoutMs         int // Wall-clock budget per file in milliseconds
}

type Cache struct {
	MaxTotalMB int // Total estimated size of cached parse results in MB
	TTLMinutes int // Entries older than this are treated as misses
}

// DefaultConfig returns a configuration with every field at its default.
func DefaultConfig() *Config {
	return &Config{
		Traversal: Traversal{
			MaxRecursionDepth: DefaultMaxRecursionDepth,
			TimeoutMs:         DefaultTraversalTimeoutMs,
		},
		Cache: Cache{
			MaxTotalMB: DefaultCacheMaxTotalMB,
			TTLMinutes: DefaultCacheTTLMinutes,
		},
	}
}

// EffectiveTimeoutMs applies the verbose widening factor.
func (c *Config) EffectiveTimeoutMs() int {
	if c.Verbose {
		return c.Traversal.TimeoutMs * VerboseTimeoutFactor
	}
	return c.Traversal.TimeoutMs
}

package config

import (
	"errors"
	"os"

	"github.com/pelletier/go-toml/v2"

	cgerrors "github.com/standardbeagle/codegraph/internal/errors"
)

// Load reads a TOML configuration file and overlays it on the defaults.
// A missing file is not an error: callers get the defaults back.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, cgerrors.NewConfigError("file", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, cgerrors.NewConfigError("file", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, cgerrors.NewConfigError("file", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges and applies smart corrections where a zero
// value means "use the default".
func (c *Config) Validate() error {
	if c.Traversal.MaxRecursionDepth == 0 {
		c.Traversal.MaxRecursionDepth = DefaultMaxRecursionDepth
	}
	if c.Traversal.MaxRecursionDepth < 0 {
		return errors.New("traversal.MaxRecursionDepth must be positive")
	}
	if c.Traversal.TimeoutMs == 0 {
		c.Traversal.TimeoutMs = DefaultTraversalTimeoutMs
	}
	if c.Traversal.TimeoutMs < 0 {
		return errors.New("traversal.TimeoutMs must be positive")
	}
	if c.Cache.MaxTotalMB == 0 {
		c.Cache.MaxTotalMB = DefaultCacheMaxTotalMB
	}
	if c.Cache.MaxTotalMB < 0 {
		return errors.New("cache.MaxTotalMB must be positive")
	}
	if c.Cache.TTLMinutes == 0 {
		c.Cache.TTLMinutes = DefaultCacheTTLMinutes
	}
	if c.Cache.TTLMinutes < 0 {
		return errors.New("cache.TTLMinutes must be positive")
	}
	return nil
}

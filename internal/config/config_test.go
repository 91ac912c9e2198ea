package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Traversal.MaxRecursionDepth != 50 {
		t.Errorf("MaxRecursionDepth = %d, want 50", cfg.Traversal.MaxRecursionDepth)
	}
	if cfg.Traversal.TimeoutMs != 5000 {
		t.Errorf("TimeoutMs = %d, want 5000", cfg.Traversal.TimeoutMs)
	}
	if cfg.Cache.MaxTotalMB != 64 {
		t.Errorf("Cache.MaxTotalMB = %d, want 64", cfg.Cache.MaxTotalMB)
	}
	if cfg.Cache.TTLMinutes != 30 {
		t.Errorf("Cache.TTLMinutes = %d, want 30", cfg.Cache.TTLMinutes)
	}
}

func TestEffectiveTimeoutVerbose(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.EffectiveTimeoutMs(); got != 5000 {
		t.Errorf("timeout = %d, want 5000", got)
	}
	cfg.Verbose = true
	if got := cfg.EffectiveTimeoutMs(); got != 5000*VerboseTimeoutFactor {
		t.Errorf("verbose timeout = %d, want %d", got, 5000*VerboseTimeoutFactor)
	}
}

func TestValidateZeroMeansDefault(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero config should validate: %v", err)
	}
	if cfg.Traversal.MaxRecursionDepth != DefaultMaxRecursionDepth {
		t.Errorf("MaxRecursionDepth = %d, want default", cfg.Traversal.MaxRecursionDepth)
	}
	if cfg.Cache.TTLMinutes != DefaultCacheTTLMinutes {
		t.Errorf("TTLMinutes = %d, want default", cfg.Cache.TTLMinutes)
	}
}

func TestValidateRejectsNegatives(t *testing.T) {
	cases := []*Config{
		{Traversal: Traversal{MaxRecursionDepth: -1}},
		{Traversal: Traversal{TimeoutMs: -5}},
		{Cache: Cache{MaxTotalMB: -1}},
		{Cache: Cache{TTLMinutes: -10}},
	}
	for i, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: negative value should fail validation", i)
		}
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.Traversal.MaxRecursionDepth != DefaultMaxRecursionDepth {
		t.Error("missing file should yield defaults")
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codegraph.toml")
	doc := `Verbose = true

[Traversal]
MaxRecursionDepth = 80

[Cache]
MaxTotalMB = 128
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Traversal.MaxRecursionDepth != 80 {
		t.Errorf("MaxRecursionDepth = %d, want 80", cfg.Traversal.MaxRecursionDepth)
	}
	// Unset fields keep their defaults.
	if cfg.Traversal.TimeoutMs != DefaultTraversalTimeoutMs {
		t.Errorf("TimeoutMs = %d, want default", cfg.Traversal.TimeoutMs)
	}
	if cfg.Cache.MaxTotalMB != 128 {
		t.Errorf("Cache.MaxTotalMB = %d, want 128", cfg.Cache.MaxTotalMB)
	}
	if !cfg.Verbose {
		t.Error("Verbose should be true")
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[Traversal\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed TOML should fail")
	}
}

package integration

import (
	"fmt"
	"time"
)

// Package integration provides configuration presets for assembling a relay
// node. Presets bundle the settings that change together between a laptop
// and a production host (database caches, sweep cadence, API throttling,
// log output) into named profiles so operators pick one name instead of
// tuning a dozen flags.
//
// Usage:
//   cfg := integration.DevPreset()        // local development
//   cfg := integration.ProductionPreset() // public relay node
//
// The launcher applies the selected preset on top of its defaults and
// before the config file and command-line overrides.

// PresetConfig captures the tunable parameters that vary across profiles.
// Network identity and listen addresses are excluded so presets only tune
// resources and cadence, never which network a node joins.
type PresetConfig struct {
	Name           string        // human-readable identifier (e.g., "dev", "production")
	CacheMB        int           // LevelDB block cache for the node database
	Handles        int           // LevelDB open file handles
	SweepInterval  time.Duration // time between settlement and expiry sweeps
	RateLimitRPS   float64       // per-caller API requests per second; 0 disables throttling
	RateLimitBurst int           // per-caller API burst
	JournalSize    int           // notifications kept in memory for /v1/events
	LogFormat      string        // "text" or "json"
	LogVerbosity   int           // 0=fatal .. 5=trace
}

// DefaultPreset returns the balanced baseline.
func DefaultPreset() PresetConfig {
	return PresetConfig{
		Name:           "default",
		CacheMB:        256,              // enough for the ledger indexes of a busy relay network
		Handles:        256,              // LevelDB handles; well under common ulimits
		SweepInterval:  30 * time.Second, // settlement lag is bounded by one interval
		RateLimitRPS:   20,               // generous for wallets, stops naive flooding
		RateLimitBurst: 40,
		JournalSize:    1024,
		LogFormat:      "text",
		LogVerbosity:   3,
	}
}

// DevPreset returns a configuration for local development: small caches,
// fast sweeps so expiries are observable, no throttling and verbose logs.
//
// Use cases:
//   - Local development against a fake network
//   - CI pipelines driving the HTTP API
func DevPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "dev"
	cfg.CacheMB = 16                    // tiny footprint on laptops and CI runners
	cfg.Handles = 64                    // plenty for a single-node dev database
	cfg.SweepInterval = 2 * time.Second // fake network windows are one minute
	cfg.RateLimitRPS = 0                // scripts hammer the API; don't throttle them
	cfg.RateLimitBurst = 0
	cfg.JournalSize = 4096 // keep a long event tail for debugging
	cfg.LogVerbosity = 4   // debug: shows every ledger call
	return cfg
}

// ProductionPreset returns a configuration for public relay nodes: larger
// caches, strict throttling and machine-readable logs.
//
// Trade-offs:
//   - Larger caches need proportionally more RAM
//   - Strict throttling may reject bursty but honest clients
func ProductionPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "production"
	cfg.CacheMB = 1024   // keep hot indexes in memory
	cfg.Handles = 1024   // raise together with the process ulimit
	cfg.RateLimitRPS = 5 // strict per-caller budget
	cfg.RateLimitBurst = 10
	cfg.LogFormat = "json" // log shippers parse json
	cfg.LogVerbosity = 3
	return cfg
}

// PresetNames lists the valid preset names.
func PresetNames() []string {
	return []string{"default", "dev", "production"}
}

// GetPresetByName looks up a preset by its identifier. This backs the
// --preset flag.
func GetPresetByName(name string) (PresetConfig, error) {
	switch name {
	case "dev":
		return DevPreset(), nil
	case "production":
		return ProductionPreset(), nil
	case "default":
		return DefaultPreset(), nil
	default:
		return PresetConfig{}, fmt.Errorf("unknown preset: %q (valid: dev, production, default)", name)
	}
}

// ApplyPreset merges preset into target. Zero-valued preset fields leave the
// target untouched, except the rate limit which is applied as a pair so a
// preset can disable throttling.
func ApplyPreset(target *PresetConfig, preset PresetConfig) {
	if preset.CacheMB > 0 {
		target.CacheMB = preset.CacheMB
	}
	if preset.Handles > 0 {
		target.Handles = preset.Handles
	}
	if preset.SweepInterval > 0 {
		target.SweepInterval = preset.SweepInterval
	}
	if preset.Name != "" {
		// named presets are complete, so their throttling is authoritative
		target.RateLimitRPS = preset.RateLimitRPS
		target.RateLimitBurst = preset.RateLimitBurst
		target.Name = preset.Name
	}
	if preset.JournalSize > 0 {
		target.JournalSize = preset.JournalSize
	}
	if preset.LogFormat != "" {
		target.LogFormat = preset.LogFormat
	}
	if preset.LogVerbosity > 0 {
		target.LogVerbosity = preset.LogVerbosity
	}
}

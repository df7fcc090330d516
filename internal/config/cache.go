package config

import "time"

// DirectoryCacheConfig defines settings for the salon directory read-through
// cache.  Prefix is the namespace flushed on every salon mutation; TTL bounds
// how long an entry can survive a racing flush.  DefaultLimit and MaxLimit
// clamp client-supplied pagination before the key is derived.
type DirectoryCacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    DefaultLimit int
    MaxLimit     int
}

// LoadDirectoryCacheConfig reads environment variables to build a
// DirectoryCacheConfig.  Defaults are used when variables are not set.
func LoadDirectoryCacheConfig() DirectoryCacheConfig {
    cfg := DirectoryCacheConfig{
        Enabled:      envBool("DIRECTORY_CACHE_ENABLED", true),
        TTL:          envDur("DIRECTORY_CACHE_TTL", 60*time.Second),
        Prefix:       envStr("DIRECTORY_CACHE_PREFIX", "salons:list:"),
        DefaultLimit: envInt("DIRECTORY_DEFAULT_LIMIT", 10),
        MaxLimit:     envInt("DIRECTORY_MAX_LIMIT", 100),
    }
    if cfg.TTL <= 0 {
        cfg.TTL = 60 * time.Second
    }
    if cfg.MaxLimit < 1 {
        cfg.MaxLimit = 100
    }
    if cfg.DefaultLimit < 1 || cfg.DefaultLimit > cfg.MaxLimit {
        cfg.DefaultLimit = 10
    }
    return cfg
}

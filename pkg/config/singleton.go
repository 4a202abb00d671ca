package config

import (
	"sync"
)

var (
	currentMu sync.RWMutex
	current   *Config
)

// Finisher completes a freshly loaded configuration before it is
// published. The CLI resolves secret references and applies its flag
// overrides in one.
type Finisher func(*Config) error

// Load reads path with environment overrides, runs finish (when non-nil)
// and publishes the result as the process configuration. On any error the
// published configuration is left as it was, so a bad edit during a hot
// reload keeps the relay on its last good settings.
func Load(path string, finish Finisher) (*Config, error) {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, err
	}
	if finish != nil {
		if err := finish(cfg); err != nil {
			return nil, err
		}
	}

	SetConfig(cfg)
	return cfg, nil
}

// GetConfig returns the published configuration, or nil before the first
// Load or SetConfig.
func GetConfig() *Config {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current
}

// SetConfig publishes cfg. Callers must not modify cfg afterwards; readers
// may hold it.
func SetConfig(cfg *Config) {
	currentMu.Lock()
	current = cfg
	currentMu.Unlock()
}

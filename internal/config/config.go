package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"

	"go-workshop-client/internal/models"
)

// LoadConfig reads the configuration from the specified path (defaulting to
// "config.toml") and returns the populated models.Config.
func LoadConfig(configFilePath string) (models.Config, error) {
	if configFilePath == "" {
		configFilePath = "config.toml"
	}
	var cfg models.Config
	if _, err := toml.DecodeFile(configFilePath, &cfg); err != nil {
		return models.Config{}, fmt.Errorf("error loading config file %s: %w", configFilePath, err)
	}

	if cfg.CachePath == "" {
		log.Warn("Warning: CachePath is not set in config.toml")
	}
	if cfg.PersonaTimeoutMs < 0 {
		log.Warnf("Invalid PersonaTimeoutMs %d in config, ignoring", cfg.PersonaTimeoutMs)
		cfg.PersonaTimeoutMs = 0
	}

	log.Infof("Configuration loaded from %s", configFilePath)
	return cfg, nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Load loads client settings.
// Search order: customPath -> ~/.decodey/config.yaml -> ./configs/decodey.yaml -> embedded default.
// Environment variables (DECODEY_*) override whatever file was loaded.
func Load(customPath string) (Settings, error) {
	cfg, err := loadFile(customPath)
	if err != nil {
		return cfg, err
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("config: cannot apply environment overrides: %w", err)
	}
	applyFallbacks(&cfg)
	if !cfg.Gameplay.Difficulty.Valid() {
		return cfg, fmt.Errorf("config: unknown difficulty %q", cfg.Gameplay.Difficulty)
	}
	return cfg, nil
}

// applyFallbacks fills unset fields from the hardcoded defaults so a
// partial user config stays usable.
func applyFallbacks(cfg *Settings) {
	def := DefaultSettings()
	if cfg.Server.URL == "" {
		cfg.Server.URL = def.Server.URL
	}
	if cfg.Server.TimeoutSecs <= 0 {
		cfg.Server.TimeoutSecs = def.Server.TimeoutSecs
	}
	if cfg.Gameplay.Difficulty == "" {
		cfg.Gameplay.Difficulty = def.Gameplay.Difficulty
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = def.Storage.DBPath
	}
}

func loadFile(customPath string) (Settings, error) {
	var cfg Settings

	// Custom path is authoritative: failures there are errors, not fallbacks.
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return cfg, fmt.Errorf("config: cannot read %s: %w", customPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: cannot parse %s: %w", customPath, err)
		}
		return cfg, nil
	}

	if userCfgPath := userConfigPath("config.yaml"); userCfgPath != "" {
		if data, err := os.ReadFile(userCfgPath); err == nil {
			if err := yaml.Unmarshal(data, &cfg); err == nil {
				return cfg, nil
			}
		}
	}

	if data, err := os.ReadFile("configs/decodey.yaml"); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err == nil {
			return cfg, nil
		}
	}

	if err := yaml.Unmarshal(defaultSettingsYAML, &cfg); err != nil {
		return DefaultSettings(), nil // Fallback to hardcoded if embed fails
	}
	return cfg, nil
}

// userConfigPath returns the path to the user config file, or empty if home is unavailable.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".decodey", filename)
}

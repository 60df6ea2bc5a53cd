package config

import (
	_ "embed"
)

//go:embed defaults/decodey.yaml
var defaultSettingsYAML []byte

// DefaultSettings returns the default client configuration.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerConfig{
			URL:         "https://api.decodey.game",
			TimeoutSecs: 15,
		},
		Gameplay: GameplayConfig{
			Difficulty:   DifficultyMedium,
			HardcoreMode: false,
			LongText:     false,
		},
		Storage: StorageConfig{
			DBPath: "~/.decodey/decodey.db",
		},
	}
}

// Package config provides YAML-based settings loading, environment
// overrides and the difficulty table for the decodey client.
package config

// Settings contains all client configuration.
type Settings struct {
	Server   ServerConfig   `yaml:"server"`
	Gameplay GameplayConfig `yaml:"gameplay"`
	Storage  StorageConfig  `yaml:"storage"`
}

// ServerConfig defines how to reach the backend.
type ServerConfig struct {
	URL         string `yaml:"url" env:"DECODEY_SERVER_URL"`
	TimeoutSecs int    `yaml:"timeout_secs" env:"DECODEY_SERVER_TIMEOUT"`
}

// GameplayConfig defines default game parameters for new sessions.
type GameplayConfig struct {
	Difficulty   Difficulty `yaml:"difficulty" env:"DECODEY_DIFFICULTY"`
	HardcoreMode bool       `yaml:"hardcore_mode" env:"DECODEY_HARDCORE"`
	LongText     bool       `yaml:"long_text" env:"DECODEY_LONG_TEXT"`
}

// StorageConfig defines local persistence parameters.
type StorageConfig struct {
	DBPath string `yaml:"db_path" env:"DECODEY_DB_PATH"`
}

// Difficulty is a named mistake-budget tier.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// MaxMistakes returns the mistake ceiling for a difficulty.
// Unknown difficulties fall back to the medium budget.
func (d Difficulty) MaxMistakes() int {
	switch d {
	case DifficultyEasy:
		return 8
	case DifficultyMedium:
		return 5
	case DifficultyHard:
		return 3
	default:
		return 5
	}
}

// Valid reports whether d is one of the known tiers.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

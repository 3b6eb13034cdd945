// Package config handles scmltool configuration loading and management.
package config

// Config holds all tool settings.
type Config struct {
	Export   ExportConfig   `yaml:"export"`
	Retarget RetargetConfig `yaml:"retarget"`
	Playback PlaybackConfig `yaml:"playback"`
	Assets   AssetsConfig   `yaml:"assets"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ExportConfig holds the header written into exported SCML files.
type ExportConfig struct {
	Generator        string `yaml:"generator"`
	GeneratorVersion string `yaml:"generator_version"`
	Encoding         string `yaml:"encoding"` // Character set of written files; empty means UTF-8
}

// RetargetConfig holds retargeting settings.
type RetargetConfig struct {
	RestAnimation string `yaml:"rest_animation"` // Animation holding the old and new rest poses
}

// PlaybackConfig holds pose sampling settings.
type PlaybackConfig struct {
	Flatten   bool `yaml:"flatten"`   // Report world-space poses
	NoLooping bool `yaml:"no_looping"` // Clamp at the last keyframe instead of wrapping
	Precision int  `yaml:"precision"` // Decimal places when printing numbers
}

// AssetsConfig holds image asset settings.
type AssetsConfig struct {
	CacheImages  bool  `yaml:"cache_images"`
	MaxFileBytes int64 `yaml:"max_file_bytes"` // Refuse larger image files; 0 disables the check
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			Generator:        "ChopHuman SCML Exporter",
			GeneratorVersion: "0.1.0",
		},
		Retarget: RetargetConfig{
			RestAnimation: "rest",
		},
		Playback: PlaybackConfig{
			Flatten:   true,
			NoLooping: false,
			Precision: 3,
		},
		Assets: AssetsConfig{
			CacheImages:  true,
			MaxFileBytes: 64 << 20,
		},
		Logging: LoggingConfig{
			Level:      "info",
			LogFile:    "",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

package config

// Overrides holds command-line values that take priority over the config file.
// Zero values leave the loaded setting alone.
type Overrides struct {
	ConfigPath    string
	Debug         bool
	LogLevel      string
	LogFile       string
	RestAnimation string
	Generator     string
	Encoding      string
	NoLooping     bool
	Local         bool // Report parent-relative poses
}

// apply applies the overrides to the config.
func (o Overrides) apply(cfg *Config) {
	if o.Debug {
		cfg.Logging.Level = "debug"
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.LogFile != "" {
		cfg.Logging.LogFile = o.LogFile
	}
	if o.RestAnimation != "" {
		cfg.Retarget.RestAnimation = o.RestAnimation
	}
	if o.Generator != "" {
		cfg.Export.Generator = o.Generator
	}
	if o.Encoding != "" {
		cfg.Export.Encoding = o.Encoding
	}
	if o.NoLooping {
		cfg.Playback.NoLooping = true
	}
	if o.Local {
		cfg.Playback.Flatten = false
	}
}

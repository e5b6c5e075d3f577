package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Volume struct {
		StepPercent    float64 `mapstructure:"step_percent"`
		Magnetic       bool    `mapstructure:"magnetic"`
		Magnetic25     bool    `mapstructure:"magnetic_25"`
		MaximumPercent int     `mapstructure:"maximum_percent"`
	} `mapstructure:"volume"`
	Player struct {
		Control          bool     `mapstructure:"control"`
		HorizontalScroll bool     `mapstructure:"horizontal_scroll"`
		ShowTrack        bool     `mapstructure:"show_track"`
		TruncateText     int      `mapstructure:"truncate_text"`
		NoSeek           []string `mapstructure:"no_seek"`
	} `mapstructure:"player"`
	Artwork struct {
		Enabled      bool `mapstructure:"enabled"`
		Padding      int  `mapstructure:"padding"`
		WidthPixels  int  `mapstructure:"width_pixels"`
		WidthColumns int  `mapstructure:"width_columns"`
	} `mapstructure:"artwork"`
	UI struct {
		Color     string `mapstructure:"color"`
		ColorMode string `mapstructure:"color_mode"`
		MaxWidth  int    `mapstructure:"max_width"`
	} `mapstructure:"ui"`
	Timing struct {
		UIRefreshMs int `mapstructure:"ui_refresh_ms"`
		ArtPollMs   int `mapstructure:"art_poll_ms"`
	} `mapstructure:"timing"`
	Logging struct {
		Level string `mapstructure:"level"`
		File  string `mapstructure:"file"`
	} `mapstructure:"logging"`
}

// VolumeConfig derives the volume arithmetic parameters
func (c Config) VolumeConfig() VolumeConfig {
	return VolumeConfig{
		Norm:       pulseVolumeNorm,
		Max:        pulseVolumeNorm * float64(c.Volume.MaximumPercent) / 100,
		Step:       c.Volume.StepPercent / 100,
		Magnetic:   c.Volume.Magnetic,
		Magnetic25: c.Volume.Magnetic25,
	}
}

// SafeConfig wraps Config with thread-safe access
type SafeConfig struct {
	mu  sync.RWMutex
	cfg Config
}

// Get returns a copy of the current config (thread-safe read)
func (sc *SafeConfig) Get() Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.cfg
}

// Set updates the config (thread-safe write)
func (sc *SafeConfig) Set(cfg Config) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cfg = cfg
}

// Config file changed notification
type configReloadMsg struct{}

// watchConfigCmd waits for the next reload notification
func watchConfigCmd(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-changes
		return configReloadMsg{}
	}
}

var defaultValues = map[string]interface{}{
	"volume.step_percent":      2.0,
	"volume.magnetic":          true,
	"volume.magnetic_25":       false,
	"volume.maximum_percent":   100,
	"player.control":           true,
	"player.horizontal_scroll": false,
	"player.show_track":        true,
	"player.truncate_text":     30,
	"player.no_seek":           []string{},
	"artwork.enabled":          true,
	"artwork.padding":          16,
	"artwork.width_pixels":     300,
	"artwork.width_columns":    13,
	"ui.color":                 "2",
	"ui.color_mode":            "manual",
	"ui.max_width":             50,
	"timing.ui_refresh_ms":     100,
	"timing.art_poll_ms":       3000,
	"logging.level":            "info",
	"logging.file":             "",
}

// defaultConfig returns the config with every default applied
func defaultConfig() Config {
	var cfg Config
	cfg.Volume.StepPercent = 2
	cfg.Volume.Magnetic = true
	cfg.Volume.MaximumPercent = 100
	cfg.Player.Control = true
	cfg.Player.ShowTrack = true
	cfg.Player.TruncateText = 30
	cfg.Artwork.Enabled = true
	cfg.Artwork.Padding = 16
	cfg.Artwork.WidthPixels = 300
	cfg.Artwork.WidthColumns = 13
	cfg.UI.Color = "2"
	cfg.UI.ColorMode = "manual"
	cfg.UI.MaxWidth = 50
	cfg.Timing.UIRefreshMs = 100
	cfg.Timing.ArtPollMs = 3000
	cfg.Logging.Level = "info"
	return cfg
}

// registerFlags declares the command-line flags that override config keys
func registerFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Path to the config file")
	flags.StringP("color", "c", "2", "Accent color (ANSI code or hex)")
	flags.Bool("no-artwork", false, "Disable album artwork display")
	flags.Int("max-volume", 100, "Maximum output volume in percent (100-150)")
	flags.Float64("step", 2, "Volume step in percent")
	flags.String("log-level", "info", "Log level (error, warn, info, debug)")
	flags.String("log-file", "", "Log file path")
	flags.Bool("print-config", false, "Print the effective configuration and exit")
}

// newViper sets up defaults, file lookup, environment and flag bindings
func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	for key, value := range defaultValues {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else if dir := configDir(); dir != "" {
		v.AddConfigPath(dir)
	}

	// Environment variable support with SOUNDBAR_ prefix
	v.SetEnvPrefix("SOUNDBAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Flags take precedence when set explicitly
	bindings := map[string]string{
		"ui.color":               "color",
		"volume.maximum_percent": "max-volume",
		"volume.step_percent":    "step",
		"logging.level":          "log-level",
		"logging.file":           "log-file",
	}
	for key, name := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	if noArt, _ := flags.GetBool("no-artwork"); noArt {
		v.Set("artwork.enabled", false)
	}
	return v, nil
}

// configDir follows XDG_CONFIG_HOME, falling back to ~/.config
func configDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configHome, "soundbar")
}

// readConfig reads the config file if present and returns a validated
// config. Invalid fields are replaced by defaults and reported.
func readConfig(v *viper.Viper) (Config, []error) {
	var warnings []error
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			warnings = append(warnings, fmt.Errorf("error reading config file: %w", err))
		}
	}
	cfg, errs := decodeConfig(v)
	return cfg, append(warnings, errs...)
}

// decodeConfig unmarshals and validates the current viper state
func decodeConfig(v *viper.Viper) (Config, []error) {
	cfg := defaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return defaultConfig(), []error{fmt.Errorf("error parsing config: %w", err)}
	}
	errs := validateConfig(&cfg)
	applyDefaultsForInvalidFields(&cfg, errs)
	return cfg, errs
}

// watchConfig reloads the config on file changes and signals changes.
func watchConfig(v *viper.Viper, sc *SafeConfig, changes chan<- struct{}, logger *slog.Logger) {
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, errs := decodeConfig(v)
		for _, err := range errs {
			logger.Warn("config reload", "file", e.Name, "error", err)
		}
		sc.Set(cfg)
		select {
		case changes <- struct{}{}:
		default:
			// A reload is already pending
		}
	})
	v.WatchConfig()
}

// printConfig writes the effective configuration as YAML
func printConfig(w io.Writer, v *viper.Viper) error {
	out, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	_, err = w.Write(out)
	return err
}

// configError is a validation failure for one config key
type configError struct {
	field   string
	message string
}

func (e configError) Error() string {
	return fmt.Sprintf("%s: %s", e.field, e.message)
}

var (
	ansiColorPattern = regexp.MustCompile(`^[0-9]{1,3}$`)
	hexColorPattern  = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// isValidColor accepts ANSI codes 0-255 and #RGB / #RRGGBB hex colors
func isValidColor(color string) bool {
	if ansiColorPattern.MatchString(color) {
		n, _ := strconv.Atoi(color)
		return n <= 255
	}
	return hexColorPattern.MatchString(color)
}

// validateConfig checks every field and returns one error per bad field
func validateConfig(cfg *Config) []error {
	var errs []error
	check := func(ok bool, field, format string, args ...interface{}) {
		if !ok {
			errs = append(errs, configError{field: field, message: fmt.Sprintf(format, args...)})
		}
	}

	check(cfg.Volume.StepPercent >= 1 && cfg.Volume.StepPercent <= 25,
		"volume.step_percent", "must be between 1 and 25 (got %g)", cfg.Volume.StepPercent)
	check(cfg.Volume.MaximumPercent >= 100 && cfg.Volume.MaximumPercent <= 150,
		"volume.maximum_percent", "must be between 100 and 150 (got %d)", cfg.Volume.MaximumPercent)
	check(cfg.Player.TruncateText >= 0 && cfg.Player.TruncateText <= 500,
		"player.truncate_text", "must be between 0 and 500 (got %d)", cfg.Player.TruncateText)

	check(isValidColor(cfg.UI.Color), "ui.color", "invalid color format '%s'", cfg.UI.Color)
	check(cfg.UI.ColorMode == "manual" || cfg.UI.ColorMode == "auto",
		"ui.color_mode", "must be 'manual' or 'auto' (got '%s')", cfg.UI.ColorMode)
	maxWidthOK := cfg.UI.MaxWidth >= 30 && cfg.UI.MaxWidth <= 300
	check(maxWidthOK, "ui.max_width", "must be between 30 and 300 (got %d)", cfg.UI.MaxWidth)

	// Padding is compared against max_width only once max_width is valid.
	check(cfg.Artwork.Padding >= 0 && (!maxWidthOK || cfg.Artwork.Padding < cfg.UI.MaxWidth),
		"artwork.padding", "must be between 0 and max_width (got %d)", cfg.Artwork.Padding)
	check(cfg.Artwork.WidthPixels > 0 && cfg.Artwork.WidthPixels <= 2000,
		"artwork.width_pixels", "must be between 1 and 2000 (got %d)", cfg.Artwork.WidthPixels)
	check(cfg.Artwork.WidthColumns > 0 && cfg.Artwork.WidthColumns <= 100,
		"artwork.width_columns", "must be between 1 and 100 (got %d)", cfg.Artwork.WidthColumns)

	check(cfg.Timing.UIRefreshMs >= 10 && cfg.Timing.UIRefreshMs <= 10000,
		"timing.ui_refresh_ms", "must be between 10 and 10000 (got %d)", cfg.Timing.UIRefreshMs)
	check(cfg.Timing.ArtPollMs >= 500 && cfg.Timing.ArtPollMs <= 600000,
		"timing.art_poll_ms", "must be between 500 and 600000 (got %d)", cfg.Timing.ArtPollMs)

	_, err := parseLogLevel(cfg.Logging.Level)
	check(err == nil, "logging.level", "must be error, warn, info or debug (got '%s')", cfg.Logging.Level)

	return errs
}

// applyDefaultsForInvalidFields resets every field named in errs
func applyDefaultsForInvalidFields(cfg *Config, errs []error) {
	def := defaultConfig()
	for _, err := range errs {
		ce, ok := err.(configError)
		if !ok {
			continue
		}
		switch ce.field {
		case "volume.step_percent":
			cfg.Volume.StepPercent = def.Volume.StepPercent
		case "volume.maximum_percent":
			cfg.Volume.MaximumPercent = def.Volume.MaximumPercent
		case "player.truncate_text":
			cfg.Player.TruncateText = def.Player.TruncateText
		case "ui.color":
			cfg.UI.Color = def.UI.Color
		case "ui.color_mode":
			cfg.UI.ColorMode = def.UI.ColorMode
		case "ui.max_width":
			cfg.UI.MaxWidth = def.UI.MaxWidth
		case "artwork.padding":
			cfg.Artwork.Padding = def.Artwork.Padding
		case "artwork.width_pixels":
			cfg.Artwork.WidthPixels = def.Artwork.WidthPixels
		case "artwork.width_columns":
			cfg.Artwork.WidthColumns = def.Artwork.WidthColumns
		case "timing.ui_refresh_ms":
			cfg.Timing.UIRefreshMs = def.Timing.UIRefreshMs
		case "timing.art_poll_ms":
			cfg.Timing.ArtPollMs = def.Timing.ArtPollMs
		case "logging.level":
			cfg.Logging.Level = def.Logging.Level
		}
	}
	// Padding is checked against max_width, which may itself have been reset.
	if cfg.Artwork.Padding >= cfg.UI.MaxWidth {
		cfg.Artwork.Padding = def.Artwork.Padding
	}
}

// printConfigWarnings reports validation problems before the UI starts
func printConfigWarnings(w io.Writer, errs []error) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintln(w, "Warning: invalid configuration values, using defaults for:")
	for _, err := range errs {
		fmt.Fprintf(w, "  - %v\n", err)
	}
}

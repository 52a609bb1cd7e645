// Package config loads nowpaper settings from defaults, a config file,
// NOWPAPER_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/genricoloni/nowpaper/internal/display"
	"github.com/genricoloni/nowpaper/internal/domain"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix     = "NOWPAPER"
	envConfigFile = "NOWPAPER_CONFIG"
	systemConfig  = "/etc/nowpaper/config.json"
)

var logLevels = []string{"DEBUG", "INFO", "WARN", "WARNING", "ERROR"}

// Config holds the application configuration
type Config struct {
	DisplayType   string `mapstructure:"display_type"`
	DisplayWidth  int    `mapstructure:"display_width"`
	DisplayHeight int    `mapstructure:"display_height"`

	EPaperModel       string `mapstructure:"epaper_model"`
	EPaperDevice      string `mapstructure:"epaper_device"`
	FramebufferDevice string `mapstructure:"framebuffer_device"`

	OutputDir  string `mapstructure:"output_dir"`
	OutputFile string `mapstructure:"output_file"`

	UpdateInterval      float64 `mapstructure:"update_interval"`  // seconds
	BackoffInterval     float64 `mapstructure:"backoff_interval"` // seconds, 0 means 5x UpdateInterval
	RefreshWhilePlaying bool    `mapstructure:"refresh_while_playing"`
	SourceTimeout       float64 `mapstructure:"source_timeout"` // seconds
	Player              string  `mapstructure:"player"`

	FontRegular string `mapstructure:"font_regular"`
	FontBold    string `mapstructure:"font_bold"`

	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	// File is the config file that was read, empty when none was found
	File string `mapstructure:"-"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		DisplayType:         string(domain.DeviceVirtual),
		DisplayWidth:        250,
		DisplayHeight:       122,
		EPaperModel:         "epd2in13_V2",
		EPaperDevice:        "/dev/spidev0.0",
		FramebufferDevice:   "/dev/fb0",
		OutputDir:           "/tmp",
		OutputFile:          "display_output.png",
		UpdateInterval:      1.0,
		BackoffInterval:     0,
		RefreshWhilePlaying: true,
		SourceTimeout:       2.0,
		LogLevel:            "INFO",
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("display_type", d.DisplayType)
	v.SetDefault("display_width", d.DisplayWidth)
	v.SetDefault("display_height", d.DisplayHeight)
	v.SetDefault("epaper_model", d.EPaperModel)
	v.SetDefault("epaper_device", d.EPaperDevice)
	v.SetDefault("framebuffer_device", d.FramebufferDevice)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("output_file", d.OutputFile)
	v.SetDefault("update_interval", d.UpdateInterval)
	v.SetDefault("backoff_interval", d.BackoffInterval)
	v.SetDefault("refresh_while_playing", d.RefreshWhilePlaying)
	v.SetDefault("source_timeout", d.SourceTimeout)
	v.SetDefault("player", d.Player)
	v.SetDefault("font_regular", d.FontRegular)
	v.SetDefault("font_bold", d.FontBold)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file", d.LogFile)
}

// flagKeys maps command-line flags to config keys
var flagKeys = map[string]string{
	"display-type": "display_type",
	"width":        "display_width",
	"height":       "display_height",
	"epaper-model": "epaper_model",
	"output-dir":   "output_dir",
	"interval":     "update_interval",
	"player":       "player",
	"log-level":    "log_level",
	"log-file":     "log_file",
}

// RegisterFlags adds the overridable settings to fs
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("display-type", d.DisplayType, "display type: virtual, epaper or framebuffer")
	fs.Int("width", d.DisplayWidth, "display width in pixels")
	fs.Int("height", d.DisplayHeight, "display height in pixels")
	fs.String("epaper-model", d.EPaperModel, "e-paper panel model")
	fs.String("output-dir", d.OutputDir, "directory for the virtual display image")
	fs.Float64("interval", d.UpdateInterval, "poll interval in seconds")
	fs.String("player", d.Player, "preferred MPRIS player name")
	fs.String("log-level", d.LogLevel, "log level: DEBUG, INFO, WARN or ERROR")
	fs.String("log-file", d.LogFile, "also write logs to this file")
}

// Load builds the configuration. path is an explicit config file and may be
// empty; fs holds flags registered with RegisterFlags and may be nil. Only
// flags that were set on the command line override other sources.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if fs != nil {
		for flag, key := range flagKeys {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("failed to bind flag %s: %w", flag, err)
				}
			}
		}
	}

	file, explicit := findConfigFile(path)
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if explicit || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
				return Config{}, fmt.Errorf("failed to read config file: %w", err)
			}
			file = ""
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = file
	cfg.OutputDir = expandPath(cfg.OutputDir)
	cfg.FontRegular = expandPath(cfg.FontRegular)
	cfg.FontBold = expandPath(cfg.FontBold)
	cfg.LogFile = expandPath(cfg.LogFile)

	return cfg, nil
}

// findConfigFile resolves the config file: the explicit path, then the
// first existing of $NOWPAPER_CONFIG, the user and the system locations.
// explicit reports whether the file was requested by name and must exist.
func findConfigFile(path string) (string, bool) {
	if path != "" {
		return expandPath(path), true
	}
	candidates := []string{systemConfig}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = []string{UserConfigPath(home), systemConfig}
	}
	if env := os.Getenv(envConfigFile); env != "" {
		candidates = append([]string{expandPath(env)}, candidates...)
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, false
		}
	}
	return "", false
}

// UserConfigPath is the per-user config file under home
func UserConfigPath(home string) string {
	return filepath.Join(home, ".config", "nowpaper", "config.json")
}

// expandPath expands environment variables and a leading ~
func expandPath(p string) string {
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return p
}

// Validate reports the first invalid setting
func (c Config) Validate() error {
	switch domain.DeviceClass(c.DisplayType) {
	case domain.DeviceVirtual, domain.DeviceFramebuffer:
	case domain.DeviceEPaper:
	default:
		return fmt.Errorf("unknown display_type %q", c.DisplayType)
	}

	if c.DisplayWidth <= 0 || c.DisplayHeight <= 0 {
		return fmt.Errorf("display size must be positive, got %dx%d", c.DisplayWidth, c.DisplayHeight)
	}
	if domain.DeviceClass(c.DisplayType) == domain.DeviceEPaper {
		if err := display.CheckEPaperGeometry(c.EPaperModel, c.DisplayWidth, c.DisplayHeight); err != nil {
			return fmt.Errorf("invalid epaper_model: %w", err)
		}
	}
	if c.UpdateInterval <= 0 {
		return fmt.Errorf("update_interval must be positive, got %v", c.UpdateInterval)
	}
	if c.BackoffInterval < 0 {
		return fmt.Errorf("backoff_interval must not be negative, got %v", c.BackoffInterval)
	}
	if c.SourceTimeout <= 0 {
		return fmt.Errorf("source_timeout must be positive, got %v", c.SourceTimeout)
	}
	if !slices.Contains(logLevels, strings.ToUpper(c.LogLevel)) {
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// Interval is the poll interval
func (c Config) Interval() time.Duration {
	return seconds(c.UpdateInterval)
}

// Backoff is the wait after a failed tick; zero lets the engine pick 5x Interval
func (c Config) Backoff() time.Duration {
	return seconds(c.BackoffInterval)
}

// Timeout bounds a single metadata fetch
func (c Config) Timeout() time.Duration {
	return seconds(c.SourceTimeout)
}

// Display returns the driver settings
func (c Config) Display() display.Config {
	return display.Config{
		Class:             domain.DeviceClass(c.DisplayType),
		Width:             c.DisplayWidth,
		Height:            c.DisplayHeight,
		OutputDir:         c.OutputDir,
		OutputFile:        c.OutputFile,
		EPaperModel:       c.EPaperModel,
		EPaperDevice:      c.EPaperDevice,
		FramebufferDevice: c.FramebufferDevice,
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// WriteExample writes the default configuration to path. The format
// follows the extension (.json, .toml or .yaml).
func WriteExample(path string) error {
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

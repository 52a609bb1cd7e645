package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/genricoloni/nowpaper/internal/domain"
	"github.com/spf13/pflag"
)

// isolate points HOME at an empty directory so no user config is found
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(envConfigFile, "")
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != Default() {
		t.Errorf("expected defaults\n got %+v\nwant %+v", cfg, Default())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should be valid: %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{
		"display_type": "epaper",
		"display_width": 264,
		"display_height": 176,
		"epaper_model": "epd2in7",
		"update_interval": 2.5,
		"player": "vlc"
	}`)

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.File != path {
		t.Errorf("expected File %s, got %s", path, cfg.File)
	}
	if cfg.DisplayType != "epaper" || cfg.EPaperModel != "epd2in7" {
		t.Errorf("unexpected display settings: %+v", cfg)
	}
	if cfg.DisplayWidth != 264 || cfg.DisplayHeight != 176 {
		t.Errorf("expected 264x176, got %dx%d", cfg.DisplayWidth, cfg.DisplayHeight)
	}
	if cfg.Interval() != 2500*time.Millisecond {
		t.Errorf("expected 2.5s, got %v", cfg.Interval())
	}
	if cfg.Player != "vlc" {
		t.Errorf("expected player vlc, got %s", cfg.Player)
	}
	// Unset keys keep their defaults
	if cfg.OutputFile != "display_output.png" {
		t.Errorf("expected default output file, got %s", cfg.OutputFile)
	}
}

func TestLoad_TOML(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nowpaper.toml")
	writeFile(t, path, "display_type = \"framebuffer\"\nframebuffer_device = \"/dev/fb1\"\n")

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DisplayType != "framebuffer" || cfg.FramebufferDevice != "/dev/fb1" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoad_Precedence(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"update_interval": 2, "display_width": 200, "display_height": 100, "log_level": "DEBUG"}`)

	t.Setenv("NOWPAPER_UPDATE_INTERVAL", "0.5")
	t.Setenv("NOWPAPER_DISPLAY_WIDTH", "220")
	t.Setenv("NOWPAPER_REFRESH_WHILE_PLAYING", "false")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--width=300"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, fs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{name: "Flag beats env", got: cfg.DisplayWidth, want: 300},
		{name: "Env beats file", got: cfg.UpdateInterval, want: 0.5},
		{name: "File beats default", got: cfg.DisplayHeight, want: 100},
		{name: "Unset flag does not override file", got: cfg.LogLevel, want: "DEBUG"},
		{name: "Env bool", got: cfg.RefreshWhilePlaying, want: false},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoad_SearchOrder(t *testing.T) {
	t.Run("User config", func(t *testing.T) {
		home := isolate(t)
		writeFile(t, UserConfigPath(home), `{"output_dir": "/var/lib/nowpaper"}`)

		cfg, err := Load("", nil)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.OutputDir != "/var/lib/nowpaper" {
			t.Errorf("expected user config to be read, got %+v", cfg)
		}
		if cfg.File != UserConfigPath(home) {
			t.Errorf("unexpected File %s", cfg.File)
		}
	})

	t.Run("Env path wins over user config", func(t *testing.T) {
		home := isolate(t)
		writeFile(t, UserConfigPath(home), `{"output_dir": "/from/user"}`)
		envPath := filepath.Join(t.TempDir(), "env.json")
		writeFile(t, envPath, `{"output_dir": "/from/env"}`)
		t.Setenv(envConfigFile, envPath)

		cfg, err := Load("", nil)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.OutputDir != "/from/env" {
			t.Errorf("expected env config, got %s", cfg.OutputDir)
		}
	})

	t.Run("Missing env path is skipped", func(t *testing.T) {
		isolate(t)
		t.Setenv(envConfigFile, filepath.Join(t.TempDir(), "missing.json"))

		cfg, err := Load("", nil)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.File != "" {
			t.Errorf("expected no config file, got %s", cfg.File)
		}
	})
}

func TestLoad_Errors(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	malformed := filepath.Join(dir, "bad.json")
	writeFile(t, malformed, `{"display_width": `)

	tests := []struct {
		name string
		path string
	}{
		{name: "Missing explicit file", path: filepath.Join(dir, "missing.json")},
		{name: "Malformed file", path: malformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.path, nil); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoad_ExpandsHome(t *testing.T) {
	home := isolate(t)
	t.Setenv("NOWPAPER_OUTPUT_DIR", "~/frames")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "frames"); cfg.OutputDir != want {
		t.Errorf("expected %s, got %s", want, cfg.OutputDir)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "Defaults", mutate: func(c *Config) {}},
		{name: "E-paper with known model", mutate: func(c *Config) { c.DisplayType = "epaper" }},
		{name: "Lowercase log level", mutate: func(c *Config) { c.LogLevel = "debug" }},
		{name: "Unknown display type", mutate: func(c *Config) { c.DisplayType = "tft" }, wantErr: true},
		{name: "Unknown e-paper model", mutate: func(c *Config) {
			c.DisplayType = "epaper"
			c.EPaperModel = "epd1in54"
		}, wantErr: true},
		{name: "E-paper in portrait", mutate: func(c *Config) {
			c.DisplayType = "epaper"
			c.DisplayWidth, c.DisplayHeight = 122, 250
		}},
		{name: "E-paper size fits neither orientation", mutate: func(c *Config) {
			c.DisplayType = "epaper"
			c.EPaperModel = "epd2in9"
		}, wantErr: true},
		{name: "Model size ignored for virtual", mutate: func(c *Config) { c.EPaperModel = "epd7in5" }},
		{name: "Zero width", mutate: func(c *Config) { c.DisplayWidth = 0 }, wantErr: true},
		{name: "Negative height", mutate: func(c *Config) { c.DisplayHeight = -1 }, wantErr: true},
		{name: "Zero interval", mutate: func(c *Config) { c.UpdateInterval = 0 }, wantErr: true},
		{name: "Negative backoff", mutate: func(c *Config) { c.BackoffInterval = -1 }, wantErr: true},
		{name: "Zero source timeout", mutate: func(c *Config) { c.SourceTimeout = 0 }, wantErr: true},
		{name: "Unknown log level", mutate: func(c *Config) { c.LogLevel = "TRACE" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("wantErr %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_EPaperGeometryMismatch(t *testing.T) {
	cfg := Default()
	cfg.DisplayType = "epaper"
	cfg.EPaperModel = "epd4in2"

	if err := cfg.Validate(); !errors.Is(err, domain.ErrGeometryMismatch) {
		t.Errorf("expected ErrGeometryMismatch, got %v", err)
	}
}

func TestDurations(t *testing.T) {
	cfg := Default()
	cfg.UpdateInterval = 0.25
	cfg.BackoffInterval = 3
	cfg.SourceTimeout = 1.5

	if cfg.Interval() != 250*time.Millisecond {
		t.Errorf("Interval: got %v", cfg.Interval())
	}
	if cfg.Backoff() != 3*time.Second {
		t.Errorf("Backoff: got %v", cfg.Backoff())
	}
	if cfg.Timeout() != 1500*time.Millisecond {
		t.Errorf("Timeout: got %v", cfg.Timeout())
	}
}

func TestDisplay(t *testing.T) {
	cfg := Default()
	cfg.DisplayType = "epaper"

	d := cfg.Display()
	if d.Class != domain.DeviceEPaper {
		t.Errorf("expected epaper class, got %s", d.Class)
	}
	geom := d.Geometry()
	if geom.Width != 250 || geom.Height != 122 || geom.ColorMode != domain.ColorGrayscale {
		t.Errorf("unexpected geometry %+v", geom)
	}
	if d.EPaperDevice != "/dev/spidev0.0" {
		t.Errorf("unexpected device %s", d.EPaperDevice)
	}
}

func TestWriteExample(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	if err := WriteExample(path); err != nil {
		t.Fatalf("WriteExample failed: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("example should load: %v", err)
	}
	want := Default()
	want.File = path
	if cfg != want {
		t.Errorf("example should hold the defaults\n got %+v\nwant %+v", cfg, want)
	}
}

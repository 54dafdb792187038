package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Whisper struct {
		Model    string `yaml:"model"`
		Device   string `yaml:"device"`
		Language string `yaml:"language"`
		Python   string `yaml:"python"`
	} `yaml:"whisper"`

	FFmpeg struct {
		Path          string   `yaml:"path"`
		FallbackPaths []string `yaml:"fallback_paths"`
	} `yaml:"ffmpeg"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	Storage struct {
		UploadDir string `yaml:"upload_dir"`
		OutputDir string `yaml:"output_dir"`
		Database  string `yaml:"database"`
	} `yaml:"storage"`

	Uploads struct {
		AllowedExtensions []string `yaml:"allowed_extensions"`
		MaxFileSizeMB     int      `yaml:"max_file_size_mb"`
	} `yaml:"uploads"`

	Download struct {
		ManifestOnly bool `yaml:"manifest_only"`
	} `yaml:"download"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`
}

var validModels = map[string]bool{
	"tiny": true, "base": true, "small": true, "medium": true, "large": true,
	"tiny.en": true, "base.en": true, "small.en": true, "medium.en": true, "turbo": true,
}

// Default returns the configuration used when no file is present
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 5000
	cfg.Whisper.Model = "medium"
	cfg.Whisper.Device = "cpu"
	cfg.Whisper.Python = "python"
	cfg.FFmpeg.FallbackPaths = []string{
		"/usr/bin/ffmpeg",
		"/usr/local/bin/ffmpeg",
		"/opt/homebrew/bin/ffmpeg",
	}
	cfg.Workers.Count = 1
	cfg.Storage.UploadDir = "uploads"
	cfg.Storage.OutputDir = "output"
	cfg.Storage.Database = "data/manifest.db"
	cfg.Uploads.AllowedExtensions = []string{"mp4", "avi", "mov", "mkv", "flv", "wmv", "webm"}
	cfg.Download.ManifestOnly = true
	cfg.Cleanup.IntervalMinutes = 30
	cfg.Cleanup.MaxAgeHours = 6
	return cfg
}

// Load reads the YAML file at path on top of the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv("WHISPER_MODEL")); v != "" {
		c.Whisper.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("WHISPER_DEVICE")); v != "" {
		c.Whisper.Device = v
	}
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	if !validModels[c.Whisper.Model] {
		return fmt.Errorf("unsupported whisper model: %s", c.Whisper.Model)
	}
	switch c.Whisper.Device {
	case "cpu", "cuda":
	default:
		return fmt.Errorf("unsupported whisper device: %s", c.Whisper.Device)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Storage.UploadDir == "" || c.Storage.OutputDir == "" {
		return errors.New("storage upload_dir and output_dir are required")
	}
	if len(c.Uploads.AllowedExtensions) == 0 {
		return errors.New("uploads.allowed_extensions must not be empty")
	}
	if c.Workers.Count <= 0 {
		c.Workers.Count = 1
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port             int
	DetectorURL      string
	DetectorTimeout  time.Duration
	DatabasePath     string
	LogDirectory     string
	LogMaxSizeMB     int
	LogMaxBackups    int
	MaxDisplayWidth  int
	MaxDisplayHeight int
	MaxUploadMB      int
	MaxImagePixels   int
	MaxWorkspaces    int
	AllowedOrigins   []string
	MapWidth         int
	MapHeight        int
	StaticDirectory  string
}

// fileConfig mirrors Config for the optional YAML overlay. Zero values leave
// the environment-derived setting untouched.
type fileConfig struct {
	Port             int      `yaml:"port"`
	DetectorURL      string   `yaml:"detector_url"`
	DetectorTimeout  string   `yaml:"detector_timeout"`
	DatabasePath     string   `yaml:"db_path"`
	LogDirectory     string   `yaml:"log_dir"`
	MaxDisplayWidth  int      `yaml:"max_display_width"`
	MaxDisplayHeight int      `yaml:"max_display_height"`
	MaxUploadMB      int      `yaml:"max_upload_mb"`
	MaxImagePixels   int      `yaml:"max_image_pixels"`
	MaxWorkspaces    int      `yaml:"max_workspaces"`
	AllowedOrigins   []string `yaml:"allowed_origins"`
	MapWidth         int      `yaml:"map_width"`
	MapHeight        int      `yaml:"map_height"`
	StaticDirectory  string   `yaml:"static_dir"`
}

// Load reads an optional .env file, then the environment, then the YAML file
// named by CONFIG_FILE if set.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnvAsInt("PORT", 8080),
		DetectorURL:      strings.TrimRight(getEnv("DETECTOR_URL", "http://localhost:5000"), "/"),
		DetectorTimeout:  getEnvAsDuration("DETECTOR_TIMEOUT", 30*time.Second),
		DatabasePath:     getEnv("DB_PATH", filepath.Join(".", "data", "potholewatch.db")),
		LogDirectory:     getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogMaxSizeMB:     getEnvAsInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups:    getEnvAsInt("LOG_MAX_BACKUPS", 3),
		MaxDisplayWidth:  getEnvAsInt("MAX_DISPLAY_WIDTH", 800),
		MaxDisplayHeight: getEnvAsInt("MAX_DISPLAY_HEIGHT", 600),
		MaxUploadMB:      getEnvAsInt("MAX_UPLOAD_MB", 250),
		MaxImagePixels:   getEnvAsInt("MAX_IMAGE_PIXELS", 40_000_000),
		MaxWorkspaces:    getEnvAsInt("MAX_WORKSPACES", 64),
		AllowedOrigins:   getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		MapWidth:         getEnvAsInt("MAP_WIDTH", 800),
		MapHeight:        getEnvAsInt("MAP_HEIGHT", 500),
		StaticDirectory:  getEnv("STATIC_DIR", filepath.Join(".", "static")),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlay(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// MaxUploadBytes is the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func (c *Config) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return errors.Wrapf(err, "failed to parse config file %s", path)
	}

	if fc.Port != 0 {
		c.Port = fc.Port
	}
	if fc.DetectorURL != "" {
		c.DetectorURL = strings.TrimRight(fc.DetectorURL, "/")
	}
	if fc.DetectorTimeout != "" {
		d, err := cast.ToDurationE(fc.DetectorTimeout)
		if err != nil {
			return errors.Wrap(err, "detector_timeout")
		}
		c.DetectorTimeout = d
	}
	if fc.DatabasePath != "" {
		c.DatabasePath = fc.DatabasePath
	}
	if fc.LogDirectory != "" {
		c.LogDirectory = fc.LogDirectory
	}
	if fc.MaxDisplayWidth != 0 {
		c.MaxDisplayWidth = fc.MaxDisplayWidth
	}
	if fc.MaxDisplayHeight != 0 {
		c.MaxDisplayHeight = fc.MaxDisplayHeight
	}
	if fc.MaxUploadMB != 0 {
		c.MaxUploadMB = fc.MaxUploadMB
	}
	if fc.MaxImagePixels != 0 {
		c.MaxImagePixels = fc.MaxImagePixels
	}
	if fc.MaxWorkspaces != 0 {
		c.MaxWorkspaces = fc.MaxWorkspaces
	}
	if len(fc.AllowedOrigins) > 0 {
		c.AllowedOrigins = fc.AllowedOrigins
	}
	if fc.MapWidth != 0 {
		c.MapWidth = fc.MapWidth
	}
	if fc.MapHeight != 0 {
		c.MapHeight = fc.MapHeight
	}
	if fc.StaticDirectory != "" {
		c.StaticDirectory = fc.StaticDirectory
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("45s") or plain seconds ("45").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if d, err := cast.ToDurationE(value); err == nil {
		return d
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

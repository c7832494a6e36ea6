package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Library     LibraryConfig     `toml:"library"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	Artwork     ArtworkConfig     `toml:"artwork"`
	Log         LogConfig         `toml:"log"`
	Metrics     MetricsConfig     `toml:"metrics"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify API client credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// YouTubeConfig points at the YouTube Music search proxy.
type YouTubeConfig struct {
	ProxyURL string `toml:"proxy_url" validate:"omitempty,url"`
}

// LibraryConfig describes where and how finished files are written.
type LibraryConfig struct {
	Dir      string `toml:"dir"`
	Format   string `toml:"format" validate:"oneof=mp3 flac wav aac"`
	Template string `toml:"template" validate:"required"`
	CacheDir string `toml:"cache_dir"`
}

// PipelineConfig tunes concurrency, retries and request pacing.
type PipelineConfig struct {
	Concurrency       int      `toml:"concurrency" validate:"min=1,max=100"`
	SearchAttempts    int      `toml:"search_attempts" validate:"min=0"`
	SearchDelay       Duration `toml:"search_delay"`
	DownloadAttempts  int      `toml:"download_attempts" validate:"min=0"`
	DownloadDelay     Duration `toml:"download_delay"`
	ConvertAttempts   int      `toml:"convert_attempts" validate:"min=0"`
	ConvertDelay      Duration `toml:"convert_delay"`
	RequestsPerSecond float64  `toml:"requests_per_second" validate:"gte=0"`
}

// ArtworkConfig controls embedded cover art.
type ArtworkConfig struct {
	Size int `toml:"size" validate:"gte=0"`
}

// LogConfig sets the default log level.
type LogConfig struct {
	Level string `toml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// MetricsConfig enables the Prometheus textfile written after each run.
type MetricsConfig struct {
	Textfile string `toml:"textfile"`
}

// Duration wraps [time.Duration] so it can be written as "5s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults, environment overrides are applied, and the result is validated.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks struct constraints with [validator.Validate].
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// LibraryDir resolves the library directory, defaulting to the working directory.
func (c *Config) LibraryDir() string {
	if c.Library.Dir != "" {
		return c.Library.Dir
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// CacheDir resolves the search cache directory, defaulting to the user cache dir.
func (c *Config) CacheDir() string {
	if c.Library.CacheDir != "" {
		return c.Library.CacheDir
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "spoti")
	}
	return filepath.Join(c.LibraryDir(), ".spoti-cache")
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTI_PROXY_URL"); v != "" {
		c.Credentials.YouTube.ProxyURL = v
	}
}

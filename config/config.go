// Package config loads the user configuration: URL aliases, worker
// bounds and external tool settings. Every field is optional; missing
// values fall back to built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultExtension   = "m4a"
	defaultDownloads   = 4
	defaultSBWorkers   = 4
	defaultSBDelayMS   = 200
	defaultTimeoutSecs = 120
)

type Config struct {
	// AlbumArtist overrides the album-artist tag. Empty keeps the
	// uploader reported by the listing tool.
	AlbumArtist string `yaml:"album_artist"`

	FileExtension     string `yaml:"file_extension"`
	ParallelDownloads int    `yaml:"parallel_downloads"`
	SBConcurrency     int    `yaml:"sb_concurrency"`
	SBDelayMS         int    `yaml:"sb_delay_ms"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`

	// YtdlpConfig is passed to the fetch tool via --config-location.
	YtdlpConfig string `yaml:"ytdlp_config"`

	// Aliases maps short names to playlist URLs for the CLI argument.
	Aliases map[string]string `yaml:"aliases"`

	// DirAliases maps working-directory base names to playlist URLs,
	// used when no argument is given.
	DirAliases map[string]string `yaml:"dir_aliases"`

	Storage StorageConfig `yaml:"storage"`
}

type StorageConfig struct {
	// Type of archive mirror: "none", "local" or "gcs".
	Type string `yaml:"type"`

	// Local mirror options
	MirrorDir string `yaml:"mirror_dir"`

	// GCS mirror options
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "playlist-sync", "config.yaml")
}

// Load reads the YAML config at path. A missing file is not an error;
// it yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	config := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.FileExtension == "" {
		c.FileExtension = defaultExtension
	}
	if c.ParallelDownloads < 1 {
		c.ParallelDownloads = defaultDownloads
	}
	if c.SBConcurrency < 1 {
		c.SBConcurrency = defaultSBWorkers
	}
	if c.SBDelayMS < 1 {
		c.SBDelayMS = defaultSBDelayMS
	}
	if c.TimeoutSeconds < 1 {
		c.TimeoutSeconds = defaultTimeoutSecs
	}
	if c.YtdlpConfig == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.YtdlpConfig = filepath.Join(home, ".config", "yt-dlp", "config")
		}
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "none"
	}
}

// Resolve maps a CLI argument to a playlist URL: a configured alias
// wins, otherwise a literal playlist URL is accepted as-is.
func (c *Config) Resolve(arg string) (string, bool) {
	if url, ok := c.Aliases[arg]; ok {
		return url, true
	}
	if strings.Contains(arg, "youtube.com") || strings.Contains(arg, "youtu.be") {
		return arg, true
	}
	return "", false
}

// ResolveDir maps a working-directory base name to a playlist URL.
func (c *Config) ResolveDir(dirname string) (string, bool) {
	url, ok := c.DirAliases[dirname]
	return url, ok
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Config) SBDelay() time.Duration {
	return time.Duration(c.SBDelayMS) * time.Millisecond
}

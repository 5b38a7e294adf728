// Package config provides configuration loading and structs for the Curio server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/curio/internal/adapter"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Dataset DatasetConfig `yaml:"dataset"`
	Encoder EncoderConfig `yaml:"encoder"`
	Search  SearchConfig  `yaml:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the catalog database and indices.
type StorageConfig struct {
	DatabasePath  string `yaml:"database_path"`
	IndexPath     string `yaml:"index_path"`
	MetaIndexPath string `yaml:"meta_index_path"`
}

// DatasetConfig holds the dataset source files and watch settings.
type DatasetConfig struct {
	EmbeddingsPath string `yaml:"embeddings_path"`
	MetadataPath   string `yaml:"metadata_path"`
	// Watch reloads the dataset (and resets the session) when the source files
	// change on disk.
	Watch bool `yaml:"watch"`
}

// EncoderConfig holds ONNX encoder settings for the two CLIP towers.
type EncoderConfig struct {
	TextModelPath  string `yaml:"text_model_path"`
	ImageModelPath string `yaml:"image_model_path"`
	Dimensions     int    `yaml:"dimensions"`
	MaxTokens      int    `yaml:"max_tokens"`
	CacheSize      int    `yaml:"cache_size"`
}

// SearchConfig holds search limits, index backend, and adapter coefficients.
type SearchConfig struct {
	DefaultLimit int            `yaml:"default_limit"`
	MaxLimit     int            `yaml:"max_limit"`
	IndexType    string         `yaml:"index_type"`
	Adapter      adapter.Params `yaml:"adapter"`
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.IndexPath = expandPath(cfg.Storage.IndexPath, configDir)
	cfg.Storage.MetaIndexPath = expandPath(cfg.Storage.MetaIndexPath, configDir)
	cfg.Dataset.EmbeddingsPath = expandPath(cfg.Dataset.EmbeddingsPath, configDir)
	cfg.Dataset.MetadataPath = expandPath(cfg.Dataset.MetadataPath, configDir)
	cfg.Encoder.TextModelPath = expandPath(cfg.Encoder.TextModelPath, configDir)
	cfg.Encoder.ImageModelPath = expandPath(cfg.Encoder.ImageModelPath, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

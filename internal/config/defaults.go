package config

import "github.com/hyperjump/curio/internal/adapter"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/curio/data/db/catalog.db"
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = "/usr/local/var/curio/data/indices/embeddings.idx"
	}
	if cfg.Storage.MetaIndexPath == "" {
		cfg.Storage.MetaIndexPath = "/usr/local/var/curio/data/indices/meta"
	}
	if cfg.Encoder.TextModelPath == "" {
		cfg.Encoder.TextModelPath = "/usr/local/var/curio/data/models/clip-text.onnx"
	}
	if cfg.Encoder.ImageModelPath == "" {
		cfg.Encoder.ImageModelPath = "/usr/local/var/curio/data/models/clip-image.onnx"
	}
	if cfg.Encoder.Dimensions == 0 {
		cfg.Encoder.Dimensions = 512
	}
	if cfg.Encoder.MaxTokens == 0 {
		cfg.Encoder.MaxTokens = 77
	}
	if cfg.Encoder.CacheSize == 0 {
		cfg.Encoder.CacheSize = 10000
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 20
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 1000
	}
	if cfg.Search.IndexType == "" {
		cfg.Search.IndexType = "memory"
	}
	if cfg.Search.Adapter.Lambda == 0 {
		cfg.Search.Adapter.Lambda = adapter.DefaultLambda
	}
	if cfg.Search.Adapter.Bandwidth == 0 {
		cfg.Search.Adapter.Bandwidth = adapter.DefaultBandwidth
	}
	if cfg.Search.Adapter.Clamp == 0 {
		cfg.Search.Adapter.Clamp = adapter.DefaultClamp
	}
}

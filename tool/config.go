package tool

import (
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/moyoez/mosaic/types"
)

var (
	ConfigPath    = "config.yaml" // be aware that it can be changed, default to ./config.yaml
	CurrentConfig types.AppConfig
	DefaultTTL    = 30 * time.Minute
)

func defaultConfig() types.AppConfig {
	return types.AppConfig{
		Title:              "Mosaic",
		Port:               8080,
		Protocol:           "http",
		MaxPhotos:          9,
		MaxFileSize:        2 * 1000000, // decimal MB, not MiB
		AcceptedTypes:      []string{"image/jpeg", "image/png"},
		AcceptedTypesLabel: "PNG and JPEG",
		PreviewTimeout:     30,
		PreviewConcurrency: 0,
		SessionTTL:         30,
		UploadRateLimit:    5,
		MaxRequestBytes:    64 << 20,
	}
}

// DefaultConfig returns a copy of the built-in configuration.
func DefaultConfig() types.AppConfig {
	return defaultConfig()
}

func LoadConfig(path string) (types.AppConfig, error) {
	var configChanged bool
	if path == "" {
		path = ConfigPath
	}
	ConfigPath = path

	cfg := defaultConfig()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if writeErr := writeDefaultConfig(path, cfg); writeErr != nil {
				return cfg, fmt.Errorf("config file not found, and failed to generate default config: %w", writeErr)
			}
			DefaultLogger.Infof("Created new config file at %s", path)
			CurrentConfig = cfg
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if info.IsDir() {
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if normalizeConfig(&cfg) {
		configChanged = true
	}

	if configChanged {
		if writeErr := writeDefaultConfig(path, cfg); writeErr != nil {
			DefaultLogger.Warnf("Failed to update config file: %v", writeErr)
		}
	}

	CurrentConfig = cfg
	return cfg, nil
}

// normalizeConfig replaces out-of-range values with defaults and reports whether anything changed.
func normalizeConfig(cfg *types.AppConfig) bool {
	def := defaultConfig()
	changed := false
	if cfg.Title == "" {
		cfg.Title = def.Title
		changed = true
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		DefaultLogger.Warnf("Invalid port %d in config, using %d", cfg.Port, def.Port)
		cfg.Port = def.Port
		changed = true
	}
	if cfg.Protocol != "http" && cfg.Protocol != "https" {
		DefaultLogger.Warnf("Unknown protocol %q in config, using %s", cfg.Protocol, def.Protocol)
		cfg.Protocol = def.Protocol
		changed = true
	}
	if cfg.MaxPhotos <= 0 {
		cfg.MaxPhotos = def.MaxPhotos
		changed = true
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = def.MaxFileSize
		changed = true
	}
	if len(cfg.AcceptedTypes) == 0 {
		cfg.AcceptedTypes = slices.Clone(def.AcceptedTypes)
		changed = true
	}
	if cfg.AcceptedTypesLabel == "" {
		cfg.AcceptedTypesLabel = def.AcceptedTypesLabel
		changed = true
	}
	if cfg.PreviewTimeout < 0 {
		cfg.PreviewTimeout = 0
		changed = true
	}
	if cfg.PreviewConcurrency < 0 {
		cfg.PreviewConcurrency = 0
		changed = true
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = def.SessionTTL
		changed = true
	}
	if cfg.UploadRateLimit < 0 {
		cfg.UploadRateLimit = 0
		changed = true
	}
	if cfg.MaxRequestBytes <= 0 {
		cfg.MaxRequestBytes = def.MaxRequestBytes
		changed = true
	}
	return changed
}

func writeDefaultConfig(path string, cfg types.AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func GetCurrentConfig() *types.AppConfig {
	return &CurrentConfig
}

// PersistAppConfig updates in-memory AppConfig and writes config.yaml.
func PersistAppConfig(cfg *types.AppConfig) {
	if cfg == nil {
		return
	}
	CurrentConfig = *cfg
	if err := writeDefaultConfig(ConfigPath, CurrentConfig); err != nil {
		DefaultLogger.Warnf("Failed to persist config: %v", err)
	}
}

// SessionTTLDuration returns the configured session lifetime.
func SessionTTLDuration(cfg *types.AppConfig) time.Duration {
	if cfg == nil || cfg.SessionTTL <= 0 {
		return DefaultTTL
	}
	return time.Duration(cfg.SessionTTL) * time.Minute
}

// PreviewTimeoutDuration returns the per-batch decode timeout, 0 for none.
func PreviewTimeoutDuration(cfg *types.AppConfig) time.Duration {
	if cfg == nil || cfg.PreviewTimeout <= 0 {
		return 0
	}
	return time.Duration(cfg.PreviewTimeout) * time.Second
}

package tool

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/confshare/confshare-go/types"
)

var (
	ConfigPath    = "config.yaml" // be aware that it can be changed, default to ./config.yaml
	CurrentConfig types.AppConfig
)

func defaultConfig() types.AppConfig {
	return types.AppConfig{
		Alias:           NameGenerator(),
		Port:            53320,
		Origin:          "http://localhost:53320",
		SharePath:       "/",
		MaxLinkLength:   2000,
		WarningFraction: 0.75,
		MaxQRLength:     1500,
		StatePath:       "state.json",
	}
}

// LoadConfig reads the YAML config at path, creating it with defaults when it
// does not exist yet. Flag overrides are applied by main afterwards.
func LoadConfig(path string) (types.AppConfig, error) {
	if path == "" {
		path = ConfigPath
	}
	ConfigPath = path

	cfg := defaultConfig()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if writeErr := SaveConfig(path, cfg); writeErr != nil {
				return cfg, fmt.Errorf("config file not found, and failed to generate default config: %v", writeErr)
			}
			DefaultLogger.Infof("Created new config file at %s", path)
			CurrentConfig = cfg
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if info.IsDir() {
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %v", err)
	}

	if cfg.Origin == "" {
		cfg.Origin = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	if cfg.SharePath == "" {
		cfg.SharePath = "/"
	}
	if cfg.MaxLinkLength <= 0 {
		cfg.MaxLinkLength = 2000
	}
	if cfg.WarningFraction <= 0 || cfg.WarningFraction >= 1 {
		cfg.WarningFraction = 0.75
	}
	if cfg.MaxQRLength <= 0 {
		cfg.MaxQRLength = 1500
	}
	if cfg.StatePath == "" {
		cfg.StatePath = "state.json"
	}

	CurrentConfig = cfg
	return cfg, nil
}

// SaveConfig writes cfg as YAML to path. The config can hold an API key, so
// the file is not group or world readable.
func SaveConfig(path string, cfg types.AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %v", err)
	}
	return nil
}

func GetCurrentConfig() *types.AppConfig {
	return &CurrentConfig
}

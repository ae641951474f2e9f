package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/pablospe/i3/pkg/layout"
)

// IPCConfig defines the control socket settings.
type IPCConfig struct {
	SocketPath string `toml:"socketPath"`
}

// StorageConfig defines where the layout snapshot database lives.
type StorageConfig struct {
	DBPath string `toml:"dbPath"`
}

// LoggingConfig defines basic logging knobs.
type LoggingConfig struct {
	Level       string `toml:"level"`
	FilePath    string `toml:"filePath"`
	FileMaxSize int    `toml:"fileMaxSizeMB"`
}

// Config aggregates daemon configuration.
type Config struct {
	IPC     IPCConfig          `toml:"ipc"`
	Storage StorageConfig      `toml:"storage"`
	Logging LoggingConfig      `toml:"logging"`
	Bars    []layout.BarConfig `toml:"bar"`
}

// Load reads a TOML config from the provided path.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) validate() error {
	seen := make(map[string]struct{}, len(cfg.Bars))
	for i := range cfg.Bars {
		bar := &cfg.Bars[i]
		if bar.ID == "" {
			bar.ID = fmt.Sprintf("bar-%d", i)
		}
		if _, dup := seen[bar.ID]; dup {
			return fmt.Errorf("duplicate bar id %q", bar.ID)
		}
		seen[bar.ID] = struct{}{}
		applyBarDefaults(bar)
	}
	return nil
}

func applyBarDefaults(bar *layout.BarConfig) {
	if bar.Mode == "" {
		bar.Mode = "dock"
	}
	if bar.Position == "" {
		bar.Position = "top"
	}
	if bar.HiddenState == "" {
		bar.HiddenState = "hide"
	}
	if bar.Modifier == "" {
		bar.Modifier = "Mod4"
	}
}

// Package appconfig loads CLI configuration from a YAML file with
// environment overrides. The storage and blob factories read environment
// variables, so Apply exports the effective settings before they open.
package appconfig

import (
	"os"

	"github.com/spf13/viper"
)

// Config is the full CLI configuration.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Blob    BlobConfig    `mapstructure:"blob"`
}

// StorageConfig selects the snapshot persistence backend.
type StorageConfig struct {
	Driver      string `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// BlobConfig selects the attachment storage backend.
type BlobConfig struct {
	Driver string `mapstructure:"driver"`
	FSRoot string `mapstructure:"fs_root"`
}

// Load reads configuration from path (optional) merged with STABLECORE_*
// environment variables. Missing files fall back to defaults.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite_path", "stablecore.db")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("blob.driver", "fs")
	v.SetDefault("blob.fs_root", "./attachments")

	v.SetEnvPrefix("STABLECORE")
	_ = v.BindEnv("storage.driver", "STABLECORE_STORAGE_DRIVER")
	_ = v.BindEnv("storage.sqlite_path", "STABLECORE_SQLITE_PATH")
	_ = v.BindEnv("storage.postgres_dsn", "STABLECORE_POSTGRES_DSN")
	_ = v.BindEnv("blob.driver", "STABLECORE_BLOB_DRIVER")
	_ = v.BindEnv("blob.fs_root", "STABLECORE_BLOB_FS_ROOT")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				if !os.IsNotExist(err) {
					return Config{}, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Apply exports the effective settings as the environment variables the
// storage and blob factories consume.
func (c Config) Apply() {
	setenv("STABLECORE_STORAGE_DRIVER", c.Storage.Driver)
	setenv("STABLECORE_SQLITE_PATH", c.Storage.SQLitePath)
	setenv("STABLECORE_POSTGRES_DSN", c.Storage.PostgresDSN)
	setenv("STABLECORE_BLOB_DRIVER", c.Blob.Driver)
	setenv("STABLECORE_BLOB_FS_ROOT", c.Blob.FSRoot)
}

func setenv(key, value string) {
	if value != "" {
		_ = os.Setenv(key, value)
	}
}

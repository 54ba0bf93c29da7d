package appconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.SQLitePath != "stablecore.db" {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.Blob.Driver != "fs" || cfg.Blob.FSRoot != "./attachments" {
		t.Fatalf("unexpected blob defaults: %+v", cfg.Blob)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "storage:\n  driver: postgres\n  postgres_dsn: postgres://db/stable\nblob:\n  driver: memory\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("STABLECORE_BLOB_DRIVER", "s3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.PostgresDSN != "postgres://db/stable" {
		t.Fatalf("file values not applied: %+v", cfg.Storage)
	}
	if cfg.Blob.Driver != "s3" {
		t.Fatalf("environment must override the file: %+v", cfg.Blob)
	}
}

func TestApplyExportsNonEmpty(t *testing.T) {
	t.Setenv("STABLECORE_STORAGE_DRIVER", "")
	t.Setenv("STABLECORE_POSTGRES_DSN", "")

	Config{Storage: StorageConfig{Driver: "memory"}}.Apply()
	if got := os.Getenv("STABLECORE_STORAGE_DRIVER"); got != "memory" {
		t.Fatalf("driver not exported: %q", got)
	}
	if got := os.Getenv("STABLECORE_POSTGRES_DSN"); got != "" {
		t.Fatalf("empty values must not be exported: %q", got)
	}
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eugenenazirov/cabinet-calculator/internal/display"
	"github.com/eugenenazirov/cabinet-calculator/internal/geometry"
	"github.com/eugenenazirov/cabinet-calculator/internal/persistence"
)

var envKeys = []string{
	"PORT", "LOG_LEVEL", "LOCALE", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"CABINET_WIDTH", "CABINET_DEPTH", "CABINET_HEIGHT", "AUTOSAVE_INTERVAL", "SNAPSHOT_KEY",
	"STORAGE_BACKEND", "DATA_DIR", "MONGO_URI", "MONGO_DATABASE", "MONGO_COLLECTION",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %s, got %s", defaultPort, cfg.Port)
	}
	if cfg.Container != geometry.DefaultContainer() {
		t.Fatalf("unexpected container: %+v", cfg.Container)
	}
	if cfg.AutosaveInterval != 5*time.Second {
		t.Fatalf("unexpected autosave interval: %s", cfg.AutosaveInterval)
	}
	if cfg.SnapshotKey != persistence.DefaultKey {
		t.Fatalf("unexpected snapshot key: %s", cfg.SnapshotKey)
	}
	if cfg.StorageBackend != BackendMemory {
		t.Fatalf("unexpected backend: %s", cfg.StorageBackend)
	}
	if cfg.Locale != display.Japanese {
		t.Fatalf("unexpected locale: %s", cfg.Locale)
	}
	if cfg.ShutdownGracePeriod != 10*time.Second {
		t.Fatalf("unexpected shutdown grace period: %s", cfg.ShutdownGracePeriod)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("CABINET_WIDTH", "500")
	t.Setenv("AUTOSAVE_INTERVAL", "2s")
	t.Setenv("LOCALE", "en-US")
	t.Setenv("STORAGE_BACKEND", "file")
	t.Setenv("DATA_DIR", "/var/lib/cabinet")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "9000" {
		t.Fatalf("expected overridden port, got %s", cfg.Port)
	}
	if cfg.Container.Width != 500 || cfg.Container.Depth != 690 {
		t.Fatalf("unexpected container: %+v", cfg.Container)
	}
	if cfg.AutosaveInterval != 2*time.Second {
		t.Fatalf("unexpected interval: %s", cfg.AutosaveInterval)
	}
	if cfg.Locale != display.English {
		t.Fatalf("unexpected locale: %s", cfg.Locale)
	}
	if cfg.StorageBackend != BackendFile || cfg.DataDir != "/var/lib/cabinet" {
		t.Fatalf("unexpected storage config: %s %s", cfg.StorageBackend, cfg.DataDir)
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")
	t.Setenv("CABINET_HEIGHT", "1000")

	path := writeConfigFile(t, `
port: "7100"
container:
  height: 1100
  width: 400
autosave_interval: 3s
enable_request_logging: false
rate_limit:
  rps: 0
  burst: 0
storage:
  backend: mongo
  mongo:
    uri: mongodb://localhost:27017
`)

	port := "7200"
	width := 420.0
	cfg, err := Load(&CLIOverrides{ConfigFile: path, Port: &port, ContainerWidth: &width})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "7200" {
		t.Fatalf("expected CLI port, got %s", cfg.Port)
	}
	if cfg.Container.Height != 1100 {
		t.Fatalf("expected YAML height over env, got %g", cfg.Container.Height)
	}
	if cfg.Container.Width != 420 {
		t.Fatalf("expected CLI width, got %g", cfg.Container.Width)
	}
	if cfg.AutosaveInterval != 3*time.Second {
		t.Fatalf("unexpected interval: %s", cfg.AutosaveInterval)
	}
	if cfg.EnableRequestLogging {
		t.Fatalf("expected request logging disabled")
	}
	if cfg.RateLimitRPS != 0 || cfg.RateLimitBurst != 0 {
		t.Fatalf("expected rate limiting disabled, got %g/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if cfg.StorageBackend != BackendMongo || cfg.MongoDatabase != defaultMongoDatabase {
		t.Fatalf("unexpected mongo config: %+v", cfg)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "NegativeDimension", env: map[string]string{"CABINET_DEPTH": "-1"}},
		{name: "ZeroDimension", env: map[string]string{"CABINET_HEIGHT": "0"}},
		{name: "BadNumber", env: map[string]string{"CABINET_WIDTH": "wide"}},
		{name: "BadInterval", env: map[string]string{"AUTOSAVE_INTERVAL": "often"}},
		{name: "NegativeInterval", env: map[string]string{"AUTOSAVE_INTERVAL": "-5s"}},
		{name: "UnknownBackend", env: map[string]string{"STORAGE_BACKEND": "redis"}},
		{name: "MongoWithoutURI", env: map[string]string{"STORAGE_BACKEND": "mongo"}},
		{name: "UnsupportedLocale", env: map[string]string{"LOCALE": "fr"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(nil); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)

	if _, err := Load(&CLIOverrides{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLoadRejectsBadYAMLDuration(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, "write_timeout: soon\n")

	if _, err := Load(&CLIOverrides{ConfigFile: path}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

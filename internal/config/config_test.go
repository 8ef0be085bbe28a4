package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want sqlite", cfg.Database.Type)
	}
	if cfg.Worker.Workers != 5 {
		t.Errorf("Worker.Workers = %d, want 5", cfg.Worker.Workers)
	}
	if cfg.Session.Duration().Hours() != 24 {
		t.Errorf("Session duration = %v, want 24h", cfg.Session.Duration())
	}
}

func TestLoadEnvOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("GITPORTER_SERVER_PORT", "9090")
	t.Setenv("GITPORTER_PROVIDERS_GITHUB_CLIENT_ID", "abc123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Providers.GitHub.ClientID != "abc123" {
		t.Errorf("Providers.GitHub.ClientID = %q, want abc123", cfg.Providers.GitHub.ClientID)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Type: "sqlite", DSN: "./test.db"},
			Worker:   WorkerConfig{Workers: 2, PollIntervalSeconds: 5},
		}
	}

	if err := base().Validate(); err != nil {
		t.Errorf("Validate() on valid config: %v", err)
	}

	cfg := base()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted port 0")
	}

	cfg = base()
	cfg.Database.Type = "oracle"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted unsupported database type")
	}

	// Every type the dialect dialer dials, including aliases, validates.
	for _, dbType := range []string{"postgres", "postgresql", "sqlserver", "mssql"} {
		cfg = base()
		cfg.Database.Type = dbType
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() rejected database type %q: %v", dbType, err)
		}
	}

	cfg = base()
	cfg.Worker.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted zero workers")
	}
}

func TestCallbackURL(t *testing.T) {
	cfg := &Config{Server: ServerConfig{BaseURL: "https://import.example.com/"}}
	got := cfg.CallbackURL("github")
	want := "https://import.example.com/import/github/callback"
	if got != want {
		t.Errorf("CallbackURL() = %q, want %q", got, want)
	}
}

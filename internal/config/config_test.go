// AngelaMos | 2026
// config_test.go

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	unset := func(key string) {
		t.Setenv(key, "")
		os.Unsetenv(key) //nolint:errcheck // restored by t.Setenv cleanup
	}
	for key := range envKeyMap {
		unset(key)
	}
	for alias := range envAliases {
		unset(alias)
	}
}

func TestLoadMissingSecrets(t *testing.T) {
	clearEnv(t)

	_, err := Load("", "")
	if !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret without a database url, got %v", err)
	}

	t.Setenv("DATABASE_URL", "postgres://db.example.com:5432/portal")
	_, err = Load("", "")
	if !errors.Is(err, ErrMissingSecret) || !strings.Contains(err.Error(), "DATABASE_ACCESS_KEY") {
		t.Fatalf("expected missing access key, got %v", err)
	}
}

func TestLoadSupabaseAliases(t *testing.T) {
	clearEnv(t)
	t.Setenv("SUPABASE_URL", "postgres://db.example.com:5432/portal")
	t.Setenv("SUPABASE_KEY", "s3cret")

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Database.AccessKey != "s3cret" {
		t.Fatalf("expected access key from SUPABASE_KEY, got %q", cfg.Database.AccessKey)
	}
	if cfg.Portal.DefaultPageSize != 20 || cfg.RateLimit.AuthRequests != 10 {
		t.Fatalf("expected defaults, got %+v %+v", cfg.Portal, cfg.RateLimit)
	}
}

func TestLoadAliasPrecedence(t *testing.T) {
	const primaryURL = "postgres://u@localhost:5432/db"

	tests := []struct {
		name    string
		env     map[string]string
		wantURL string
		wantKey string
	}{
		{
			"empty alias ignored",
			map[string]string{"DATABASE_URL": primaryURL, "DATABASE_ACCESS_KEY": "k", "SUPABASE_URL": "", "SUPABASE_KEY": ""},
			primaryURL,
			"k",
		},
		{
			"primary wins when both set",
			map[string]string{"DATABASE_URL": primaryURL, "DATABASE_ACCESS_KEY": "k", "SUPABASE_URL": "postgres://other/db", "SUPABASE_KEY": "other"},
			primaryURL,
			"k",
		},
		{
			"alias fills empty primary",
			map[string]string{"DATABASE_URL": "", "DATABASE_ACCESS_KEY": "", "SUPABASE_URL": primaryURL, "SUPABASE_KEY": "k"},
			primaryURL,
			"k",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			cfg, err := Load("", "")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if cfg.Database.URL != tt.wantURL || cfg.Database.AccessKey != tt.wantKey {
				t.Fatalf("expected %q/%q, got %q/%q", tt.wantURL, tt.wantKey, cfg.Database.URL, cfg.Database.AccessKey)
			}
		})
	}
}

func TestLoadEmptyEnvKeepsDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://db.example.com/portal")
	t.Setenv("DATABASE_ACCESS_KEY", "k")
	t.Setenv("PORT", "")

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestLoadLayering(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "config.yaml")
	yamlBody := "server:\n  port: 9000\nportal:\n  max_page_size: 50\n"
	if err := os.WriteFile(yamlPath, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	envPath := filepath.Join(dir, ".env")
	envBody := "DATABASE_URL=postgres://db.example.com/portal\nDATABASE_ACCESS_KEY=k\nPORT=9100\n"
	if err := os.WriteFile(envPath, []byte(envBody), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	cfg, err := Load(yamlPath, envPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Fatalf("expected env to override yaml port, got %d", cfg.Server.Port)
	}
	if cfg.Portal.MaxPageSize != 50 {
		t.Fatalf("expected yaml max page size, got %d", cfg.Portal.MaxPageSize)
	}
	if cfg.JWT.AccessTokenExpire != 15*time.Minute {
		t.Fatalf("expected default access ttl, got %s", cfg.JWT.AccessTokenExpire)
	}
}

func TestLoadMissingFilesIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://db.example.com/portal")
	t.Setenv("DATABASE_ACCESS_KEY", "k")

	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "none.yaml"), filepath.Join(dir, ".env")); err != nil {
		t.Fatalf("expected missing optional files to be ignored, got %v", err)
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			"default user",
			DatabaseConfig{URL: "postgres://db.example.com:5432/portal", AccessKey: "k"},
			"postgres://postgres:k@db.example.com:5432/portal",
		},
		{
			"existing user",
			DatabaseConfig{URL: "postgres://svc@db.example.com/portal?sslmode=require", AccessKey: "k"},
			"postgres://svc:k@db.example.com/portal?sslmode=require",
		},
		{
			"no key",
			DatabaseConfig{URL: "postgres://db.example.com/portal"},
			"postgres://db.example.com/portal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.DSN()
			if err != nil {
				t.Fatalf("dsn: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

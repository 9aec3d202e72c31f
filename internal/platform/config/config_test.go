package config

import (
	"os"
	"testing"
	"time"
)

// clearEnv unsets all LEARN_ environment variables for a clean test.
func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"LEARN_SERVER_PORT",
		"LEARN_SERVER_HOST",
		"LEARN_SERVER_CORS_ORIGINS",
		"LEARN_STORE_DRIVER",
		"LEARN_DATABASE_URL",
		"LEARN_DATABASE_MAX_CONNS",
		"LEARN_DATABASE_MIN_CONNS",
		"LEARN_DATABASE_MIGRATE",
		"LEARN_MONGO_URL",
		"LEARN_MONGO_DATABASE",
		"LEARN_CACHE_ENABLED",
		"LEARN_CACHE_URL",
		"LEARN_CACHE_TOPIC_TTL",
		"LEARN_AUTH_JWT_SECRET",
		"LEARN_AUTH_ACCESS_TOKEN_TTL",
		"LEARN_AUTH_RESEND_COOLDOWN",
		"LEARN_GOOGLE_CLIENT_ID",
		"LEARN_GOOGLE_CLIENT_SECRET",
		"LEARN_GOOGLE_REDIRECT_URL",
		"LEARN_MAIL_SENDGRID_API_KEY",
		"LEARN_MAIL_FROM",
		"LEARN_MAIL_VERIFY_URL",
		"LEARN_SWEEP_ENABLED",
		"LEARN_SWEEP_SCHEDULE",
		"LEARN_SWEEP_GRACE",
		"LEARN_LOG_LEVEL",
		"LEARN_LOG_FORMAT",
		"LEARN_SEED_PATH",
	}
	for _, v := range envVars {
		_ = os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Store.Driver != DriverMemory {
		t.Errorf("Store.Driver = %q, want memory", cfg.Store.Driver)
	}
	if cfg.Database.MaxConns != 25 {
		t.Errorf("Database.MaxConns = %d, want 25", cfg.Database.MaxConns)
	}
	if !cfg.Database.Migrate {
		t.Error("Database.Migrate should default to true")
	}
	if cfg.Mongo.Database != "classroom" {
		t.Errorf("Mongo.Database = %q, want classroom", cfg.Mongo.Database)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled should default to false")
	}
	if cfg.Cache.TopicTTL != 5*time.Minute {
		t.Errorf("Cache.TopicTTL = %v, want 5m", cfg.Cache.TopicTTL)
	}
	if cfg.Auth.AccessTokenTTL != 72*time.Hour {
		t.Errorf("Auth.AccessTokenTTL = %v, want 72h", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Auth.ResendCooldown != 2*time.Minute {
		t.Errorf("Auth.ResendCooldown = %v, want 2m", cfg.Auth.ResendCooldown)
	}
	if cfg.Sweep.Grace != 10*time.Minute {
		t.Errorf("Sweep.Grace = %v, want 10m", cfg.Sweep.Grace)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
		t.Errorf("Server.CORSOrigins = %v, want [*]", cfg.Server.CORSOrigins)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)

	t.Setenv("LEARN_SERVER_PORT", "9090")
	t.Setenv("LEARN_SERVER_CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("LEARN_STORE_DRIVER", "Mongo")
	t.Setenv("LEARN_MONGO_URL", "mongodb://db:27017")
	t.Setenv("LEARN_AUTH_JWT_SECRET", "super-secret")
	t.Setenv("LEARN_AUTH_ACCESS_TOKEN_TTL", "1h")
	t.Setenv("LEARN_CACHE_ENABLED", "1")
	t.Setenv("LEARN_SWEEP_SCHEDULE", "@hourly")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "http://b.test" {
		t.Errorf("Server.CORSOrigins = %v, want two trimmed origins", cfg.Server.CORSOrigins)
	}
	if cfg.Store.Driver != DriverMongo {
		t.Errorf("Store.Driver = %q, want mongo", cfg.Store.Driver)
	}
	if cfg.Mongo.URL != "mongodb://db:27017" {
		t.Errorf("Mongo.URL = %q, want mongodb://db:27017", cfg.Mongo.URL)
	}
	if cfg.Auth.AccessTokenTTL != time.Hour {
		t.Errorf("Auth.AccessTokenTTL = %v, want 1h", cfg.Auth.AccessTokenTTL)
	}
	if !cfg.Cache.Enabled {
		t.Error("Cache.Enabled should be true")
	}
	if cfg.Sweep.Schedule != "@hourly" {
		t.Errorf("Sweep.Schedule = %q, want @hourly", cfg.Sweep.Schedule)
	}
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("LEARN_SWEEP_GRACE", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Sweep.Grace != 10*time.Minute {
		t.Errorf("Sweep.Grace = %v, want fallback 10m", cfg.Sweep.Grace)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{"defaults", nil, false},
		{"unknown-driver", map[string]string{"LEARN_STORE_DRIVER": "sqlite"}, true},
		{"postgres-default-secret", map[string]string{"LEARN_STORE_DRIVER": "postgres"}, true},
		{"postgres-with-secret", map[string]string{"LEARN_STORE_DRIVER": "postgres", "LEARN_AUTH_JWT_SECRET": "s"}, false},
		{"bad-log-level", map[string]string{"LEARN_LOG_LEVEL": "loud"}, true},
		{"bad-log-format", map[string]string{"LEARN_LOG_FORMAT": "xml"}, true},
		{"negative-ttl", map[string]string{"LEARN_AUTH_ACCESS_TOKEN_TTL": "-1h"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGoogleEnabled(t *testing.T) {
	clearEnv(t)

	cfg, _ := Load()
	if cfg.GoogleEnabled() {
		t.Error("GoogleEnabled() should be false without credentials")
	}

	t.Setenv("LEARN_GOOGLE_CLIENT_ID", "id")
	t.Setenv("LEARN_GOOGLE_CLIENT_SECRET", "secret")
	cfg, _ = Load()
	if !cfg.GoogleEnabled() {
		t.Error("GoogleEnabled() should be true with credentials")
	}
}

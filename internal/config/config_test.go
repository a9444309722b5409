package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var keys = []string{
	"APP_ENV", "LOG_LEVEL", "RCWS_ORIGIN", "RCWS_SESSION_COOKIE", "RCWS_TOKEN", "RCWS_USER_ID",
	"VIEW_ADDR", "RECONNECT_BASE_MS", "RECONNECT_MAX_ATTEMPTS", "TYPING_TIMEOUT_MS",
	"NOTIFICATION_CAPACITY", "TOAST_MS", "URGENT_TOAST_MS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Origin != "http://localhost:8000" {
		t.Errorf("Load() Origin = %v, want http://localhost:8000", cfg.Origin)
	}
	if cfg.Env != "dev" {
		t.Errorf("Load() Env = %v, want dev", cfg.Env)
	}
	if cfg.ReconnectBase() != time.Second {
		t.Errorf("Load() ReconnectBase = %v, want 1s", cfg.ReconnectBase())
	}
	if cfg.ReconnectMaxAttempts != 5 {
		t.Errorf("Load() ReconnectMaxAttempts = %v, want 5", cfg.ReconnectMaxAttempts)
	}
	if cfg.TypingTimeout() != 3*time.Second {
		t.Errorf("Load() TypingTimeout = %v, want 3s", cfg.TypingTimeout())
	}
	if cfg.NotificationCapacity != 10 {
		t.Errorf("Load() NotificationCapacity = %v, want 10", cfg.NotificationCapacity)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate(defaults) error = %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("RCWS_ORIGIN", "https://hr.example.com")
	t.Setenv("RCWS_SESSION_COOKIE", "abc")
	t.Setenv("RCWS_USER_ID", "7")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("RECONNECT_BASE_MS", "250")
	t.Setenv("NOTIFICATION_CAPACITY", "20")

	cfg := Load()

	if cfg.Origin != "https://hr.example.com" {
		t.Errorf("Load() Origin = %v, want https://hr.example.com", cfg.Origin)
	}
	if cfg.SessionCookie != "abc" || cfg.UserID != "7" {
		t.Errorf("Load() SessionCookie = %v, UserID = %v", cfg.SessionCookie, cfg.UserID)
	}
	if cfg.Env != "prod" {
		t.Errorf("Load() Env = %v, want prod", cfg.Env)
	}
	if cfg.ReconnectBase() != 250*time.Millisecond {
		t.Errorf("Load() ReconnectBase = %v, want 250ms", cfg.ReconnectBase())
	}
	if cfg.NotificationCapacity != 20 {
		t.Errorf("Load() NotificationCapacity = %v, want 20", cfg.NotificationCapacity)
	}
}

func TestLoad_InvalidInts(t *testing.T) {
	clearEnv(t)
	t.Setenv("TYPING_TIMEOUT_MS", "invalid")
	t.Setenv("RECONNECT_MAX_ATTEMPTS", "-5")

	cfg := Load()

	// Should fall back to defaults
	if cfg.TypingTimeoutMS != 3000 {
		t.Errorf("Load() TypingTimeoutMS = %v, want 3000 (default)", cfg.TypingTimeoutMS)
	}
	if cfg.ReconnectMaxAttempts != 5 {
		t.Errorf("Load() ReconnectMaxAttempts = %v, want 5 (default)", cfg.ReconnectMaxAttempts)
	}
}

func TestLoadFile_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "client.yaml")
	body := "origin: https://file.example.com\nuser_id: \"3\"\ntoast_ms: 2000\nview_addr: 127.0.0.1:9000\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RCWS_USER_ID", "9")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Origin != "https://file.example.com" {
		t.Errorf("LoadFile() Origin = %v", cfg.Origin)
	}
	if cfg.UserID != "9" {
		t.Errorf("LoadFile() UserID = %v, want 9 from env", cfg.UserID)
	}
	if cfg.ToastTTL() != 2*time.Second || cfg.ViewAddr != "127.0.0.1:9000" {
		t.Errorf("LoadFile() ToastTTL = %v, ViewAddr = %v", cfg.ToastTTL(), cfg.ViewAddr)
	}
	if cfg.UrgentToastTTL() != 10*time.Second {
		t.Errorf("LoadFile() UrgentToastTTL = %v, want default 10s", cfg.UrgentToastTTL())
	}
}

func TestLoadFile_Errors(t *testing.T) {
	clearEnv(t)
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile(missing) should fail")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("origin: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile(bad yaml) should fail")
	}
}

func TestValidate(t *testing.T) {
	valid := Defaults()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid defaults", mutate: func(*Config) {}},
		{name: "https origin", mutate: func(c *Config) { c.Origin = "https://hr.example.com" }},
		{name: "ws origin", mutate: func(c *Config) { c.Origin = "ws://localhost:8000" }, wantErr: ErrInvalidOrigin},
		{name: "no host", mutate: func(c *Config) { c.Origin = "http://" }, wantErr: ErrInvalidOrigin},
		{name: "zero attempts", mutate: func(c *Config) { c.ReconnectMaxAttempts = 0 }, wantErr: ErrInvalidValue},
		{name: "zero capacity", mutate: func(c *Config) { c.NotificationCapacity = 0 }, wantErr: ErrInvalidValue},
		{name: "empty view addr", mutate: func(c *Config) { c.ViewAddr = "" }, wantErr: ErrEmptyViewAddr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := Validate(cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsFirstInvalidField(t *testing.T) {
	cfg := Defaults()
	cfg.TypingTimeoutMS = 0
	cfg.UrgentToastMS = -1
	cfg.ReconnectBaseMS = 0
	for i := 0; i < 20; i++ {
		err := Validate(cfg)
		if err == nil || err.Error() != "reconnect_base_ms: "+ErrInvalidValue.Error() {
			t.Fatalf("Validate() error = %v, want reconnect_base_ms first", err)
		}
	}
}

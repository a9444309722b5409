package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env                  string `yaml:"env"`
	LogLevel             string `yaml:"log_level"`
	Origin               string `yaml:"origin"`
	SessionCookie        string `yaml:"session_cookie"`
	Token                string `yaml:"token"`
	UserID               string `yaml:"user_id"`
	ViewAddr             string `yaml:"view_addr"`
	ReconnectBaseMS      int    `yaml:"reconnect_base_ms"`
	ReconnectMaxAttempts int    `yaml:"reconnect_max_attempts"`
	TypingTimeoutMS      int    `yaml:"typing_timeout_ms"`
	NotificationCapacity int    `yaml:"notification_capacity"`
	ToastMS              int    `yaml:"toast_ms"`
	UrgentToastMS        int    `yaml:"urgent_toast_ms"`
}

// Defaults 返回未设置任何来源时的配置。
func Defaults() Config {
	return Config{
		Env:                  "dev",
		LogLevel:             "info",
		Origin:               "http://localhost:8000",
		ViewAddr:             "127.0.0.1:8090",
		ReconnectBaseMS:      1000,
		ReconnectMaxAttempts: 5,
		TypingTimeoutMS:      3000,
		NotificationCapacity: 10,
		ToastMS:              5000,
		UrgentToastMS:        10000,
	}
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// getint 非法或非正的值回退到默认值。
func getint(key string, def int) int {
	n, err := strconv.Atoi(getenv(key, strconv.Itoa(def)))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func Load() Config {
	return apply(Defaults())
}

// LoadFile 先读取 YAML 文件覆盖默认值，再应用环境变量。path 为空时等同于 Load。
func LoadFile(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return apply(cfg), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return apply(cfg), nil
}

func apply(cfg Config) Config {
	cfg.Env = getenv("APP_ENV", cfg.Env)
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.Origin = getenv("RCWS_ORIGIN", cfg.Origin)
	cfg.SessionCookie = getenv("RCWS_SESSION_COOKIE", cfg.SessionCookie)
	cfg.Token = getenv("RCWS_TOKEN", cfg.Token)
	cfg.UserID = getenv("RCWS_USER_ID", cfg.UserID)
	cfg.ViewAddr = getenv("VIEW_ADDR", cfg.ViewAddr)
	cfg.ReconnectBaseMS = getint("RECONNECT_BASE_MS", cfg.ReconnectBaseMS)
	cfg.ReconnectMaxAttempts = getint("RECONNECT_MAX_ATTEMPTS", cfg.ReconnectMaxAttempts)
	cfg.TypingTimeoutMS = getint("TYPING_TIMEOUT_MS", cfg.TypingTimeoutMS)
	cfg.NotificationCapacity = getint("NOTIFICATION_CAPACITY", cfg.NotificationCapacity)
	cfg.ToastMS = getint("TOAST_MS", cfg.ToastMS)
	cfg.UrgentToastMS = getint("URGENT_TOAST_MS", cfg.UrgentToastMS)
	return cfg
}

var (
	ErrInvalidOrigin = errors.New("origin must be an http or https url")
	ErrInvalidValue  = errors.New("value must be positive")
	ErrEmptyViewAddr = errors.New("view address is required")
)

func Validate(cfg Config) error {
	u, err := url.Parse(cfg.Origin)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidOrigin, cfg.Origin)
	}
	for _, f := range []struct {
		name string
		v    int
	}{
		{"reconnect_base_ms", cfg.ReconnectBaseMS},
		{"reconnect_max_attempts", cfg.ReconnectMaxAttempts},
		{"typing_timeout_ms", cfg.TypingTimeoutMS},
		{"notification_capacity", cfg.NotificationCapacity},
		{"toast_ms", cfg.ToastMS},
		{"urgent_toast_ms", cfg.UrgentToastMS},
	} {
		if f.v <= 0 {
			return fmt.Errorf("%s: %w", f.name, ErrInvalidValue)
		}
	}
	if cfg.ViewAddr == "" {
		return ErrEmptyViewAddr
	}
	return nil
}

func (c Config) ReconnectBase() time.Duration {
	return time.Duration(c.ReconnectBaseMS) * time.Millisecond
}

func (c Config) TypingTimeout() time.Duration {
	return time.Duration(c.TypingTimeoutMS) * time.Millisecond
}

func (c Config) ToastTTL() time.Duration {
	return time.Duration(c.ToastMS) * time.Millisecond
}

func (c Config) UrgentToastTTL() time.Duration {
	return time.Duration(c.UrgentToastMS) * time.Millisecond
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config is the CLI configuration loaded from file/env.
type Config struct {
	Addr      string `json:"addr"`
	Namespace string `json:"namespace"`
	Token     string `json:"token"`
	LogLevel  string `json:"logLevel"`
	LogFormat string `json:"logFormat"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Addr:      "127.0.0.1:7777",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads a JSON configuration file over the defaults. If path is
// empty, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first setting a client cannot be built without.
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("server address is required (--addr or LMSTFY_ADDR)")
	case c.Namespace == "":
		return errors.New("namespace is required (--namespace or LMSTFY_NAMESPACE)")
	case c.Token == "":
		return errors.New("token is required (--token or LMSTFY_TOKEN)")
	}
	return nil
}

// ParseLevel maps a level name to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// NewLogger builds the slog logger described by LogLevel and LogFormat.
func (c Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.LogFormat) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q; use text|json", c.LogFormat)
}

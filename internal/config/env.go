package config

import "os"

// FromEnv overlays LMSTFY_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("LMSTFY_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("LMSTFY_NAMESPACE"); v != "" {
		cfg.Namespace = v
	}
	if v := os.Getenv("LMSTFY_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("LMSTFY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LMSTFY_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}

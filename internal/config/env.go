package config

import (
	"os"
	"strconv"
)

// ApplyEnv overlays environment variables on a loaded config. Values come
// either from the real environment or from a .env file loaded by main.
func ApplyEnv(cfg *Config) {
	cfg.App.Port = getEnvInt("PARKWATCH_PORT", cfg.App.Port)
	cfg.App.DataDir = getEnv("PARKWATCH_DATA_DIR", cfg.App.DataDir)
	cfg.Storage.Driver = getEnv("PARKWATCH_STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.DSN = getEnv("PARKWATCH_PG_DSN", cfg.Storage.DSN)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

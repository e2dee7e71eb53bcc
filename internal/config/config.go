package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config captures the queue service configuration derived from environment
// variables. Missing table store or metadata credentials are not fatal: they
// are collected as warnings so the service can come up and surface the
// condition instead of crashing.
type Config struct {
	Port                string
	TableStoreURL       string
	TableStoreKey       string
	MetadataBaseURL     string
	MetadataAPIKey      string
	TableTimeoutSecs    int
	MetadataTimeoutSecs int
	ReadTimeoutSecs     int
	WriteTimeoutSecs    int
	IdleTimeoutSecs     int
	Warnings            []string
}

// Load reads the queue service configuration, applying defaults and
// validation.
func Load() (Config, error) {
	cfg := Config{
		Port:                getEnv("PORT", "8080"),
		TableStoreURL:       os.Getenv("TABLESTORE_URL"),
		TableStoreKey:       os.Getenv("TABLESTORE_KEY"),
		MetadataBaseURL:     os.Getenv("METADATA_BASE_URL"),
		MetadataAPIKey:      os.Getenv("METADATA_API_KEY"),
		TableTimeoutSecs:    getEnvInt("TABLESTORE_TIMEOUT_SECS", 10),
		MetadataTimeoutSecs: getEnvInt("METADATA_TIMEOUT_SECS", 5),
		ReadTimeoutSecs:     getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:    getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:     getEnvInt("SERVER_IDLE_TIMEOUT", 60),
	}

	if cfg.TableStoreURL == "" {
		cfg.Warnings = append(cfg.Warnings, "TABLESTORE_URL is not set; queue persistence is disabled")
	}
	if cfg.TableStoreKey == "" {
		cfg.Warnings = append(cfg.Warnings, "TABLESTORE_KEY is not set; queue persistence is disabled")
	}
	if cfg.MetadataAPIKey == "" {
		cfg.Warnings = append(cfg.Warnings, "METADATA_API_KEY is not set; movie search is disabled")
	}

	if cfg.TableTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("TABLESTORE_TIMEOUT_SECS must be positive")
	}
	if cfg.MetadataTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("METADATA_TIMEOUT_SECS must be positive")
	}

	return cfg, nil
}

// BackendConfig captures the self-hosted table backend configuration.
type BackendConfig struct {
	Port              string
	Key               string
	DBURL             string
	DBMaxConns        int
	DBMinConns        int
	DBMaxIdleSecs     int
	DBMaxLifeSecs     int
	DBConnTimeoutSecs int
	ReadTimeoutSecs   int
	WriteTimeoutSecs  int
	IdleTimeoutSecs   int
}

// LoadBackend reads the backend configuration. DB_URL is required; an empty
// BACKEND_KEY leaves the server open, which is only sensible on localhost.
func LoadBackend() (BackendConfig, error) {
	cfg := BackendConfig{
		Port:              getEnv("BACKEND_PORT", "9090"),
		Key:               os.Getenv("BACKEND_KEY"),
		DBURL:             os.Getenv("DB_URL"),
		DBMaxConns:        getEnvInt("DB_MAX_CONNS", 10),
		DBMinConns:        getEnvInt("DB_MIN_CONNS", 1),
		DBMaxIdleSecs:     getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:     getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs: getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		ReadTimeoutSecs:   getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:  getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:   getEnvInt("SERVER_IDLE_TIMEOUT", 60),
	}

	if cfg.DBURL == "" {
		return BackendConfig{}, fmt.Errorf("DB_URL is required")
	}
	if cfg.DBMaxConns <= 0 {
		return BackendConfig{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return BackendConfig{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return BackendConfig{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

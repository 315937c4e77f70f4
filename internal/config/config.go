package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Identity    IdentityConfig            `json:"identity"`
	ObjectStore ObjectStoreConfig         `json:"object_store"`
	Transcriber TranscriberConfig         `json:"transcriber"`
}

type BasicConfig struct {
	ServerAddress        string `json:"server_address"`
	FileBaseDir          string `json:"file_base_dir"`
	SessionCookie        string `json:"session_cookie"`
	SessionTTLMinutes    int    `json:"session_ttl_minutes"`
	StagedFileTTLMinutes int    `json:"staged_file_ttl_minutes"`
	StagedCleanMinutes   int    `json:"staged_clean_interval_minutes"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// IdentityConfig points at the external identity provider.
type IdentityConfig struct {
	BaseURL        string `json:"base_url"`
	APIKey         string `json:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// ObjectStoreConfig describes the durable bucket and its public hostname.
type ObjectStoreConfig struct {
	Bucket         string `json:"bucket"`
	PublicDomain   string `json:"public_domain"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type TranscriberConfig struct {
	APIKey         string `json:"api_key"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Load reads configuration from the provided path (defaults to config.json).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if len(cfg.Databases) == 0 {
		return nil, fmt.Errorf("at least one database must be configured")
	}
	if cfg.ObjectStore.Bucket == "" {
		return nil, fmt.Errorf("object_store.bucket must be configured")
	}
	if cfg.Identity.APIKey == "" {
		return nil, fmt.Errorf("identity.api_key must be configured")
	}

	if cfg.Identity.BaseURL == "" {
		cfg.Identity.BaseURL = "https://identitytoolkit.googleapis.com/v1"
	}
	if cfg.ObjectStore.PublicDomain == "" {
		cfg.ObjectStore.PublicDomain = "storage.googleapis.com"
	}
	if cfg.BasicConfig.SessionCookie == "" {
		cfg.BasicConfig.SessionCookie = "clipscribe_session"
	}

	// Relative sqlite paths live next to the config file.
	for name, dbCfg := range cfg.Databases {
		if name != "sqlite" && name != "sqlite3" {
			continue
		}
		if dbCfg.DSN == "" || dbCfg.DSN == ":memory:" || filepath.IsAbs(dbCfg.DSN) {
			continue
		}
		dbCfg.DSN = filepath.Join(filepath.Dir(absPath), dbCfg.DSN)
		cfg.Databases[name] = dbCfg
	}

	return &cfg, nil
}

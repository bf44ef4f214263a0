package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		App      AppConfig
		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Google   GoogleConfig
		Backend  BackendConfig
		S3       S3Config
		Sync     SyncConfig
	}

	AppConfig struct {
		Env       string // development | production
		LogLevel  string
		LogFormat string // text | json
		// EncryptionKey protects calendar OAuth tokens at rest (32 bytes, hex).
		EncryptionKey string
	}

	ServerConfig struct {
		Host string
		Port int
	}

	DatabaseConfig struct {
		Host     string
		Port     int
		User     string
		Password string
		DBName   string
		SSLMode  string
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	GoogleConfig struct {
		ClientID     string
		ClientSecret string
	}

	// BackendConfig points at the availability-slot API this service
	// reconciles against.
	BackendConfig struct {
		BaseURL string
		Token   string
	}

	S3Config struct {
		Enabled         bool
		Region          string
		Bucket          string
		AccessKeyID     string
		SecretAccessKey string
		Endpoint        string
	}

	SyncConfig struct {
		// AutoImportTick is the cron spec for the periodic import trigger.
		AutoImportTick string
	}
)

var (
	mu       sync.RWMutex
	instance *Config
)

// Load reads .env (if present) and the environment into the process config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.env", "development")
	v.SetDefault("app.loglevel", "info")
	v.SetDefault("app.logformat", "text")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 7070)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "rehearsalhub")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("s3.enabled", false)
	v.SetDefault("sync.autoimporttick", "@every 1m")

	cfg := &Config{
		App: AppConfig{
			Env:           v.GetString("app.env"),
			LogLevel:      v.GetString("app.loglevel"),
			LogFormat:     v.GetString("app.logformat"),
			EncryptionKey: v.GetString("app.encryptionkey"),
		},
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.dbname"),
			SSLMode:  v.GetString("database.sslmode"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Google: GoogleConfig{
			ClientID:     v.GetString("google.clientid"),
			ClientSecret: v.GetString("google.clientsecret"),
		},
		Backend: BackendConfig{
			BaseURL: v.GetString("backend.baseurl"),
			Token:   v.GetString("backend.token"),
		},
		S3: S3Config{
			Enabled:         v.GetBool("s3.enabled"),
			Region:          v.GetString("s3.region"),
			Bucket:          v.GetString("s3.bucket"),
			AccessKeyID:     v.GetString("s3.accesskeyid"),
			SecretAccessKey: v.GetString("s3.secretaccesskey"),
			Endpoint:        v.GetString("s3.endpoint"),
		},
		Sync: SyncConfig{
			AutoImportTick: v.GetString("sync.autoimporttick"),
		},
	}

	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("config: BACKEND_BASEURL is required")
	}

	mu.Lock()
	instance = cfg
	mu.Unlock()
	return cfg, nil
}

// Get returns the loaded config; panics when Load was never called.
func Get() *Config {
	cfg, ok := GetSafe()
	if !ok {
		panic("config: not initialized")
	}
	return cfg
}

// GetSafe returns the loaded config and whether initialization happened.
func GetSafe() (*Config, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return instance, instance != nil
}

// SetForTesting installs a config without touching the environment.
func SetForTesting(cfg *Config) {
	mu.Lock()
	instance = cfg
	mu.Unlock()
}

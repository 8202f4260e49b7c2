package internal

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	SlotKindFile   = "file"
	SlotKindRedis  = "redis"
	SlotKindMemory = "memory"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"http_server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Security SecurityConfig `mapstructure:"security"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	MaxUploadBytes    int64         `mapstructure:"max_upload_bytes"`
}

// StorageConfig selects the persistence slot the snapshot is mirrored into.
type StorageConfig struct {
	Slot     string      `mapstructure:"slot"`
	SlotName string      `mapstructure:"slot_name"`
	File     FileSlot    `mapstructure:"file"`
	Redis    RedisConfig `mapstructure:"redis"`
}

type FileSlot struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type SecurityConfig struct {
	JWTSecret           string        `mapstructure:"jwt_secret"`
	AccessTokenDuration time.Duration `mapstructure:"access_token_duration"`
	BCryptCost          int           `mapstructure:"bcrypt_cost"`
	DefaultAdmin        AdminSeed     `mapstructure:"default_admin"`
}

// AdminSeed is the account created when the slot is empty on first start.
type AdminSeed struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	FullName string `mapstructure:"full_name"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns the settings used when no config file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			IdleTimeout:       60 * time.Second,
			WriteTimeout:      30 * time.Second,
			MaxUploadBytes:    64 << 20,
		},
		Storage: StorageConfig{
			Slot:     SlotKindFile,
			SlotName: "herasat_db",
			File:     FileSlot{Path: "data/herasat_db.sqlite"},
			Redis:    RedisConfig{Addr: "localhost:6379", DialTimeout: 5 * time.Second},
		},
		Security: SecurityConfig{
			AccessTokenDuration: 15 * time.Minute,
			BCryptCost:          10,
			DefaultAdmin: AdminSeed{
				Username: "admin",
				Password: "admin123",
				FullName: "System Administrator",
			},
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// LoadConfigFromEnv builds a Config from plain environment variables on top of the defaults.
func LoadConfigFromEnv() *Config {
	cfg := DefaultConfig()

	cfg.Server.Port = getEnvAsInt("HTTP_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvAsDuration("HTTP_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvAsDuration("HTTP_WRITE_TIMEOUT", cfg.Server.WriteTimeout)

	cfg.Storage.Slot = getEnv("STORAGE_SLOT", cfg.Storage.Slot)
	cfg.Storage.SlotName = getEnv("STORAGE_SLOT_NAME", cfg.Storage.SlotName)
	cfg.Storage.File.Path = getEnv("STORAGE_FILE_PATH", cfg.Storage.File.Path)
	cfg.Storage.Redis.Addr = getEnv("REDIS_ADDR", cfg.Storage.Redis.Addr)
	cfg.Storage.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Storage.Redis.Password)
	cfg.Storage.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Storage.Redis.DB)

	cfg.Security.JWTSecret = getEnv("JWT_SECRET", cfg.Security.JWTSecret)
	cfg.Security.AccessTokenDuration = getEnvAsDuration("ACCESS_TOKEN_DURATION", cfg.Security.AccessTokenDuration)
	cfg.Security.BCryptCost = getEnvAsInt("BCRYPT_COST", cfg.Security.BCryptCost)
	cfg.Security.DefaultAdmin.Username = getEnv("DEFAULT_ADMIN_USERNAME", cfg.Security.DefaultAdmin.Username)
	cfg.Security.DefaultAdmin.Password = getEnv("DEFAULT_ADMIN_PASSWORD", cfg.Security.DefaultAdmin.Password)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	return cfg
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *StorageConfig) Validate() error {
	if c.SlotName == "" {
		return errors.New("slot_name is required")
	}
	switch c.Slot {
	case SlotKindFile:
		if c.File.Path == "" {
			return errors.New("file.path is required for the file slot")
		}
	case SlotKindRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis slot")
		}
	case SlotKindMemory:
	default:
		return fmt.Errorf("unknown slot kind %q", c.Slot)
	}
	return nil
}

func (c *SecurityConfig) Validate() error {
	if c.BCryptCost < 4 || c.BCryptCost > 31 {
		return fmt.Errorf("bcrypt_cost %d out of range", c.BCryptCost)
	}
	if c.DefaultAdmin.Username == "" || c.DefaultAdmin.Password == "" {
		return errors.New("default_admin username and password are required")
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Level)
	}
	switch c.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Format)
	}
	return nil
}

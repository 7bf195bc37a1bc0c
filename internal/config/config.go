package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the panel configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Auth     AuthConfig     `yaml:"auth" json:"auth"`
	Daemon   DaemonConfig   `yaml:"daemon" json:"daemon"`
	Backups  BackupsConfig  `yaml:"backups" json:"backups"`
	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string    `yaml:"host" json:"host"`
	Port int       `yaml:"port" json:"port"`
	TLS  TLSConfig `yaml:"tls" json:"tls"`
}

// TLSConfig contains TLS/HTTPS settings
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	CertFile string `yaml:"cert_file" json:"cert_file"`
	KeyFile  string `yaml:"key_file" json:"key_file"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path           string `yaml:"path" json:"path"`
	MaxConnections int    `yaml:"max_connections" json:"max_connections"`
}

// AuthConfig contains authentication settings
type AuthConfig struct {
	JWTSecret           string `yaml:"jwt_secret" json:"jwt_secret"`
	AccessTokenDuration string `yaml:"access_token_duration" json:"access_token_duration"`
	BcryptCost          int    `yaml:"bcrypt_cost" json:"bcrypt_cost"`
}

// DaemonConfig contains settings for reaching the backup daemons that run
// alongside the game servers, and for authenticating their callbacks.
type DaemonConfig struct {
	Address       string `yaml:"address" json:"address"`
	CertFile      string `yaml:"cert_file" json:"cert_file"`
	KeyFile       string `yaml:"key_file" json:"key_file"`
	CAFile        string `yaml:"ca_file" json:"ca_file"`
	CallbackToken string `yaml:"callback_token" json:"callback_token"`
	DialTimeout   string `yaml:"dial_timeout" json:"dial_timeout"`
}

// BackupsConfig selects where finished backups live and how download
// links are issued for off-box storage.
type BackupsConfig struct {
	// Adapter is "local" (daemon-managed disk) or "s3" (off-box object storage).
	Adapter       string   `yaml:"adapter" json:"adapter"`
	PresignExpiry string   `yaml:"presign_expiry" json:"presign_expiry"`
	S3            S3Config `yaml:"s3" json:"s3"`
}

// S3Config contains credentials for S3 or S3-compatible object storage
type S3Config struct {
	Bucket    string `yaml:"bucket" json:"bucket"`
	Region    string `yaml:"region" json:"region"`
	AccessKey string `yaml:"access_key" json:"access_key"`
	SecretKey string `yaml:"secret_key" json:"secret_key"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	Prefix    string `yaml:"prefix" json:"prefix"`
}

// StorageConfig contains storage paths
type StorageConfig struct {
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	cfg := Defaults()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		cfg.Auth.JWTSecret = jwtSecret
	}

	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if token := os.Getenv("DAEMON_CALLBACK_TOKEN"); token != "" {
		cfg.Daemon.CallbackToken = token
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Defaults returns a configuration pre-populated with sane defaults.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path:           "./data/warden.db",
			MaxConnections: 25,
		},
		Auth: AuthConfig{
			JWTSecret:           os.Getenv("JWT_SECRET"),
			AccessTokenDuration: "15m",
			BcryptCost:          12,
		},
		Daemon: DaemonConfig{
			DialTimeout: "10s",
		},
		Backups: BackupsConfig{
			Adapter:       "local",
			PresignExpiry: "15m",
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET must be set to a secure value")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "" {
			return fmt.Errorf("TLS cert_file and key_file are required when TLS is enabled")
		}
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	switch c.Backups.Adapter {
	case "local":
	case "s3":
		if c.Backups.S3.Bucket == "" || c.Backups.S3.Region == "" {
			return fmt.Errorf("s3 bucket and region are required for the s3 backup adapter")
		}
	default:
		return fmt.Errorf("invalid backup adapter: %s", c.Backups.Adapter)
	}

	if _, err := time.ParseDuration(c.Auth.AccessTokenDuration); err != nil {
		return fmt.Errorf("invalid access_token_duration: %w", err)
	}

	if _, err := time.ParseDuration(c.Backups.PresignExpiry); err != nil {
		return fmt.Errorf("invalid presign_expiry: %w", err)
	}

	if c.Daemon.DialTimeout != "" {
		if _, err := time.ParseDuration(c.Daemon.DialTimeout); err != nil {
			return fmt.Errorf("invalid daemon dial_timeout: %w", err)
		}
	}

	return nil
}

// AccessTokenTTL returns the parsed access token lifetime.
func (c *Config) AccessTokenTTL() time.Duration {
	d, err := time.ParseDuration(c.Auth.AccessTokenDuration)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// PresignExpiry returns the parsed download link lifetime.
func (c *Config) PresignExpiry() time.Duration {
	d, err := time.ParseDuration(c.Backups.PresignExpiry)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// DaemonDialTimeout returns the parsed daemon dial timeout.
func (c *Config) DaemonDialTimeout() time.Duration {
	d, err := time.ParseDuration(c.Daemon.DialTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// LogFilePath resolves the log file location, defaulting under the data dir.
func (c *Config) LogFilePath() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	return filepath.Join(c.Storage.DataDir, "logs", "panel.log")
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

const (
	defaultJWTTTLHours            = 72
	defaultUploadMaxBytes         = 10 * 1024 * 1024
	defaultOrphanAuditCron        = "@hourly"
	defaultSignedURLMaxTTLSeconds = 3600
	defaultUploadRateWindowMillis = 1000
)

type Config struct {
	Port                   int              `json:"port"`
	JWTSecret              string           `json:"jwt_secret"`
	JWTTTLHours            int              `json:"jwt_ttl_hours"`
	Database               DatabaseConfig   `json:"database"`
	LogConfig              logger.LogConfig `json:"log_config"`
	FileStore              FileStoreConfig  `json:"file_store"`
	CORSOrigins            []string         `json:"cors_origins"`
	UploadMaxBytes         int64            `json:"upload_max_bytes"`
	OrphanAuditCron        string           `json:"orphan_audit_cron"`
	SignedURLMaxTTLSeconds int64            `json:"signed_url_max_ttl_seconds"`
	// UploadRateWindowMillis limits repeated uploads of the same object path;
	// a negative value disables the limit.
	UploadRateWindowMillis int64 `json:"upload_rate_window_ms"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`

	MaxOpenConns int `json:"max_open_conns"`
	MaxIdleConns int `json:"max_idle_conns"`
}

// FileStoreConfig selects a registered object store backend; Data is
// decoded by the backend itself.
type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if c.Database.DSN == "" && (c.Database.Host == "" || c.Database.DBName == "") {
		return fmt.Errorf("database.dsn or database.host/dbname is required")
	}
	if c.Database.DSN == "" && c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.JWTTTLHours == 0 {
		c.JWTTTLHours = defaultJWTTTLHours
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if c.UploadMaxBytes <= 0 {
		c.UploadMaxBytes = defaultUploadMaxBytes
	}
	if strings.TrimSpace(c.OrphanAuditCron) == "" {
		c.OrphanAuditCron = defaultOrphanAuditCron
	}
	if c.SignedURLMaxTTLSeconds <= 0 {
		c.SignedURLMaxTTLSeconds = defaultSignedURLMaxTTLSeconds
	}
	if c.UploadRateWindowMillis == 0 {
		c.UploadRateWindowMillis = defaultUploadRateWindowMillis
	}
	c.FileStore.Type = strings.ToLower(strings.TrimSpace(c.FileStore.Type))
	if c.FileStore.Type == "" {
		c.FileStore.Type = "local"
	}
	switch c.FileStore.Type {
	case "local", "s3", "minio":
	default:
		return fmt.Errorf("file_store.type must be local, s3 or minio")
	}
	if c.FileStore.Data == nil {
		return fmt.Errorf("file_store.data is required")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/simpleheberg/simplebackup/internal/compress"
)

// ErrLoadConfig indicates a failure to read or parse the JSON configuration.
var ErrLoadConfig = errors.New("config load failed")

// ErrValidateConfig indicates that the loaded configuration is invalid.
var ErrValidateConfig = errors.New("configuration validation failed")

const (
	// DefaultConfigFile is the configuration path used when -c is not given.
	DefaultConfigFile = "backup_config.json"

	// DefaultBackupDir is where artifacts land when backup_dir is omitted.
	DefaultBackupDir = "./backups"

	// DefaultRetentionDays keeps a week of artifacts by default.
	DefaultRetentionDays = 7

	// DefaultTimestampFormat produces YYYYMMDD_HHMMSS artifact timestamps.
	DefaultTimestampFormat = "20060102_150405"
)

// Engine identifies a supported database engine. The set is closed:
// dispatch over it is exhaustive and anything else fails validation.
type Engine string

const (
	EngineMySQL      Engine = "mysql"
	EngineMariaDB    Engine = "mariadb"
	EnginePostgreSQL Engine = "postgresql"
)

// Family collapses the engine into the dump-tool family used for artifact
// names: mysql and mariadb share mysqldump, postgresql uses pg_dump.
func (e Engine) Family() string {
	if e == EnginePostgreSQL {
		return "postgresql"
	}
	return "mysql"
}

// Config represents the top-level JSON configuration file.
type Config struct {
	BackupDir       string             `mapstructure:"backup_dir"       validate:"required"`
	RetentionDays   int                `mapstructure:"retention_days"   validate:"gte=0"`
	Compression     compress.Kind      `mapstructure:"compression"`
	Timeout         time.Duration      `mapstructure:"timeout"`
	TimestampFormat string             `mapstructure:"timestamp_format"`
	Websites        []WebsiteTarget    `mapstructure:"websites"         validate:"dive"`
	Databases       []DatabaseTarget   `mapstructure:"databases"        validate:"dive"`
	Vault           VaultConfig        `mapstructure:"vault"`
	Notifications   NotificationConfig `mapstructure:"notifications"`
}

// WebsiteTarget is one website directory eligible for backup.
type WebsiteTarget struct {
	Name    string `mapstructure:"name"    validate:"required_if=Enabled true"`
	Path    string `mapstructure:"path"    validate:"required_if=Enabled true"`
	Enabled bool   `mapstructure:"enabled"`
}

// DatabaseTarget is one database eligible for backup. Credentials come
// either inline (user/password) or from Vault (vault_path).
type DatabaseTarget struct {
	Name      string `mapstructure:"name"       validate:"required_if=Enabled true"`
	Engine    Engine `mapstructure:"type"       validate:"omitempty,oneof=mysql mariadb postgresql"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"       validate:"gte=0,lte=65535"`
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	Database  string `mapstructure:"database"   validate:"required_if=Enabled true"`
	Enabled   bool   `mapstructure:"enabled"`
	VaultPath string `mapstructure:"vault_path"`
	Preflight bool   `mapstructure:"preflight"`
}

// VaultConfig holds connection settings for HashiCorp Vault. Address (or
// VAULT_ADDR in the environment) enables the optional credential lookup.
type VaultConfig struct {
	Address         string `mapstructure:"address"`
	Token           string `mapstructure:"token"`
	AppRoleRoleID   string `mapstructure:"approle_role_id"`
	AppRoleRoleName string `mapstructure:"approle_role_name"`
}

// Enabled reports whether any Vault connection setting is present.
func (v VaultConfig) Enabled() bool {
	return v.Address != "" || v.Token != "" || v.AppRoleRoleID != ""
}

// NotificationConfig configures the optional run-summary email.
type NotificationConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Email        string `mapstructure:"email"         validate:"required_if=Enabled true,omitempty,email"`
	SMTPHost     string `mapstructure:"smtp_host"     validate:"required_if=Enabled true"`
	SMTPPort     int    `mapstructure:"smtp_port"     validate:"gte=0,lte=65535"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
	From         string `mapstructure:"from"`
}

// Load reads the configuration from the given JSON file using Viper,
// applies defaults, and validates the result. Any failure here is fatal
// to the run: no backup work happens on a broken configuration.
func (c *Config) Load(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetDefault("backup_dir", DefaultBackupDir)
	v.SetDefault("retention_days", DefaultRetentionDays)
	v.SetDefault("compression", string(compress.Gzip))
	v.SetDefault("timestamp_format", DefaultTimestampFormat)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: read config %s: %v", ErrLoadConfig, path, err)
	}
	if err := v.Unmarshal(c); err != nil {
		return fmt.Errorf("%w: unmarshal config %s: %v", ErrLoadConfig, path, err)
	}

	c.applyDefaults()
	return c.Validate()
}

// applyDefaults fills zero values that depend on other fields.
func (c *Config) applyDefaults() {
	if c.Compression == "" {
		c.Compression = compress.Gzip
	}
	if c.TimestampFormat == "" {
		c.TimestampFormat = DefaultTimestampFormat
	}
	for i := range c.Databases {
		db := &c.Databases[i]
		if db.Engine == "" {
			db.Engine = EngineMySQL
		}
		// Accept the common alias before the oneof check sees it.
		if db.Engine == "postgres" {
			db.Engine = EnginePostgreSQL
		}
		if db.Host == "" {
			db.Host = "localhost"
		}
		if db.Port == 0 {
			switch db.Engine {
			case EnginePostgreSQL:
				db.Port = 5432
			default:
				db.Port = 3306
			}
		}
	}
	if c.Notifications.SMTPPort == 0 {
		c.Notifications.SMTPPort = 587
	}
}

// Validate checks structural constraints plus the cross-field rules the
// struct tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrValidateConfig, err)
	}
	if !c.Compression.Valid() {
		return fmt.Errorf("%w: unknown compression %q (want gz or zst)",
			ErrValidateConfig, c.Compression)
	}

	// Artifact names embed the target name, so duplicates within a
	// category would collide on disk.
	siteNames := make(map[string]bool, len(c.Websites))
	for _, site := range c.Websites {
		if site.Name == "" {
			continue
		}
		if siteNames[site.Name] {
			return fmt.Errorf("%w: duplicate website name %q", ErrValidateConfig, site.Name)
		}
		siteNames[site.Name] = true
	}
	dbNames := make(map[string]bool, len(c.Databases))
	for _, db := range c.Databases {
		if db.Name != "" {
			if dbNames[db.Name] {
				return fmt.Errorf("%w: duplicate database name %q", ErrValidateConfig, db.Name)
			}
			dbNames[db.Name] = true
		}
		if db.Enabled && db.User == "" && db.VaultPath == "" {
			return fmt.Errorf("%w: database %q needs user or vault_path",
				ErrValidateConfig, db.Name)
		}
		if db.VaultPath != "" && !c.Vault.Enabled() && os.Getenv("VAULT_ADDR") == "" {
			return fmt.Errorf("%w: database %q sets vault_path but vault is not configured",
				ErrValidateConfig, db.Name)
		}
	}
	return nil
}

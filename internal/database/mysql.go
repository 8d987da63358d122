package database

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/simpleheberg/simplebackup/internal/compress"
	"github.com/simpleheberg/simplebackup/internal/config"
	"github.com/simpleheberg/simplebackup/internal/logger"
)

// MySQLOption lets you override default settings on a MySQL.
type MySQLOption func(*MySQL)

// MySQL holds configuration for backing up a MySQL or MariaDB database
// with mysqldump. Both engines share the tool and the "mysql" artifact
// family.
type MySQL struct {
	Name            string
	Username        string
	Password        string
	Database        string
	Host            string
	Port            string
	OutputDir       string
	Compression     compress.Kind
	TimestampFormat string
	Timeout         time.Duration
	Logger          logger.Logger
}

// NewMySQL returns a MySQL configured from cfg and target plus any overrides.
func NewMySQL(cfg config.Config, target config.DatabaseTarget, opts ...MySQLOption) *MySQL {
	m := &MySQL{
		Name:            target.Name,
		Username:        target.User,
		Password:        target.Password,
		Database:        target.Database,
		Host:            target.Host,
		Port:            fmt.Sprintf("%d", target.Port),
		OutputDir:       cfg.BackupDir,
		Compression:     cfg.Compression,
		TimestampFormat: cfg.TimestampFormat,
		Timeout:         cfg.Timeout,
		Logger:          logger.Global(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithMySQLCredentials sets username and password.
func WithMySQLCredentials(user, pass string) MySQLOption {
	return func(m *MySQL) {
		if user != "" {
			m.Username = user
		}
		if pass != "" {
			m.Password = pass
		}
	}
}

// WithMySQLOutputDir overrides where backups are written.
func WithMySQLOutputDir(dir string) MySQLOption {
	return func(m *MySQL) {
		if dir != "" {
			m.OutputDir = dir
		}
	}
}

// WithMySQLLogger overrides the logger.
func WithMySQLLogger(log logger.Logger) MySQLOption {
	return func(m *MySQL) {
		if log != nil {
			m.Logger = log
		}
	}
}

// Backup runs mysqldump and streams its output through the compressor into
// {OutputDir}/{name}_mysql_{timestamp}.sql.{gz|zst}.
func (m *MySQL) Backup(ctx context.Context) (string, error) {
	log := m.Logger
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, m.Timeout, ErrTimeout)
		defer cancel()
	}

	timestamp := time.Now().Format(m.TimestampFormat)
	backupPath := filepath.Join(
		m.OutputDir,
		fmt.Sprintf("%s_mysql_%s.sql.%s", m.Name, timestamp, m.Compression.Ext()),
	)
	if err := os.MkdirAll(m.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", m.OutputDir, err)
	}

	args := []string{
		"--host=" + m.Host,
		"--port=" + m.Port,
		"--user=" + m.Username,
		"--single-transaction",
		"--quick",
		"--lock-tables=false",
		m.Database,
	}
	cmd := exec.CommandContext(ctx, "mysqldump", args...)
	// Pass MYSQL_PWD for non-interactive auth; the password never hits argv.
	cmd.Env = append(os.Environ(), "MYSQL_PWD="+m.Password)

	log.Info("backup started",
		"database", m.Database,
		"engine", m.GetEngine(),
		"path", backupPath,
	)
	startTime := time.Now()
	if err := runDump(ctx, cmd, backupPath, m.Compression); err != nil {
		return "", err
	}
	log.Info("backup completed",
		"database", m.Database,
		"engine", m.GetEngine(),
		"path", backupPath,
		"duration", time.Since(startTime).String(),
	)
	return backupPath, nil
}

// GetName returns the target name used in artifact filenames.
func (m *MySQL) GetName() string { return m.Name }

// GetEngine returns the engine family.
func (m *MySQL) GetEngine() string { return "mysql" }

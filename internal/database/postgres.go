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

// PostgresOption lets you override default settings on a Postgres.
type PostgresOption func(*Postgres)

// Postgres holds configuration for backing up a PostgreSQL database with
// pg_dump.
type Postgres struct {
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

// NewPostgres returns a Postgres configured from cfg and target plus any
// overrides.
func NewPostgres(cfg config.Config, target config.DatabaseTarget, opts ...PostgresOption) *Postgres {
	p := &Postgres{
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
		opt(p)
	}
	return p
}

// WithPostgresCredentials sets username and password.
func WithPostgresCredentials(user, pass string) PostgresOption {
	return func(p *Postgres) {
		if user != "" {
			p.Username = user
		}
		if pass != "" {
			p.Password = pass
		}
	}
}

// WithPostgresOutputDir overrides where backups are written.
func WithPostgresOutputDir(dir string) PostgresOption {
	return func(p *Postgres) {
		if dir != "" {
			p.OutputDir = dir
		}
	}
}

// WithPostgresLogger overrides the logger.
func WithPostgresLogger(log logger.Logger) PostgresOption {
	return func(p *Postgres) {
		if log != nil {
			p.Logger = log
		}
	}
}

// Backup runs pg_dump and streams its output through the compressor into
// {OutputDir}/{name}_postgresql_{timestamp}.sql.{gz|zst}.
func (p *Postgres) Backup(ctx context.Context) (string, error) {
	log := p.Logger
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, p.Timeout, ErrTimeout)
		defer cancel()
	}

	timestamp := time.Now().Format(p.TimestampFormat)
	backupPath := filepath.Join(
		p.OutputDir,
		fmt.Sprintf("%s_postgresql_%s.sql.%s", p.Name, timestamp, p.Compression.Ext()),
	)
	if err := os.MkdirAll(p.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", p.OutputDir, err)
	}

	args := []string{
		"--host=" + p.Host,
		"--port=" + p.Port,
		"--username=" + p.Username,
		"--format=plain",
		"--no-owner",
		"--no-acl",
		p.Database,
	}
	cmd := exec.CommandContext(ctx, "pg_dump", args...)
	// Pass PGPASSWORD for non-interactive auth; the password never hits argv.
	cmd.Env = append(os.Environ(), "PGPASSWORD="+p.Password)

	log.Info("backup started",
		"database", p.Database,
		"engine", p.GetEngine(),
		"path", backupPath,
	)
	startTime := time.Now()
	if err := runDump(ctx, cmd, backupPath, p.Compression); err != nil {
		return "", err
	}
	log.Info("backup completed",
		"database", p.Database,
		"engine", p.GetEngine(),
		"path", backupPath,
		"duration", time.Since(startTime).String(),
	)
	return backupPath, nil
}

// GetName returns the target name used in artifact filenames.
func (p *Postgres) GetName() string { return p.Name }

// GetEngine returns the engine family.
func (p *Postgres) GetEngine() string { return "postgresql" }

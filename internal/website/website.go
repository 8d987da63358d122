package website

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/simpleheberg/simplebackup/internal/compress"
	"github.com/simpleheberg/simplebackup/internal/config"
	"github.com/simpleheberg/simplebackup/internal/logger"
)

// ErrPathNotFound indicates the configured site directory is missing or
// unreadable.
var ErrPathNotFound = errors.New("website path not found")

// Option lets you override default settings on a Site.
type Option func(*Site)

// Site archives one website directory into a compressed tar artifact.
type Site struct {
	Name            string
	Path            string
	OutputDir       string
	Compression     compress.Kind
	TimestampFormat string
	Logger          logger.Logger
}

// NewSite returns a Site configured from cfg plus any overrides.
func NewSite(cfg config.Config, target config.WebsiteTarget, opts ...Option) *Site {
	s := &Site{
		Name:            target.Name,
		Path:            target.Path,
		OutputDir:       cfg.BackupDir,
		Compression:     cfg.Compression,
		TimestampFormat: cfg.TimestampFormat,
		Logger:          logger.Global(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithOutputDir overrides where artifacts are written.
func WithOutputDir(dir string) Option {
	return func(s *Site) {
		if dir != "" {
			s.OutputDir = dir
		}
	}
}

// WithCompression overrides the artifact compression.
func WithCompression(kind compress.Kind) Option {
	return func(s *Site) {
		if kind != "" {
			s.Compression = kind
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Site) {
		if log != nil {
			s.Logger = log
		}
	}
}

// Backup archives the site directory into
// {OutputDir}/{name}_website_{timestamp}.tar.{gz|zst}. The source tree is
// only read, never modified. A partial artifact left by a failed attempt
// is removed.
func (s *Site) Backup(ctx context.Context) (backupPath string, err error) {
	log := s.Logger

	if _, err := os.Stat(s.Path); err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrPathNotFound, s.Path, err)
	}
	if err := os.MkdirAll(s.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory %q: %w", s.OutputDir, err)
	}

	timestamp := time.Now().Format(s.TimestampFormat)
	backupPath = filepath.Join(
		s.OutputDir,
		fmt.Sprintf("%s_website_%s.tar.%s", s.Name, timestamp, s.Compression.Ext()),
	)

	log.Info("backup started",
		"website", s.Name,
		"source", s.Path,
		"path", backupPath,
	)
	startTime := time.Now()

	if err := s.writeArchive(ctx, backupPath); err != nil {
		os.Remove(backupPath)
		log.Error("backup failed",
			"website", s.Name,
			"error", err.Error(),
		)
		return "", err
	}

	log.Info("backup completed",
		"website", s.Name,
		"path", backupPath,
		"duration", time.Since(startTime).String(),
	)
	return backupPath, nil
}

// writeArchive streams the directory tree as a tar through the compressor
// directly into the artifact file. The archive's top-level entry is the
// site name, so extraction reproduces {name}/... regardless of where the
// source lived.
func (s *Site) writeArchive(ctx context.Context, backupPath string) error {
	out, err := os.Create(backupPath)
	if err != nil {
		return fmt.Errorf("create artifact %q: %w", backupPath, err)
	}
	comp, err := compress.NewWriter(s.Compression, out)
	if err != nil {
		out.Close()
		return err
	}
	tw := tar.NewWriter(comp)

	base := filepath.Clean(s.Path)
	walkErr := filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("%w: walk %q: %v", ErrPathNotFound, path, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(base, path)
		if err != nil {
			return fmt.Errorf("relative path for %q: %w", path, err)
		}

		var link string
		if info.Mode()&os.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return fmt.Errorf("read symlink %q: %w", path, err)
			}
		}

		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return fmt.Errorf("tar header for %q: %w", path, err)
		}
		hdr.Name = filepath.ToSlash(filepath.Join(s.Name, rel))
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write tar header %q: %w", hdr.Name, err)
		}

		if !info.Mode().IsRegular() {
			return nil
		}
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("%w: open %q: %v", ErrPathNotFound, path, err)
		}
		defer file.Close()
		if _, err := io.Copy(tw, file); err != nil {
			return fmt.Errorf("archive %q: %w", path, err)
		}
		return nil
	})

	// Close order matters: tar trailer, compressor trailer, then the
	// file. A failed close means a truncated artifact, not a success.
	if err := tw.Close(); walkErr == nil {
		walkErr = err
	}
	if err := comp.Close(); walkErr == nil {
		walkErr = err
	}
	if err := out.Close(); err != nil && walkErr == nil {
		walkErr = fmt.Errorf("flush artifact %q: %w", backupPath, err)
	}
	return walkErr
}

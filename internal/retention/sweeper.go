package retention

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/simpleheberg/simplebackup/internal/logger"
)

// artifactExts are the filename extensions the sweeper treats as backup
// artifacts. Anything else in the backup directory is left alone.
var artifactExts = map[string]bool{
	".gz":  true,
	".sql": true,
	".tar": true,
	".zst": true,
}

// Result aggregates one sweep.
type Result struct {
	Removed    int
	FreedBytes int64
}

// Sweeper deletes artifacts older than the retention window from the
// top level of the backup directory. Subdirectories (such as logs/) are
// never entered.
type Sweeper struct {
	Dir           string
	RetentionDays int
	Logger        logger.Logger

	now func() time.Time
}

// New returns a Sweeper for dir with the given retention window in days.
func New(dir string, retentionDays int, log logger.Logger) *Sweeper {
	if log == nil {
		log = logger.Global()
	}
	return &Sweeper{
		Dir:           dir,
		RetentionDays: retentionDays,
		Logger:        log,
		now:           time.Now,
	}
}

// Sweep removes every artifact whose modification-time age strictly
// exceeds the retention window; an artifact exactly at the boundary is
// retained. Per-file failures are logged and skipped, never fatal.
func (s *Sweeper) Sweep() (Result, error) {
	log := s.Logger
	var res Result

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return res, fmt.Errorf("read backup directory %q: %w", s.Dir, err)
	}

	maxAge := time.Duration(s.RetentionDays) * 24 * time.Hour
	now := s.now()

	log.Info("retention sweep started",
		"dir", s.Dir,
		"retention_days", s.RetentionDays,
	)

	for _, entry := range entries {
		if entry.IsDir() || !artifactExts[filepath.Ext(entry.Name())] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			log.Warn("skipping artifact, stat failed",
				"file", entry.Name(),
				"error", err.Error(),
			)
			continue
		}
		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}

		path := filepath.Join(s.Dir, entry.Name())
		size := info.Size()
		if err := os.Remove(path); err != nil {
			log.Warn("failed to remove old backup",
				"file", entry.Name(),
				"error", err.Error(),
			)
			continue
		}
		res.Removed++
		res.FreedBytes += size
		log.Info("removed old backup",
			"file", entry.Name(),
			"size_bytes", size,
		)
	}

	log.Info("retention sweep completed",
		"removed", res.Removed,
		"freed_bytes", res.FreedBytes,
	)
	return res, nil
}

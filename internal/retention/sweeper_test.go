package retention

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeArtifact creates a file with the given age relative to now.
func writeArtifact(t *testing.T, dir, name string, contents []byte, age time.Duration, now time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, contents, 0o644))
	mtime := now.Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

const day = 24 * time.Hour

func newTestSweeper(dir string, days int, now time.Time) *Sweeper {
	s := New(dir, days, nil)
	s.now = func() time.Time { return now }
	return s
}

func TestSweep_RemovesExpiredArtifacts(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	oldSite := writeArtifact(t, dir, "blog_website_20240101_120000.tar.gz",
		make([]byte, 2048), 8*day, now)
	freshDB := writeArtifact(t, dir, "shop_mysql_20240108_120000.sql.gz",
		make([]byte, 512), 1*day, now)

	res, err := newTestSweeper(dir, 7, now).Sweep()
	require.NoError(t, err)

	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, int64(2048), res.FreedBytes)
	assert.NoFileExists(t, oldSite)
	assert.FileExists(t, freshDB)
}

func TestSweep_BoundaryArtifactIsRetained(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	// Exactly retention_days old: strict inequality keeps it.
	boundary := writeArtifact(t, dir, "blog_website_20240101_120000.tar.gz",
		make([]byte, 100), 7*day, now)

	res, err := newTestSweeper(dir, 7, now).Sweep()
	require.NoError(t, err)

	assert.Zero(t, res.Removed)
	assert.FileExists(t, boundary)
}

func TestSweep_IgnoresLogsAndForeignFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	// Old log file inside the logs subdirectory must survive.
	logDir := filepath.Join(dir, "logs")
	require.NoError(t, os.MkdirAll(logDir, 0o755))
	logFile := writeArtifact(t, logDir, "backup_20240101.log", []byte("..."), 30*day, now)

	// Old file with a non-artifact extension must survive too.
	notes := writeArtifact(t, dir, "README.txt", []byte("keep me"), 30*day, now)

	res, err := newTestSweeper(dir, 7, now).Sweep()
	require.NoError(t, err)

	assert.Zero(t, res.Removed)
	assert.FileExists(t, logFile)
	assert.FileExists(t, notes)
}

func TestSweep_ZeroRetentionDeletesEverythingOlderThanToday(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	old := writeArtifact(t, dir, "a_mysql_20240101_000000.sql.gz", make([]byte, 10), 1*day, now)
	current := writeArtifact(t, dir, "b_mysql_20240109_000000.sql.gz", make([]byte, 10), 0, now)

	res, err := newTestSweeper(dir, 0, now).Sweep()
	require.NoError(t, err)

	assert.Equal(t, 1, res.Removed)
	assert.NoFileExists(t, old)
	assert.FileExists(t, current)
}

func TestSweep_MissingDirectory(t *testing.T) {
	s := newTestSweeper(filepath.Join(t.TempDir(), "nope"), 7, time.Now())
	_, err := s.Sweep()
	assert.Error(t, err)
}

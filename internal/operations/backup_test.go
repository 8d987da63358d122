package operations

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simpleheberg/simplebackup/internal/compress"
	"github.com/simpleheberg/simplebackup/internal/config"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backup_config.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

// buildSite creates a website directory with n files.
func buildSite(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		name := filepath.Join(dir, fmt.Sprintf("page%02d.html", i))
		require.NoError(t, os.WriteFile(name, []byte("<html></html>"), 0o644))
	}
	return dir
}

// installTool drops a fake dump binary into a fresh directory and points
// PATH at it.
func installTool(t *testing.T, name, script string) {
	t.Helper()
	bin := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(bin, name),
		[]byte("#!/bin/sh\n"+script),
		0o755,
	))
	t.Setenv("PATH", bin)
}

// listArtifacts returns the non-directory entries of the backup dir.
func listArtifacts(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestRun_SingleWebsite(t *testing.T) {
	siteDir := buildSite(t, 10)
	backupDir := t.TempDir()

	path := writeConfigFile(t, fmt.Sprintf(`{
		"backup_dir": %q,
		"retention_days": 7,
		"websites": [{"name": "blog", "path": %q, "enabled": true}]
	}`, backupDir, siteDir))

	om, err := NewOperator(path)
	require.NoError(t, err)
	result := om.Run()

	assert.Equal(t, 1, result.Attempted())
	assert.Equal(t, 1, result.Succeeded())
	assert.Zero(t, result.Failed())
	assert.Zero(t, result.Sweep.Removed)

	artifacts := listArtifacts(t, backupDir)
	require.Len(t, artifacts, 1)
	assert.Contains(t, artifacts[0], "blog_website_")

	require.NoError(t, BackupAll(path))
}

func TestRun_FailingDatabaseDoesNotStopOthers(t *testing.T) {
	siteDir := buildSite(t, 3)
	backupDir := t.TempDir()
	t.Setenv("PATH", t.TempDir()) // no mysqldump anywhere

	path := writeConfigFile(t, fmt.Sprintf(`{
		"backup_dir": %q,
		"websites": [{"name": "blog", "path": %q, "enabled": true}],
		"databases": [{"name": "shop", "type": "mysql", "user": "u",
			"password": "p", "database": "shop", "enabled": true}]
	}`, backupDir, siteDir))

	om, err := NewOperator(path)
	require.NoError(t, err)
	result := om.Run()

	assert.Equal(t, 2, result.Attempted())
	assert.Equal(t, 1, result.Succeeded())
	assert.Equal(t, 1, result.Failed())

	// Only the website artifact exists; the failed target produced none.
	artifacts := listArtifacts(t, backupDir)
	require.Len(t, artifacts, 1)
	assert.Contains(t, artifacts[0], "blog_website_")

	assert.ErrorIs(t, BackupAll(path), ErrRunFailed)
}

func TestRun_MissingDumpToolTally(t *testing.T) {
	backupDir := t.TempDir()
	t.Setenv("PATH", t.TempDir())

	path := writeConfigFile(t, fmt.Sprintf(`{
		"backup_dir": %q,
		"databases": [{"name": "shop", "type": "mysql", "user": "u",
			"password": "p", "database": "shop", "enabled": true}]
	}`, backupDir))

	om, err := NewOperator(path)
	require.NoError(t, err)
	result := om.Run()

	assert.Zero(t, result.Succeeded())
	assert.Equal(t, 1, result.Failed())
	assert.Empty(t, listArtifacts(t, backupDir))
}

func TestRun_DisabledTargetsAreNeverInvoked(t *testing.T) {
	backupDir := t.TempDir()
	marker := filepath.Join(t.TempDir(), "invoked")
	installTool(t, "mysqldump", fmt.Sprintf("echo ran > %q\necho dump\n", marker))

	path := writeConfigFile(t, fmt.Sprintf(`{
		"backup_dir": %q,
		"websites": [{"name": "blog", "path": "/nonexistent", "enabled": false}],
		"databases": [{"name": "shop", "type": "mysql", "user": "u",
			"password": "p", "database": "shop", "enabled": false}]
	}`, backupDir))

	om, err := NewOperator(path)
	require.NoError(t, err)
	result := om.Run()

	assert.Zero(t, result.Attempted())
	assert.NoFileExists(t, marker, "disabled database step must not run")
	assert.Empty(t, listArtifacts(t, backupDir))
	require.NoError(t, BackupAll(path))
}

// readGzipArtifact decompresses a .gz artifact for content assertions.
func readGzipArtifact(t *testing.T, path string) string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	r, err := compress.NewReader(compress.Gzip, file)
	require.NoError(t, err)
	defer r.Close()
	contents, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(contents)
}

func TestRun_VaultCredentialsFromEnvironmentOnly(t *testing.T) {
	// A Vault reachable through VAULT_ADDR/VAULT_TOKEN alone, with no
	// vault block in the config file, must still serve vault_path targets.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/secret/data/shop" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": {"data": {"username": "vaultuser", "password": "vaultpass"}}}`)
	}))
	defer srv.Close()
	t.Setenv("VAULT_ADDR", srv.URL)
	t.Setenv("VAULT_TOKEN", "unit-test-token")

	backupDir := t.TempDir()
	installTool(t, "mysqldump", `echo "user:$*"
echo "pwd:$MYSQL_PWD"
`)

	path := writeConfigFile(t, fmt.Sprintf(`{
		"backup_dir": %q,
		"databases": [{"name": "shop", "type": "mysql", "database": "shop",
			"vault_path": "secret/data/shop", "enabled": true}]
	}`, backupDir))

	om, err := NewOperator(path)
	require.NoError(t, err)
	result := om.Run()

	assert.Equal(t, 1, result.Succeeded())
	assert.Zero(t, result.Failed())

	artifacts := listArtifacts(t, backupDir)
	require.Len(t, artifacts, 1)
	dump := readGzipArtifact(t, filepath.Join(backupDir, artifacts[0]))
	assert.Contains(t, dump, "user:--host=localhost")
	assert.Contains(t, dump, "vaultuser")
	assert.Contains(t, dump, "pwd:vaultpass")
}

func TestRun_SweepsExpiredArtifacts(t *testing.T) {
	backupDir := t.TempDir()

	// Pre-populate an artifact 8 days old with retention_days = 7.
	stale := filepath.Join(backupDir, "blog_website_20240101_120000.tar.gz")
	require.NoError(t, os.WriteFile(stale, make([]byte, 4096), 0o644))
	mtime := time.Now().Add(-8 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(stale, mtime, mtime))

	path := writeConfigFile(t, fmt.Sprintf(`{
		"backup_dir": %q,
		"retention_days": 7
	}`, backupDir))

	om, err := NewOperator(path)
	require.NoError(t, err)
	result := om.Run()

	assert.Equal(t, 1, result.Sweep.Removed)
	assert.Equal(t, int64(4096), result.Sweep.FreedBytes)
	assert.NoFileExists(t, stale)
}

func TestRun_BrokenConfigAbortsBeforeAnyWork(t *testing.T) {
	path := writeConfigFile(t, `{"retention_days": -3}`)
	_, err := NewOperator(path)
	assert.ErrorIs(t, err, config.ErrValidateConfig)
	assert.ErrorIs(t, BackupAll(path), config.ErrValidateConfig)
}

func TestRunResult_Summary(t *testing.T) {
	result := RunResult{StartedAt: time.Now()}
	result.Results = append(result.Results,
		TargetResult{Name: "blog", Kind: "website", ArtifactPath: "/b/blog.tar.gz", SizeBytes: 10},
		TargetResult{Name: "shop", Kind: "mysql", Err: fmt.Errorf("dump failed")},
	)
	result.Sweep.Removed = 2
	result.Sweep.FreedBytes = 2048

	summary := result.Summary()
	assert.Contains(t, summary, "OK   blog (website)")
	assert.Contains(t, summary, "FAIL shop (mysql)")
	assert.Contains(t, summary, "removed 2 old backup(s)")
	assert.True(t, strings.Contains(summary, "1 successful, 1 failed"))
}

package database

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/simpleheberg/simplebackup/internal/compress"
)

var (
	// ErrTimeout reports a dump cut short by the configured timeout.
	ErrTimeout = errors.New("operation timed out")
	// ErrToolMissing reports a dump binary absent from PATH.
	ErrToolMissing = errors.New("dump tool not found")
	// ErrDumpFailed reports a dump process that exited non-zero.
	ErrDumpFailed = errors.New("dump failed")
	// ErrAuthFailed reports rejected credentials during preflight.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrConnFailed reports an unreachable server during preflight.
	ErrConnFailed = errors.New("connection failed")
)

// Database is one configured database target.
type Database interface {
	GetName() string
	GetEngine() string
	Backup(ctx context.Context) (backupPath string, err error)
	Ping(ctx context.Context) error
}

// runDump executes the dump command with its stdout streamed through the
// compressor into backupPath, so peak disk usage stays at the compressed
// size. Stderr is captured for the error report; the partial artifact is
// removed on any failure.
func runDump(ctx context.Context, cmd *exec.Cmd, backupPath string, kind compress.Kind) error {
	out, err := os.Create(backupPath)
	if err != nil {
		return fmt.Errorf("create artifact %q: %w", backupPath, err)
	}
	comp, err := compress.NewWriter(kind, out)
	if err != nil {
		out.Close()
		os.Remove(backupPath)
		return err
	}

	var stderr bytes.Buffer
	cmd.Stdout = comp
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	closeErr := comp.Close()
	if err := out.Close(); closeErr == nil {
		closeErr = err
	}

	if runErr != nil {
		os.Remove(backupPath)
		if cause := context.Cause(ctx); cause != nil && errors.Is(cause, ErrTimeout) {
			return fmt.Errorf("%w: %s", ErrTimeout, cmd.Path)
		}
		if errors.Is(runErr, exec.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrToolMissing, cmd.Path)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", ErrDumpFailed, msg)
		}
		return fmt.Errorf("%w: %v", ErrDumpFailed, runErr)
	}
	if closeErr != nil {
		os.Remove(backupPath)
		return fmt.Errorf("flush artifact %q: %w", backupPath, closeErr)
	}
	return nil
}

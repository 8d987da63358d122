package operations

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/simpleheberg/simplebackup/internal/config"
	"github.com/simpleheberg/simplebackup/internal/database"
	"github.com/simpleheberg/simplebackup/internal/notify"
	"github.com/simpleheberg/simplebackup/internal/retention"
	"github.com/simpleheberg/simplebackup/internal/website"
)

// TargetResult is the outcome of one backup step.
type TargetResult struct {
	Name         string
	Kind         string // "website", "mysql" or "postgresql"
	ArtifactPath string
	SizeBytes    int64
	Duration     time.Duration
	Err          error
}

// Success reports whether the step produced its artifact.
func (r TargetResult) Success() bool { return r.Err == nil }

// RunResult aggregates one run: per-target outcomes plus the sweep. It
// lives only for the duration of the invocation.
type RunResult struct {
	StartedAt time.Time
	Results   []TargetResult
	Sweep     retention.Result
}

// Attempted counts the enabled targets whose step ran.
func (r *RunResult) Attempted() int { return len(r.Results) }

// Succeeded counts the steps that produced an artifact.
func (r *RunResult) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Success() {
			n++
		}
	}
	return n
}

// Failed counts the steps that reported an error.
func (r *RunResult) Failed() int { return r.Attempted() - r.Succeeded() }

// Summary renders the human-readable run report used by the notifier.
func (r *RunResult) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Backup run started %s\n\n", r.StartedAt.Format(time.RFC1123))
	for _, res := range r.Results {
		if res.Success() {
			fmt.Fprintf(&b, "OK   %s (%s): %s (%d bytes)\n",
				res.Name, res.Kind, res.ArtifactPath, res.SizeBytes)
		} else {
			fmt.Fprintf(&b, "FAIL %s (%s): %v\n", res.Name, res.Kind, res.Err)
		}
	}
	fmt.Fprintf(&b, "\nCleanup: removed %d old backup(s), freed %d bytes\n",
		r.Sweep.Removed, r.Sweep.FreedBytes)
	fmt.Fprintf(&b, "Total: %d successful, %d failed\n", r.Succeeded(), r.Failed())
	return b.String()
}

// BackupAll runs the whole backup process for the configuration at
// configPath and returns ErrRunFailed when any backup step failed.
func BackupAll(configPath string) error {
	om, err := NewOperator(configPath)
	if err != nil {
		return err
	}
	result := om.Run()
	if failed := result.Failed(); failed > 0 {
		return fmt.Errorf("%w: %d of %d targets failed", ErrRunFailed, failed, result.Attempted())
	}
	return nil
}

// Run walks the fixed sequence websites -> databases -> sweep -> report.
// Every phase runs exactly once; one target's failure never halts the
// remaining targets or the sweep.
func (om *Operator) Run() RunResult {
	result := RunResult{StartedAt: time.Now()}

	om.log.Info("starting backup run",
		"websites", len(om.cfg.Websites),
		"databases", len(om.cfg.Databases),
		"backup_dir", om.cfg.BackupDir,
	)

	om.runWebsites(&result)
	om.runDatabases(&result)
	om.sweep(&result)
	om.report(&result)

	return result
}

// runWebsites archives every enabled website target in config order.
func (om *Operator) runWebsites(result *RunResult) {
	for _, target := range om.cfg.Websites {
		if !target.Enabled {
			om.log.Info("skipping disabled website", "website", target.Name)
			continue
		}

		site := website.NewSite(om.cfg, target, website.WithLogger(om.log))
		start := time.Now()
		path, err := site.Backup(om.ctx)

		res := TargetResult{
			Name:     target.Name,
			Kind:     "website",
			Duration: time.Since(start),
			Err:      err,
		}
		if err == nil {
			res.ArtifactPath = path
			if info, statErr := os.Stat(path); statErr == nil {
				res.SizeBytes = info.Size()
			}
		} else {
			om.log.Error("website backup failed",
				"website", target.Name,
				"error", err.Error(),
			)
		}
		result.Results = append(result.Results, res)
	}
}

// runDatabases dumps every enabled database target in config order.
// Credential resolution, the optional preflight and the dump itself all
// count as that one target's outcome.
func (om *Operator) runDatabases(result *RunResult) {
	for _, target := range om.cfg.Databases {
		if !target.Enabled {
			om.log.Info("skipping disabled database", "database", target.Name)
			continue
		}

		res := TargetResult{Name: target.Name, Kind: target.Engine.Family()}
		start := time.Now()
		res.Err = om.backupDatabase(target, &res)
		res.Duration = time.Since(start)

		if res.Err != nil {
			om.log.Error("database backup failed",
				"database", target.Name,
				"engine", string(target.Engine),
				"error", res.Err.Error(),
			)
		}
		result.Results = append(result.Results, res)
	}
}

func (om *Operator) backupDatabase(target config.DatabaseTarget, res *TargetResult) error {
	db, err := database.NewFromTarget(om.ctx, om.cfg, target, om.vaultClient)
	if err != nil {
		return err
	}
	if target.Preflight {
		if err := db.Ping(om.ctx); err != nil {
			return err
		}
	}
	path, err := db.Backup(om.ctx)
	if err != nil {
		return err
	}
	res.ArtifactPath = path
	if info, statErr := os.Stat(path); statErr == nil {
		res.SizeBytes = info.Size()
	}
	return nil
}

// sweep prunes old artifacts once per run, after all backup steps. Sweep
// trouble is logged but never changes the exit status.
func (om *Operator) sweep(result *RunResult) {
	sweeper := retention.New(om.cfg.BackupDir, om.cfg.RetentionDays, om.log)
	res, err := sweeper.Sweep()
	if err != nil {
		om.log.Error("retention sweep failed", "error", err.Error())
	}
	result.Sweep = res
}

// report emits the final tally and, when configured, mails the summary.
func (om *Operator) report(result *RunResult) {
	om.log.Info("backup run completed",
		"attempted", result.Attempted(),
		"succeeded", result.Succeeded(),
		"failed", result.Failed(),
		"removed", result.Sweep.Removed,
		"freed_bytes", result.Sweep.FreedBytes,
	)

	mailer := notify.New(om.cfg.Notifications, om.log)
	subject := fmt.Sprintf("Backup run: %d successful, %d failed",
		result.Succeeded(), result.Failed())
	if err := mailer.SendSummary(subject, result.Summary()); err != nil {
		om.log.Warn("summary notification failed", "error", err.Error())
	}
}

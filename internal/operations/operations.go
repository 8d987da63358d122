package operations

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/simpleheberg/simplebackup/internal/config"
	"github.com/simpleheberg/simplebackup/internal/logger"
	"github.com/simpleheberg/simplebackup/internal/vault"
)

// ErrRunFailed reports a run in which at least one backup step failed.
// The CLI maps it to a non-zero exit status for the invoking scheduler.
var ErrRunFailed = errors.New("backup run finished with failures")

// Operator drives one end-to-end backup run.
type Operator struct {
	ctx         context.Context
	cfg         config.Config
	vaultClient *vault.Client
	log         logger.Logger
}

// NewOperator loads and validates the configuration at configPath and
// wires up the logger and the optional Vault client. Configuration errors
// are the only fatal class: nothing is backed up on a broken config.
func NewOperator(configPath string) (*Operator, error) {
	var cfg config.Config
	ctx := context.Background()
	if err := cfg.Load(configPath); err != nil {
		return nil, err
	}

	log, err := logger.Init(filepath.Join(cfg.BackupDir, "logs"))
	if err != nil {
		return nil, err
	}

	// Vault trouble is not fatal here: targets that rely on vault_path
	// will fail individually while the rest of the run proceeds. The
	// client is also built from VAULT_ADDR alone, which validation
	// accepts as a complete Vault setup.
	var vaultClient *vault.Client
	if cfg.Vault.Enabled() || os.Getenv("VAULT_ADDR") != "" {
		vaultClient, err = vault.NewClient(ctx,
			vault.WithAddress(cfg.Vault.Address),
			vault.WithToken(cfg.Vault.Token),
			vault.WithAppRole(cfg.Vault.AppRoleRoleID, cfg.Vault.AppRoleRoleName),
		)
		if err != nil {
			log.Warn("vault client unavailable", "error", err.Error())
			vaultClient = nil
		}
	}

	return &Operator{
		ctx:         ctx,
		cfg:         cfg,
		vaultClient: vaultClient,
		log:         log,
	}, nil
}

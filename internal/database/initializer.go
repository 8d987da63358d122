package database

import (
	"context"
	"fmt"

	"github.com/simpleheberg/simplebackup/internal/config"
	"github.com/simpleheberg/simplebackup/internal/vault"
)

// NewFromTarget builds the Database for one configured target, resolving
// Vault credentials first when the target uses vault_path. A lookup
// failure is returned to the caller and counts as that target's failure;
// it never aborts the run.
func NewFromTarget(
	ctx context.Context,
	cfg config.Config,
	target config.DatabaseTarget,
	vaultClient *vault.Client,
) (Database, error) {
	user, pass := target.User, target.Password
	if target.VaultPath != "" {
		if vaultClient == nil {
			return nil, fmt.Errorf("database %q: vault_path set but vault is not configured", target.Name)
		}
		creds, err := vaultClient.LookupCredentials(ctx, target.VaultPath)
		if err != nil {
			return nil, fmt.Errorf("database %q: %w", target.Name, err)
		}
		user, pass = creds.Username, creds.Password
	}

	switch target.Engine {
	case config.EngineMySQL, config.EngineMariaDB:
		return NewMySQL(cfg, target, WithMySQLCredentials(user, pass)), nil
	case config.EnginePostgreSQL:
		return NewPostgres(cfg, target, WithPostgresCredentials(user, pass)), nil
	default:
		// Unreachable for validated configs; the Engine set is closed.
		return nil, fmt.Errorf("database %q: unsupported engine %q", target.Name, target.Engine)
	}
}

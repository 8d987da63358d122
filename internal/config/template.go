package config

import (
	"fmt"
	"os"
)

// defaultTemplate is the configuration written by --init. Example targets
// are disabled so a fresh install never backs up placeholder paths.
const defaultTemplate = `{
    "backup_dir": "./backups",
    "retention_days": 7,
    "compression": "gz",
    "websites": [
        {
            "name": "example_site",
            "path": "/var/www/html/example",
            "enabled": false
        }
    ],
    "databases": [
        {
            "name": "example_db",
            "type": "mysql",
            "host": "localhost",
            "port": 3306,
            "user": "backup_user",
            "password": "your_password",
            "database": "example_database",
            "enabled": false
        }
    ],
    "notifications": {
        "enabled": false,
        "email": "admin@example.com"
    }
}
`

// WriteTemplate creates a default configuration file at path. An existing
// file is left untouched and reported via the created flag.
func WriteTemplate(path string) (created bool, err error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config %q: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(defaultTemplate), 0o600); err != nil {
		return false, fmt.Errorf("write template config %q: %w", path, err)
	}
	return true, nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/simpleheberg/simplebackup/internal/config"
	"github.com/simpleheberg/simplebackup/internal/logger"
	"github.com/simpleheberg/simplebackup/internal/operations"
)

// Version is the release version, overridable at build time with
// -ldflags "-X .../cmd.Version=...".
var Version = "1.0.0"

var (
	configFile string
	initConfig bool

	rootCmd = &cobra.Command{
		Use:     "simplebackup",
		Short:   "Automatic website and database backup tool",
		Long: `simplebackup archives website directories and dumps MySQL/MariaDB and
PostgreSQL databases into compressed artifacts, then prunes artifacts
older than the configured retention window.

Run it without arguments to perform a full backup using the JSON
configuration file; run it with --init to write a template configuration.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if initConfig {
				return runInit(configFile)
			}
			return operations.BackupAll(configFile)
		},
	}
)

// runInit writes the template configuration and never starts a backup.
func runInit(path string) error {
	created, err := config.WriteTemplate(path)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Default configuration created: %s\n", path)
		fmt.Println("Please edit this file with your backup settings.")
	} else {
		fmt.Printf("Configuration already exists: %s\n", path)
	}
	return nil
}

// Execute runs the root command and maps run failures to exit status 1.
func Execute() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		logger.Cleanup()
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().
		StringVarP(&configFile, "config", "c", config.DefaultConfigFile, "path to JSON config file")
	rootCmd.Flags().
		BoolVar(&initConfig, "init", false, "create a default configuration file and exit")
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"billed/internal/config"
	"billed/internal/storage"
)

func newMigrateCommand() *cobra.Command {
	var (
		dbPath string
		status bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the SQLite schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = config.Load().SQLiteDBPath
			}

			if !status {
				if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
					return fmt.Errorf("create db directory: %w", err)
				}
				if err := storage.RunMigrations(dbPath); err != nil {
					return err
				}
			}

			version, dirty, err := storage.SchemaVersion(dbPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: schema version %d", dbPath, version)
			if dirty {
				fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "database path (overrides SQLITE_DB_PATH)")
	cmd.Flags().BoolVar(&status, "status", false, "only print the current schema version")

	return cmd
}

package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	env := &envFile{}

	rootCmd := &cobra.Command{
		Use:     "billed",
		Short:   "Expense bills for employees",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			env.load()
		},
	}
	rootCmd.PersistentFlags().StringVar(&env.path, "env-file", "", "dotenv file to load (default .env)")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newWorkerCommand())
	rootCmd.AddCommand(newMigrateCommand())

	return rootCmd
}

// Package cli implements the chronosctl admin command line tool:
// offline kiosk management, token issuing and ledger audits against the
// server's database file.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DBPath string
}

// NewRootCommand creates the root command for chronosctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "chronosctl",
		Short: "Admin tool for the attendance check-in server",
		Long: `chronosctl operates directly on the server's SQLite database:
register kiosk machines, mint check-in tokens and audit the
attendance hash chain.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "./data/chronos.db", "path to the SQLite database")

	cmd.AddCommand(NewAddMachineCommand(opts))
	cmd.AddCommand(NewIssueTokenCommand(opts))
	cmd.AddCommand(NewVerifyChainCommand(opts))

	return cmd
}

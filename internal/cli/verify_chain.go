package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/ledger"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/store/sqlite"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/db"
)

// NewVerifyChainCommand creates the verify-chain command.
func NewVerifyChainCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-chain",
		Short: "Audit the attendance hash chain",
		Long: `Recomputes every link of the attendance hash chain and reports the
first record that fails verification. A non-zero exit status means the
ledger has been tampered with (or corrupted) at some point.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.Open(cmd.Context(), db.Config{Path: rootOpts.DBPath})
			if err != nil {
				return err
			}
			defer conn.Close()

			writer := db.NewWorker(conn)
			defer writer.Close()

			records, err := sqlite.NewAttendanceStore(conn, writer).ListAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("list records: %w", err)
			}

			chain := make([]ledger.Record, len(records))
			for i, rec := range records {
				chain[i] = ledger.Record{
					UserID:       rec.UserID,
					MachineID:    rec.MachineID,
					Kind:         rec.Kind,
					OccurredAtMs: rec.OccurredAtMs,
					Hash:         rec.Hash,
					PrevHash:     rec.PrevHash,
				}
			}

			report := ledger.VerifyChain(chain)
			if report.OK {
				fmt.Fprintf(cmd.OutOrStdout(), "chain ok: %d records verified\n", report.Checked)
				return nil
			}

			return fmt.Errorf("chain broken at record %d (%d records trusted): %s",
				report.FailedAt, report.Checked, report.Detail)
		},
	}

	return cmd
}

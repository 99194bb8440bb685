package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/service"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/store/sqlite"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/token"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/db"
)

// NewIssueTokenCommand creates the issue-token command. It mints the
// same signed tokens the server's issue endpoint does, so a freshly
// printed QR code can be tested without a running server.
func NewIssueTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var ttlSeconds int

	cmd := &cobra.Command{
		Use:   "issue-token <machine-id>",
		Short: "Mint a signed check-in token for a machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("CHRONOS_TOKEN_SECRET")
			codec, err := token.NewCodec(secret)
			if err != nil {
				return fmt.Errorf("CHRONOS_TOKEN_SECRET: %w", err)
			}

			conn, err := db.Open(cmd.Context(), db.Config{Path: rootOpts.DBPath})
			if err != nil {
				return err
			}
			defer conn.Close()

			writer := db.NewWorker(conn)
			defer writer.Close()

			svc := service.NewTokenService(codec, sqlite.NewMachineStore(conn), sqlite.NewReplayStore(conn, writer))

			encoded, tok, err := svc.IssueForMachine(cmd.Context(), args[0], time.Duration(ttlSeconds)*time.Second)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "machine:   %s\n", tok.MachineID)
			fmt.Fprintf(cmd.OutOrStdout(), "nonce:     %s\n", tok.Nonce)
			fmt.Fprintf(cmd.OutOrStdout(), "expiresIn: %ds\n", tok.ExpiresIn)
			fmt.Fprintf(cmd.OutOrStdout(), "token:     %s\n", encoded)
			return nil
		},
	}

	cmd.Flags().IntVar(&ttlSeconds, "ttl", 60, "token validity in seconds")

	return cmd
}

package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/c1c3ru/ChronosSystem-sub001/internal/db"
)

// NewAddMachineCommand creates the add-machine command.
func NewAddMachineCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		name     string
		location string
	)

	cmd := &cobra.Command{
		Use:   "add-machine <machine-id>",
		Short: "Register (or reactivate) a kiosk machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			machineID := strings.TrimSpace(args[0])
			if machineID == "" {
				return fmt.Errorf("machine id must not be empty")
			}
			if name == "" {
				name = machineID
			}

			conn, err := db.Open(cmd.Context(), db.Config{Path: rootOpts.DBPath})
			if err != nil {
				return err
			}
			defer conn.Close()

			now := time.Now().UTC().UnixMilli()
			_, err = conn.ExecContext(cmd.Context(), `
INSERT INTO machines(machine_id, name, location, is_active, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, 1, ?, ?)
ON CONFLICT(machine_id) DO UPDATE SET
  name = excluded.name,
  location = excluded.location,
  is_active = 1,
  updated_at_ms = excluded.updated_at_ms;
`, machineID, name, location, now, now)
			if err != nil {
				return fmt.Errorf("upsert machine: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "machine %s registered (name=%q location=%q)\n", machineID, name, location)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the machine id)")
	cmd.Flags().StringVar(&location, "location", "", "physical location label")

	return cmd
}

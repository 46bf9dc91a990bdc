package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/rollcall/internal/config"
	"github.com/kozaktomas/rollcall/internal/roster"
	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance <group>",
	Short: "Show the recorded attendance of a group",
	Args:  cobra.ExactArgs(1),
	RunE:  runAttendance,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.Flags().Bool("json", false, "Output as JSON")
}

type attendanceRow struct {
	Name string `json:"name"`
	Time string `json:"time"`
}

func runAttendance(cmd *cobra.Command, args []string) error {
	group := args[0]
	if !roster.ValidGroup(group) {
		return fmt.Errorf("invalid group name %q", group)
	}

	ctx := context.Background()
	b, err := openBackends(ctx, config.Load(), false)
	if err != nil {
		return err
	}
	defer b.Close()

	records, err := b.ledger.Records(ctx, group)
	if err != nil {
		return fmt.Errorf("failed to read attendance: %w", err)
	}

	rows := make([]attendanceRow, len(records))
	for i, rec := range records {
		rows[i] = attendanceRow{Name: rec.Label, Time: rec.Timestamp()}
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(rows)
	}

	if len(rows) == 0 {
		fmt.Printf("No attendance recorded for %s.\n", group)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTIME")
	fmt.Fprintln(w, "----\t----")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\n", r.Name, r.Time)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d present\n", len(rows))
	return nil
}

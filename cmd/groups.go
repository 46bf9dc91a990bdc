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

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List the groups of the roster",
	RunE:  runGroups,
}

func init() {
	rootCmd.AddCommand(groupsCmd)
	groupsCmd.Flags().Bool("json", false, "Output as JSON")
}

type groupSummary struct {
	Name       string `json:"name"`
	References int    `json:"references"`
}

func runGroups(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	store := roster.NewDirStore(cfg.Roster.Dir)
	ctx := context.Background()

	groups, err := store.Groups(ctx)
	if err != nil {
		return fmt.Errorf("failed to list groups: %w", err)
	}

	summaries := make([]groupSummary, 0, len(groups))
	for _, g := range groups {
		images, err := store.ListImages(ctx, g)
		if err != nil {
			return fmt.Errorf("failed to read group %s: %w", g, err)
		}
		summaries = append(summaries, groupSummary{Name: g, References: len(images)})
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(summaries)
	}

	if len(summaries) == 0 {
		fmt.Printf("No groups found in %s.\n", cfg.Roster.Dir)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tREFERENCES")
	fmt.Fprintln(w, "-----\t----------")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%d\n", s.Name, s.References)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d groups\n", len(summaries))
	return nil
}

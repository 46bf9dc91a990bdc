package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/rollcall/internal/config"
	"github.com/kozaktomas/rollcall/internal/registry"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var registryCmd = &cobra.Command{
	Use:   "registry <group>",
	Short: "Build the reference registry of a group",
	Long: `Build the reference registry of a group and report which people were
enrolled. Images without a usable face are skipped. With EMBEDDING_CACHE=true
the embeddings are stored in PostgreSQL and reused by later sessions.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegistry,
}

func init() {
	rootCmd.AddCommand(registryCmd)
	registryCmd.Flags().Bool("json", false, "Output as JSON instead of progress bar")
}

type registryResult struct {
	Group  string   `json:"group"`
	Model  string   `json:"model"`
	Labels []string `json:"labels"`
}

func runRegistry(cmd *cobra.Command, args []string) error {
	group := args[0]
	jsonOutput := mustGetBool(cmd, "json")
	ctx := context.Background()

	b, err := openBackends(ctx, config.Load(), true)
	if err != nil {
		return err
	}
	defer b.Close()

	var bar *progressbar.ProgressBar
	builder := b.registryBuilder(func(done, total int) {
		if jsonOutput {
			return
		}
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Embedding references"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("images"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionFullWidth(),
			)
		}
		_ = bar.Set(done)
	})

	reg, err := builder.Build(ctx, group)
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
	if err != nil && !errors.Is(err, registry.ErrRegistryEmpty) {
		return fmt.Errorf("failed to build registry: %w", err)
	}

	result := registryResult{Group: group, Model: b.vision.Model(), Labels: reg.Labels()}
	if jsonOutput {
		return outputJSON(result)
	}

	if len(reg) == 0 {
		fmt.Printf("No usable reference images for %s; every face will be Unknown.\n", group)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tLABEL")
	fmt.Fprintln(w, "-\t-----")
	for i, label := range result.Labels {
		fmt.Fprintf(w, "%d\t%s\n", i+1, label)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d references (%s)\n", len(reg), result.Model)
	return nil
}

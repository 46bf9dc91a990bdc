package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/kozaktomas/rollcall/internal/config"
	"github.com/kozaktomas/rollcall/internal/roster"
	"github.com/spf13/cobra"
)

var trackCmd = &cobra.Command{
	Use:   "track <group>",
	Short: "Run a recognition session without the web server",
	Long: `Run a recognition session for a group on the configured camera and
record attendance until the camera ends or Ctrl+C is pressed.

Examples:
  rollcall track CS101
  CAMERA_DRIVER=ffmpeg CAMERA_INPUT=lecture.mp4 rollcall track CS101 --out frames/
  CAMERA_DRIVER=dir CAMERA_INPUT=captured/ rollcall track CS101 --max-frames 100`,
	Args: cobra.ExactArgs(1),
	RunE: runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)
	trackCmd.Flags().String("out", "", "Directory to write annotated frames to")
	trackCmd.Flags().Int("max-frames", 0, "Stop after this many frames (0 = until the camera ends)")
	trackCmd.Flags().Float64("threshold", 0, "Override the match threshold")
}

func runTrack(cmd *cobra.Command, args []string) error {
	group := args[0]
	if !roster.ValidGroup(group) {
		return fmt.Errorf("invalid group name %q", group)
	}
	outDir := mustGetString(cmd, "out")
	maxFrames := mustGetInt(cmd, "max-frames")

	cfg := config.Load()
	if threshold := mustGetFloat64(cmd, "threshold"); threshold > 0 {
		cfg.Recognition.Threshold = threshold
	}

	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer b.Close()

	events, unsubscribe := b.ledger.Subscribe(group)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for rec := range events {
			fmt.Printf("%s  %s present\n", rec.Timestamp(), rec.Label)
		}
	}()

	p, err := b.newSession(ctx, group)
	if err != nil {
		unsubscribe()
		<-done
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer p.Close()

	fmt.Printf("Tracking %s (session %s), press Ctrl+C to stop\n", group, p.ID)
	for frame := range p.Frames(ctx) {
		if outDir != "" {
			path := filepath.Join(outDir, fmt.Sprintf("frame_%06d.jpg", frame.Index))
			if err := os.WriteFile(path, frame.JPEG, 0o644); err != nil {
				fmt.Printf("Warning: failed to write %s: %v\n", path, err)
			}
		}
		if maxFrames > 0 && frame.Index+1 >= maxFrames {
			break
		}
	}
	unsubscribe()
	<-done

	stats := p.Stats()
	fmt.Printf("\nFrames: %d, faces: %d, identified: %d, new attendance: %d\n",
		stats.Frames, stats.Faces, stats.Identifications, stats.AttendanceWritten)
	if stats.PersistenceErrors > 0 {
		fmt.Printf("Warning: %d attendance writes failed\n", stats.PersistenceErrors)
	}
	if err := p.Err(); err != nil {
		return fmt.Errorf("session ended: %w", err)
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vigil-watch/vigil/internal/app"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List past watch sessions",
	Run:   runSessions,
}

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session and its kept frames",
	Args:  cobra.ExactArgs(1),
	Run:   runShow,
}

func init() {
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Maximum sessions to list (0 = all)")
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(showCmd)
}

func runSessions(cmd *cobra.Command, args []string) {
	cfg := app.DefaultConfig()
	cfg.StorageRoot = storageRoot

	orch, cleanup, err := openOrchestrator(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	sessions, err := orch.ListSessions(context.Background(), sessionsLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing sessions: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tSCOPE\tKEPT\tDROPPED\tBYTES\tERROR")
	for _, s := range sessions {
		fmt.Fprintf(w, "%.8s\t%s\t%s\t%d\t%d\t%d\t%.40s\n",
			s.ID,
			s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			s.Scope,
			s.FramesKept,
			s.FramesDropped,
			s.TotalBytes,
			s.Error,
		)
	}
	w.Flush()
}

func runShow(cmd *cobra.Command, args []string) {
	cfg := app.DefaultConfig()
	cfg.StorageRoot = storageRoot

	orch, cleanup, err := openOrchestrator(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx := context.Background()
	sess, err := orch.GetSession(ctx, args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("session %s\n", sess.ID)
	fmt.Printf("  scope:     %s\n", sess.Scope)
	fmt.Printf("  started:   %s\n", sess.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("  kept:      %d frames (%d dropped)\n", sess.FramesKept, sess.FramesDropped)
	fmt.Printf("  bytes:     %d\n", sess.TotalBytes)
	fmt.Printf("  output:    %s\n", sess.OutputDir)
	if sess.SheetPath != "" {
		fmt.Printf("  sheet:     %s\n", sess.SheetPath)
	}
	if sess.Error != "" {
		fmt.Printf("  error:     %s\n", sess.Error)
	}

	frames, err := orch.ListSessionFrames(ctx, sess.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing frames: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "SEQ\tCAPTURED\tCHANGED\tBYTES\tFILE")
	for _, f := range frames {
		fmt.Fprintf(w, "%d\t%s\t%.1f%%\t%d\t%s\n",
			f.Seq,
			f.CapturedAt.Local().Format("15:04:05.000"),
			f.ChangedFraction*100,
			f.Bytes,
			f.Path,
		)
	}
	w.Flush()
}

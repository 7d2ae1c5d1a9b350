package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vigil-watch/vigil/internal/app"
	"github.com/vigil-watch/vigil/internal/retention"
)

var (
	cleanMaxAge time.Duration
	cleanDryRun bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove session directories older than the retention window",
	Run:   runClean,
}

func init() {
	cleanCmd.Flags().DurationVar(&cleanMaxAge, "max-age", 7*24*time.Hour, "Remove sessions older than this")
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "Report what would be removed without touching anything")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) {
	cfg := app.DefaultConfig()
	cfg.StorageRoot = storageRoot

	orch, cleanup, err := openOrchestrator(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	report, err := orch.CleanSessions(context.Background(), retention.Config{
		MaxAge: cleanMaxAge,
		DryRun: cleanDryRun,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if cleanDryRun {
		fmt.Printf("would remove %d session directories, freeing %d bytes\n",
			report.RemovedDirs, report.FreedBytes)
		return
	}
	if report.RemovedDirs == 0 {
		fmt.Println("Storage is clean. No sessions past the retention window.")
	} else {
		fmt.Printf("removed %d session directories, freed %d bytes\n",
			report.RemovedDirs, report.FreedBytes)
	}
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "Budget-Bounded Visual Change Watcher",
	Long:  `vigil watches a screen, window, region or web page for a bounded time, keeps frames under configurable resource caps, and assembles a contact sheet for quick review.`,
}

var storageRoot string

func init() {
	rootCmd.PersistentFlags().StringVar(&storageRoot, "storage-root", "~/.local/share/vigil", "Base directory for session output and the registry database")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vigil-watch/vigil/internal/app"
	"github.com/vigil-watch/vigil/internal/server"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP + WebSocket API server",
	Run:   runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", ":8080", "HTTP listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := app.DefaultConfig()
	cfg.StorageRoot = storageRoot

	srv, err := server.NewServer(server.Config{
		ListenAddr: listenAddr,
		AppConfig:  cfg,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer srv.Close()

	fmt.Printf("vigil API listening on %s\n", listenAddr)
	if err := srv.HTTPServer().ListenAndServe(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

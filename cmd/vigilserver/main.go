// Command vigilserver runs the Vigil HTTP + WebSocket API on its own,
// without the CLI wrapper.
// Usage: go run ./cmd/vigilserver [addr]
// Default addr: :8080
package main

import (
	"log"
	"os"

	"github.com/vigil-watch/vigil/internal/capture"
	"github.com/vigil-watch/vigil/internal/server"
)

func main() {
	capture.RegisterDefaultBackends()

	addr := ":8080"
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}

	srv, err := server.NewServer(server.Config{ListenAddr: addr})
	if err != nil {
		log.Fatalf("Server setup error: %v", err)
	}
	defer srv.Close()

	log.Printf("vigil API listening on %s", addr)
	if err := srv.HTTPServer().ListenAndServe(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

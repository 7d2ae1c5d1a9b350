package server

import (
	"github.com/vigil-watch/vigil/internal/app"
	"github.com/vigil-watch/vigil/internal/logging"
)

type Config struct {
	// ListenAddr is the HTTP listen address for the API server (the CLI
	// uses the orchestrator in-process and does not require the network).
	ListenAddr string

	// AppConfig is the shared application configuration. Nil means
	// app.DefaultConfig().
	AppConfig *app.Config

	// Logger receives request and handler logs. Nil means a stdout logger.
	Logger logging.Logger
}

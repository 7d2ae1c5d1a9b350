package cli

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/vigil-watch/vigil/internal/app"
	"github.com/vigil-watch/vigil/internal/logging"
	"github.com/vigil-watch/vigil/internal/registry"
)

// openOrchestrator builds an orchestrator over the storage root for
// in-process use. The returned cleanup closes the registry database.
func openOrchestrator(cfg *app.Config) (*app.Orchestrator, func(), error) {
	root, err := app.ExpandPath(cfg.StorageRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("expanding storage root: %w", err)
	}
	cfg.StorageRoot = root
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating storage root: %w", err)
	}

	logger := logging.NewStdoutLogger("vigil")

	db, err := sql.Open("sqlite", filepath.Join(root, "vigil.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening registry database: %w", err)
	}
	reg, err := registry.NewRegistry(db, root, logger)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("creating registry: %w", err)
	}

	orch := app.NewOrchestrator(cfg, reg, logger)
	cleanup := func() {
		orch.Close()
		db.Close()
	}
	return orch, cleanup, nil
}

package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/verdantlabs/espalier"
	"github.com/verdantlabs/espalier/internal/adapters"
	redisadapter "github.com/verdantlabs/espalier/internal/adapters/redis"
	"github.com/verdantlabs/espalier/internal/compiler"
	"github.com/verdantlabs/espalier/internal/logging"
	"github.com/verdantlabs/espalier/pkg/ports"
)

// createLogger configures the application logger.
// In debug mode, it writes to Stderr (to separate from Stdout flow UI).
func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// loadDefinition parses the wizard definition referenced by the --file flag.
func loadDefinition(cmd *cobra.Command, args []string) (*espalier.Definition, error) {
	path, _ := cmd.Flags().GetString("file")
	if !cmd.Flags().Changed("file") && len(args) > 0 {
		path = args[0]
	}
	def, err := compiler.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load definition %q: %w", path, err)
	}
	return def, nil
}

// selectStore builds the draft store from the --store and --redis flags.
// An empty redis address means the local file store.
func selectStore(storeDir, redisAddr string) ports.DraftStore {
	if redisAddr != "" {
		return redisadapter.New(redisAddr, "", 0)
	}
	if storeDir != "" {
		storeDir = filepath.Join(storeDir, ".espalier", "drafts")
	}
	return adapters.NewFileStore(storeDir)
}

package main

import (
	"fmt"
	"os"

	"github.com/abelbrown/sitrep/internal/audit"
	"github.com/abelbrown/sitrep/internal/config"
	"github.com/abelbrown/sitrep/internal/logging"
	"github.com/abelbrown/sitrep/internal/store"
)

// app bundles the collaborators every subcommand needs.
type app struct {
	cfg   config.Config
	store *store.Store
	trail *audit.Trail
}

// openApp loads config, points logging at stderr, and opens the store
// and audit trail. Callers must call close when done.
func openApp() *app {
	cfg, err := config.Load()
	if err != nil {
		fatal("load config: %v", err)
	}
	logging.InitWriter(os.Stderr, cfg.Logging.Level)

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		fatal("open store: %v", err)
	}
	trail, err := audit.NewTrail(st.DB())
	if err != nil {
		st.Close()
		fatal("open audit trail: %v", err)
	}
	return &app{cfg: cfg, store: st, trail: trail}
}

func (a *app) close() {
	a.store.Close()
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "sitrep: "+format+"\n", args...)
	os.Exit(1)
}

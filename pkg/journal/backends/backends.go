// Package backends opens the journal selected by configuration.
package backends

import (
	"context"
	"fmt"

	"github.com/rhuss/cuckoo/pkg/config"
	"github.com/rhuss/cuckoo/pkg/debug"
	"github.com/rhuss/cuckoo/pkg/journal"
	"github.com/rhuss/cuckoo/pkg/journal/memory"
	"github.com/rhuss/cuckoo/pkg/journal/postgres"
)

// Open creates the journal described by cfg. It returns a nil Journal when
// journaling is disabled (type "none").
func Open(ctx context.Context, cfg config.JournalConfig) (journal.Journal, error) {
	debug.Log(debug.Journal, "opening journal", "type", cfg.Type)

	switch cfg.Type {
	case "memory", "":
		return memory.New(cfg.MaxSize), nil
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("opening postgres journal: %w", err)
		}
		return store, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.Type)
	}
}

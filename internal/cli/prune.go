package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/rankprep/internal/storage"
)

type pruneJSON struct {
	DryRun    bool   `json:"dry_run"`
	OlderThan string `json:"older_than"`
	Cutoff    string `json:"cutoff"`
	Runs      int64  `json:"runs"`
}

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	retention, err := parseDuration(c.OlderThan)
	if err != nil {
		return err
	}

	store := c.store
	if store == nil {
		cfg, err := loadConfig(c.globals, nil)
		if err != nil {
			return err
		}
		s, db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		defer s.Close()
		store = s
	}

	return c.prune(context.Background(), store, retention)
}

func (c *PruneCommand) prune(ctx context.Context, store storage.Store, retention time.Duration) error {
	cutoff := time.Now().Add(-retention)
	jsonOut := c.globals != nil && c.globals.JSON

	stale, err := store.ListRuns(ctx, storage.RunQuery{Before: cutoff})
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	out := pruneJSON{
		DryRun:    c.DryRun,
		OlderThan: c.OlderThan,
		Cutoff:    cutoff.UTC().Format(time.RFC3339),
		Runs:      int64(len(stale)),
	}

	if c.DryRun {
		if jsonOut {
			return printJSON(out)
		}
		fmt.Printf("[DRY RUN] Would prune %d runs older than %s.\n", out.Runs, formatDurationHuman(retention))
		for _, r := range stale {
			fmt.Printf("  %s  %s  started %s\n", shortID(r.ID), r.Vcid, r.StartedAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	}

	if len(stale) == 0 {
		if jsonOut {
			return printJSON(out)
		}
		fmt.Printf("Nothing to prune: no runs older than %s.\n", formatDurationHuman(retention))
		return nil
	}

	if !c.Force && !jsonOut {
		prompt := fmt.Sprintf("Delete %d runs older than %s with their sessions and bookings. Proceed? [y/N] ",
			len(stale), formatDurationHuman(retention))
		if !confirm(c.stdin, prompt) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	n, err := store.PruneRuns(ctx, cutoff)
	if err != nil {
		return err
	}
	out.Runs = n

	if jsonOut {
		return printJSON(out)
	}
	fmt.Printf("Pruned %d runs older than %s.\n", n, formatDurationHuman(retention))
	return nil
}

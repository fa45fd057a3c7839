package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/runnerr0/rankprep/internal/config"
	"github.com/runnerr0/rankprep/internal/ingest"
	"github.com/runnerr0/rankprep/internal/storage"
	"github.com/runnerr0/rankprep/internal/views"
)

const maxHotelsShown = 5

type sessionsJSON struct {
	Run      views.Run       `json:"run"`
	Sessions []views.Session `json:"sessions"`
}

// Execute implements the go-flags Commander interface for SessionsCommand.
func (c *SessionsCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals, nil)
	if err != nil {
		return err
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	return c.executeWithStore(context.Background(), cfg, store)
}

// executeWithStore lists sessions from a provided store (for testing).
func (c *SessionsCommand) executeWithStore(ctx context.Context, cfg *config.Config, store storage.Store) error {
	if c.Limit < 1 {
		return fmt.Errorf("--limit must be at least 1, got %d", c.Limit)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	run, err := resolveRun(ctx, store, c.Run)
	if err != nil {
		return err
	}

	list, err := store.ListSessions(ctx, storage.SessionQuery{
		RunID:      run.ID,
		TrackingID: c.TrackingID,
		Limit:      c.Limit,
		Offset:     c.Offset,
	})
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	out := views.FromSessions(list, loc)
	if c.globals != nil && c.globals.JSON {
		return printJSON(sessionsJSON{Run: views.FromRun(*run, loc), Sessions: out})
	}

	fmt.Printf("Run %s (%s, %s .. %s): %d sessions\n",
		shortID(run.ID), run.Vcid,
		run.StartDate.Format(ingest.DayLayout), run.EndDate.Format(ingest.DayLayout),
		len(out))
	if len(out) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}
	for i, s := range out {
		tid := "-"
		if s.TrackingID != nil {
			tid = *s.TrackingID
		}
		fmt.Printf("%3d. %s #%d  %s  %d searches  %s\n",
			c.Offset+i+1, tid, s.SessionID, s.SearchTime, s.Searches, hotelSummary(s.Hotels))
	}
	return nil
}

func hotelSummary(hotels []string) string {
	if len(hotels) <= maxHotelsShown {
		return strings.Join(hotels, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(hotels[:maxHotelsShown], ", "), len(hotels)-maxHotelsShown)
}

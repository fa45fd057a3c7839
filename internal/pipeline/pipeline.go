// Package pipeline runs the search, detail and booking projections for one
// venue and window and persists the derived rows as a single run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/runnerr0/rankprep/internal/decay"
	"github.com/runnerr0/rankprep/internal/finance"
	"github.com/runnerr0/rankprep/internal/ingest"
	"github.com/runnerr0/rankprep/internal/sessions"
	"github.com/runnerr0/rankprep/internal/storage"
)

// Inputs names the raw log files of a run. Only SearchFile is required.
type Inputs struct {
	SearchFile  string
	DetailFile  string
	BookingFile string
}

// Result summarizes a finished run.
type Result struct {
	RunID    string
	Window   ingest.Window
	Searches ingest.Stats
	Details  ingest.Stats
	Bookings ingest.Stats
	Sessions int
	Totals   finance.Totals
	Duration time.Duration
}

// Counts converts the result into the counts stored on the run.
func (r *Result) Counts() storage.RunCounts {
	return storage.RunCounts{
		Searches: int64(r.Searches.Kept),
		Sessions: int64(r.Sessions),
		Details:  int64(r.Details.Kept),
		Bookings: int64(r.Bookings.Kept),
	}
}

// Runner executes runs against a store.
type Runner struct {
	store   storage.Store
	workers int
	decayer decay.Decayer
	logCtx  *log.Entry
}

// NewRunner returns a Runner. Bookings are weighed by decayer at the window
// end; nil selects decay.Current. A nil logger logs to the standard logger.
func NewRunner(store storage.Store, workers int, decayer decay.Decayer, logger *log.Logger) *Runner {
	if decayer == nil {
		decayer = decay.Current{}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Runner{
		store:   store,
		workers: workers,
		decayer: decayer,
		logCtx:  log.NewEntry(logger).WithField("component", "pipeline"),
	}
}

// Run projects the inputs for w, builds sessions, enriches bookings and saves
// everything under a new run. The run is recorded as failed when any step
// fails; the partial Result is returned alongside the error.
func (r *Runner) Run(ctx context.Context, w ingest.Window, in Inputs) (*Result, error) {
	start := time.Now()

	run := &storage.Run{Vcid: w.Vcid, StartDate: w.Start, EndDate: w.End}
	if err := r.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	logCtx := r.logCtx.WithFields(log.Fields{
		"run_id": run.ID,
		"vcid":   w.Vcid,
		"start":  w.Start.Format(ingest.DayLayout),
		"end":    w.End.Format(ingest.DayLayout),
	})
	logCtx.Info("Run started.")

	res := &Result{RunID: run.ID, Window: w}
	err := r.execute(ctx, logCtx, w, in, res)
	res.Duration = time.Since(start)

	if ferr := r.store.FinishRun(context.WithoutCancel(ctx), run.ID, res.Counts(), err); ferr != nil {
		logCtx.WithError(ferr).Error("Failed to record run outcome.")
		if err == nil {
			err = ferr
		}
	}

	if err != nil {
		logCtx.WithError(err).Error("Run failed.")
		return res, err
	}
	logCtx.WithFields(log.Fields{
		"searches":         res.Searches.Kept,
		"sessions":         res.Sessions,
		"details":          res.Details.Kept,
		"bookings":         res.Bookings.Kept,
		"time_taken_in_ms": res.Duration.Milliseconds(),
	}).Info("Run finished.")
	return res, nil
}

func (r *Runner) execute(ctx context.Context, logCtx *log.Entry, w ingest.Window, in Inputs, res *Result) error {
	p := ingest.NewProjector(w)

	if err := r.searches(ctx, logCtx, p, in.SearchFile, res); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.details(ctx, logCtx, p, in.DetailFile, res); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.bookings(ctx, logCtx, p, in.BookingFile, res)
}

func (r *Runner) searches(ctx context.Context, logCtx *log.Entry, p *ingest.Projector, path string, res *Result) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open search file: %w", err)
	}
	defer f.Close()

	events, stats, err := p.ReadSearches(f)
	res.Searches = stats
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	logCtx.WithFields(log.Fields{"read": stats.Read, "kept": stats.Kept}).Debug("Projected search events.")

	built, err := sessions.NewBuilder(r.workers, logCtx).Build(ctx, events)
	if err != nil {
		return fmt.Errorf("build sessions: %w", err)
	}
	if err := r.store.SaveSessions(ctx, res.RunID, built); err != nil {
		return fmt.Errorf("save sessions: %w", err)
	}
	res.Sessions = len(built)
	return nil
}

func (r *Runner) details(ctx context.Context, logCtx *log.Entry, p *ingest.Projector, path string, res *Result) error {
	f, ok, err := openOptional(path)
	if err != nil {
		return fmt.Errorf("open detail file: %w", err)
	}
	if !ok {
		logCtx.WithField("file", path).Warn("Detail file not found. Skipping detail views.")
		return nil
	}
	defer f.Close()

	views, stats, err := p.ReadDetails(f)
	res.Details = stats
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := r.store.SaveDetails(ctx, res.RunID, views); err != nil {
		return fmt.Errorf("save details: %w", err)
	}
	logCtx.WithFields(log.Fields{"read": stats.Read, "kept": stats.Kept}).Debug("Saved detail views.")
	return nil
}

func (r *Runner) bookings(ctx context.Context, logCtx *log.Entry, p *ingest.Projector, path string, res *Result) error {
	f, ok, err := openOptional(path)
	if err != nil {
		return fmt.Errorf("open booking file: %w", err)
	}
	if !ok {
		logCtx.WithField("file", path).Warn("Booking file not found. Skipping bookings.")
		return nil
	}
	defer f.Close()

	bookings, stats, err := p.ReadBookings(f)
	res.Bookings = stats
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	for i := range bookings {
		bookings[i] = finance.Weigh(finance.Enrich(bookings[i]), r.decayer, res.Window.End)
		res.Totals.Add(bookings[i])
	}
	if err := r.store.SaveBookings(ctx, res.RunID, bookings); err != nil {
		return fmt.Errorf("save bookings: %w", err)
	}
	logCtx.WithFields(log.Fields{
		"read":                  stats.Read,
		"kept":                  stats.Kept,
		"confirmed_room_nights": res.Totals.ConfirmedRoomNights,
		"weighted_room_nights":  res.Totals.WeightedRoomNights,
	}).Debug("Saved enriched bookings.")
	return nil
}

// openOptional opens path, reporting false when path is empty or missing.
func openOptional(path string) (*os.File, bool, error) {
	if path == "" {
		return nil, false, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return f, true, nil
}

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/runnerr0/rankprep/internal/config"
	"github.com/runnerr0/rankprep/internal/decay"
	"github.com/runnerr0/rankprep/internal/finance"
	"github.com/runnerr0/rankprep/internal/ingest"
	"github.com/runnerr0/rankprep/internal/pipeline"
	"github.com/runnerr0/rankprep/internal/storage"
)

type statsJSON struct {
	Read    int `json:"read"`
	Kept    int `json:"kept"`
	Skipped int `json:"skipped"`
}

type totalsJSON struct {
	Bookings            int     `json:"bookings"`
	ConfirmedRoomNights int     `json:"confirmed_room_nights"`
	CancelledRoomNights int     `json:"cancelled_room_nights"`
	GMV                 float64 `json:"gmv"`
	Margin              float64 `json:"margin"`
	WeightedRoomNights  float64 `json:"weighted_room_nights"`
}

// runJSON is the JSON output structure for the run command.
type runJSON struct {
	RunID      string     `json:"run_id"`
	Vcid       string     `json:"vcid"`
	StartDate  string     `json:"start_date"`
	EndDate    string     `json:"end_date"`
	Days       int        `json:"days"`
	Searches   statsJSON  `json:"searches"`
	Details    statsJSON  `json:"details"`
	Bookings   statsJSON  `json:"bookings"`
	Sessions   int        `json:"sessions"`
	Totals     totalsJSON `json:"totals"`
	DurationMs int64      `json:"duration_ms"`
}

// Execute implements the go-flags Commander interface for RunCommand.
func (c *RunCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals, c.applyFlags)
	if err != nil {
		return err
	}

	logger, closer, err := newLogger(cfg, c.globals)
	if err != nil {
		return err
	}
	defer closer.Close()

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	ctx, stop := signalContext()
	defer stop()

	return c.executeWithStore(ctx, cfg, store, logger)
}

// applyFlags overrides config values with the flags that were set.
func (c *RunCommand) applyFlags(cfg *config.Config) {
	if c.Vcid != "" {
		cfg.Run.Vcid = c.Vcid
	}
	if c.Start != "" {
		cfg.Run.StartDate = c.Start
		if c.End == "" {
			cfg.Run.EndDate = c.Start
		}
	}
	if c.End != "" {
		cfg.Run.EndDate = c.End
	}
	if c.SearchFile != "" {
		cfg.Input.SearchFile = c.SearchFile
	}
	if c.DetailFile != "" {
		cfg.Input.DetailFile = c.DetailFile
	}
	if c.BookingFile != "" {
		cfg.Input.BookingFile = c.BookingFile
	}
	if c.Workers > 0 {
		cfg.Pipeline.Workers = c.Workers
	}
	if c.Decay != "" {
		cfg.Pipeline.Decay = c.Decay
	}
}

// window resolves the run window. Missing dates default to today.
func window(cfg *config.Config) (ingest.Window, error) {
	loc, err := cfg.Location()
	if err != nil {
		return ingest.Window{}, err
	}
	today := ingest.Today(loc).Format(ingest.DayLayout)
	start, end := cfg.Run.StartDate, cfg.Run.EndDate
	if start == "" {
		start = today
	}
	if end == "" {
		end = start
	}
	return ingest.ParseWindow(cfg.Run.Vcid, start, end, loc)
}

func inputs(cfg *config.Config) (pipeline.Inputs, error) {
	var in pipeline.Inputs
	paths := []struct {
		src string
		dst *string
	}{
		{cfg.Input.SearchFile, &in.SearchFile},
		{cfg.Input.DetailFile, &in.DetailFile},
		{cfg.Input.BookingFile, &in.BookingFile},
	}
	for _, p := range paths {
		expanded, err := config.ExpandPath(p.src)
		if err != nil {
			return in, err
		}
		*p.dst = expanded
	}
	return in, nil
}

// executeWithStore runs the pipeline against a provided store (for testing).
func (c *RunCommand) executeWithStore(ctx context.Context, cfg *config.Config, store storage.Store, logger *logrus.Logger) error {
	w, err := window(cfg)
	if err != nil {
		return err
	}
	in, err := inputs(cfg)
	if err != nil {
		return err
	}

	decayer, err := decay.New(cfg.Pipeline.Decay)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(store, cfg.Pipeline.Workers, decayer, logger)
	res, err := runner.Run(ctx, w, in)
	if err != nil {
		if res != nil {
			return fmt.Errorf("run %s failed: %w", res.RunID, err)
		}
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(toRunJSON(res))
	}
	printRunHuman(res)
	return nil
}

func toStatsJSON(s ingest.Stats) statsJSON {
	return statsJSON{Read: s.Read, Kept: s.Kept, Skipped: s.Skipped}
}

func toTotalsJSON(t finance.Totals) totalsJSON {
	return totalsJSON{
		Bookings:            t.Bookings,
		ConfirmedRoomNights: t.ConfirmedRoomNights,
		CancelledRoomNights: t.CancelledRoomNights,
		GMV:                 t.GMV,
		Margin:              t.Margin,
		WeightedRoomNights:  t.WeightedRoomNights,
	}
}

func toRunJSON(res *pipeline.Result) runJSON {
	return runJSON{
		RunID:      res.RunID,
		Vcid:       res.Window.Vcid,
		StartDate:  res.Window.Start.Format(ingest.DayLayout),
		EndDate:    res.Window.End.Format(ingest.DayLayout),
		Days:       res.Window.Days(),
		Searches:   toStatsJSON(res.Searches),
		Details:    toStatsJSON(res.Details),
		Bookings:   toStatsJSON(res.Bookings),
		Sessions:   res.Sessions,
		Totals:     toTotalsJSON(res.Totals),
		DurationMs: res.Duration.Milliseconds(),
	}
}

func printRunHuman(res *pipeline.Result) {
	w := res.Window
	fmt.Printf("Run %s finished in %s\n", res.RunID, res.Duration.Round(time.Millisecond))
	fmt.Printf("Venue:         %s\n", w.Vcid)
	fmt.Printf("Window:        %s .. %s (%d days)\n",
		w.Start.Format(ingest.DayLayout), w.End.Format(ingest.DayLayout), w.Days())
	fmt.Printf("Searches:      %s kept of %s\n", formatNumber(int64(res.Searches.Kept)), formatNumber(int64(res.Searches.Read)))
	fmt.Printf("Sessions:      %s\n", formatNumber(int64(res.Sessions)))
	fmt.Printf("Details:       %s kept of %s\n", formatNumber(int64(res.Details.Kept)), formatNumber(int64(res.Details.Read)))
	fmt.Printf("Bookings:      %s kept of %s\n", formatNumber(int64(res.Bookings.Kept)), formatNumber(int64(res.Bookings.Read)))
	fmt.Printf("Room-nights:   %d confirmed, %d cancelled, %.2f recency-weighted\n",
		res.Totals.ConfirmedRoomNights, res.Totals.CancelledRoomNights, res.Totals.WeightedRoomNights)
	fmt.Printf("GMV:           %s\n", formatAmount(res.Totals.GMV))
	fmt.Printf("Margin:        %s\n", formatAmount(res.Totals.Margin))
}

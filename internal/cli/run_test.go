package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/rankprep/internal/config"
	"github.com/runnerr0/rankprep/internal/ingest"
	"github.com/runnerr0/rankprep/internal/logging"
	"github.com/runnerr0/rankprep/internal/storage"
)

const searchLog = `{"day":"2024-03-01","eventTime":1709280000,"currentTime":1709280000000,"vcid_key":"8717279093827200968","pid":7,"inputData":{"trackingId":"tr-1","filterInput":{"starRating":[4]}},"outputData":{"augurConfigID":"dom_base_upr_default","rankList":{"ranks":["h1","h2"]}}}
{"day":"2024-03-01","eventTime":1709280600,"currentTime":1709280600000,"vcid_key":"8717279093827200968","pid":7,"inputData":{"trackingId":"tr-1","filterInput":{"starRating":[4]}},"outputData":{"augurConfigID":"dom_base_upr_default","rankList":{"ranks":["h3"]}}}
{"day":"2024-03-01","eventTime":1709283000,"currentTime":1709283000000,"vcid_key":"8717279093827200968","pid":7,"inputData":{"trackingId":"tr-1","filterInput":{"starRating":[4]}},"outputData":{"augurConfigID":"dom_base_upr_default","rankList":{"ranks":["h4"]}}}
{"day":"2024-03-01","eventTime":1709280000,"currentTime":1709280000000,"vcid_key":"8717279093827200968","pid":9,"inputData":{"trackingId":"tr-2"},"outputData":{"rankList":{"ranks":["h5"]}}}
{"day":"2024-03-09","eventTime":1709280000,"currentTime":1709280000000,"vcid_key":"8717279093827200968","pid":9,"inputData":{"trackingId":"tr-3"},"outputData":{"rankList":{"ranks":["h6"]}}}
`

const detailLog = `{"day":"2024-03-01","eventTime":1709280100,"detailsDataLog":{"cityId":"8717279093827200968","trackingID":"tr-1","hotelId":"h1"}}
{"day":"2024-03-01","eventTime":1709280100,"detailsDataLog":{"cityId":"1","trackingID":"tr-1","hotelId":"h1"}}
`

const bookingLog = `{"day":"2024-03-01","bookingdate":"2024-03-01 14:05:00","voyagercityid":"8717279093827200968","voyagerhotelid":"464241129666544","checkin":"2024-03-10","checkout":"2024-03-12","rooms":1,"tid":"tr-1","status":"to deliver","paymode":1,"vendor":"trust","grand_total":1200,"netamt":900,"bookingcharges":20,"totaltaxcharges_pah":30,"totaltaxcharges":120,"hotel_country":"India","vendor_amount":1000,"is_akb":0}
{"day":"2024-03-01","voyagercityid":"8717279093827200968","tid":"tr-2","checkin":"2024-03-10","checkout":"2024-03-11","rooms":2,"status":"cancelled","vendor":"bkg","grand_total":500}
`

func runConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
		return p
	}

	cfg := testConfig(t)
	cfg.Input.SearchFile = write("search.jsonl", searchLog)
	cfg.Input.DetailFile = write("detail.jsonl", detailLog)
	cfg.Input.BookingFile = write("etl.jsonl", bookingLog)
	cmd := &RunCommand{Vcid: testVcid, Start: "2024-03-01", End: "2024-03-02", Workers: 2}
	cmd.applyFlags(cfg)
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRun_HumanOutput(t *testing.T) {
	store, _ := openTestStore(t)
	cfg := runConfig(t)
	cmd := &RunCommand{globals: &GlobalFlags{}, version: "test"}

	output := captureOutput(t, func() {
		err := cmd.executeWithStore(context.Background(), cfg, store, logging.Discard())
		require.NoError(t, err)
	})

	assert.Contains(t, output, "2024-03-01 .. 2024-03-02 (2 days)")
	assert.Contains(t, output, "Searches:      4 kept of 5")
	assert.Contains(t, output, "Sessions:      3")
	assert.Contains(t, output, "Details:       1 kept of 2")
	assert.Contains(t, output, "Room-nights:   2 confirmed, 2 cancelled")
	assert.Contains(t, output, "GMV:           1,020.00")
	assert.Contains(t, output, "Margin:        114.41")
	assert.Contains(t, output, "2.00 recency-weighted")

	runs, err := store.ListRuns(context.Background(), storage.RunQuery{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, storage.RunFinished, runs[0].Status)
}

func TestRun_JSONOutput(t *testing.T) {
	store, _ := openTestStore(t)
	cfg := runConfig(t)
	cmd := &RunCommand{globals: &GlobalFlags{JSON: true}, version: "test"}

	output := captureOutput(t, func() {
		err := cmd.executeWithStore(context.Background(), cfg, store, logging.Discard())
		require.NoError(t, err)
	})

	var got runJSON
	require.NoError(t, json.Unmarshal([]byte(output), &got), output)
	assert.Len(t, got.RunID, 36)
	assert.Equal(t, testVcid, got.Vcid)
	assert.Equal(t, 2, got.Days)
	assert.Equal(t, statsJSON{Read: 5, Kept: 4, Skipped: 1}, got.Searches)
	assert.Equal(t, 3, got.Sessions)
	assert.Equal(t, 2, got.Totals.Bookings)
	assert.InDelta(t, 1020.0, got.Totals.GMV, 1e-9)
}

func TestRun_MissingSearchFile(t *testing.T) {
	store, _ := openTestStore(t)
	cfg := runConfig(t)
	cfg.Input.SearchFile = filepath.Join(t.TempDir(), "missing.jsonl")
	cmd := &RunCommand{globals: &GlobalFlags{}, version: "test"}

	err := cmd.executeWithStore(context.Background(), cfg, store, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")

	runs, err := store.ListRuns(context.Background(), storage.RunQuery{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, storage.RunFailed, runs[0].Status)
}

func TestRun_RequiresVcid(t *testing.T) {
	store, _ := openTestStore(t)
	cfg := runConfig(t)
	cfg.Run.Vcid = ""
	cmd := &RunCommand{globals: &GlobalFlags{}, version: "test"}

	err := cmd.executeWithStore(context.Background(), cfg, store, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vcid")
}

func TestRunCommand_ApplyFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	cmd := &RunCommand{Start: "2024-03-05"}
	cmd.applyFlags(cfg)
	assert.Equal(t, "2024-03-05", cfg.Run.StartDate)
	assert.Equal(t, "2024-03-05", cfg.Run.EndDate, "end defaults to start")
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, "current", cfg.Pipeline.Decay)

	(&RunCommand{Decay: "pld"}).applyFlags(cfg)
	assert.Equal(t, "pld", cfg.Pipeline.Decay)
}

func TestRun_DecayFromConfig(t *testing.T) {
	store, _ := openTestStore(t)
	cfg := runConfig(t)
	(&RunCommand{Decay: "pld"}).applyFlags(cfg)
	cmd := &RunCommand{globals: &GlobalFlags{JSON: true}, version: "test"}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), cfg, store, logging.Discard()))
	})

	var got runJSON
	require.NoError(t, json.Unmarshal([]byte(output), &got), output)
	// the confirmed booking is one day older than the window end
	assert.InDelta(t, 2*0.95, got.Totals.WeightedRoomNights, 1e-9)
}

func TestRun_UnknownDecay(t *testing.T) {
	store, _ := openTestStore(t)
	cfg := runConfig(t)
	cfg.Pipeline.Decay = "linear"
	cmd := &RunCommand{globals: &GlobalFlags{}, version: "test"}

	err := cmd.executeWithStore(context.Background(), cfg, store, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown decay algorithm")

	runs, err := store.ListRuns(context.Background(), storage.RunQuery{})
	require.NoError(t, err)
	assert.Empty(t, runs, "no run is recorded for a bad decay name")
}

func TestWindow_DefaultsToToday(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Run.Vcid = testVcid

	w, err := window(cfg)
	require.NoError(t, err)

	loc, err := cfg.Location()
	require.NoError(t, err)
	today := ingest.Today(loc).Format(ingest.DayLayout)
	assert.Equal(t, today, w.Start.Format(ingest.DayLayout))
	assert.Equal(t, 1, w.Days())
}

func TestInputs_ExpandsHome(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Input.SearchFile = "~/logs/search.jsonl"

	in, err := inputs(cfg)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(in.SearchFile, "~"))
	assert.True(t, strings.HasSuffix(in.SearchFile, filepath.Join("logs", "search.jsonl")))
}

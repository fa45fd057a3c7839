package views

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/rankprep/internal/records"
	"github.com/runnerr0/rankprep/internal/storage"
)

func ist(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return loc
}

func TestFromSession_AbsentVersusEmpty(t *testing.T) {
	s := records.Session{
		Key: records.SessionKey{
			Vcid:          "1",
			SortKey:       sql.NullString{String: "", Valid: true},
			TrackingID:    sql.NullString{String: "tr-1", Valid: true},
			ActiveFilters: records.FilterSet([]string{"amenities", "starRating"}),
		},
		SessionID:  3,
		SearchTime: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		Searches:   2,
	}

	b, err := json.Marshal(FromSession(s, ist(t)))
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Nil(t, m["flavour"])
	assert.Equal(t, "", m["sort_key"])
	assert.Equal(t, "tr-1", m["tracking_id"])
	assert.Equal(t, []interface{}{"amenities", "starRating"}, m["active_filters"])
	assert.Equal(t, []interface{}{}, m["hotels"])
	assert.Equal(t, "2024-03-01T13:30:00+05:30", m["search_time"])
}

func TestFromBooking(t *testing.T) {
	b := records.BookingRecord{
		Vcid:               "1",
		CheckIn:            time.Date(2024, 3, 9, 18, 30, 0, 0, time.UTC),
		TrackingID:         "tr-1",
		TotalTaxChargesPah: sql.NullFloat64{Float64: 30, Valid: true},
		Metrics:            records.BookingMetrics{GMV: 1020, ConfirmedRoomNights: 2},
	}
	v := FromBooking(b, ist(t))

	assert.Empty(t, v.BookingTime)
	assert.Equal(t, "2024-03-10", v.CheckIn, "check-in is a local day")
	assert.Empty(t, v.CheckOut)
	require.NotNil(t, v.TotalTaxChargesPah)
	assert.Equal(t, 30.0, *v.TotalTaxChargesPah)
	assert.Equal(t, 1020.0, v.GMV)
	assert.Equal(t, 2, v.ConfirmedRoomNights)
	assert.Empty(t, v.Day)
	assert.Zero(t, v.RecencyWeight)
}

func TestFromBooking_DayAndRecencyWeight(t *testing.T) {
	b := records.BookingRecord{
		Day:           time.Date(2024, 2, 29, 18, 30, 0, 0, time.UTC),
		RecencyWeight: 0.95,
	}
	v := FromBooking(b, ist(t))
	assert.Equal(t, "2024-03-01", v.Day, "stored days are local midnights")

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, 0.95, m["recency_weight"])
	assert.Equal(t, "2024-03-01", m["day"])
}

func TestFromRunAndStats(t *testing.T) {
	r := storage.Run{
		ID:        "abc",
		Vcid:      "1",
		StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Status:    storage.RunFinished,
		StartedAt: time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
		Counts:    storage.RunCounts{Sessions: 4},
	}
	v := FromRun(r, nil)
	assert.Equal(t, "2024-03-01", v.StartDate)
	assert.Equal(t, "2024-03-03T00:00:00Z", v.StartedAt)
	assert.Empty(t, v.FinishedAt)
	assert.Equal(t, int64(4), v.Counts.Sessions)

	s := FromStats(&storage.Stats{TotalRuns: 1, TopVendors: []storage.VendorCount{{Vendor: "bkg", Count: 2}}}, nil)
	assert.Empty(t, s.OldestRun)
	assert.Equal(t, []VendorCount{{Vendor: "bkg", Count: 2}}, s.TopVendors)

	assert.Empty(t, FromRuns(nil, nil))
}

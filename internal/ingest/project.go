// Package ingest reads the raw search, detail and booking logs and projects
// them into normalized records. Only rows of the selected venue and days with
// a tracking id survive; searches must also have ranked at least one hotel.
package ingest

import (
	"bufio"
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/runnerr0/rankprep/internal/extract"
	"github.com/runnerr0/rankprep/internal/records"
)

// maxLineBytes bounds a single JSON line. Ranked lists make search rows large.
const maxLineBytes = 16 * 1024 * 1024

// Stats counts the rows seen by a read.
type Stats struct {
	Read    int
	Kept    int
	Skipped int
}

// Projector projects raw rows into records for one Window.
type Projector struct {
	window Window
}

// NewProjector returns a Projector for w.
func NewProjector(w Window) *Projector {
	return &Projector{window: w}
}

// Window returns the projector's window.
func (p *Projector) Window() Window {
	return p.window
}

// scanLines decodes one JSON object per non-blank line and calls fn for each.
func scanLines[T any](r io.Reader, fn func(rec *T) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(b, &rec); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(&rec); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read line %d: %w", line+1, err)
	}
	return nil
}

// ReadSearches projects every kept search row of r.
func (p *Projector) ReadSearches(r io.Reader) ([]records.SearchEvent, Stats, error) {
	var stats Stats
	out := []records.SearchEvent{}
	err := scanLines(r, func(raw *rawSearch) error {
		stats.Read++
		ev, ok, err := p.projectSearch(raw)
		if err != nil {
			return err
		}
		if !ok {
			stats.Skipped++
			return nil
		}
		stats.Kept++
		out = append(out, ev)
		return nil
	})
	return out, stats, err
}

// ReadDetails projects every kept detail row of r.
func (p *Projector) ReadDetails(r io.Reader) ([]records.DetailView, Stats, error) {
	var stats Stats
	out := []records.DetailView{}
	err := scanLines(r, func(raw *rawDetail) error {
		stats.Read++
		d, ok, err := p.projectDetail(raw)
		if err != nil {
			return err
		}
		if !ok {
			stats.Skipped++
			return nil
		}
		stats.Kept++
		out = append(out, d)
		return nil
	})
	return out, stats, err
}

// ReadBookings projects every kept booking row of r.
func (p *Projector) ReadBookings(r io.Reader) ([]records.BookingRecord, Stats, error) {
	var stats Stats
	out := []records.BookingRecord{}
	err := scanLines(r, func(raw *rawBooking) error {
		stats.Read++
		b, ok, err := p.projectBooking(raw)
		if err != nil {
			return err
		}
		if !ok {
			stats.Skipped++
			return nil
		}
		stats.Kept++
		out = append(out, b)
		return nil
	})
	return out, stats, err
}

func (p *Projector) inWindow(day string) (time.Time, bool, error) {
	d, err := p.window.parseDay(day)
	if err != nil {
		return time.Time{}, false, err
	}
	return d, p.window.ContainsDay(d), nil
}

func (p *Projector) projectSearch(raw *rawSearch) (records.SearchEvent, bool, error) {
	day, ok, err := p.inWindow(raw.Day)
	if err != nil || !ok {
		return records.SearchEvent{}, false, err
	}
	if string(raw.Vcid) != p.window.Vcid || raw.InputData.TrackingID == nil || len(raw.OutputData.RankList.Ranks) == 0 {
		return records.SearchEvent{}, false, nil
	}

	in := raw.InputData
	ev := records.SearchEvent{
		Day:               day,
		EventTime:         time.Unix(raw.EventTime, 0).In(p.window.Location),
		CurrentSearchTime: raw.CurrentTime,
		Vcid:              string(raw.Vcid),
		Flavour:           records.FromPtr(in.Flavour),
		CheckIn:           records.FromPtr(in.CheckIn),
		CheckOut:          records.FromPtr(in.CheckOut),
		Pax:               records.FromPtr(in.Pax),
		UserID:            records.FromPtr(in.UserID),
		Email:             records.FromPtr(in.Email),
		TrackingID:        records.FromPtr(in.TrackingID),
		ActiveFilters:     extract.ActiveFilters(in.FilterInput),
		RankedResults:     raw.OutputData.RankList.Ranks,
	}
	if s, ok := extract.SortKey(in.Params); ok {
		ev.SortKey = sql.NullString{String: s, Valid: true}
	}
	if f, ok := extract.CanonicalFilterInput(in.FilterInput); ok {
		ev.RawFilterInput = sql.NullString{String: f, Valid: true}
	}
	if a, ok := extract.AlgorithmID(raw.OutputData.AugurConfigID); ok {
		ev.AlgorithmID = sql.NullString{String: a, Valid: true}
	}
	if raw.Pid != nil {
		ev.SessionSeed = sql.NullInt64{Int64: *raw.Pid, Valid: true}
	}
	return ev, true, nil
}

func (p *Projector) projectDetail(raw *rawDetail) (records.DetailView, bool, error) {
	_, ok, err := p.inWindow(raw.Day)
	if err != nil || !ok {
		return records.DetailView{}, false, err
	}
	dl := raw.DetailsDataLog
	if dl.CityID == nil || string(*dl.CityID) != p.window.Vcid || dl.TrackingID == nil {
		return records.DetailView{}, false, nil
	}

	d := records.DetailView{
		DetailTime: time.Unix(raw.EventTime, 0).In(p.window.Location),
		Vcid:       string(*dl.CityID),
		Flavour:    records.FromPtr(dl.Flavour),
		CheckIn:    records.FromPtr(dl.CheckIn),
		CheckOut:   records.FromPtr(dl.CheckOut),
		Pax:        records.FromPtr(dl.Pax),
		UserID:     records.FromPtr(dl.UserID),
		Email:      records.FromPtr(dl.Email),
		TrackingID: *dl.TrackingID,
	}
	if dl.HotelID != nil {
		d.Vhid = string(*dl.HotelID)
	}
	return d, true, nil
}

func (p *Projector) projectBooking(raw *rawBooking) (records.BookingRecord, bool, error) {
	day, ok, err := p.inWindow(raw.Day)
	if err != nil || !ok {
		return records.BookingRecord{}, false, err
	}
	if raw.VoyagerCityID == nil || string(*raw.VoyagerCityID) != p.window.Vcid || raw.Tid == nil {
		return records.BookingRecord{}, false, nil
	}

	loc := p.window.Location
	b := records.BookingRecord{
		Day:             day,
		Vcid:            string(*raw.VoyagerCityID),
		Flavour:         records.FromPtr(raw.Flavour),
		Rooms:           raw.Rooms,
		Adults:          raw.Adults,
		Children:        raw.Children,
		UserID:          records.FromPtr(raw.UID),
		Email:           records.FromPtr(raw.Email),
		TrackingID:      *raw.Tid,
		Status:          raw.Status,
		Paymode:         raw.Paymode,
		Vendor:          raw.Vendor,
		GrandTotal:      raw.GrandTotal,
		NetAmt:          raw.NetAmt,
		BookingCharges:  raw.BookingCharges,
		TotalTaxCharges: raw.TotalTaxCharges,
		HotelCountry:    raw.HotelCountry,
		VendorAmount:    raw.VendorAmount,
		IsAKB:           raw.IsAKB != 0,
	}
	if raw.VoyagerHotelID != nil {
		b.Vhid = string(*raw.VoyagerHotelID)
	}
	if raw.TotalTaxChargesPah != nil {
		b.TotalTaxChargesPah = sql.NullFloat64{Float64: *raw.TotalTaxChargesPah, Valid: true}
	}

	if raw.BookingDate != "" {
		if b.BookingTime, err = parseTimestamp(raw.BookingDate, loc); err != nil {
			return records.BookingRecord{}, false, fmt.Errorf("bookingdate: %w", err)
		}
	}
	if raw.CheckIn != "" {
		if b.CheckIn, err = parseTimestamp(raw.CheckIn, loc); err != nil {
			return records.BookingRecord{}, false, fmt.Errorf("checkin: %w", err)
		}
	}
	if raw.CheckOut != "" {
		if b.CheckOut, err = parseTimestamp(raw.CheckOut, loc); err != nil {
			return records.BookingRecord{}, false, fmt.Errorf("checkout: %w", err)
		}
	}
	return b, true, nil
}

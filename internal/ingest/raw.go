package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/runnerr0/rankprep/internal/extract"
)

// idString is an identifier logged either as a JSON string or a JSON number.
type idString string

func (s *idString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = idString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*s = idString(n.String())
	return nil
}

// rawSearch is one row of the search event log.
type rawSearch struct {
	Day         string    `json:"day"`
	EventTime   int64     `json:"eventTime"`   // epoch seconds
	CurrentTime int64     `json:"currentTime"` // epoch ms
	Vcid        idString  `json:"vcid_key"`
	Pid         *int64    `json:"pid"`
	InputData   rawInput  `json:"inputData"`
	OutputData  rawOutput `json:"outputData"`
}

type rawInput struct {
	Flavour     *string                    `json:"flavour"`
	CheckIn     *string                    `json:"checkIn"`
	CheckOut    *string                    `json:"checkOut"`
	Pax         *string                    `json:"pax"`
	UserID      *string                    `json:"userId"`
	Email       *string                    `json:"email"`
	TrackingID  *string                    `json:"trackingId"`
	Params      []extract.Param            `json:"params"`
	FilterInput map[string]json.RawMessage `json:"filterInput"`
}

type rawOutput struct {
	AugurConfigID *string `json:"augurConfigID"`
	RankList      struct {
		Ranks []string `json:"ranks"`
	} `json:"rankList"`
}

// rawDetail is one row of the detail-page view log.
type rawDetail struct {
	Day            string `json:"day"`
	EventTime      int64  `json:"eventTime"` // epoch seconds
	DetailsDataLog struct {
		CityID     *idString `json:"cityId"`
		Flavour    *string   `json:"flavour"`
		CheckIn    *string   `json:"checkIn"`
		CheckOut   *string   `json:"checkOut"`
		Pax        *string   `json:"pax"`
		UserID     *string   `json:"userId"`
		Email      *string   `json:"email"`
		TrackingID *string   `json:"trackingID"`
		HotelID    *idString `json:"hotelId"`
	} `json:"detailsDataLog"`
}

// rawBooking is one row of the bookings ETL log.
type rawBooking struct {
	Day                string    `json:"day"`
	BookingDate        string    `json:"bookingdate"`
	VoyagerCityID      *idString `json:"voyagercityid"`
	VoyagerHotelID     *idString `json:"voyagerhotelid"`
	Flavour            *string   `json:"flavour"`
	CheckIn            string    `json:"checkin"`
	CheckOut           string    `json:"checkout"`
	Rooms              int       `json:"rooms"`
	Adults             int       `json:"adults"`
	Children           int       `json:"children"`
	UID                *string   `json:"uid"`
	Email              *string   `json:"email"`
	Tid                *string   `json:"tid"`
	Status             string    `json:"status"`
	Paymode            int       `json:"paymode"`
	Vendor             string    `json:"vendor"`
	GrandTotal         float64   `json:"grand_total"`
	NetAmt             float64   `json:"netamt"`
	BookingCharges     float64   `json:"bookingcharges"`
	TotalTaxChargesPah *float64  `json:"totaltaxcharges_pah"`
	TotalTaxCharges    float64   `json:"totaltaxcharges"`
	HotelCountry       string    `json:"hotel_country"`
	VendorAmount       float64   `json:"vendor_amount"`
	IsAKB              int       `json:"is_akb"`
}

// timestampLayouts are the booking time layouts seen in the ETL log.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	DayLayout,
}

// parseTimestamp tries each known layout in loc.
func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	for _, f := range timestampLayouts {
		if t, err := time.ParseInLocation(f, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", s)
}

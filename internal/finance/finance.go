// Package finance derives the booking economics of a hotel booking: supply
// margin, net amounts, room-night counts, GMV and margin. All functions are
// pure; unknown vendors and statuses fall back to the default rules.
package finance

import (
	"database/sql"
	"strings"
	"time"

	"github.com/runnerr0/rankprep/internal/decay"
	"github.com/runnerr0/rankprep/internal/records"
)

// ingoibiboVendor is the in-house inventory code, matched case-insensitively.
const ingoibiboVendor = "ingoibibo"

// homeCountry is the country whose bookings are valued at vendor cost.
const homeCountry = "india"

// isPayAtHotel reports whether the paymode collects taxes at the hotel.
func isPayAtHotel(paymode int) bool {
	return paymode == 1 || paymode == 5
}

func orZero(v sql.NullFloat64) float64 {
	if !v.Valid {
		return 0
	}
	return v.Float64
}

// SupplyMargin returns the margin earned from the supply partner.
func SupplyMargin(vendor string, paymode int, grandTotal, netAmt, bookingCharges float64, taxPah sql.NullFloat64) float64 {
	terms, _ := lookupTerms(vendor)
	if terms.basis == basisGrossShare {
		return grandTotal * terms.supplyRate
	}

	net := netAmt
	if strings.EqualFold(vendor, ingoibiboVendor) && isPayAtHotel(paymode) {
		net = netAmt + orZero(taxPah)
	}
	return (grandTotal - (net + bookingCharges)) * terms.supplyRate / gstDivisor
}

// FinalAmt returns the net amount including taxes collected at the hotel.
func FinalAmt(paymode int, netAmt float64, taxPah sql.NullFloat64) float64 {
	if isPayAtHotel(paymode) {
		return netAmt + orZero(taxPah)
	}
	return netAmt
}

// FinalNetAmt returns the commission-adjusted amount owed to the vendor.
func FinalNetAmt(vendor string, paymode int, vhid string, vendorAmount, netAmt, bookingCharges float64,
	taxPah sql.NullFloat64, totalTaxCharges float64) float64 {

	terms, ok := lookupTerms(vendor)
	if !ok {
		return FinalAmt(paymode, netAmt, taxPah)
	}
	commission := totalTaxCharges - bookingCharges
	return (vendorAmount-commission)*terms.payout(vhid) + commission
}

// ConfirmedRoomNights returns roomNights for delivered, manual and reserved
// bookings, else 0.
func ConfirmedRoomNights(status string, roomNights int) int {
	if status == "to deliver" || status == "manual" || strings.HasSuffix(status, "reserved") {
		return roomNights
	}
	return 0
}

// CancelledRoomNights returns roomNights for cancelled and refunded bookings,
// else 0.
func CancelledRoomNights(status string, roomNights int) int {
	if strings.Contains(status, "cancel") || strings.HasSuffix(status, "refund") {
		return roomNights
	}
	return 0
}

func isHomeCountry(country string) bool {
	return strings.EqualFold(country, homeCountry)
}

// GMV returns the gross merchandise value of a confirmed booking, 0 when
// nothing was confirmed.
func GMV(hotelCountry string, confirmedRoomNights int, vendorAmount, bookingCharges, grandTotal float64) float64 {
	if confirmedRoomNights <= 0 {
		return 0
	}
	if isHomeCountry(hotelCountry) {
		return vendorAmount + bookingCharges
	}
	return grandTotal - bookingCharges
}

// Margin returns the realised margin of a confirmed booking. Domestic AKB
// bookings carry no margin.
func Margin(hotelCountry string, isAKB bool, confirmedRoomNights int, vendorAmount, finalNetAmt, supplyMargin float64) float64 {
	if confirmedRoomNights <= 0 {
		return 0
	}
	if isHomeCountry(hotelCountry) {
		if isAKB {
			return 0
		}
		return (vendorAmount - finalNetAmt) / gstDivisor
	}
	return supplyMargin
}

// RoomNights returns rooms times the nights between check-in and check-out.
// Both dates are truncated to whole days; a non-positive stay counts 0.
func RoomNights(rooms int, checkIn, checkOut time.Time) int {
	in := time.Date(checkIn.Year(), checkIn.Month(), checkIn.Day(), 0, 0, 0, 0, time.UTC)
	out := time.Date(checkOut.Year(), checkOut.Month(), checkOut.Day(), 0, 0, 0, 0, time.UTC)
	nights := int(out.Sub(in).Hours() / 24)
	if nights <= 0 || rooms <= 0 {
		return 0
	}
	return rooms * nights
}

// Enrich returns a copy of b with Metrics derived from its inputs. Any
// previous Metrics are ignored, so enriching twice gives the same result.
func Enrich(b records.BookingRecord) records.BookingRecord {
	m := records.BookingMetrics{}
	m.RoomNights = RoomNights(b.Rooms, b.CheckIn, b.CheckOut)
	m.SupplyMargin = SupplyMargin(b.Vendor, b.Paymode, b.GrandTotal, b.NetAmt, b.BookingCharges, b.TotalTaxChargesPah)
	m.FinalAmt = FinalAmt(b.Paymode, b.NetAmt, b.TotalTaxChargesPah)
	m.FinalNetAmt = FinalNetAmt(b.Vendor, b.Paymode, b.Vhid, b.VendorAmount, b.NetAmt, b.BookingCharges,
		b.TotalTaxChargesPah, b.TotalTaxCharges)
	m.ConfirmedRoomNights = ConfirmedRoomNights(b.Status, m.RoomNights)
	m.CancelledRoomNights = CancelledRoomNights(b.Status, m.RoomNights)
	m.GMV = GMV(b.HotelCountry, m.ConfirmedRoomNights, b.VendorAmount, b.BookingCharges, b.GrandTotal)
	m.Margin = Margin(b.HotelCountry, b.IsAKB, m.ConfirmedRoomNights, b.VendorAmount, m.FinalNetAmt, m.SupplyMargin)

	b.Metrics = m
	return b
}

// Weigh sets the recency weight of b from the age in days of its log day at
// asOf. A booking with no day weighs as if it were made on asOf.
func Weigh(b records.BookingRecord, d decay.Decayer, asOf time.Time) records.BookingRecord {
	b.RecencyWeight = d.Decay(decay.AgeDays(b.Day, asOf))
	return b
}

// Totals sums the metrics of enriched bookings.
type Totals struct {
	Bookings            int
	ConfirmedRoomNights int
	CancelledRoomNights int
	GMV                 float64
	Margin              float64
	WeightedRoomNights  float64 // confirmed room-nights scaled by recency weight
}

// Add accumulates one enriched booking.
func (t *Totals) Add(b records.BookingRecord) {
	t.Bookings++
	t.ConfirmedRoomNights += b.Metrics.ConfirmedRoomNights
	t.CancelledRoomNights += b.Metrics.CancelledRoomNights
	t.GMV += b.Metrics.GMV
	t.Margin += b.Metrics.Margin
	t.WeightedRoomNights += float64(b.Metrics.ConfirmedRoomNights) * b.RecencyWeight
}

package finance

// gstDivisor removes the 18% GST from a gross margin.
const gstDivisor = 1.18

// supplyBasis selects how a vendor's supply margin is computed.
type supplyBasis int

const (
	// basisNetMargin: (grandTotal - (net + charges)) * supplyRate / 1.18
	basisNetMargin supplyBasis = iota
	// basisGrossShare: grandTotal * supplyRate
	basisGrossShare
)

// vendorTerms are the contractual rates of one supply partner.
type vendorTerms struct {
	basis      supplyBasis
	supplyRate float64

	// payoutRate applies to (vendorAmount - commission) for the net amount.
	payoutRate float64
	// preferredPayoutRate replaces payoutRate for preferredHotels.
	preferredPayoutRate float64
	preferredHotels     map[string]struct{}
}

// payout returns the payout rate for a hotel.
func (t vendorTerms) payout(vhid string) float64 {
	if t.preferredHotels == nil {
		return t.payoutRate
	}
	prefix := vhid
	if len(prefix) > preferredHotelIDLen {
		prefix = prefix[:preferredHotelIDLen]
	}
	if _, ok := t.preferredHotels[prefix]; ok {
		return t.preferredPayoutRate
	}
	return t.payoutRate
}

// preferredHotelIDLen is the length of the hotel id prefix matched against
// preferred hotel lists.
const preferredHotelIDLen = 15

// defaultTerms apply to every vendor missing from vendorTable. They have no
// payout rate: the net amount of those bookings is FinalAmt.
var defaultTerms = vendorTerms{basis: basisNetMargin, supplyRate: 1}

// vendorTable holds the supply terms keyed by the vendor code in the ETL log.
// Codes are matched exactly.
var vendorTable = map[string]vendorTerms{
	"bkg": {basis: basisGrossShare, supplyRate: 0.0636, payoutRate: 0.95},
	"ihg": {basis: basisGrossShare, supplyRate: 0.088, payoutRate: 0.90},
	"exp": {basis: basisNetMargin, supplyRate: 0.65, payoutRate: 0.91},
	"tbo": {basis: basisNetMargin, supplyRate: 1, payoutRate: 0.90},
	"trust": {
		basis:               basisNetMargin,
		supplyRate:          1,
		payoutRate:          0.90,
		preferredPayoutRate: 0.85,
		preferredHotels: hotelSet(
			"464241129666544", "738632572558523", "613301088464001", "377277701863009",
			"903200440281944", "855892936863786", "710317332837447", "686071580782092",
			"547280575134534", "674803750424735", "826089272943386", "118081405006790",
			"282760921508358", "824000701458379", "160517388704968", "647932802151791",
			"726440044168123", "620832173637029", "257244117119279", "156655907264922",
			"280359415060074", "549769109205954",
		),
	},
}

func hotelSet(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// lookupTerms returns the terms of a vendor and whether it has its own entry.
func lookupTerms(vendor string) (vendorTerms, bool) {
	t, ok := vendorTable[vendor]
	if !ok {
		return defaultTerms, false
	}
	return t, true
}

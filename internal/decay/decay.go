// Package decay maps an age in days onto a weight in [0, 1]. Newer is
// heavier: every Decayer returns 1 (or close to it) at age 0 and falls off
// with age.
package decay

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jinzhu/now"
)

// Algorithm names accepted by New.
const (
	AlgorithmCurrent = "current"
	AlgorithmPLD     = "pld"
)

// Logistic curves are pinned at these logits on both ends.
const (
	logitStart = -11.5
	logitEnd   = 11.5

	defaultMaxTime = 9999
)

// Decayer returns the weight of something t days old.
type Decayer interface {
	Decay(t float64) float64
}

// New returns the Decayer registered under algorithm. An empty name selects
// AlgorithmCurrent.
func New(algorithm string) (Decayer, error) {
	switch algorithm {
	case "", AlgorithmCurrent:
		return Current{}, nil
	case AlgorithmPLD:
		return DefaultPiecewise(), nil
	default:
		return nil, fmt.Errorf("unknown decay algorithm %q (want %s or %s)", algorithm, AlgorithmCurrent, AlgorithmPLD)
	}
}

// AgeDays returns the number of whole calendar days from day to asOf in
// asOf's location. Days after asOf have age 0.
func AgeDays(day, asOf time.Time) float64 {
	if day.IsZero() {
		return 0
	}
	to := now.New(asOf).BeginningOfDay()
	from := now.New(day.In(asOf.Location())).BeginningOfDay()
	d := math.Round(to.Sub(from).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// Current is a slow exponential decay over whole days: exp(-0.001*days).
type Current struct{}

func (Current) Decay(t float64) float64 {
	return math.Exp(-0.001 * float64(int(t)))
}

// Exponential decays as exp(factor*t), pinned so that Decay(anchorTime)
// equals anchorValue, and never drops below a floor.
type Exponential struct {
	factor float64
	min    float64
}

// NewExponential returns an Exponential with no floor.
func NewExponential(anchorTime, anchorValue float64) *Exponential {
	return NewExponentialWithMin(anchorTime, anchorValue, 0)
}

// NewExponentialWithMin returns an Exponential floored at minValue.
func NewExponentialWithMin(anchorTime, anchorValue, minValue float64) *Exponential {
	return &Exponential{
		factor: math.Log(anchorValue) / anchorTime,
		min:    minValue,
	}
}

func (e *Exponential) Decay(t float64) float64 {
	return math.Min(1, math.Max(math.Exp(e.factor*t), e.min))
}

// Anchor pins a curve to value Y at age T.
type Anchor struct {
	T float64
	Y float64
}

// Logistic interpolates linearly in logit space between anchors, so the
// curve stays sigmoid between any two of them. Ages past the max time, or
// past the far end of the curve, are clamped.
type Logistic struct {
	points  []logitPoint
	maxTime float64
}

type logitPoint struct {
	t, x float64
}

// NewLogistic returns a Logistic through anchors. Anchor values must lie
// strictly between 0 and 1.
func NewLogistic(anchors ...Anchor) *Logistic {
	return NewLogisticWithMaxTime(defaultMaxTime, anchors...)
}

// NewLogisticWithMaxTime is NewLogistic with a custom clamp on ages.
func NewLogisticWithMaxTime(maxTime float64, anchors ...Anchor) *Logistic {
	sorted := append([]Anchor(nil), anchors...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].T < sorted[j].T })

	points := make([]logitPoint, 0, len(sorted)+2)
	points = append(points, logitPoint{t: 0, x: logitStart})
	for _, a := range sorted {
		points = append(points, logitPoint{t: a.T, x: math.Log(1/a.Y - 1)})
	}
	points = append(points, logitPoint{t: defaultMaxTime, x: logitEnd})
	return &Logistic{points: points, maxTime: maxTime}
}

func (l *Logistic) Decay(t float64) float64 {
	t = math.Min(t, math.Min(l.maxTime, l.points[len(l.points)-1].t))
	i := 1
	for i < len(l.points)-1 && t > l.points[i].t {
		i++
	}
	prev, next := l.points[i-1], l.points[i]
	x := next.x
	if span := next.t - prev.t; span != 0 {
		x = prev.x + (t-prev.t)*(next.x-prev.x)/span
	}
	return 1 / (1 + math.Exp(x))
}

// PiecewiseLinear joins anchors with straight lines and holds the last
// anchor's value for all later ages. A curve not anchored at age 0 starts
// from 1. Negative ages decay to 0.
type PiecewiseLinear struct {
	ranges []linearRange
}

type linearRange struct {
	from, to float64
	slope    float64
	offset   float64
}

func (r linearRange) contains(t float64) bool { return t >= r.from && t <= r.to }

// NewPiecewiseLinear returns a PiecewiseLinear through anchors.
func NewPiecewiseLinear(anchors ...Anchor) *PiecewiseLinear {
	pts := append([]Anchor(nil), anchors...)
	if len(pts) == 0 || pts[0].T != 0 {
		pts = append([]Anchor{{T: 0, Y: 1}}, pts...)
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].T < pts[j].T })

	ranges := make([]linearRange, 0, len(pts))
	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		if a.T == b.T {
			continue
		}
		slope := (b.Y - a.Y) / (b.T - a.T)
		ranges = append(ranges, linearRange{from: a.T, to: b.T, slope: slope, offset: a.Y - slope*a.T})
	}
	last := pts[len(pts)-1]
	ranges = append(ranges, linearRange{from: last.T, to: math.Inf(1), offset: last.Y})
	return &PiecewiseLinear{ranges: ranges}
}

func (p *PiecewiseLinear) Decay(t float64) float64 {
	for _, r := range p.ranges {
		if r.contains(t) {
			if r.slope == 0 {
				return r.offset
			}
			return r.slope*t + r.offset
		}
	}
	return 0
}

// DefaultPiecewise is the curve behind AlgorithmPLD: a steep drop over the
// first week.
func DefaultPiecewise() *PiecewiseLinear {
	return NewPiecewiseLinear(
		Anchor{T: 1, Y: 0.95},
		Anchor{T: 2, Y: 0.9},
		Anchor{T: 7, Y: 0.3},
		Anchor{T: 8, Y: 0.01},
	)
}

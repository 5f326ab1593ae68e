package estimation

import (
	"math"
	"math/rand/v2"
	"strings"
)

// RandFunc returns a float in [0, 1). It must be safe for concurrent use
// when the Calculator is shared across requests.
type RandFunc func() float64

// Variance band applied to every market size.
const (
	varianceFloor = 0.95
	varianceSpan  = 0.10
)

// Calculator estimates the reachable audience of a single market.
// A Calculator holds no mutable state and is safe for concurrent use as long
// as its RandFunc is.
type Calculator struct {
	rand RandFunc
}

// NewCalculator creates a Calculator drawing variance from r. A nil r uses
// the runtime's default PRNG.
func NewCalculator(r RandFunc) *Calculator {
	if r == nil {
		r = rand.Float64
	}
	return &Calculator{rand: r}
}

// FixedRand returns a RandFunc that always yields v. Useful for reproducible
// estimates in tests and offline tooling.
func FixedRand(v float64) RandFunc {
	return func() float64 { return v }
}

// BaseSize is the unfiltered reachable population of market before variance.
func (c *Calculator) BaseSize(market string) float64 {
	return ResolveMarket(market).ReachablePopulation()
}

// MarketSize returns the estimated audience for market after applying every
// attribute multiplier and one independent variance draw. It never fails and
// never returns a negative value.
func (c *Calculator) MarketSize(market string, attributes []AttributeCriterion) int64 {
	size := c.BaseSize(market)
	for _, attr := range attributes {
		size *= Multiplier(attr)
	}

	size *= varianceFloor + c.rand()*varianceSpan

	if size < 0 {
		return 0
	}
	return int64(math.Round(size))
}

// Multiplier returns the share of an eligible population satisfying attr.
func Multiplier(attr AttributeCriterion) float64 {
	switch attr.Dimension {
	case DimensionAge:
		return lookup(ageMultipliers, attr.Value, DefaultAgeMultiplier)
	case DimensionGender:
		return lookup(genderMultipliers, attr.Value, DefaultGenderMultiplier)
	case DimensionIncome:
		return incomeMultiplier(parseLeadingInt(attr.Value))
	case DimensionLocationType:
		return lookup(locationTypeMultipliers, attr.Value, DefaultLocationTypeMultiplier)
	case DimensionEducation:
		return lookup(educationMultipliers, attr.Value, DefaultEducationMultiplier)
	case DimensionInterests, DimensionBehavior:
		return interestMultiplier(attr.Value)
	default:
		return OtherDimensionMultiplier
	}
}

func lookup(table map[string]float64, key string, fallback float64) float64 {
	if v, ok := table[key]; ok {
		return v
	}
	return fallback
}

func incomeMultiplier(income int64) float64 {
	for _, step := range incomeLadder {
		if income >= step.min {
			return step.multiplier
		}
	}
	return incomeFloorMultiplier
}

// interestMultiplier takes the highest prevalence across a comma separated
// interest list. This approximates a union of the interests.
func interestMultiplier(value string) float64 {
	best := 0.0
	for _, token := range strings.Split(value, ",") {
		p := lookup(interestPrevalence, strings.TrimSpace(token), DefaultInterestPrevalence)
		if p > best {
			best = p
		}
	}
	return best
}

// parseLeadingInt reads an optional sign and the leading decimal digits of s,
// ignoring anything after them. Input without leading digits yields 0, so a
// non-numeric income lands in the lowest bracket.
func parseLeadingInt(s string) int64 {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}

	var n int64
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch < '0' || ch > '9' {
			break
		}
		if n > (math.MaxInt64-int64(ch-'0'))/10 {
			n = math.MaxInt64
			break
		}
		n = n*10 + int64(ch-'0')
	}
	if neg {
		return -n
	}
	return n
}

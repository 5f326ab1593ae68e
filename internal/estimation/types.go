// Package estimation turns audience-targeting criteria into an estimated
// reachable population, broken down per market, with a confidence rating.
//
// Everything in this package is pure computation over immutable reference
// tables. Nothing here performs I/O, holds shared mutable state, or returns
// an error for unknown reference data: unknown markets and filter values
// degrade to documented defaults.
package estimation

// ==========================================
// CONFIDENCE
// ==========================================

// Confidence is a coarse rating of how trustworthy an estimate is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ==========================================
// DIMENSIONS
// ==========================================

// Targeting dimensions with dedicated multiplier handling. Any other
// dimension string is accepted and weighted with OtherDimensionMultiplier.
const (
	DimensionAge          = "age"
	DimensionGender       = "gender"
	DimensionIncome       = "income"
	DimensionLocationType = "location_type"
	DimensionEducation    = "education"
	DimensionInterests    = "interests"
	DimensionBehavior     = "behavior"
)

// Operators used by the quick-estimate endpoint. Operators are informational
// only; multiplier lookup never reads them.
const (
	OperatorBetween = "between"
	OperatorGte     = "gte"
	OperatorIs      = "is"
	OperatorIn      = "in"
)

// ==========================================
// REQUEST / RESPONSE TYPES
// ==========================================

// AttributeCriterion is one targeting filter supplied by a caller.
type AttributeCriterion struct {
	Dimension string `json:"dimension"`
	Operator  string `json:"operator"`
	Value     string `json:"value"`
}

// MarketBreakdown is one market's share of an estimate.
type MarketBreakdown struct {
	Market     string `json:"market"`
	Size       int64  `json:"size"`
	Percentage int    `json:"percentage"`
}

// EstimationResult is the full response of a detailed estimate.
type EstimationResult struct {
	TotalSize       int64             `json:"totalSize"`
	MarketBreakdown []MarketBreakdown `json:"marketBreakdown"`
	Confidence      Confidence        `json:"confidence"`
	Methodology     string            `json:"methodology"`
	LastUpdated     string            `json:"lastUpdated"`
}

// QuickEstimate is the summed-only result of the GET variant.
type QuickEstimate struct {
	TotalSize      int64    `json:"totalSize"`
	Markets        []string `json:"markets"`
	AttributeCount int      `json:"attributeCount"`
}

// Methodology describes how every estimate is produced.
const Methodology = "Probabilistic estimate from market population, internet penetration and panel survey reach, adjusted by independent demographic and interest multipliers"

// lastUpdatedLayout matches the millisecond ISO-8601 form front-ends expect.
const lastUpdatedLayout = "2006-01-02T15:04:05.000Z07:00"

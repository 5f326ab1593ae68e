package estimation

import (
	"math"
	"sort"
	"time"
)

// Engine fans an estimate out over markets and assembles the response.
type Engine struct {
	calc *Calculator
	now  func() time.Time
}

// NewEngine creates an Engine backed by calc. A nil calc uses the default
// random source.
func NewEngine(calc *Calculator) *Engine {
	if calc == nil {
		calc = NewCalculator(nil)
	}
	return &Engine{calc: calc, now: time.Now}
}

// Calculator returns the underlying market calculator.
func (e *Engine) Calculator() *Calculator {
	return e.calc
}

// Estimate computes the detailed estimate for attributes across markets.
// The breakdown is sorted by size, largest first; ties keep request order.
// Confidence is rated on the request as supplied.
func (e *Engine) Estimate(attributes []AttributeCriterion, markets []string) *EstimationResult {
	breakdown := make([]MarketBreakdown, 0, len(markets))
	var total int64
	for _, m := range markets {
		size := e.calc.MarketSize(m, attributes)
		total += size
		breakdown = append(breakdown, MarketBreakdown{Market: m, Size: size})
	}

	for i := range breakdown {
		breakdown[i].Percentage = percentage(breakdown[i].Size, total)
	}

	sort.SliceStable(breakdown, func(i, j int) bool {
		return breakdown[i].Size > breakdown[j].Size
	})

	return &EstimationResult{
		TotalSize:       total,
		MarketBreakdown: breakdown,
		Confidence:      DetermineConfidence(attributes, markets),
		Methodology:     Methodology,
		LastUpdated:     e.now().UTC().Format(lastUpdatedLayout),
	}
}

// QuickEstimate sums market sizes without a breakdown or confidence rating.
func (e *Engine) QuickEstimate(attributes []AttributeCriterion, markets []string) *QuickEstimate {
	var total int64
	for _, m := range markets {
		total += e.calc.MarketSize(m, attributes)
	}
	return &QuickEstimate{
		TotalSize:      total,
		Markets:        markets,
		AttributeCount: len(attributes),
	}
}

// percentage rounds each share independently, so shares need not sum to 100.
func percentage(size, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(size) / float64(total) * 100))
}

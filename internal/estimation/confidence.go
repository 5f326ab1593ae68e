package estimation

var demographicDimensions = map[string]bool{
	DimensionAge:          true,
	DimensionGender:       true,
	DimensionIncome:       true,
	DimensionLocationType: true,
}

// DetermineConfidence rates an estimate from filter richness and market data
// quality. It is deterministic.
//
//   - high: at least one demographic attribute, two or more attributes, and
//     every market well covered
//   - medium: at least one attribute and at least half the markets well covered
//   - low: otherwise
func DetermineConfidence(attributes []AttributeCriterion, markets []string) Confidence {
	hasDemographics := false
	for _, attr := range attributes {
		if demographicDimensions[attr.Dimension] {
			hasDemographics = true
			break
		}
	}

	wellCovered := 0
	for _, m := range markets {
		if IsWellCovered(m) {
			wellCovered++
		}
	}

	if hasDemographics && len(attributes) >= 2 && wellCovered == len(markets) {
		return ConfidenceHigh
	}
	if len(attributes) >= 1 && wellCovered*2 >= len(markets) {
		return ConfidenceMedium
	}
	return ConfidenceLow
}

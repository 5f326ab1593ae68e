package estimation

// MarketProfile holds the static reach constants for one market.
type MarketProfile struct {
	// Population in millions.
	Population float64 `json:"population"`
	// InternetPenetration is the connected share of the population (0-1).
	InternetPenetration float64 `json:"internetPenetration"`
	// SurveyReach is the panel-represented share of the connected population (0-1).
	SurveyReach float64 `json:"surveyReach"`
}

// ReachablePopulation is population × 1e6 × penetration × reach.
func (p MarketProfile) ReachablePopulation() float64 {
	return p.Population * 1_000_000 * p.InternetPenetration * p.SurveyReach
}

// GlobalMarket is the fallback profile for unknown market codes.
const GlobalMarket = "Global"

// WellCoveredReach is the survey reach at which a market counts as well covered.
const WellCoveredReach = 0.25

// marketOrder is the fixed enumeration of supported market codes.
var marketOrder = []string{
	"Global", "US", "UK", "DE", "FR", "JP", "BR", "AU", "CA", "KR", "NL", "ES", "IT",
	"IN", "CN", "MX", "SG", "HK", "UAE", "SE", "NO", "DK", "PL", "ZA", "AR",
}

var markets = map[string]MarketProfile{
	"Global": {Population: 5200, InternetPenetration: 0.66, SurveyReach: 0.15},
	"US":     {Population: 280, InternetPenetration: 0.92, SurveyReach: 0.35},
	"UK":     {Population: 55, InternetPenetration: 0.95, SurveyReach: 0.32},
	"DE":     {Population: 70, InternetPenetration: 0.93, SurveyReach: 0.30},
	"FR":     {Population: 54, InternetPenetration: 0.91, SurveyReach: 0.28},
	"JP":     {Population: 105, InternetPenetration: 0.93, SurveyReach: 0.22},
	"BR":     {Population: 165, InternetPenetration: 0.81, SurveyReach: 0.20},
	"AU":     {Population: 21, InternetPenetration: 0.96, SurveyReach: 0.30},
	"CA":     {Population: 32, InternetPenetration: 0.94, SurveyReach: 0.30},
	"KR":     {Population: 44, InternetPenetration: 0.97, SurveyReach: 0.22},
	"NL":     {Population: 15, InternetPenetration: 0.96, SurveyReach: 0.28},
	"ES":     {Population: 40, InternetPenetration: 0.93, SurveyReach: 0.26},
	"IT":     {Population: 50, InternetPenetration: 0.85, SurveyReach: 0.25},
	"IN":     {Population: 950, InternetPenetration: 0.48, SurveyReach: 0.10},
	"CN":     {Population: 1100, InternetPenetration: 0.73, SurveyReach: 0.08},
	"MX":     {Population: 95, InternetPenetration: 0.76, SurveyReach: 0.18},
	"SG":     {Population: 5, InternetPenetration: 0.92, SurveyReach: 0.27},
	"HK":     {Population: 6.5, InternetPenetration: 0.93, SurveyReach: 0.25},
	"UAE":    {Population: 9, InternetPenetration: 0.99, SurveyReach: 0.20},
	"SE":     {Population: 8.5, InternetPenetration: 0.96, SurveyReach: 0.27},
	"NO":     {Population: 4.5, InternetPenetration: 0.98, SurveyReach: 0.26},
	"DK":     {Population: 4.8, InternetPenetration: 0.98, SurveyReach: 0.26},
	"PL":     {Population: 32, InternetPenetration: 0.87, SurveyReach: 0.21},
	"ZA":     {Population: 40, InternetPenetration: 0.70, SurveyReach: 0.15},
	"AR":     {Population: 35, InternetPenetration: 0.87, SurveyReach: 0.17},
}

// LookupMarket returns the profile for an exact market code.
func LookupMarket(code string) (MarketProfile, bool) {
	p, ok := markets[code]
	return p, ok
}

// ResolveMarket returns the profile for code, or the Global profile when the
// code is unknown.
func ResolveMarket(code string) MarketProfile {
	if p, ok := markets[code]; ok {
		return p
	}
	return markets[GlobalMarket]
}

// IsWellCovered reports whether the resolved profile for code has survey reach
// of at least WellCoveredReach. Unknown codes resolve to Global and are not.
func IsWellCovered(code string) bool {
	return ResolveMarket(code).SurveyReach >= WellCoveredReach
}

// SupportedMarkets returns the market codes in their fixed enumeration order.
func SupportedMarkets() []string {
	out := make([]string, len(marketOrder))
	copy(out, marketOrder)
	return out
}

// IsSupportedMarket reports whether code is in the reference table.
func IsSupportedMarket(code string) bool {
	_, ok := markets[code]
	return ok
}

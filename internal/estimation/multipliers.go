package estimation

import "sort"

// Fallback weights for values missing from a known dimension's table.
const (
	DefaultAgeMultiplier          = 0.15
	DefaultGenderMultiplier       = 0.5
	DefaultLocationTypeMultiplier = 0.4
	DefaultEducationMultiplier    = 0.25
	DefaultInterestPrevalence     = 0.20
	OtherDimensionMultiplier      = 0.35
)

var ageMultipliers = map[string]float64{
	"13-17": 0.06,
	"16-24": 0.16,
	"18-24": 0.13,
	"25-34": 0.22,
	"35-44": 0.20,
	"45-54": 0.17,
	"55-64": 0.13,
	"65+":   0.09,
	"18-34": 0.35,
	"35-54": 0.37,
	"55+":   0.22,
}

var genderMultipliers = map[string]float64{
	"male":       0.49,
	"female":     0.51,
	"non-binary": 0.02,
	"all":        1.0,
}

var locationTypeMultipliers = map[string]float64{
	"urban":    0.55,
	"suburban": 0.30,
	"rural":    0.15,
}

var educationMultipliers = map[string]float64{
	"high_school":  0.35,
	"some_college": 0.20,
	"bachelors":    0.28,
	"masters":      0.10,
	"doctorate":    0.02,
	"vocational":   0.08,
}

// interestPrevalence is the share of the general population holding an
// interest or behavior.
var interestPrevalence = map[string]float64{
	"gaming":          0.38,
	"finance":         0.28,
	"technology":      0.42,
	"sports":          0.45,
	"travel":          0.40,
	"fashion":         0.32,
	"beauty":          0.30,
	"music":           0.55,
	"movies":          0.50,
	"fitness":         0.35,
	"health":          0.33,
	"food":            0.48,
	"cooking":         0.36,
	"automotive":      0.22,
	"parenting":       0.24,
	"pets":            0.31,
	"home_garden":     0.27,
	"news":            0.44,
	"politics":        0.18,
	"sustainability":  0.21,
	"crypto":          0.09,
	"luxury":          0.07,
	"education":       0.19,
	"outdoors":        0.26,
	"books":           0.29,
	"streaming":       0.52,
	"esports":         0.11,
	"investing":       0.16,
	"online_shopping": 0.58,
	"social_media":    0.63,
}

type incomeStep struct {
	min        int64
	multiplier float64
}

// incomeLadder is checked top-down; the first threshold met wins.
var incomeLadder = []incomeStep{
	{200000, 0.05},
	{150000, 0.10},
	{100000, 0.18},
	{75000, 0.28},
	{50000, 0.40},
}

const incomeFloorMultiplier = 0.55

// AgeBands returns the keys of the age table.
func AgeBands() []string { return keys(ageMultipliers) }

// Interests returns the keys of the interest-prevalence table.
func Interests() []string { return keys(interestPrevalence) }

// EducationLevels returns the keys of the education table.
func EducationLevels() []string { return keys(educationMultipliers) }

// LocationTypes returns the keys of the location type table.
func LocationTypes() []string { return keys(locationTypeMultipliers) }

// InterestPrevalence returns the prevalence of one interest key and whether
// it is known.
func InterestPrevalence(interest string) (float64, bool) {
	v, ok := interestPrevalence[interest]
	return v, ok
}

func keys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

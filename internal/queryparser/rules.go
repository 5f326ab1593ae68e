package queryparser

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ignite/audience-estimator/internal/estimation"
)

// RulesParser extracts criteria with keyword and pattern matching. It is
// deterministic, needs no network, and never fails on a non-empty query.
type RulesParser struct {
	interests []phrase
	markets   []phrase
}

// phrase is a word-bounded pattern resolving to a canonical value.
type phrase struct {
	re    *regexp.Regexp
	value string
}

func newPhrase(text, value string) phrase {
	return phrase{re: regexp.MustCompile(`\b` + regexp.QuoteMeta(text) + `\b`), value: value}
}

// interestSynonyms maps everyday wording to interest-prevalence keys.
// Every table key is also matched on its own (underscores as spaces).
var interestSynonyms = map[string]string{
	"gamer":            "gaming",
	"gamers":           "gaming",
	"video games":      "gaming",
	"tech":             "technology",
	"techies":          "technology",
	"gadgets":          "technology",
	"sport":            "sports",
	"football":         "sports",
	"soccer":           "sports",
	"basketball":       "sports",
	"travelers":        "travel",
	"travellers":       "travel",
	"traveling":        "travel",
	"skincare":         "beauty",
	"makeup":           "beauty",
	"cosmetics":        "beauty",
	"concerts":         "music",
	"film":             "movies",
	"cinema":           "movies",
	"gym":              "fitness",
	"workout":          "fitness",
	"yoga":             "fitness",
	"wellness":         "health",
	"foodies":          "food",
	"dining":           "food",
	"restaurants":      "food",
	"recipes":          "cooking",
	"baking":           "cooking",
	"cars":             "automotive",
	"car":              "automotive",
	"parents":          "parenting",
	"moms":             "parenting",
	"dads":             "parenting",
	"families":         "parenting",
	"pet owners":       "pets",
	"dog owners":       "pets",
	"cat owners":       "pets",
	"gardening":        "home_garden",
	"diy":              "home_garden",
	"home improvement": "home_garden",
	"political":        "politics",
	"eco-friendly":     "sustainability",
	"eco-conscious":    "sustainability",
	"environment":      "sustainability",
	"cryptocurrency":   "crypto",
	"bitcoin":          "crypto",
	"web3":             "crypto",
	"e-learning":       "education",
	"hiking":           "outdoors",
	"camping":          "outdoors",
	"outdoor":          "outdoors",
	"reading":          "books",
	"readers":          "books",
	"netflix":          "streaming",
	"investors":        "investing",
	"stocks":           "investing",
	"financial":        "finance",
	"banking":          "finance",
	"personal finance": "finance",
	"e-commerce":       "online_shopping",
	"ecommerce":        "online_shopping",
	"instagram":        "social_media",
	"tiktok":           "social_media",
	"online shoppers":  "online_shopping",
	"streamers":        "streaming",
}

var (
	ageRangeRe = regexp.MustCompile(`\b(\d{2})\s*(?:-|–|to)\s*(\d{2})\b`)
	agePlusRe  = regexp.MustCompile(`\b(\d{2})\s*\+|\b(?:over|above|older than|aged)\s+(\d{2})\b`)

	incomeDollarRe = regexp.MustCompile(`\$\s*(\d[\d,]*(?:\.\d+)?)\s*([km])?`)
	incomeWordRe   = regexp.MustCompile(`\b(?:earning|earn|earns|income|making|make|makes|salary)\b\D{0,20}?(\d[\d,]*(?:\.\d+)?)\s*([km])?\b`)
)

// agePhrases resolve generational wording to age bands.
var agePhrases = []phrase{
	newPhrase("teenagers", "13-17"),
	newPhrase("teens", "13-17"),
	newPhrase("gen z", "18-24"),
	newPhrase("genz", "18-24"),
	newPhrase("gen-z", "18-24"),
	newPhrase("zoomers", "18-24"),
	newPhrase("college students", "18-24"),
	newPhrase("young adults", "18-34"),
	newPhrase("millennials", "25-34"),
	newPhrase("millennial", "25-34"),
	newPhrase("gen x", "35-54"),
	newPhrase("middle-aged", "35-54"),
	newPhrase("middle aged", "35-54"),
	newPhrase("baby boomers", "55+"),
	newPhrase("boomers", "55+"),
	newPhrase("seniors", "65+"),
	newPhrase("retirees", "65+"),
}

var genderPhrases = []phrase{
	newPhrase("women", "female"),
	newPhrase("woman", "female"),
	newPhrase("female", "female"),
	newPhrase("females", "female"),
	newPhrase("ladies", "female"),
	newPhrase("moms", "female"),
	newPhrase("mothers", "female"),
	newPhrase("girls", "female"),
	newPhrase("men", "male"),
	newPhrase("man", "male"),
	newPhrase("male", "male"),
	newPhrase("males", "male"),
	newPhrase("dads", "male"),
	newPhrase("fathers", "male"),
	newPhrase("guys", "male"),
	newPhrase("boys", "male"),
	newPhrase("non-binary", "non-binary"),
	newPhrase("nonbinary", "non-binary"),
}

var incomePhrases = []phrase{
	newPhrase("high net worth", "200000"),
	newPhrase("hnw", "200000"),
	newPhrase("wealthy", "150000"),
	newPhrase("affluent", "100000"),
	newPhrase("high income", "100000"),
	newPhrase("high-income", "100000"),
	newPhrase("upper middle class", "75000"),
	newPhrase("middle income", "50000"),
	newPhrase("middle class", "50000"),
	newPhrase("middle-class", "50000"),
}

var locationPhrases = []phrase{
	newPhrase("suburban", "suburban"),
	newPhrase("suburbs", "suburban"),
	newPhrase("urban", "urban"),
	newPhrase("city", "urban"),
	newPhrase("cities", "urban"),
	newPhrase("city dwellers", "urban"),
	newPhrase("metropolitan", "urban"),
	newPhrase("metro", "urban"),
	newPhrase("rural", "rural"),
	newPhrase("countryside", "rural"),
}

// educationPhrases are checked in order; the first hit wins so that
// "postgraduate" is not read as a plain graduate.
var educationPhrases = []phrase{
	newPhrase("phd", "doctorate"),
	newPhrase("doctorate", "doctorate"),
	newPhrase("doctoral", "doctorate"),
	newPhrase("postgraduate", "masters"),
	newPhrase("postgrad", "masters"),
	newPhrase("masters", "masters"),
	newPhrase("master's", "masters"),
	newPhrase("mba", "masters"),
	newPhrase("college-educated", "bachelors"),
	newPhrase("college educated", "bachelors"),
	newPhrase("graduates", "bachelors"),
	newPhrase("degree", "bachelors"),
	newPhrase("bachelors", "bachelors"),
	newPhrase("bachelor's", "bachelors"),
	newPhrase("some college", "some_college"),
	newPhrase("undergrads", "some_college"),
	newPhrase("students", "some_college"),
	newPhrase("high school", "high_school"),
	newPhrase("vocational", "vocational"),
	newPhrase("trade school", "vocational"),
}

// NewRulesParser compiles the keyword tables.
func NewRulesParser() *RulesParser {
	p := &RulesParser{}

	for _, key := range estimation.Interests() {
		p.interests = append(p.interests, newPhrase(strings.ReplaceAll(key, "_", " "), key))
	}
	for text, key := range interestSynonyms {
		p.interests = append(p.interests, newPhrase(text, key))
	}

	for alias, code := range marketAliases {
		p.markets = append(p.markets, newPhrase(alias, code))
	}
	return p
}

// Name implements Parser.
func (p *RulesParser) Name() string { return SourceRules }

// Parse implements Parser.
func (p *RulesParser) Parse(_ context.Context, query string) (*ParsedQuery, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	lower := strings.ToLower(query)

	var criteria []estimation.AttributeCriterion
	mentioned := make(map[string]bool)
	add := func(dim, op, value string) {
		if value == "" {
			return
		}
		mentioned[dim] = true
		criteria = append(criteria, estimation.AttributeCriterion{Dimension: dim, Operator: op, Value: value})
	}

	add(estimation.DimensionAge, estimation.OperatorBetween, extractAge(lower))
	add(estimation.DimensionGender, estimation.OperatorIs, extractGender(lower))
	add(estimation.DimensionIncome, estimation.OperatorGte, extractIncome(lower))
	add(estimation.DimensionLocationType, estimation.OperatorIs, earliest(lower, locationPhrases))
	add(estimation.DimensionEducation, estimation.OperatorIs, firstMatch(lower, educationPhrases))
	add(estimation.DimensionInterests, estimation.OperatorIn, strings.Join(allMatches(lower, p.interests), ","))

	markets := p.extractMarkets(query, lower)

	result := &ParsedQuery{
		Criteria:    criteria,
		Markets:     markets,
		Suggestions: suggestionsFor(mentioned, len(markets) > 0),
		Source:      SourceRules,
	}
	return Normalize(result), nil
}

func extractAge(lower string) string {
	for _, m := range ageRangeRe.FindAllStringSubmatchIndex(lower, -1) {
		// Skip money ranges like "$50-75k"
		if m[0] > 0 && lower[m[0]-1] == '$' {
			continue
		}
		if m[1] < len(lower) && lower[m[1]] == 'k' {
			continue
		}
		lo, _ := strconv.Atoi(lower[m[2]:m[3]])
		hi, _ := strconv.Atoi(lower[m[4]:m[5]])
		if lo >= hi {
			continue
		}
		return lower[m[2]:m[3]] + "-" + lower[m[4]:m[5]]
	}
	if m := agePlusRe.FindStringSubmatch(lower); m != nil {
		age := m[1]
		if age == "" {
			age = m[2]
		}
		return age + "+"
	}
	return earliest(lower, agePhrases)
}

func extractGender(lower string) string {
	found := make(map[string]bool)
	for _, ph := range genderPhrases {
		if ph.re.MatchString(lower) {
			found[ph.value] = true
		}
	}
	// Both binary genders named means no gender filter
	if found["male"] && found["female"] {
		return ""
	}
	for _, g := range []string{"non-binary", "female", "male"} {
		if found[g] {
			return g
		}
	}
	return ""
}

func extractIncome(lower string) string {
	for _, re := range []*regexp.Regexp{incomeDollarRe, incomeWordRe} {
		for _, m := range re.FindAllStringSubmatch(lower, -1) {
			if v := incomeAmount(m[1], m[2]); v >= 1000 {
				return strconv.FormatInt(v, 10)
			}
		}
	}
	return earliest(lower, incomePhrases)
}

func incomeAmount(number, suffix string) int64 {
	f, err := strconv.ParseFloat(strings.ReplaceAll(number, ",", ""), 64)
	if err != nil {
		return 0
	}
	switch suffix {
	case "k":
		f *= 1_000
	case "m":
		f *= 1_000_000
	}
	return int64(f)
}

func (p *RulesParser) extractMarkets(original, lower string) []string {
	type hit struct {
		pos  int
		code string
	}
	var hits []hit

	// Upper-case codes are matched against the original text so that the
	// pronoun "us" is not read as the United States.
	for _, loc := range marketCodeRe.FindAllStringIndex(original, -1) {
		code := original[loc[0]:loc[1]]
		if estimation.IsSupportedMarket(code) {
			hits = append(hits, hit{pos: loc[0], code: code})
		}
	}
	for _, ph := range p.markets {
		if loc := ph.re.FindStringIndex(lower); loc != nil {
			hits = append(hits, hit{pos: loc[0], code: ph.value})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	var out []string
	seen := make(map[string]bool)
	for _, h := range hits {
		if !seen[h.code] {
			seen[h.code] = true
			out = append(out, h.code)
		}
	}
	return out
}

var marketCodeRe = regexp.MustCompile(`\b[A-Z]{2,3}\b`)

// earliest returns the value of the phrase that appears first in text.
func earliest(text string, phrases []phrase) string {
	best, value := -1, ""
	for _, ph := range phrases {
		loc := ph.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		// Ties go to the earlier table entry
		if best == -1 || loc[0] < best {
			best, value = loc[0], ph.value
		}
	}
	return value
}

// firstMatch returns the value of the first phrase, in table order, found in text.
func firstMatch(text string, phrases []phrase) string {
	for _, ph := range phrases {
		if ph.re.MatchString(text) {
			return ph.value
		}
	}
	return ""
}

// allMatches returns every distinct value found in text, ordered by position.
func allMatches(text string, phrases []phrase) []string {
	first := make(map[string]int)
	for _, ph := range phrases {
		loc := ph.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if pos, ok := first[ph.value]; !ok || loc[0] < pos {
			first[ph.value] = loc[0]
		}
	}
	values := make([]string, 0, len(first))
	for v := range first {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		if first[values[i]] != first[values[j]] {
			return first[values[i]] < first[values[j]]
		}
		return values[i] < values[j]
	})
	return values
}

// suggestionsFor proposes refinements for the dimensions a query left open.
func suggestionsFor(mentioned map[string]bool, hasMarkets bool) []string {
	var out []string
	if !hasMarkets {
		out = append(out, "Name one or more target markets (e.g. US, UK); the estimate defaults to Global")
	}
	if !mentioned[estimation.DimensionAge] {
		out = append(out, "Add an age range such as 25-34 to tighten the estimate")
	}
	if !mentioned[estimation.DimensionInterests] {
		out = append(out, "Add interests such as gaming or travel to focus the audience")
	}
	if !mentioned[estimation.DimensionIncome] {
		out = append(out, "Set a minimum household income (e.g. $75k+) for purchasing-power targeting")
	}
	if !mentioned[estimation.DimensionLocationType] {
		out = append(out, "Narrow by location type: urban, suburban or rural")
	}
	if !mentioned[estimation.DimensionGender] {
		out = append(out, "Specify a gender if the product skews toward one")
	}
	return out
}

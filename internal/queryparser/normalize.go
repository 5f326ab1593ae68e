package queryparser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ignite/audience-estimator/internal/estimation"
)

// maxSuggestions caps the refinement ideas returned to callers.
const maxSuggestions = 5

// marketAliases maps lower-cased country names to market codes.
var marketAliases = map[string]string{
	"global":               estimation.GlobalMarket,
	"worldwide":            estimation.GlobalMarket,
	"united states":        "US",
	"usa":                  "US",
	"america":              "US",
	"united kingdom":       "UK",
	"britain":              "UK",
	"great britain":        "UK",
	"uk":                   "UK",
	"england":              "UK",
	"gb":                   "UK",
	"germany":              "DE",
	"france":               "FR",
	"japan":                "JP",
	"brazil":               "BR",
	"australia":            "AU",
	"canada":               "CA",
	"south korea":          "KR",
	"korea":                "KR",
	"netherlands":          "NL",
	"holland":              "NL",
	"spain":                "ES",
	"italy":                "IT",
	"india":                "IN",
	"china":                "CN",
	"mexico":               "MX",
	"singapore":            "SG",
	"hong kong":            "HK",
	"uae":                  "UAE",
	"united arab emirates": "UAE",
	"emirates":             "UAE",
	"dubai":                "UAE",
	"sweden":               "SE",
	"norway":               "NO",
	"denmark":              "DK",
	"poland":               "PL",
	"south africa":         "ZA",
	"argentina":            "AR",
}

// dimensionAliases maps loose dimension names to engine dimensions.
var dimensionAliases = map[string]string{
	"location":         estimation.DimensionLocationType,
	"locationtype":     estimation.DimensionLocationType,
	"interest":         estimation.DimensionInterests,
	"sex":              estimation.DimensionGender,
	"age_range":        estimation.DimensionAge,
	"age_band":         estimation.DimensionAge,
	"household_income": estimation.DimensionIncome,
}

// defaultOperators fills in a missing operator per dimension.
var defaultOperators = map[string]string{
	estimation.DimensionAge:       estimation.OperatorBetween,
	estimation.DimensionIncome:    estimation.OperatorGte,
	estimation.DimensionInterests: estimation.OperatorIn,
}

// CanonicalMarket resolves a market code or country name to a supported
// market code. The second result is false for anything unsupported.
func CanonicalMarket(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if code, ok := marketAliases[strings.ToLower(s)]; ok {
		return code, true
	}
	code := strings.ToUpper(s)
	if estimation.IsSupportedMarket(code) {
		return code, true
	}
	return "", false
}

// Normalize cleans a parse result in place and returns it: dimensions are
// lower-cased and de-aliased, empty criteria are dropped, unknown markets are
// dropped, markets are de-duplicated, and suggestions are trimmed and capped.
func Normalize(p *ParsedQuery) *ParsedQuery {
	criteria := make([]estimation.AttributeCriterion, 0, len(p.Criteria))
	for _, c := range p.Criteria {
		dim := strings.ToLower(strings.TrimSpace(c.Dimension))
		dim = strings.ReplaceAll(dim, " ", "_")
		if alias, ok := dimensionAliases[dim]; ok {
			dim = alias
		}
		value := normalizeValue(dim, c.Value)
		if dim == "" || value == "" {
			continue
		}
		op := strings.ToLower(strings.TrimSpace(c.Operator))
		if op == "" {
			op = defaultOperators[dim]
			if op == "" {
				op = estimation.OperatorIs
			}
		}
		criteria = append(criteria, estimation.AttributeCriterion{Dimension: dim, Operator: op, Value: value})
	}
	p.Criteria = criteria

	markets := make([]string, 0, len(p.Markets))
	seen := make(map[string]bool)
	for _, m := range p.Markets {
		code, ok := CanonicalMarket(m)
		if !ok || seen[code] {
			continue
		}
		seen[code] = true
		markets = append(markets, code)
	}
	p.Markets = markets

	suggestions := make([]string, 0, len(p.Suggestions))
	seenSuggestion := make(map[string]bool)
	for _, s := range p.Suggestions {
		s = strings.TrimSpace(s)
		if s == "" || seenSuggestion[s] {
			continue
		}
		seenSuggestion[s] = true
		suggestions = append(suggestions, s)
		if len(suggestions) == maxSuggestions {
			break
		}
	}
	p.Suggestions = suggestions

	return p
}

func normalizeValue(dim, value string) string {
	value = strings.TrimSpace(value)
	switch dim {
	case estimation.DimensionGender, estimation.DimensionLocationType:
		return strings.ToLower(value)
	case estimation.DimensionEducation:
		return strings.ReplaceAll(strings.ToLower(value), " ", "_")
	case estimation.DimensionAge:
		return strings.ReplaceAll(value, " ", "")
	case estimation.DimensionIncome:
		return strings.NewReplacer("$", "", ",", "").Replace(value)
	case estimation.DimensionInterests:
		var tokens []string
		for _, tok := range strings.Split(value, ",") {
			tok = strings.ToLower(strings.TrimSpace(tok))
			if tok == "" {
				continue
			}
			tokens = append(tokens, strings.ReplaceAll(tok, " ", "_"))
		}
		return strings.Join(tokens, ",")
	}
	return value
}

// ExtractJSON returns the first balanced JSON object in text. Markdown code
// fences and surrounding prose are ignored.
func ExtractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrUnparseableResponse
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", ErrUnparseableResponse
}

// modelReply is the loose shape models answer with. Values may arrive as
// strings, numbers or arrays of either.
type modelReply struct {
	Criteria []struct {
		Dimension string          `json:"dimension"`
		Operator  string          `json:"operator"`
		Value     json.RawMessage `json:"value"`
	} `json:"criteria"`
	Markets     []string `json:"markets"`
	Suggestions []string `json:"suggestions"`
}

// DecodeReply turns a model's raw text reply into a normalized ParsedQuery.
func DecodeReply(text, source string) (*ParsedQuery, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var reply modelReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableResponse, err)
	}

	p := &ParsedQuery{
		Markets:     reply.Markets,
		Suggestions: reply.Suggestions,
		Source:      source,
	}
	for _, c := range reply.Criteria {
		p.Criteria = append(p.Criteria, estimation.AttributeCriterion{
			Dimension: c.Dimension,
			Operator:  c.Operator,
			Value:     replyValue(c.Value),
		})
	}
	return Normalize(p), nil
}

func replyValue(raw json.RawMessage) string {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, replyValue(item))
		}
		return strings.Join(parts, ",")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" || strings.HasPrefix(trimmed, "{") {
		return ""
	}
	return trimmed
}

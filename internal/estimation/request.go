package estimation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeRequest validates a detailed-estimate request body.
//
// A missing "attributes" key means no filters and a missing "markets" key
// means Global. A present but non-array "attributes" (including null) yields
// ErrAttributesNotArray; a non-array or empty "markets" yields
// ErrMarketsRequired. Entries of "markets" that are not strings are absorbed
// by the Global fallback. Any other malformed input, including a body that is
// not a JSON object, returns a wrapped decode error, which callers treat as an
// internal failure.
func DecodeRequest(body []byte) ([]AttributeCriterion, []string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, nil, fmt.Errorf("decode estimate request: %w", err)
	}

	attributes := []AttributeCriterion{}
	if raw, ok := fields["attributes"]; ok {
		if !isJSONArray(raw) {
			return nil, nil, ErrAttributesNotArray
		}
		if err := json.Unmarshal(raw, &attributes); err != nil {
			return nil, nil, fmt.Errorf("decode attributes: %w", err)
		}
	}

	markets := []string{GlobalMarket}
	if raw, ok := fields["markets"]; ok {
		if !isJSONArray(raw) {
			return nil, nil, ErrMarketsRequired
		}
		var entries []json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, nil, fmt.Errorf("decode markets: %w", err)
		}
		if len(entries) == 0 {
			return nil, nil, ErrMarketsRequired
		}
		markets = make([]string, len(entries))
		for i, entry := range entries {
			markets[i] = marketCode(entry)
		}
	}

	return attributes, markets, nil
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// UnmarshalJSON accepts numbers and booleans for any field so that clients
// sending {"value": 50000} get the same treatment as {"value": "50000"}.
func (a *AttributeCriterion) UnmarshalJSON(data []byte) error {
	var raw struct {
		Dimension json.RawMessage `json:"dimension"`
		Operator  json.RawMessage `json:"operator"`
		Value     json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var err error
	if a.Dimension, err = scalarString(raw.Dimension); err != nil {
		return fmt.Errorf("dimension: %w", err)
	}
	if a.Operator, err = scalarString(raw.Operator); err != nil {
		return fmt.Errorf("operator: %w", err)
	}
	if a.Value, err = scalarString(raw.Value); err != nil {
		return fmt.Errorf("value: %w", err)
	}
	return nil
}

// marketCode reads one markets entry. Numbers and booleans keep their literal
// text and objects or arrays become Global; either way an unusable code is
// sized with the Global profile instead of failing the request.
func marketCode(raw json.RawMessage) string {
	code, err := scalarString(raw)
	if err != nil {
		return GlobalMarket
	}
	return code
}

func scalarString(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return "", nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", fmt.Errorf("expected scalar, got %s", trimmed)
	default:
		return string(trimmed), nil
	}
}

// QuickAttributes builds the filters of the GET quick estimate. Each non-empty
// parameter contributes exactly one attribute.
func QuickAttributes(age, income, location string) []AttributeCriterion {
	attrs := []AttributeCriterion{}
	if age != "" {
		attrs = append(attrs, AttributeCriterion{Dimension: DimensionAge, Operator: OperatorBetween, Value: age})
	}
	if income != "" {
		attrs = append(attrs, AttributeCriterion{Dimension: DimensionIncome, Operator: OperatorGte, Value: income})
	}
	if location != "" {
		attrs = append(attrs, AttributeCriterion{Dimension: DimensionLocationType, Operator: OperatorIs, Value: location})
	}
	return attrs
}

// ParseMarketList splits a comma separated market list, trimming whitespace
// and dropping empty entries. An empty list defaults to Global.
func ParseMarketList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if m := strings.TrimSpace(part); m != "" {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return []string{GlobalMarket}
	}
	return out
}

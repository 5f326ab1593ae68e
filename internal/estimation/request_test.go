package estimation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest_Defaults(t *testing.T) {
	attrs, markets, err := DecodeRequest([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, attrs)
	assert.NotNil(t, attrs)
	assert.Equal(t, []string{"Global"}, markets)
}

func TestDecodeRequest_Valid(t *testing.T) {
	body := `{
		"attributes": [
			{"dimension": "age", "operator": "between", "value": "25-34"},
			{"dimension": "income", "operator": "gte", "value": 75000}
		],
		"markets": ["US", "UK"]
	}`
	attrs, markets, err := DecodeRequest([]byte(body))
	require.NoError(t, err)
	require.Len(t, attrs, 2)
	assert.Equal(t, AttributeCriterion{Dimension: "age", Operator: "between", Value: "25-34"}, attrs[0])
	assert.Equal(t, "75000", attrs[1].Value)
	assert.Equal(t, []string{"US", "UK"}, markets)
}

func TestDecodeRequest_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"attributes string", `{"attributes": "not-an-array"}`, ErrAttributesNotArray},
		{"attributes object", `{"attributes": {"dimension": "age"}}`, ErrAttributesNotArray},
		{"attributes null", `{"attributes": null}`, ErrAttributesNotArray},
		{"markets empty", `{"markets": []}`, ErrMarketsRequired},
		{"markets string", `{"markets": "US"}`, ErrMarketsRequired},
		{"markets null", `{"attributes": [], "markets": null}`, ErrMarketsRequired},
		{"attributes checked first", `{"attributes": 1, "markets": []}`, ErrAttributesNotArray},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeRequest([]byte(tt.body))
			require.ErrorIs(t, err, tt.want)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestDecodeRequest_MalformedIsInternal(t *testing.T) {
	for _, body := range []string{``, `{`, `[1,2]`, `{"attributes": [{"value": {"a": 1}}]}`} {
		_, _, err := DecodeRequest([]byte(body))
		require.Error(t, err, body)
		assert.False(t, IsValidationError(err), body)
	}
}

func TestDecodeRequest_ArrayBodyIsInternal(t *testing.T) {
	_, _, err := DecodeRequest([]byte(`[]`))
	require.Error(t, err)
	assert.False(t, IsValidationError(err))
}

func TestDecodeRequest_NonStringMarketsFallBack(t *testing.T) {
	_, markets, err := DecodeRequest([]byte(`{"markets": [1, "US", null, true, {"code": "UK"}, ["DE"]]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "US", "", "true", GlobalMarket, GlobalMarket}, markets)

	// Unknown codes size as Global.
	calc := NewCalculator(FixedRand(0.5))
	for _, m := range []string{"1", "", "true"} {
		assert.Equal(t, calc.MarketSize(GlobalMarket, nil), calc.MarketSize(m, nil), m)
	}
}

func TestQuickAttributes(t *testing.T) {
	assert.Empty(t, QuickAttributes("", "", ""))

	attrs := QuickAttributes("25-34", "", "urban")
	assert.Equal(t, []AttributeCriterion{
		{Dimension: "age", Operator: "between", Value: "25-34"},
		{Dimension: "location_type", Operator: "is", Value: "urban"},
	}, attrs)

	attrs = QuickAttributes("", "50000", "")
	assert.Equal(t, []AttributeCriterion{{Dimension: "income", Operator: "gte", Value: "50000"}}, attrs)
}

func TestParseMarketList(t *testing.T) {
	assert.Equal(t, []string{"Global"}, ParseMarketList(""))
	assert.Equal(t, []string{"Global"}, ParseMarketList(" , "))
	assert.Equal(t, []string{"US", "UK"}, ParseMarketList("US, UK"))
	assert.Equal(t, []string{"US", "XX"}, ParseMarketList("US,,XX,"))
}

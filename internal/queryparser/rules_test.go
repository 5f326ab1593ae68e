package queryparser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/audience-estimator/internal/estimation"
)

func criterion(dim, op, value string) estimation.AttributeCriterion {
	return estimation.AttributeCriterion{Dimension: dim, Operator: op, Value: value}
}

func parseRules(t *testing.T, query string) *ParsedQuery {
	t.Helper()
	p, err := NewRulesParser().Parse(context.Background(), query)
	require.NoError(t, err)
	return p
}

func TestRulesParser_Basic(t *testing.T) {
	p := parseRules(t, "urban millennials into gaming in the US")

	assert.Equal(t, []estimation.AttributeCriterion{
		criterion("age", "between", "25-34"),
		criterion("location_type", "is", "urban"),
		criterion("interests", "in", "gaming"),
	}, p.Criteria)
	assert.Equal(t, []string{"US"}, p.Markets)
	assert.Equal(t, SourceRules, p.Source)
	assert.Len(t, p.Suggestions, 2)
}

func TestRulesParser_RichQuery(t *testing.T) {
	p := parseRules(t, "Women aged 25-34 earning over $100k in Germany and France who love travel and yoga")

	assert.Equal(t, []estimation.AttributeCriterion{
		criterion("age", "between", "25-34"),
		criterion("gender", "is", "female"),
		criterion("income", "gte", "100000"),
		criterion("interests", "in", "travel,fitness"),
	}, p.Criteria)
	assert.Equal(t, []string{"DE", "FR"}, p.Markets)
}

func TestRulesParser_PronounIsNotAMarket(t *testing.T) {
	p := parseRules(t, "Show us parents who like cooking")
	assert.Empty(t, p.Markets)
	assert.Equal(t, []estimation.AttributeCriterion{
		criterion("interests", "in", "parenting,cooking"),
	}, p.Criteria)
	require.NotEmpty(t, p.Suggestions)
	assert.Contains(t, p.Suggestions[0], "Global")
}

func TestRulesParser_IncomeWords(t *testing.T) {
	p := parseRules(t, "professionals earning 75,000 or more")
	assert.Contains(t, p.Criteria, criterion("income", "gte", "75000"))

	p = parseRules(t, "affluent suburban families")
	assert.Contains(t, p.Criteria, criterion("income", "gte", "100000"))
	assert.Contains(t, p.Criteria, criterion("location_type", "is", "suburban"))
}

func TestRulesParser_AgePlusAndEducation(t *testing.T) {
	p := parseRules(t, "Men and women over 55 in rural areas with a PhD")
	assert.Equal(t, []estimation.AttributeCriterion{
		criterion("age", "between", "55+"),
		criterion("location_type", "is", "rural"),
		criterion("education", "is", "doctorate"),
	}, p.Criteria)
}

func TestRulesParser_MoneyRangeIsNotAge(t *testing.T) {
	p := parseRules(t, "households with $50-75k budgets")
	for _, c := range p.Criteria {
		assert.NotEqual(t, "age", c.Dimension)
	}
}

func TestRulesParser_EmptyQuery(t *testing.T) {
	_, err := NewRulesParser().Parse(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestRulesParser_Deterministic(t *testing.T) {
	q := "tech savvy gen z gamers and crypto investors in the UK, US and Japan"
	first := parseRules(t, q)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, parseRules(t, q))
	}
	assert.Equal(t, []string{"UK", "US", "JP"}, first.Markets)
}

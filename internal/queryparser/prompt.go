package queryparser

import (
	"fmt"
	"sync"

	"github.com/osteele/liquid"

	"github.com/ignite/audience-estimator/internal/estimation"
)

// systemPrompt is sent as the system role where the provider supports one.
const systemPrompt = "You are an audience targeting assistant for a market research panel. Reply with a single JSON object and nothing else."

const audiencePromptTemplate = `Convert the audience description below into targeting criteria for an audience size estimator.

Audience description:
"""
{{ query }}
"""

Reply with ONLY a JSON object of this shape:
{"criteria":[{"dimension":"...","operator":"...","value":"..."}],"markets":["..."],"suggestions":["..."]}

Dimensions and accepted values:
- age (operator "between"): one of {{ age_bands | join: ", " }}
- gender (operator "is"): male, female, non-binary
- income (operator "gte"): minimum yearly household income in USD as a plain integer, for example 75000
- location_type (operator "is"): one of {{ location_types | join: ", " }}
- education (operator "is"): one of {{ education_levels | join: ", " }}
- interests (operator "in"): comma separated, chosen from {{ interests | join: ", " }}

Only include a dimension when the description implies it.
Markets must be codes from this list: {{ markets | join: ", " }}. Leave markets empty when none is mentioned.
Suggestions: at most {{ max_suggestions }} short ideas for refining this audience.`

var (
	promptOnce sync.Once
	promptTpl  *liquid.Template
	promptErr  error
)

// RenderPrompt fills the shared model prompt for query.
func RenderPrompt(query string) (string, error) {
	promptOnce.Do(func() {
		engine := liquid.NewEngine()
		tpl, err := engine.ParseString(audiencePromptTemplate)
		if err != nil {
			promptErr = fmt.Errorf("parse prompt template: %w", err)
			return
		}
		promptTpl = tpl
	})
	if promptErr != nil {
		return "", promptErr
	}

	out, err := promptTpl.RenderString(liquid.Bindings{
		"query":            query,
		"age_bands":        estimation.AgeBands(),
		"location_types":   estimation.LocationTypes(),
		"education_levels": estimation.EducationLevels(),
		"interests":        estimation.Interests(),
		"markets":          estimation.SupportedMarkets(),
		"max_suggestions":  maxSuggestions,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return out, nil
}

// Package queryparser turns a free-text audience description into structured
// targeting criteria and sizes the result with the estimation engine.
//
// A deterministic keyword parser is always available. Hosted model providers
// (Bedrock, Gemini, OpenAI) share one Liquid prompt and one reply decoder, and
// fall back to the keyword parser when they fail. Parsed criteria can be
// cached in Redis; estimates never are, so every build draws fresh variance.
package queryparser

// Package query classifies a free-text question into one of a few intents.
package query

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Intent is the classified purpose of a question.
type Intent string

const (
	IntentRainfallCompare Intent = "rainfall_compare"
	IntentTopCrops        Intent = "top_crops"
	IntentUnknown         Intent = "unknown"
)

// Rule selects Intent when every keyword occurs in the normalized question.
type Rule struct {
	Intent   Intent
	Keywords []string
}

// Matches reports whether every keyword is a substring of q.
func (r Rule) Matches(q string) bool {
	for _, k := range r.Keywords {
		if !strings.Contains(q, k) {
			return false
		}
	}
	return true
}

// DefaultRules are evaluated in order; the first match wins.
var DefaultRules = []Rule{
	{Intent: IntentRainfallCompare, Keywords: []string{"compare", "rainfall"}},
	{Intent: IntentTopCrops, Keywords: []string{"top", "crop"}},
}

// Classifier evaluates an ordered rule table.
type Classifier struct {
	rules []Rule
}

// NewClassifier copies rules so later edits by the caller have no effect.
func NewClassifier(rules ...Rule) *Classifier {
	return &Classifier{rules: append([]Rule(nil), rules...)}
}

// Classify returns the intent of the first matching rule, or IntentUnknown.
func (c *Classifier) Classify(q string) Intent {
	for _, r := range c.rules {
		if r.Matches(q) {
			return r.Intent
		}
	}
	return IntentUnknown
}

var defaultClassifier = NewClassifier(DefaultRules...)

// Classify runs the default rule table against a normalized question.
func Classify(q string) Intent {
	return defaultClassifier.Classify(q)
}

// Normalize lower-cases the raw question. No other cleanup is applied.
// A Caser is stateful, so one is built per call.
func Normalize(raw string) string {
	return cases.Lower(language.Und).String(raw)
}

var yearRe = regexp.MustCompile(`\d{4}`)

// ExtractYear returns the first run of four digits in q. The value is not
// checked against any calendar range.
func ExtractYear(q string) (int, bool) {
	m := yearRe.FindString(q)
	if m == "" {
		return 0, false
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return y, true
}

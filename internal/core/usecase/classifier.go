package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tutorly/mathrag/internal/core/domain"
)

// ClassifiedQuery is what the classifier learned about one query
// string before retrieval runs.
type ClassifiedQuery struct {
	Query        string
	Intent       domain.QueryIntent
	EntityNumber string
	RangeStart   int
	RangeEnd     int
}

// HasEntity reports whether the query names a specific numbered item.
func (q ClassifiedQuery) HasEntity() bool {
	return q.EntityNumber != ""
}

// HasRange reports whether the query spans a numbered range.
func (q ClassifiedQuery) HasRange() bool {
	return q.RangeEnd > 0
}

var (
	entityRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bexample\s+(\d+(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)\bex\.?\s*(\d+(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)\bexercise\s+(\d+(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)\bquestion\s+(\d+(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)\bq\.?\s*(\d+(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)\bproblem\s+(\d+(?:\.\d+)?)`),
	}

	rangeWordRe = regexp.MustCompile(`(?i)\b(?:examples?|exercises?|questions?|problems?)\s+(\d+)\s+(?:to|through|-)\s+(\d+)`)
	rangeDashRe = regexp.MustCompile(`(?i)\b(?:examples?|exercises?|questions?|problems?)\s+(\d+)\s*-\s*(\d+)`)
)

var intentKeywords = []struct {
	intent domain.QueryIntent
	words  []string
}{
	{domain.IntentDefinition, []string{"what is", "define", "meaning of", "definition"}},
	{domain.IntentTheorem, []string{"theorem", "prove", "proof"}},
	{domain.IntentFormula, []string{"formula", "equation", "expression"}},
	{domain.IntentExample, []string{"example", "demonstrate", "illustrate"}},
	{domain.IntentExercise, []string{"solve", "exercise", "problem", "question"}},
}

// QueryClassifier derives an intent and any numbered-entity reference
// from raw query text. Classification is pure string work; misreads
// only shift retrieval weights, they never fail a query.
type QueryClassifier struct {
	rangeCap int
}

func NewQueryClassifier(rangeCap int) *QueryClassifier {
	if rangeCap <= 0 {
		rangeCap = 10
	}
	return &QueryClassifier{rangeCap: rangeCap}
}

// Classify inspects the query once. First keyword family hit wins the
// intent; ranges win over single entities so "examples 2 to 5" does
// not read as entity "2".
func (c *QueryClassifier) Classify(query string) ClassifiedQuery {
	out := ClassifiedQuery{
		Query:  query,
		Intent: domain.IntentConcept,
	}

	lower := strings.ToLower(query)
	for _, family := range intentKeywords {
		for _, w := range family.words {
			if strings.Contains(lower, w) {
				out.Intent = family.intent
				break
			}
		}
		if out.Intent != domain.IntentConcept {
			break
		}
	}

	if start, end, ok := c.extractRange(query); ok {
		out.RangeStart = start
		out.RangeEnd = end
		return out
	}

	for _, re := range entityRes {
		if m := re.FindStringSubmatch(query); m != nil {
			out.EntityNumber = m[1]
			break
		}
	}
	return out
}

// extractRange pulls a numbered range, swapping reversed bounds and
// clamping the span to the configured cap.
func (c *QueryClassifier) extractRange(query string) (int, int, bool) {
	m := rangeWordRe.FindStringSubmatch(query)
	if m == nil {
		m = rangeDashRe.FindStringSubmatch(query)
	}
	if m == nil {
		return 0, 0, false
	}

	start, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	end, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	if start > end {
		start, end = end, start
	}
	if start <= 0 {
		return 0, 0, false
	}
	if end-start+1 > c.rangeCap {
		end = start + c.rangeCap - 1
	}
	return start, end, true
}

package chunking

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tutorly/mathrag/internal/core/domain"
)

var (
	latexCommandRe = regexp.MustCompile(`\\(int|sum|prod|lim|frac|sqrt|partial|nabla|infty|alpha|beta|gamma|delta|theta|lambda|mu|sigma|pi|omega|sin|cos|tan|log|ln|exp|det|dim|ker|max|min)\b`)
	mathSymbolRe   = regexp.MustCompile(`[∫∑∏√∞∂∇αβγδθλμσπω≤≥≠≈∈∉⊂⊃∪∩×÷±∓→←↔⇒⇐⇔]`)

	displayEquationRe = regexp.MustCompile(`(?s)\$\$(.*?)\$\$`)
	inlineEquationRe  = regexp.MustCompile(`\$([^$\n]+)\$`)

	definitionRe = regexp.MustCompile(`(?i)\bdefinition\b|\bdefine\b|\bdef\.`)
	theoremRe    = regexp.MustCompile(`(?i)\btheorem\b|\bthm\.|\blemma\b|\bcorollary\b`)
	proofRe      = regexp.MustCompile(`(?i)\bproof\b|\bprove\b|\bq\.e\.d\b|\bhence proved\b|\btherefore proved\b`)
	derivationRe = regexp.MustCompile(`(?i)\bderive\b|\bderivation\b|\bstep \d+\b|\bsubstituting\b|\bsimplifying\b|\bon solving\b`)
	exampleRe    = regexp.MustCompile(`(?i)\bexample\b|\bex\.`)
	exerciseRe   = regexp.MustCompile(`(?i)\bexercise\b|\bquestion\b|\bq\.|\bproblem\b`)
	solutionRe   = regexp.MustCompile(`(?i)\bsolution\b|\bsol\.|\banswer\b`)
	formulaRe    = regexp.MustCompile(`(?i)\bformula\b`)
)

// detectContentKind classifies free text into a content kind. Order
// matters: definitional markers beat the weaker proof/derivation cues.
func detectContentKind(text string) domain.ContentKind {
	switch {
	case definitionRe.MatchString(text):
		return domain.KindDefinition
	case theoremRe.MatchString(text):
		return domain.KindTheorem
	case formulaRe.MatchString(text):
		return domain.KindFormula
	case exampleRe.MatchString(text):
		return domain.KindExample
	case exerciseRe.MatchString(text):
		return domain.KindExercise
	case solutionRe.MatchString(text):
		return domain.KindSolution
	case proofRe.MatchString(text):
		return domain.KindProof
	case derivationRe.MatchString(text) || strings.Count(text, "=") >= 3:
		return domain.KindDerivation
	default:
		return domain.KindText
	}
}

// extractEquations lifts display and inline LaTeX spans out of text.
func extractEquations(text string) []domain.Equation {
	var out []domain.Equation
	seq := 0

	for _, m := range displayEquationRe.FindAllStringSubmatch(text, -1) {
		seq++
		body := strings.TrimSpace(m[1])
		out = append(out, domain.Equation{
			ID:        fmt.Sprintf("eq_%d", seq),
			LaTeX:     body,
			Original:  m[0],
			Inline:    false,
			Multiline: strings.Contains(body, "\n") || strings.Contains(body, `\\`),
		})
	}
	stripped := displayEquationRe.ReplaceAllString(text, "")
	for _, m := range inlineEquationRe.FindAllStringSubmatch(stripped, -1) {
		seq++
		out = append(out, domain.Equation{
			ID:       fmt.Sprintf("eq_%d", seq),
			LaTeX:    strings.TrimSpace(m[1]),
			Original: m[0],
			Inline:   true,
		})
	}
	return out
}

// mathDensity scores how math-heavy a text span is, in [0,1].
func mathDensity(text string) float64 {
	if text == "" {
		return 0
	}

	mathChars := 0
	mathChars += len(latexCommandRe.FindAllString(text, -1)) * 5
	mathChars += len(mathSymbolRe.FindAllString(text, -1)) * 2
	for _, m := range displayEquationRe.FindAllStringSubmatch(text, -1) {
		mathChars += len(m[1])
	}
	for _, m := range inlineEquationRe.FindAllStringSubmatch(text, -1) {
		mathChars += len(m[1])
	}

	density := float64(mathChars) / float64(len(text))
	if density > 1 {
		return 1
	}
	return density
}

// estimateTokens approximates the embedding token count of text.
// Word count times 1.33 tracks English textbook prose closely enough
// for budgeting; exact tokenization is not required.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := int(float64(len(strings.Fields(text))) * 1.33)
	if n < 1 {
		n = 1
	}
	return n
}

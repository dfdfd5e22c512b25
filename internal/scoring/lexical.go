package scoring

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// DefaultLexicalConfidence is the score LexicalScorer assigns to a pair
// with mismatched polarity.
const DefaultLexicalConfidence = 0.9

var negationTokens = map[string]struct{}{
	"no":      {},
	"not":     {},
	"never":   {},
	"none":    {},
	"nothing": {},
	"nobody":  {},
	"neither": {},
	"nor":     {},
	"cannot":  {},
	"nope":    {},
}

// LexicalScorer flags a pair when exactly one text contains a negation.
type LexicalScorer struct {
	Confidence float64
}

// NewLexicalScorer returns a scorer emitting confidence for mismatched
// polarity. A non-positive confidence selects DefaultLexicalConfidence.
func NewLexicalScorer(confidence float64) *LexicalScorer {
	if confidence <= 0 {
		confidence = DefaultLexicalConfidence
	}
	return &LexicalScorer{Confidence: confidence}
}

// Score implements Scorer.
func (s *LexicalScorer) Score(ctx context.Context, a, b string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.negated(a) != s.negated(b) {
		return s.Confidence, nil
	}
	return 0, nil
}

func (s *LexicalScorer) negated(text string) bool {
	// A Caser carries state, so each call folds with a fresh one.
	folded := cases.Fold().String(text)
	words := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	for _, word := range words {
		word = strings.Trim(word, "'")
		if _, ok := negationTokens[word]; ok {
			return true
		}
		if strings.HasSuffix(word, "n't") {
			return true
		}
	}
	return false
}

package mood

import (
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodsplit/internal/shared"
)

// Matcher maps a raw candidate onto a member of the allowed set.
type Matcher interface {
	Match(candidate string, allowed Emotions) (string, bool)
}

// MatcherFunc adapts a function to [Matcher].
type MatcherFunc func(candidate string, allowed Emotions) (string, bool)

func (f MatcherFunc) Match(candidate string, allowed Emotions) (string, bool) {
	return f(candidate, allowed)
}

// ExactMatcher matches case-insensitively without any other folding.
func ExactMatcher() Matcher {
	return MatcherFunc(func(candidate string, allowed Emotions) (string, bool) {
		return allowed.Lookup(candidate)
	})
}

// FoldedMatcher compares candidates and labels after [Fold].
func FoldedMatcher() Matcher {
	return MatcherFunc(func(candidate string, allowed Emotions) (string, bool) {
		return foldedLookup(Fold(candidate), allowed)
	})
}

// SynonymMatcher translates the folded candidate through table and matches the result
// against the folded allowed labels.
func SynonymMatcher(table Synonyms) Matcher {
	return MatcherFunc(func(candidate string, allowed Emotions) (string, bool) {
		target, ok := table.Lookup(candidate)
		if !ok {
			return "", false
		}
		return foldedLookup(Fold(target), allowed)
	})
}

// ContainmentMatcher accepts the first allowed label that contains the candidate or is contained by it.
func ContainmentMatcher() Matcher {
	return MatcherFunc(func(candidate string, allowed Emotions) (string, bool) {
		folded := Fold(candidate)
		if folded == "" {
			return "", false
		}
		for _, label := range allowed {
			fl := Fold(label)
			if strings.Contains(folded, fl) || strings.Contains(fl, folded) {
				return label, true
			}
		}
		return "", false
	})
}

func foldedLookup(folded string, allowed Emotions) (string, bool) {
	for _, label := range allowed {
		if Fold(label) == folded {
			return label, true
		}
	}
	return "", false
}

// LabelNormalizer runs an ordered list of [Matcher] strategies and falls back to the first allowed label.
type LabelNormalizer struct {
	matchers []Matcher
	logger   *log.Logger
}

// NewLabelNormalizer builds the default cascade: exact, folded, synonyms, containment.
// Extra matchers run after containment and before the fallback.
func NewLabelNormalizer(synonyms Synonyms, extra ...Matcher) *LabelNormalizer {
	if synonyms == nil {
		synonyms = DefaultSynonyms()
	}
	matchers := []Matcher{ExactMatcher(), FoldedMatcher(), SynonymMatcher(synonyms), ContainmentMatcher()}
	return &LabelNormalizer{matchers: append(matchers, extra...), logger: shared.DiscardLogger()}
}

// WithLogger sets the logger used to report fallback substitutions.
func (n *LabelNormalizer) WithLogger(l *log.Logger) *LabelNormalizer {
	if l != nil {
		n.logger = l
	}
	return n
}

// Normalize always returns a member of allowed (or "" when allowed is empty).
func (n *LabelNormalizer) Normalize(candidate string, allowed Emotions) string {
	for _, m := range n.matchers {
		if label, ok := m.Match(candidate, allowed); ok {
			return label
		}
	}
	if strings.TrimSpace(candidate) != "" {
		n.logger.Debug("no label match, using fallback", "candidate", candidate, "fallback", allowed.Fallback())
	}
	return allowed.Fallback()
}

package mood

import (
	"slices"
	"strings"

	"github.com/desertthunder/moodsplit/internal/shared"
)

// Emotions is the ordered, lower-cased, de-duplicated set of allowed labels.
// The first element is the fallback label.
type Emotions []string

// NormalizeEmotions trims and lower-cases raw labels, dropping blanks and duplicates while keeping
// first-occurrence order. An empty result is a [shared.ValidationError].
func NormalizeEmotions(raw []string) (Emotions, error) {
	var out Emotions
	for _, e := range raw {
		cleaned := strings.ToLower(strings.TrimSpace(e))
		if cleaned == "" || slices.Contains(out, cleaned) {
			continue
		}
		out = append(out, cleaned)
	}

	if len(out) == 0 {
		return nil, shared.NewValidationError("emotions", "at least one emotion must be selected")
	}
	return out, nil
}

// Fallback returns the designated fallback label, or "" for an empty set.
func (e Emotions) Fallback() string {
	if len(e) == 0 {
		return ""
	}
	return e[0]
}

// Contains reports whether label is in the set (case-insensitive).
func (e Emotions) Contains(label string) bool {
	return slices.Contains(e, strings.ToLower(label))
}

// Lookup returns the first member of the set matching any of the given spellings.
func (e Emotions) Lookup(spellings ...string) (string, bool) {
	for _, s := range spellings {
		s = strings.ToLower(strings.TrimSpace(s))
		if slices.Contains(e, s) {
			return s, true
		}
	}
	return "", false
}

// String joins the labels with ", " as shown to the classifier.
func (e Emotions) String() string {
	return strings.Join(e, ", ")
}

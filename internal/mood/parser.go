package mood

import (
	"encoding/json"
	"fmt"
	"strings"
)

// labelListKeys are the object keys searched for the label list, in priority order.
var labelListKeys = []string{"labels", "results", "predictions", "output", "items"}

// labelFieldKeys are the per-item keys holding the label, in priority order.
var labelFieldKeys = []string{"label", "emotion", "category"}

// Parser recovers one allowed label per track from classifier output.
type Parser struct {
	normalizer *LabelNormalizer
}

// NewParser returns a Parser using n, or the default cascade when n is nil.
func NewParser(n *LabelNormalizer) *Parser {
	if n == nil {
		n = NewLabelNormalizer(nil)
	}
	return &Parser{normalizer: n}
}

// Parse returns exactly expected labels, each a member of allowed. It never fails.
func (p *Parser) Parse(raw string, allowed Emotions, expected int) []string {
	if expected < 0 {
		expected = 0
	}

	candidates := jsonCandidates(raw)
	if len(candidates) == 0 {
		candidates = splitCandidates(raw)
	}

	labels := make([]string, 0, expected)
	for _, c := range candidates {
		if len(labels) == expected {
			break
		}
		labels = append(labels, p.normalizer.Normalize(c, allowed))
	}
	for len(labels) < expected {
		labels = append(labels, allowed.Fallback())
	}
	return labels
}

// ExtractJSON returns the JSON-looking part of text: the whole trimmed text when it is
// wrapped in braces, otherwise the span from the first '{' to the last '}'.
// A bare top-level array of objects is cut to invalid JSON on purpose; such replies fall back to splitting.
func ExtractJSON(text string) string {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return ""
	}
	if strings.HasPrefix(cleaned, "{") && strings.HasSuffix(cleaned, "}") {
		return cleaned
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start != -1 && end > start {
		return cleaned[start : end+1]
	}
	return cleaned
}

func jsonCandidates(raw string) []string {
	payload := ExtractJSON(raw)
	if payload == "" {
		return nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return nil
	}

	var items []any
	switch v := decoded.(type) {
	case map[string]any:
		for _, key := range labelListKeys {
			if list, ok := v[key].([]any); ok {
				items = list
				break
			}
		}
	case []any:
		items = v
	}

	var out []string
	for _, item := range items {
		switch v := item.(type) {
		case map[string]any:
			if label := firstPresent(v, labelFieldKeys); label != "" {
				out = append(out, strings.ToLower(strings.TrimSpace(label)))
			}
		case string:
			out = append(out, strings.ToLower(strings.TrimSpace(v)))
		}
	}
	return out
}

// firstPresent returns the first non-empty value among keys, stringified.
func firstPresent(obj map[string]any, keys []string) string {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case nil:
			continue
		case string:
			if v != "" {
				return v
			}
		case bool:
			if v {
				return "true"
			}
		case float64:
			if v != 0 {
				return fmt.Sprint(v)
			}
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}

func splitCandidates(raw string) []string {
	var out []string
	for _, token := range strings.Split(strings.ReplaceAll(raw, "\n", ","), ",") {
		if t := strings.ToLower(strings.TrimSpace(token)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

package mood

import (
	"fmt"
	"maps"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Synonyms maps folded free-form words to allowed labels.
type Synonyms map[string]string

// DefaultSynonyms returns the built-in English/ASCII to Turkish label table.
func DefaultSynonyms() Synonyms {
	return Synonyms{
		"happy":       "mutlu",
		"joyful":      "mutlu",
		"sad":         "üzgün",
		"upset":       "üzgün",
		"melancholic": "üzgün",
		"energetic":   "enerjik",
		"energy":      "enerjik",
		"calm":        "sakin",
		"chill":       "sakin",
		"romantic":    "romantik",
		"cheerful":    "neşeli",
		"neseli":      "neşeli",
	}
}

// Lookup folds word before consulting the table.
func (s Synonyms) Lookup(word string) (string, bool) {
	target, ok := s[Fold(word)]
	return target, ok
}

// Merge returns a copy of s overlaid with other. Keys are folded.
func (s Synonyms) Merge(other Synonyms) Synonyms {
	out := maps.Clone(s)
	if out == nil {
		out = Synonyms{}
	}
	for k, v := range other {
		out[Fold(k)] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}

// SynonymEntry is one synonym definition loaded from YAML.
type SynonymEntry struct {
	Label string   `yaml:"label"`
	Words []string `yaml:"words"`
}

// SynonymFile is the on-disk synonym table.
//
//	synonyms:
//	  - label: mutlu
//	    words: [glad, upbeat]
type SynonymFile struct {
	Synonyms []SynonymEntry `yaml:"synonyms"`
}

// LoadSynonyms reads a YAML synonym file and merges it over [DefaultSynonyms].
// An empty path yields the defaults.
func LoadSynonyms(path string) (Synonyms, error) {
	defaults := DefaultSynonyms()
	if strings.TrimSpace(path) == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read synonyms: %w", err)
	}

	var file SynonymFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse synonyms yaml: %w", err)
	}

	extra := Synonyms{}
	for i, entry := range file.Synonyms {
		label := strings.TrimSpace(entry.Label)
		if label == "" {
			return nil, fmt.Errorf("parse synonyms yaml: entry %d has no label", i+1)
		}
		for _, w := range entry.Words {
			if strings.TrimSpace(w) != "" {
				extra[w] = label
			}
		}
	}
	return defaults.Merge(extra), nil
}

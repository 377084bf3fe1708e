package mood

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestParser(t *testing.T) {
	allowed := Emotions{"mutlu", "üzgün", "enerjik", "sakin"}
	p := NewParser(nil)

	tests := []struct {
		name     string
		raw      string
		expected int
		want     []string
	}{
		{
			name:     "Labels Object",
			raw:      `{"labels":[{"index":1,"label":"mutlu"},{"index":2,"label":"sakin"}]}`,
			expected: 2,
			want:     []string{"mutlu", "sakin"},
		},
		{
			name:     "Wrapped In Prose",
			raw:      "Here you go:\n```json\n{\"results\":[{\"emotion\":\"Üzgün\"},{\"category\":\"energetic\"}]}\n```",
			expected: 2,
			want:     []string{"üzgün", "enerjik"},
		},
		{
			name:     "Key Priority",
			raw:      `{"items":[{"label":"sakin"}],"labels":[{"label":"mutlu"}]}`,
			expected: 1,
			want:     []string{"mutlu"},
		},
		{
			name:     "Bare List",
			raw:      `["happy", "sad"]`,
			expected: 2,
			want:     []string{"mutlu", "üzgün"},
		},
		{
			name:     "Plain Text Fallback",
			raw:      "Uzgun\nchill, çok enerjik",
			expected: 3,
			want:     []string{"üzgün", "sakin", "enerjik"},
		},
		{
			name:     "Pads With Fallback",
			raw:      `{"labels":[{"label":"sakin"}]}`,
			expected: 3,
			want:     []string{"sakin", "mutlu", "mutlu"},
		},
		{
			name:     "Truncates",
			raw:      `{"labels":["sakin","sakin","enerjik"]}`,
			expected: 2,
			want:     []string{"sakin", "sakin"},
		},
		{
			name:     "Unknown Labels Fall Back",
			raw:      `{"labels":[{"label":"jazz"}]}`,
			expected: 1,
			want:     []string{"mutlu"},
		},
		{
			name:     "Unexpected Keys Split Raw Text",
			raw:      `{"foo": 1}`,
			expected: 1,
			want:     []string{"mutlu"},
		},
		{
			name:     "Empty",
			raw:      "",
			expected: 2,
			want:     []string{"mutlu", "mutlu"},
		},
		{
			name:     "Zero Expected",
			raw:      `{"labels":["sakin"]}`,
			expected: 0,
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse(tt.raw, allowed, tt.expected)
			if !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	t.Run("Always Exact Count Of Allowed Labels", func(t *testing.T) {
		inputs := []string{"", "garbage", "{", "}{", `{"labels": 3}`, `[1, 2, null]`, `{"labels":[{"label":null}]}`, "a,b,,c\n\n"}
		for _, raw := range inputs {
			for expected := 0; expected < 6; expected++ {
				got := p.Parse(raw, allowed, expected)
				if len(got) != expected {
					t.Fatalf("raw %q: expected %d labels, got %d", raw, expected, len(got))
				}
				for _, label := range got {
					if !allowed.Contains(label) {
						t.Fatalf("raw %q: label %q not allowed", raw, label)
					}
				}
			}
		}
	})

	t.Run("Negative Expected", func(t *testing.T) {
		if got := p.Parse("mutlu", allowed, -1); len(got) != 0 {
			t.Errorf("expected no labels, got %v", got)
		}
	})
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`  {"a":1}  `, `{"a":1}`},
		{`prefix {"a":{"b":2}} suffix`, `{"a":{"b":2}}`},
		{`[1,2]`, `[1,2]`},
		{`[{"label":"happy"},{"label":"sad"}]`, `{"label":"happy"},{"label":"sad"}`},
		{"", ""},
		{"no braces", "no braces"},
	}
	for _, tt := range tests {
		if got := ExtractJSON(tt.in); got != tt.want {
			t.Errorf("ExtractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLabelNormalizer(t *testing.T) {
	allowed := Emotions{"mutlu", "üzgün", "neşeli"}
	n := NewLabelNormalizer(nil)

	t.Run("Idempotent On Allowed Labels", func(t *testing.T) {
		for _, label := range allowed {
			if got := n.Normalize(label, allowed); got != label {
				t.Errorf("expected %q unchanged, got %q", label, got)
			}
		}
	})

	tests := []struct {
		name, in, want string
	}{
		{"Exact", "MUTLU", "mutlu"},
		{"Folded", "uzgun", "üzgün"},
		{"Synonym", "Cheerful", "neşeli"},
		{"Synonym Folded", "melancholic", "üzgün"},
		{"Containment", "biraz mutlu", "mutlu"},
		{"Reverse Containment", "mut", "mutlu"},
		{"Fallback", "jazz", "mutlu"},
		{"Blank", "  ", "mutlu"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Normalize(tt.in, allowed); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	t.Run("Synonym Targets Outside Allowed Set", func(t *testing.T) {
		if got := n.Normalize("calm", Emotions{"mutlu"}); got != "mutlu" {
			t.Errorf("expected fallback mutlu, got %q", got)
		}
	})

	t.Run("Extra Matcher Runs Before Fallback", func(t *testing.T) {
		custom := MatcherFunc(func(candidate string, allowed Emotions) (string, bool) {
			if candidate == "jazz" {
				return "neşeli", true
			}
			return "", false
		})
		n := NewLabelNormalizer(DefaultSynonyms(), custom)
		if got := n.Normalize("jazz", allowed); got != "neşeli" {
			t.Errorf("expected neşeli, got %q", got)
		}
	})
}

func TestLoadSynonyms(t *testing.T) {
	t.Run("Empty Path Returns Defaults", func(t *testing.T) {
		s, err := LoadSynonyms("")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got, _ := s.Lookup("happy"); got != "mutlu" {
			t.Errorf("expected happy -> mutlu, got %q", got)
		}
	})

	t.Run("File Merges Over Defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "synonyms.yaml")
		content := "synonyms:\n  - label: mutlu\n    words: [Upbeat, glad]\n  - label: sakin\n    words: [happy]\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		s, err := LoadSynonyms(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got, _ := s.Lookup("upbeat"); got != "mutlu" {
			t.Errorf("expected upbeat -> mutlu, got %q", got)
		}
		if got, _ := s.Lookup("happy"); got != "sakin" {
			t.Errorf("expected override happy -> sakin, got %q", got)
		}
		if got, _ := s.Lookup("sad"); got != "üzgün" {
			t.Errorf("expected default sad -> üzgün, got %q", got)
		}
	})

	t.Run("Missing Label", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "synonyms.yaml")
		os.WriteFile(path, []byte("synonyms:\n  - words: [x]\n"), 0644)
		if _, err := LoadSynonyms(path); err == nil {
			t.Error("expected error for entry without label")
		}
	})

	t.Run("Invalid YAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "synonyms.yaml")
		os.WriteFile(path, []byte("synonyms: [\n"), 0644)
		if _, err := LoadSynonyms(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("Missing File", func(t *testing.T) {
		if _, err := LoadSynonyms(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected read error")
		}
	})
}

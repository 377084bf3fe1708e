package mood

import (
	"strings"
	"testing"

	"github.com/desertthunder/moodsplit/internal/models"
)

func TestBuildPrompt(t *testing.T) {
	tracks := []models.Track{
		{
			Name:   "Gece",
			Artist: "Duman",
			AudioFeatures: &models.AudioFeatures{
				Valence: 0.2, Energy: 0.31, Danceability: 0.5, Acousticness: 0.7, Instrumentalness: 0, Tempo: 92.5,
			},
		},
		{Name: "Local File", Artist: "Bilinmeyen"},
	}
	batch := PlanBatches(tracks, 20)[0]
	prompt := BuildPrompt(batch, Emotions{"mutlu", "üzgün"})

	expects := []string{
		"Allowed labels: mutlu, üzgün",
		"You must return exactly 2 items.",
		"Keep song order exactly the same.",
		"Never invent labels outside allowed list.",
		ResponseSchema,
		"1. Gece - Duman | valence=0.2, energy=0.31, danceability=0.5, acousticness=0.7, instrumentalness=0, tempo=92.5",
		"2. Local File - Bilinmeyen | " + NoFeaturesMarker,
	}
	for _, want := range expects {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected prompt to contain %q\n%s", want, prompt)
		}
	}

	if again := BuildPrompt(batch, Emotions{"mutlu", "üzgün"}); again != prompt {
		t.Error("expected prompt building to be deterministic")
	}
}

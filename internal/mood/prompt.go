package mood

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/moodsplit/internal/models"
)

// NoFeaturesMarker replaces the feature hint for tracks without audio features.
const NoFeaturesMarker = "no-audio-features"

// ResponseSchema is the JSON shape the classifier is asked to return.
const ResponseSchema = `{"labels": [{"index": 1, "label": "<allowed_label>", "confidence": 0.00, "reason": "short"}]}`

// BuildPrompt renders the classification instruction for one batch.
func BuildPrompt(batch Batch, emotions Emotions) string {
	lines := []string{
		"You are an expert music mood classifier.",
		"Classify each song into exactly one allowed mood label.",
		"Accuracy is critical. Keep song order exactly the same.",
		"Never invent labels outside allowed list.",
		"",
		"Allowed labels: " + emotions.String(),
		fmt.Sprintf("You must return exactly %d items.", len(batch.Tracks)),
		"",
		"Return ONLY JSON in this schema:",
		ResponseSchema,
		"",
		"Use title + artist + audio feature hints.",
		"Songs:",
	}

	for i, track := range batch.Tracks {
		lines = append(lines, fmt.Sprintf("%d. %s - %s | %s", i+1, track.Name, track.Artist, FeatureHint(track.AudioFeatures)))
	}

	return strings.Join(lines, "\n")
}

// FeatureHint renders the features the classifier is told to weigh.
func FeatureHint(f *models.AudioFeatures) string {
	if f == nil {
		return NoFeaturesMarker
	}

	pairs := []struct {
		name  string
		value float64
	}{
		{"valence", f.Valence},
		{"energy", f.Energy},
		{"danceability", f.Danceability},
		{"acousticness", f.Acousticness},
		{"instrumentalness", f.Instrumentalness},
		{"tempo", f.Tempo},
	}

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.name + "=" + strconv.FormatFloat(p.value, 'f', -1, 64)
	}
	return strings.Join(parts, ", ")
}

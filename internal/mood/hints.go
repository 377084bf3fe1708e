package mood

import "github.com/desertthunder/moodsplit/internal/models"

// Label names the audio hints know about.
const (
	LabelEnergetic = "enerjik"
	LabelSad       = "üzgün"
	LabelSadASCII  = "uzgun"
	LabelCalm      = "sakin"
	LabelHappy     = "mutlu"
	LabelRomantic  = "romantik"
	LabelCheerful  = "neşeli"
)

type hintRule struct {
	spellings []string
	match     func(valence, energy float64) bool
}

// hintRules are checked in order; the first rule whose label is allowed and whose thresholds hold wins.
var hintRules = []hintRule{
	{[]string{LabelEnergetic}, func(_, e float64) bool { return e >= 0.72 }},
	{[]string{LabelSad, LabelSadASCII}, func(v, e float64) bool { return v <= 0.35 && e <= 0.55 }},
	{[]string{LabelCalm}, func(_, e float64) bool { return e <= 0.40 }},
	{[]string{LabelHappy}, func(v, _ float64) bool { return v >= 0.65 }},
	{[]string{LabelRomantic}, func(v, e float64) bool { return v >= 0.45 && v <= 0.75 && e <= 0.60 }},
	{[]string{LabelCheerful}, func(v, e float64) bool { return v >= 0.58 && e >= 0.45 }},
}

// FallbackLabel picks a label from valence and energy alone. Tracks without audio
// features, or matching no rule, get defaultLabel.
func FallbackLabel(track models.Track, allowed Emotions, defaultLabel string) string {
	f := track.AudioFeatures
	if f == nil {
		return defaultLabel
	}

	for _, rule := range hintRules {
		label, ok := allowed.Lookup(rule.spellings...)
		if ok && rule.match(f.Valence, f.Energy) {
			return label
		}
	}
	return defaultLabel
}

// Adjust overrides a classifier label that strongly contradicts the audio signal:
// a low-valence low-energy "mutlu" becomes sad (or calm), and a high-valence high-energy
// sad label becomes "mutlu" (or energetic). Other labels pass through.
func Adjust(track models.Track, label string, allowed Emotions) string {
	f := track.AudioFeatures
	if f == nil {
		return label
	}

	switch label {
	case LabelHappy:
		if f.Valence < 0.35 && f.Energy < 0.45 {
			if l, ok := allowed.Lookup(LabelSad, LabelSadASCII); ok {
				return l
			}
			if l, ok := allowed.Lookup(LabelCalm); ok {
				return l
			}
		}
	case LabelSad, LabelSadASCII:
		if f.Valence > 0.65 && f.Energy > 0.55 {
			if l, ok := allowed.Lookup(LabelHappy); ok {
				return l
			}
			if l, ok := allowed.Lookup(LabelEnergetic); ok {
				return l
			}
		}
	}
	return label
}

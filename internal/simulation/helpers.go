package simulation

import (
	"math/rand"
	"strings"
	"unicode/utf8"
)

const (
	emotionPositive = "positive"
	emotionNeutral  = "neutral"
	emotionNegative = "negative"
)

// emotionFromMood maps the numeric mood onto the emotion tag stored with
// memories.
func emotionFromMood(mood float64) string {
	if mood >= 0.7 {
		return emotionPositive
	}
	if mood >= 0.4 {
		return emotionNeutral
	}
	return emotionNegative
}

func clampMood(v float64) float64 { return clamp(v, 0.0, 1.0) }

func clampEnergy(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// uniform draws from [lo, hi).
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// randBetween draws an integer from [lo, hi] inclusive.
func randBetween(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo+1)
}

// truncate caps s at n bytes without splitting a multibyte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// extractQuoted pulls the quoted message text out of an event description
// like `Neo replied to Trinity: "hello"`. Descriptions without that shape
// come back unchanged.
func extractQuoted(description string) string {
	idx := strings.LastIndex(description, `: "`)
	if idx < 0 {
		return description
	}
	text := description[idx+len(`: "`):]
	return strings.TrimSuffix(text, `"`)
}

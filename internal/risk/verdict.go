package risk

import (
	"fmt"
	"math"
	"strings"
)

// Classify maps a score to its level.
func Classify(score float64) Level {
	switch {
	case score <= lowMax:
		return LevelLow
	case score <= mediumMax:
		return LevelMedium
	case score <= highMax:
		return LevelHigh
	default:
		return LevelCritical
	}
}

// ConfidenceFor grows with the amount of history the score was based on.
func ConfidenceFor(historyLen int) float64 {
	switch {
	case historyLen == 0:
		return 0.3
	case historyLen < 5:
		return 0.5
	case historyLen < 20:
		return 0.7
	default:
		return 0.9
	}
}

// Explain renders a short human-readable summary of a verdict.
func Explain(score float64, level Level, flags []Flag) string {
	if len(flags) == 0 {
		return fmt.Sprintf("Action appears safe. Risk score: %.0f/100 (Agent reputation: good)", score)
	}

	var high, medium []Flag
	for _, f := range flags {
		switch f.Severity {
		case SeverityHigh:
			high = append(high, f)
		case SeverityMedium:
			medium = append(medium, f)
		}
	}

	parts := []string{fmt.Sprintf("Risk assessment: %s (%.0f/100)", strings.ToUpper(string(level)), score)}
	if len(high) > 0 {
		parts = append(parts, fmt.Sprintf("\n%d high-severity concern(s):", len(high)))
		for _, f := range high[:min(3, len(high))] {
			parts = append(parts, "  - "+f.Message)
		}
	}
	if len(medium) > 0 {
		parts = append(parts, fmt.Sprintf("\n%d medium concern(s):", len(medium)))
		for _, f := range medium[:min(2, len(medium))] {
			parts = append(parts, "  - "+f.Message)
		}
	}

	switch level {
	case LevelCritical:
		parts = append(parts, "\nAction BLOCKED due to critical risk level")
	case LevelHigh:
		parts = append(parts, "\nAction requires manual approval")
	}
	return strings.Join(parts, "\n")
}

// finalScore clamps the weighted sum and classifies it before rounding;
// only the reported score is rounded.
func finalScore(raw float64) (float64, Level) {
	raw = clampScore(raw)
	return round2(raw), Classify(raw)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

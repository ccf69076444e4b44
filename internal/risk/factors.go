package risk

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mbd888/riskoracle/internal/action"
)

var printer = message.NewPrinter(language.English)

// factorResult is one factor's sub-score and the flags that explain it.
type factorResult struct {
	score float64
	flags []Flag
}

func (r *factorResult) add(points float64, f Flag) {
	r.score += points
	r.flags = append(r.flags, f)
}

func (r factorResult) capped() factorResult {
	r.score = math.Min(r.score, maxFactorScore)
	return r
}

// anomalyFactor compares each numeric value to the same key in the agent's
// history with a population z-score. Short histories get a fixed score.
func (e *Engine) anomalyFactor(past []map[string]float64, current map[string]float64) factorResult {
	var r factorResult
	if len(past) < e.limits.MinAnomalyHistory {
		r.add(e.limits.InsufficientDataScore, Flag{
			Type:     FlagInsufficientData,
			Severity: SeverityInfo,
			Message:  "Limited history available for this agent",
		})
		return r
	}

	for _, key := range sortedKeys(current) {
		values := matched(past, key)
		if len(values) < e.limits.MinMatchedSamples {
			continue
		}
		mean, stddev := meanStddev(values)
		if stddev == 0 {
			continue
		}
		value := current[key]
		z := math.Abs(value-mean) / stddev

		switch {
		case z > e.limits.HighZScore:
			r.add(pointsHighAnomaly, Flag{
				Type:     FlagStatisticalAnomaly,
				Severity: SeverityHigh,
				Message: fmt.Sprintf("Value for '%s' is %.1f standard deviations from normal (expected ~%.0f, got %.0f)",
					key, z, mean, value),
			})
		case z > e.limits.MediumZScore:
			r.add(pointsMediumAnomaly, Flag{
				Type:     FlagUnusualValue,
				Severity: SeverityMedium,
				Message:  fmt.Sprintf("Value for '%s' is %.1f standard deviations from normal", key, z),
			})
		}
	}
	return r.capped()
}

// patternFactor looks for risky keywords and PII in the serialized payload.
// A keyword in both lists is counted by both passes.
func (e *Engine) patternFactor(text string) factorResult {
	var r factorResult
	for _, p := range riskyPatterns {
		if strings.Contains(text, p) {
			r.add(pointsRiskyPattern, Flag{
				Type:     FlagRiskyPattern,
				Severity: SeverityMedium,
				Message:  fmt.Sprintf("Detected risky keyword: '%s'", p),
			})
		}
	}
	for _, p := range piiPatterns {
		if strings.Contains(text, p) {
			r.add(pointsPII, Flag{
				Type:     FlagPIIDetected,
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("Potential PII detected: '%s'", p),
			})
		}
	}
	return r.capped()
}

// magnitudeFactor compares values to their historical mean and flags very
// large absolute values regardless of history.
func (e *Engine) magnitudeFactor(past []map[string]float64, current map[string]float64) factorResult {
	var r factorResult
	keys := sortedKeys(current)

	if len(past) > 0 {
		for _, key := range keys {
			values := matched(past, key)
			if len(values) == 0 {
				continue
			}
			avg, _ := meanStddev(values)
			if avg <= 0 {
				continue
			}
			value := current[key]
			ratio := value / avg

			switch {
			case ratio > e.limits.SpikeRatio:
				r.add(pointsMagnitudeSpike, Flag{
					Type:     FlagMagnitudeSpike,
					Severity: SeverityHigh,
					Message: fmt.Sprintf("Value for '%s' is %.1fx larger than average (%.0f vs %.0f)",
						key, ratio, value, avg),
				})
			case ratio > e.limits.ElevatedRatio:
				r.add(pointsElevated, Flag{
					Type:     FlagElevatedMagnitude,
					Severity: SeverityMedium,
					Message:  fmt.Sprintf("Value for '%s' is %.1fx larger than typical", key, ratio),
				})
			}
		}
	}

	for _, key := range keys {
		if value := current[key]; value > e.limits.LargeAbsoluteValue {
			r.add(pointsLargeAbsolute, Flag{
				Type:     FlagLargeAbsoluteValue,
				Severity: SeverityMedium,
				Message:  printer.Sprintf("Large value detected: %s=%.0f", key, value),
			})
		}
	}
	return r.capped()
}

// temporalFactor scores the evaluation instant against business hours.
func (e *Engine) temporalFactor(now time.Time) factorResult {
	var r factorResult
	if e.hours.Location != nil {
		now = now.In(e.hours.Location)
	}

	hour := now.Hour()
	if hour < e.hours.Start || hour >= e.hours.End {
		r.add(pointsOffHours, Flag{
			Type:     FlagOffHours,
			Severity: SeverityLow,
			Message:  fmt.Sprintf("Action requested outside business hours (%d:00)", hour),
		})
	}
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		r.add(pointsWeekend, Flag{
			Type:     FlagWeekendActivity,
			Severity: SeverityLow,
			Message:  "Action requested on weekend",
		})
	}
	return r
}

// reputationFactor inverts reputation: a trusted agent contributes little risk.
func (e *Engine) reputationFactor(reputation float64) factorResult {
	return factorResult{score: math.Max(0, maxReputationBaseline-reputation)}
}

// typeFactor applies rules specific to the agent's domain.
func (e *Engine) typeFactor(agentType string, a action.Action) factorResult {
	var r factorResult
	switch agentType {
	case "financial":
		if amount, ok := findAmount(action.Merge(a.Inputs, a.Outputs)); ok && amount > e.limits.LargeTransaction {
			r.add(pointsLargeTxn, Flag{
				Type:     FlagLargeTransaction,
				Severity: SeverityHigh,
				Message:  printer.Sprintf("Transaction amount $%.0f exceeds safety threshold", amount),
			})
		}
	case "medical":
		if c, ok := action.NumberField(a.Outputs, "confidence"); ok && c < e.limits.MedicalConfidence {
			r.add(pointsLowConfMedical, Flag{
				Type:     FlagLowConfidenceMedical,
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("Medical recommendation has low confidence: %.2f%%", c*100),
			})
		}
	case "legal":
		text := action.Text(a.Outputs)
		for _, term := range uncertainLegalTerms {
			if strings.Contains(text, term) {
				r.add(pointsUncertainLegal, Flag{
					Type:     FlagUncertainLegalAdvice,
					Severity: SeverityMedium,
					Message:  "Legal advice contains uncertain language",
				})
				break
			}
		}
	}
	return r
}

// findAmount returns the first numeric amount-like field.
func findAmount(fields action.Value) (float64, bool) {
	for _, key := range amountFields {
		if v, ok := action.NumberField(fields, key); ok {
			return v, true
		}
	}
	return 0, false
}

func matched(past []map[string]float64, key string) []float64 {
	var values []float64
	for _, leaves := range past {
		if v, ok := leaves[key]; ok {
			values = append(values, v)
		}
	}
	return values
}

// meanStddev returns the mean and population standard deviation.
func meanStddev(values []float64) (mean, stddev float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / n

	var varianceSum float64
	for _, v := range values {
		d := v - mean
		varianceSum += d * d
	}
	return mean, math.Sqrt(varianceSum / n)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package policy

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mbd888/riskoracle/internal/action"
)

// Status of an action policy check.
type Status string

const (
	StatusOK           Status = "ok"
	StatusFailedPolicy Status = "failed_policy"
)

const (
	maxOrderUSD          = 10_000
	minMedicalConfidence = 0.9
	maxRequestsPerMinute = 60
)

var dangerousSQL = []string{"drop", "delete", "truncate", "alter", "update"}

var printer = message.NewPrinter(language.English)

// EvaluateAction runs the quick pre-logging rules over an action. meta
// carries caller-supplied context such as {"type": "order", "amount_usd": 12000}.
// Without meta there is nothing to check and the action passes.
func EvaluateAction(inputs, outputs, meta action.Value) (Status, []Finding) {
	findings := []Finding{}
	if meta.Kind() != action.KindObject || meta.Len() == 0 {
		return StatusOK, findings
	}

	metaType := ""
	if v, ok := meta.Get("type"); ok {
		metaType, _ = v.Str()
	}

	switch metaType {
	case "order":
		if amt, ok := action.NumberField(meta, "amount_usd"); ok && amt > maxOrderUSD {
			findings = append(findings, Finding{
				Code:     "TRADING_MAX",
				Message:  printer.Sprintf("Order amount $%.0f exceeds $10,000 limit", amt),
				Severity: SeverityHigh,
			})
		}
	case "medical":
		confidence := 1.0
		if c, ok := action.NumberField(outputs, "confidence"); ok {
			confidence = c
		}
		if confidence < minMedicalConfidence {
			findings = append(findings, Finding{
				Code:     "LOW_MEDICAL_CONFIDENCE",
				Message:  fmt.Sprintf("Medical advice confidence %.2f%% below 90%% threshold", confidence*100),
				Severity: SeverityHigh,
			})
		}
	case "legal":
		text := action.Text(outputs)
		if !strings.Contains(text, "disclaimer") && !strings.Contains(text, "not legal advice") {
			findings = append(findings, Finding{
				Code:     "MISSING_LEGAL_DISCLAIMER",
				Message:  "Legal output missing required disclaimer",
				Severity: SeverityMedium,
			})
		}
	}

	inputText := action.Text(inputs)
	if strings.Contains(inputText, "database") || strings.Contains(inputText, "query") {
		for _, kw := range dangerousSQL {
			if strings.Contains(inputText, kw) {
				findings = append(findings, Finding{
					Code:     "DANGEROUS_SQL",
					Message:  "Potentially dangerous SQL operation: " + strings.ToUpper(kw),
					Severity: SeverityHigh,
				})
			}
		}
	}

	if n, ok := action.NumberField(meta, "requests_last_minute"); ok && n > maxRequestsPerMinute {
		findings = append(findings, Finding{
			Code:     "RATE_LIMIT_EXCEEDED",
			Message:  "Agent exceeded 60 requests per minute",
			Severity: SeverityMedium,
		})
	}

	if hasHigh(findings) {
		return StatusFailedPolicy, findings
	}
	return StatusOK, findings
}

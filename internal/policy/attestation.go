package policy

import (
	"fmt"
	"strings"

	"github.com/mbd888/riskoracle/internal/action"
)

// Attestation outcomes.
const (
	AttestationPass = "pass"
	AttestationFail = "fail"
)

const (
	attestationChecks     = 6
	maxOutputChars        = 50_000
	maxExecutionSeconds   = 300
	minClaimedConfidence  = 0.7
	goodClaimedConfidence = 0.8
)

var approvedModels = []string{
	"gpt-4", "gpt-4-turbo", "gpt-4o", "gpt-4o-mini",
	"claude-3-opus", "claude-3-sonnet", "claude-3-haiku",
	"gemini-pro", "llama-3-70b",
}

var attestationPII = []string{"ssn", "social security", "credit card", "password", "secret"}

// Attestation describes one model run submitted for provenance checks.
type Attestation struct {
	ModelName  string            `json:"model_name"`
	Params     AttestationParams `json:"params"`
	Claims     action.Value      `json:"claims"`
	StartedAt  float64           `json:"started_at"`
	FinishedAt float64           `json:"finished_at"`
}

// AttestationParams are the recorded inputs and outputs of the run.
type AttestationParams struct {
	Inputs  action.Value `json:"inputs"`
	Outputs action.Value `json:"outputs"`
}

// Summary counts check outcomes.
type Summary struct {
	TotalChecks    int `json:"total_checks"`
	Passed         int `json:"passed"`
	Failed         int `json:"failed"`
	HighSeverity   int `json:"high_severity"`
	MediumSeverity int `json:"medium_severity"`
	LowSeverity    int `json:"low_severity"`
}

// AttestationResult is the outcome of EvaluateAttestation.
type AttestationResult struct {
	Status   string    `json:"status"`
	Summary  Summary   `json:"summary"`
	Findings []Finding `json:"findings"`
}

// EvaluateAttestation checks model allowlisting, claimed confidence, missing
// payloads, PII, output size and execution time. Any high finding fails the
// attestation.
func EvaluateAttestation(att Attestation) AttestationResult {
	findings := []Finding{}
	inputs, outputs := att.Params.Inputs, att.Params.Outputs

	if att.ModelName != "" && !isApprovedModel(att.ModelName) {
		findings = append(findings, Finding{
			Code:     "UNAPPROVED_MODEL",
			Message:  fmt.Sprintf("Model '%s' is not on the approved list", att.ModelName),
			Severity: SeverityMedium,
		})
	}

	if confidence, ok := claimedConfidence(att.Claims); ok {
		switch {
		case confidence < minClaimedConfidence:
			findings = append(findings, Finding{
				Code:     "LOW_CONFIDENCE",
				Message:  fmt.Sprintf("Model confidence (%.2f%%) below 70%% threshold", confidence*100),
				Severity: SeverityHigh,
			})
		case confidence < goodClaimedConfidence:
			findings = append(findings, Finding{
				Code:     "MODERATE_CONFIDENCE",
				Message:  fmt.Sprintf("Model confidence (%.2f%%) below recommended 80%%", confidence*100),
				Severity: SeverityMedium,
			})
		}
	}

	if inputs.Len() == 0 {
		findings = append(findings, Finding{Code: "MISSING_INPUTS", Message: "No inputs provided in attestation", Severity: SeverityLow})
	}
	if outputs.Len() == 0 {
		findings = append(findings, Finding{Code: "MISSING_OUTPUTS", Message: "No outputs provided in attestation", Severity: SeverityLow})
	}

	text := action.Text(inputs) + action.Text(outputs)
	for _, kw := range attestationPII {
		if strings.Contains(text, kw) {
			findings = append(findings, Finding{
				Code:     "PII_DETECTED",
				Message:  fmt.Sprintf("Potential PII detected: '%s'", kw),
				Severity: SeverityHigh,
			})
		}
	}

	if raw, err := outputs.MarshalJSON(); err == nil && len(raw) > maxOutputChars {
		findings = append(findings, Finding{
			Code:     "LARGE_OUTPUT",
			Message:  fmt.Sprintf("Output size (%d chars) exceeds 50KB limit", len(raw)),
			Severity: SeverityMedium,
		})
	}

	if duration := att.FinishedAt - att.StartedAt; duration > maxExecutionSeconds {
		findings = append(findings, Finding{
			Code:     "LONG_EXECUTION",
			Message:  fmt.Sprintf("Execution took %.1fs (exceeds 5min limit)", duration),
			Severity: SeverityMedium,
		})
	}

	summary := Summary{
		TotalChecks: attestationChecks,
		Passed:      max(0, attestationChecks-len(findings)),
		Failed:      len(findings),
	}
	for _, f := range findings {
		switch f.Severity {
		case SeverityHigh:
			summary.HighSeverity++
		case SeverityMedium:
			summary.MediumSeverity++
		case SeverityLow:
			summary.LowSeverity++
		}
	}

	status := AttestationPass
	if hasHigh(findings) {
		status = AttestationFail
	}
	return AttestationResult{Status: status, Summary: summary, Findings: findings}
}

// FormatReport renders a result as a plain text report.
func FormatReport(r AttestationResult) string {
	lines := []string{
		"Policy Evaluation: " + strings.ToUpper(r.Status),
		fmt.Sprintf("Total Checks: %d", r.Summary.TotalChecks),
		fmt.Sprintf("Passed: %d", r.Summary.Passed),
		fmt.Sprintf("Failed: %d", r.Summary.Failed),
	}
	if len(r.Findings) > 0 {
		lines = append(lines, "\nFindings:")
		for _, f := range r.Findings {
			lines = append(lines, fmt.Sprintf("[%s] %s: %s", strings.ToUpper(string(f.Severity)), f.Code, f.Message))
		}
	}
	return strings.Join(lines, "\n")
}

func isApprovedModel(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range approvedModels {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// claimedConfidence prefers a non-zero "confidence" claim and falls back to
// "accuracy".
func claimedConfidence(claims action.Value) (float64, bool) {
	if c, ok := action.NumberField(claims, "confidence"); ok && c != 0 {
		return c, true
	}
	if a, ok := action.NumberField(claims, "accuracy"); ok {
		return a, true
	}
	return 0, false
}

// Package policy holds the static per-agent-type thresholds callers use to
// act on a risk verdict, plus quick rule checks over actions and model
// attestations.
//
// Nothing here scores behavior; the rules are fixed and stateless. The
// built-in threshold table is never modified: operator overrides produce a
// new Table that the caller owns.
package policy

// Agent types with dedicated thresholds.
const (
	TypeGeneral   = "general"
	TypeFinancial = "financial"
	TypeMedical   = "medical"
	TypeLegal     = "legal"
	TypeTechnical = "technical"
)

// Severity of a policy finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Finding is one rule match.
type Finding struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Thresholds tell the caller when to block or flag an action of a given
// agent type and how much verdict confidence it should require.
type Thresholds struct {
	BlockThreshold    float64 `json:"block_threshold"`
	FlagThreshold     float64 `json:"flag_threshold"`
	ConfidenceMinimum float64 `json:"confidence_minimum"`
}

var builtin = map[string]Thresholds{
	TypeGeneral:   {BlockThreshold: 80, FlagThreshold: 60, ConfidenceMinimum: 0.70},
	TypeFinancial: {BlockThreshold: 70, FlagThreshold: 50, ConfidenceMinimum: 0.85}, // stricter for money movement
	TypeMedical:   {BlockThreshold: 75, FlagThreshold: 55, ConfidenceMinimum: 0.90},
	TypeLegal:     {BlockThreshold: 75, FlagThreshold: 55, ConfidenceMinimum: 0.85},
	TypeTechnical: {BlockThreshold: 85, FlagThreshold: 65, ConfidenceMinimum: 0.75},
}

// ThresholdsFor returns the built-in thresholds for agentType, falling back
// to the general thresholds for unknown types.
func ThresholdsFor(agentType string) Thresholds {
	return Table{}.For(agentType)
}

// KnownType reports whether agentType has built-in thresholds.
func KnownType(agentType string) bool {
	return Table{}.Known(agentType)
}

// Table is an immutable threshold lookup. The zero value is the built-in
// table; With derives a new table carrying overrides.
type Table struct {
	entries map[string]Thresholds
}

// DefaultTable returns the built-in table.
func DefaultTable() Table {
	return Table{}
}

func (t Table) lookup() map[string]Thresholds {
	if t.entries == nil {
		return builtin
	}
	return t.entries
}

// With returns a copy of t with overrides replacing or adding agent types.
// t is not modified.
func (t Table) With(overrides map[string]Thresholds) Table {
	base := t.lookup()
	entries := make(map[string]Thresholds, len(base)+len(overrides))
	for k, v := range base {
		entries[k] = v
	}
	for k, v := range overrides {
		entries[k] = v
	}
	return Table{entries: entries}
}

// For returns the thresholds for agentType, falling back to the general
// thresholds for unknown types.
func (t Table) For(agentType string) Thresholds {
	m := t.lookup()
	if th, ok := m[agentType]; ok {
		return th
	}
	if th, ok := m[TypeGeneral]; ok {
		return th
	}
	return builtin[TypeGeneral]
}

// Known reports whether agentType has dedicated thresholds in t.
func (t Table) Known(agentType string) bool {
	_, ok := t.lookup()[agentType]
	return ok
}

func hasHigh(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityHigh {
			return true
		}
	}
	return false
}

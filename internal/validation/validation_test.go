package validation

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestIsValidAgentID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"A1", true},
		{"agent-42", true},
		{"trading.bot_v2", true},
		{"ops@example.com", true},
		{"urn:agent:7", true},
		{"0x1234567890123456789012345678901234567890", true},

		// Invalid cases
		{"", false},
		{"-leading", false},
		{"has space", false},
		{"slash/inside", false},
		{strings.Repeat("a", MaxAgentIDLength+1), false},
	}

	for _, tc := range tests {
		result := IsValidAgentID(tc.id)
		if result != tc.valid {
			t.Errorf("IsValidAgentID(%q) = %v, want %v", tc.id, result, tc.valid)
		}
	}
}

func TestIsValidAgentType(t *testing.T) {
	for _, ok := range []string{"general", "financial", "custom_type2"} {
		if !IsValidAgentType(ok) {
			t.Errorf("IsValidAgentType(%q) = false, want true", ok)
		}
	}
	for _, bad := range []string{"", "Financial", "2fast", "has-dash"} {
		if IsValidAgentType(bad) {
			t.Errorf("IsValidAgentType(%q) = true, want false", bad)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"hello", 10, "hello"},
		{"  hello  ", 10, "hello"},
		{"hello world", 5, "hello"},
		{"hello\x00world", 20, "helloworld"},
	}

	for _, tc := range tests {
		result := SanitizeString(tc.input, tc.maxLen)
		if result != tc.expected {
			t.Errorf("SanitizeString(%q, %d) = %q, want %q", tc.input, tc.maxLen, result, tc.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	// Test valid input
	errors := Validate(
		Required("agent_id", "A1"),
		ValidAgentID("agent_id", "A1"),
		ValidAgentType("agent_type", "financial"),
	)
	if len(errors) != 0 {
		t.Errorf("Expected no errors, got %v", errors)
	}

	// Test invalid input
	errors = Validate(
		Required("agent_id", ""),
		ValidAgentID("other", "bad id"),
		ValidAgentType("agent_type", "BAD"),
	)
	if len(errors) != 3 {
		t.Errorf("Expected 3 errors, got %d", len(errors))
	}
	if errors.Error() != "agent_id: is required" {
		t.Errorf("Unexpected error string %q", errors.Error())
	}
}

func TestNonNegative(t *testing.T) {
	if err := NonNegative("delta", 5)(); err != nil {
		t.Error("Expected no error for positive delta")
	}
	if err := NonNegative("delta", 0)(); err != nil {
		t.Error("Expected no error for zero delta")
	}
	if err := NonNegative("delta", -1)(); err == nil {
		t.Error("Expected error for negative delta")
	}
	if err := NonNegative("delta", math.NaN())(); err == nil {
		t.Error("Expected error for NaN delta")
	}
}

func TestMaxLength(t *testing.T) {
	// Under limit
	err := MaxLength("field", "hello", 10)()
	if err != nil {
		t.Error("Expected no error for string under limit")
	}

	// At limit
	err = MaxLength("field", "hello", 5)()
	if err != nil {
		t.Error("Expected no error for string at limit")
	}

	// Over limit
	err = MaxLength("field", "hello world", 5)()
	if err == nil {
		t.Error("Expected error for string over limit")
	}
}

func TestAgentIDParamMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/agents/:agentId", AgentIDParamMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/agents/A1", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for valid id, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/agents/bad%20id", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid id, got %d", w.Code)
	}
}

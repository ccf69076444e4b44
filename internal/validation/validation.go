// Package validation provides input validation middleware for the risk oracle API.
package validation

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// MaxStringLength is the maximum length for string fields
const MaxStringLength = 10000

// MaxAgentIDLength bounds agent identifiers
const MaxAgentIDLength = 128

var (
	// agentIDRegex allows slugs, UUIDs, emails and 0x addresses
	agentIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:@-]*$`)
	// agentTypeRegex allows lowercase type names
	agentTypeRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidAgentID checks if a string is an acceptable agent identifier
func IsValidAgentID(id string) bool {
	return len(id) <= MaxAgentIDLength && agentIDRegex.MatchString(id)
}

// IsValidAgentType checks if a string is an acceptable agent type name.
// Unknown but well-formed types are accepted and scored as general.
func IsValidAgentType(t string) bool {
	return len(t) <= 32 && agentTypeRegex.MatchString(t)
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	// Trim whitespace
	s = strings.TrimSpace(s)

	// Limit length
	if len(s) > maxLen {
		s = s[:maxLen]
	}

	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	return s
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Field + ": " + e[0].Message
}

// Validate validates a request and returns errors
func Validate(validators ...func() *ValidationError) ValidationErrors {
	var errors ValidationErrors
	for _, v := range validators {
		if err := v(); err != nil {
			errors = append(errors, *err)
		}
	}
	return errors
}

// Required checks if a field is non-empty
func Required(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if strings.TrimSpace(value) == "" {
			return &ValidationError{Field: field, Message: "is required"}
		}
		return nil
	}
}

// ValidAgentID checks if a field is a well-formed agent identifier
func ValidAgentID(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil // Use Required for required fields
		}
		if !IsValidAgentID(value) {
			return &ValidationError{Field: field, Message: "must be 1-128 chars of letters, digits, '.', '_', ':', '@' or '-'"}
		}
		return nil
	}
}

// ValidAgentType checks if a field is a well-formed agent type
func ValidAgentType(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil
		}
		if !IsValidAgentType(value) {
			return &ValidationError{Field: field, Message: "must be a lowercase type name"}
		}
		return nil
	}
}

// NonNegative checks a numeric field is >= 0
func NonNegative(field string, value float64) func() *ValidationError {
	return func() *ValidationError {
		if value < 0 || value != value {
			return &ValidationError{Field: field, Message: "must be a non-negative number"}
		}
		return nil
	}
}

// MaxLength checks if a field exceeds max length
func MaxLength(field, value string, max int) func() *ValidationError {
	return func() *ValidationError {
		if len(value) > max {
			return &ValidationError{Field: field, Message: "exceeds maximum length"}
		}
		return nil
	}
}

// AgentIDParamMiddleware validates the :agentId URL parameter on routes that use it.
// Apply to route groups that include :agentId params to reject malformed IDs early.
func AgentIDParamMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("agentId")
		if id != "" && !IsValidAgentID(id) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_agent_id",
				"message": "agentId must be 1-128 chars of letters, digits, '.', '_', ':', '@' or '-'",
			})
			return
		}
		c.Next()
	}
}

package idgen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssessment(t *testing.T) {
	id := Assessment()
	assert.Regexp(t, regexp.MustCompile(`^risk_[0-9a-f]{24}$`), id)
	assert.NotEqual(t, id, Assessment())
}

func TestRequestID(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), RequestID())
}

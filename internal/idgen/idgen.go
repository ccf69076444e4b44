// Package idgen generates the random identifiers handed out by the API.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
)

// AssessmentPrefix marks assessment ids, e.g. "risk_3f9c...".
const AssessmentPrefix = "risk_"

// Assessment returns a new assessment id: the prefix plus 24 hex chars.
func Assessment() string {
	return AssessmentPrefix + randomHex(12)
}

// RequestID returns a 32 hex char id for requests that arrive without an
// X-Request-ID header.
func RequestID() string {
	return randomHex(16)
}

func randomHex(numBytes int) string {
	b := make([]byte, numBytes)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}

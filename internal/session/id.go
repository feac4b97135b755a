package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewSessionID creates a cryptographically random session ID with at least
// 128 bits of entropy. The ID is prefixed with "sess_" and uses URL-safe
// base64 encoding (no padding) for the random component.
func NewSessionID() string {
	b := make([]byte, 16) // 128 bits
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return "sess_" + base64.RawURLEncoding.EncodeToString(b)
}

// NewCallID creates a correlation id for backend calls: a timestamp for
// operator-side traceability plus a uuid fragment for uniqueness.
func NewCallID() string {
	return fmt.Sprintf("%s-%s", time.Now().Format("20060102150405"), uuid.NewString()[:8])
}

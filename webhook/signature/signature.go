package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// DefaultHeader carries the hex HMAC of the raw request body
	DefaultHeader = "X-Webhook-Signature"

	// algorithmPrefix is accepted and stripped, e.g. "sha256=ab12..."
	algorithmPrefix = "sha256="

	// MinTokenLength rejects trivially guessable validation tokens
	MinTokenLength = 16
)

// Sign returns the hex-encoded HMAC-SHA256 of payload keyed by token
func Sign(token string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(token))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

/* Verifier checks payload signatures against one or more validation tokens
 * More than one token allows rotating the token without dropping deliveries
 */
type Verifier struct {
	tokens [][]byte
}

// NewVerifier creates a verifier for the given tokens
func NewVerifier(tokens ...string) (*Verifier, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("at least one validation token is required")
	}
	v := &Verifier{}
	for i, tok := range tokens {
		if len(tok) < MinTokenLength {
			return nil, fmt.Errorf("validation token %d must be at least %d characters", i, MinTokenLength)
		}
		v.tokens = append(v.tokens, []byte(tok))
	}
	return v, nil
}

// ParseTokens splits a comma separated token list, dropping blanks
func ParseTokens(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Verify reports whether signature matches payload under any configured token.
// Comparison is constant-time.
func (v *Verifier) Verify(payload []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	signature = strings.TrimPrefix(strings.ToLower(signature), algorithmPrefix)
	if signature == "" {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	for _, tok := range v.tokens {
		mac := hmac.New(sha256.New, tok)
		mac.Write(payload)
		if hmac.Equal(got, mac.Sum(nil)) {
			return true
		}
	}
	return false
}

// Disabled accepts every payload; used when no validation token is configured
type Disabled struct{}

// Verify always returns true
func (Disabled) Verify([]byte, string) bool { return true }

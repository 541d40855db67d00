package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	stateLength    = 32
	verifierLength = 64
)

// unreserved is the RFC 7636 code-verifier character set.
const unreserved = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// randomString returns n characters drawn uniformly from the unreserved set.
// Bytes that would introduce modulo bias are discarded.
func randomString(n int) (string, error) {
	// largest multiple of len(unreserved) that fits in a byte
	limit := byte(256 - 256%len(unreserved))

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, unreserved[int(b)%len(unreserved)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

func newState() (string, error) { return randomString(stateLength) }

func newVerifier() (string, error) { return randomString(verifierLength) }

// challengeS256 derives the PKCE code challenge from a verifier:
// base64url(sha256(verifier)) without padding.
func challengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

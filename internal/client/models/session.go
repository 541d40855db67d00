// Package models defines client-side data models used by the ZenChat client.
package models

import (
	"encoding/json"
	"time"
)

// NearExpiryWindow is how long before the actual expiry a session is already
// treated as unusable, to pre-empt silent failures on in-flight requests.
const NearExpiryWindow = 2 * time.Minute

// Session is the authenticated identity held by the session service and
// persisted by the credential store as an opaque blob.
//
// ExpiresAt is always derived by adding the server-provided TTL to the local
// wall clock at token receipt, never taken from a server-asserted absolute
// time.
type Session struct {
	SubjectID    string    `json:"subjectId"`
	Email        string    `json:"email"`
	BearerToken  string    `json:"bearerToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	DisplayName  string    `json:"displayName,omitempty"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	IsNewAccount bool      `json:"isNewAccount"`
}

// Expired reports whether the session's token lifetime has elapsed.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// NearExpiry reports whether the session is within NearExpiryWindow of
// expiring (or already expired).
func (s *Session) NearExpiry(now time.Time) bool {
	return !now.Before(s.ExpiresAt.Add(-NearExpiryWindow))
}

// Clone returns an independent copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// EncodeSession serializes a session for the credential store.
func EncodeSession(s *Session) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSession restores a session previously produced by EncodeSession.
func DecodeSession(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

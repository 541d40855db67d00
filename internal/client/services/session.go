// Package services contains the application services of the ZenChat client.
// This file defines the session lifecycle: restore at startup, password and
// Google sign-in, signup, and logout with credential cleanup.
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zenchat/zenchat/internal/client/api"
	"github.com/zenchat/zenchat/internal/client/models"
	"github.com/zenchat/zenchat/internal/client/oauth"
	"github.com/zenchat/zenchat/internal/client/repositories/credentials"
	"github.com/zenchat/zenchat/internal/common"
	"github.com/zenchat/zenchat/internal/logging"
)

// GoogleFlow is the browser sign-in dependency of the session service.
// Satisfied by *oauth.Flow; tests provide a fake.
type GoogleFlow interface {
	Authenticate(ctx context.Context) (*oauth.Result, error)
	Revoke(ctx context.Context, token string) error
}

// ChatCache is the slice of the chat service the session service drives:
// a list refresh after sign-in/restore, and a full wipe on logout.
type ChatCache interface {
	Refresh(ctx context.Context) error
	Clear()
}

// SessionService owns the current authenticated identity: it restores it at
// startup, verifies it against the backend, finalizes new sessions from the
// auth endpoints, and clears everything on logout. The session value it
// hands out is a snapshot; callers must not mutate it.
type SessionService struct {
	api      api.Client
	creds    credentials.Repository
	google   GoogleFlow
	chats    ChatCache
	log      logging.Logger
	observer Observer
	now      func() time.Time

	mu             sync.Mutex
	session        *models.Session
	restoring      bool
	authenticating bool
	notices
}

// NewSessionService wires the session service. The chat cache is attached
// separately (see AttachChats) because the two services reference each
// other.
func NewSessionService(client api.Client, creds credentials.Repository, google GoogleFlow, log logging.Logger, observer Observer) *SessionService {
	if observer == nil {
		observer = nopObserver{}
	}
	return &SessionService{
		api:      client,
		creds:    creds,
		google:   google,
		log:      log,
		observer: observer,
		now:      time.Now,
	}
}

// AttachChats connects the chat cache refreshed after sign-in and cleared
// on logout.
func (s *SessionService) AttachChats(chats ChatCache) {
	s.chats = chats
}

// Current returns a snapshot of the active session, or nil.
func (s *SessionService) Current() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Clone()
}

// CurrentUID returns the subject id of the active, unexpired session.
func (s *SessionService) CurrentUID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return "", common.ErrNotAuthenticated
	}
	if s.session.Expired(s.now()) {
		return "", fmt.Errorf("%w: session expired", common.ErrNotAuthenticated)
	}
	return s.session.SubjectID, nil
}

// IsAuthenticated reports whether an unexpired session is active.
func (s *SessionService) IsAuthenticated() bool {
	_, err := s.CurrentUID()
	return err == nil
}

// IsAuthenticating reports whether a sign-in attempt is in flight. Callers
// are expected to disable retriggering UI while true.
func (s *SessionService) IsAuthenticating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticating
}

// ConsumeError returns and clears the last boundary error.
func (s *SessionService) ConsumeError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumeErr()
}

// ConsumeNotice returns and clears the last informational message.
func (s *SessionService) ConsumeNotice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumeNotice()
}

// fail records err in the consumable slot, notifies the observer, and
// returns err unchanged.
func (s *SessionService) fail(ctx context.Context, op string, err error) error {
	s.log.Error(ctx, op+" failed", "err", err)
	s.mu.Lock()
	s.setErr(err)
	s.mu.Unlock()
	s.observer.Notice(NoticeError, err.Error())
	return err
}

func (s *SessionService) inform(msg string) {
	s.mu.Lock()
	s.setNotice(msg)
	s.mu.Unlock()
	s.observer.Notice(NoticeInfo, msg)
}

// Restore loads the persisted session at startup, applies it optimistically
// when it is still usable, and verifies it against the backend. A second
// concurrent call while a restore is running is a no-op. Verification
// failure clears both the in-memory session and the persisted record; it is
// never retried.
func (s *SessionService) Restore(ctx context.Context) error {
	s.mu.Lock()
	if s.restoring {
		s.mu.Unlock()
		return nil
	}
	s.restoring = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.restoring = false
		s.mu.Unlock()
		s.observer.StateChanged()
	}()

	blob, err := s.creds.Get(ctx, credentials.SessionKey)
	if err != nil {
		return s.fail(ctx, "restore", fmt.Errorf("load persisted session: %w", err))
	}
	if blob == nil {
		s.log.Debug(ctx, "no persisted session")
		return nil
	}

	sess, err := models.DecodeSession(blob)
	if err != nil {
		// unreadable record: drop it instead of failing every startup
		s.log.Warn(ctx, "discarding undecodable session record", "err", err)
		_ = s.creds.Delete(ctx, credentials.SessionKey)
		return nil
	}

	if sess.NearExpiry(s.now()) {
		s.log.Info(ctx, "persisted session expired", "email", sess.Email)
		_ = s.creds.Delete(ctx, credentials.SessionKey)
		return nil
	}

	// optimistic apply before the network round-trip
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
	s.observer.StateChanged()

	info, err := s.api.VerifyToken(ctx, sess.BearerToken)
	if err != nil {
		s.mu.Lock()
		s.session = nil
		s.mu.Unlock()
		_ = s.creds.Delete(ctx, credentials.SessionKey)
		return s.fail(ctx, "restore", fmt.Errorf("session verification: %w", err))
	}
	if info.UID != "" && info.UID != sess.SubjectID {
		s.mu.Lock()
		s.session.SubjectID = info.UID
		s.mu.Unlock()
	}

	s.log.Info(ctx, "session restored", "uid", sess.SubjectID, "email", sess.Email)
	s.refreshChats(ctx)
	return nil
}

// Login authenticates with email and password and finalizes the session.
func (s *SessionService) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return s.fail(ctx, "login", fmt.Errorf("%w: email and password are required", common.ErrValidation))
	}

	s.setAuthenticating(true)
	defer s.setAuthenticating(false)

	creds, err := s.api.Login(ctx, email, password)
	if err != nil {
		return s.fail(ctx, "login", err)
	}

	sess := s.sessionFromCredentials(creds)
	name := displayNameFor(creds.DisplayName, "", sess.Email)
	return s.finalize(ctx, sess, fmt.Sprintf("Welcome back, %s!", name))
}

// SignUp creates an account and then signs it in: the signup endpoint does
// not return tokens.
func (s *SessionService) SignUp(ctx context.Context, email, password, displayName string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return s.fail(ctx, "signup", fmt.Errorf("%w: email and password are required", common.ErrValidation))
	}

	s.setAuthenticating(true)
	defer s.setAuthenticating(false)

	account, err := s.api.SignUp(ctx, email, password, displayName)
	if err != nil {
		return s.fail(ctx, "signup", err)
	}

	creds, err := s.api.Login(ctx, email, password)
	if err != nil {
		return s.fail(ctx, "signup", err)
	}

	sess := s.sessionFromCredentials(creds)
	sess.IsNewAccount = true
	if sess.DisplayName == "" {
		sess.DisplayName = account.DisplayName
	}

	name := displayNameFor(account.DisplayName, displayName, sess.Email)
	return s.finalize(ctx, sess, fmt.Sprintf("Welcome, %s! Your account was created.", name))
}

// LoginWithGoogle runs the desktop browser flow and exchanges the resulting
// ID token with the backend for a first-party session. A user-cancelled
// flow produces an informational notice, not an error.
func (s *SessionService) LoginWithGoogle(ctx context.Context) error {
	s.setAuthenticating(true)
	defer s.setAuthenticating(false)

	res, err := s.google.Authenticate(ctx)
	if err != nil {
		return s.fail(ctx, "google sign-in", err)
	}
	if res.Cancelled {
		s.inform("Sign-in cancelled.")
		return nil
	}

	creds, err := s.api.GoogleSignIn(ctx, res.IDToken)
	if err != nil {
		return s.fail(ctx, "google sign-in", err)
	}

	sess := s.sessionFromCredentials(creds)
	if sess.DisplayName == "" {
		sess.DisplayName = res.DisplayName
	}
	if sess.AvatarURL == "" {
		sess.AvatarURL = res.AvatarURL
	}
	if sess.Email == "" {
		sess.Email = res.Email
	}

	name := displayNameFor(sess.DisplayName, "", sess.Email)
	msg := fmt.Sprintf("Welcome back, %s!", name)
	if sess.IsNewAccount {
		msg = fmt.Sprintf("Welcome, %s! Your account is ready.", name)
	}
	return s.finalize(ctx, sess, msg)
}

// Logout clears the in-memory session, the whole conversation cache, and
// the persisted record, then best-effort revokes the federated token.
// Revocation failures are swallowed.
func (s *SessionService) Logout(ctx context.Context) error {
	s.mu.Lock()
	sess := s.session
	s.session = nil
	s.mu.Unlock()

	if s.chats != nil {
		s.chats.Clear()
	}

	if err := s.creds.Delete(ctx, credentials.SessionKey); err != nil {
		return s.fail(ctx, "logout", fmt.Errorf("clear persisted session: %w", err))
	}

	if sess != nil && s.google != nil {
		if err := s.google.Revoke(ctx, sess.RefreshToken); err != nil {
			s.log.Warn(ctx, "token revocation failed", "err", err)
		}
	}

	s.observer.StateChanged()
	s.inform("Signed out.")
	return nil
}

// sessionFromCredentials derives the absolute expiry from the TTL and the
// local clock at receipt.
func (s *SessionService) sessionFromCredentials(creds *api.Credentials) *models.Session {
	return &models.Session{
		SubjectID:    creds.UID,
		Email:        creds.Email,
		BearerToken:  creds.IDToken,
		RefreshToken: creds.RefreshToken,
		ExpiresAt:    s.now().Add(creds.ExpiresIn),
		DisplayName:  creds.DisplayName,
		AvatarURL:    creds.PhotoURL,
		IsNewAccount: creds.IsNewAccount,
	}
}

// finalize applies a session in memory, persists it, refreshes the chat
// list, and emits the welcome notice.
func (s *SessionService) finalize(ctx context.Context, sess *models.Session, welcome string) error {
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
	s.observer.StateChanged()

	blob, err := models.EncodeSession(sess)
	if err != nil {
		return s.fail(ctx, "finalize session", err)
	}
	if err := s.creds.Set(ctx, credentials.SessionKey, blob); err != nil {
		// the session stays usable for this run
		s.log.Warn(ctx, "persisting session failed", "err", err)
	}

	s.log.Info(ctx, "signed in", "uid", sess.SubjectID, "email", sess.Email)
	s.refreshChats(ctx)
	s.inform(welcome)
	return nil
}

func (s *SessionService) refreshChats(ctx context.Context) {
	if s.chats == nil {
		return
	}
	if err := s.chats.Refresh(ctx); err != nil {
		s.log.Warn(ctx, "chat list refresh failed", "err", err)
	}
}

func (s *SessionService) setAuthenticating(v bool) {
	s.mu.Lock()
	s.authenticating = v
	s.mu.Unlock()
	s.observer.StateChanged()
}

// displayNameFor picks the best available display name: server-provided →
// caller-provided fallback → email → generic placeholder.
func displayNameFor(serverName, fallback, email string) string {
	for _, candidate := range []string{serverName, fallback, email} {
		if strings.TrimSpace(candidate) != "" {
			return strings.TrimSpace(candidate)
		}
	}
	return "friend"
}

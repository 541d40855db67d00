// Package oauth implements the desktop Google sign-in flow: Authorization
// Code + PKCE through the system browser, with the redirect received on a
// locally bound loopback HTTP listener. It is used on platforms without an
// embeddable federated sign-in surface.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/browser"
	"golang.org/x/oauth2"

	"github.com/zenchat/zenchat/internal/logging"
)

const (
	defaultAuthURL   = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL  = "https://oauth2.googleapis.com/token"
	defaultRevokeURL = "https://oauth2.googleapis.com/revoke"

	// DefaultWaitTimeout bounds how long the loopback listener waits for
	// the browser redirect.
	DefaultWaitTimeout = 5 * time.Minute
)

var defaultScopes = []string{"openid", "email", "profile"}

var (
	// ErrNoClientID means the flow cannot start: the OAuth client id was
	// not supplied via configuration.
	ErrNoClientID = errors.New("google oauth client id is not configured")

	// ErrTimeout means the browser redirect never arrived within the wait
	// bound.
	ErrTimeout = errors.New("timed out waiting for browser sign-in")

	// ErrFlowInProgress means another browser sign-in is already waiting
	// for its redirect.
	ErrFlowInProgress = errors.New("a browser sign-in is already in progress")
)

// Config holds the desktop OAuth settings. Only ClientID is required;
// everything else has Google defaults.
type Config struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	AuthURL      string
	TokenURL     string
	RevokeURL    string
	WaitTimeout  time.Duration
}

// Result is the outcome of a completed browser flow. Cancelled is set, with
// no error, when the user denied the consent screen.
type Result struct {
	IDToken     string
	AccessToken string
	Email       string
	DisplayName string
	AvatarURL   string
	Cancelled   bool
}

// Flow runs browser sign-ins. At most one flow per instance is in flight at
// a time.
type Flow struct {
	cfg Config
	log logging.Logger

	// test seam for launching the system browser
	openBrowser func(url string) error

	mu     sync.Mutex
	active bool
}

func NewFlow(cfg Config, log logging.Logger) *Flow {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.RevokeURL == "" {
		cfg.RevokeURL = defaultRevokeURL
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = defaultScopes
	}
	return &Flow{cfg: cfg, log: log, openBrowser: browser.OpenURL}
}

// Authenticate runs the full desktop flow: listener, browser, redirect
// wait, code exchange. The loopback listener is torn down on every exit
// path. A user-denied consent screen yields Result.Cancelled rather than an
// error; an expired wait yields ErrTimeout.
func (f *Flow) Authenticate(ctx context.Context) (*Result, error) {
	if f.cfg.ClientID == "" {
		return nil, ErrNoClientID
	}

	f.mu.Lock()
	if f.active {
		f.mu.Unlock()
		return nil, ErrFlowInProgress
	}
	f.active = true
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active = false
		f.mu.Unlock()
	}()

	state, err := newState()
	if err != nil {
		return nil, err
	}
	verifier, err := newVerifier()
	if err != nil {
		return nil, err
	}

	srv, err := newLoopbackServer(state)
	if err != nil {
		return nil, err
	}
	defer srv.Close()

	conf := &oauth2.Config{
		ClientID:     f.cfg.ClientID,
		ClientSecret: f.cfg.ClientSecret,
		RedirectURL:  srv.RedirectURI(),
		Scopes:       f.cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  f.cfg.AuthURL,
			TokenURL: f.cfg.TokenURL,
		},
	}

	authURL := conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("code_challenge", challengeS256(verifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)

	f.log.Info(ctx, "opening browser for sign-in", "port", srv.Port())
	if err := f.openBrowser(authURL); err != nil {
		return nil, fmt.Errorf("open browser: %w", err)
	}

	res, ok := srv.Wait(ctx, f.cfg.WaitTimeout)
	if !ok {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrTimeout
	}

	if res.errCode != "" {
		if res.errCode == "access_denied" {
			f.log.Info(ctx, "sign-in cancelled by user")
			return &Result{Cancelled: true}, nil
		}
		if res.errDescription != "" {
			return nil, fmt.Errorf("authorization failed: %s (%s)", res.errCode, res.errDescription)
		}
		return nil, fmt.Errorf("authorization failed: %s", res.errCode)
	}

	token, err := conf.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, f.describeExchangeError(err)
	}

	result := &Result{AccessToken: token.AccessToken}
	if idToken, ok := token.Extra("id_token").(string); ok && idToken != "" {
		result.IDToken = idToken
		result.Email, result.DisplayName, result.AvatarURL = idTokenClaims(idToken)
	}
	return result, nil
}

// describeExchangeError turns a token-endpoint failure into something a
// user can act on. A missing-secret complaint from the provider while no
// secret is configured almost always means the OAuth client was registered
// as a web application instead of a desktop one.
func (f *Flow) describeExchangeError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return fmt.Errorf("token exchange failed: %w", err)
	}

	text := re.ErrorCode
	if re.ErrorDescription != "" {
		text = fmt.Sprintf("%s: %s", re.ErrorCode, re.ErrorDescription)
	}
	if text == "" {
		text = strings.TrimSpace(string(re.Body))
	}
	if text == "" {
		text = re.Response.Status
	}

	if f.cfg.ClientSecret == "" && mentionsMissingSecret(text) {
		return fmt.Errorf("token exchange failed: %s; the provider expects a client secret. "+
			"Switch the OAuth client to the public Desktop (installed application) type, "+
			"or configure the client secret", text)
	}
	return fmt.Errorf("token exchange failed: %s", text)
}

func mentionsMissingSecret(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "client_secret") || strings.Contains(lower, "client secret")
}

// idTokenClaims extracts display claims from the ID token without verifying
// its signature. Verification is the backend's job during the sign-in
// exchange; these values are used for greeting text only.
func idTokenClaims(raw string) (email, name, picture string) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return "", "", ""
	}
	email, _ = claims["email"].(string)
	name, _ = claims["name"].(string)
	picture, _ = claims["picture"].(string)
	return email, name, picture
}

// Revoke invalidates a Google-issued token. Used best-effort on logout.
func (f *Flow) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	body := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.RevokeURL,
		strings.NewReader(body.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke failed: %s", resp.Status)
	}
	return nil
}

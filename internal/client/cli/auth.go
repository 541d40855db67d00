package cli

import (
	"context"
	"os"

	"github.com/zenchat/zenchat/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// SignUp prompts the user for an email, password and optional display name
// and creates a new account. On success the session service logs the new
// account in and prints a welcome message through the observer. The
// password byte slice is wiped before returning.
func (a *App) SignUp(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	displayName, err := getSimpleText(a.reader, "Display name (optional)", os.Stdout)
	if err != nil {
		return err
	}

	return a.session.SignUp(ctx, email, string(password), displayName)
}

// Login prompts the user for credentials and authenticates against the
// backend. Success and failure are both reported through the observer; the
// password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	return a.session.Login(ctx, email, string(password))
}

// Google runs the browser sign-in flow. The call blocks until the redirect
// arrives, the wait times out, or the user cancels on the consent screen.
func (a *App) Google(ctx context.Context) error {
	printlnFn("Opening your browser for Google sign-in...")
	return a.session.LoginWithGoogle(ctx)
}

// Logout signs out and clears the local session and all cached chats.
func (a *App) Logout(ctx context.Context) error {
	a.current = ""
	return a.session.Logout(ctx)
}

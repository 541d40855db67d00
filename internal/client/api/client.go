package api

import (
	"context"
	"time"

	"github.com/zenchat/zenchat/internal/client/models"
)

// Account is the result of a successful signup.
type Account struct {
	UID           string
	Email         string
	DisplayName   string
	EmailVerified bool
}

// Credentials is the token material returned by the authentication
// endpoints. ExpiresIn is a TTL relative to receipt; callers derive the
// absolute expiry from their own clock.
type Credentials struct {
	IDToken      string
	RefreshToken string
	ExpiresIn    time.Duration
	UID          string
	Email        string
	DisplayName  string
	PhotoURL     string
	IsNewAccount bool
}

// TokenInfo is the decoded identity behind a verified bearer token.
type TokenInfo struct {
	UID    string
	Email  string
	Claims map[string]any
}

// SendResult carries the server-persisted user message and, when the AI
// reply succeeded, the assistant message.
type SendResult struct {
	UserMessage      *models.Message
	AssistantMessage *models.Message
}

// ChatUpdate lists the mutable chat fields. Nil means "leave unchanged".
type ChatUpdate struct {
	Title        *string
	SystemPrompt *string
}

// Client is the typed contract with the ZenChat backend. Implementations
// perform encoding/decoding and error normalization only: no retries, no
// caching, no business logic. All operations honor context cancellation.
type Client interface {
	SignUp(ctx context.Context, email, password, displayName string) (*Account, error)
	Login(ctx context.Context, email, password string) (*Credentials, error)
	GoogleSignIn(ctx context.Context, idToken string) (*Credentials, error)
	VerifyToken(ctx context.Context, idToken string) (*TokenInfo, error)

	CreateChat(ctx context.Context, uid, title, systemPrompt string) (*models.Chat, error)
	ListChats(ctx context.Context, uid string) ([]*models.Chat, error)
	GetChat(ctx context.Context, uid, chatID string) (*models.Chat, error)
	UpdateChat(ctx context.Context, uid, chatID string, update ChatUpdate) (*models.Chat, error)
	DeleteChat(ctx context.Context, uid, chatID string) error
	SendMessage(ctx context.Context, uid, chatID, content string, fileIDs []string) (*SendResult, error)
	UploadFile(ctx context.Context, uid, chatID, fileName, mimeType string, data []byte) (*models.Attachment, error)
}

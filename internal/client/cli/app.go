package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/zenchat/zenchat/internal/client/api"
	"github.com/zenchat/zenchat/internal/client/config"
	"github.com/zenchat/zenchat/internal/client/oauth"
	"github.com/zenchat/zenchat/internal/client/repositories/credentials"
	"github.com/zenchat/zenchat/internal/client/services"
	"github.com/zenchat/zenchat/internal/logging"

	_ "modernc.org/sqlite"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// consoleObserver prints service notices straight to the terminal.
// State change signals are ignored: the REPL re-reads service state on
// every command, so there is nothing to repaint.
type consoleObserver struct{}

func (consoleObserver) StateChanged() {}

func (consoleObserver) Notice(kind services.NoticeKind, message string) {
	if kind == services.NoticeError {
		printlnFn("Error: " + message)
		return
	}
	printlnFn(message)
}

type App struct {
	config  *config.Config
	session *services.SessionService
	chats   *services.ChatService
	current string
	reader  *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()
	logger := logging.NewDefault(slog.LevelWarn)

	db, err := credentials.OpenDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}

	apiClient := api.NewHTTPClient(c.ServerURL, c.RequestTimeout)
	repo := credentials.NewSQLiteRepository(db)

	flow := oauth.NewFlow(oauth.Config{
		ClientID:     c.OAuthClientID,
		ClientSecret: c.OAuthClientSecret,
		WaitTimeout:  c.OAuthWaitTimeout,
	}, logger)

	observer := consoleObserver{}
	session := services.NewSessionService(apiClient, repo, flow, logger, observer)
	chats := services.NewChatService(apiClient, session, logger, observer)
	session.AttachChats(chats)

	return &App{
		config:  c,
		session: session,
		chats:   chats,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.session.IsAuthenticated()
}

func (a *App) Run(ctx context.Context) {
	// Silent restore: no session on disk means no prompt and no traffic.
	_ = a.session.Restore(ctx)
	a.Root(ctx)
}

package services

import (
	"context"
	"sync"
	"time"

	"github.com/zenchat/zenchat/internal/client/api"
	"github.com/zenchat/zenchat/internal/client/models"
	"github.com/zenchat/zenchat/internal/client/oauth"
	"github.com/zenchat/zenchat/internal/logging"
)

// ---- fake api client ----

// fakeClient implements api.Client for service unit tests. Results and
// errors are configured via the *Ret / *Err fields, arguments are captured
// in the Last* fields, and per-method counters track call volume. Optional
// Block* channels let a test hold a call open to provoke concurrency.
type fakeClient struct {
	mu sync.Mutex

	SignUpRet *api.Account
	SignUpErr error

	LoginRet   *api.Credentials
	LoginErr   error
	LoginCalls int

	GoogleSignInRet *api.Credentials
	GoogleSignInErr error

	VerifyTokenRet   *api.TokenInfo
	VerifyTokenErr   error
	VerifyTokenCalls int
	BlockVerify      chan struct{}

	CreateChatRet *models.Chat
	CreateChatErr error

	ListChatsRet   []*models.Chat
	ListChatsErr   error
	ListChatsCalls int

	GetChatRet   *models.Chat
	GetChatErr   error
	GetChatCalls int
	BlockGetChat chan struct{}

	UpdateChatRet *models.Chat
	UpdateChatErr error

	DeleteChatErr error

	SendMessageRet   *api.SendResult
	SendMessageErr   error
	SendMessageCalls int

	UploadFileRet   *models.Attachment
	UploadFileErr   error
	UploadFileCalls int

	LastSignUpEmail  string
	LastLoginEmail   string
	LastGoogleToken  string
	LastVerifyToken  string
	LastListUID      string
	LastGetChatID    string
	LastDeleteChatID string
	LastSendContent  string
	LastSendFileIDs  []string
	LastUploadName   string
	LastUploadMime   string
	LastUploadData   []byte
}

func (f *fakeClient) SignUp(ctx context.Context, email, password, displayName string) (*api.Account, error) {
	f.mu.Lock()
	f.LastSignUpEmail = email
	f.mu.Unlock()
	return f.SignUpRet, f.SignUpErr
}

func (f *fakeClient) Login(ctx context.Context, email, password string) (*api.Credentials, error) {
	f.mu.Lock()
	f.LastLoginEmail = email
	f.LoginCalls++
	f.mu.Unlock()
	return f.LoginRet, f.LoginErr
}

func (f *fakeClient) GoogleSignIn(ctx context.Context, idToken string) (*api.Credentials, error) {
	f.mu.Lock()
	f.LastGoogleToken = idToken
	f.mu.Unlock()
	return f.GoogleSignInRet, f.GoogleSignInErr
}

func (f *fakeClient) VerifyToken(ctx context.Context, idToken string) (*api.TokenInfo, error) {
	f.mu.Lock()
	f.LastVerifyToken = idToken
	f.VerifyTokenCalls++
	block := f.BlockVerify
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return f.VerifyTokenRet, f.VerifyTokenErr
}

func (f *fakeClient) CreateChat(ctx context.Context, uid, title, systemPrompt string) (*models.Chat, error) {
	return f.CreateChatRet, f.CreateChatErr
}

func (f *fakeClient) ListChats(ctx context.Context, uid string) ([]*models.Chat, error) {
	f.mu.Lock()
	f.LastListUID = uid
	f.ListChatsCalls++
	f.mu.Unlock()
	return f.ListChatsRet, f.ListChatsErr
}

func (f *fakeClient) GetChat(ctx context.Context, uid, chatID string) (*models.Chat, error) {
	f.mu.Lock()
	f.LastGetChatID = chatID
	f.GetChatCalls++
	block := f.BlockGetChat
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return f.GetChatRet, f.GetChatErr
}

func (f *fakeClient) UpdateChat(ctx context.Context, uid, chatID string, update api.ChatUpdate) (*models.Chat, error) {
	return f.UpdateChatRet, f.UpdateChatErr
}

func (f *fakeClient) DeleteChat(ctx context.Context, uid, chatID string) error {
	f.mu.Lock()
	f.LastDeleteChatID = chatID
	f.mu.Unlock()
	return f.DeleteChatErr
}

func (f *fakeClient) SendMessage(ctx context.Context, uid, chatID, content string, fileIDs []string) (*api.SendResult, error) {
	f.mu.Lock()
	f.LastSendContent = content
	f.LastSendFileIDs = append([]string(nil), fileIDs...)
	f.SendMessageCalls++
	f.mu.Unlock()
	return f.SendMessageRet, f.SendMessageErr
}

func (f *fakeClient) UploadFile(ctx context.Context, uid, chatID, fileName, mimeType string, data []byte) (*models.Attachment, error) {
	f.mu.Lock()
	f.LastUploadName = fileName
	f.LastUploadMime = mimeType
	f.LastUploadData = append([]byte(nil), data...)
	f.UploadFileCalls++
	f.mu.Unlock()
	return f.UploadFileRet, f.UploadFileErr
}

func (f *fakeClient) verifyCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.VerifyTokenCalls
}

func (f *fakeClient) getChatCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.GetChatCalls
}

// ---- fake credentials repository ----

type fakeRepo struct {
	mu   sync.Mutex
	data map[string][]byte

	GetErr    error
	SetErr    error
	DeleteErr error

	SetCalls    int
	DeleteCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{data: map[string][]byte{}}
}

func (f *fakeRepo) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	v, ok := f.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (f *fakeRepo) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetCalls++
	if f.SetErr != nil {
		return f.SetErr
	}
	f.data[key] = append([]byte(nil), value...)
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls++
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	delete(f.data, key)
	return nil
}

func (f *fakeRepo) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = map[string][]byte{}
	return nil
}

// ---- fake google flow ----

type fakeFlow struct {
	AuthenticateRet *oauth.Result
	AuthenticateErr error

	RevokeErr       error
	RevokeCalls     int
	LastRevokeToken string
}

func (f *fakeFlow) Authenticate(ctx context.Context) (*oauth.Result, error) {
	return f.AuthenticateRet, f.AuthenticateErr
}

func (f *fakeFlow) Revoke(ctx context.Context, token string) error {
	f.RevokeCalls++
	f.LastRevokeToken = token
	return f.RevokeErr
}

// ---- fake observer ----

type fakeObserver struct {
	mu           sync.Mutex
	stateChanges int
	notices      []string
	errors       []string
}

func (f *fakeObserver) StateChanged() {
	f.mu.Lock()
	f.stateChanges++
	f.mu.Unlock()
}

func (f *fakeObserver) Notice(kind NoticeKind, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if kind == NoticeError {
		f.errors = append(f.errors, message)
		return
	}
	f.notices = append(f.notices, message)
}

func (f *fakeObserver) lastNotice() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.notices) == 0 {
		return ""
	}
	return f.notices[len(f.notices)-1]
}

// ---- fake identity ----

type fakeIdentity struct {
	UID string
	Err error
}

func (f *fakeIdentity) CurrentUID() (string, error) {
	return f.UID, f.Err
}

// ---- misc ----

func testLogger() logging.Logger {
	return logging.NewDefault(99) // above every level, keeps test output quiet
}

func chatWith(id string, updated time.Time, msgs ...*models.Message) *models.Chat {
	return &models.Chat{
		ID:        id,
		OwnerID:   "u1",
		Title:     "chat " + id,
		UpdatedAt: updated,
		Messages:  msgs,
	}
}

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zenchat/zenchat/internal/client/api"
	"github.com/zenchat/zenchat/internal/client/models"
	"github.com/zenchat/zenchat/internal/client/oauth"
	"github.com/zenchat/zenchat/internal/client/repositories/credentials"
	"github.com/zenchat/zenchat/internal/common"
)

type fakeChatCache struct {
	mu           sync.Mutex
	RefreshErr   error
	RefreshCalls int
	ClearCalls   int
}

func (f *fakeChatCache) Refresh(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RefreshCalls++
	return f.RefreshErr
}

func (f *fakeChatCache) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ClearCalls++
}

func newSessionSvc(t *testing.T, fc *fakeClient, repo *fakeRepo, flow *fakeFlow) (*SessionService, *fakeChatCache, *fakeObserver) {
	t.Helper()
	if repo == nil {
		repo = newFakeRepo()
	}
	if flow == nil {
		flow = &fakeFlow{}
	}
	obs := &fakeObserver{}
	svc := NewSessionService(fc, repo, flow, testLogger(), obs)
	cache := &fakeChatCache{}
	svc.AttachChats(cache)
	return svc, cache, obs
}

func storedSession(t *testing.T, repo *fakeRepo, sess *models.Session) {
	t.Helper()
	blob, err := models.EncodeSession(sess)
	require.NoError(t, err)
	require.NoError(t, repo.Set(context.Background(), credentials.SessionKey, blob))
}

func TestSessionService_Restore_NoPersistedSession_NoNetwork(t *testing.T) {
	fc := &fakeClient{}
	svc, cache, _ := newSessionSvc(t, fc, nil, nil)

	require.NoError(t, svc.Restore(context.Background()))
	require.False(t, svc.IsAuthenticated())
	require.Zero(t, fc.verifyCalls())
	require.Zero(t, cache.RefreshCalls)
}

func TestSessionService_Restore_ValidSession_VerifiesAndRefreshes(t *testing.T) {
	repo := newFakeRepo()
	storedSession(t, repo, &models.Session{
		SubjectID:   "u1",
		Email:       "a@b.c",
		BearerToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour),
	})
	fc := &fakeClient{VerifyTokenRet: &api.TokenInfo{UID: "u1", Email: "a@b.c"}}
	svc, cache, _ := newSessionSvc(t, fc, repo, nil)

	require.NoError(t, svc.Restore(context.Background()))
	require.True(t, svc.IsAuthenticated())
	require.Equal(t, "tok", fc.LastVerifyToken)
	require.Equal(t, 1, cache.RefreshCalls)
}

func TestSessionService_Restore_NearExpiry_DropsRecordWithoutVerify(t *testing.T) {
	repo := newFakeRepo()
	storedSession(t, repo, &models.Session{
		SubjectID:   "u1",
		BearerToken: "tok",
		ExpiresAt:   time.Now().Add(30 * time.Second), // inside the near-expiry window
	})
	fc := &fakeClient{}
	svc, _, _ := newSessionSvc(t, fc, repo, nil)

	require.NoError(t, svc.Restore(context.Background()))
	require.False(t, svc.IsAuthenticated())
	require.Zero(t, fc.verifyCalls())
	v, err := repo.Get(context.Background(), credentials.SessionKey)
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestSessionService_Restore_VerifyFails_ClearsEverything(t *testing.T) {
	repo := newFakeRepo()
	storedSession(t, repo, &models.Session{
		SubjectID:   "u1",
		BearerToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour),
	})
	fc := &fakeClient{VerifyTokenErr: errors.New("revoked")}
	svc, _, _ := newSessionSvc(t, fc, repo, nil)

	err := svc.Restore(context.Background())
	require.Error(t, err)
	require.False(t, svc.IsAuthenticated())
	require.Equal(t, 1, fc.verifyCalls(), "verification is not retried")
	v, _ := repo.Get(context.Background(), credentials.SessionKey)
	require.Nil(t, v)
}

func TestSessionService_Restore_Concurrent_SingleVerify(t *testing.T) {
	repo := newFakeRepo()
	storedSession(t, repo, &models.Session{
		SubjectID:   "u1",
		BearerToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour),
	})
	block := make(chan struct{})
	fc := &fakeClient{
		VerifyTokenRet: &api.TokenInfo{UID: "u1"},
		BlockVerify:    block,
	}
	svc, _, _ := newSessionSvc(t, fc, repo, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = svc.Restore(context.Background())
	}()

	require.Eventually(t, func() bool { return fc.verifyCalls() == 1 }, time.Second, time.Millisecond)

	// Second restore while the first is in flight is a no-op.
	require.NoError(t, svc.Restore(context.Background()))
	require.Equal(t, 1, fc.verifyCalls())

	close(block)
	<-done
}

func TestSessionService_Login_Validation_NoNetwork(t *testing.T) {
	fc := &fakeClient{}
	svc, _, _ := newSessionSvc(t, fc, nil, nil)

	err := svc.Login(context.Background(), "  ", "pw")
	require.ErrorIs(t, err, common.ErrValidation)
	err = svc.Login(context.Background(), "a@b.c", "")
	require.ErrorIs(t, err, common.ErrValidation)
	require.Zero(t, fc.LoginCalls)
}

func TestSessionService_Login_Success(t *testing.T) {
	repo := newFakeRepo()
	fc := &fakeClient{LoginRet: &api.Credentials{
		IDToken:      "tok",
		RefreshToken: "ref",
		ExpiresIn:    time.Hour,
		UID:          "u1",
		Email:        "a@b.c",
	}}
	svc, cache, obs := newSessionSvc(t, fc, repo, nil)

	require.NoError(t, svc.Login(context.Background(), "a@b.c", "pw"))
	require.True(t, svc.IsAuthenticated())
	require.Equal(t, 1, cache.RefreshCalls)
	require.Contains(t, obs.lastNotice(), "a@b.c")

	// persisted for the next run
	v, err := repo.Get(context.Background(), credentials.SessionKey)
	require.NoError(t, err)
	require.NotNil(t, v)
	sess, err := models.DecodeSession(v)
	require.NoError(t, err)
	require.Equal(t, "u1", sess.SubjectID)
}

func TestSessionService_Login_ExpiryDerivedFromLocalClock(t *testing.T) {
	fc := &fakeClient{LoginRet: &api.Credentials{
		IDToken:   "tok",
		ExpiresIn: time.Hour,
		UID:       "u1",
		Email:     "a@b.c",
	}}
	svc, _, _ := newSessionSvc(t, fc, nil, nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	require.NoError(t, svc.Login(context.Background(), "a@b.c", "pw"))
	require.Equal(t, base.Add(time.Hour), svc.Current().ExpiresAt)
}

func TestSessionService_SignUp_CreatesThenLogsIn(t *testing.T) {
	fc := &fakeClient{
		SignUpRet: &api.Account{UID: "u1", Email: "a@b.c", DisplayName: "Ada"},
		LoginRet: &api.Credentials{
			IDToken:   "tok",
			ExpiresIn: time.Hour,
			UID:       "u1",
			Email:     "a@b.c",
		},
	}
	svc, _, obs := newSessionSvc(t, fc, nil, nil)

	require.NoError(t, svc.SignUp(context.Background(), "a@b.c", "pw", "Ada"))
	require.True(t, svc.IsAuthenticated())
	require.Equal(t, 1, fc.LoginCalls)
	require.True(t, svc.Current().IsNewAccount)
	require.Contains(t, obs.lastNotice(), "Ada")
}

func TestSessionService_GoogleSignIn_Cancelled_IsNotAnError(t *testing.T) {
	fc := &fakeClient{}
	flow := &fakeFlow{AuthenticateRet: &oauth.Result{Cancelled: true}}
	svc, _, obs := newSessionSvc(t, fc, nil, flow)

	require.NoError(t, svc.LoginWithGoogle(context.Background()))
	require.False(t, svc.IsAuthenticated())
	require.Contains(t, obs.lastNotice(), "cancelled")
	require.Empty(t, fc.LastGoogleToken)
}

func TestSessionService_GoogleSignIn_Success_MergesProfile(t *testing.T) {
	fc := &fakeClient{GoogleSignInRet: &api.Credentials{
		IDToken:      "backend-tok",
		ExpiresIn:    time.Hour,
		UID:          "u1",
		IsNewAccount: true,
	}}
	flow := &fakeFlow{AuthenticateRet: &oauth.Result{
		IDToken:     "google-tok",
		Email:       "a@gmail.com",
		DisplayName: "Ada",
		AvatarURL:   "https://img",
	}}
	svc, _, _ := newSessionSvc(t, fc, nil, flow)

	require.NoError(t, svc.LoginWithGoogle(context.Background()))
	require.Equal(t, "google-tok", fc.LastGoogleToken)
	sess := svc.Current()
	require.Equal(t, "a@gmail.com", sess.Email)
	require.Equal(t, "Ada", sess.DisplayName)
	require.Equal(t, "https://img", sess.AvatarURL)
	require.True(t, sess.IsNewAccount)
}

func TestSessionService_Logout_ClearsSessionChatsAndRecord(t *testing.T) {
	repo := newFakeRepo()
	fc := &fakeClient{LoginRet: &api.Credentials{
		IDToken:      "tok",
		RefreshToken: "ref",
		ExpiresIn:    time.Hour,
		UID:          "u1",
		Email:        "a@b.c",
	}}
	flow := &fakeFlow{}
	svc, cache, _ := newSessionSvc(t, fc, repo, flow)
	require.NoError(t, svc.Login(context.Background(), "a@b.c", "pw"))

	require.NoError(t, svc.Logout(context.Background()))
	require.False(t, svc.IsAuthenticated())
	require.Equal(t, 1, cache.ClearCalls)
	require.Equal(t, "ref", flow.LastRevokeToken)
	v, _ := repo.Get(context.Background(), credentials.SessionKey)
	require.Nil(t, v)
}

func TestSessionService_Logout_RevocationFailureIsSwallowed(t *testing.T) {
	fc := &fakeClient{LoginRet: &api.Credentials{
		IDToken: "tok", ExpiresIn: time.Hour, UID: "u1", Email: "a@b.c",
	}}
	flow := &fakeFlow{RevokeErr: errors.New("offline")}
	svc, _, _ := newSessionSvc(t, fc, nil, flow)
	require.NoError(t, svc.Login(context.Background(), "a@b.c", "pw"))

	require.NoError(t, svc.Logout(context.Background()))
	require.Equal(t, 1, flow.RevokeCalls)
}

func TestSessionService_CurrentUID_ExpiredSession(t *testing.T) {
	fc := &fakeClient{LoginRet: &api.Credentials{
		IDToken: "tok", ExpiresIn: time.Minute, UID: "u1", Email: "a@b.c",
	}}
	svc, _, _ := newSessionSvc(t, fc, nil, nil)
	require.NoError(t, svc.Login(context.Background(), "a@b.c", "pw"))

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err := svc.CurrentUID()
	require.ErrorIs(t, err, common.ErrNotAuthenticated)
	require.False(t, svc.IsAuthenticated())
}

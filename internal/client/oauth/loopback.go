package oauth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// callbackResult is what the provider's redirect delivered: either an
// authorization code or an OAuth error.
type callbackResult struct {
	code           string
	errCode        string
	errDescription string
}

// loopbackServer is the ephemeral HTTP listener that receives the OAuth
// redirect on 127.0.0.1. Exactly one structurally valid callback is
// delivered to the waiter; requests failing state validation get a 400 and
// the wait continues.
type loopbackServer struct {
	listener net.Listener
	server   *http.Server
	state    string
	results  chan callbackResult
}

func newLoopbackServer(state string) (*loopbackServer, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("bind loopback listener: %w", err)
	}

	s := &loopbackServer{
		listener: listener,
		state:    state,
		results:  make(chan callbackResult, 1),
	}

	r := chi.NewRouter()
	r.Get("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/", s.handleCallback)

	s.server = &http.Server{Handler: r}
	go func() { _ = s.server.Serve(listener) }()

	return s, nil
}

// Port is the ephemeral port the listener is bound to.
func (s *loopbackServer) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// RedirectURI is the redirect_uri registered with the provider for this
// flow attempt.
func (s *loopbackServer) RedirectURI() string {
	return fmt.Sprintf("http://localhost:%d/", s.Port())
}

func (s *loopbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("state") != s.state {
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return
	}

	if errCode := q.Get("error"); errCode != "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, errorPage)
		s.deliver(callbackResult{errCode: errCode, errDescription: q.Get("error_description")})
		return
	}

	code := q.Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprint(w, successPage)
	s.deliver(callbackResult{code: code})
}

// deliver hands the result to the waiter. Later callbacks after the first
// are dropped.
func (s *loopbackServer) deliver(res callbackResult) {
	select {
	case s.results <- res:
	default:
	}
}

// Wait blocks until a valid callback arrives, the timeout elapses, or ctx
// is cancelled. ok is false when no callback was received.
func (s *loopbackServer) Wait(ctx context.Context, timeout time.Duration) (res callbackResult, ok bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res = <-s.results:
		return res, true
	case <-timer.C:
		return callbackResult{}, false
	case <-ctx.Done():
		return callbackResult{}, false
	}
}

// Close tears the listener down. Safe to call on every exit path.
func (s *loopbackServer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		_ = s.server.Close()
	}
}

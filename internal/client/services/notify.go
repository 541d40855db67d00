package services

// NoticeKind classifies one-shot notifications surfaced to the UI layer.
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeError
)

// Observer receives events from the services. StateChanged fires whenever
// observable state (session, chat list, flags) may have changed; Notice
// carries one-shot informational or error text. The UI layer subscribes;
// the services never block on it, so implementations must return quickly.
type Observer interface {
	StateChanged()
	Notice(kind NoticeKind, message string)
}

type nopObserver struct{}

func (nopObserver) StateChanged() {}

func (nopObserver) Notice(NoticeKind, string) {}

// notices is the read-and-clear last-error/last-notice slot shared by both
// services: boundary errors and informational messages are recorded here
// and consumed at most once by the caller.
type notices struct {
	lastErr    error
	lastNotice string
}

func (n *notices) setErr(err error)   { n.lastErr = err }
func (n *notices) setNotice(s string) { n.lastNotice = s }

func (n *notices) consumeErr() error {
	err := n.lastErr
	n.lastErr = nil
	return err
}

func (n *notices) consumeNotice() string {
	s := n.lastNotice
	n.lastNotice = ""
	return s
}

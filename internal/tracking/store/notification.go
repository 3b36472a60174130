package store

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Notification is the transient one-shot message shown to the operator.
type Notification struct {
	ID       uint64    `json:"id"`
	Message  string    `json:"message"`
	Error    bool      `json:"error"`
	RaisedAt time.Time `json:"raised_at"`
}

const (
	msgStarted        = "Started tracking %s"
	msgRequestFailure = "Error requesting tractor"
)

// raiseLocked replaces the current notice and arms its self-dismiss timer.
func (s *Store) raiseLocked(message string, isErr bool) {
	s.dismissLocked()

	s.noticeSeq++
	id := s.noticeSeq
	s.notice = &Notification{ID: id, Message: message, Error: isErr, RaisedAt: s.clock.Now()}

	cancel := make(chan struct{})
	s.noticeCancel = cancel
	timer := s.clock.NewTimer(s.cfg.NoticeTTL)
	go s.expireNotice(timer, cancel, id)
}

// ClearNotification dismisses the current notice. It reports whether one was
// showing.
func (s *Store) ClearNotification() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.notice != nil
	s.dismissLocked()
	return had
}

// Notification returns the notice currently showing, if any.
func (s *Store) Notification() (Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notice == nil {
		return Notification{}, false
	}
	return *s.notice, true
}

func (s *Store) dismissLocked() {
	if s.noticeCancel != nil {
		close(s.noticeCancel)
		s.noticeCancel = nil
	}
	s.notice = nil
}

func (s *Store) expireNotice(timer clockwork.Timer, cancel <-chan struct{}, id uint64) {
	select {
	case <-cancel:
		timer.Stop()
		return
	case <-timer.Chan():
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notice == nil || s.notice.ID != id {
		return
	}
	s.notice = nil
	s.noticeCancel = nil
}

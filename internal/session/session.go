// Package session holds per-login navigation state: who is logged in, which
// month they are looking at, and whether an entry is being edited or is
// awaiting delete confirmation.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/petrol-logbook/internal/domain"
)

// Mode is the form currently shown to the user.
type Mode int

const (
	Browsing Mode = iota
	Editing
	ConfirmingDelete
)

func (m Mode) String() string {
	switch m {
	case Editing:
		return "editing"
	case ConfirmingDelete:
		return "confirming_delete"
	default:
		return "browsing"
	}
}

// State is a snapshot of a Session's navigation state.
// Serial is zero while Browsing.
type State struct {
	Mode   Mode
	Serial int
	Month  domain.Month
}

// Session is the explicit context for one logged-in user. It is safe for
// concurrent use; every method takes the session's own lock.
type Session struct {
	ID   uuid.UUID
	User domain.UserProfile

	mu       sync.Mutex
	month    domain.Month
	mode     Mode
	target   domain.Entry
	lastSeen time.Time
}

func newSession(user domain.UserProfile, month domain.Month, now time.Time) *Session {
	return &Session{ID: uuid.New(), User: user, month: month, lastSeen: now}
}

// State returns the current navigation state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Mode: s.mode, Serial: s.target.Serial, Month: s.month}
}

// Key returns the RecordKey the session is working on.
func (s *Session) Key() domain.RecordKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.RecordKey{User: s.User.Email, Month: s.month}
}

// Rollover moves the session to month. When the month changes any pending
// edit or delete is abandoned, since its serial belonged to the old set.
func (s *Session) Rollover(month domain.Month) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.month != month {
		s.month = month
		s.mode, s.target = Browsing, domain.Entry{}
	}
}

// BeginEdit switches to Editing(e.Serial) and remembers e as it was read,
// so the save can tell whether the entry moved underneath it.
func (s *Session) BeginEdit(e domain.Entry) {
	s.set(Editing, e)
}

// BeginDelete switches to ConfirmingDelete(e.Serial).
func (s *Session) BeginDelete(e domain.Entry) {
	s.set(ConfirmingDelete, e)
}

// Cancel returns to Browsing without touching any entry.
func (s *Session) Cancel() {
	s.set(Browsing, domain.Entry{})
}

// Complete returns to Browsing after a save or delete.
func (s *Session) Complete() {
	s.set(Browsing, domain.Entry{})
}

// Expect returns the entry the pending action was opened on, or
// domain.ErrConflict unless the session is in mode for serial.
func (s *Session) Expect(mode Mode, serial int) (domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != mode || s.target.Serial != serial {
		return domain.Entry{}, fmt.Errorf("%w: session is %s", domain.ErrConflict, describe(s.mode, s.target.Serial))
	}
	return s.target, nil
}

func (s *Session) set(mode Mode, target domain.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode, s.target = mode, target
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

func describe(mode Mode, serial int) string {
	if mode == Browsing {
		return mode.String()
	}
	return fmt.Sprintf("%s entry %d", mode, serial)
}

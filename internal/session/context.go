package session

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Channel identifies the front-end a session arrived through.
type Channel string

const (
	ChannelWeb      Channel = "web"
	ChannelIVR      Channel = "ivr"
	ChannelSMS      Channel = "sms"
	ChannelTerminal Channel = "terminal"
)

// minAccountNumberLen is the shortest account number the context will persist
// as a selection. Anything shorter is a fragment (e.g. last-4-digits) and must
// be resolved to a full number before it can be selected.
const minAccountNumberLen = 10

// ErrInvalidAccountNumber is returned when a selection would persist a
// partial account number.
var ErrInvalidAccountNumber = errors.New("invalid account number: shorter than minimum length")

// AccountRef pairs a full account number with its masked display form.
type AccountRef struct {
	AccountNumber string `json:"account_number"`
	MaskedAccount string `json:"masked_account"`
}

// Session is the transient per-session context: who is calling, which
// accounts were discovered, and where the caller is in the selection funnel.
type Session struct {
	ID                string
	CallerID          string
	Channel           Channel
	CreatedAt         time.Time
	LastActivity      time.Time
	RetrievedAccounts []AccountRef
	SelectedAccount   string
	AccountSelected   bool
	AwaitingPIN       bool
	CallID            string
	FailedPINAttempts int
}

// ContextPatch carries optional field updates for UpdateContext. Nil fields
// are left untouched.
type ContextPatch struct {
	CallerID *string
	Channel  *Channel
}

// ContextManager owns the session context store.
type ContextManager struct {
	store  *shardedStore[*Session]
	logger *slog.Logger
}

// NewContextManager creates an empty context store.
func NewContextManager(logger *slog.Logger) *ContextManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContextManager{
		store:  newShardedStore[*Session](),
		logger: logger,
	}
}

// InitializeSession creates a fresh session with all funnel flags cleared.
// An existing session with the same id is replaced.
func (m *ContextManager) InitializeSession(id, callerID string, channel Channel) *Session {
	now := time.Now()
	sess := &Session{
		ID:           id,
		CallerID:     callerID,
		Channel:      channel,
		CreatedAt:    now,
		LastActivity: now,
		CallID:       NewCallID(),
	}
	m.store.set(id, sess)
	return sess
}

// UpdateContext merges the patch into the session and bumps last activity,
// initializing the session if it does not exist yet.
func (m *ContextManager) UpdateContext(id string, patch ContextPatch) {
	m.store.update(id, func(sess *Session, ok bool) (*Session, bool) {
		if !ok {
			now := time.Now()
			sess = &Session{
				ID:           id,
				CreatedAt:    now,
				LastActivity: now,
				CallID:       NewCallID(),
			}
		}
		if patch.CallerID != nil && *patch.CallerID != "" {
			sess.CallerID = *patch.CallerID
		}
		if patch.Channel != nil {
			sess.Channel = *patch.Channel
		}
		sess.LastActivity = time.Now()
		return sess, true
	})
}

// SetSelectedAccount persists the confirmed full account number and moves the
// funnel to awaiting-PIN. A number shorter than the minimum length is rejected
// so a 4-digit fragment can never become the selection.
func (m *ContextManager) SetSelectedAccount(id, accountNumber string) error {
	if len(accountNumber) < minAccountNumberLen {
		return fmt.Errorf("set selected account for session %s: %w (len %d)", id, ErrInvalidAccountNumber, len(accountNumber))
	}
	m.store.update(id, func(sess *Session, ok bool) (*Session, bool) {
		if !ok {
			return nil, false
		}
		sess.SelectedAccount = accountNumber
		sess.AccountSelected = true
		sess.AwaitingPIN = true
		sess.LastActivity = time.Now()
		return sess, true
	})
	return nil
}

// SelectedAccount returns the selected account number. The stored value is
// re-checked against the length gate on the way out; a short value indicates
// store corruption and is reported as absent.
func (m *ContextManager) SelectedAccount(id string) (string, bool) {
	sess, ok := m.store.get(id)
	if !ok || sess.SelectedAccount == "" {
		return "", false
	}
	if len(sess.SelectedAccount) < minAccountNumberLen {
		m.logger.Warn("selected account failed integrity check",
			"session_id", id, "length", len(sess.SelectedAccount))
		return "", false
	}
	return sess.SelectedAccount, true
}

// SetRetrievedAccounts replaces the discovered account list. A fresh list
// always invalidates any prior selection.
func (m *ContextManager) SetRetrievedAccounts(id string, accounts []AccountRef) {
	m.store.update(id, func(sess *Session, ok bool) (*Session, bool) {
		if !ok {
			now := time.Now()
			sess = &Session{
				ID:           id,
				CreatedAt:    now,
				LastActivity: now,
				CallID:       NewCallID(),
			}
		}
		sess.RetrievedAccounts = append([]AccountRef(nil), accounts...)
		sess.SelectedAccount = ""
		sess.AccountSelected = false
		sess.AwaitingPIN = false
		sess.LastActivity = time.Now()
		return sess, true
	})
}

// RetrievedAccounts returns a copy of the discovered account list.
func (m *ContextManager) RetrievedAccounts(id string) []AccountRef {
	sess, ok := m.store.get(id)
	if !ok {
		return nil
	}
	return append([]AccountRef(nil), sess.RetrievedAccounts...)
}

// SetAwaitingPIN sets or clears the awaiting-PIN flag.
func (m *ContextManager) SetAwaitingPIN(id string, awaiting bool) {
	m.store.update(id, func(sess *Session, ok bool) (*Session, bool) {
		if !ok {
			return nil, false
		}
		sess.AwaitingPIN = awaiting
		return sess, true
	})
}

// ClearSelectedAccount drops the current selection and the awaiting-PIN flag,
// returning the funnel to the digit-collection stage.
func (m *ContextManager) ClearSelectedAccount(id string) {
	m.store.update(id, func(sess *Session, ok bool) (*Session, bool) {
		if !ok {
			return nil, false
		}
		sess.SelectedAccount = ""
		sess.AccountSelected = false
		sess.AwaitingPIN = false
		sess.LastActivity = time.Now()
		return sess, true
	})
}

// RecordFailedPIN increments the failed PIN counter and returns the new count.
func (m *ContextManager) RecordFailedPIN(id string) int {
	var count int
	m.store.update(id, func(sess *Session, ok bool) (*Session, bool) {
		if !ok {
			return nil, false
		}
		sess.FailedPINAttempts++
		count = sess.FailedPINAttempts
		return sess, true
	})
	return count
}

// HasAccounts reports whether the session has a discovered account list.
func (m *ContextManager) HasAccounts(id string) bool {
	sess, ok := m.store.get(id)
	return ok && len(sess.RetrievedAccounts) > 0
}

// IsAccountSelected reports whether an account has been confirmed.
func (m *ContextManager) IsAccountSelected(id string) bool {
	sess, ok := m.store.get(id)
	return ok && sess.AccountSelected
}

// IsAwaitingPIN reports whether the session is waiting on PIN entry.
func (m *ContextManager) IsAwaitingPIN(id string) bool {
	sess, ok := m.store.get(id)
	return ok && sess.AwaitingPIN
}

// CallerID returns the caller's phone number if known.
func (m *ContextManager) CallerID(id string) (string, bool) {
	sess, ok := m.store.get(id)
	if !ok || sess.CallerID == "" {
		return "", false
	}
	return sess.CallerID, true
}

// CallID returns the backend correlation id for the session.
func (m *ContextManager) CallID(id string) (string, bool) {
	sess, ok := m.store.get(id)
	if !ok {
		return "", false
	}
	return sess.CallID, true
}

// Channel returns the channel the session arrived through.
func (m *ContextManager) Channel(id string) (Channel, bool) {
	sess, ok := m.store.get(id)
	if !ok {
		return "", false
	}
	return sess.Channel, true
}

// ClearExpiredSessions removes context for the given session ids.
func (m *ContextManager) ClearExpiredSessions(ids []string) {
	for _, id := range ids {
		m.store.delete(id)
	}
}

// EndSession removes the session context entirely.
func (m *ContextManager) EndSession(id string) {
	m.store.delete(id)
}

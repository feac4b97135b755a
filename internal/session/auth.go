package session

import (
	"time"
)

// DefaultAuthTTL is how long an authentication record stays fresh without
// activity.
const DefaultAuthTTL = 15 * time.Minute

type authRecord struct {
	accountNumber string
	lastActivity  time.Time
}

// AuthManager tracks which sessions are authenticated to which account.
// Expiry is lazy: reads never mutate, sweeping happens via CleanupExpired.
type AuthManager struct {
	store *shardedStore[authRecord]
	ttl   time.Duration
	now   func() time.Time
}

// NewAuthManager creates an authentication store with the given TTL.
// A zero ttl uses DefaultAuthTTL.
func NewAuthManager(ttl time.Duration) *AuthManager {
	if ttl <= 0 {
		ttl = DefaultAuthTTL
	}
	return &AuthManager{
		store: newShardedStore[authRecord](),
		ttl:   ttl,
		now:   time.Now,
	}
}

// SetClock overrides the time source used for expiry. Tests use this to
// age records without sleeping.
func (m *AuthManager) SetClock(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

// Authenticate records the session as authenticated for the account,
// overwriting any prior record.
func (m *AuthManager) Authenticate(sessionID, accountNumber string) {
	m.store.set(sessionID, authRecord{
		accountNumber: accountNumber,
		lastActivity:  m.now(),
	})
}

// IsAuthenticated reports whether the session has a fresh authentication
// record. Pure read: an expired record is left in place for the sweep.
func (m *AuthManager) IsAuthenticated(sessionID string) bool {
	rec, ok := m.store.get(sessionID)
	if !ok {
		return false
	}
	return m.now().Sub(rec.lastActivity) <= m.ttl
}

// AuthenticatedAccount returns the account the session is authenticated for.
func (m *AuthManager) AuthenticatedAccount(sessionID string) (string, bool) {
	rec, ok := m.store.get(sessionID)
	if !ok || m.now().Sub(rec.lastActivity) > m.ttl {
		return "", false
	}
	return rec.accountNumber, true
}

// UpdateActivity refreshes the record's timestamp if one exists.
func (m *AuthManager) UpdateActivity(sessionID string) {
	m.store.update(sessionID, func(rec authRecord, ok bool) (authRecord, bool) {
		if !ok {
			return rec, false
		}
		rec.lastActivity = m.now()
		return rec, true
	})
}

// CleanupExpired removes all records past the TTL and returns the removed
// session ids so dependent stores can be cleared in lockstep.
func (m *AuthManager) CleanupExpired() []string {
	var expired []string
	now := m.now()
	for _, id := range m.store.keys() {
		m.store.update(id, func(rec authRecord, ok bool) (authRecord, bool) {
			if !ok {
				return rec, false
			}
			if now.Sub(rec.lastActivity) > m.ttl {
				expired = append(expired, id)
				return rec, false
			}
			return rec, true
		})
	}
	return expired
}

// EndSession removes the record immediately, independent of TTL.
func (m *AuthManager) EndSession(sessionID string) {
	m.store.delete(sessionID)
}

package entities

import (
	"time"

	"github.com/google/uuid"
)

// FlowState is the conversation state machine position for one session.
type FlowState string

const (
	FlowIdle         FlowState = "idle"
	FlowActive       FlowState = "active"
	FlowAwaitingUser FlowState = "awaiting_user"
	FlowPingedWait   FlowState = "pinged_wait"
)

// sessionNamespace seeds the deterministic session id derivation.
// Changing it orphans every existing session row.
var sessionNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// SessionID derives the session id for a (tenant, user) pair. The same
// pair always yields the same id, which is what enforces the single
// session per pair invariant at the storage layer.
func SessionID(tenantID, userID string) uuid.UUID {
	return uuid.NewSHA1(sessionNamespace, []byte(tenantID+":"+userID))
}

// ConversationSession is the one mutable record per (tenant, user) pair.
// Every read-modify-write against it happens under the session's flow lock.
// Sessions are never hard-deleted, only reset back to idle.
type ConversationSession struct {
	SessionID      uuid.UUID  `json:"session_id"`
	TenantID       string     `json:"tenant_id"`
	UserID         string     `json:"user_id"`
	CurrentState   FlowState  `json:"current_state"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	LastActivityAt time.Time  `json:"last_activity_at"`
}

// NewConversationSession creates an idle session for a pair.
func NewConversationSession(tenantID, userID string, now time.Time) *ConversationSession {
	return &ConversationSession{
		SessionID:      SessionID(tenantID, userID),
		TenantID:       tenantID,
		UserID:         userID,
		CurrentState:   FlowIdle,
		LastActivityAt: now,
	}
}

// RegisterInbound applies the "any state + inbound message" transition:
// the session becomes active, timers are cleared and activity is refreshed.
func (s *ConversationSession) RegisterInbound(now time.Time) {
	s.CurrentState = FlowActive
	s.ExpiresAt = nil
	s.LastActivityAt = now
}

// ExpectReply arms the inactivity timer after an outbound message that
// asks the user a question. Only meaningful from the active state.
func (s *ConversationSession) ExpectReply(now time.Time, grace time.Duration) {
	deadline := now.Add(grace)
	s.CurrentState = FlowAwaitingUser
	s.ExpiresAt = &deadline
	s.LastActivityAt = now
}

// TimedOut reports whether the session's timer has passed.
func (s *ConversationSession) TimedOut(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// AdvanceTimeout applies the watchdog transition for a timed-out session:
// awaiting_user escalates to pinged_wait with a fresh grace period, and
// pinged_wait winds down to idle with the timer cleared. It returns the
// resulting state and whether anything changed. Sessions whose timer has
// not passed (or that carry no timer) are left untouched.
func (s *ConversationSession) AdvanceTimeout(now time.Time, pingGrace time.Duration) (FlowState, bool) {
	if !s.TimedOut(now) {
		return s.CurrentState, false
	}
	switch s.CurrentState {
	case FlowAwaitingUser:
		deadline := now.Add(pingGrace)
		s.CurrentState = FlowPingedWait
		s.ExpiresAt = &deadline
		return s.CurrentState, true
	case FlowPingedWait:
		s.CurrentState = FlowIdle
		s.ExpiresAt = nil
		return s.CurrentState, true
	default:
		// A stray timer on idle/active sessions is dropped.
		s.ExpiresAt = nil
		return s.CurrentState, false
	}
}

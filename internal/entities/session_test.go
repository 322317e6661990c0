package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionIDIsDeterministicPerPair(t *testing.T) {
	require.Equal(t, SessionID("salon-a", "5511999990001"), SessionID("salon-a", "5511999990001"))
	require.NotEqual(t, SessionID("salon-a", "5511999990001"), SessionID("salon-b", "5511999990001"))
	require.NotEqual(t, SessionID("salon-a", "5511999990001"), SessionID("salon-a", "5511999990002"))
}

func TestNewConversationSessionStartsIdle(t *testing.T) {
	now := time.Now()
	s := NewConversationSession("salon-a", "5511999990001", now)

	require.Equal(t, SessionID("salon-a", "5511999990001"), s.SessionID)
	require.Equal(t, FlowIdle, s.CurrentState)
	require.Nil(t, s.ExpiresAt)
	require.Equal(t, now, s.LastActivityAt)
}

func TestRegisterInboundResetsFromEveryState(t *testing.T) {
	now := time.Now()
	for _, state := range []FlowState{FlowIdle, FlowActive, FlowAwaitingUser, FlowPingedWait} {
		s := NewConversationSession("salon-a", "u1", now)
		s.CurrentState = state
		deadline := now.Add(time.Minute)
		s.ExpiresAt = &deadline

		later := now.Add(10 * time.Second)
		s.RegisterInbound(later)

		require.Equal(t, FlowActive, s.CurrentState, "from %s", state)
		require.Nil(t, s.ExpiresAt, "from %s", state)
		require.Equal(t, later, s.LastActivityAt, "from %s", state)
	}
}

func TestExpectReplyArmsTimer(t *testing.T) {
	now := time.Now()
	s := NewConversationSession("salon-a", "u1", now)
	s.RegisterInbound(now)

	s.ExpectReply(now, 30*time.Minute)

	require.Equal(t, FlowAwaitingUser, s.CurrentState)
	require.NotNil(t, s.ExpiresAt)
	require.Equal(t, now.Add(30*time.Minute), *s.ExpiresAt)
	require.False(t, s.TimedOut(now))
	require.False(t, s.TimedOut(now.Add(30*time.Minute)))
	require.True(t, s.TimedOut(now.Add(30*time.Minute+time.Second)))
}

func TestAdvanceTimeoutEscalatesThenWindsDown(t *testing.T) {
	now := time.Now()
	s := NewConversationSession("salon-a", "u1", now)
	s.RegisterInbound(now)
	s.ExpectReply(now, 30*time.Minute)

	// Before the deadline nothing moves.
	state, changed := s.AdvanceTimeout(now.Add(29*time.Minute), 15*time.Minute)
	require.False(t, changed)
	require.Equal(t, FlowAwaitingUser, state)

	expired := now.Add(31 * time.Minute)
	state, changed = s.AdvanceTimeout(expired, 15*time.Minute)
	require.True(t, changed)
	require.Equal(t, FlowPingedWait, state)
	require.NotNil(t, s.ExpiresAt)
	require.Equal(t, expired.Add(15*time.Minute), *s.ExpiresAt)

	// Still within the ping grace: no further movement.
	state, changed = s.AdvanceTimeout(expired.Add(14*time.Minute), 15*time.Minute)
	require.False(t, changed)
	require.Equal(t, FlowPingedWait, state)

	state, changed = s.AdvanceTimeout(expired.Add(16*time.Minute), 15*time.Minute)
	require.True(t, changed)
	require.Equal(t, FlowIdle, state)
	require.Nil(t, s.ExpiresAt)

	// Idle with no timer stays put.
	state, changed = s.AdvanceTimeout(expired.Add(time.Hour), 15*time.Minute)
	require.False(t, changed)
	require.Equal(t, FlowIdle, state)
}

func TestAdvanceTimeoutDropsStrayTimer(t *testing.T) {
	now := time.Now()
	s := NewConversationSession("salon-a", "u1", now)
	s.CurrentState = FlowActive
	deadline := now.Add(-time.Minute)
	s.ExpiresAt = &deadline

	state, changed := s.AdvanceTimeout(now, 15*time.Minute)
	require.False(t, changed)
	require.Equal(t, FlowActive, state)
	require.Nil(t, s.ExpiresAt)
}

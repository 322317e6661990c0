package usecases

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"atendebot/internal/entities"
	"atendebot/internal/infrastructure"
)

type recordingMessenger struct {
	mu   sync.Mutex
	sent []string
}

func (m *recordingMessenger) SendReply(_ context.Context, _, _ string, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, body)
	return nil
}

type watchdogFixture struct {
	watchdog  *Watchdog
	sessions  *infrastructure.MemorySessionStore
	messages  *infrastructure.MemoryMessageStore
	locks     *infrastructure.MemoryLockManager
	messenger *recordingMessenger
}

func newWatchdogFixture(t *testing.T, pingGrace time.Duration) *watchdogFixture {
	t.Helper()
	f := &watchdogFixture{
		sessions:  infrastructure.NewMemorySessionStore(),
		messages:  infrastructure.NewMemoryMessageStore(),
		locks:     infrastructure.NewMemoryLockManager(),
		messenger: &recordingMessenger{},
	}
	f.watchdog = NewWatchdog(
		f.sessions, f.messages, f.locks, NewReplyCatalog(nil), f.messenger,
		infrastructure.NewNopLogger(), time.Minute, 5*time.Second, pingGrace,
	)
	return f
}

func (f *watchdogFixture) seedAwaiting(t *testing.T, tenantID, userID string, deadline time.Time) *entities.ConversationSession {
	t.Helper()
	session := entities.NewConversationSession(tenantID, userID, deadline.Add(-time.Minute))
	session.CurrentState = entities.FlowAwaitingUser
	session.ExpiresAt = &deadline
	require.NoError(t, f.sessions.Save(context.Background(), session))
	return session
}

func TestSweepEscalatesAwaitingToPinged(t *testing.T) {
	f := newWatchdogFixture(t, 15*time.Minute)
	now := time.Now().UTC()
	f.seedAwaiting(t, "salon-a", "u1", now.Add(-time.Second))

	advanced := f.watchdog.Sweep(context.Background(), now)
	require.Equal(t, 1, advanced)

	session, err := f.sessions.Get(context.Background(), "salon-a", "u1")
	require.NoError(t, err)
	require.Equal(t, entities.FlowPingedWait, session.CurrentState)
	require.NotNil(t, session.ExpiresAt)
	require.Equal(t, now.Add(15*time.Minute), *session.ExpiresAt)

	all := f.messages.All()
	require.Len(t, all, 1)
	require.Equal(t, entities.DirectionOutbound, all[0].Direction)
	require.Equal(t, defaultReminderReply, all[0].Content)
	require.Equal(t, []string{defaultReminderReply}, f.messenger.sent)
}

func TestSweepWindsDownPingedToIdle(t *testing.T) {
	f := newWatchdogFixture(t, 15*time.Minute)
	now := time.Now().UTC()
	f.seedAwaiting(t, "salon-a", "u1", now.Add(-time.Second))

	require.Equal(t, 1, f.watchdog.Sweep(context.Background(), now))

	later := now.Add(16 * time.Minute)
	require.Equal(t, 1, f.watchdog.Sweep(context.Background(), later))

	session, err := f.sessions.Get(context.Background(), "salon-a", "u1")
	require.NoError(t, err)
	require.Equal(t, entities.FlowIdle, session.CurrentState)
	require.Nil(t, session.ExpiresAt)

	all := f.messages.All()
	require.Len(t, all, 2)
	require.Equal(t, defaultReminderReply, all[0].Content)
	require.Equal(t, defaultClosingReply, all[1].Content)
}

func TestSweepIsIdempotentBetweenDeadlines(t *testing.T) {
	f := newWatchdogFixture(t, 15*time.Minute)
	now := time.Now().UTC()
	f.seedAwaiting(t, "salon-a", "u1", now.Add(-time.Second))

	require.Equal(t, 1, f.watchdog.Sweep(context.Background(), now))
	require.Equal(t, 0, f.watchdog.Sweep(context.Background(), now.Add(time.Minute)))
	require.Equal(t, 0, f.watchdog.Sweep(context.Background(), now.Add(2*time.Minute)))

	require.Len(t, f.messages.All(), 1, "each timeout produces exactly one ping")
}

func TestSweepLeavesFreshSessionsAlone(t *testing.T) {
	f := newWatchdogFixture(t, 15*time.Minute)
	now := time.Now().UTC()
	f.seedAwaiting(t, "salon-a", "u1", now.Add(10*time.Minute))

	require.Equal(t, 0, f.watchdog.Sweep(context.Background(), now))
	require.Empty(t, f.messages.All())
}

func TestSweepSkipsLockedSessions(t *testing.T) {
	f := newWatchdogFixture(t, 15*time.Minute)
	now := time.Now().UTC()
	session := f.seedAwaiting(t, "salon-a", "u1", now.Add(-time.Second))

	token, err := f.locks.Acquire(context.Background(), session.SessionID.String(), time.Minute)
	require.NoError(t, err)
	defer f.locks.Release(context.Background(), session.SessionID.String(), token)

	require.Equal(t, 0, f.watchdog.Sweep(context.Background(), now))
	require.Empty(t, f.messages.All())

	reloaded, err := f.sessions.Get(context.Background(), "salon-a", "u1")
	require.NoError(t, err)
	require.Equal(t, entities.FlowAwaitingUser, reloaded.CurrentState)
}

func TestSweepRechecksUnderLock(t *testing.T) {
	f := newWatchdogFixture(t, 15*time.Minute)
	now := time.Now().UTC()
	session := f.seedAwaiting(t, "salon-a", "u1", now.Add(-time.Second))

	// The user replied between the scan and the lock: the reload sees a
	// cleared timer and the sweep does nothing.
	session.RegisterInbound(now)
	require.NoError(t, f.sessions.Save(context.Background(), session))

	stale := *session
	stale.CurrentState = entities.FlowAwaitingUser
	deadline := now.Add(-time.Second)
	stale.ExpiresAt = &deadline

	expired := []entities.ConversationSession{stale}
	advanced := 0
	for i := range expired {
		if f.watchdog.advance(context.Background(), &expired[i], now) {
			advanced++
		}
	}
	require.Equal(t, 0, advanced)
	require.Empty(t, f.messages.All())
}

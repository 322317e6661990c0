package usecases

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"atendebot/internal/entities"
	"atendebot/internal/infrastructure"
	"atendebot/internal/interfaces"
)

type countingAction struct {
	inner interfaces.DomainAction
	delay time.Duration
	calls int64
}

func (a *countingAction) Execute(ctx context.Context, req entities.ActionRequest) (entities.ActionResult, error) {
	atomic.AddInt64(&a.calls, 1)
	if a.delay > 0 {
		time.Sleep(a.delay)
	}
	return a.inner.Execute(ctx, req)
}

type failingAction struct{}

func (failingAction) Execute(_ context.Context, _ entities.ActionRequest) (entities.ActionResult, error) {
	return entities.ActionResult{}, errors.New("booking engine unreachable")
}

// flakySessionStore fails each operation once before delegating, to
// exercise the retry-once persistence policy.
type flakySessionStore struct {
	inner      *infrastructure.MemorySessionStore
	mu         sync.Mutex
	getFailed  bool
	saveFailed bool
}

func (s *flakySessionStore) Get(ctx context.Context, tenantID, userID string) (*entities.ConversationSession, error) {
	s.mu.Lock()
	if !s.getFailed {
		s.getFailed = true
		s.mu.Unlock()
		return nil, errors.New("connection reset")
	}
	s.mu.Unlock()
	return s.inner.Get(ctx, tenantID, userID)
}

func (s *flakySessionStore) Save(ctx context.Context, sess *entities.ConversationSession) error {
	s.mu.Lock()
	if !s.saveFailed {
		s.saveFailed = true
		s.mu.Unlock()
		return errors.New("connection reset")
	}
	s.mu.Unlock()
	return s.inner.Save(ctx, sess)
}

func (s *flakySessionStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]entities.ConversationSession, error) {
	return s.inner.ListExpired(ctx, now, limit)
}

type orchestratorFixture struct {
	orchestrator *Orchestrator
	sessions     *infrastructure.MemorySessionStore
	messages     *infrastructure.MemoryMessageStore
	locks        *infrastructure.MemoryLockManager
	action       *countingAction
}

func newOrchestratorFixture(t *testing.T, action interfaces.DomainAction, delay time.Duration) *orchestratorFixture {
	t.Helper()
	if action == nil {
		action = infrastructure.NewStubDomainAction()
	}
	f := &orchestratorFixture{
		sessions: infrastructure.NewMemorySessionStore(),
		messages: infrastructure.NewMemoryMessageStore(),
		locks:    infrastructure.NewMemoryLockManager(),
		action:   &countingAction{inner: action, delay: delay},
	}
	log := infrastructure.NewNopLogger()
	classifier := NewClassifier(NewRuleTable(), nil, 0, log)
	f.orchestrator = NewOrchestrator(
		f.locks, f.sessions, f.messages, classifier, f.action,
		NewReplyCatalog(nil), log, 5*time.Second, 30*time.Minute,
	)
	return f
}

func (f *orchestratorFixture) inboundCount() int {
	n := 0
	for _, m := range f.messages.All() {
		if m.Direction == entities.DirectionInbound {
			n++
		}
	}
	return n
}

func TestOrchestrateGreetingTurn(t *testing.T) {
	f := newOrchestratorFixture(t, nil, 0)

	result, err := f.orchestrator.Orchestrate(context.Background(), entities.InboundMessage{
		TenantID: "salon-a",
		UserID:   "5511999990001",
		Text:     "  Olá!  ",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Intent)
	require.Equal(t, entities.IntentGreeting, *result.Intent)
	require.Equal(t, 0.9, result.Confidence)
	require.Equal(t, entities.DecisionRegex, result.DecisionMethod)
	require.NotNil(t, result.Outcome)
	require.Equal(t, entities.OutcomeInfoRequestFulfilled, *result.Outcome)
	require.Equal(t, entities.FlowActive, result.FlowState)
	require.NotEmpty(t, result.ResponseText)

	all := f.messages.All()
	require.Len(t, all, 2)
	require.Equal(t, entities.DirectionInbound, all[0].Direction)
	require.Equal(t, "Olá!", all[0].Content)
	require.NotNil(t, all[0].Outcome)
	require.Equal(t, entities.DirectionOutbound, all[1].Direction)
	require.Equal(t, result.ResponseText, all[1].Content)

	session, err := f.sessions.Get(context.Background(), "salon-a", "5511999990001")
	require.NoError(t, err)
	require.NotNil(t, session)
	require.Equal(t, entities.FlowActive, session.CurrentState)
	require.Nil(t, session.ExpiresAt)
}

func TestOrchestrateMenuDigitTwo(t *testing.T) {
	f := newOrchestratorFixture(t, nil, 0)

	result, err := f.orchestrator.Orchestrate(context.Background(), entities.InboundMessage{
		TenantID: "salon-a",
		UserID:   "u1",
		Text:     "2",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Intent)
	require.Equal(t, entities.IntentMyAppointments, *result.Intent)
	require.Equal(t, 0.95, result.Confidence)
	require.Equal(t, entities.DecisionRegex, result.DecisionMethod)
	require.NotNil(t, result.Outcome)
	require.Equal(t, entities.OutcomeAppointmentInquiry, *result.Outcome)
}

func TestOrchestrateBookingArmsReplyTimer(t *testing.T) {
	f := newOrchestratorFixture(t, nil, 0)

	result, err := f.orchestrator.Orchestrate(context.Background(), entities.InboundMessage{
		TenantID: "salon-a",
		UserID:   "u1",
		Text:     "quero agendar",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Outcome)
	require.Equal(t, entities.OutcomeAppointmentCreated, *result.Outcome)
	require.Equal(t, entities.FlowAwaitingUser, result.FlowState)

	session, err := f.sessions.Get(context.Background(), "salon-a", "u1")
	require.NoError(t, err)
	require.NotNil(t, session)
	require.Equal(t, entities.FlowAwaitingUser, session.CurrentState)
	require.NotNil(t, session.ExpiresAt)
	require.True(t, session.ExpiresAt.After(time.Now().UTC().Add(29*time.Minute)))
}

func TestOrchestrateActionFailure(t *testing.T) {
	f := newOrchestratorFixture(t, failingAction{}, 0)

	result, err := f.orchestrator.Orchestrate(context.Background(), entities.InboundMessage{
		TenantID: "salon-a",
		UserID:   "u1",
		Text:     "quero cancelar",
	})
	require.NoError(t, err, "a failed action still completes the turn")
	require.NotNil(t, result.Outcome)
	require.Equal(t, entities.OutcomeActionFailed, *result.Outcome)
	require.Equal(t, defaultFailureReply, result.ResponseText)
	require.Equal(t, entities.FlowActive, result.FlowState)
}

func TestOrchestrateSuppressesRedelivery(t *testing.T) {
	f := newOrchestratorFixture(t, nil, 0)

	in := entities.InboundMessage{
		TenantID:         "salon-a",
		UserID:           "u1",
		Text:             "oi",
		ChannelMessageID: "wamid.AABBCC",
	}

	first, err := f.orchestrator.Orchestrate(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, first.Outcome)

	second, err := f.orchestrator.Orchestrate(context.Background(), in)
	require.NoError(t, err)
	require.Empty(t, second.ResponseText)
	require.Nil(t, second.Outcome)
	require.Equal(t, entities.FlowActive, second.FlowState)

	require.Equal(t, 1, f.inboundCount())
	require.Equal(t, int64(1), atomic.LoadInt64(&f.action.calls), "the domain action must not rerun")
}

func TestOrchestrateSerializesConcurrentTurns(t *testing.T) {
	f := newOrchestratorFixture(t, nil, 50*time.Millisecond)

	in := entities.InboundMessage{
		TenantID:         "salon-a",
		UserID:           "u1",
		Text:             "quero cancelar",
		ChannelMessageID: "wamid.DUP",
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*entities.OrchestrationResult, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.orchestrator.Orchestrate(context.Background(), in)
		}(i)
	}
	wg.Wait()

	processed := 0
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			require.ErrorIs(t, errs[i], entities.ErrFlowBusy)
			continue
		}
		if results[i].Outcome != nil {
			processed++
		}
	}
	require.Equal(t, 1, processed, "exactly one worker completes the turn")
	require.Equal(t, 1, f.inboundCount())
	require.Equal(t, int64(1), atomic.LoadInt64(&f.action.calls))
}

func TestOrchestrateBusySessionRejectedWithoutSideEffects(t *testing.T) {
	f := newOrchestratorFixture(t, nil, 0)

	key := entities.SessionID("salon-a", "u1").String()
	token, err := f.locks.Acquire(context.Background(), key, time.Minute)
	require.NoError(t, err)
	defer f.locks.Release(context.Background(), key, token)

	_, err = f.orchestrator.Orchestrate(context.Background(), entities.InboundMessage{
		TenantID: "salon-a",
		UserID:   "u1",
		Text:     "oi",
	})
	require.ErrorIs(t, err, entities.ErrFlowBusy)
	require.Empty(t, f.messages.All())
	require.Equal(t, int64(0), atomic.LoadInt64(&f.action.calls))
}

func TestOrchestrateRetriesSessionStoreOnce(t *testing.T) {
	f := newOrchestratorFixture(t, nil, 0)
	flaky := &flakySessionStore{inner: f.sessions}
	log := infrastructure.NewNopLogger()
	orchestrator := NewOrchestrator(
		f.locks, flaky, f.messages,
		NewClassifier(NewRuleTable(), nil, 0, log),
		f.action, NewReplyCatalog(nil), log,
		5*time.Second, 30*time.Minute,
	)

	result, err := orchestrator.Orchestrate(context.Background(), entities.InboundMessage{
		TenantID: "salon-a",
		UserID:   "u1",
		Text:     "oi",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Outcome)

	session, err := f.sessions.Get(context.Background(), "salon-a", "u1")
	require.NoError(t, err)
	require.NotNil(t, session)
	require.Equal(t, entities.FlowActive, session.CurrentState)
}

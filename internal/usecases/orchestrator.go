package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"atendebot/internal/entities"
	"atendebot/internal/infrastructure"
	"atendebot/internal/interfaces"
)

const storeRetryBackoff = 100 * time.Millisecond

// Orchestrator coordinates one inbound turn: flow lock, session,
// classification, validation, domain action, outcome, persistence,
// state transition. It holds no mutable state of its own; everything
// observable lives in the session and message stores.
type Orchestrator struct {
	locks      interfaces.LockManager
	sessions   interfaces.SessionStore
	messages   interfaces.MessageStore
	classifier *Classifier
	action     interfaces.DomainAction
	replies    *ReplyCatalog
	log        *infrastructure.Logger
	lockTTL    time.Duration
	awaitGrace time.Duration
}

func NewOrchestrator(
	locks interfaces.LockManager,
	sessions interfaces.SessionStore,
	messages interfaces.MessageStore,
	classifier *Classifier,
	action interfaces.DomainAction,
	replies *ReplyCatalog,
	log *infrastructure.Logger,
	lockTTL, awaitGrace time.Duration,
) *Orchestrator {
	return &Orchestrator{
		locks:      locks,
		sessions:   sessions,
		messages:   messages,
		classifier: classifier,
		action:     action,
		replies:    replies,
		log:        log,
		lockTTL:    lockTTL,
		awaitGrace: awaitGrace,
	}
}

// Orchestrate processes one inbound message end to end. It returns
// entities.ErrFlowBusy when another turn for the same session is in
// flight (nothing was mutated), and entities.ErrSessionStore when
// persistence failed after the single retry. The flow lock is released
// on every exit path.
func (o *Orchestrator) Orchestrate(ctx context.Context, in entities.InboundMessage) (*entities.OrchestrationResult, error) {
	text := strings.TrimSpace(in.Text)
	sessionKey := entities.SessionID(in.TenantID, in.UserID).String()

	token, err := o.locks.Acquire(ctx, sessionKey, o.lockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		// Release must not be skipped because the request context died.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if rerr := o.locks.Release(releaseCtx, sessionKey, token); rerr != nil {
			o.log.Warn("flow lock release failed", "session", sessionKey, "error", rerr)
		}
	}()

	now := time.Now().UTC()

	// Redelivered transport events are dropped before any side effect
	// runs. The check is race-free because we hold the session lock.
	if in.ChannelMessageID != "" {
		seen, serr := o.messages.Seen(ctx, in.TenantID, in.ChannelMessageID)
		if serr != nil {
			o.log.Warn("redelivery check failed", "session", sessionKey, "error", serr)
		} else if seen {
			o.log.Info("duplicate inbound event suppressed", "session", sessionKey, "message_id", in.ChannelMessageID)
			return o.duplicateResult(ctx, in)
		}
	}

	session, err := o.loadOrCreateSession(ctx, in.TenantID, in.UserID, now)
	if err != nil {
		return nil, err
	}
	priorState := session.CurrentState
	session.RegisterInbound(now)

	result := o.classifier.Classify(ctx, text)

	// Final allow-list coercion. The classifier constrains itself, but
	// the validator is the contract: anything foreign becomes nil with
	// a telemetry record, never a caller-visible error.
	if result.Intent != nil && !result.Intent.IsAllowed() {
		o.log.Warn("intent coerced to nil by allow-list", "session", sessionKey, "intent", string(*result.Intent))
		result.Intent = nil
		result.Confidence = 0
	}

	actionResult, err := o.action.Execute(ctx, entities.ActionRequest{
		TenantID: in.TenantID,
		UserID:   in.UserID,
		Intent:   result.Intent,
		State:    priorState,
		Text:     text,
	})
	if err != nil {
		o.log.Error("domain action failed", "session", sessionKey, "error", err)
		actionResult = entities.ActionResult{Success: false, Effect: entities.EffectNone, Details: err.Error()}
	}

	outcome := MapOutcome(result.Intent, actionResult, DetectSideEffects(text))

	inbound := &entities.Message{
		ID:               uuid.New(),
		TenantID:         in.TenantID,
		UserID:           in.UserID,
		SessionID:        session.SessionID,
		Direction:        entities.DirectionInbound,
		Content:          text,
		CreatedAt:        now,
		IntentDetected:   result.Intent,
		Confidence:       result.Confidence,
		DecisionMethod:   result.Method,
		Outcome:          &outcome,
		ChannelMessageID: in.ChannelMessageID,
	}
	inserted, err := o.appendInbound(ctx, inbound)
	if err != nil {
		return nil, fmt.Errorf("%w: persist inbound: %v", entities.ErrSessionStore, err)
	}
	if !inserted {
		// The redelivery slipped past the early check on a prior
		// worker's partial failure; the stored row wins.
		return o.duplicateResult(ctx, in)
	}

	reply := actionResult.Reply
	if reply == "" {
		reply = o.replies.For(ctx, in.TenantID, result.Intent, actionResult)
	}

	outbound := &entities.Message{
		ID:             uuid.New(),
		TenantID:       in.TenantID,
		UserID:         in.UserID,
		SessionID:      session.SessionID,
		Direction:      entities.DirectionOutbound,
		Content:        reply,
		CreatedAt:      now,
		DecisionMethod: entities.DecisionNone,
	}
	if err := o.append(ctx, outbound); err != nil {
		// The turn already produced its outcome; losing the reply row
		// degrades analytics, not correctness.
		o.log.Error("persist outbound failed", "session", sessionKey, "error", err)
	}

	if actionResult.Success && actionResult.ExpectsReply {
		session.ExpectReply(now, o.awaitGrace)
	}
	if err := o.saveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: save session: %v", entities.ErrSessionStore, err)
	}

	return &entities.OrchestrationResult{
		ResponseText:   reply,
		Intent:         result.Intent,
		Confidence:     result.Confidence,
		DecisionMethod: result.Method,
		Outcome:        &outcome,
		FlowState:      session.CurrentState,
	}, nil
}

// duplicateResult answers a suppressed redelivery without mutating
// anything: empty response, nil outcome, current flow state.
func (o *Orchestrator) duplicateResult(ctx context.Context, in entities.InboundMessage) (*entities.OrchestrationResult, error) {
	state := entities.FlowIdle
	if session, err := o.sessions.Get(ctx, in.TenantID, in.UserID); err == nil && session != nil {
		state = session.CurrentState
	}
	return &entities.OrchestrationResult{
		DecisionMethod: entities.DecisionNone,
		FlowState:      state,
	}, nil
}

func (o *Orchestrator) loadOrCreateSession(ctx context.Context, tenantID, userID string, now time.Time) (*entities.ConversationSession, error) {
	session, err := o.sessions.Get(ctx, tenantID, userID)
	if err != nil {
		time.Sleep(storeRetryBackoff)
		session, err = o.sessions.Get(ctx, tenantID, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load session: %v", entities.ErrSessionStore, err)
	}
	if session == nil {
		session = entities.NewConversationSession(tenantID, userID, now)
	}
	return session, nil
}

func (o *Orchestrator) saveSession(ctx context.Context, session *entities.ConversationSession) error {
	err := o.sessions.Save(ctx, session)
	if err != nil {
		time.Sleep(storeRetryBackoff)
		err = o.sessions.Save(ctx, session)
	}
	return err
}

func (o *Orchestrator) appendInbound(ctx context.Context, m *entities.Message) (bool, error) {
	inserted, err := o.messages.AppendInbound(ctx, m)
	if err != nil {
		time.Sleep(storeRetryBackoff)
		inserted, err = o.messages.AppendInbound(ctx, m)
	}
	return inserted, err
}

func (o *Orchestrator) append(ctx context.Context, m *entities.Message) error {
	err := o.messages.Append(ctx, m)
	if err != nil {
		time.Sleep(storeRetryBackoff)
		err = o.messages.Append(ctx, m)
	}
	return err
}

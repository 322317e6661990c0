package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"atendebot/internal/entities"
	"atendebot/internal/infrastructure"
	"atendebot/internal/interfaces"
)

// Watchdog periodically advances stalled sessions through their timeout
// states: awaiting_user escalates to pinged_wait with a reminder,
// pinged_wait winds down to idle with a closing message. Every mutation
// happens under the session's flow lock, so a sweep can never race a
// live user turn.
type Watchdog struct {
	sessions  interfaces.SessionStore
	messages  interfaces.MessageStore
	locks     interfaces.LockManager
	replies   *ReplyCatalog
	messenger interfaces.ReplyMessenger
	log       *infrastructure.Logger
	interval  time.Duration
	lockTTL   time.Duration
	pingGrace time.Duration
	batchSize int
}

func NewWatchdog(
	sessions interfaces.SessionStore,
	messages interfaces.MessageStore,
	locks interfaces.LockManager,
	replies *ReplyCatalog,
	messenger interfaces.ReplyMessenger,
	log *infrastructure.Logger,
	interval, lockTTL, pingGrace time.Duration,
) *Watchdog {
	return &Watchdog{
		sessions:  sessions,
		messages:  messages,
		locks:     locks,
		replies:   replies,
		messenger: messenger,
		log:       log,
		interval:  interval,
		lockTTL:   lockTTL,
		pingGrace: pingGrace,
		batchSize: 100,
	}
}

// Start runs the sweep loop until the context is cancelled.
func (w *Watchdog) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx, time.Now().UTC())
		}
	}
}

// Sweep advances every timed-out session it can lock, returning how
// many transitions it applied. Busy sessions are skipped; they are
// being handled by a live turn, which clears the timer anyway.
func (w *Watchdog) Sweep(ctx context.Context, now time.Time) int {
	expired, err := w.sessions.ListExpired(ctx, now, w.batchSize)
	if err != nil {
		w.log.Error("watchdog expiry scan failed", "error", err)
		return 0
	}

	advanced := 0
	for i := range expired {
		if w.advance(ctx, &expired[i], now) {
			advanced++
		}
	}
	return advanced
}

func (w *Watchdog) advance(ctx context.Context, stale *entities.ConversationSession, now time.Time) bool {
	key := stale.SessionID.String()
	token, err := w.locks.Acquire(ctx, key, w.lockTTL)
	if err != nil {
		if !errors.Is(err, entities.ErrFlowBusy) {
			w.log.Error("watchdog lock acquire failed", "session", key, "error", err)
		}
		return false
	}
	defer func() {
		if rerr := w.locks.Release(ctx, key, token); rerr != nil {
			w.log.Warn("watchdog lock release failed", "session", key, "error", rerr)
		}
	}()

	// Reload under the lock: the user may have replied since the scan.
	session, err := w.sessions.Get(ctx, stale.TenantID, stale.UserID)
	if err != nil || session == nil {
		return false
	}

	prior := session.CurrentState
	state, changed := session.AdvanceTimeout(now, w.pingGrace)
	if !changed {
		return false
	}

	// The state transition commits first; a failed message insert gets
	// logged rather than retried, so each timeout persists exactly one
	// ping.
	if err := w.sessions.Save(ctx, session); err != nil {
		w.log.Error("watchdog session save failed", "session", key, "error", err)
		return false
	}

	var body string
	if prior == entities.FlowAwaitingUser {
		body = w.replies.Reminder(ctx, session.TenantID)
	} else {
		body = w.replies.Closing(ctx, session.TenantID)
	}

	ping := &entities.Message{
		ID:             uuid.New(),
		TenantID:       session.TenantID,
		UserID:         session.UserID,
		SessionID:      session.SessionID,
		Direction:      entities.DirectionOutbound,
		Content:        body,
		CreatedAt:      now,
		DecisionMethod: entities.DecisionNone,
	}
	if err := w.messages.Append(ctx, ping); err != nil {
		w.log.Error("watchdog ping persist failed", "session", key, "error", err)
	}

	if w.messenger != nil {
		if err := w.messenger.SendReply(ctx, session.TenantID, session.UserID, body); err != nil {
			w.log.Warn("watchdog ping delivery failed", "session", key, "error", err)
		}
	}

	w.log.Info("session advanced by watchdog", "session", key, "from", string(prior), "to", string(state))
	return true
}

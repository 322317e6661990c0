package entities

import (
	"time"

	"github.com/google/uuid"
)

// Direction marks which side of the conversation produced a message.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Message is one turn in the append-only conversation log. Created once
// by the orchestrator (or the watchdog for reminder/closing pings) and
// immutable afterwards; the analytics pipeline reads it, nothing else
// writes it.
type Message struct {
	ID             uuid.UUID      `json:"id"`
	TenantID       string         `json:"tenant_id"`
	UserID         string         `json:"user_id"`
	SessionID      uuid.UUID      `json:"session_id"`
	Direction      Direction      `json:"direction"`
	Content        string         `json:"content"`
	CreatedAt      time.Time      `json:"created_at"`
	IntentDetected *Intent        `json:"intent_detected,omitempty"`
	Confidence     float64        `json:"confidence"`
	DecisionMethod DecisionMethod `json:"decision_method"`
	Outcome        *Outcome       `json:"outcome,omitempty"`
	// ChannelMessageID is the transport's own id for an inbound event,
	// used to suppress redeliveries. Empty on outbound rows.
	ChannelMessageID string `json:"channel_message_id,omitempty"`
}

// InboundMessage is what the webhook entrypoint hands to the orchestrator.
// The caller has already authenticated the transport and resolved the tenant.
type InboundMessage struct {
	TenantID         string            `json:"tenant_id"`
	UserID           string            `json:"user_id"`
	Text             string            `json:"text"`
	ChannelMessageID string            `json:"message_id"`
	ChannelMeta      map[string]string `json:"channel_meta,omitempty"`
}

// OrchestrationResult is the per-turn output returned to the caller.
type OrchestrationResult struct {
	ResponseText   string         `json:"response_text"`
	Intent         *Intent        `json:"intent"`
	Confidence     float64        `json:"confidence"`
	DecisionMethod DecisionMethod `json:"decision_method"`
	Outcome        *Outcome       `json:"outcome"`
	FlowState      FlowState      `json:"flow_state"`
}

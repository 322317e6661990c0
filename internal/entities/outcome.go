package entities

// Outcome is the canonical business result of a processed turn.
// Like the intent allow-list it is a closed, versioned enum consumed
// by the analytics pipeline.
type Outcome string

const (
	OutcomeAppointmentCreated     Outcome = "appointment_created"
	OutcomeAppointmentCancelled   Outcome = "appointment_cancelled"
	OutcomeAppointmentRescheduled Outcome = "appointment_rescheduled"
	OutcomeAppointmentConfirmed   Outcome = "appointment_confirmed"
	OutcomeAppointmentModified    Outcome = "appointment_modified"
	OutcomeAppointmentInquiry     Outcome = "appointment_inquiry"
	OutcomeServiceInquiry         Outcome = "service_inquiry"
	OutcomePriceInquiry           Outcome = "price_inquiry"
	OutcomeLocationInquiry        Outcome = "location_inquiry"
	OutcomeBusinessHoursInquiry   Outcome = "business_hours_inquiry"
	OutcomeActionFailed           Outcome = "action_failed"
	OutcomeInfoRequestFulfilled   Outcome = "info_request_fulfilled"
)

// ActionEffect describes what a domain action actually did downstream.
type ActionEffect string

const (
	EffectNone        ActionEffect = "none"
	EffectCreated     ActionEffect = "created"
	EffectCancelled   ActionEffect = "cancelled"
	EffectRescheduled ActionEffect = "rescheduled"
	EffectConfirmed   ActionEffect = "confirmed"
)

// ActionRequest is what the orchestrator hands to the external domain
// action service for a turn.
type ActionRequest struct {
	TenantID string
	UserID   string
	Intent   *Intent
	State    FlowState
	Text     string
}

// ActionResult is the domain action service's report for one turn.
type ActionResult struct {
	Success bool
	Effect  ActionEffect
	Details string
	// Reply, when set, replaces the built-in template for this intent.
	Reply string
	// ExpectsReply marks a reply that asks the user a question, which
	// arms the inactivity timer on the session.
	ExpectsReply bool
}

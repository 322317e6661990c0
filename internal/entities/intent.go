package entities

// Intent is a canonical label for the purpose of an inbound message.
// The set of valid intents is closed and versioned: it is the wire
// contract with the downstream analytics pipeline, so adding or
// removing a value is a breaking change.
type Intent string

const (
	IntentGreeting          Intent = "greeting"
	IntentServices          Intent = "services"
	IntentPricing           Intent = "pricing"
	IntentAvailability      Intent = "availability"
	IntentMyAppointments    Intent = "my_appointments"
	IntentAddress           Intent = "address"
	IntentPayments          Intent = "payments"
	IntentBusinessHours     Intent = "business_hours"
	IntentCancel            Intent = "cancel"
	IntentReschedule        Intent = "reschedule"
	IntentConfirm           Intent = "confirm"
	IntentModifyAppointment Intent = "modify_appointment"
	IntentPolicies          Intent = "policies"
	IntentHandoff           Intent = "handoff"
	IntentWrongNumber       Intent = "wrong_number"
	IntentTestMessage       Intent = "test_message"
	IntentBookingAbandoned  Intent = "booking_abandoned"
	IntentNoshowFollowup    Intent = "noshow_followup"
)

// allowedIntents is the closed allow-list. Loaded once, never mutated,
// safe for concurrent reads.
var allowedIntents = map[Intent]bool{
	IntentGreeting:          true,
	IntentServices:          true,
	IntentPricing:           true,
	IntentAvailability:      true,
	IntentMyAppointments:    true,
	IntentAddress:           true,
	IntentPayments:          true,
	IntentBusinessHours:     true,
	IntentCancel:            true,
	IntentReschedule:        true,
	IntentConfirm:           true,
	IntentModifyAppointment: true,
	IntentPolicies:          true,
	IntentHandoff:           true,
	IntentWrongNumber:       true,
	IntentTestMessage:       true,
	IntentBookingAbandoned:  true,
	IntentNoshowFollowup:    true,
}

// IsAllowed reports whether the intent belongs to the closed allow-list.
func (i Intent) IsAllowed() bool {
	return allowedIntents[i]
}

// ValidateIntent coerces any value outside the allow-list to nil.
// Callers that care record telemetry on the coercion; it is never an error.
func ValidateIntent(raw string) *Intent {
	i := Intent(raw)
	if !i.IsAllowed() {
		return nil
	}
	return &i
}

// DecisionMethod records which classification stage produced an IntentResult.
type DecisionMethod string

const (
	DecisionRegex    DecisionMethod = "regex"
	DecisionFallback DecisionMethod = "fallback"
	DecisionNone     DecisionMethod = "none"
)

// IntentResult is the transient output of one classification call.
// It is never persisted on its own, only folded into a Message.
type IntentResult struct {
	Intent     *Intent
	Confidence float64
	Method     DecisionMethod
}

package usecases

import (
	"regexp"

	"atendebot/internal/entities"
)

// Targeted commands name a specific appointment id, e.g.
// "cancelar agendamento 123" or "remarcar #45".
var (
	targetedCancelPattern     = regexp.MustCompile(`(cancelar|desmarcar|cancela)\D*#?\d+`)
	targetedReschedulePattern = regexp.MustCompile(`(remarcar|reagendar)\D*#?\d+`)
)

// SideEffectFlags capture textual signals that refine the outcome
// beyond the raw intent label.
type SideEffectFlags struct {
	TargetedCancel     bool
	TargetedReschedule bool
}

// DetectSideEffects scans the normalized inbound text for targeted
// appointment commands.
func DetectSideEffects(text string) SideEffectFlags {
	normalized := normalize(text)
	return SideEffectFlags{
		TargetedCancel:     targetedCancelPattern.MatchString(normalized),
		TargetedReschedule: targetedReschedulePattern.MatchString(normalized),
	}
}

// MapOutcome translates (intent, action result, side-effect flags) into
// the canonical outcome. Pure, total and deterministic. Precedence,
// highest first: downstream failure, targeted commands with a confirmed
// matching effect, confirmed booking creation, direct intent mapping,
// then the generic info default.
func MapOutcome(intent *entities.Intent, result entities.ActionResult, flags SideEffectFlags) entities.Outcome {
	if !result.Success {
		return entities.OutcomeActionFailed
	}

	if flags.TargetedCancel && result.Effect == entities.EffectCancelled {
		return entities.OutcomeAppointmentCancelled
	}
	if flags.TargetedReschedule && result.Effect == entities.EffectRescheduled {
		return entities.OutcomeAppointmentRescheduled
	}
	if result.Effect == entities.EffectCreated {
		return entities.OutcomeAppointmentCreated
	}

	if intent == nil {
		return entities.OutcomeInfoRequestFulfilled
	}
	switch *intent {
	case entities.IntentMyAppointments:
		return entities.OutcomeAppointmentInquiry
	case entities.IntentServices:
		return entities.OutcomeServiceInquiry
	case entities.IntentPricing:
		return entities.OutcomePriceInquiry
	case entities.IntentAddress:
		return entities.OutcomeLocationInquiry
	case entities.IntentBusinessHours:
		return entities.OutcomeBusinessHoursInquiry
	case entities.IntentReschedule:
		return entities.OutcomeAppointmentModified
	case entities.IntentCancel:
		return entities.OutcomeAppointmentCancelled
	case entities.IntentConfirm:
		return entities.OutcomeAppointmentConfirmed
	default:
		return entities.OutcomeInfoRequestFulfilled
	}
}

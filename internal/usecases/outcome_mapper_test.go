package usecases

import (
	"testing"

	"github.com/stretchr/testify/require"

	"atendebot/internal/entities"
)

func TestMapOutcomeFailureOverridesEverything(t *testing.T) {
	failed := entities.ActionResult{Success: false, Effect: entities.EffectCancelled}
	flags := SideEffectFlags{TargetedCancel: true}

	cancel := entities.IntentCancel
	require.Equal(t, entities.OutcomeActionFailed, MapOutcome(&cancel, failed, flags))
	require.Equal(t, entities.OutcomeActionFailed, MapOutcome(nil, failed, SideEffectFlags{}))
}

func TestMapOutcomeTargetedCommandsNeedMatchingEffect(t *testing.T) {
	cancel := entities.IntentGreeting

	confirmed := entities.ActionResult{Success: true, Effect: entities.EffectCancelled}
	require.Equal(t, entities.OutcomeAppointmentCancelled,
		MapOutcome(&cancel, confirmed, SideEffectFlags{TargetedCancel: true}))

	// Flag set but the action never cancelled anything: the intent map
	// decides instead.
	noEffect := entities.ActionResult{Success: true, Effect: entities.EffectNone}
	require.Equal(t, entities.OutcomeInfoRequestFulfilled,
		MapOutcome(&cancel, noEffect, SideEffectFlags{TargetedCancel: true}))

	rescheduled := entities.ActionResult{Success: true, Effect: entities.EffectRescheduled}
	require.Equal(t, entities.OutcomeAppointmentRescheduled,
		MapOutcome(&cancel, rescheduled, SideEffectFlags{TargetedReschedule: true}))
}

func TestMapOutcomeCreatedEffect(t *testing.T) {
	created := entities.ActionResult{Success: true, Effect: entities.EffectCreated}
	availability := entities.IntentAvailability
	require.Equal(t, entities.OutcomeAppointmentCreated, MapOutcome(&availability, created, SideEffectFlags{}))
	require.Equal(t, entities.OutcomeAppointmentCreated, MapOutcome(nil, created, SideEffectFlags{}))
}

func TestMapOutcomeIntentMapping(t *testing.T) {
	ok := entities.ActionResult{Success: true}

	cases := map[entities.Intent]entities.Outcome{
		entities.IntentMyAppointments: entities.OutcomeAppointmentInquiry,
		entities.IntentServices:       entities.OutcomeServiceInquiry,
		entities.IntentPricing:        entities.OutcomePriceInquiry,
		entities.IntentAddress:        entities.OutcomeLocationInquiry,
		entities.IntentBusinessHours:  entities.OutcomeBusinessHoursInquiry,
		entities.IntentReschedule:     entities.OutcomeAppointmentModified,
		entities.IntentCancel:         entities.OutcomeAppointmentCancelled,
		entities.IntentConfirm:        entities.OutcomeAppointmentConfirmed,
		entities.IntentGreeting:       entities.OutcomeInfoRequestFulfilled,
		entities.IntentHandoff:        entities.OutcomeInfoRequestFulfilled,
	}
	for intent, want := range cases {
		i := intent
		require.Equal(t, want, MapOutcome(&i, ok, SideEffectFlags{}), "intent %s", intent)
	}

	require.Equal(t, entities.OutcomeInfoRequestFulfilled, MapOutcome(nil, ok, SideEffectFlags{}))
}

func TestMapOutcomeIsTotalAndDeterministic(t *testing.T) {
	intents := []*entities.Intent{nil}
	for raw := range map[entities.Intent]bool{
		entities.IntentGreeting: true, entities.IntentCancel: true,
		entities.IntentReschedule: true, entities.IntentConfirm: true,
		entities.IntentMyAppointments: true, entities.IntentAvailability: true,
		entities.IntentServices: true, entities.IntentPricing: true,
		entities.IntentPayments: true, entities.IntentAddress: true,
		entities.IntentBusinessHours: true, entities.IntentPolicies: true,
		entities.IntentHandoff: true, entities.IntentWrongNumber: true,
		entities.IntentTestMessage: true,
	} {
		i := raw
		intents = append(intents, &i)
	}
	effects := []entities.ActionEffect{
		entities.EffectNone, entities.EffectCreated, entities.EffectCancelled,
		entities.EffectRescheduled, entities.EffectConfirmed,
	}

	for _, intent := range intents {
		for _, effect := range effects {
			for _, success := range []bool{true, false} {
				for _, flags := range []SideEffectFlags{{}, {TargetedCancel: true}, {TargetedReschedule: true}} {
					result := entities.ActionResult{Success: success, Effect: effect}
					first := MapOutcome(intent, result, flags)
					require.NotEmpty(t, first)
					require.Equal(t, first, MapOutcome(intent, result, flags))
				}
			}
		}
	}
}

func TestDetectSideEffects(t *testing.T) {
	require.Equal(t, SideEffectFlags{TargetedCancel: true}, DetectSideEffects("Cancelar agendamento 123"))
	require.Equal(t, SideEffectFlags{TargetedCancel: true}, DetectSideEffects("desmarcar #45"))
	require.Equal(t, SideEffectFlags{TargetedReschedule: true}, DetectSideEffects("quero remarcar o horário 7"))
	require.Equal(t, SideEffectFlags{}, DetectSideEffects("quero cancelar"))
	require.Equal(t, SideEffectFlags{}, DetectSideEffects("oi, tudo bem?"))
}

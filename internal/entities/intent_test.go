package entities

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateIntentAcceptsAllowedValues(t *testing.T) {
	for _, raw := range []string{"greeting", "cancel", "noshow_followup", "booking_abandoned"} {
		intent := ValidateIntent(raw)
		require.NotNil(t, intent, "raw %q", raw)
		require.Equal(t, Intent(raw), *intent)
		require.True(t, intent.IsAllowed())
	}
}

func TestValidateIntentCoercesForeignValues(t *testing.T) {
	for _, raw := range []string{"", "weather", "GREETING", "greeting ", "order_pizza"} {
		require.Nil(t, ValidateIntent(raw), "raw %q", raw)
	}
}

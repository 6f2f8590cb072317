package soundcloud

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCredentialMachine tests the primary -> fallback -> exhausted walk.
func TestCredentialMachine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		primary        string
		fallback       string
		fallbackErr    error
		rejections     int
		expectedState  credentialState
		expectedID     string
		expectRejecErr bool
	}{
		{
			name:          "fresh machine uses primary",
			primary:       "primary",
			expectedState: credentialPrimary,
			expectedID:    "primary",
		},
		{
			name:          "one rejection moves to fallback",
			primary:       "primary",
			fallback:      "fallback",
			rejections:    1,
			expectedState: credentialFallback,
			expectedID:    "fallback",
		},
		{
			name:           "two rejections exhaust",
			primary:        "primary",
			fallback:       "fallback",
			rejections:     2,
			expectedState:  credentialExhausted,
			expectRejecErr: true,
		},
		{
			name:           "fallback equal to primary exhausts",
			primary:        "same",
			fallback:       "same",
			rejections:     1,
			expectedState:  credentialExhausted,
			expectRejecErr: true,
		},
		{
			name:           "fallback source failure exhausts",
			primary:        "primary",
			fallbackErr:    errors.New("offline"),
			rejections:     1,
			expectedState:  credentialExhausted,
			expectRejecErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			machine := newCredentialMachine(tt.primary, func(context.Context) (string, error) {
				return tt.fallback, tt.fallbackErr
			})

			var rejectErr error
			for range tt.rejections {
				rejectErr = machine.Reject(t.Context())
			}

			assert.Equal(t, tt.expectedState, machine.State())

			if tt.expectRejecErr {
				require.ErrorIs(t, rejectErr, ErrCredentialsExhausted)

				_, err := machine.ClientID()
				require.ErrorIs(t, err, ErrCredentialsExhausted)

				return
			}

			require.NoError(t, rejectErr)

			clientID, err := machine.ClientID()
			require.NoError(t, err)
			assert.Equal(t, tt.expectedID, clientID)
		})
	}
}

// TestCredentialState_String tests state names used in warnings.
func TestCredentialState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "primary", credentialPrimary.String())
	assert.Equal(t, "fallback", credentialFallback.String())
	assert.Equal(t, "exhausted", credentialExhausted.String())
	assert.Equal(t, "unknown", credentialState(42).String())
}

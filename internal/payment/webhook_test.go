package payment_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronoshop/storefront/internal/payment"
)

const secret = "whsec_test_secret"

var body = []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123","amount":966600,"status":"succeeded"}}}`)

func signedHeader(t int64) string {
	return fmt.Sprintf("t=%d,v1=%s", t, payment.Sign(body, secret, t))
}

func TestParseSignedEvent(t *testing.T) {
	now := time.Unix(1_756_600_000, 0)

	ev, err := payment.ParseSignedEvent(body, signedHeader(now.Unix()), secret, now)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, payment.EventPaymentSucceeded, ev.Type)
	assert.Equal(t, "pi_123", ev.Data.Object.ID)
	assert.Equal(t, int64(966600), ev.Data.Object.Amount)
}

func TestParseSignedEventRejectsBadSignature(t *testing.T) {
	now := time.Unix(1_756_600_000, 0)

	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{
			name:    "wrong_secret",
			header:  fmt.Sprintf("t=%d,v1=%s", now.Unix(), payment.Sign(body, "whsec_other", now.Unix())),
			wantErr: payment.ErrInvalidSignature,
		},
		{
			name:    "tampered_digest",
			header:  fmt.Sprintf("t=%d,v1=deadbeef", now.Unix()),
			wantErr: payment.ErrInvalidSignature,
		},
		{
			name:    "missing_timestamp",
			header:  "v1=deadbeef",
			wantErr: payment.ErrInvalidSignature,
		},
		{
			name:    "missing_signature",
			header:  fmt.Sprintf("t=%d", now.Unix()),
			wantErr: payment.ErrInvalidSignature,
		},
		{
			name:    "stale_timestamp",
			header:  signedHeader(now.Add(-10 * time.Minute).Unix()),
			wantErr: payment.ErrSignatureExpired,
		},
		{
			name:    "empty_header",
			header:  "",
			wantErr: payment.ErrInvalidSignature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := payment.ParseSignedEvent(body, tt.header, secret, now)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseSignedEventAcceptsAnyValidV1(t *testing.T) {
	// Gateways send multiple v1 entries during secret rotation.
	now := time.Unix(1_756_600_000, 0)
	header := fmt.Sprintf("t=%d,v1=deadbeef,v1=%s", now.Unix(), payment.Sign(body, secret, now.Unix()))

	ev, err := payment.ParseSignedEvent(body, header, secret, now)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
}

func TestParseSignedEventBadJSON(t *testing.T) {
	now := time.Unix(1_756_600_000, 0)
	garbage := []byte(`{"id":`)
	header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), payment.Sign(garbage, secret, now.Unix()))

	_, err := payment.ParseSignedEvent(garbage, header, secret, now)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, payment.ErrInvalidSignature)
}

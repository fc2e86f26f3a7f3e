package payment_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronoshop/storefront/internal/orders"
	"github.com/chronoshop/storefront/internal/payment"
)

func TestCreateIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payment_intents", r.URL.Path)
		require.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())

		assert.Equal(t, "966600", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "LW-1-abc", r.PostForm.Get("metadata[order_number]"))
		assert.Equal(t, "1", r.PostForm.Get("metadata[item_count]"))
		assert.Equal(t, "Ada Lovelace", r.PostForm.Get("shipping[name]"))
		assert.Equal(t, "US", r.PostForm.Get("shipping[address][country]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_123","client_secret":"pi_123_secret_xyz","status":"requires_payment_method"}`))
	}))
	defer srv.Close()

	c := payment.NewClient(srv.URL, "sk_test_123")
	intent, err := c.CreateIntent(context.Background(), payment.IntentRequest{
		AmountMinor: 966600,
		Currency:    "usd",
		OrderNumber: "LW-1-abc",
		Email:       "ada@example.com",
		ItemCount:   1,
		Shipping: orders.Address{
			FirstName: "Ada", LastName: "Lovelace",
			Address1: "1 Analytical Way", City: "London", State: "LDN", PostalCode: "EC1",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "pi_123_secret_xyz", intent.ClientSecret)
}

func TestCreateIntentGatewayRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"message":"Your card was declined."}}`))
	}))
	defer srv.Close()

	c := payment.NewClient(srv.URL, "sk_test_123")
	_, err := c.CreateIntent(context.Background(), payment.IntentRequest{AmountMinor: 100, Currency: "usd"})

	var gw *payment.GatewayError
	require.True(t, errors.As(err, &gw))
	assert.Equal(t, http.StatusPaymentRequired, gw.StatusCode)
	assert.Equal(t, "Your card was declined.", gw.Message)
}

func TestCancelIntent(t *testing.T) {
	var canceled string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		canceled = r.URL.Path
		_, _ = w.Write([]byte(`{"id":"pi_123","status":"canceled"}`))
	}))
	defer srv.Close()

	c := payment.NewClient(srv.URL, "sk_test_123")
	require.NoError(t, c.CancelIntent(context.Background(), "pi_123"))
	assert.Equal(t, "/v1/payment_intents/pi_123/cancel", canceled)
}

package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventPaymentCanceled  = "payment_intent.canceled"
)

// Event is a gateway webhook delivery. Only the payment-intent fields the
// reconciler needs are decoded; the rest of the payload is ignored so new
// gateway fields never break parsing.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object PaymentIntent `json:"object"`
	} `json:"data"`
}

type PaymentIntent struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
}

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrSignatureExpired = errors.New("webhook signature timestamp outside tolerance")
)

// Deliveries older than this are rejected to blunt replay of captured
// payloads.
const SignatureTolerance = 5 * time.Minute

// ParseSignedEvent verifies the gateway's `t=<unix>,v1=<hex hmac>` signature
// header against the shared webhook secret and decodes the event. The signed
// message is "<t>.<raw body>" under HMAC-SHA256. Verification failure is a
// hard rejection: the payload must not be acted on.
func ParseSignedEvent(payload []byte, sigHeader, secret string, now time.Time) (*Event, error) {
	ts, sigs, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, err
	}
	if d := now.Sub(time.Unix(ts, 0)); d > SignatureTolerance || d < -SignatureTolerance {
		return nil, ErrSignatureExpired
	}

	expected := Sign(payload, secret, ts)
	ok := false
	for _, s := range sigs {
		if hmac.Equal([]byte(s), []byte(expected)) {
			ok = true
			break
		}
	}
	if !ok {
		return nil, ErrInvalidSignature
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}
	return &ev, nil
}

// Sign computes the hex signature for a payload at a given timestamp.
// Exported for the webhook simulator and tests.
func Sign(payload []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(h string) (ts int64, sigs []string, err error) {
	ts = -1
	for _, part := range strings.Split(h, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			ts, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, nil, ErrInvalidSignature
			}
		case "v1":
			sigs = append(sigs, v)
		}
	}
	if ts < 0 || len(sigs) == 0 {
		return 0, nil, ErrInvalidSignature
	}
	return ts, sigs, nil
}

package fulfillment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/chronoshop/storefront/internal/kafka"
	"github.com/chronoshop/storefront/internal/orders"
)

type memReceipts struct {
	seen     map[string]bool
	receipts map[string]Receipt
}

func newMemReceipts() *memReceipts {
	return &memReceipts{seen: map[string]bool{}, receipts: map[string]Receipt{}}
}

func (m *memReceipts) SeenEvent(_ context.Context, id string) (bool, error) { return m.seen[id], nil }
func (m *memReceipts) MarkEvent(_ context.Context, id string) error         { m.seen[id] = true; return nil }
func (m *memReceipts) HasReceipt(_ context.Context, orderID string) (bool, error) {
	_, ok := m.receipts[orderID]
	return ok, nil
}
func (m *memReceipts) PutReceipt(_ context.Context, r Receipt) error {
	m.receipts[r.OrderID] = r
	return nil
}

type recordingNotifier struct {
	sent []string
	err  error
}

func (n *recordingNotifier) SendOrderConfirmation(_ context.Context, _, orderNumber, _ string) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, orderNumber)
	return nil
}

func paidMessage(t *testing.T, eventID, orderID string) kafkago.Message {
	t.Helper()
	env := orders.Envelope{
		EventID:      eventID,
		EventType:    orders.EventOrderPaid,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "storefront-api",
		Payload: kafkax.MustMarshal(orders.OrderPaidPayload{
			OrderID:         orderID,
			OrderNumber:     "LW-1-abc",
			Email:           "ada@example.com",
			Total:           "9666.00",
			PaymentIntentID: "pi_1",
		}),
	}
	return kafkago.Message{Key: orders.PartitionKey(orderID), Value: kafkax.MustMarshal(env)}
}

func TestHandleOrderPaidWritesReceipt(t *testing.T) {
	store := newMemReceipts()
	notifier := &recordingNotifier{}
	svc := &Service{Receipts: store, Notifier: notifier, ServiceName: "storefront-fulfillment"}

	require.NoError(t, svc.HandleOrderPaid(context.Background(), paidMessage(t, uuid.NewString(), "ord-1")))

	r, ok := store.receipts["ord-1"]
	require.True(t, ok)
	assert.Equal(t, "LW-1-abc", r.OrderNumber)
	assert.Equal(t, "9666.00", r.Total)
	assert.Equal(t, []string{"LW-1-abc"}, notifier.sent)
}

func TestHandleOrderPaidRedeliveryIsNoOp(t *testing.T) {
	store := newMemReceipts()
	notifier := &recordingNotifier{}
	svc := &Service{Receipts: store, Notifier: notifier}

	msg := paidMessage(t, uuid.NewString(), "ord-1")
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.HandleOrderPaid(context.Background(), msg))
	}

	assert.Len(t, notifier.sent, 1)
	assert.Len(t, store.receipts, 1)
}

// Same order under a fresh event id (a reconciler republish) must still not
// double-confirm: the receipt is the second screen.
func TestHandleOrderPaidDistinctEventSameOrder(t *testing.T) {
	store := newMemReceipts()
	notifier := &recordingNotifier{}
	svc := &Service{Receipts: store, Notifier: notifier}

	require.NoError(t, svc.HandleOrderPaid(context.Background(), paidMessage(t, uuid.NewString(), "ord-1")))
	require.NoError(t, svc.HandleOrderPaid(context.Background(), paidMessage(t, uuid.NewString(), "ord-1")))

	assert.Len(t, notifier.sent, 1)
}

func TestHandleOrderPaidNotifierFailureRetries(t *testing.T) {
	store := newMemReceipts()
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	svc := &Service{Receipts: store, Notifier: notifier}

	msg := paidMessage(t, uuid.NewString(), "ord-1")
	require.Error(t, svc.HandleOrderPaid(context.Background(), msg))
	assert.Empty(t, store.receipts)

	// redelivery after the notifier recovers succeeds
	notifier.err = nil
	require.NoError(t, svc.HandleOrderPaid(context.Background(), msg))
	assert.Len(t, store.receipts, 1)
}

func TestHandleOrderPaidIgnoresOtherEventTypes(t *testing.T) {
	store := newMemReceipts()
	notifier := &recordingNotifier{}
	svc := &Service{Receipts: store, Notifier: notifier}

	env := orders.Envelope{
		EventID:   uuid.NewString(),
		EventType: orders.EventOrderCancelled,
		Payload:   kafkax.MustMarshal(orders.OrderCancelledPayload{OrderID: "ord-1"}),
	}
	msg := kafkago.Message{Value: kafkax.MustMarshal(env)}

	require.NoError(t, svc.HandleOrderPaid(context.Background(), msg))
	assert.Empty(t, notifier.sent)
	assert.Empty(t, store.receipts)
}

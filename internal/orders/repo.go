package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// CreateWithReservation persists the order with its items and increments the
// inventory hold per line, all in one transaction. The reservation is a
// conditional update guarded by `reserved + qty <= quantity`, so two
// concurrent checkouts for the last unit cannot both commit: the loser sees
// zero rows affected and the whole order rolls back with an
// InsufficientStockError.
func (r *Repo) CreateWithReservation(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	shipAddr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}
	billAddr, err := json.Marshal(o.BillingAddress)
	if err != nil {
		return fmt.Errorf("marshal billing address: %w", err)
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, order_number, user_id, email, status, payment_status,
			subtotal, discount, tax, shipping, total, payment_intent_id, shipping_address, billing_address)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING created_at, updated_at`,
		o.ID, o.OrderNumber, o.UserID, o.Email, string(o.Status), string(o.PaymentStatus),
		o.Subtotal, o.Discount, o.Tax, o.Shipping, o.Total, o.PaymentIntentID, shipAddr, billAddr,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.OrderID = o.ID
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, variant_id, quantity, price, total)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			it.ID, o.ID, it.ProductID, nullable(it.VariantID), it.Quantity, it.Price, it.Total)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}

		ct, err := tx.Exec(ctx, `
			UPDATE inventory SET reserved = reserved + $2
			WHERE product_id = $1 AND reserved + $2 <= quantity`,
			it.ProductID, it.Quantity)
		if err != nil {
			return fmt.Errorf("reserve stock: %w", err)
		}
		if ct.RowsAffected() == 0 {
			var available int
			if scanErr := tx.QueryRow(ctx,
				`SELECT quantity - reserved FROM inventory WHERE product_id = $1`,
				it.ProductID).Scan(&available); scanErr != nil {
				available = 0
			}
			return &InsufficientStockError{
				ProductID: it.ProductID,
				Requested: it.Quantity,
				Available: available,
			}
		}
	}

	return tx.Commit(ctx)
}

// FinalizePaid moves an order to PROCESSING/PAID and turns its reservation
// into a sale (quantity and reserved both decrease per item). The status
// update is conditional on payment_status still being PENDING, which makes
// duplicate gateway deliveries no-ops: applied=false, inventory untouched.
func (r *Repo) FinalizePaid(ctx context.Context, paymentIntentID string) (*Order, bool, error) {
	return r.transition(ctx, paymentIntentID, StatusProcessing, PaymentPaid, true)
}

// ReleaseFailed moves an order to CANCELLED/FAILED and releases the hold
// (reserved decreases, quantity is untouched: nothing was sold). Same
// conditional-idempotency contract as FinalizePaid.
func (r *Repo) ReleaseFailed(ctx context.Context, paymentIntentID string) (*Order, bool, error) {
	return r.transition(ctx, paymentIntentID, StatusCancelled, PaymentFailed, false)
}

func (r *Repo) transition(ctx context.Context, paymentIntentID string, toStatus Status, toPayment PaymentStatus, sold bool) (*Order, bool, error) {
	// The SQL below only touches rows still at PENDING, so the requested
	// target must be a legal move out of PENDING in both state machines.
	if !CanTransition(StatusPending, toStatus) || !CanTransitionPayment(PaymentPending, toPayment) {
		return nil, false, fmt.Errorf("illegal transition from pending to %s/%s", toStatus, toPayment)
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var orderID string
	err = tx.QueryRow(ctx, `
		UPDATE orders SET status = $2, payment_status = $3, updated_at = now()
		WHERE payment_intent_id = $1 AND payment_status = 'PENDING'
		RETURNING id`,
		paymentIntentID, string(toStatus), string(toPayment)).Scan(&orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either no such order or a duplicate delivery after the first one
		// already transitioned it.
		var existing string
		err = tx.QueryRow(ctx, `SELECT id FROM orders WHERE payment_intent_id = $1`,
			paymentIntentID).Scan(&existing)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrOrderNotFound
		}
		if err != nil {
			return nil, false, err
		}
		o, err := r.getOrderTx(ctx, tx, existing)
		if err != nil {
			return nil, false, err
		}
		return o, false, tx.Commit(ctx)
	}
	if err != nil {
		return nil, false, fmt.Errorf("update order status: %w", err)
	}

	o, err := r.getOrderTx(ctx, tx, orderID)
	if err != nil {
		return nil, false, err
	}

	for _, it := range o.Items {
		var q string
		if sold {
			q = `UPDATE inventory SET quantity = quantity - $2, reserved = reserved - $2 WHERE product_id = $1`
		} else {
			q = `UPDATE inventory SET reserved = reserved - $2 WHERE product_id = $1`
		}
		if _, err := tx.Exec(ctx, q, it.ProductID, it.Quantity); err != nil {
			return nil, false, fmt.Errorf("update inventory for product %s: %w", it.ProductID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return o, true, nil
}

func (r *Repo) GetOrder(ctx context.Context, id string) (*Order, error) {
	return r.getOrderTx(ctx, r.DB, id)
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repo) getOrderTx(ctx context.Context, q queryer, id string) (*Order, error) {
	var (
		o                  Order
		status, payStatus  string
		shipAddr, billAddr []byte
	)
	err := q.QueryRow(ctx, `
		SELECT id, order_number, user_id, email, status, payment_status,
			subtotal, discount, tax, shipping, total, payment_intent_id,
			shipping_address, billing_address, created_at, updated_at
		FROM orders WHERE id = $1`, id).Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.Email, &status, &payStatus,
		&o.Subtotal, &o.Discount, &o.Tax, &o.Shipping, &o.Total, &o.PaymentIntentID,
		&shipAddr, &billAddr, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order %s: %w", id, err)
	}
	o.Status, o.PaymentStatus = Status(status), PaymentStatus(payStatus)
	if err := json.Unmarshal(shipAddr, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode shipping address: %w", err)
	}
	if err := json.Unmarshal(billAddr, &o.BillingAddress); err != nil {
		return nil, fmt.Errorf("decode billing address: %w", err)
	}

	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, COALESCE(variant_id,''), quantity, price, total
		FROM order_items WHERE order_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariantID,
			&it.Quantity, &it.Price, &it.Total); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repo) GetOrderStatus(ctx context.Context, id string) (Status, PaymentStatus, error) {
	var s, ps string
	err := r.DB.QueryRow(ctx, `SELECT status, payment_status FROM orders WHERE id = $1`, id).Scan(&s, &ps)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrOrderNotFound
	}
	if err != nil {
		return "", "", err
	}
	return Status(s), PaymentStatus(ps), nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

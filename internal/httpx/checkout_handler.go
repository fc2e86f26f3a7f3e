package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/chronoshop/storefront/internal/checkout"
	"github.com/chronoshop/storefront/internal/orders"
	"github.com/chronoshop/storefront/internal/redisx"
)

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

type OrderReader interface {
	GetOrderStatus(ctx context.Context, id string) (orders.Status, orders.PaymentStatus, error)
}

type CheckoutHandler struct {
	Checkout OrderPlacer
	Orders   OrderReader
	Redis    *redis.Client
}

func (h *CheckoutHandler) Register(r *chi.Mux) {
	r.Post("/api/checkout", h.placeOrder)
	r.Get("/api/orders/{id}", h.getOrderStatus)
}

func (h *CheckoutHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req checkout.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	req.TraceID = r.Header.Get("X-Request-Id")

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	res, err := h.Checkout.PlaceOrder(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.Redis != nil {
		statusKey := fmt.Sprintf(redisx.KeyOrderStatus, res.OrderID)
		_ = h.Redis.Set(ctx, statusKey,
			`{"status":"PENDING","payment_status":"PENDING"}`, redisx.TTLStatusCache).Err()
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *CheckoutHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	status, payStatus, err := h.Orders.GetOrderStatus(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	body, _ := json.Marshal(map[string]string{
		"status":         string(status),
		"payment_status": string(payStatus),
	})
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

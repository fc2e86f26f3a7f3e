package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/chronoshop/storefront/internal/catalog"
	"github.com/chronoshop/storefront/internal/checkout"
	"github.com/chronoshop/storefront/internal/orders"
	"github.com/chronoshop/storefront/internal/payment"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy onto HTTP statuses. Correctable
// errors carry detail; gateway and persistence failures stay generic so
// internals do not leak.
func writeError(w http.ResponseWriter, err error) {
	var (
		ve  *checkout.ValidationError
		nf  *checkout.NotFoundError
		ise *orders.InsufficientStockError
		gw  *payment.GatewayError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &ise):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, catalog.ErrProductNotFound), errors.Is(err, catalog.ErrCategoryNotFound),
		errors.Is(err, orders.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.As(err, &gw):
		log.Error().Err(err).Msg("payment gateway failure")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "payment service unavailable"})
	default:
		log.Error().Err(err).Msg("internal error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/chronoshop/storefront/internal/catalog"
	"github.com/chronoshop/storefront/internal/redisx"
)

type CatalogReader interface {
	GetProductBySlug(ctx context.Context, slug string) (*catalog.Product, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*catalog.Category, error)
	List(ctx context.Context, f catalog.ListFilter) ([]catalog.Product, int, error)
}

type CatalogHandler struct {
	Catalog CatalogReader
	Redis   *redis.Client
}

func (h *CatalogHandler) Register(r *chi.Mux) {
	r.Get("/api/products", h.listProducts)
	r.Get("/api/products/{slug}", h.getProduct)
	r.Get("/api/categories/{slug}", h.getCategory)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	q := r.URL.Query()
	f := catalog.ListFilter{
		CategorySlug: q.Get("category"),
		Brand:        q.Get("brand"),
		Featured:     q.Get("featured") == "true",
		InStock:      q.Get("inStock") == "true",
		Search:       q.Get("search"),
		SortBy:       q.Get("sortBy"),
		SortDesc:     q.Get("sortOrder") != "asc",
	}
	if v := q.Get("minPrice"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			f.MinPrice = &d
		}
	}
	if v := q.Get("maxPrice"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			f.MaxPrice = &d
		}
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.PerPage, _ = strconv.Atoi(q.Get("limit"))

	products, total, err := h.Catalog.List(ctx, f)
	if err != nil {
		writeError(w, err)
		return
	}
	if products == nil {
		products = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products": products,
		"total":    total,
		"page":     max(f.Page, 1),
	})
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyProductCache, slug)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	p, err := h.Catalog.GetProductBySlug(ctx, slug)
	if err != nil {
		writeError(w, err)
		return
	}
	body, _ := json.Marshal(p)
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, body, redisx.TTLProductCache).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *CatalogHandler) getCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.Catalog.GetCategoryBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

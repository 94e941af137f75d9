package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rdyatmika/go-storefront-api/internal/catalog"
	"github.com/rdyatmika/go-storefront-api/internal/redisx"
)

type CreateProductReq struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	Image       string          `json:"image"`
}

type CatalogStore interface {
	List(ctx context.Context) ([]catalog.Product, error)
	Insert(ctx context.Context, p catalog.Product) (catalog.Product, error)
}

type ProductsHandler struct {
	Catalog CatalogStore
	Redis   *redis.Client
}

func (h *ProductsHandler) Register(r *chi.Mux, auth *Auth) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.list)
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate, RequireAdmin)
			r.Post("/", h.create)
		})
	})
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if s, err := h.Redis.Get(ctx, redisx.KeyProductList).Result(); err == nil && s != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(s))
		return
	}

	ps, err := h.Catalog.List(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if ps == nil {
		ps = []catalog.Product{}
	}
	b, _ := json.Marshal(ps)
	_ = h.Redis.Set(ctx, redisx.KeyProductList, b, redisx.TTLProductList).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Catalog.Insert(ctx, catalog.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Stock:       req.Stock,
		Image:       req.Image,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	// stale listing is bounded by the cache TTL; drop it now anyway
	_ = h.Redis.Del(ctx, redisx.KeyProductList).Err()

	writeJSON(w, http.StatusCreated, p)
}

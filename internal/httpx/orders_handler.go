package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/rdyatmika/go-storefront-api/internal/kafka"
	"github.com/rdyatmika/go-storefront-api/internal/orders"
)

type CreateOrderReq struct {
	UserEmail string                   `json:"userEmail"`
	Products  []orders.LineItemRequest `json:"products"`
}

type UpdateStatusReq struct {
	Status string `json:"status"`
}

// Publisher is what the handlers need from a kafka producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type OrdersHandler struct {
	Service         *orders.Service
	CreatedProducer Publisher
	StatusProducer  Publisher
	ServiceName     string
}

func (h *OrdersHandler) Register(r *chi.Mux, auth *Auth) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Post("/", h.createOrder)
		r.Get("/my-orders", h.myOrders)
		r.Get("/{id}", h.getOrder)
		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/", h.listAll)
			r.Put("/{id}", h.updateStatus)
		})
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainErr maps the service error taxonomy onto status codes.
func writeDomainErr(w http.ResponseWriter, err error) {
	var nf *orders.NotFoundError
	var is *orders.InsufficientStockError
	var ve *orders.ValidationError
	switch {
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": nf.Error()})
	case errors.As(err, &is):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": is.Error()})
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Error()})
	case errors.Is(err, orders.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.UserEmail == "" || len(req.Products) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	view, err := h.Service.SubmitOrder(ctx, CallerIdentity(r), req.UserEmail, req.Products)
	if err != nil {
		writeDomainErr(w, err)
		return
	}

	items := make([]orders.ItemQty, 0, len(view.Items))
	for _, it := range view.Items {
		items = append(items, orders.ItemQty{ProductID: it.ProductID, Qty: it.Quantity})
	}
	h.publish(h.CreatedProducer, orders.EventOrderCreated, view.ID, middleware.GetReqID(r.Context()),
		orders.OrderCreatedPayload{
			OrderID:     view.ID,
			UserID:      view.User.ID,
			Items:       items,
			TotalAmount: view.TotalAmount.String(),
		})

	writeJSON(w, http.StatusCreated, view)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	view, err := h.Service.FetchOrder(ctx, CallerIdentity(r), orderID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *OrdersHandler) listAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	views, err := h.Service.ListAllOrders(ctx, CallerIdentity(r))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *OrdersHandler) myOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	views, err := h.Service.ListMyOrders(ctx, CallerIdentity(r))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req UpdateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	status, err := orders.ParseStatus(req.Status)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	view, err := h.Service.SetOrderStatus(ctx, orderID, status)
	if err != nil {
		writeDomainErr(w, err)
		return
	}

	h.publish(h.StatusProducer, orders.EventOrderStatusChanged, view.ID, middleware.GetReqID(r.Context()),
		orders.OrderStatusChangedPayload{OrderID: view.ID, Status: string(view.Status)})

	writeJSON(w, http.StatusOK, view)
}

func (h *OrdersHandler) publish(p Publisher, eventType, orderID, traceID string, payload any) {
	if p == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.ServiceName,
		TraceID:       traceID,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

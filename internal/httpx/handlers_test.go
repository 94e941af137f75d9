package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-redis/redismock/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdyatmika/go-storefront-api/internal/account"
	"github.com/rdyatmika/go-storefront-api/internal/catalog"
	"github.com/rdyatmika/go-storefront-api/internal/orders"
	"github.com/rdyatmika/go-storefront-api/internal/redisx"
)

// ---- fakes ----

type fakeAccounts struct{ users map[string]account.User }

func (f *fakeAccounts) FindByEmail(_ context.Context, email string) (account.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return account.User{}, account.ErrNotFound
}

func (f *fakeAccounts) FindByID(_ context.Context, id string) (account.User, error) {
	u, ok := f.users[id]
	if !ok {
		return account.User{}, account.ErrNotFound
	}
	return u, nil
}

type fakeCatalog struct{ products map[string]catalog.Product }

func (f *fakeCatalog) FindByName(_ context.Context, name string) (catalog.Product, error) {
	for _, p := range f.products {
		if p.Name == name {
			return p, nil
		}
	}
	return catalog.Product{}, catalog.ErrNotFound
}

func (f *fakeCatalog) FindByID(_ context.Context, id string) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) DecrementStock(_ context.Context, id string, qty int) (bool, error) {
	p, ok := f.products[id]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	f.products[id] = p
	return true, nil
}

func (f *fakeCatalog) List(_ context.Context) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCatalog) Insert(_ context.Context, p catalog.Product) (catalog.Product, error) {
	p.ID = fmt.Sprintf("P%d", len(f.products)+1)
	f.products[p.ID] = p
	return p, nil
}

type fakeOrderStore struct {
	orders map[string]orders.Order
	seq    int
}

func (f *fakeOrderStore) Insert(_ context.Context, o orders.Order) (orders.Order, error) {
	f.seq++
	o.ID = fmt.Sprintf("O%d", f.seq)
	o.Status = orders.StatusPending
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeOrderStore) FindByID(_ context.Context, id string) (orders.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrderStore) FindAll(_ context.Context) ([]orders.Order, error) {
	var out []orders.Order
	for _, o := range f.orders {
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeOrderStore) FindByUser(_ context.Context, userID string) ([]orders.Order, error) {
	var out []orders.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) UpdateStatus(_ context.Context, id string, status orders.Status) (orders.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	o.Status = status
	f.orders[id] = o
	return o, nil
}

type fakePublisher struct{ envelopes []orders.Envelope }

func (f *fakePublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	var env orders.Envelope
	_ = json.Unmarshal(value, &env)
	f.envelopes = append(f.envelopes, env)
}

// ---- harness ----

type harness struct {
	router   http.Handler
	mock     redismock.ClientMock
	created  *fakePublisher
	status   *fakePublisher
	orders   *fakeOrderStore
	products *fakeCatalog
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	rdb, mock := redismock.NewClientMock()

	cat := &fakeCatalog{products: map[string]catalog.Product{
		"P1": {ID: "P1", Name: "Widget", Price: decimal.RequireFromString("10.00"), Stock: 5},
	}}
	store := &fakeOrderStore{orders: map[string]orders.Order{}}
	svc := &orders.Service{
		Accounts: &fakeAccounts{users: map[string]account.User{
			"U1": {ID: "U1", Name: "Alice", Email: "alice@example.com", Role: account.RoleCustomer},
			"U9": {ID: "U9", Name: "Root", Email: "admin@example.com", Role: account.RoleAdmin},
		}},
		Catalog: cat,
		Orders:  store,
	}

	router := NewRouter()
	auth := &Auth{Redis: rdb}
	created := &fakePublisher{}
	status := &fakePublisher{}
	oh := &OrdersHandler{Service: svc, CreatedProducer: created, StatusProducer: status, ServiceName: "test"}
	oh.Register(router, auth)
	ph := &ProductsHandler{Catalog: cat, Redis: rdb}
	ph.Register(router, auth)

	return &harness{router: router, mock: mock, created: created, status: status, orders: store, products: cat}
}

func (h *harness) expectSession(token, userID, role string) {
	h.mock.ExpectGet(fmt.Sprintf(redisx.KeySession, token)).
		SetVal(fmt.Sprintf(`{"user_id":%q,"role":%q}`, userID, role))
}

func (h *harness) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// ---- tests ----

func TestCreateOrder_Returns201AndPublishes(t *testing.T) {
	h := newHarness(t)
	h.expectSession("tok", "U1", "customer")

	w := h.do(http.MethodPost, "/api/orders", "tok",
		`{"userEmail":"alice@example.com","products":[{"productName":"Widget","quantity":3}]}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var view orders.OrderView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.True(t, view.TotalAmount.Equal(decimal.RequireFromString("30.00")))
	assert.Equal(t, "alice@example.com", view.User.Email)

	require.Len(t, h.created.envelopes, 1)
	assert.Equal(t, orders.EventOrderCreated, h.created.envelopes[0].EventType)
	assert.Equal(t, view.ID, h.created.envelopes[0].CorrelationID)
	// request id generated by the router middleware rides along as trace_id
	assert.NotEmpty(t, h.created.envelopes[0].TraceID)
}

func TestCreateOrder_InsufficientStockIs400(t *testing.T) {
	h := newHarness(t)
	h.expectSession("tok", "U1", "customer")

	w := h.do(http.MethodPost, "/api/orders", "tok",
		`{"userEmail":"alice@example.com","products":[{"productName":"Widget","quantity":6}]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Widget")
	assert.Empty(t, h.orders.orders)
	assert.Empty(t, h.created.envelopes)
}

func TestCreateOrder_UnknownProductIs404(t *testing.T) {
	h := newHarness(t)
	h.expectSession("tok", "U1", "customer")

	w := h.do(http.MethodPost, "/api/orders", "tok",
		`{"userEmail":"alice@example.com","products":[{"productName":"Nope","quantity":1}]}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Nope")
}

func TestGetOrder_StrangerIs403(t *testing.T) {
	h := newHarness(t)
	h.orders.orders["O1"] = orders.Order{ID: "O1", UserID: "U1", Status: orders.StatusPending}
	h.expectSession("tok", "U2", "customer")

	w := h.do(http.MethodGet, "/api/orders/O1", "tok", "")

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListAllOrders_NonAdminIs403(t *testing.T) {
	h := newHarness(t)
	h.expectSession("tok", "U1", "customer")

	w := h.do(http.MethodGet, "/api/orders", "tok", "")

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMissingTokenIs401(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/api/orders/my-orders", "", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateStatus_AdminHappyPath(t *testing.T) {
	h := newHarness(t)
	h.orders.orders["O1"] = orders.Order{ID: "O1", UserID: "U1", Status: orders.StatusPending}
	h.expectSession("tok", "U9", "admin")

	w := h.do(http.MethodPut, "/api/orders/O1", "tok", `{"status":"shipped"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, orders.StatusShipped, h.orders.orders["O1"].Status)
	require.Len(t, h.status.envelopes, 1)
	assert.Equal(t, orders.EventOrderStatusChanged, h.status.envelopes[0].EventType)
}

func TestUpdateStatus_UnknownStatusIs400(t *testing.T) {
	h := newHarness(t)
	h.expectSession("tok", "U9", "admin")

	w := h.do(http.MethodPut, "/api/orders/O1", "tok", `{"status":"teleported"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListProducts_ServedFromCache(t *testing.T) {
	h := newHarness(t)
	cached := `[{"id":"P1","name":"Widget"}]`
	h.mock.ExpectGet(redisx.KeyProductList).SetVal(cached)

	w := h.do(http.MethodGet, "/api/products", "", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, cached, w.Body.String())
}

func TestCreateProduct_AdminOnly(t *testing.T) {
	h := newHarness(t)
	h.expectSession("tok", "U1", "customer")

	w := h.do(http.MethodPost, "/api/products", "tok", `{"name":"Gizmo","price":"4.20","stock":10}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateProduct_CreatesAndDropsCache(t *testing.T) {
	h := newHarness(t)
	h.expectSession("tok", "U9", "admin")
	h.mock.ExpectDel(redisx.KeyProductList).SetVal(1)

	w := h.do(http.MethodPost, "/api/products", "tok", `{"name":"Gizmo","price":"4.20","stock":10}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p catalog.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "Gizmo", p.Name)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

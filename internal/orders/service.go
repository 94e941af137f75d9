package orders

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/rdyatmika/go-storefront-api/internal/account"
	"github.com/rdyatmika/go-storefront-api/internal/catalog"
)

type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (account.User, error)
	FindByID(ctx context.Context, id string) (account.User, error)
}

type CatalogStore interface {
	FindByName(ctx context.Context, name string) (catalog.Product, error)
	FindByID(ctx context.Context, id string) (catalog.Product, error)
	DecrementStock(ctx context.Context, id string, qty int) (bool, error)
}

type OrderStore interface {
	Insert(ctx context.Context, o Order) (Order, error)
	FindByID(ctx context.Context, id string) (Order, error)
	FindAll(ctx context.Context) ([]Order, error)
	FindByUser(ctx context.Context, userID string) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) (Order, error)
}

// Service orchestrates order creation and read access over the three
// stores. Stores are injected; the service holds no connection state.
type Service struct {
	Accounts AccountStore
	Catalog  CatalogStore
	Orders   OrderStore
}

// View types materialize referenced user/product fields for the caller.

type UserView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type LineItemView struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type OrderView struct {
	ID          string          `json:"id"`
	User        UserView        `json:"user"`
	Items       []LineItemView  `json:"products"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// SubmitOrder validates the request against the account and catalog
// stores, persists the order, then decrements stock per line item.
//
// Validation is a fold over the items in input order and short-circuits
// at the first failure; later items are not checked. The stock
// decrements in the final step are independent conditional updates, not
// part of the order-insert transaction: a concurrent submit can consume
// the stock between the check and the decrement, in which case the
// decrement is refused (stock never goes negative) and the order stays
// as written. There is no compensation for that gap.
func (s *Service) SubmitOrder(ctx context.Context, caller Identity, userEmail string, reqs []LineItemRequest) (OrderView, error) {
	if len(reqs) == 0 {
		return OrderView{}, &ValidationError{Msg: "order has no line items"}
	}

	user, err := s.Accounts.FindByEmail(ctx, userEmail)
	if errors.Is(err, account.ErrNotFound) {
		return OrderView{}, &NotFoundError{Entity: "user", Key: userEmail}
	}
	if err != nil {
		return OrderView{}, &StorageError{Err: err}
	}

	total := decimal.Zero
	items := make([]LineItem, 0, len(reqs))
	views := make([]LineItemView, 0, len(reqs))
	for _, req := range reqs {
		if req.Quantity <= 0 {
			return OrderView{}, &ValidationError{Msg: "invalid quantity for product " + req.ProductName}
		}
		p, err := s.Catalog.FindByName(ctx, req.ProductName)
		if errors.Is(err, catalog.ErrNotFound) {
			return OrderView{}, &NotFoundError{Entity: "product", Key: req.ProductName}
		}
		if err != nil {
			return OrderView{}, &StorageError{Err: err}
		}
		if p.Stock < req.Quantity {
			return OrderView{}, &InsufficientStockError{
				Product:   p.Name,
				Requested: req.Quantity,
				Available: p.Stock,
			}
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(req.Quantity))))
		items = append(items, LineItem{ProductID: p.ID, Quantity: req.Quantity})
		views = append(views, LineItemView{ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: req.Quantity})
	}

	created, err := s.Orders.Insert(ctx, Order{
		UserID:      user.ID,
		Items:       items,
		TotalAmount: total,
	})
	if err != nil {
		return OrderView{}, &StorageError{Err: err}
	}

	for _, it := range items {
		ok, err := s.Catalog.DecrementStock(ctx, it.ProductID, it.Quantity)
		if err != nil {
			log.Error().Err(err).Str("order_id", created.ID).Str("product_id", it.ProductID).
				Msg("stock decrement failed after order creation")
			continue
		}
		if !ok {
			log.Warn().Str("order_id", created.ID).Str("product_id", it.ProductID).Int("qty", it.Quantity).
				Msg("stock decrement refused, order stands without it")
		}
	}

	return OrderView{
		ID:          created.ID,
		User:        UserView{ID: user.ID, Name: user.Name, Email: user.Email},
		Items:       views,
		TotalAmount: created.TotalAmount,
		Status:      created.Status,
		CreatedAt:   created.CreatedAt,
	}, nil
}

// FetchOrder returns one order. Only the owning user and admins may see
// it.
func (s *Service) FetchOrder(ctx context.Context, caller Identity, orderID string) (OrderView, error) {
	o, err := s.Orders.FindByID(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return OrderView{}, &NotFoundError{Entity: "order", Key: orderID}
	}
	if err != nil {
		return OrderView{}, &StorageError{Err: err}
	}
	if !caller.IsAdmin() && o.UserID != caller.UserID {
		return OrderView{}, ErrForbidden
	}
	return s.enrich(ctx, o)
}

// ListAllOrders returns every order. Admin access is enforced at the
// route boundary, not here.
func (s *Service) ListAllOrders(ctx context.Context, caller Identity) ([]OrderView, error) {
	os, err := s.Orders.FindAll(ctx)
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	return s.enrichAll(ctx, os)
}

// ListMyOrders returns the caller's orders. No pagination.
func (s *Service) ListMyOrders(ctx context.Context, caller Identity) ([]OrderView, error) {
	os, err := s.Orders.FindByUser(ctx, caller.UserID)
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	return s.enrichAll(ctx, os)
}

// SetOrderStatus overwrites the status. Admin access is enforced at the
// route boundary. Any known status may replace any other; re-applying
// the same status is a no-op write.
func (s *Service) SetOrderStatus(ctx context.Context, orderID string, status Status) (OrderView, error) {
	updated, err := s.Orders.UpdateStatus(ctx, orderID, status)
	if errors.Is(err, ErrNotFound) {
		return OrderView{}, &NotFoundError{Entity: "order", Key: orderID}
	}
	if err != nil {
		return OrderView{}, &StorageError{Err: err}
	}
	return s.enrich(ctx, updated)
}

func (s *Service) enrichAll(ctx context.Context, os []Order) ([]OrderView, error) {
	out := make([]OrderView, 0, len(os))
	for _, o := range os {
		v, err := s.enrich(ctx, o)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// enrich attaches user name/email and product name/price. A reference
// that no longer resolves is kept as a bare id rather than failing the
// whole read.
func (s *Service) enrich(ctx context.Context, o Order) (OrderView, error) {
	v := OrderView{
		ID:          o.ID,
		User:        UserView{ID: o.UserID},
		TotalAmount: o.TotalAmount,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
	}
	u, err := s.Accounts.FindByID(ctx, o.UserID)
	switch {
	case err == nil:
		v.User.Name, v.User.Email = u.Name, u.Email
	case !errors.Is(err, account.ErrNotFound):
		return OrderView{}, &StorageError{Err: err}
	}

	v.Items = make([]LineItemView, 0, len(o.Items))
	for _, it := range o.Items {
		iv := LineItemView{ProductID: it.ProductID, Quantity: it.Quantity}
		p, err := s.Catalog.FindByID(ctx, it.ProductID)
		switch {
		case err == nil:
			iv.Name, iv.Price = p.Name, p.Price
		case !errors.Is(err, catalog.ErrNotFound):
			return OrderView{}, &StorageError{Err: err}
		}
		v.Items = append(v.Items, iv)
	}
	return v, nil
}

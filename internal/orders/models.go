package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID          string
	UserID      string
	Items       []LineItem
	TotalAmount decimal.Decimal
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type LineItem struct {
	ProductID string
	Quantity  int
}

// LineItemRequest is what the client sends: products are addressed by
// name, not id.
type LineItemRequest struct {
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

// Identity is the authenticated caller, attached upstream by the auth
// boundary.
type Identity struct {
	UserID string
	Role   string
}

func (i Identity) IsAdmin() bool { return i.Role == "admin" }

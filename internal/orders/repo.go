package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("order not found")

type Repo struct{ DB *pgxpool.Pool }

// Insert persists the order row and its line items in one transaction,
// so a failed write never leaves a partial order behind.
func (r *Repo) Insert(ctx context.Context, o Order) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o.ID = uuid.NewString()
	o.Status = StatusPending
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, user_id, status, total_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		o.ID, o.UserID, o.Status, o.TotalAmount,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}

	for i, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, position, product_id, qty)
			VALUES ($1, $2, $3, $4)`,
			o.ID, i, it.ProductID, it.Quantity,
		); err != nil {
			return Order{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *Repo) FindByID(ctx context.Context, id string) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, status, total_amount, created_at, updated_at
		FROM orders WHERE id=$1`, id,
	).Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	if o.Items, err = r.loadItems(ctx, o.ID); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *Repo) FindAll(ctx context.Context) ([]Order, error) {
	return r.findMany(ctx, `
		SELECT id, user_id, status, total_amount, created_at, updated_at
		FROM orders ORDER BY created_at DESC`)
}

func (r *Repo) FindByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.findMany(ctx, `
		SELECT id, user_id, status, total_amount, created_at, updated_at
		FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (r *Repo) findMany(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = r.loadItems(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repo) loadItems(ctx context.Context, orderID string) ([]LineItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, qty FROM order_items
		WHERE order_id=$1 ORDER BY position`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ProductID, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *Repo) UpdateStatus(ctx context.Context, id string, status Status) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		UPDATE orders SET status=$2, updated_at=now()
		WHERE id=$1
		RETURNING id, user_id, status, total_amount, created_at, updated_at`,
		id, status,
	).Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	if o.Items, err = r.loadItems(ctx, o.ID); err != nil {
		return Order{}, err
	}
	return o, nil
}

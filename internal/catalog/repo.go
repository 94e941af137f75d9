package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("product not found")

type Repo struct{ DB *pgxpool.Pool }

const productCols = `id, name, description, price, category, stock, image, created_at, updated_at`

func (r *Repo) FindByName(ctx context.Context, name string) (Product, error) {
	return r.findOne(ctx, `SELECT `+productCols+` FROM products WHERE name=$1`, name)
}

func (r *Repo) FindByID(ctx context.Context, id string) (Product, error) {
	return r.findOne(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id)
}

func (r *Repo) findOne(ctx context.Context, query, arg string) (Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, query, arg).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Stock, &p.Image, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *Repo) List(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+` FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Stock, &p.Image, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) Insert(ctx context.Context, p Product) (Product, error) {
	p.ID = uuid.NewString()
	err := r.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, description, price, category, stock, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Description, p.Price, p.Category, p.Stock, p.Image,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// DecrementStock subtracts qty from the product's stock only when enough
// stock remains, so stock can never go negative. Returns false when the
// conditional update matched no row (unknown id or not enough stock).
func (r *Repo) DecrementStock(ctx context.Context, id string, qty int) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`, id, qty)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

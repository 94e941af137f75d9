package account

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("user not found")

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, `SELECT id, name, email, role, created_at FROM users WHERE email=$1`, email)
}

func (r *Repo) FindByID(ctx context.Context, id string) (User, error) {
	return r.findOne(ctx, `SELECT id, name, email, role, created_at FROM users WHERE id=$1`, id)
}

func (r *Repo) findOne(ctx context.Context, query, arg string) (User, error) {
	var u User
	err := r.DB.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"hallmeal-backend/internal/db"
	"hallmeal-backend/internal/domain"
)

type HallRepository struct {
	DB *db.Postgres
}

func (r HallRepository) List(ctx context.Context) ([]domain.Hall, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, name, seat_rent, created_at, updated_at
		FROM halls
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var halls []domain.Hall
	for rows.Next() {
		var h domain.Hall
		if err := rows.Scan(&h.ID, &h.Name, &h.SeatRent, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		halls = append(halls, h)
	}
	return halls, rows.Err()
}

func (r HallRepository) GetByID(ctx context.Context, id int64) (*domain.Hall, error) {
	var h domain.Hall
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT id, name, seat_rent, created_at, updated_at
		FROM halls WHERE id=$1
	`, id).Scan(&h.ID, &h.Name, &h.SeatRent, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

// FirstID returns the id of the first hall by name, for super admins who
// have not selected one yet.
func (r HallRepository) FirstID(ctx context.Context) (int64, error) {
	var id int64
	err := r.DB.Pool.QueryRow(ctx, `SELECT id FROM halls ORDER BY name LIMIT 1`).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

func (r HallRepository) UpdateSeatRent(ctx context.Context, id int64, seatRent decimal.Decimal) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE halls SET seat_rent=$2, updated_at=now() WHERE id=$1
	`, id, seatRent)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

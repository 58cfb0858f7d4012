package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"hallmeal-backend/internal/db"
	"hallmeal-backend/internal/domain"
)

type PaymentRepository struct {
	DB *db.Postgres
}

type CreatePaymentParams struct {
	UserID      int64
	HallID      int64
	Amount      decimal.Decimal
	PaymentDate time.Time
	Note        string
}

// Create inserts the immutable payment row and credits the member's balance
// by the same amount in one transaction.
func (r PaymentRepository) Create(ctx context.Context, p CreatePaymentParams) (*domain.Payment, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	code := "PAY-" + strings.ToUpper(uuid.NewString()[:8])
	var pay domain.Payment
	err = tx.QueryRow(ctx, `
		INSERT INTO payments (code, user_id, hall_id, amount, payment_date, note, created_at)
		VALUES ($1,$2,$3,$4,$5,$6, now())
		RETURNING id, created_at
	`, code, p.UserID, p.HallID, p.Amount, p.PaymentDate.Format(dateLayout), p.Note).Scan(&pay.ID, &pay.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := creditBalance(ctx, tx, p.UserID, p.Amount); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	pay.Code = code
	pay.UserID = p.UserID
	pay.HallID = p.HallID
	pay.Amount = p.Amount
	pay.PaymentDate = p.PaymentDate
	pay.Note = p.Note
	return &pay, nil
}

func (r PaymentRepository) ListForUser(ctx context.Context, userID int64, limit int) ([]domain.Payment, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, code, user_id, hall_id, amount, payment_date, note, created_at
		FROM payments
		WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.Code, &p.UserID, &p.HallID, &p.Amount, &p.PaymentDate, &p.Note, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

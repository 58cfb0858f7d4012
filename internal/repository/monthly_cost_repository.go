package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"hallmeal-backend/internal/billing"
	"hallmeal-backend/internal/db"
	"hallmeal-backend/internal/domain"
)

type MonthlyCostRepository struct {
	DB *db.Postgres
}

type UpsertMonthlyCostParams struct {
	HallID         int64
	Year           int
	Month          int
	FuelCharge     decimal.Decimal
	SpiceCharge    decimal.Decimal
	CleaningCharge decimal.Decimal
	OtherItems     []domain.MonthlyOtherItem
}

// Upsert saves a draft monthly cost sheet. other_charge and total_amount are
// computed here, never supplied. Editing a finalized sheet is rejected.
func (r MonthlyCostRepository) Upsert(ctx context.Context, p UpsertMonthlyCostParams) (*domain.MonthlyCost, error) {
	otherCharge := decimal.Zero
	for _, it := range p.OtherItems {
		otherCharge = otherCharge.Add(it.Amount)
	}
	total := p.FuelCharge.Add(p.SpiceCharge).Add(p.CleaningCharge).Add(otherCharge)

	itemsJSON, err := json.Marshal(p.OtherItems)
	if err != nil {
		return nil, err
	}

	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, `
		SELECT status FROM monthly_costs
		WHERE hall_id=$1 AND year=$2 AND month=$3
		FOR UPDATE
	`, p.HallID, p.Year, p.Month).Scan(&status)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if status == string(domain.SheetFinalized) {
		return nil, ErrAlreadyFinalized
	}

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO monthly_costs (hall_id, year, month, fuel_charge, spice_charge, cleaning_charge,
		                           other_charge, other_items, total_amount, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,'draft', now(), now())
		ON CONFLICT (hall_id, year, month)
		DO UPDATE SET fuel_charge=EXCLUDED.fuel_charge,
		              spice_charge=EXCLUDED.spice_charge,
		              cleaning_charge=EXCLUDED.cleaning_charge,
		              other_charge=EXCLUDED.other_charge,
		              other_items=EXCLUDED.other_items,
		              total_amount=EXCLUDED.total_amount,
		              updated_at=now()
		RETURNING id
	`, p.HallID, p.Year, p.Month, p.FuelCharge, p.SpiceCharge, p.CleaningCharge,
		otherCharge, itemsJSON, total).Scan(&id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

const monthlyCostSelect = `
	SELECT id, hall_id, year, month, fuel_charge, spice_charge, cleaning_charge,
	       other_charge, other_items, total_amount, status, created_at, updated_at
	FROM monthly_costs
`

func scanMonthlyCost(row pgx.Row) (*domain.MonthlyCost, error) {
	var mc domain.MonthlyCost
	var status string
	var itemsJSON []byte
	if err := row.Scan(&mc.ID, &mc.HallID, &mc.Year, &mc.Month,
		&mc.FuelCharge, &mc.SpiceCharge, &mc.CleaningCharge,
		&mc.OtherCharge, &itemsJSON, &mc.TotalAmount, &status,
		&mc.CreatedAt, &mc.UpdatedAt); err != nil {
		return nil, err
	}
	mc.Status = domain.SheetStatus(status)
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &mc.OtherItems); err != nil {
			return nil, err
		}
	}
	return &mc, nil
}

func (r MonthlyCostRepository) GetByID(ctx context.Context, id int64) (*domain.MonthlyCost, error) {
	mc, err := scanMonthlyCost(r.DB.Pool.QueryRow(ctx, monthlyCostSelect+` WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return mc, nil
}

func (r MonthlyCostRepository) List(ctx context.Context, hallID int64, limit, offset int) ([]domain.MonthlyCost, error) {
	rows, err := r.DB.Pool.Query(ctx, monthlyCostSelect+`
		WHERE hall_id=$1
		ORDER BY year DESC, month DESC
		LIMIT $2 OFFSET $3
	`, hallID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sheets []domain.MonthlyCost
	for rows.Next() {
		mc, err := scanMonthlyCost(rows)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, *mc)
	}
	return sheets, rows.Err()
}

// FinalizeMonthResult reports what a monthly finalization applied.
type FinalizeMonthResult struct {
	PerUnitShared decimal.Decimal
	TotalQuantity int
	UsersCharged  int
	SeatRent      decimal.Decimal
}

// Finalize distributes the month's shared overhead across every booked meal
// unit and debits the hall's seat rent once per distinct booking user, in
// one transaction.
func (r MonthlyCostRepository) Finalize(ctx context.Context, id int64) (*FinalizeMonthResult, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var (
		hallID      int64
		year, month int
		totalAmount decimal.Decimal
		status      string
	)
	err = tx.QueryRow(ctx, `
		SELECT hall_id, year, month, total_amount, status
		FROM monthly_costs
		WHERE id=$1
		FOR UPDATE
	`, id).Scan(&hallID, &year, &month, &totalAmount, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if status == string(domain.SheetFinalized) {
		return nil, ErrAlreadyFinalized
	}

	var seatRent decimal.Decimal
	if err := tx.QueryRow(ctx, `SELECT seat_rent FROM halls WHERE id=$1`, hallID).Scan(&seatRent); err != nil {
		return nil, err
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)

	shares, err := sharesTx(ctx, tx, `
		SELECT b.id, b.user_id, b.quantity, m.preference
		FROM meal_bookings b
		JOIN members m ON m.user_id = b.user_id
		WHERE b.hall_id=$1 AND b.booking_date BETWEEN $2 AND $3
		ORDER BY b.id
	`, hallID, start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return nil, err
	}

	shared, err := billing.ShareMonth(totalAmount, shares)
	if err != nil {
		return nil, err
	}

	for userID, debit := range shared.MealDebits {
		if err := creditBalance(ctx, tx, userID, debit.Neg()); err != nil {
			return nil, err
		}
	}
	for _, userID := range shared.SeatRentUsers {
		if err := creditBalance(ctx, tx, userID, seatRent.Neg()); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE monthly_costs SET status='finalized', updated_at=now() WHERE id=$1
	`, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &FinalizeMonthResult{
		PerUnitShared: shared.PerUnitShared,
		TotalQuantity: shared.TotalQuantity,
		UsersCharged:  len(shared.SeatRentUsers),
		SeatRent:      seatRent,
	}, nil
}

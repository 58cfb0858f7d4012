package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"hallmeal-backend/internal/billing"
	"hallmeal-backend/internal/db"
	"hallmeal-backend/internal/domain"
)

// ErrAlreadyFinalized is returned for any edit or finalize attempt on a
// finalized cost sheet.
var ErrAlreadyFinalized = errors.New("already finalized")

type DailyCostRepository struct {
	DB *db.Postgres
}

type ExpenseItemInput struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  decimal.Decimal
}

type UpsertDailyCostParams struct {
	HallID            int64
	Date              time.Time
	MealType          domain.MealType
	ExtraMuttonCharge decimal.Decimal
	Items             []ExpenseItemInput
}

// Upsert saves a draft expense sheet, replacing its line items. total_cost
// is the sum of the line totals. Editing a finalized sheet is rejected.
func (r DailyCostRepository) Upsert(ctx context.Context, p UpsertDailyCostParams) (*domain.DailyMealCost, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, `
		SELECT status FROM daily_meal_costs
		WHERE hall_id=$1 AND date=$2 AND meal_type=$3
		FOR UPDATE
	`, p.HallID, p.Date.Format(dateLayout), p.MealType).Scan(&status)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if status == string(domain.SheetFinalized) {
		return nil, ErrAlreadyFinalized
	}

	totalCost := decimal.Zero
	for _, it := range p.Items {
		totalCost = totalCost.Add(it.UnitPrice.Mul(it.Quantity))
	}

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO daily_meal_costs (hall_id, date, meal_type, total_cost, extra_mutton_charge, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,'draft', now(), now())
		ON CONFLICT (hall_id, date, meal_type)
		DO UPDATE SET total_cost=EXCLUDED.total_cost,
		              extra_mutton_charge=EXCLUDED.extra_mutton_charge,
		              updated_at=now()
		RETURNING id
	`, p.HallID, p.Date.Format(dateLayout), p.MealType, totalCost, p.ExtraMuttonCharge).Scan(&id)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM meal_expense_items WHERE daily_meal_cost_id=$1`, id); err != nil {
		return nil, err
	}
	for _, it := range p.Items {
		_, err := tx.Exec(ctx, `
			INSERT INTO meal_expense_items (daily_meal_cost_id, name, unit_price, quantity, total_price, created_at)
			VALUES ($1,$2,$3,$4,$5, now())
		`, id, it.Name, it.UnitPrice, it.Quantity, it.UnitPrice.Mul(it.Quantity))
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

const dailyCostSelect = `
	SELECT id, hall_id, date, meal_type, total_cost, extra_mutton_charge, calculated_price, status, created_at, updated_at
	FROM daily_meal_costs
`

func scanDailyCost(row pgx.Row) (*domain.DailyMealCost, error) {
	var dc domain.DailyMealCost
	var mt, status string
	if err := row.Scan(&dc.ID, &dc.HallID, &dc.Date, &mt, &dc.TotalCost, &dc.ExtraMuttonCharge,
		&dc.CalculatedPrice, &status, &dc.CreatedAt, &dc.UpdatedAt); err != nil {
		return nil, err
	}
	dc.MealType = domain.MealType(mt)
	dc.Status = domain.SheetStatus(status)
	return &dc, nil
}

func (r DailyCostRepository) GetByID(ctx context.Context, id int64) (*domain.DailyMealCost, error) {
	dc, err := scanDailyCost(r.DB.Pool.QueryRow(ctx, dailyCostSelect+` WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, name, unit_price, quantity, total_price
		FROM meal_expense_items
		WHERE daily_meal_cost_id=$1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it domain.MealExpenseItem
		if err := rows.Scan(&it.ID, &it.Name, &it.UnitPrice, &it.Quantity, &it.Total); err != nil {
			return nil, err
		}
		dc.Items = append(dc.Items, it)
	}
	return dc, rows.Err()
}

func (r DailyCostRepository) List(ctx context.Context, hallID int64, limit, offset int) ([]domain.DailyMealCost, error) {
	rows, err := r.DB.Pool.Query(ctx, dailyCostSelect+`
		WHERE hall_id=$1
		ORDER BY date DESC, meal_type
		LIMIT $2 OFFSET $3
	`, hallID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sheets []domain.DailyMealCost
	for rows.Next() {
		dc, err := scanDailyCost(rows)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, *dc)
	}
	return sheets, rows.Err()
}

// FinalizeDayResult reports what a daily finalization applied.
type FinalizeDayResult struct {
	BasePrice      decimal.Decimal
	TotalQuantity  int
	BookingsPriced int
}

// Finalize converts the draft sheet into per-booking prices and debits every
// booker's balance, all in one transaction. The sheet row is locked for the
// duration so concurrent finalize calls serialize; the loser sees the
// finalized status and is rejected.
func (r DailyCostRepository) Finalize(ctx context.Context, id int64) (*FinalizeDayResult, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var (
		hallID      int64
		date        time.Time
		mealType    string
		totalCost   decimal.Decimal
		extraCharge decimal.Decimal
		status      string
	)
	err = tx.QueryRow(ctx, `
		SELECT hall_id, date, meal_type, total_cost, extra_mutton_charge, status
		FROM daily_meal_costs
		WHERE id=$1
		FOR UPDATE
	`, id).Scan(&hallID, &date, &mealType, &totalCost, &extraCharge, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if status == string(domain.SheetFinalized) {
		return nil, ErrAlreadyFinalized
	}

	shares, err := sharesTx(ctx, tx, `
		SELECT b.id, b.user_id, b.quantity, m.preference
		FROM meal_bookings b
		JOIN members m ON m.user_id = b.user_id
		WHERE b.hall_id=$1 AND b.booking_date=$2 AND b.meal_type=$3
		ORDER BY b.id
	`, hallID, date.Format(dateLayout), mealType)
	if err != nil {
		return nil, err
	}

	priced, err := billing.PriceDay(domain.MealType(mealType), totalCost, extraCharge, shares)
	if err != nil {
		return nil, err
	}

	for _, line := range priced.Lines {
		if _, err := tx.Exec(ctx, `
			UPDATE meal_bookings SET price=$2, updated_at=now() WHERE id=$1
		`, line.BookingID, line.UnitPrice); err != nil {
			return nil, err
		}
		if err := creditBalance(ctx, tx, line.UserID, line.Debit.Neg()); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE daily_meal_costs
		SET calculated_price=$2, status='finalized', updated_at=now()
		WHERE id=$1
	`, id, priced.BasePrice); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &FinalizeDayResult{
		BasePrice:      priced.BasePrice,
		TotalQuantity:  priced.TotalQuantity,
		BookingsPriced: len(priced.Lines),
	}, nil
}

func sharesTx(ctx context.Context, q pgxQuerier, query string, args ...any) ([]billing.BookingShare, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shares []billing.BookingShare
	for rows.Next() {
		var s billing.BookingShare
		var pref string
		if err := rows.Scan(&s.BookingID, &s.UserID, &s.Quantity, &pref); err != nil {
			return nil, err
		}
		s.Preference = domain.MeatPreference(pref)
		shares = append(shares, s)
	}
	return shares, rows.Err()
}

package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"hallmeal-backend/internal/db"
)

type DashboardRepository struct {
	DB *db.Postgres
}

type DashboardSummary struct {
	ActiveMembers  int64
	TodayMeals     int64
	TomorrowMeals  int64
	DraftSheets    int64
	MonthExpense   decimal.Decimal
	OutstandingDue decimal.Decimal
}

func (r DashboardRepository) Summary(ctx context.Context, hallID int64) (DashboardSummary, error) {
	var s DashboardSummary
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM members m JOIN users u ON u.id=m.user_id
			  WHERE m.hall_id=$1 AND u.status='active') AS active_members,
			(SELECT COALESCE(SUM(quantity),0) FROM meal_bookings
			  WHERE hall_id=$1 AND booking_date = CURRENT_DATE) AS today_meals,
			(SELECT COALESCE(SUM(quantity),0) FROM meal_bookings
			  WHERE hall_id=$1 AND booking_date = CURRENT_DATE + 1) AS tomorrow_meals,
			(SELECT COUNT(*) FROM daily_meal_costs
			  WHERE hall_id=$1 AND status='draft') AS draft_sheets,
			(SELECT COALESCE(SUM(total_cost),0) FROM daily_meal_costs
			  WHERE hall_id=$1 AND date_trunc('month', date) = date_trunc('month', CURRENT_DATE)) AS month_expense,
			(SELECT COALESCE(SUM(-balance),0) FROM members
			  WHERE hall_id=$1 AND balance < 0) AS outstanding_due
	`, hallID).Scan(
		&s.ActiveMembers,
		&s.TodayMeals,
		&s.TomorrowMeals,
		&s.DraftSheets,
		&s.MonthExpense,
		&s.OutstandingDue,
	)
	return s, err
}

type TopBooker struct {
	Name     string
	Code     string
	Quantity int64
	Spent    decimal.Decimal
}

func (r DashboardRepository) TopBookers(ctx context.Context, hallID int64, limit int) ([]TopBooker, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT u.name, m.code, COALESCE(SUM(b.quantity),0) AS qty, COALESCE(SUM(b.quantity*b.price),0) AS spent
		FROM meal_bookings b
		JOIN users u ON u.id = b.user_id
		JOIN members m ON m.user_id = b.user_id
		WHERE b.hall_id=$1
		GROUP BY u.name, m.code
		ORDER BY qty DESC
		LIMIT $2
	`, hallID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TopBooker
	for rows.Next() {
		var it TopBooker
		if err := rows.Scan(&it.Name, &it.Code, &it.Quantity, &it.Spent); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

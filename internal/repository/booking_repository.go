package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"hallmeal-backend/internal/db"
	"hallmeal-backend/internal/domain"
)

type BookingRepository struct {
	DB *db.Postgres
}

const dateLayout = "2006-01-02"

type UpsertBookingParams struct {
	UserID      int64
	HallID      int64
	MealType    domain.MealType
	BookingDate time.Time
	Quantity    int
}

// Upsert creates the booking or updates its quantity in place. New rows get
// price 0 and is_taken false; price is only ever written by finalization.
func (r BookingRepository) Upsert(ctx context.Context, p UpsertBookingParams) (*domain.MealBooking, error) {
	var b domain.MealBooking
	var mt string
	err := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO meal_bookings (user_id, hall_id, meal_type, booking_date, quantity, price, is_taken, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5, 0, FALSE, now(), now())
		ON CONFLICT (user_id, meal_type, booking_date)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()
		RETURNING id, user_id, hall_id, meal_type, booking_date, quantity, price, is_taken, created_at, updated_at
	`, p.UserID, p.HallID, p.MealType, p.BookingDate.Format(dateLayout), p.Quantity).Scan(
		&b.ID, &b.UserID, &b.HallID, &mt, &b.BookingDate, &b.Quantity, &b.Price, &b.IsTaken, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.MealType = domain.MealType(mt)
	return &b, nil
}

// Delete cancels a member's booking for a slot. Missing rows are a no-op.
func (r BookingRepository) Delete(ctx context.Context, userID int64, mealType domain.MealType, date time.Time) error {
	_, err := r.DB.Pool.Exec(ctx, `
		DELETE FROM meal_bookings
		WHERE user_id=$1 AND meal_type=$2 AND booking_date=$3
	`, userID, mealType, date.Format(dateLayout))
	return err
}

func (r BookingRepository) ListForUser(ctx context.Context, userID int64, from time.Time) ([]domain.MealBooking, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, user_id, hall_id, meal_type, booking_date, quantity, price, is_taken, created_at, updated_at
		FROM meal_bookings
		WHERE user_id=$1 AND booking_date >= $2
		ORDER BY booking_date, meal_type
	`, userID, from.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.MealBooking
	for rows.Next() {
		var b domain.MealBooking
		var mt string
		if err := rows.Scan(&b.ID, &b.UserID, &b.HallID, &mt, &b.BookingDate, &b.Quantity, &b.Price, &b.IsTaken, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.MealType = domain.MealType(mt)
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// UserStats aggregates a member's booking history.
type UserStats struct {
	TotalMeals int64
	TotalSpent decimal.Decimal
	ByMeal     map[domain.MealType]int64
}

func (r BookingRepository) StatsForUser(ctx context.Context, userID int64) (UserStats, error) {
	stats := UserStats{ByMeal: make(map[domain.MealType]int64)}
	var breakfast, lunch, dinner int64
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity),0),
		       COALESCE(SUM(quantity * price),0),
		       COALESCE(SUM(quantity) FILTER (WHERE meal_type='breakfast'),0),
		       COALESCE(SUM(quantity) FILTER (WHERE meal_type='lunch'),0),
		       COALESCE(SUM(quantity) FILTER (WHERE meal_type='dinner'),0)
		FROM meal_bookings
		WHERE user_id=$1
	`, userID).Scan(&stats.TotalMeals, &stats.TotalSpent, &breakfast, &lunch, &dinner)
	if err != nil {
		return stats, err
	}
	stats.ByMeal[domain.MealBreakfast] = breakfast
	stats.ByMeal[domain.MealLunch] = lunch
	stats.ByMeal[domain.MealDinner] = dinner
	return stats, nil
}

// RosterRow is one hall member's slot state for a given date and meal.
type RosterRow struct {
	UserID    int64
	Name      string
	Code      string
	Type      domain.MemberType
	BookingID *int64
	Quantity  int
	IsTaken   bool
}

// Roster lists every member of the hall with their booking for the slot, if
// any, so admins can mark meals as taken.
func (r BookingRepository) Roster(ctx context.Context, hallID int64, date time.Time, mealType domain.MealType) ([]RosterRow, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT m.user_id, u.name, m.code, m.member_type,
		       b.id, COALESCE(b.quantity, 0), COALESCE(b.is_taken, FALSE)
		FROM members m
		JOIN users u ON u.id = m.user_id
		LEFT JOIN meal_bookings b
		       ON b.user_id = m.user_id AND b.booking_date = $2 AND b.meal_type = $3
		WHERE m.hall_id = $1 AND u.status = 'active'
		ORDER BY m.code
	`, hallID, date.Format(dateLayout), mealType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roster []RosterRow
	for rows.Next() {
		var row RosterRow
		var typ string
		if err := rows.Scan(&row.UserID, &row.Name, &row.Code, &typ, &row.BookingID, &row.Quantity, &row.IsTaken); err != nil {
			return nil, err
		}
		row.Type = domain.MemberType(typ)
		roster = append(roster, row)
	}
	return roster, rows.Err()
}

// SetTaken flags a slot as served. A member without a booking gets a
// quantity-1 booking created; a cancelled (quantity 0) booking being marked
// taken is bumped back to 1. The user must be a member of the given hall,
// otherwise the serving desk could create a booking that another hall's
// finalization would debit.
func (r BookingRepository) SetTaken(ctx context.Context, hallID, userID int64, date time.Time, mealType domain.MealType, taken bool) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		INSERT INTO meal_bookings (user_id, hall_id, meal_type, booking_date, quantity, price, is_taken, created_at, updated_at)
		SELECT $1,$2,$3,$4, 1, 0, $5, now(), now()
		WHERE EXISTS (SELECT 1 FROM members WHERE user_id=$1 AND hall_id=$2)
		ON CONFLICT (user_id, meal_type, booking_date)
		DO UPDATE SET
			is_taken = EXCLUDED.is_taken,
			quantity = CASE
				WHEN meal_bookings.quantity = 0 AND EXCLUDED.is_taken THEN 1
				ELSE meal_bookings.quantity
			END,
			updated_at = now()
	`, userID, hallID, mealType, date.Format(dateLayout), taken)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// BookingWithMember carries the booking plus the fields the meal list and
// dashboard render.
type BookingWithMember struct {
	domain.MealBooking
	Name        string
	Code        string
	Type        domain.MemberType
	Preference  domain.MeatPreference
	Designation string
	Department  string
}

func (r BookingRepository) ListForHallDate(ctx context.Context, hallID int64, date time.Time) ([]BookingWithMember, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT b.id, b.user_id, b.hall_id, b.meal_type, b.booking_date, b.quantity, b.price, b.is_taken,
		       u.name, m.code, m.member_type, m.preference, m.designation, m.department
		FROM meal_bookings b
		JOIN users u ON u.id = b.user_id
		JOIN members m ON m.user_id = b.user_id
		WHERE b.hall_id=$1 AND b.booking_date=$2
		ORDER BY b.meal_type, m.member_type, m.code
	`, hallID, date.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BookingWithMember
	for rows.Next() {
		var b BookingWithMember
		var mt, typ, pref string
		if err := rows.Scan(&b.ID, &b.UserID, &b.HallID, &mt, &b.BookingDate, &b.Quantity, &b.Price, &b.IsTaken,
			&b.Name, &b.Code, &typ, &pref, &b.Designation, &b.Department); err != nil {
			return nil, err
		}
		b.MealType = domain.MealType(mt)
		b.Type = domain.MemberType(typ)
		b.Preference = domain.MeatPreference(pref)
		out = append(out, b)
	}
	return out, rows.Err()
}

// DaySummaryRow aggregates one meal slot by dietary preference.
type DaySummaryRow struct {
	MealType   domain.MealType
	Preference domain.MeatPreference
	Quantity   int64
}

func (r BookingRepository) SummaryForDate(ctx context.Context, hallID int64, date time.Time) ([]DaySummaryRow, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT b.meal_type, m.preference, SUM(b.quantity)
		FROM meal_bookings b
		JOIN members m ON m.user_id = b.user_id
		WHERE b.hall_id=$1 AND b.booking_date=$2
		GROUP BY b.meal_type, m.preference
		ORDER BY b.meal_type, m.preference
	`, hallID, date.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DaySummaryRow
	for rows.Next() {
		var row DaySummaryRow
		var mt, pref string
		if err := rows.Scan(&mt, &pref, &row.Quantity); err != nil {
			return nil, err
		}
		row.MealType = domain.MealType(mt)
		row.Preference = domain.MeatPreference(pref)
		out = append(out, row)
	}
	return out, rows.Err()
}

// CancelFutureBookings deletes a user's bookings dated strictly after the
// given day. Used by the dues sweep; repeat runs delete nothing.
func (r BookingRepository) CancelFutureBookings(ctx context.Context, userID int64, after time.Time) (int64, error) {
	tag, err := r.DB.Pool.Exec(ctx, `
		DELETE FROM meal_bookings
		WHERE user_id=$1 AND booking_date > $2
	`, userID, after.Format(dateLayout))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Package billing holds the pure price and balance arithmetic for daily and
// monthly cost finalization. Everything here is side-effect free so the
// repositories can apply the results inside their own transactions.
package billing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"hallmeal-backend/internal/domain"
)

var (
	// ErrNothingToFinalize is returned when no booked meal units exist for
	// the sheet being finalized.
	ErrNothingToFinalize = errors.New("no bookings to finalize")
)

// clearanceTolerance absorbs sub-paisa rounding noise when checking that a
// member has settled up.
var clearanceTolerance = decimal.RequireFromString("-0.01")

// BookingShare is the slice of a booking that matters for cost distribution.
type BookingShare struct {
	BookingID  int64
	UserID     int64
	Quantity   int
	Preference domain.MeatPreference
}

// PricedBooking is a booking with its finalized unit price and total debit.
type PricedBooking struct {
	BookingID int64
	UserID    int64
	Quantity  int
	UnitPrice decimal.Decimal
	Debit     decimal.Decimal
}

// DailyResult is the outcome of pricing one day's meal sheet.
type DailyResult struct {
	BasePrice      decimal.Decimal
	TotalQuantity  int
	MuttonQuantity int
	Lines          []PricedBooking
}

// SurchargeApplies reports whether the mutton surcharge is chargeable for a
// meal slot. Breakfast never carries the surcharge.
func SurchargeApplies(mealType domain.MealType) bool {
	return mealType == domain.MealLunch || mealType == domain.MealDinner
}

// PriceDay distributes totalCost over the day's bookings. Members with the
// mutton preference pay extraMuttonCharge on top of the base price for
// surcharge-eligible meals; the surcharge pool is carved out of totalCost
// before the base price is computed so the sheet still balances.
func PriceDay(mealType domain.MealType, totalCost, extraMuttonCharge decimal.Decimal, bookings []BookingShare) (DailyResult, error) {
	var res DailyResult
	for _, b := range bookings {
		res.TotalQuantity += b.Quantity
		if b.Preference == domain.PrefMutton {
			res.MuttonQuantity += b.Quantity
		}
	}
	if res.TotalQuantity == 0 {
		return res, ErrNothingToFinalize
	}

	surcharge := extraMuttonCharge
	if !SurchargeApplies(mealType) {
		surcharge = decimal.Zero
		res.MuttonQuantity = 0
	}

	extraTotal := surcharge.Mul(decimal.NewFromInt(int64(res.MuttonQuantity)))
	res.BasePrice = totalCost.Sub(extraTotal).DivRound(decimal.NewFromInt(int64(res.TotalQuantity)), 2)

	res.Lines = make([]PricedBooking, 0, len(bookings))
	for _, b := range bookings {
		price := res.BasePrice
		if b.Preference == domain.PrefMutton && !surcharge.IsZero() {
			price = price.Add(surcharge)
		}
		res.Lines = append(res.Lines, PricedBooking{
			BookingID: b.BookingID,
			UserID:    b.UserID,
			Quantity:  b.Quantity,
			UnitPrice: price,
			Debit:     price.Mul(decimal.NewFromInt(int64(b.Quantity))),
		})
	}
	return res, nil
}

// MonthlyResult is the outcome of distributing a month's shared overhead.
type MonthlyResult struct {
	PerUnitShared decimal.Decimal
	TotalQuantity int
	// MealDebits maps user id to that user's share of the overhead.
	MealDebits map[int64]decimal.Decimal
	// SeatRentUsers lists every distinct user owing one seat rent, in first
	// booking order.
	SeatRentUsers []int64
}

// ShareMonth splits totalAmount across the month's booked meal units and
// flags each distinct booking user for exactly one seat rent debit.
func ShareMonth(totalAmount decimal.Decimal, bookings []BookingShare) (MonthlyResult, error) {
	res := MonthlyResult{MealDebits: make(map[int64]decimal.Decimal)}
	for _, b := range bookings {
		res.TotalQuantity += b.Quantity
	}
	if res.TotalQuantity == 0 {
		return res, ErrNothingToFinalize
	}

	res.PerUnitShared = totalAmount.DivRound(decimal.NewFromInt(int64(res.TotalQuantity)), 2)

	seen := make(map[int64]bool)
	for _, b := range bookings {
		debit := res.PerUnitShared.Mul(decimal.NewFromInt(int64(b.Quantity)))
		res.MealDebits[b.UserID] = res.MealDebits[b.UserID].Add(debit)
		if !seen[b.UserID] {
			seen[b.UserID] = true
			res.SeatRentUsers = append(res.SeatRentUsers, b.UserID)
		}
	}
	return res, nil
}

// ClearanceOK reports whether a member's balance permits the active->ex
// transition.
func ClearanceOK(balance decimal.Decimal) bool {
	return balance.GreaterThanOrEqual(clearanceTolerance)
}

// Delinquent reports whether a member is past the dues grace period: a
// negative balance with no credit (last payment, or profile creation when
// none) within the last graceMonths months.
func Delinquent(balance decimal.Decimal, lastCredit, now time.Time, graceMonths int) bool {
	if !balance.IsNegative() {
		return false
	}
	return lastCredit.Before(now.AddDate(0, -graceMonths, 0))
}

package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"hallmeal-backend/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPriceDay_MuttonCarveOut(t *testing.T) {
	// 1000 total, 20 mutton surcharge. A books 2 beef units, B books 3
	// mutton units. Base = (1000 - 3*20) / 5 = 188.
	bookings := []BookingShare{
		{BookingID: 1, UserID: 10, Quantity: 2, Preference: domain.PrefBeef},
		{BookingID: 2, UserID: 20, Quantity: 3, Preference: domain.PrefMutton},
	}

	res, err := PriceDay(domain.MealLunch, d("1000"), d("20"), bookings)
	assert.NoError(t, err)
	assert.Equal(t, 5, res.TotalQuantity)
	assert.Equal(t, 3, res.MuttonQuantity)
	assert.True(t, res.BasePrice.Equal(d("188")), "base price = %s", res.BasePrice)

	assert.Len(t, res.Lines, 2)
	assert.True(t, res.Lines[0].UnitPrice.Equal(d("188")))
	assert.True(t, res.Lines[0].Debit.Equal(d("376")))
	assert.True(t, res.Lines[1].UnitPrice.Equal(d("208")))
	assert.True(t, res.Lines[1].Debit.Equal(d("624")))

	// The sheet balances: sum of debits equals total cost.
	sum := decimal.Zero
	for _, l := range res.Lines {
		sum = sum.Add(l.Debit)
	}
	assert.True(t, sum.Equal(d("1000")), "debits sum to %s", sum)
}

func TestPriceDay_BreakfastIgnoresSurcharge(t *testing.T) {
	bookings := []BookingShare{
		{BookingID: 1, UserID: 10, Quantity: 1, Preference: domain.PrefBeef},
		{BookingID: 2, UserID: 20, Quantity: 1, Preference: domain.PrefMutton},
	}

	res, err := PriceDay(domain.MealBreakfast, d("100"), d("20"), bookings)
	assert.NoError(t, err)
	assert.Equal(t, 0, res.MuttonQuantity)
	assert.True(t, res.BasePrice.Equal(d("50")))
	for _, l := range res.Lines {
		assert.True(t, l.UnitPrice.Equal(d("50")), "breakfast price is flat")
	}
}

func TestPriceDay_RoundingStaysWithinOneUnit(t *testing.T) {
	// 100 over 3 units rounds to 33.33 each; the residue stays below one
	// base price unit.
	bookings := []BookingShare{
		{BookingID: 1, UserID: 1, Quantity: 1, Preference: domain.PrefBeef},
		{BookingID: 2, UserID: 2, Quantity: 1, Preference: domain.PrefBeef},
		{BookingID: 3, UserID: 3, Quantity: 1, Preference: domain.PrefBeef},
	}
	res, err := PriceDay(domain.MealDinner, d("100"), decimal.Zero, bookings)
	assert.NoError(t, err)

	sum := decimal.Zero
	for _, l := range res.Lines {
		sum = sum.Add(l.Debit)
	}
	assert.True(t, sum.Sub(d("100")).Abs().LessThanOrEqual(res.BasePrice),
		"residue %s exceeds one unit", sum.Sub(d("100")))
}

func TestPriceDay_NoBookings(t *testing.T) {
	_, err := PriceDay(domain.MealLunch, d("500"), d("20"), nil)
	assert.ErrorIs(t, err, ErrNothingToFinalize)
}

func TestSurchargeApplies(t *testing.T) {
	assert.False(t, SurchargeApplies(domain.MealBreakfast))
	assert.True(t, SurchargeApplies(domain.MealLunch))
	assert.True(t, SurchargeApplies(domain.MealDinner))
}

func TestShareMonth_SeatRentOncePerUser(t *testing.T) {
	// User 10 booked on many days; they still owe exactly one seat rent.
	bookings := []BookingShare{
		{BookingID: 1, UserID: 10, Quantity: 2},
		{BookingID: 2, UserID: 10, Quantity: 1},
		{BookingID: 3, UserID: 20, Quantity: 1},
	}

	res, err := ShareMonth(d("400"), bookings)
	assert.NoError(t, err)
	assert.Equal(t, 4, res.TotalQuantity)
	assert.True(t, res.PerUnitShared.Equal(d("100")))
	assert.True(t, res.MealDebits[10].Equal(d("300")))
	assert.True(t, res.MealDebits[20].Equal(d("100")))
	assert.Equal(t, []int64{10, 20}, res.SeatRentUsers)
}

func TestShareMonth_NoBookings(t *testing.T) {
	_, err := ShareMonth(d("400"), nil)
	assert.ErrorIs(t, err, ErrNothingToFinalize)
}

func TestClearanceOK(t *testing.T) {
	assert.True(t, ClearanceOK(d("0")))
	assert.True(t, ClearanceOK(d("150.25")))
	assert.True(t, ClearanceOK(d("-0.01")), "rounding noise is tolerated")
	assert.False(t, ClearanceOK(d("-0.02")))
	assert.False(t, ClearanceOK(d("-5.00")))
}

func TestDelinquent(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	// Positive balance is never delinquent, however old the last credit.
	assert.False(t, Delinquent(d("10"), now.AddDate(-1, 0, 0), now, 2))
	// Negative balance with a recent credit is fine.
	assert.False(t, Delinquent(d("-50"), now.AddDate(0, -1, 0), now, 2))
	// Negative balance with the last credit past the grace period.
	assert.True(t, Delinquent(d("-50"), now.AddDate(0, -3, 0), now, 2))
	// Exactly at the cutoff is not yet past it.
	assert.False(t, Delinquent(d("-50"), now.AddDate(0, -2, 0), now, 2))
}

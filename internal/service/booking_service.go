package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hallmeal-backend/internal/billing"
	"hallmeal-backend/internal/config"
	"hallmeal-backend/internal/domain"
	"hallmeal-backend/internal/repository"
)

var (
	ErrOutsideWindow  = errors.New("booking is only allowed between 08:00 and midnight")
	ErrDateNotFuture  = errors.New("bookings can only be made for future dates")
	ErrMemberInactive = errors.New("account is not active")
	ErrDelinquent     = errors.New("booking blocked: dues pending for more than the grace period")
	ErrBadQuantity    = errors.New("quantity must be between 1 and 10")
)

// BookingService enforces the booking window and dues policy around the
// booking upsert.
type BookingService struct {
	Config   config.Config
	Bookings repository.BookingRepository
	Members  repository.MemberRepository

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

func (s BookingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// WithinWindow reports whether t falls inside the daily booking window
// [openHour, closeHour).
func WithinWindow(t time.Time, openHour, closeHour int) bool {
	h := t.Hour()
	return h >= openHour && h < closeHour
}

// BookableDate reports whether date (a calendar day) is tomorrow or later
// relative to now.
func BookableDate(now, date time.Time) bool {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return day.After(today)
}

type BookInput struct {
	UserID   int64
	MealType domain.MealType
	Date     time.Time
	Quantity int
}

// Book creates or updates the member's booking for the slot. No balance is
// deducted here; money only moves when the day's cost sheet finalizes.
func (s BookingService) Book(ctx context.Context, in BookInput) (*domain.MealBooking, error) {
	if !in.MealType.Valid() {
		return nil, fmt.Errorf("invalid meal type %q", in.MealType)
	}
	if in.Quantity < 1 || in.Quantity > 10 {
		return nil, ErrBadQuantity
	}

	now := s.now()
	if !WithinWindow(now, s.Config.BookingOpenHour, s.Config.BookingCloseHour) {
		return nil, ErrOutsideWindow
	}
	if !BookableDate(now, in.Date) {
		return nil, ErrDateNotFuture
	}

	member, err := s.Members.GetByUserID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if member.Status != domain.StatusActive {
		return nil, ErrMemberInactive
	}

	if member.Balance.IsNegative() {
		lastCredit, err := s.Members.LastCreditDate(ctx, in.UserID)
		if err != nil {
			return nil, err
		}
		if billing.Delinquent(member.Balance, lastCredit, now, s.Config.DuesGraceMonths) {
			return nil, ErrDelinquent
		}
	}

	return s.Bookings.Upsert(ctx, repository.UpsertBookingParams{
		UserID:      in.UserID,
		HallID:      member.HallID,
		MealType:    in.MealType,
		BookingDate: in.Date,
		Quantity:    in.Quantity,
	})
}

// Cancel removes the member's booking for the slot, subject to the same
// window and future-date cutoff as booking.
func (s BookingService) Cancel(ctx context.Context, userID int64, mealType domain.MealType, date time.Time) error {
	if !mealType.Valid() {
		return fmt.Errorf("invalid meal type %q", mealType)
	}
	now := s.now()
	if !WithinWindow(now, s.Config.BookingOpenHour, s.Config.BookingCloseHour) {
		return ErrOutsideWindow
	}
	if !BookableDate(now, date) {
		return ErrDateNotFuture
	}
	return s.Bookings.Delete(ctx, userID, mealType, date)
}

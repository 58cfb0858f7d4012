package service

import (
	"context"
	"time"

	"log/slog"

	"hallmeal-backend/internal/config"
	"hallmeal-backend/internal/repository"
)

// DuesService cancels future bookings for members whose dues are past the
// grace period. The sweep is idempotent: a repeat run finds the same members
// but has no future bookings left to delete.
type DuesService struct {
	Config   config.Config
	Members  repository.MemberRepository
	Bookings repository.BookingRepository
	Logger   *slog.Logger
}

type SweepResult struct {
	MembersFlagged    int
	BookingsCancelled int64
}

func (s DuesService) Sweep(ctx context.Context) (SweepResult, error) {
	now := time.Now()
	cutoff := now.AddDate(0, -s.Config.DuesGraceMonths, 0)

	delinquents, err := s.Members.ListDelinquent(ctx, cutoff)
	if err != nil {
		return SweepResult{}, err
	}

	var res SweepResult
	res.MembersFlagged = len(delinquents)
	for _, d := range delinquents {
		cancelled, err := s.Bookings.CancelFutureBookings(ctx, d.UserID, now)
		if err != nil {
			return res, err
		}
		res.BookingsCancelled += cancelled
		if cancelled > 0 {
			s.Logger.Warn("cancelled future bookings for delinquent member",
				"member", d.Code, "name", d.Name, "balance", d.Balance, "cancelled", cancelled)
		}
	}
	return res, nil
}

package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"hallmeal-backend/internal/config"
	"hallmeal-backend/internal/db"
	"hallmeal-backend/internal/repository"
	"hallmeal-backend/internal/service"
)

// duescheck runs the dues sweep once and exits. Meant to be cron-scheduled
// daily, shortly before the booking window opens.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect database", "err", err)
		os.Exit(1)
	}
	defer pg.Close()

	sweep := service.DuesService{
		Config:   cfg,
		Members:  repository.MemberRepository{DB: pg},
		Bookings: repository.BookingRepository{DB: pg},
		Logger:   logger,
	}

	res, err := sweep.Sweep(ctx)
	if err != nil {
		logger.Error("dues sweep failed", "err", err)
		os.Exit(1)
	}
	logger.Info("dues sweep complete",
		"members_flagged", res.MembersFlagged,
		"bookings_cancelled", res.BookingsCancelled)
}

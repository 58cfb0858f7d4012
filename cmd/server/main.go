package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"hallmeal-backend/internal/config"
	"hallmeal-backend/internal/db"
	"hallmeal-backend/internal/handler"
	"hallmeal-backend/internal/repository"
	"hallmeal-backend/internal/server"
	"hallmeal-backend/internal/service"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if cfg.Env == "development" {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect database", "err", err)
		os.Exit(1)
	}
	defer pg.Close()

	if cfg.AutoMigrate {
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("failed to apply schema", "err", err)
			os.Exit(1)
		}
	}

	// repositories
	userRepo := repository.UserRepository{DB: pg}
	hallRepo := repository.HallRepository{DB: pg}
	memberRepo := repository.MemberRepository{DB: pg}
	bookingRepo := repository.BookingRepository{DB: pg}
	dailyCostRepo := repository.DailyCostRepository{DB: pg}
	monthlyCostRepo := repository.MonthlyCostRepository{DB: pg}
	paymentRepo := repository.PaymentRepository{DB: pg}
	dashboardRepo := repository.DashboardRepository{DB: pg}

	if err := seed(ctx, hallRepo, userRepo, logger); err != nil {
		logger.Error("failed to seed defaults", "err", err)
		os.Exit(1)
	}

	// services
	authSvc := service.AuthService{Config: cfg, Users: userRepo, Logger: logger}
	bookingSvc := service.BookingService{Config: cfg, Bookings: bookingRepo, Members: memberRepo}
	memberSvc := service.MemberService{Members: memberRepo, Payments: paymentRepo, Logger: logger}

	// handlers
	healthHandler := handler.HealthHandler{DB: pg}
	authHandler := handler.AuthHandler{Service: &authSvc}
	bookingHandler := handler.BookingHandler{Service: &bookingSvc, Bookings: bookingRepo}
	memberHandler := handler.MemberHandler{Service: &memberSvc, Members: memberRepo, Halls: hallRepo}
	dailyMealHandler := handler.DailyMealHandler{Bookings: bookingRepo, Halls: hallRepo}
	mealExpenseHandler := handler.MealExpenseHandler{Costs: dailyCostRepo, Halls: hallRepo}
	monthlyCostHandler := handler.MonthlyCostHandler{Costs: monthlyCostRepo, Halls: hallRepo}
	mealListHandler := handler.MealListHandler{Bookings: bookingRepo, Halls: hallRepo}
	dashboardHandler := handler.DashboardHandler{Dashboard: dashboardRepo, Bookings: bookingRepo, Halls: hallRepo, Currency: cfg.CurrencyCode}
	homeHandler := handler.HomeHandler{}

	router := server.NewRouter(cfg, logger,
		healthHandler, authHandler, bookingHandler, memberHandler,
		dailyMealHandler, mealExpenseHandler, monthlyCostHandler,
		mealListHandler, dashboardHandler, homeHandler)

	if err := server.Start(ctx, cfg, router, logger); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, halls repository.HallRepository, users repository.UserRepository, logger *slog.Logger) error {
	if err := halls.SeedDefaults(ctx); err != nil {
		return err
	}

	email := os.Getenv("SUPER_ADMIN_EMAIL")
	password := os.Getenv("SUPER_ADMIN_PASSWORD")
	if email == "" || password == "" {
		logger.Warn("SUPER_ADMIN_EMAIL/SUPER_ADMIN_PASSWORD not set, skipping super admin seed")
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return users.SeedSuperAdmin(ctx, "Super Admin", email, string(hash))
}

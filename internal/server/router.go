package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"hallmeal-backend/internal/config"
	"hallmeal-backend/internal/domain"
	"hallmeal-backend/internal/handler"
	"log/slog"
)

// NewRouter wires HTTP routes and middleware.
func NewRouter(cfg config.Config,
	logger *slog.Logger,
	health handler.HealthHandler,
	auth handler.AuthHandler,
	bookings handler.BookingHandler,
	members handler.MemberHandler,
	dailyMeals handler.DailyMealHandler,
	mealExpenses handler.MealExpenseHandler,
	monthlyCosts handler.MonthlyCostHandler,
	mealLists handler.MealListHandler,
	dashboard handler.DashboardHandler,
	home handler.HomeHandler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(200, 1*time.Minute))

	health.RegisterRoutes(r)
	auth.RegisterRoutes(r)
	home.RegisterRoutes(r)
	r.Method("GET", "/metrics", promhttp.Handler())

	r.Group(func(pr chi.Router) {
		pr.Use(AuthMiddleware(cfg.JWTSecret))
		auth.RegisterProtectedRoutes(pr)
		// member self-service (any authenticated role)
		bookings.RegisterRoutes(pr)
		// hall administration
		pr.Group(func(ar chi.Router) {
			ar.Use(RequireRole(domain.RoleSuperAdmin, domain.RoleHallAdmin))
			members.RegisterRoutes(ar)
			dailyMeals.RegisterRoutes(ar)
			mealExpenses.RegisterRoutes(ar)
			monthlyCosts.RegisterRoutes(ar)
			mealLists.RegisterRoutes(ar)
			dashboard.RegisterRoutes(ar)
		})
	})

	return r
}

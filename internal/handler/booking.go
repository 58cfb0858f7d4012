package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"hallmeal-backend/internal/domain"
	"hallmeal-backend/internal/repository"
	"hallmeal-backend/internal/server/authctx"
	"hallmeal-backend/internal/service"
)

// BookingHandler is the member self-service surface.
type BookingHandler struct {
	Service  *service.BookingService
	Bookings repository.BookingRepository
}

func (h BookingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/bookings", h.list)
	r.Post("/bookings", h.book)
	r.Delete("/bookings", h.cancel)
}

func (h BookingHandler) list(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	today := time.Now()
	bookings, err := h.Bookings.ListForUser(r.Context(), user.ID, today)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	stats, err := h.Bookings.StatsForUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	items := make([]map[string]any, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, bookingJSON(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bookings": items,
		"stats": map[string]any{
			"totalMeals": stats.TotalMeals,
			"totalSpent": stats.TotalSpent.StringFixed(2),
			"mealCounts": map[string]int64{
				"breakfast": stats.ByMeal[domain.MealBreakfast],
				"lunch":     stats.ByMeal[domain.MealLunch],
				"dinner":    stats.ByMeal[domain.MealDinner],
			},
		},
	})
}

func (h BookingHandler) book(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !user.Role.MemberRole() {
		writeError(w, http.StatusForbidden, "only hall members can book meals")
		return
	}
	var req struct {
		MealType string `json:"mealType"`
		Date     string `json:"date"`
		Quantity int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	booking, err := h.Service.Book(r.Context(), service.BookInput{
		UserID:   user.ID,
		MealType: domain.MealType(req.MealType),
		Date:     date,
		Quantity: req.Quantity,
	})
	if err != nil {
		writeError(w, bookingErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, bookingJSON(*booking))
}

func (h BookingHandler) cancel(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !user.Role.MemberRole() {
		writeError(w, http.StatusForbidden, "only hall members can book meals")
		return
	}
	mealType := r.URL.Query().Get("mealType")
	dateStr := r.URL.Query().Get("date")
	date, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	if err := h.Service.Cancel(r.Context(), user.ID, domain.MealType(mealType), date); err != nil {
		writeError(w, bookingErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func bookingErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrOutsideWindow),
		errors.Is(err, service.ErrDateNotFuture),
		errors.Is(err, service.ErrBadQuantity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrDelinquent),
		errors.Is(err, service.ErrMemberInactive):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func bookingJSON(b domain.MealBooking) map[string]any {
	return map[string]any{
		"id":       b.ID,
		"mealType": string(b.MealType),
		"date":     b.BookingDate.Format(dateLayout),
		"quantity": b.Quantity,
		"price":    b.Price.StringFixed(2),
		"isTaken":  b.IsTaken,
	}
}

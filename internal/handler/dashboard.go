package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"hallmeal-backend/internal/repository"
)

type DashboardHandler struct {
	Dashboard repository.DashboardRepository
	Bookings  repository.BookingRepository
	Halls     repository.HallRepository
	Currency  string
}

func (h DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard/summary", h.summary)
	r.Get("/dashboard/meal-summary", h.mealSummary)
	r.Get("/dashboard/top-bookers", h.topBookers)
}

func (h DashboardHandler) summary(w http.ResponseWriter, r *http.Request) {
	hallID, err := resolveHallScope(r, h.Halls)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, err := h.Dashboard.Summary(r.Context(), hallID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"currency":       h.Currency,
		"activeMembers":  s.ActiveMembers,
		"todayMeals":     s.TodayMeals,
		"tomorrowMeals":  s.TomorrowMeals,
		"draftSheets":    s.DraftSheets,
		"monthExpense":   s.MonthExpense.StringFixed(2),
		"outstandingDue": s.OutstandingDue.StringFixed(2),
	})
}

// mealSummary reports per meal-type, per meat-preference booked quantities
// for a day. Defaults to tomorrow, which is what the kitchen cooks for.
func (h DashboardHandler) mealSummary(w http.ResponseWriter, r *http.Request) {
	hallID, err := resolveHallScope(r, h.Halls)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date := time.Now().AddDate(0, 0, 1)
	if d, err := parseDateQuery(r, "date"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	} else if d != nil {
		date = *d
	}
	rows, err := h.Bookings.SummaryForDate(r.Context(), hallID, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, map[string]any{
			"mealType":   string(row.MealType),
			"preference": string(row.Preference),
			"quantity":   row.Quantity,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":  date.Format(dateLayout),
		"meals": resp,
	})
}

func (h DashboardHandler) topBookers(w http.ResponseWriter, r *http.Request) {
	hallID, err := resolveHallScope(r, h.Halls)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, _ := parsePage(r, 10)
	rows, err := h.Dashboard.TopBookers(r.Context(), hallID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, map[string]any{
			"name":     row.Name,
			"code":     row.Code,
			"quantity": row.Quantity,
			"spent":    row.Spent.StringFixed(2),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"hallmeal-backend/internal/domain"
	"hallmeal-backend/internal/repository"
)

// DailyMealHandler is the admin roster: who booked what for a slot, and
// marking meals as taken at serving time.
type DailyMealHandler struct {
	Bookings repository.BookingRepository
	Halls    repository.HallRepository
}

func (h DailyMealHandler) RegisterRoutes(r chi.Router) {
	r.Get("/daily-meals", h.roster)
	r.Post("/daily-meals/taken", h.setTaken)
}

func (h DailyMealHandler) roster(w http.ResponseWriter, r *http.Request) {
	hallID, err := resolveHallScope(r, h.Halls)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date := time.Now()
	if d, err := parseDateQuery(r, "date"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	} else if d != nil {
		date = *d
	}
	mealType := domain.MealType(r.URL.Query().Get("mealType"))
	if mealType == "" {
		mealType = domain.MealLunch
	}
	if !mealType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid mealType")
		return
	}

	roster, err := h.Bookings.Roster(r.Context(), hallID, date, mealType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(roster))
	for _, row := range roster {
		resp = append(resp, map[string]any{
			"userId":    row.UserID,
			"name":      row.Name,
			"code":      row.Code,
			"type":      string(row.Type),
			"bookingId": row.BookingID,
			"quantity":  row.Quantity,
			"isTaken":   row.IsTaken,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":     date.Format(dateLayout),
		"mealType": string(mealType),
		"roster":   resp,
	})
}

func (h DailyMealHandler) setTaken(w http.ResponseWriter, r *http.Request) {
	hallID, err := resolveHallScope(r, h.Halls)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req struct {
		UserID   int64  `json:"userId"`
		Date     string `json:"date"`
		MealType string `json:"mealType"`
		IsTaken  bool   `json:"isTaken"`
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
	mealType := domain.MealType(req.MealType)
	if !mealType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid mealType")
		return
	}
	if err := h.Bookings.SetTaken(r.Context(), hallID, req.UserID, date, mealType, req.IsTaken); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no such member in this hall")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"hallmeal-backend/internal/billing"
	"hallmeal-backend/internal/domain"
	"hallmeal-backend/internal/repository"
)

// MealExpenseHandler manages the daily expense sheets and their
// finalization.
type MealExpenseHandler struct {
	Costs repository.DailyCostRepository
	Halls repository.HallRepository
}

func (h MealExpenseHandler) RegisterRoutes(r chi.Router) {
	r.Get("/meal-expenses", h.list)
	r.Get("/meal-expenses/{id}", h.get)
	r.Post("/meal-expenses", h.upsert)
	r.Post("/meal-expenses/{id}/finalize", h.finalize)
}

func (h MealExpenseHandler) list(w http.ResponseWriter, r *http.Request) {
	hallID, err := resolveHallScope(r, h.Halls)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, offset := parsePage(r, 15)
	sheets, err := h.Costs.List(r.Context(), hallID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(sheets))
	for _, s := range sheets {
		resp = append(resp, dailyCostJSON(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h MealExpenseHandler) get(w http.ResponseWriter, r *http.Request) {
	sheet, ok := h.scopedSheet(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dailyCostJSON(*sheet))
}

func (h MealExpenseHandler) upsert(w http.ResponseWriter, r *http.Request) {
	hallID, err := resolveHallScope(r, h.Halls)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req struct {
		Date              string `json:"date"`
		MealType          string `json:"mealType"`
		ExtraMuttonCharge string `json:"extraMuttonCharge"`
		Items             []struct {
			Name      string `json:"name"`
			UnitPrice string `json:"unitPrice"`
			Quantity  string `json:"quantity"`
		} `json:"items"`
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
	if date.After(time.Now()) {
		writeError(w, http.StatusBadRequest, "date must not be in the future")
		return
	}
	mealType := domain.MealType(req.MealType)
	if !mealType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid mealType")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "at least one expense item is required")
		return
	}

	extraCharge := decimal.Zero
	if req.ExtraMuttonCharge != "" {
		extraCharge, err = decimal.NewFromString(req.ExtraMuttonCharge)
		if err != nil || extraCharge.IsNegative() {
			writeError(w, http.StatusBadRequest, "invalid extraMuttonCharge")
			return
		}
	}

	items := make([]repository.ExpenseItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		if it.Name == "" {
			writeError(w, http.StatusBadRequest, "item name is required")
			return
		}
		unitPrice, err := decimal.NewFromString(it.UnitPrice)
		if err != nil || unitPrice.IsNegative() {
			writeError(w, http.StatusBadRequest, "invalid unitPrice for "+it.Name)
			return
		}
		qty, err := decimal.NewFromString(it.Quantity)
		if err != nil || qty.IsNegative() {
			writeError(w, http.StatusBadRequest, "invalid quantity for "+it.Name)
			return
		}
		items = append(items, repository.ExpenseItemInput{Name: it.Name, UnitPrice: unitPrice, Quantity: qty})
	}

	sheet, err := h.Costs.Upsert(r.Context(), repository.UpsertDailyCostParams{
		HallID:            hallID,
		Date:              date,
		MealType:          mealType,
		ExtraMuttonCharge: extraCharge,
		Items:             items,
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyFinalized) {
			writeError(w, http.StatusConflict, "finalized expenses cannot be edited")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, dailyCostJSON(*sheet))
}

func (h MealExpenseHandler) finalize(w http.ResponseWriter, r *http.Request) {
	sheet, ok := h.scopedSheet(w, r)
	if !ok {
		return
	}
	res, err := h.Costs.Finalize(r.Context(), sheet.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyFinalized):
			writeError(w, http.StatusConflict, "this day is already finalized")
		case errors.Is(err, billing.ErrNothingToFinalize):
			writeError(w, http.StatusUnprocessableEntity, "no bookings found for this day/meal, cannot finalize")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"basePrice":      res.BasePrice.StringFixed(2),
		"totalQuantity":  res.TotalQuantity,
		"bookingsPriced": res.BookingsPriced,
	})
}

func (h MealExpenseHandler) scopedSheet(w http.ResponseWriter, r *http.Request) (*domain.DailyMealCost, bool) {
	hallID, err := resolveHallScope(r, h.Halls)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	sheet, err := h.Costs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "expense sheet not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if sheet.HallID != hallID {
		writeError(w, http.StatusForbidden, "expense sheet belongs to a different hall")
		return nil, false
	}
	return sheet, true
}

func dailyCostJSON(dc domain.DailyMealCost) map[string]any {
	items := make([]map[string]any, 0, len(dc.Items))
	for _, it := range dc.Items {
		items = append(items, map[string]any{
			"id":        it.ID,
			"name":      it.Name,
			"unitPrice": it.UnitPrice.StringFixed(2),
			"quantity":  it.Quantity.String(),
			"total":     it.Total.StringFixed(2),
		})
	}
	out := map[string]any{
		"id":                dc.ID,
		"hallId":            dc.HallID,
		"date":              dc.Date.Format(dateLayout),
		"mealType":          string(dc.MealType),
		"totalCost":         dc.TotalCost.StringFixed(2),
		"extraMuttonCharge": dc.ExtraMuttonCharge.StringFixed(2),
		"status":            string(dc.Status),
		"items":             items,
	}
	if dc.CalculatedPrice != nil {
		out["calculatedPrice"] = dc.CalculatedPrice.StringFixed(2)
	}
	return out
}

func parsePage(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}

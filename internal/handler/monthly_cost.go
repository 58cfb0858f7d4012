package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"hallmeal-backend/internal/billing"
	"hallmeal-backend/internal/domain"
	"hallmeal-backend/internal/repository"
)

// MonthlyCostHandler manages the monthly shared-cost sheets and the hall
// seat-rent setting.
type MonthlyCostHandler struct {
	Costs repository.MonthlyCostRepository
	Halls repository.HallRepository
}

func (h MonthlyCostHandler) RegisterRoutes(r chi.Router) {
	r.Get("/monthly-costs", h.list)
	r.Post("/monthly-costs", h.upsert)
	r.Post("/monthly-costs/{id}/finalize", h.finalize)
	r.Put("/halls/{id}/seat-rent", h.updateSeatRent)
	r.Get("/halls", h.listHalls)
}

func (h MonthlyCostHandler) list(w http.ResponseWriter, r *http.Request) {
	hallID, err := resolveHallScope(r, h.Halls)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, offset := parsePage(r, 12)
	sheets, err := h.Costs.List(r.Context(), hallID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(sheets))
	for _, s := range sheets {
		resp = append(resp, monthlyCostJSON(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h MonthlyCostHandler) upsert(w http.ResponseWriter, r *http.Request) {
	hallID, err := resolveHallScope(r, h.Halls)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req struct {
		Year           int    `json:"year"`
		Month          int    `json:"month"`
		FuelCharge     string `json:"fuelCharge"`
		SpiceCharge    string `json:"spiceCharge"`
		CleaningCharge string `json:"cleaningCharge"`
		OtherItems     []struct {
			Name   string `json:"name"`
			Amount string `json:"amount"`
		} `json:"otherItems"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Year < 2000 || req.Month < 1 || req.Month > 12 {
		writeError(w, http.StatusBadRequest, "invalid year/month")
		return
	}

	fuel, err := nonNegativeDecimal(req.FuelCharge)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid fuelCharge")
		return
	}
	spice, err := nonNegativeDecimal(req.SpiceCharge)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid spiceCharge")
		return
	}
	cleaning, err := nonNegativeDecimal(req.CleaningCharge)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cleaningCharge")
		return
	}

	items := make([]domain.MonthlyOtherItem, 0, len(req.OtherItems))
	for _, it := range req.OtherItems {
		if it.Name == "" {
			writeError(w, http.StatusBadRequest, "other item name is required")
			return
		}
		amount, err := nonNegativeDecimal(it.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid amount for "+it.Name)
			return
		}
		items = append(items, domain.MonthlyOtherItem{Name: it.Name, Amount: amount})
	}

	sheet, err := h.Costs.Upsert(r.Context(), repository.UpsertMonthlyCostParams{
		HallID:         hallID,
		Year:           req.Year,
		Month:          req.Month,
		FuelCharge:     fuel,
		SpiceCharge:    spice,
		CleaningCharge: cleaning,
		OtherItems:     items,
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyFinalized) {
			writeError(w, http.StatusConflict, "finalized monthly costs cannot be edited")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, monthlyCostJSON(*sheet))
}

func (h MonthlyCostHandler) finalize(w http.ResponseWriter, r *http.Request) {
	hallID, err := resolveHallScope(r, h.Halls)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	sheet, err := h.Costs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "monthly cost sheet not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sheet.HallID != hallID {
		writeError(w, http.StatusForbidden, "monthly cost sheet belongs to a different hall")
		return
	}

	res, err := h.Costs.Finalize(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyFinalized):
			writeError(w, http.StatusConflict, "already finalized")
		case errors.Is(err, billing.ErrNothingToFinalize):
			writeError(w, http.StatusUnprocessableEntity, "no bookings found for this month, cannot finalize shared costs")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"perUnitShared": res.PerUnitShared.StringFixed(2),
		"totalQuantity": res.TotalQuantity,
		"usersCharged":  res.UsersCharged,
		"seatRent":      res.SeatRent.StringFixed(2),
	})
}

func (h MonthlyCostHandler) updateSeatRent(w http.ResponseWriter, r *http.Request) {
	hallID, err := resolveHallScope(r, h.Halls)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid hall id")
		return
	}
	if id != hallID {
		writeError(w, http.StatusForbidden, "hall is outside your scope")
		return
	}
	var req struct {
		SeatRent string `json:"seatRent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	seatRent, err := nonNegativeDecimal(req.SeatRent)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid seatRent")
		return
	}
	if err := h.Halls.UpdateSeatRent(r.Context(), id, seatRent); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h MonthlyCostHandler) listHalls(w http.ResponseWriter, r *http.Request) {
	halls, err := h.Halls.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(halls))
	for _, hall := range halls {
		resp = append(resp, map[string]any{
			"id":       hall.ID,
			"name":     hall.Name,
			"seatRent": hall.SeatRent.StringFixed(2),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func monthlyCostJSON(mc domain.MonthlyCost) map[string]any {
	items := make([]map[string]any, 0, len(mc.OtherItems))
	for _, it := range mc.OtherItems {
		items = append(items, map[string]any{
			"name":   it.Name,
			"amount": it.Amount.StringFixed(2),
		})
	}
	return map[string]any{
		"id":             mc.ID,
		"hallId":         mc.HallID,
		"year":           mc.Year,
		"month":          mc.Month,
		"fuelCharge":     mc.FuelCharge.StringFixed(2),
		"spiceCharge":    mc.SpiceCharge.StringFixed(2),
		"cleaningCharge": mc.CleaningCharge.StringFixed(2),
		"otherCharge":    mc.OtherCharge.StringFixed(2),
		"otherItems":     items,
		"totalAmount":    mc.TotalAmount.StringFixed(2),
		"status":         string(mc.Status),
	}
}

func nonNegativeDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("negative amount")
	}
	return d, nil
}

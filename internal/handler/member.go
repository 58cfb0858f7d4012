package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"hallmeal-backend/internal/domain"
	"hallmeal-backend/internal/repository"
	"hallmeal-backend/internal/service"
)

type MemberHandler struct {
	Service *service.MemberService
	Members repository.MemberRepository
	Halls   repository.HallRepository
}

func (h MemberHandler) RegisterRoutes(r chi.Router) {
	r.Get("/members", h.list)
	r.Post("/members", h.register)
	r.Post("/members/bulk", h.registerBulk)
	r.Put("/members/{userID}", h.update)
	r.Post("/members/{userID}/status-toggle", h.toggleStatus)
	r.Post("/members/{userID}/payments", h.recordPayment)
	r.Get("/members/{userID}/payments", h.listPayments)
}

func (h MemberHandler) list(w http.ResponseWriter, r *http.Request) {
	hallID, err := resolveHallScope(r, h.Halls)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter := repository.ListMembersFilter{
		HallID: hallID,
		Type:   domain.MemberType(r.URL.Query().Get("type")),
		Search: r.URL.Query().Get("search"),
	}
	members, err := h.Members.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(members))
	for _, m := range members {
		resp = append(resp, memberJSON(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

type registerMemberRequest struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	Type              string `json:"type"`
	Code              string `json:"code"`
	Preference        string `json:"preference"`
	Department        string `json:"department"`
	Batch             string `json:"batch"`
	RoomNumber        string `json:"roomNumber"`
	Designation       string `json:"designation"`
	UseCodeAsPassword bool   `json:"useCodeAsPassword"`
}

func (req registerMemberRequest) toInput(hallID int64) (service.RegisterMemberInput, error) {
	typ := domain.MemberType(req.Type)
	if typ != domain.MemberStudent && typ != domain.MemberTeacher && typ != domain.MemberStaff {
		return service.RegisterMemberInput{}, errors.New("type must be student, teacher or staff")
	}
	if req.Name == "" || req.Code == "" {
		return service.RegisterMemberInput{}, errors.New("name and code are required")
	}
	pref := domain.MeatPreference(req.Preference)
	if pref != "" && pref != domain.PrefBeef && pref != domain.PrefMutton {
		return service.RegisterMemberInput{}, errors.New("preference must be beef or mutton")
	}
	return service.RegisterMemberInput{
		Name:       req.Name,
		Email:      req.Email,
		HallID:     hallID,
		Type:       typ,
		Code:       req.Code,
		Preference: pref,
		Details: domain.MemberDetails{
			Department:  req.Department,
			Batch:       req.Batch,
			RoomNumber:  req.RoomNumber,
			Designation: req.Designation,
		},
		UseCodeAsPassword: req.UseCodeAsPassword,
	}, nil
}

func (h MemberHandler) register(w http.ResponseWriter, r *http.Request) {
	hallID, err := resolveHallScope(r, h.Halls)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req registerMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	in, err := req.toInput(hallID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	member, password, err := h.Service.Register(r.Context(), in)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrDuplicateMember) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}
	resp := memberJSON(*member)
	resp["initialPassword"] = password
	writeJSON(w, http.StatusCreated, resp)
}

func (h MemberHandler) registerBulk(w http.ResponseWriter, r *http.Request) {
	hallID, err := resolveHallScope(r, h.Halls)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var reqs []registerMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	inputs := make([]service.RegisterMemberInput, 0, len(reqs))
	for _, req := range reqs {
		in, err := req.toInput(hallID)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.Code+": "+err.Error())
			return
		}
		inputs = append(inputs, in)
	}
	res, err := h.Service.RegisterBulk(r.Context(), inputs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"registered": res.Registered,
		"failures":   res.Failures,
	})
}

func (h MemberHandler) update(w http.ResponseWriter, r *http.Request) {
	member, ok := h.scopedMember(w, r)
	if !ok {
		return
	}
	var req struct {
		Name        string `json:"name"`
		Preference  string `json:"preference"`
		Department  string `json:"department"`
		Batch       string `json:"batch"`
		RoomNumber  string `json:"roomNumber"`
		Designation string `json:"designation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	pref := domain.MeatPreference(req.Preference)
	if pref != domain.PrefBeef && pref != domain.PrefMutton {
		writeError(w, http.StatusBadRequest, "preference must be beef or mutton")
		return
	}
	err := h.Members.Update(r.Context(), member.ID, repository.UpdateMemberParams{
		Name:       req.Name,
		Preference: pref,
		Details: domain.MemberDetails{
			Department:  req.Department,
			Batch:       req.Batch,
			RoomNumber:  req.RoomNumber,
			Designation: req.Designation,
		},
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h MemberHandler) toggleStatus(w http.ResponseWriter, r *http.Request) {
	member, ok := h.scopedMember(w, r)
	if !ok {
		return
	}
	status, err := h.Service.ToggleStatus(r.Context(), member.UserID)
	if err != nil {
		var clearance service.ClearanceError
		if errors.As(err, &clearance) {
			writeError(w, http.StatusUnprocessableEntity, clearance.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": string(status)})
}

func (h MemberHandler) recordPayment(w http.ResponseWriter, r *http.Request) {
	member, ok := h.scopedMember(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount      string `json:"amount"`
		PaymentDate string `json:"paymentDate"`
		Note        string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amount must be a positive number")
		return
	}
	date := time.Now()
	if req.PaymentDate != "" {
		d, err := time.Parse(dateLayout, req.PaymentDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid paymentDate")
			return
		}
		date = d
	}
	pay, err := h.Service.RecordPayment(r.Context(), service.RecordPaymentInput{
		UserID:      member.UserID,
		HallID:      member.HallID,
		Amount:      amount,
		PaymentDate: date,
		Note:        req.Note,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":          pay.ID,
		"code":        pay.Code,
		"amount":      pay.Amount.StringFixed(2),
		"paymentDate": pay.PaymentDate.Format(dateLayout),
		"note":        pay.Note,
	})
}

func (h MemberHandler) listPayments(w http.ResponseWriter, r *http.Request) {
	member, ok := h.scopedMember(w, r)
	if !ok {
		return
	}
	payments, err := h.Service.Payments.ListForUser(r.Context(), member.UserID, 200)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, map[string]any{
			"id":          p.ID,
			"code":        p.Code,
			"amount":      p.Amount.StringFixed(2),
			"paymentDate": p.PaymentDate.Format(dateLayout),
			"note":        p.Note,
			"createdAt":   p.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// scopedMember loads the member from the URL and enforces that it belongs to
// the requester's hall scope.
func (h MemberHandler) scopedMember(w http.ResponseWriter, r *http.Request) (*repository.MemberWithUser, bool) {
	hallID, err := resolveHallScope(r, h.Halls)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return nil, false
	}
	member, err := h.Members.GetByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "member not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if member.HallID != hallID {
		writeError(w, http.StatusForbidden, "member belongs to a different hall")
		return nil, false
	}
	return member, true
}

func memberJSON(m repository.MemberWithUser) map[string]any {
	return map[string]any{
		"id":          m.ID,
		"userId":      m.UserID,
		"hallId":      m.HallID,
		"type":        string(m.Type),
		"code":        m.Code,
		"name":        m.Name,
		"email":       m.Email,
		"status":      string(m.Status),
		"preference":  string(m.Preference),
		"balance":     m.Balance.StringFixed(2),
		"department":  m.Details.Department,
		"batch":       m.Details.Batch,
		"roomNumber":  m.Details.RoomNumber,
		"designation": m.Details.Designation,
	}
}

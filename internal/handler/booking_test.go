package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"hallmeal-backend/internal/domain"
	"hallmeal-backend/internal/server/authctx"
)

func bookingRequest(method, target, body string, role domain.UserRole) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := authctx.WithCurrentUser(req.Context(), authctx.CurrentUser{ID: 1, Role: role})
	return req.WithContext(ctx)
}

func TestBookRejectsNonMemberRoles(t *testing.T) {
	h := BookingHandler{}
	body := `{"mealType":"lunch","date":"2025-06-12","quantity":1}`

	for _, role := range []domain.UserRole{domain.RoleHallAdmin, domain.RoleSuperAdmin} {
		rec := httptest.NewRecorder()
		h.book(rec, bookingRequest(http.MethodPost, "/bookings", body, role))
		assert.Equal(t, http.StatusForbidden, rec.Code, "role %s", role)
	}
}

func TestCancelRejectsNonMemberRoles(t *testing.T) {
	h := BookingHandler{}

	rec := httptest.NewRecorder()
	h.cancel(rec, bookingRequest(http.MethodDelete, "/bookings?mealType=lunch&date=2025-06-12", "", domain.RoleHallAdmin))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBookRequiresAuth(t *testing.T) {
	h := BookingHandler{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(`{}`))
	h.book(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

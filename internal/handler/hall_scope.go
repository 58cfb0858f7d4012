package handler

import (
	"errors"
	"net/http"
	"strconv"

	"hallmeal-backend/internal/domain"
	"hallmeal-backend/internal/repository"
	"hallmeal-backend/internal/server/authctx"
)

// resolveHallScope turns the current user into the hall id every query in
// the request is bound to. Hall admins and members are pinned to their own
// hall; super admins pick one with ?hall_id= and fall back to the first
// hall.
func resolveHallScope(r *http.Request, halls repository.HallRepository) (int64, error) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		return 0, errors.New("unauthorized")
	}

	if user.Role == domain.RoleSuperAdmin {
		if q := r.URL.Query().Get("hall_id"); q != "" {
			id, err := strconv.ParseInt(q, 10, 64)
			if err != nil {
				return 0, errors.New("invalid hall_id")
			}
			return id, nil
		}
		return halls.FirstID(r.Context())
	}

	if user.HallID == nil {
		return 0, errors.New("account has no hall")
	}
	return *user.HallID, nil
}

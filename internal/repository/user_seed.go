package repository

import (
	"context"

	"hallmeal-backend/internal/domain"
)

// SeedSuperAdmin creates the initial super admin account if it does not
// exist yet.
func (r UserRepository) SeedSuperAdmin(ctx context.Context, name, email, passwordHash string) error {
	_, err := r.DB.Pool.Exec(ctx, `
		INSERT INTO users (name, email, role, status, password_hash, created_at, updated_at)
		VALUES ($1,$2,$3,'active',$4, now(), now())
		ON CONFLICT (email) DO NOTHING
	`, name, email, domain.RoleSuperAdmin, passwordHash)
	return err
}

package repository

import "context"

func (r HallRepository) SeedDefaults(ctx context.Context) error {
	halls := []string{
		"Sheikh Russel Hall",
		"Tajuddin Ahmad Hall",
		"Dinkor Hall",
	}

	for _, name := range halls {
		_, err := r.DB.Pool.Exec(ctx, `
			INSERT INTO halls (name, seat_rent, created_at, updated_at)
			VALUES ($1, 0, now(), now())
			ON CONFLICT (name) DO NOTHING
		`, name)
		if err != nil {
			return err
		}
	}
	return nil
}

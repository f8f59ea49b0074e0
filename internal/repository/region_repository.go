package repository

import (
	"context"
	"database/sql"

	"github.com/StenSOn27/online-cinema-api/internal/model"
)

// RegionRepo provides reads over the regions table. Regions are seeded by
// migration; there is no write path.
type RegionRepo struct{ DB *sql.DB }

func NewRegionRepo(db *sql.DB) *RegionRepo { return &RegionRepo{DB: db} }

// List returns all regions ordered by code.
func (r *RegionRepo) List(ctx context.Context) ([]model.Region, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, code, name FROM regions ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Region
	for rows.Next() {
		var reg model.Region
		if err := rows.Scan(&reg.ID, &reg.Code, &reg.Name); err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

// GetByCode fetches one region by its code.
func (r *RegionRepo) GetByCode(ctx context.Context, code string) (model.Region, error) {
	var reg model.Region
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, code, name FROM regions WHERE code=? LIMIT 1", code).
		Scan(&reg.ID, &reg.Code, &reg.Name)
	if err == sql.ErrNoRows {
		return model.Region{}, model.ErrRegionNotFound
	}
	return reg, err
}

package repository

import (
	"context"

	"github.com/worktime/worktime-backend/pkg/database"
)

// ActivityType is an entry of the activity catalog. Absence types carry no
// project, productivity or work type.
type ActivityType struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	IsAbsence bool   `db:"is_absence" json:"is_absence"`
}

// Project is an entry of the project catalog
type Project struct {
	ID     int64  `db:"id" json:"id"`
	Number string `db:"number" json:"number"`
	Name   string `db:"name" json:"name"`
}

// CatalogEntry is a plain id/name catalog row
type CatalogEntry struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// CatalogRepository reads the fixed lookup tables
type CatalogRepository struct {
	db *database.DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *database.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ActivityTypes lists activity types
func (r *CatalogRepository) ActivityTypes(ctx context.Context) ([]ActivityType, error) {
	items := []ActivityType{}
	err := r.db.Conn(ctx).SelectContext(ctx, &items, `SELECT id, name, is_absence FROM activity_types ORDER BY id`)
	return items, err
}

// Projects lists projects
func (r *CatalogRepository) Projects(ctx context.Context) ([]Project, error) {
	items := []Project{}
	err := r.db.Conn(ctx).SelectContext(ctx, &items, `SELECT id, number, name FROM projects ORDER BY number`)
	return items, err
}

// ProductivityTypes lists productivity types
func (r *CatalogRepository) ProductivityTypes(ctx context.Context) ([]CatalogEntry, error) {
	items := []CatalogEntry{}
	err := r.db.Conn(ctx).SelectContext(ctx, &items, `SELECT id, name FROM productivity_types ORDER BY id`)
	return items, err
}

// WorkTypes lists work type categories
func (r *CatalogRepository) WorkTypes(ctx context.Context) ([]CatalogEntry, error) {
	items := []CatalogEntry{}
	err := r.db.Conn(ctx).SelectContext(ctx, &items, `SELECT id, name FROM work_types ORDER BY id`)
	return items, err
}

// CreateProject adds a project
func (r *CatalogRepository) CreateProject(ctx context.Context, p *Project) error {
	query := `INSERT INTO projects (number, name) VALUES ($1, $2) RETURNING id`
	if err := r.db.Conn(ctx).QueryRowxContext(ctx, query, p.Number, p.Name).Scan(&p.ID); err != nil {
		return mapError(err)
	}
	return nil
}

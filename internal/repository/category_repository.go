package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/office-inventory-api/internal/models"
)

// CategoryRepository provides database access for equipment categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository constructs a CategoryRepository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns every category ordered by name.
func (r *CategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	const q = `SELECT id, name, COALESCE(description, '') AS description FROM categories ORDER BY name ASC, id ASC`
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, q); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// FindByID returns a category by id.
func (r *CategoryRepository) FindByID(ctx context.Context, id int64) (*models.Category, error) {
	const q = `SELECT id, name, COALESCE(description, '') AS description FROM categories WHERE id = $1`
	var category models.Category
	if err := r.db.GetContext(ctx, &category, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &category, nil
}

// NameExists reports whether a category other than excludeID uses name (case-insensitive).
func (r *CategoryRepository) NameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM categories WHERE LOWER(name) = LOWER($1) AND id <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, q, name, excludeID); err != nil {
		return false, fmt.Errorf("check category name: %w", err)
	}
	return exists, nil
}

// Create inserts category and sets its id.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	const q = `INSERT INTO categories (name, description) VALUES ($1, $2) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, q, category.Name, category.Description).Scan(&category.ID); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// Update stores the name and description of category.
func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	res, err := r.db.ExecContext(ctx, `UPDATE categories SET name = $2, description = $3 WHERE id = $1`, category.ID, category.Name, category.Description)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a category. Equipment in it keeps existing with no category.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireAffected(res)
}

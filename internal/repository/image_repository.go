package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/office-inventory-api/internal/models"
)

const imageColumns = `id, file_name, mime_type, md5_hash, size_bytes, width, height, created_at`

// ImageRepository stores image metadata.
type ImageRepository struct {
	db *sqlx.DB
}

// NewImageRepository constructs an ImageRepository.
func NewImageRepository(db *sqlx.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// FindByID returns an image by id.
func (r *ImageRepository) FindByID(ctx context.Context, id string) (*models.Image, error) {
	return r.findOne(ctx, `SELECT `+imageColumns+` FROM images WHERE id = $1`, id)
}

// FindByMD5 returns the image with the given content hash.
func (r *ImageRepository) FindByMD5(ctx context.Context, hash string) (*models.Image, error) {
	return r.findOne(ctx, `SELECT `+imageColumns+` FROM images WHERE md5_hash = $1`, hash)
}

func (r *ImageRepository) findOne(ctx context.Context, q string, arg interface{}) (*models.Image, error) {
	var img models.Image
	if err := r.db.GetContext(ctx, &img, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find image: %w", err)
	}
	return &img, nil
}

// Create inserts image metadata.
func (r *ImageRepository) Create(ctx context.Context, img *models.Image) error {
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT INTO images (` + imageColumns + `) VALUES (:id, :file_name, :mime_type, :md5_hash, :size_bytes, :width, :height, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, q, img); err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	return nil
}

// Delete removes image metadata.
func (r *ImageRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM images WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

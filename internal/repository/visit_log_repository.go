package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/office-inventory-api/internal/models"
)

const visitorName = `NULLIF(CONCAT_WS(' ', u.last_name, u.first_name, NULLIF(u.middle_name, '')), '')`

// VisitLogRepository stores page visits and aggregates them for reports.
type VisitLogRepository struct {
	db *sqlx.DB
}

// NewVisitLogRepository constructs a VisitLogRepository.
func NewVisitLogRepository(db *sqlx.DB) *VisitLogRepository {
	return &VisitLogRepository{db: db}
}

// Create records a visit.
func (r *VisitLogRepository) Create(ctx context.Context, path string, userID *int64) error {
	if _, err := r.db.ExecContext(ctx, `INSERT INTO visit_logs (path, user_id) VALUES ($1, $2)`, path, userID); err != nil {
		return fmt.Errorf("create visit log: %w", err)
	}
	return nil
}

// List returns visits newest first, optionally restricted to one user.
func (r *VisitLogRepository) List(ctx context.Context, filter models.VisitFilter) ([]models.VisitLog, int, error) {
	where := "1=1"
	var args []interface{}
	if filter.UserID != nil {
		where = "v.user_id = $1"
		args = append(args, *filter.UserID)
	}

	_, limit, offset := Page{Number: filter.Page, Size: filter.PageSize}.normalize(10)
	q := fmt.Sprintf(`SELECT v.id, v.path, v.user_id, %s AS user_name, v.created_at
        FROM visit_logs v LEFT JOIN users u ON u.id = v.user_id
        WHERE %s ORDER BY v.created_at DESC, v.id DESC LIMIT %d OFFSET %d`, visitorName, where, limit, offset)

	var logs []models.VisitLog
	if err := r.db.SelectContext(ctx, &logs, q, args...); err != nil {
		return nil, 0, fmt.Errorf("list visit logs: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM visit_logs v WHERE %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count visit logs: %w", err)
	}
	return logs, total, nil
}

// PageStats counts visits per path, most visited first.
func (r *VisitLogRepository) PageStats(ctx context.Context) ([]models.PageStat, error) {
	const q = `SELECT path, COUNT(*) AS visits FROM visit_logs GROUP BY path ORDER BY visits DESC, path ASC`
	var stats []models.PageStat
	if err := r.db.SelectContext(ctx, &stats, q); err != nil {
		return nil, fmt.Errorf("page stats: %w", err)
	}
	return stats, nil
}

// UserStats counts visits per user; anonymous visits form one group.
func (r *VisitLogRepository) UserStats(ctx context.Context) ([]models.UserStat, error) {
	q := fmt.Sprintf(`SELECT v.user_id, %s AS user_name, COUNT(*) AS visits
        FROM visit_logs v LEFT JOIN users u ON u.id = v.user_id
        GROUP BY v.user_id, u.last_name, u.first_name, u.middle_name
        ORDER BY visits DESC, v.user_id ASC NULLS LAST`, visitorName)
	var stats []models.UserStat
	if err := r.db.SelectContext(ctx, &stats, q); err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	return stats, nil
}

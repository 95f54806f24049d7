package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/office-inventory-api/internal/models"
)

// ServiceRecordRepository stores equipment service history.
type ServiceRecordRepository struct {
	db *sqlx.DB
}

// NewServiceRecordRepository constructs a ServiceRecordRepository.
func NewServiceRecordRepository(db *sqlx.DB) *ServiceRecordRepository {
	return &ServiceRecordRepository{db: db}
}

// Create inserts record and fills in its id and creation time.
func (r *ServiceRecordRepository) Create(ctx context.Context, record *models.ServiceRecord) error {
	const q = `INSERT INTO service_history (equipment_id, service_type, description, status, planned_date, service_date, performed_by_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, q, record.EquipmentID, record.ServiceType, record.Description, record.Status, record.PlannedDate, record.ServiceDate, record.PerformedByID)
	if err := row.Scan(&record.ID, &record.CreatedAt); err != nil {
		return fmt.Errorf("create service record: %w", err)
	}
	return nil
}

// ListByEquipment returns one page of records for an item, most recent first.
func (r *ServiceRecordRepository) ListByEquipment(ctx context.Context, equipmentID int64, page Page) ([]models.ServiceRecord, int, error) {
	_, limit, offset := page.normalize(10)
	q := fmt.Sprintf(`SELECT s.id, s.equipment_id, s.service_type, s.description, s.status, s.planned_date, s.service_date,
        s.performed_by_id, NULLIF(CONCAT_WS(' ', u.last_name, u.first_name, NULLIF(u.middle_name, '')), '') AS performed_by_name, s.created_at
        FROM service_history s LEFT JOIN users u ON u.id = s.performed_by_id
        WHERE s.equipment_id = $1
        ORDER BY COALESCE(s.service_date, s.planned_date) DESC NULLS LAST, s.id DESC LIMIT %d OFFSET %d`, limit, offset)

	var records []models.ServiceRecord
	if err := r.db.SelectContext(ctx, &records, q, equipmentID); err != nil {
		return nil, 0, fmt.Errorf("list service records: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM service_history WHERE equipment_id = $1`, equipmentID); err != nil {
		return nil, 0, fmt.Errorf("count service records: %w", err)
	}
	return records, total, nil
}

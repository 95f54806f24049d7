package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/office-inventory-api/internal/models"
	"github.com/noah-isme/office-inventory-api/internal/query"
)

const equipmentColumns = `e.id, e.name, e.inventory_number, e.purchase_date, e.cost, e.status, COALESCE(e.notes, '') AS notes,
        e.category_id, e.image_id, e.responsible_user_id, e.created_at,
        c.name AS category_name,
        NULLIF(CONCAT_WS(' ', u.last_name, u.first_name, NULLIF(u.middle_name, '')), '') AS responsible_name`

const equipmentFrom = `FROM equipment e LEFT JOIN categories c ON c.id = e.category_id LEFT JOIN users u ON u.id = e.responsible_user_id`

// planColumns maps plan fields to SQL expressions. Plans are rendered only
// through this table, so sort keys never reach the query text directly.
var planColumns = map[query.Field]string{
	query.FieldID:              "e.id",
	query.FieldName:            "e.name",
	query.FieldInventoryNumber: "e.inventory_number",
	query.FieldPurchaseDate:    "e.purchase_date",
	query.FieldStatus:          "e.status",
	query.FieldCategoryID:      "e.category_id",
	query.FieldCategoryName:    "c.name",
}

// EquipmentRepository provides database access for equipment.
type EquipmentRepository struct {
	db *sqlx.DB
}

// NewEquipmentRepository constructs an EquipmentRepository.
func NewEquipmentRepository(db *sqlx.DB) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

// List executes plan and returns one page of equipment plus the total match count.
func (r *EquipmentRepository) List(ctx context.Context, plan query.Plan, page Page) ([]models.EquipmentDetail, int, error) {
	where, orderBy, args, err := renderPlan(plan)
	if err != nil {
		return nil, 0, err
	}
	_, limit, offset := page.normalize(10)

	listQuery := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY %s LIMIT %d OFFSET %d", equipmentColumns, equipmentFrom, where, orderBy, limit, offset)
	var items []models.EquipmentDetail
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list equipment: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM equipment e WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count equipment: %w", err)
	}
	return items, total, nil
}

// renderPlan turns a plan into a WHERE clause, ORDER BY clause and bind args.
func renderPlan(plan query.Plan) (string, string, []interface{}, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	for _, p := range plan.Predicates {
		col, ok := planColumns[p.Field]
		if !ok {
			return "", "", nil, fmt.Errorf("unsupported predicate field %q", p.Field)
		}
		placeholder := fmt.Sprintf("$%d", len(args)+1)
		switch p.Op {
		case query.OpContainsFold:
			needle, _ := p.Value.(string)
			conditions = append(conditions, fmt.Sprintf(`LOWER(%s) LIKE %s ESCAPE '\'`, col, placeholder))
			args = append(args, "%"+escapeLike(strings.ToLower(needle))+"%")
		case query.OpEqual:
			conditions = append(conditions, fmt.Sprintf("%s = %s", col, placeholder))
			args = append(args, p.Value)
		case query.OpGreaterEqual:
			conditions = append(conditions, fmt.Sprintf("%s >= %s", col, placeholder))
			args = append(args, p.Value)
		case query.OpLessEqual:
			conditions = append(conditions, fmt.Sprintf("%s <= %s", col, placeholder))
			args = append(args, p.Value)
		default:
			return "", "", nil, fmt.Errorf("unsupported predicate operator %q", p.Op)
		}
	}

	terms := make([]string, 0, len(plan.OrderBy))
	for _, term := range plan.OrderBy {
		col, ok := planColumns[term.Field]
		if !ok {
			return "", "", nil, fmt.Errorf("unsupported order field %q", term.Field)
		}
		dir := "DESC"
		if term.Direction == query.Ascending {
			dir = "ASC"
		}
		terms = append(terms, col+" "+dir)
	}
	if len(terms) == 0 {
		terms = append(terms, "e.id DESC")
	}

	return strings.Join(conditions, " AND "), strings.Join(terms, ", "), args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// FindByID returns the equipment detail for id.
func (r *EquipmentRepository) FindByID(ctx context.Context, id int64) (*models.EquipmentDetail, error) {
	q := fmt.Sprintf("SELECT %s %s WHERE e.id = $1", equipmentColumns, equipmentFrom)
	var item models.EquipmentDetail
	if err := r.db.GetContext(ctx, &item, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find equipment: %w", err)
	}
	return &item, nil
}

// InventoryNumberExists reports whether another item already uses number.
func (r *EquipmentRepository) InventoryNumberExists(ctx context.Context, number string, excludeID int64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM equipment WHERE inventory_number = $1 AND id <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, q, number, excludeID); err != nil {
		return false, fmt.Errorf("check inventory number: %w", err)
	}
	return exists, nil
}

// Create inserts item and fills in its id and creation time.
func (r *EquipmentRepository) Create(ctx context.Context, item *models.Equipment) error {
	const q = `INSERT INTO equipment (name, inventory_number, purchase_date, cost, status, notes, category_id, image_id, responsible_user_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, q, item.Name, item.InventoryNumber, item.PurchaseDate, item.Cost, item.Status, item.Notes, item.CategoryID, item.ImageID, item.ResponsibleUserID)
	if err := row.Scan(&item.ID, &item.CreatedAt); err != nil {
		return fmt.Errorf("create equipment: %w", err)
	}
	return nil
}

// Update overwrites the mutable columns of item.
func (r *EquipmentRepository) Update(ctx context.Context, item *models.Equipment) error {
	const q = `UPDATE equipment SET name = $2, inventory_number = $3, purchase_date = $4, cost = $5, status = $6, notes = $7,
        category_id = $8, image_id = $9, responsible_user_id = $10 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, item.ID, item.Name, item.InventoryNumber, item.PurchaseDate, item.Cost, item.Status, item.Notes, item.CategoryID, item.ImageID, item.ResponsibleUserID)
	if err != nil {
		return fmt.Errorf("update equipment: %w", err)
	}
	return requireAffected(res)
}

// Delete removes the item; its service records cascade.
func (r *EquipmentRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM equipment WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete equipment: %w", err)
	}
	return requireAffected(res)
}

// CountByImage counts equipment referencing imageID, excluding excludeID.
func (r *EquipmentRepository) CountByImage(ctx context.Context, imageID string, excludeID int64) (int, error) {
	const q = `SELECT COUNT(*) FROM equipment WHERE image_id = $1 AND id <> $2`
	var n int
	if err := r.db.GetContext(ctx, &n, q, imageID, excludeID); err != nil {
		return 0, fmt.Errorf("count equipment by image: %w", err)
	}
	return n, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

package models

import "time"

// EquipmentStatus is the lifecycle state of an equipment item.
type EquipmentStatus string

const (
	EquipmentStatusInOperation EquipmentStatus = "InOperation"
	EquipmentStatusUnderRepair EquipmentStatus = "UnderRepair"
	EquipmentStatusWrittenOff  EquipmentStatus = "WrittenOff"
)

// EquipmentStatuses lists every valid status in display order.
var EquipmentStatuses = []EquipmentStatus{
	EquipmentStatusInOperation,
	EquipmentStatusUnderRepair,
	EquipmentStatusWrittenOff,
}

// Valid reports whether s is a known status.
func (s EquipmentStatus) Valid() bool {
	for _, candidate := range EquipmentStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Equipment is a row of the equipment table.
type Equipment struct {
	ID                int64           `db:"id" json:"id"`
	Name              string          `db:"name" json:"name"`
	InventoryNumber   string          `db:"inventory_number" json:"inventory_number"`
	PurchaseDate      time.Time       `db:"purchase_date" json:"purchase_date"`
	Cost              float64         `db:"cost" json:"cost"`
	Status            EquipmentStatus `db:"status" json:"status"`
	Notes             string          `db:"notes" json:"notes,omitempty"`
	CategoryID        *int64          `db:"category_id" json:"category_id,omitempty"`
	ImageID           *string         `db:"image_id" json:"image_id,omitempty"`
	ResponsibleUserID *int64          `db:"responsible_user_id" json:"responsible_user_id,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// EquipmentDetail is equipment joined with its category and responsible user.
type EquipmentDetail struct {
	Equipment
	CategoryName    *string `db:"category_name" json:"category_name,omitempty"`
	ResponsibleName *string `db:"responsible_name" json:"responsible_name,omitempty"`
	ImageURL        string  `db:"-" json:"image_url,omitempty"`
}

// EquipmentWithHistory bundles an equipment detail with its recent service records.
type EquipmentWithHistory struct {
	*EquipmentDetail
	ServiceRecords []ServiceRecord `json:"service_records,omitempty"`
	HistoryPage    *Pagination     `json:"service_history_pagination,omitempty"`
}

// EquipmentRequest is the create/update payload. Zero ids mean "not set".
type EquipmentRequest struct {
	Name              string          `json:"name" form:"name" validate:"required,max=100"`
	InventoryNumber   string          `json:"inventory_number" form:"inventory_number" validate:"required,max=50"`
	PurchaseDate      string          `json:"purchase_date" form:"purchase_date" validate:"required,datetime=2006-01-02"`
	Cost              float64         `json:"cost" form:"cost" validate:"required,gt=0"`
	Status            EquipmentStatus `json:"status" form:"status" validate:"required,oneof=InOperation UnderRepair WrittenOff"`
	Notes             string          `json:"notes" form:"notes" validate:"max=2000"`
	CategoryID        int64           `json:"category_id" form:"category_id" validate:"gte=0"`
	ResponsibleUserID int64           `json:"responsible_user_id" form:"responsible_user_id" validate:"gte=0"`
	RemoveImage       bool            `json:"remove_image" form:"remove_image"`
}

// ResponsibleCandidate is a user eligible to be responsible for equipment.
type ResponsibleCandidate struct {
	ID       int64    `db:"id" json:"id"`
	FullName string   `db:"full_name" json:"full_name"`
	Role     RoleName `db:"role_name" json:"role"`
}

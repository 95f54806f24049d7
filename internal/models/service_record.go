package models

import "time"

// ServiceStatus is the state of a maintenance record.
type ServiceStatus string

const (
	ServiceStatusPlanned    ServiceStatus = "Planned"
	ServiceStatusInProgress ServiceStatus = "InProgress"
	ServiceStatusCompleted  ServiceStatus = "Completed"
	ServiceStatusCancelled  ServiceStatus = "Cancelled"
)

// ServiceRecord is an entry in an equipment's service history.
type ServiceRecord struct {
	ID              int64         `db:"id" json:"id"`
	EquipmentID     int64         `db:"equipment_id" json:"equipment_id"`
	ServiceType     string        `db:"service_type" json:"service_type"`
	Description     string        `db:"description" json:"description"`
	Status          ServiceStatus `db:"status" json:"status"`
	PlannedDate     *time.Time    `db:"planned_date" json:"planned_date,omitempty"`
	ServiceDate     *time.Time    `db:"service_date" json:"service_date,omitempty"`
	PerformedByID   *int64        `db:"performed_by_id" json:"performed_by_id,omitempty"`
	PerformedByName *string       `db:"performed_by_name" json:"performed_by_name,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
}

// ServiceRecordRequest is the payload for adding a service record.
type ServiceRecordRequest struct {
	ServiceType   string        `json:"service_type" validate:"required,max=100"`
	Description   string        `json:"description" validate:"required,max=4000"`
	Status        ServiceStatus `json:"status" validate:"required,oneof=Planned InProgress Completed Cancelled"`
	PlannedDate   string        `json:"planned_date" validate:"omitempty,datetime=2006-01-02"`
	ServiceDate   string        `json:"service_date" validate:"omitempty,datetime=2006-01-02"`
	PerformedByID int64         `json:"performed_by_id" validate:"gte=0"`
}

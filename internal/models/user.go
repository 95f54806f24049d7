package models

import (
	"strings"
	"time"
)

// RoleName is the name of a permission tier assigned to a user.
type RoleName string

const (
	RoleAdmin          RoleName = "Admin"
	RoleTechSpecialist RoleName = "TechSpecialist"
	RoleUser           RoleName = "User"
	RoleGuest          RoleName = "Guest"
)

// Role is a row of the roles table.
type Role struct {
	ID          int64    `db:"id" json:"id"`
	Name        RoleName `db:"name" json:"name"`
	Description string   `db:"description" json:"description"`
}

// User represents an application user stored in the users table.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Login        string    `db:"login" json:"login"`
	PasswordHash string    `db:"password_hash" json:"-"`
	LastName     string    `db:"last_name" json:"last_name"`
	FirstName    string    `db:"first_name" json:"first_name"`
	MiddleName   string    `db:"middle_name" json:"middle_name,omitempty"`
	Position     string    `db:"position" json:"position,omitempty"`
	ContactInfo  string    `db:"contact_info" json:"contact_info,omitempty"`
	Phone        string    `db:"phone" json:"phone,omitempty"`
	RoleID       *int64    `db:"role_id" json:"role_id,omitempty"`
	Role         *RoleName `db:"role_name" json:"role,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// FullName joins last, first and middle names skipping empty parts.
func (u User) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{u.LastName, u.FirstName, u.MiddleName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// RoleValue returns the user's role or an empty RoleName when none is assigned.
func (u User) RoleValue() RoleName {
	if u.Role == nil {
		return ""
	}
	return *u.Role
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *RoleName
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CreateUserRequest is the admin payload for creating a user.
type CreateUserRequest struct {
	Login       string   `json:"login" validate:"required,min=3,max=64"`
	Password    string   `json:"password" validate:"required,password"`
	LastName    string   `json:"last_name" validate:"required,max=100"`
	FirstName   string   `json:"first_name" validate:"required,max=100"`
	MiddleName  string   `json:"middle_name" validate:"max=100"`
	Position    string   `json:"position" validate:"max=100"`
	ContactInfo string   `json:"contact_info" validate:"max=255"`
	Phone       string   `json:"phone" validate:"omitempty,phone"`
	Role        RoleName `json:"role" validate:"omitempty,oneof=Admin TechSpecialist User Guest"`
}

// UpdateUserRequest is the admin payload for updating a user.
type UpdateUserRequest struct {
	LastName    *string   `json:"last_name" validate:"omitempty,max=100"`
	FirstName   *string   `json:"first_name" validate:"omitempty,max=100"`
	MiddleName  *string   `json:"middle_name" validate:"omitempty,max=100"`
	Position    *string   `json:"position" validate:"omitempty,max=100"`
	ContactInfo *string   `json:"contact_info" validate:"omitempty,max=255"`
	Phone       *string   `json:"phone" validate:"omitempty,phone"`
	Role        *RoleName `json:"role" validate:"omitempty,oneof=Admin TechSpecialist User Guest"`
}

// UpdateProfileRequest is the self-service subset of UpdateUserRequest.
type UpdateProfileRequest struct {
	LastName    *string `json:"last_name" validate:"omitempty,max=100"`
	FirstName   *string `json:"first_name" validate:"omitempty,max=100"`
	MiddleName  *string `json:"middle_name" validate:"omitempty,max=100"`
	ContactInfo *string `json:"contact_info" validate:"omitempty,max=255"`
	Phone       *string `json:"phone" validate:"omitempty,phone"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

package models

import "time"

// VisitLog records a single page visit.
type VisitLog struct {
	ID        int64     `db:"id" json:"id"`
	Path      string    `db:"path" json:"path"`
	UserID    *int64    `db:"user_id" json:"user_id,omitempty"`
	UserName  *string   `db:"user_name" json:"user_name,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// VisitFilter narrows visit log listings.
type VisitFilter struct {
	UserID   *int64
	Page     int
	PageSize int
}

// PageStat aggregates visits per path.
type PageStat struct {
	Path   string `db:"path" json:"path"`
	Visits int    `db:"visits" json:"visits"`
}

// UserStat aggregates visits per user. A nil UserID groups anonymous visits.
type UserStat struct {
	UserID   *int64  `db:"user_id" json:"user_id,omitempty"`
	UserName *string `db:"user_name" json:"user_name,omitempty"`
	Visits   int     `db:"visits" json:"visits"`
}

package models

import "time"

// Teacher represents an instructor on the conservatory staff.
type Teacher struct {
	ID         string    `db:"id" json:"id"`
	Email      string    `db:"email" json:"email"`
	FullName   string    `db:"full_name" json:"full_name"`
	Phone      *string   `db:"phone" json:"phone,omitempty"`
	Instrument string    `db:"instrument" json:"instrument"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search     string
	Instrument string
	Active     *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

package models

import "time"

// Student represents a learner enrolled at the conservatory. Stage tracks
// the pedagogical level (1-8) used when matching lesson durations.
type Student struct {
	ID          string    `db:"id" json:"id"`
	FullName    string    `db:"full_name" json:"full_name"`
	Email       *string   `db:"email" json:"email,omitempty"`
	Phone       *string   `db:"phone" json:"phone,omitempty"`
	ParentPhone *string   `db:"parent_phone" json:"parent_phone,omitempty"`
	Instrument  string    `db:"instrument" json:"instrument"`
	Stage       int       `db:"stage" json:"stage"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	Instrument string
	Stage      *int
	Active     *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

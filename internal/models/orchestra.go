package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

// Orchestra represents an ensemble with a weekly rehearsal.
type Orchestra struct {
	ID            string         `db:"id" json:"id"`
	Name          string         `db:"name" json:"name"`
	ConductorID   string         `db:"conductor_id" json:"conductor_id"`
	RehearsalDay  timeutil.Day   `db:"rehearsal_day" json:"rehearsal_day"`
	StartTime     string         `db:"start_time" json:"start_time"`
	EndTime       string         `db:"end_time" json:"end_time"`
	Location      *string        `db:"location" json:"location,omitempty"`
	MemberIDs     pq.StringArray `db:"member_ids" json:"member_ids"`
	Active        bool           `db:"active" json:"active"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// OrchestraFilter captures list filters for orchestras.
type OrchestraFilter struct {
	Search      string
	ConductorID string
	Active      *bool
	Page        int
	PageSize    int
}

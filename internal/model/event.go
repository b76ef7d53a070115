package model

import (
	"time"

	"github.com/google/uuid"
)

// Event is a published activity of a student organisation.  It may be
// linked to exactly one reservation and the reservation points back.
type Event struct {
	ID             uuid.UUID  `json:"id"`              // events.id
	OrganizationID *uuid.UUID `json:"organization_id"` // events.organization_id (nullable)
	Title          string     `json:"title"`           // events.title
	StartsAt       time.Time  `json:"starts_at"`       // events.starts_at
	ReservationID  *uuid.UUID `json:"reservation_id"`  // events.reservation_id (nullable)
	CreatedAt      time.Time  `json:"created_at"`      // events.created_at
}

// EventFilter selects a page of events.  Page is 1-based.
type EventFilter struct {
	OrganizationID *uuid.UUID
	Page           int
	PageSize       int
}

// Normalize clamps paging to sane bounds.
func (f EventFilter) Normalize() EventFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
	return f
}

// Offset returns the row offset of the page.
func (f EventFilter) Offset() int { return (f.Page - 1) * f.PageSize }

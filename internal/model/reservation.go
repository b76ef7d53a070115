package model

import (
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes regular rooms from the auditorium, which has its own
// request form but follows the same lifecycle.
type Kind string

const (
	KindRoom       Kind = "room"
	KindAuditorium Kind = "auditorium"
)

// Reservation is a request to occupy a room for an interval of one day.
//
// Fields:
//	ID             – primary key identifier.
//	RequesterID    – identity of the user who filed the request.
//	OrganizationID – organisation on whose behalf it was filed, if any.
//	RoomID         – assigned room; nil until approval assigns one.
//	Date/Start/End – the requested slot, End strictly after Start.
//	Headcount      – expected number of people.
//	Status         – lifecycle state, see Status.
//	Catering, Security, TechSupport – operational notes for the
//	                 facilities team; not interpreted by this service.
//	EventID        – linked event, at most one.
//	Reviewed*      – approver/rejecter, timestamp and rejection comment.
//	Cancelled*     – who cancelled an approved reservation and when.
type Reservation struct {
	ID             uuid.UUID  `json:"id"`              // reservations.id
	RequesterID    string     `json:"requester_id"`    // reservations.requester_id
	OrganizationID *uuid.UUID `json:"organization_id"` // reservations.organization_id (nullable)
	RoomID         *uuid.UUID `json:"room_id"`         // reservations.room_id (nullable)
	Kind           Kind       `json:"kind"`            // reservations.kind
	Title          string     `json:"title"`           // reservations.title
	Date           Date       `json:"date"`            // reservations.date
	Start          TimeOfDay  `json:"start_time"`      // reservations.start_time
	End            TimeOfDay  `json:"end_time"`        // reservations.end_time
	Headcount      int        `json:"headcount"`       // reservations.headcount
	Status         Status     `json:"status"`          // reservations.status
	Catering       *string    `json:"catering,omitempty"`
	Security       *string    `json:"security,omitempty"`
	TechSupport    *string    `json:"tech_support,omitempty"`
	EventID        *uuid.UUID `json:"event_id"` // reservations.event_id (nullable)
	ReviewedBy     *string    `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	ReviewComment  *string    `json:"review_comment,omitempty"`
	CancelledBy    *string    `json:"cancelled_by,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Linkable reports whether the reservation is free to be linked to an
// event: it must be approved and not linked yet.
func (r Reservation) Linkable() bool {
	return r.Status == StatusApproved && r.EventID == nil
}

// Overlaps reports whether the slot [start, end) on day conflicts with the
// reservation's own slot.  Slots on different days never overlap; touching
// slots (one ends exactly when the other starts) do not overlap.
func (r Reservation) Overlaps(day Date, start, end TimeOfDay) bool {
	if !r.Date.SameDay(day) {
		return false
	}
	cs, ce := r.Start, r.End
	return (start >= cs && start < ce) ||
		(end > cs && end <= ce) ||
		(start <= cs && end >= ce)
}

// StatusChange describes a committed transition.  RoomID is only set when
// approval assigns a room.
type StatusChange struct {
	To      Status
	RoomID  *uuid.UUID
	Actor   string
	At      time.Time
	Comment *string
}

// ReservationFilter narrows dashboard listings.  Zero values mean "any".
type ReservationFilter struct {
	Status         Status
	RoomID         *uuid.UUID
	OrganizationID *uuid.UUID
	RequesterID    string
	From           *Date
	To             *Date
	Limit          int
	Offset         int
}

// Normalize applies the default and maximum page size.
func (f ReservationFilter) Normalize() ReservationFilter {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Match reports whether r passes the filter.  Used by stores that filter in
// memory; the SQL store expresses the same conditions in its WHERE clause.
func (f ReservationFilter) Match(r Reservation) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.RoomID != nil && (r.RoomID == nil || *r.RoomID != *f.RoomID) {
		return false
	}
	if f.OrganizationID != nil && (r.OrganizationID == nil || *r.OrganizationID != *f.OrganizationID) {
		return false
	}
	if f.RequesterID != "" && r.RequesterID != f.RequesterID {
		return false
	}
	if f.From != nil && r.Date.Before(f.From.Time) {
		return false
	}
	if f.To != nil && r.Date.After(f.To.EndOfDay()) {
		return false
	}
	return true
}

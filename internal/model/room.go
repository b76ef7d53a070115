package model

import "github.com/google/uuid"

// Room is a physical space that reservations can be assigned to.
//
// Fields:
//	ID            – primary key identifier.
//	Building      – building name or code.
//	Label         – room label inside the building (e.g. "A101").
//	Floor         – floor number.
//	Capacity      – maximum headcount the room hosts.
//	ReservationID – reservation currently holding the room, if any.
type Room struct {
	ID            uuid.UUID  `json:"id"`             // rooms.id
	Building      string     `json:"building"`       // rooms.building
	Label         string     `json:"label"`          // rooms.label
	Floor         int        `json:"floor"`          // rooms.floor
	Capacity      int        `json:"capacity"`       // rooms.capacity
	ReservationID *uuid.UUID `json:"reservation_id"` // rooms.reservation_id (nullable)
}

// Fits reports whether the room can host headcount people.
func (r Room) Fits(headcount int) bool { return r.Capacity >= headcount }

// HeldBy reports whether the room's back-reference points at reservationID.
func (r Room) HeldBy(reservationID uuid.UUID) bool {
	return r.ReservationID != nil && *r.ReservationID == reservationID
}

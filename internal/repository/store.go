package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Mateusbmelzi/hub-entidades/internal/model"
)

// Store is the persistence contract of the reservation core.  Every
// method is a single statement at the storage layer; multi-row atomicity
// is only available through InRoomTx.
type Store interface {
	GetRoom(ctx context.Context, id uuid.UUID) (*model.Room, error)
	ListRooms(ctx context.Context) ([]model.Room, error)
	// SetRoomHolder points the room's back-reference at reservationID.
	SetRoomHolder(ctx context.Context, roomID, reservationID uuid.UUID) error
	// ReleaseRoomHolder clears the back-reference only while it still
	// points at reservationID.  Releasing a room held by someone else is a
	// no-op, not an error.
	ReleaseRoomHolder(ctx context.Context, roomID, reservationID uuid.UUID) error

	CreateReservation(ctx context.Context, r *model.Reservation) error
	GetReservation(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	ListReservations(ctx context.Context, f model.ReservationFilter) ([]model.Reservation, error)
	// ListApprovedInRoom returns approved reservations assigned to the room
	// in source order (creation time, then id).
	ListApprovedInRoom(ctx context.Context, roomID uuid.UUID) ([]model.Reservation, error)
	// UpdateReservationStatus applies c only while the reservation is still
	// in state from, returning ErrStaleState otherwise.
	UpdateReservationStatus(ctx context.Context, id uuid.UUID, from model.Status, c model.StatusChange) error
	// SetReservationEvent moves event_id from `from` to `to` (nil clears).
	// It returns ErrStaleState when the column no longer holds `from`, so
	// two writers racing for the same reservation cannot both win.
	SetReservationEvent(ctx context.Context, reservationID uuid.UUID, from, to *uuid.UUID) error

	GetEvent(ctx context.Context, id uuid.UUID) (*model.Event, error)
	ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, int, error)
	// SetEventReservation is the compare-and-set of events.reservation_id,
	// with the same contract as SetReservationEvent.
	SetEventReservation(ctx context.Context, eventID uuid.UUID, from, to *uuid.UUID) error

	GetPhase(ctx context.Context, id uuid.UUID) (*model.Phase, error)
	InsertPhaseReservation(ctx context.Context, phaseID, reservationID uuid.UUID) error
	// DeletePhaseReservation reports whether a row was removed.
	DeletePhaseReservation(ctx context.Context, phaseID, reservationID uuid.UUID) (bool, error)
	ListPhaseReservations(ctx context.Context, phaseID uuid.UUID) ([]model.Reservation, error)

	// InRoomTx runs fn while holding an exclusive lock on the room.  Writes
	// made through the Store passed to fn are committed together when fn
	// returns nil and discarded otherwise.  Returns ErrNotFound when the
	// room does not exist.
	InRoomTx(ctx context.Context, roomID uuid.UUID, fn func(tx Store) error) error

	// Ping checks connectivity; read-only.
	Ping(ctx context.Context) error
}

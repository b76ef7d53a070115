package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Mateusbmelzi/hub-entidades/internal/model"
	"github.com/Mateusbmelzi/hub-entidades/internal/queue"
	"github.com/Mateusbmelzi/hub-entidades/internal/repository"
	"github.com/Mateusbmelzi/hub-entidades/internal/saga"
)

// NewReservation is the intake form of a reservation request.
type NewReservation struct {
	OrganizationID *uuid.UUID      `json:"organization_id"`
	RoomID         *uuid.UUID      `json:"room_id"`
	Kind           model.Kind      `json:"kind"`
	Title          string          `json:"title"`
	Date           model.Date      `json:"date"`
	Start          model.TimeOfDay `json:"start_time"`
	End            model.TimeOfDay `json:"end_time"`
	Headcount      int             `json:"headcount"`
	Catering       *string         `json:"catering"`
	Security       *string         `json:"security"`
	TechSupport    *string         `json:"tech_support"`
}

// checkSlot validates the parts of a slot every operation relies on.
// Cross-midnight slots are not representable: End must be after Start on
// the same day.
func checkSlot(date model.Date, start, end model.TimeOfDay, headcount int) *ValidationError {
	switch {
	case date.IsZero():
		return invalid(CodeInvalidInput, "date is required")
	case end <= start:
		return invalid(CodeInvalidInput, "end time must be after start time")
	case headcount <= 0:
		return invalid(CodeInvalidInput, "headcount must be a positive number")
	}
	return nil
}

// Reservations is the reservation status machine plus intake and reads.
//
//	pending  -> approved | rejected
//	approved -> cancelled
type Reservations struct {
	store     repository.Store
	validator *Validator
	opts      Options
}

// NewReservations wires the status machine.
func NewReservations(store repository.Store, validator *Validator, opts Options) *Reservations {
	return &Reservations{store: store, validator: validator, opts: opts.withDefaults()}
}

// Create files a pending reservation on behalf of actor.
func (s *Reservations) Create(ctx context.Context, actor string, in NewReservation) (*model.Reservation, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, invalid(CodeInvalidInput, "title is required")
	}
	if ve := checkSlot(in.Date, in.Start, in.End, in.Headcount); ve != nil {
		return nil, ve
	}
	switch in.Kind {
	case "":
		in.Kind = model.KindRoom
	case model.KindRoom, model.KindAuditorium:
	default:
		return nil, invalid(CodeInvalidInput, "unknown reservation kind %q", in.Kind)
	}
	if in.RoomID != nil {
		if _, err := s.store.GetRoom(ctx, *in.RoomID); err != nil {
			return nil, notFoundOr(err, "room")
		}
	}
	at := s.opts.clock()
	r := &model.Reservation{
		ID:             uuid.New(),
		RequesterID:    actor,
		OrganizationID: in.OrganizationID,
		RoomID:         in.RoomID,
		Kind:           in.Kind,
		Title:          in.Title,
		Date:           in.Date,
		Start:          in.Start,
		End:            in.End,
		Headcount:      in.Headcount,
		Status:         model.StatusPending,
		Catering:       in.Catering,
		Security:       in.Security,
		TechSupport:    in.TechSupport,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	if err := s.store.CreateReservation(ctx, r); err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}
	s.opts.notify(ctx, message(queue.MsgCreated, r, actor, at))
	return r, nil
}

// Get returns one reservation.
func (s *Reservations) Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "reservation")
	}
	return r, nil
}

// List returns reservations for the dashboards.
func (s *Reservations) List(ctx context.Context, f model.ReservationFilter) ([]model.Reservation, error) {
	out, err := s.store.ListReservations(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return out, nil
}

// SlotQuery asks whether a room can take a slot.
type SlotQuery struct {
	ReservationID *uuid.UUID      `json:"reservation_id"`
	RoomID        uuid.UUID       `json:"room_id"`
	Date          model.Date      `json:"date"`
	Start         model.TimeOfDay `json:"start_time"`
	End           model.TimeOfDay `json:"end_time"`
	Headcount     int             `json:"headcount"`
}

// SlotResult combines both checks.  OK is true when the room fits and the
// slot is free.
type SlotResult struct {
	OK       bool           `json:"ok"`
	Capacity CapacityResult `json:"capacity"`
	Conflict ConflictResult `json:"conflict"`
}

// ValidateSlot runs the capacity and conflict checks without writing, for
// forms that want to warn before submitting.
func (s *Reservations) ValidateSlot(ctx context.Context, q SlotQuery) (SlotResult, error) {
	if q.RoomID == uuid.Nil {
		return SlotResult{}, invalid(CodeInvalidInput, "room_id is required")
	}
	if ve := checkSlot(q.Date, q.Start, q.End, q.Headcount); ve != nil {
		return SlotResult{}, ve
	}
	cq := ConflictQuery{RoomID: q.RoomID, Date: q.Date, Start: q.Start, End: q.End}
	if q.ReservationID != nil {
		cq.ReservationID = *q.ReservationID
	}
	res := SlotResult{
		Capacity: s.validator.Capacity(ctx, q.RoomID, q.Headcount),
		Conflict: s.validator.Conflict(ctx, cq),
	}
	res.OK = res.Capacity.Valid && !res.Conflict.HasConflict
	return res, nil
}

// Approve moves a pending reservation to approved.  The room is roomID
// when given, otherwise the room requested at intake, if any.  With a room,
// the capacity and conflict checks and both writes (reservation.room_id
// and the room's back-reference) run under the room lock, so two approvals
// for the same room are serialised and the second sees the first.
func (s *Reservations) Approve(ctx context.Context, actor string, id uuid.UUID, roomID *uuid.UUID) (*model.Reservation, error) {
	cur, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "reservation")
	}
	if ve := requireTransition(cur, model.StatusApproved); ve != nil {
		return nil, ve
	}
	room := roomID
	if room == nil {
		room = cur.RoomID
	}
	at := s.opts.clock()
	change := model.StatusChange{To: model.StatusApproved, RoomID: room, Actor: actor, At: at}

	if room == nil {
		if err := s.store.UpdateReservationStatus(ctx, id, model.StatusPending, change); err != nil {
			return nil, transitionErr(err, "approve")
		}
	} else {
		err := s.store.InRoomTx(ctx, *room, func(tx repository.Store) error {
			r, err := tx.GetReservation(ctx, id)
			if err != nil {
				return notFoundOr(err, "reservation")
			}
			if ve := requireTransition(r, model.StatusApproved); ve != nil {
				return ve
			}
			v := s.validator.on(tx)
			if c := v.Capacity(ctx, *room, r.Headcount); !c.Valid {
				return invalid(CodeCapacity, "%s", c.Message)
			}
			c := v.Conflict(ctx, ConflictQuery{ReservationID: id, RoomID: *room, Date: r.Date, Start: r.Start, End: r.End})
			if c.HasConflict {
				return &ValidationError{Code: CodeConflict, Message: c.Message, Conflicts: c.Conflicts}
			}
			if err := tx.UpdateReservationStatus(ctx, id, model.StatusPending, change); err != nil {
				return transitionErr(err, "approve")
			}
			if err := tx.SetRoomHolder(ctx, *room, id); err != nil {
				return fmt.Errorf("assign room: %w", err)
			}
			return nil
		})
		if errors.Is(err, repository.ErrNotFound) {
			// Only the room lock reports a bare ErrNotFound; everything
			// inside the callback is already translated.
			return nil, invalid(CodeNotFound, msgRoomNotFound)
		}
		if err != nil {
			return nil, err
		}
	}

	out, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload reservation: %w", err)
	}
	s.opts.Logger.InfoContext(ctx, "reservation approved",
		slog.String("reservation_id", id.String()), slog.String("room_id", idString(room)), slog.String("actor", actor))
	s.opts.notify(ctx, message(queue.MsgApproved, out, actor, at))
	return out, nil
}

// Reject moves a pending reservation to rejected, recording why.
func (s *Reservations) Reject(ctx context.Context, actor string, id uuid.UUID, comment string) (*model.Reservation, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, invalid(CodeInvalidInput, "a rejection comment is required")
	}
	cur, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "reservation")
	}
	if ve := requireTransition(cur, model.StatusRejected); ve != nil {
		return nil, ve
	}
	at := s.opts.clock()
	change := model.StatusChange{To: model.StatusRejected, Actor: actor, At: at, Comment: &comment}
	if err := s.store.UpdateReservationStatus(ctx, id, model.StatusPending, change); err != nil {
		return nil, transitionErr(err, "reject")
	}
	out, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload reservation: %w", err)
	}
	s.opts.notify(ctx, message(queue.MsgRejected, out, actor, at))
	return out, nil
}

// Cancel moves an approved reservation to cancelled.  It releases the
// room back-reference when it still points at this reservation and
// unlinks the event, if any, on both sides.  The unlink writes are undone
// when the status change fails.
func (s *Reservations) Cancel(ctx context.Context, actor string, id uuid.UUID) (*model.Reservation, error) {
	cur, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "reservation")
	}
	if ve := requireTransition(cur, model.StatusCancelled); ve != nil {
		return nil, ve
	}
	at := s.opts.clock()
	change := model.StatusChange{To: model.StatusCancelled, Actor: actor, At: at}

	sg := saga.New()
	unlinked := false
	if cur.EventID != nil {
		ev, err := s.store.GetEvent(ctx, *cur.EventID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("load linked event: %w", err)
		case ev.ReservationID != nil && *ev.ReservationID == id:
			sg.Add(eventStep(s.store, ev.ID, ev.ReservationID, nil))
		}
		sg.Add(reservationStep(s.store, id, cur.EventID, nil))
		unlinked = true
	}
	sg.Add(saga.Step{Name: "reservation.status", Do: func(ctx context.Context) error {
		if cur.RoomID == nil {
			return s.store.UpdateReservationStatus(ctx, id, model.StatusApproved, change)
		}
		room := *cur.RoomID
		return s.store.InRoomTx(ctx, room, func(tx repository.Store) error {
			if err := tx.UpdateReservationStatus(ctx, id, model.StatusApproved, change); err != nil {
				return err
			}
			return tx.ReleaseRoomHolder(ctx, room, id)
		})
	}})
	if err := sg.Run(ctx); err != nil {
		var se *saga.StepError
		if errors.As(err, &se) && !se.Compensated() {
			s.opts.Logger.ErrorContext(ctx, "cancel left partial writes",
				slog.String("reservation_id", id.String()), slog.Any("err", err))
		}
		return nil, transitionErr(err, "cancel")
	}
	if unlinked {
		s.opts.invalidateEvents(ctx)
	}

	out, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload reservation: %w", err)
	}
	msg := message(queue.MsgCancelled, out, actor, at)
	msg.EventID = idString(cur.EventID)
	s.opts.notify(ctx, msg)
	return out, nil
}

// requireTransition checks the machine before any write.
func requireTransition(r *model.Reservation, to model.Status) *ValidationError {
	if r.Status.CanTransitionTo(to) {
		return nil
	}
	var from model.Status
	switch to {
	case model.StatusApproved, model.StatusRejected:
		from = model.StatusPending
	case model.StatusCancelled:
		from = model.StatusApproved
	}
	return invalid(CodeInvalidState, "only %s reservations can be %s (current status: %s)", from, to, r.Status)
}

// notFoundOr turns ErrNotFound into a user-facing failure and wraps
// anything else.
func notFoundOr(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return invalid(CodeNotFound, "%s not found", what)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

// transitionErr maps errors of a conditional status update.
func transitionErr(err error, op string) error {
	if ve, ok := AsValidation(err); ok {
		return ve
	}
	switch {
	case errors.Is(err, repository.ErrStaleState):
		return invalid(CodeInvalidState, "the reservation changed state while it was being processed; reload and try again")
	case errors.Is(err, repository.ErrNotFound):
		return invalid(CodeNotFound, "reservation not found")
	}
	return fmt.Errorf("%s reservation: %w", op, err)
}

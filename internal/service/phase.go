package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Mateusbmelzi/hub-entidades/internal/model"
	"github.com/Mateusbmelzi/hub-entidades/internal/queue"
	"github.com/Mateusbmelzi/hub-entidades/internal/repository"
)

// AttachResult reports what Attach did.  Skipped lists reservations that
// were already attached; each has a matching entry in Warnings.
type AttachResult struct {
	Attached []uuid.UUID `json:"attached"`
	Skipped  []uuid.UUID `json:"skipped"`
	Warnings []string    `json:"warnings"`
}

// PhaseLinks attaches approved reservations to admissions phases.
type PhaseLinks struct {
	store     repository.Store
	validator *Validator
	opts      Options
}

// NewPhaseLinks wires the phase linkage.
func NewPhaseLinks(store repository.Store, validator *Validator, opts Options) *PhaseLinks {
	return &PhaseLinks{store: store, validator: validator, opts: opts.withDefaults()}
}

// Attach links the reservations to the phase.  Every candidate is checked
// before anything is written: it must be approved and, when it holds a
// room, still fit the room and not overlap another approved reservation
// there.  Pairs that already exist are skipped with a warning.
func (p *PhaseLinks) Attach(ctx context.Context, actor string, phaseID uuid.UUID, ids []uuid.UUID) (AttachResult, error) {
	res := AttachResult{Attached: []uuid.UUID{}, Skipped: []uuid.UUID{}, Warnings: []string{}}
	if len(ids) == 0 {
		return res, invalid(CodeInvalidInput, "no reservations to attach")
	}
	if _, err := p.store.GetPhase(ctx, phaseID); err != nil {
		return res, notFoundOr(err, "phase")
	}

	seen := make(map[uuid.UUID]bool, len(ids))
	candidates := make([]*model.Reservation, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		r, err := p.store.GetReservation(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return res, invalid(CodeNotFound, "reservation %s not found", id)
		}
		if err != nil {
			return res, fmt.Errorf("load reservation %s: %w", id, err)
		}
		if ve := p.check(ctx, r); ve != nil {
			return res, ve
		}
		candidates = append(candidates, r)
	}

	at := p.opts.clock()
	for _, r := range candidates {
		err := p.store.InsertPhaseReservation(ctx, phaseID, r.ID)
		if errors.Is(err, repository.ErrDuplicate) {
			res.Skipped = append(res.Skipped, r.ID)
			res.Warnings = append(res.Warnings, fmt.Sprintf("reservation %s is already attached to this phase", r.ID))
			continue
		}
		if err != nil {
			return res, fmt.Errorf("attach reservation %s: %w", r.ID, err)
		}
		res.Attached = append(res.Attached, r.ID)
		msg := message(queue.MsgPhaseAttached, r, actor, at)
		msg.PhaseID = phaseID.String()
		p.opts.notify(ctx, msg)
	}
	return res, nil
}

// check re-runs the approval gate against the reservation's own slot, in
// case its room was reassigned after approval.
func (p *PhaseLinks) check(ctx context.Context, r *model.Reservation) *ValidationError {
	if r.Status != model.StatusApproved {
		return invalid(CodeNotApproved, "reservation %s is not approved (current status: %s)", r.ID, r.Status)
	}
	if r.RoomID == nil {
		return nil
	}
	if c := p.validator.Capacity(ctx, *r.RoomID, r.Headcount); !c.Valid {
		return invalid(CodeCapacity, "reservation %s: %s", r.ID, c.Message)
	}
	c := p.validator.Conflict(ctx, ConflictQuery{ReservationID: r.ID, RoomID: *r.RoomID, Date: r.Date, Start: r.Start, End: r.End})
	if c.HasConflict {
		return &ValidationError{
			Code:      CodeConflict,
			Message:   fmt.Sprintf("reservation %s: %s", r.ID, c.Message),
			Conflicts: c.Conflicts,
		}
	}
	return nil
}

// Detach removes exactly one join row.  The reservation is not touched.
func (p *PhaseLinks) Detach(ctx context.Context, actor string, phaseID, reservationID uuid.UUID) error {
	if _, err := p.store.GetPhase(ctx, phaseID); err != nil {
		return notFoundOr(err, "phase")
	}
	removed, err := p.store.DeletePhaseReservation(ctx, phaseID, reservationID)
	if err != nil {
		return fmt.Errorf("detach reservation: %w", err)
	}
	if !removed {
		return invalid(CodeNotFound, "the reservation is not attached to this phase")
	}
	p.opts.notify(ctx, queue.ReservationMessage{
		Type:          queue.MsgPhaseDetached,
		ReservationID: reservationID.String(),
		PhaseID:       phaseID.String(),
		Actor:         actor,
		At:            p.opts.clock().Format(timeLayout),
	})
	return nil
}

// List returns the reservations attached to the phase.
func (p *PhaseLinks) List(ctx context.Context, phaseID uuid.UUID) ([]model.Reservation, error) {
	if _, err := p.store.GetPhase(ctx, phaseID); err != nil {
		return nil, notFoundOr(err, "phase")
	}
	out, err := p.store.ListPhaseReservations(ctx, phaseID)
	if err != nil {
		return nil, fmt.Errorf("list phase reservations: %w", err)
	}
	return out, nil
}

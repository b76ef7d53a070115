package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Mateusbmelzi/hub-entidades/internal/cache"
	"github.com/Mateusbmelzi/hub-entidades/internal/model"
	"github.com/Mateusbmelzi/hub-entidades/internal/queue"
	"github.com/Mateusbmelzi/hub-entidades/internal/repository"
	"github.com/Mateusbmelzi/hub-entidades/internal/saga"
)

const (
	stepEvent       = "event.reservation_id"
	stepReservation = "reservation.event_id"
)

// eventStep moves events.reservation_id from `from` to `to`.  Both the write
// and its undo are compare-and-set, so a concurrent writer makes the step
// fail with repository.ErrStaleState instead of being overwritten.
func eventStep(store repository.Store, eventID uuid.UUID, from, to *uuid.UUID) saga.Step {
	return saga.Step{
		Name: stepEvent,
		Do:   func(ctx context.Context) error { return store.SetEventReservation(ctx, eventID, from, to) },
		Undo: func(ctx context.Context) error { return store.SetEventReservation(ctx, eventID, to, from) },
	}
}

// reservationStep moves reservations.event_id from `from` to `to`.
func reservationStep(store repository.Store, reservationID uuid.UUID, from, to *uuid.UUID) saga.Step {
	return saga.Step{
		Name: stepReservation,
		Do:   func(ctx context.Context) error { return store.SetReservationEvent(ctx, reservationID, from, to) },
		Undo: func(ctx context.Context) error { return store.SetReservationEvent(ctx, reservationID, to, from) },
	}
}

// lostRace reports the step that found its row changed by a concurrent
// writer, when every completed step was undone.
func lostRace(err error) (string, bool) {
	var se *saga.StepError
	if !errors.Is(err, repository.ErrStaleState) || !errors.As(err, &se) || !se.Compensated() {
		return "", false
	}
	return se.Step, true
}

// EventLinks maintains the symmetric event <-> reservation pairing.
type EventLinks struct {
	store repository.Store
	opts  Options
}

// NewEventLinks wires the linkage.
func NewEventLinks(store repository.Store, opts Options) *EventLinks {
	return &EventLinks{store: store, opts: opts.withDefaults()}
}

func (l *EventLinks) load(ctx context.Context, eventID, reservationID uuid.UUID) (*model.Event, *model.Reservation, error) {
	ev, err := l.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, nil, notFoundOr(err, "event")
	}
	r, err := l.store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, nil, notFoundOr(err, "reservation")
	}
	return ev, r, nil
}

// Link pairs the event with the reservation.  The reservation must be
// approved and neither side may be paired with someone else.  The event
// side is written first; when the reservation side fails the event side is
// restored.  Linking an already paired couple is a no-op.
func (l *EventLinks) Link(ctx context.Context, actor string, eventID, reservationID uuid.UUID) error {
	ev, r, err := l.load(ctx, eventID, reservationID)
	if err != nil {
		return err
	}
	eventSide := ev.ReservationID != nil && *ev.ReservationID == reservationID
	resSide := r.EventID != nil && *r.EventID == eventID
	if eventSide && resSide {
		return nil
	}
	if r.Status != model.StatusApproved {
		return invalid(CodeNotApproved, "only approved reservations can be linked to an event (current status: %s)", r.Status)
	}
	if r.EventID != nil && !resSide {
		return invalid(CodeAlreadyLinked, "the reservation is already linked to another event")
	}
	if ev.ReservationID != nil && !eventSide {
		return invalid(CodeAlreadyLinked, "the event is already linked to another reservation")
	}

	sg := saga.New(
		eventStep(l.store, eventID, ev.ReservationID, &reservationID),
		reservationStep(l.store, reservationID, r.EventID, &eventID),
	)
	if err := sg.Run(ctx); err != nil {
		switch step, ok := lostRace(err); {
		case ok && step == stepEvent:
			return invalid(CodeAlreadyLinked, "the event is already linked to another reservation")
		case ok:
			return invalid(CodeAlreadyLinked, "the reservation is already linked to another event")
		}
		l.logSagaFailure(ctx, "link", eventID, reservationID, err)
		return fmt.Errorf("link event to reservation: %w", err)
	}
	l.opts.invalidateEvents(ctx)

	at := l.opts.clock()
	r.EventID = &eventID
	l.opts.notify(ctx, message(queue.MsgEventLinked, r, actor, at))
	return nil
}

// Unlink clears both sides of the pairing.  It fails with not_linked when
// neither side points at the other.
func (l *EventLinks) Unlink(ctx context.Context, actor string, eventID, reservationID uuid.UUID) error {
	ev, r, err := l.load(ctx, eventID, reservationID)
	if err != nil {
		return err
	}
	eventSide := ev.ReservationID != nil && *ev.ReservationID == reservationID
	resSide := r.EventID != nil && *r.EventID == eventID
	if !eventSide && !resSide {
		return invalid(CodeNotLinked, "the event and the reservation are not linked")
	}

	sg := saga.New()
	if eventSide {
		sg.Add(eventStep(l.store, eventID, ev.ReservationID, nil))
	}
	if resSide {
		sg.Add(reservationStep(l.store, reservationID, r.EventID, nil))
	}
	if err := sg.Run(ctx); err != nil {
		if _, ok := lostRace(err); ok {
			return invalid(CodeNotLinked, "the event and the reservation are not linked")
		}
		l.logSagaFailure(ctx, "unlink", eventID, reservationID, err)
		return fmt.Errorf("unlink event from reservation: %w", err)
	}
	l.opts.invalidateEvents(ctx)

	at := l.opts.clock()
	msg := message(queue.MsgEventUnlinked, r, actor, at)
	msg.EventID = eventID.String()
	l.opts.notify(ctx, msg)
	return nil
}

func (l *EventLinks) logSagaFailure(ctx context.Context, op string, eventID, reservationID uuid.UUID, err error) {
	attrs := []any{
		slog.String("op", op),
		slog.String("event_id", eventID.String()),
		slog.String("reservation_id", reservationID.String()),
		slog.Any("err", err),
	}
	var se *saga.StepError
	if errors.As(err, &se) && !se.Compensated() {
		l.opts.Logger.ErrorContext(ctx, "event link left half-applied", attrs...)
		return
	}
	l.opts.Logger.WarnContext(ctx, "event link rolled back", attrs...)
}

// EventPage is one page of the public event listing.
type EventPage struct {
	Items    []model.Event `json:"items"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// ListEvents returns a page of events, served from the cache when
// possible.  Cache errors degrade to a store read.
func (l *EventLinks) ListEvents(ctx context.Context, f model.EventFilter) (EventPage, error) {
	f = f.Normalize()
	key := cache.EventKey(f)
	if b, ok, err := l.opts.Cache.Get(ctx, key); err != nil {
		l.opts.Logger.WarnContext(ctx, "event cache read failed", slog.String("key", key), slog.Any("err", err))
	} else if ok {
		var page EventPage
		if err := json.Unmarshal(b, &page); err == nil {
			return page, nil
		}
	}

	// The epoch must predate the read: a link change committed after it
	// keeps this page out of the cache.
	epoch, epochErr := l.opts.Cache.Epoch(ctx)
	items, total, err := l.store.ListEvents(ctx, f)
	if err != nil {
		return EventPage{}, fmt.Errorf("list events: %w", err)
	}
	page := EventPage{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}
	if epochErr != nil {
		l.opts.Logger.WarnContext(ctx, "event cache epoch read failed", slog.Any("err", epochErr))
		return page, nil
	}
	if b, err := json.Marshal(page); err == nil {
		if err := l.opts.Cache.Set(ctx, epoch, key, b); err != nil {
			l.opts.Logger.WarnContext(ctx, "event cache write failed", slog.String("key", key), slog.Any("err", err))
		}
	}
	return page, nil
}

package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Mateusbmelzi/hub-entidades/internal/model"
)

type phaseLink struct {
	phaseID, reservationID uuid.UUID
}

// memData holds the rows.  Its methods assume the caller holds the
// MemoryStore mutex.
type memData struct {
	rooms        map[uuid.UUID]model.Room
	reservations map[uuid.UUID]model.Reservation
	events       map[uuid.UUID]model.Event
	phases       map[uuid.UUID]model.Phase
	links        []phaseLink
	seq          map[uuid.UUID]int // insertion order of reservations
	next         int
}

// MemoryStore implements Store in process memory.  It backs the server's
// --store=memory mode and the service tests.  All operations serialize on
// one mutex; InRoomTx holds it for the whole callback and restores a
// snapshot when the callback fails.
type MemoryStore struct {
	mu   sync.Mutex
	data *memData
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memData{
		rooms:        map[uuid.UUID]model.Room{},
		reservations: map[uuid.UUID]model.Reservation{},
		events:       map[uuid.UUID]model.Event{},
		phases:       map[uuid.UUID]model.Phase{},
		seq:          map[uuid.UUID]int{},
	}}
}

// PutRoom inserts or replaces a room.  Seeding helper.
func (s *MemoryStore) PutRoom(r model.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.rooms[r.ID] = cloneRoom(r)
}

// PutEvent inserts or replaces an event.  Seeding helper.
func (s *MemoryStore) PutEvent(e model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.events[e.ID] = cloneEvent(e)
}

// PutPhase inserts or replaces a phase.  Seeding helper.
func (s *MemoryStore) PutPhase(p model.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.phases[p.ID] = p
}

// PutReservation inserts or replaces a reservation in any state.  Seeding
// helper; CreateReservation is the regular path.
func (s *MemoryStore) PutReservation(r model.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.putReservation(r)
}

// PhaseLinkCount returns the number of join rows for the pair.
func (s *MemoryStore) PhaseLinkCount(phaseID, reservationID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.data.links {
		if l.phaseID == phaseID && l.reservationID == reservationID {
			n++
		}
	}
	return n
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) GetRoom(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.GetRoom(ctx, id)
}

func (s *MemoryStore) ListRooms(ctx context.Context) ([]model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ListRooms(ctx)
}

func (s *MemoryStore) SetRoomHolder(ctx context.Context, roomID, reservationID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.SetRoomHolder(ctx, roomID, reservationID)
}

func (s *MemoryStore) ReleaseRoomHolder(ctx context.Context, roomID, reservationID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ReleaseRoomHolder(ctx, roomID, reservationID)
}

func (s *MemoryStore) CreateReservation(ctx context.Context, r *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.CreateReservation(ctx, r)
}

func (s *MemoryStore) GetReservation(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.GetReservation(ctx, id)
}

func (s *MemoryStore) ListReservations(ctx context.Context, f model.ReservationFilter) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ListReservations(ctx, f)
}

func (s *MemoryStore) ListApprovedInRoom(ctx context.Context, roomID uuid.UUID) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ListApprovedInRoom(ctx, roomID)
}

func (s *MemoryStore) UpdateReservationStatus(ctx context.Context, id uuid.UUID, from model.Status, c model.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.UpdateReservationStatus(ctx, id, from, c)
}

func (s *MemoryStore) SetReservationEvent(ctx context.Context, reservationID uuid.UUID, from, to *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.SetReservationEvent(ctx, reservationID, from, to)
}

func (s *MemoryStore) GetEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.GetEvent(ctx, id)
}

func (s *MemoryStore) ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ListEvents(ctx, f)
}

func (s *MemoryStore) SetEventReservation(ctx context.Context, eventID uuid.UUID, from, to *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.SetEventReservation(ctx, eventID, from, to)
}

func (s *MemoryStore) GetPhase(ctx context.Context, id uuid.UUID) (*model.Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.GetPhase(ctx, id)
}

func (s *MemoryStore) InsertPhaseReservation(ctx context.Context, phaseID, reservationID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.InsertPhaseReservation(ctx, phaseID, reservationID)
}

func (s *MemoryStore) DeletePhaseReservation(ctx context.Context, phaseID, reservationID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DeletePhaseReservation(ctx, phaseID, reservationID)
}

func (s *MemoryStore) ListPhaseReservations(ctx context.Context, phaseID uuid.UUID) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ListPhaseReservations(ctx, phaseID)
}

// InRoomTx holds the store mutex for the duration of fn, so every other
// caller waits; on error the pre-transaction snapshot is restored.
func (s *MemoryStore) InRoomTx(ctx context.Context, roomID uuid.UUID, fn func(tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.InRoomTx(ctx, roomID, fn)
}

// --- unlocked implementation ---

func (d *memData) Ping(context.Context) error { return nil }

func (d *memData) GetRoom(_ context.Context, id uuid.UUID) (*model.Room, error) {
	r, ok := d.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneRoom(r)
	return &out, nil
}

func (d *memData) ListRooms(context.Context) ([]model.Room, error) {
	out := make([]model.Room, 0, len(d.rooms))
	for _, r := range d.rooms {
		out = append(out, cloneRoom(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Building != out[j].Building {
			return out[i].Building < out[j].Building
		}
		return out[i].Label < out[j].Label
	})
	return out, nil
}

func (d *memData) SetRoomHolder(_ context.Context, roomID, reservationID uuid.UUID) error {
	r, ok := d.rooms[roomID]
	if !ok {
		return ErrNotFound
	}
	id := reservationID
	r.ReservationID = &id
	d.rooms[roomID] = r
	return nil
}

func (d *memData) ReleaseRoomHolder(_ context.Context, roomID, reservationID uuid.UUID) error {
	r, ok := d.rooms[roomID]
	if !ok || !r.HeldBy(reservationID) {
		return nil
	}
	r.ReservationID = nil
	d.rooms[roomID] = r
	return nil
}

func (d *memData) putReservation(r model.Reservation) {
	if _, ok := d.seq[r.ID]; !ok {
		d.next++
		d.seq[r.ID] = d.next
	}
	d.reservations[r.ID] = cloneReservation(r)
}

func (d *memData) CreateReservation(_ context.Context, r *model.Reservation) error {
	if _, ok := d.reservations[r.ID]; ok {
		return ErrDuplicate
	}
	d.putReservation(*r)
	return nil
}

func (d *memData) GetReservation(_ context.Context, id uuid.UUID) (*model.Reservation, error) {
	r, ok := d.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneReservation(r)
	return &out, nil
}

// ordered returns reservations in insertion order.
func (d *memData) ordered() []model.Reservation {
	out := make([]model.Reservation, 0, len(d.reservations))
	for _, r := range d.reservations {
		out = append(out, cloneReservation(r))
	}
	sort.Slice(out, func(i, j int) bool { return d.seq[out[i].ID] < d.seq[out[j].ID] })
	return out
}

func (d *memData) ListReservations(_ context.Context, f model.ReservationFilter) ([]model.Reservation, error) {
	f = f.Normalize()
	matched := []model.Reservation{}
	for _, r := range d.ordered() {
		if f.Match(r) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date.Time) {
			return matched[i].Date.After(matched[j].Date.Time)
		}
		return matched[i].Start < matched[j].Start
	})
	if f.Offset >= len(matched) {
		return []model.Reservation{}, nil
	}
	end := f.Offset + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[f.Offset:end], nil
}

func (d *memData) ListApprovedInRoom(_ context.Context, roomID uuid.UUID) ([]model.Reservation, error) {
	out := []model.Reservation{}
	for _, r := range d.ordered() {
		if r.Status == model.StatusApproved && r.RoomID != nil && *r.RoomID == roomID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (d *memData) UpdateReservationStatus(_ context.Context, id uuid.UUID, from model.Status, c model.StatusChange) error {
	r, ok := d.reservations[id]
	if !ok {
		return ErrNotFound
	}
	if r.Status != from {
		return ErrStaleState
	}
	at := c.At
	actor := c.Actor
	switch c.To {
	case model.StatusApproved:
		if c.RoomID != nil {
			room := *c.RoomID
			r.RoomID = &room
		}
		r.ReviewedBy, r.ReviewedAt = &actor, &at
	case model.StatusRejected:
		r.ReviewedBy, r.ReviewedAt = &actor, &at
		if c.Comment != nil {
			comment := *c.Comment
			r.ReviewComment = &comment
		}
	case model.StatusCancelled:
		r.CancelledBy, r.CancelledAt = &actor, &at
	default:
		return fmt.Errorf("unsupported target status %q", c.To)
	}
	r.Status = c.To
	r.UpdatedAt = at
	d.reservations[id] = r
	return nil
}

func (d *memData) SetReservationEvent(_ context.Context, reservationID uuid.UUID, from, to *uuid.UUID) error {
	r, ok := d.reservations[reservationID]
	if !ok {
		return ErrNotFound
	}
	if !sameID(r.EventID, from) {
		return ErrStaleState
	}
	r.EventID = cloneID(to)
	d.reservations[reservationID] = r
	return nil
}

func (d *memData) GetEvent(_ context.Context, id uuid.UUID) (*model.Event, error) {
	e, ok := d.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneEvent(e)
	return &out, nil
}

func (d *memData) ListEvents(_ context.Context, f model.EventFilter) ([]model.Event, int, error) {
	f = f.Normalize()
	matched := []model.Event{}
	for _, e := range d.events {
		if f.OrganizationID != nil && (e.OrganizationID == nil || *e.OrganizationID != *f.OrganizationID) {
			continue
		}
		matched = append(matched, cloneEvent(e))
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].StartsAt.Equal(matched[j].StartsAt) {
			return matched[i].StartsAt.Before(matched[j].StartsAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})
	total := len(matched)
	if f.Offset() >= total {
		return []model.Event{}, total, nil
	}
	end := f.Offset() + f.PageSize
	if end > total {
		end = total
	}
	return matched[f.Offset():end], total, nil
}

func (d *memData) SetEventReservation(_ context.Context, eventID uuid.UUID, from, to *uuid.UUID) error {
	e, ok := d.events[eventID]
	if !ok {
		return ErrNotFound
	}
	if !sameID(e.ReservationID, from) {
		return ErrStaleState
	}
	e.ReservationID = cloneID(to)
	d.events[eventID] = e
	return nil
}

func (d *memData) GetPhase(_ context.Context, id uuid.UUID) (*model.Phase, error) {
	p, ok := d.phases[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (d *memData) InsertPhaseReservation(_ context.Context, phaseID, reservationID uuid.UUID) error {
	for _, l := range d.links {
		if l.phaseID == phaseID && l.reservationID == reservationID {
			return ErrDuplicate
		}
	}
	d.links = append(d.links, phaseLink{phaseID: phaseID, reservationID: reservationID})
	return nil
}

func (d *memData) DeletePhaseReservation(_ context.Context, phaseID, reservationID uuid.UUID) (bool, error) {
	for i, l := range d.links {
		if l.phaseID == phaseID && l.reservationID == reservationID {
			d.links = append(d.links[:i:i], d.links[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (d *memData) ListPhaseReservations(_ context.Context, phaseID uuid.UUID) ([]model.Reservation, error) {
	out := []model.Reservation{}
	for _, l := range d.links {
		if l.phaseID != phaseID {
			continue
		}
		if r, ok := d.reservations[l.reservationID]; ok {
			out = append(out, cloneReservation(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

func (d *memData) InRoomTx(ctx context.Context, roomID uuid.UUID, fn func(tx Store) error) error {
	if _, ok := d.rooms[roomID]; !ok {
		return ErrNotFound
	}
	snap := d.snapshot()
	if err := fn(d); err != nil {
		*d = *snap
		return err
	}
	return nil
}

func (d *memData) snapshot() *memData {
	c := &memData{
		rooms:        make(map[uuid.UUID]model.Room, len(d.rooms)),
		reservations: make(map[uuid.UUID]model.Reservation, len(d.reservations)),
		events:       make(map[uuid.UUID]model.Event, len(d.events)),
		phases:       make(map[uuid.UUID]model.Phase, len(d.phases)),
		links:        append([]phaseLink(nil), d.links...),
		seq:          make(map[uuid.UUID]int, len(d.seq)),
		next:         d.next,
	}
	for k, v := range d.rooms {
		c.rooms[k] = cloneRoom(v)
	}
	for k, v := range d.reservations {
		c.reservations[k] = cloneReservation(v)
	}
	for k, v := range d.events {
		c.events[k] = cloneEvent(v)
	}
	for k, v := range d.phases {
		c.phases[k] = v
	}
	for k, v := range d.seq {
		c.seq[k] = v
	}
	return c
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneRoom(r model.Room) model.Room {
	r.ReservationID = cloneID(r.ReservationID)
	return r
}

func cloneEvent(e model.Event) model.Event {
	e.OrganizationID = cloneID(e.OrganizationID)
	e.ReservationID = cloneID(e.ReservationID)
	return e
}

func cloneReservation(r model.Reservation) model.Reservation {
	r.OrganizationID = cloneID(r.OrganizationID)
	r.RoomID = cloneID(r.RoomID)
	r.EventID = cloneID(r.EventID)
	return r
}

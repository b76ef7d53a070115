package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Mateusbmelzi/hub-entidades/internal/cache"
	"github.com/Mateusbmelzi/hub-entidades/internal/model"
	"github.com/Mateusbmelzi/hub-entidades/internal/queue"
	"github.com/Mateusbmelzi/hub-entidades/internal/repository"
)

// faultyStore injects errors into selected Store methods.  Faults also
// apply to the Store handed to InRoomTx callbacks.
type faultyStore struct {
	repository.Store
	getRoomErr             error
	listApprovedErr        error
	setReservationEventErr error
	updateStatusErr        error
}

func (f *faultyStore) GetRoom(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	if f.getRoomErr != nil {
		return nil, f.getRoomErr
	}
	return f.Store.GetRoom(ctx, id)
}

func (f *faultyStore) ListApprovedInRoom(ctx context.Context, roomID uuid.UUID) ([]model.Reservation, error) {
	if f.listApprovedErr != nil {
		return nil, f.listApprovedErr
	}
	return f.Store.ListApprovedInRoom(ctx, roomID)
}

func (f *faultyStore) SetReservationEvent(ctx context.Context, reservationID uuid.UUID, from, to *uuid.UUID) error {
	if f.setReservationEventErr != nil {
		return f.setReservationEventErr
	}
	return f.Store.SetReservationEvent(ctx, reservationID, from, to)
}

func (f *faultyStore) UpdateReservationStatus(ctx context.Context, id uuid.UUID, from model.Status, c model.StatusChange) error {
	if f.updateStatusErr != nil {
		return f.updateStatusErr
	}
	return f.Store.UpdateReservationStatus(ctx, id, from, c)
}

func (f *faultyStore) InRoomTx(ctx context.Context, roomID uuid.UUID, fn func(tx repository.Store) error) error {
	return f.Store.InRoomTx(ctx, roomID, func(tx repository.Store) error {
		inner := *f
		inner.Store = tx
		return fn(&inner)
	})
}

var (
	testNow = time.Date(2024, 4, 20, 9, 0, 0, 0, time.UTC)
	may1    = mustDate("2024-05-01")
	may2    = mustDate("2024-05-02")
)

func mustDate(s string) model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fixture struct {
	mem    *repository.MemoryStore
	store  *faultyStore
	pub    *queue.Recorder
	cache  *cache.Memory
	opts   Options
	valid  *Validator
	res    *Reservations
	events *EventLinks
	phases *PhaseLinks

	seq int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		mem:   repository.NewMemoryStore(),
		pub:   &queue.Recorder{},
		cache: cache.NewMemory(time.Minute),
	}
	f.store = &faultyStore{Store: f.mem}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.opts = Options{Publisher: f.pub, Cache: f.cache, Logger: logger, Now: func() time.Time { return testNow }}
	f.valid = NewValidator(f.store, PolicyReject, logger)
	f.res = NewReservations(f.store, f.valid, f.opts)
	f.events = NewEventLinks(f.store, f.opts)
	f.phases = NewPhaseLinks(f.store, f.valid, f.opts)
	return f
}

func (f *fixture) room(label string, capacity int) model.Room {
	r := model.Room{ID: uuid.New(), Building: "A", Label: label, Floor: 1, Capacity: capacity}
	f.mem.PutRoom(r)
	return r
}

func (f *fixture) event(title string) model.Event {
	e := model.Event{ID: uuid.New(), Title: title, StartsAt: testNow.Add(24 * time.Hour), CreatedAt: testNow}
	f.mem.PutEvent(e)
	return e
}

func (f *fixture) phase(name string) model.Phase {
	p := model.Phase{ID: uuid.New(), OrganizationID: uuid.New(), Name: name, Ordinal: 1}
	f.mem.PutPhase(p)
	return p
}

// reservation seeds a reservation directly in the given state.  room may
// be nil.
func (f *fixture) reservation(status model.Status, room *model.Room, day model.Date, start, end model.TimeOfDay, headcount int) model.Reservation {
	f.seq++
	r := model.Reservation{
		ID:          uuid.New(),
		RequesterID: "student-1",
		Kind:        model.KindRoom,
		Title:       "meeting",
		Date:        day,
		Start:       start,
		End:         end,
		Headcount:   headcount,
		Status:      status,
		CreatedAt:   testNow.Add(time.Duration(f.seq) * time.Second),
	}
	r.UpdatedAt = r.CreatedAt
	if room != nil {
		id := room.ID
		r.RoomID = &id
	}
	f.mem.PutReservation(r)
	return r
}

func (f *fixture) get(t *testing.T, id uuid.UUID) *model.Reservation {
	t.Helper()
	r, err := f.mem.GetReservation(context.Background(), id)
	require.NoError(t, err)
	return r
}

func (f *fixture) getRoom(t *testing.T, id uuid.UUID) *model.Room {
	t.Helper()
	r, err := f.mem.GetRoom(context.Background(), id)
	require.NoError(t, err)
	return r
}

func (f *fixture) getEvent(t *testing.T, id uuid.UUID) *model.Event {
	t.Helper()
	e, err := f.mem.GetEvent(context.Background(), id)
	require.NoError(t, err)
	return e
}

func requireCode(t *testing.T, err error, code Code) *ValidationError {
	t.Helper()
	require.Error(t, err)
	ve, ok := AsValidation(err)
	require.Truef(t, ok, "expected a validation error, got %v", err)
	require.Equal(t, code, ve.Code, ve.Message)
	return ve
}

func ids(rs []model.Reservation) []uuid.UUID {
	out := make([]uuid.UUID, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func ptr[T any](v T) *T { return &v }

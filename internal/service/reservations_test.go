package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mateusbmelzi/hub-entidades/internal/model"
	"github.com/Mateusbmelzi/hub-entidades/internal/queue"
)

func TestCreatePending(t *testing.T) {
	f := newFixture(t)
	room := f.room("A101", 30)
	r, err := f.res.Create(context.Background(), "student-1", NewReservation{
		RoomID:    &room.ID,
		Title:     "  Weekly meeting ",
		Date:      may1,
		Start:     model.Clock(10, 0),
		End:       model.Clock(12, 0),
		Headcount: 20,
		Catering:  ptr("coffee"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, r.Status)
	assert.Equal(t, model.KindRoom, r.Kind)
	assert.Equal(t, "Weekly meeting", r.Title)
	assert.Equal(t, "student-1", r.RequesterID)
	assert.Equal(t, testNow, r.CreatedAt)
	assert.Equal(t, "coffee", *r.Catering)

	stored := f.get(t, r.ID)
	assert.Equal(t, room.ID, *stored.RoomID)
	assert.Equal(t, []queue.MessageType{queue.MsgCreated}, f.pub.Types())
}

func TestCreateRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	base := NewReservation{Title: "x", Date: may1, Start: model.Clock(10, 0), End: model.Clock(11, 0), Headcount: 1}
	cases := map[string]func(*NewReservation){
		"no title":     func(n *NewReservation) { n.Title = " " },
		"no date":      func(n *NewReservation) { n.Date = model.Date{} },
		"end at start": func(n *NewReservation) { n.End = n.Start },
		"end before":   func(n *NewReservation) { n.Start, n.End = model.Clock(23, 0), model.Clock(1, 0) },
		"zero people":  func(n *NewReservation) { n.Headcount = 0 },
		"unknown kind": func(n *NewReservation) { n.Kind = "stadium" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := base
			mutate(&in)
			_, err := f.res.Create(context.Background(), "u", in)
			requireCode(t, err, CodeInvalidInput)
		})
	}

	in := base
	in.RoomID = ptr(uuid.New())
	_, err := f.res.Create(context.Background(), "u", in)
	ve := requireCode(t, err, CodeNotFound)
	assert.Equal(t, "room not found", ve.Message)
}

func TestApproveWithoutRoom(t *testing.T) {
	f := newFixture(t)
	r := f.reservation(model.StatusPending, nil, may1, model.Clock(10, 0), model.Clock(12, 0), 10)

	out, err := f.res.Approve(context.Background(), "admin", r.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, out.Status)
	assert.Nil(t, out.RoomID)
	assert.Equal(t, "admin", *out.ReviewedBy)
	assert.Equal(t, testNow, *out.ReviewedAt)
	assert.Equal(t, []queue.MessageType{queue.MsgApproved}, f.pub.Types())
}

func TestApproveAssignsRoom(t *testing.T) {
	f := newFixture(t)
	room := f.room("A101", 30)
	r := f.reservation(model.StatusPending, nil, may1, model.Clock(10, 0), model.Clock(12, 0), 25)

	out, err := f.res.Approve(context.Background(), "admin", r.ID, &room.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, out.Status)
	assert.Equal(t, room.ID, *out.RoomID)
	assert.True(t, f.getRoom(t, room.ID).HeldBy(r.ID))

	msgs := f.pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, room.ID.String(), msgs[0].RoomID)
	assert.Equal(t, "2024-04-20T09:00:00Z", msgs[0].At)
}

func TestApproveUsesRequestedRoom(t *testing.T) {
	f := newFixture(t)
	room := f.room("A101", 10)
	r := f.reservation(model.StatusPending, &room, may1, model.Clock(10, 0), model.Clock(12, 0), 25)

	_, err := f.res.Approve(context.Background(), "admin", r.ID, nil)
	requireCode(t, err, CodeCapacity)
	assert.Equal(t, model.StatusPending, f.get(t, r.ID).Status)
}

func TestApproveGateCapacity(t *testing.T) {
	f := newFixture(t)
	room := f.room("A101", 30)
	r := f.reservation(model.StatusPending, nil, may1, model.Clock(10, 0), model.Clock(12, 0), 40)

	_, err := f.res.Approve(context.Background(), "admin", r.ID, &room.ID)
	ve := requireCode(t, err, CodeCapacity)
	assert.Equal(t, "insufficient capacity: room holds 30, 40 required", ve.Message)

	after := f.get(t, r.ID)
	assert.Equal(t, model.StatusPending, after.Status)
	assert.Nil(t, after.RoomID)
	assert.Nil(t, f.getRoom(t, room.ID).ReservationID)
	assert.Empty(t, f.pub.Messages())
}

func TestApproveGateConflict(t *testing.T) {
	f := newFixture(t)
	room := f.room("A101", 30)
	r1 := f.reservation(model.StatusApproved, &room, may1, model.Clock(10, 0), model.Clock(12, 0), 10)
	r2 := f.reservation(model.StatusPending, nil, may1, model.Clock(11, 0), model.Clock(13, 0), 10)

	_, err := f.res.Approve(context.Background(), "admin", r2.ID, &room.ID)
	ve := requireCode(t, err, CodeConflict)
	assert.Equal(t, []uuid.UUID{r1.ID}, ids(ve.Conflicts))

	after := f.get(t, r2.ID)
	assert.Equal(t, model.StatusPending, after.Status)
	assert.Nil(t, after.RoomID)
}

func TestApproveFailsClosedOnReadError(t *testing.T) {
	f := newFixture(t)
	room := f.room("A101", 30)
	r := f.reservation(model.StatusPending, nil, may1, model.Clock(10, 0), model.Clock(12, 0), 10)
	f.store.listApprovedErr = errors.New("replica lag")

	_, err := f.res.Approve(context.Background(), "admin", r.ID, &room.ID)
	ve := requireCode(t, err, CodeConflict)
	assert.Contains(t, ve.Message, "replica lag")
	assert.Equal(t, model.StatusPending, f.get(t, r.ID).Status)
}

func TestApproveUnknownRoom(t *testing.T) {
	f := newFixture(t)
	r := f.reservation(model.StatusPending, nil, may1, model.Clock(10, 0), model.Clock(12, 0), 10)
	_, err := f.res.Approve(context.Background(), "admin", r.ID, ptr(uuid.New()))
	ve := requireCode(t, err, CodeNotFound)
	assert.Equal(t, "room not found", ve.Message)
}

func TestApproveOnlyFromPending(t *testing.T) {
	f := newFixture(t)
	for _, st := range []model.Status{model.StatusApproved, model.StatusRejected, model.StatusCancelled} {
		r := f.reservation(st, nil, may1, model.Clock(10, 0), model.Clock(12, 0), 10)
		_, err := f.res.Approve(context.Background(), "admin", r.ID, nil)
		ve := requireCode(t, err, CodeInvalidState)
		assert.Contains(t, ve.Message, "only pending reservations can be approved")
		assert.Equal(t, st, f.get(t, r.ID).Status)
	}
	_, err := f.res.Approve(context.Background(), "admin", uuid.New(), nil)
	requireCode(t, err, CodeNotFound)
}

func TestConcurrentApprovalsDoNotDoubleBook(t *testing.T) {
	f := newFixture(t)
	room := f.room("A101", 30)
	const n = 8
	pending := make([]model.Reservation, n)
	for i := range pending {
		pending[i] = f.reservation(model.StatusPending, nil, may1, model.Clock(10, 0), model.Clock(12, 0), 10)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range pending {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.res.Approve(context.Background(), "admin", pending[i].ID, &room.ID)
		}(i)
	}
	wg.Wait()

	approved := 0
	for _, err := range errs {
		if err == nil {
			approved++
			continue
		}
		requireCode(t, err, CodeConflict)
	}
	assert.Equal(t, 1, approved)

	list, err := f.mem.ListApprovedInRoom(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	r := f.reservation(model.StatusPending, nil, may1, model.Clock(10, 0), model.Clock(12, 0), 10)

	_, err := f.res.Reject(context.Background(), "admin", r.ID, "  ")
	requireCode(t, err, CodeInvalidInput)

	out, err := f.res.Reject(context.Background(), "admin", r.ID, "room under maintenance")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, out.Status)
	assert.Equal(t, "room under maintenance", *out.ReviewComment)
	assert.Equal(t, testNow, *out.ReviewedAt)

	_, err = f.res.Reject(context.Background(), "admin", r.ID, "again")
	requireCode(t, err, CodeInvalidState)

	_, err = f.res.Approve(context.Background(), "admin", r.ID, nil)
	requireCode(t, err, CodeInvalidState)
}

func TestCancelReleasesRoom(t *testing.T) {
	f := newFixture(t)
	room := f.room("A101", 30)
	r := f.reservation(model.StatusPending, nil, may1, model.Clock(10, 0), model.Clock(12, 0), 10)
	_, err := f.res.Approve(context.Background(), "admin", r.ID, &room.ID)
	require.NoError(t, err)

	out, err := f.res.Cancel(context.Background(), "admin", r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, out.Status)
	assert.Equal(t, "admin", *out.CancelledBy)
	assert.Nil(t, f.getRoom(t, room.ID).ReservationID)

	_, err = f.res.Cancel(context.Background(), "admin", r.ID)
	requireCode(t, err, CodeInvalidState)

	// The slot is free again.
	again := f.reservation(model.StatusPending, nil, may1, model.Clock(10, 0), model.Clock(12, 0), 10)
	_, err = f.res.Approve(context.Background(), "admin", again.ID, &room.ID)
	require.NoError(t, err)
}

func TestCancelKeepsOtherHolder(t *testing.T) {
	f := newFixture(t)
	room := f.room("A101", 30)
	first := f.reservation(model.StatusPending, nil, may1, model.Clock(8, 0), model.Clock(9, 0), 10)
	second := f.reservation(model.StatusPending, nil, may1, model.Clock(10, 0), model.Clock(11, 0), 10)
	_, err := f.res.Approve(context.Background(), "admin", first.ID, &room.ID)
	require.NoError(t, err)
	_, err = f.res.Approve(context.Background(), "admin", second.ID, &room.ID)
	require.NoError(t, err)

	_, err = f.res.Cancel(context.Background(), "admin", first.ID)
	require.NoError(t, err)
	assert.True(t, f.getRoom(t, room.ID).HeldBy(second.ID))
}

func TestCancelPendingIsInvalid(t *testing.T) {
	f := newFixture(t)
	r := f.reservation(model.StatusPending, nil, may1, model.Clock(10, 0), model.Clock(12, 0), 10)
	ve := requireCode(t, func() error { _, err := f.res.Cancel(context.Background(), "admin", r.ID); return err }(), CodeInvalidState)
	assert.Contains(t, ve.Message, "only approved reservations can be cancelled")
}

func TestCancelUnlinksEvent(t *testing.T) {
	f := newFixture(t)
	ev := f.event("Open day")
	r := f.reservation(model.StatusApproved, nil, may1, model.Clock(10, 0), model.Clock(12, 0), 10)
	require.NoError(t, f.events.Link(context.Background(), "org", ev.ID, r.ID))

	out, err := f.res.Cancel(context.Background(), "admin", r.ID)
	require.NoError(t, err)
	assert.Nil(t, out.EventID)
	assert.Nil(t, f.getEvent(t, ev.ID).ReservationID)

	msgs := f.pub.Messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, queue.MsgCancelled, last.Type)
	assert.Equal(t, ev.ID.String(), last.EventID)
}

func TestCancelRestoresLinkWhenStatusWriteFails(t *testing.T) {
	f := newFixture(t)
	ev := f.event("Open day")
	r := f.reservation(model.StatusApproved, nil, may1, model.Clock(10, 0), model.Clock(12, 0), 10)
	require.NoError(t, f.events.Link(context.Background(), "org", ev.ID, r.ID))
	f.store.updateStatusErr = errors.New("deadlock")

	_, err := f.res.Cancel(context.Background(), "admin", r.ID)
	require.Error(t, err)
	_, isValidation := AsValidation(err)
	assert.False(t, isValidation)

	assert.Equal(t, model.StatusApproved, f.get(t, r.ID).Status)
	assert.Equal(t, ev.ID, *f.get(t, r.ID).EventID)
	assert.Equal(t, r.ID, *f.getEvent(t, ev.ID).ReservationID)
}

func TestValidateSlot(t *testing.T) {
	f := newFixture(t)
	room := f.room("A101", 30)
	f.reservation(model.StatusApproved, &room, may1, model.Clock(10, 0), model.Clock(12, 0), 10)

	res, err := f.res.ValidateSlot(context.Background(), SlotQuery{RoomID: room.ID, Date: may1, Start: model.Clock(12, 0), End: model.Clock(13, 0), Headcount: 30})
	require.NoError(t, err)
	assert.True(t, res.OK)

	res, err = f.res.ValidateSlot(context.Background(), SlotQuery{RoomID: room.ID, Date: may1, Start: model.Clock(11, 0), End: model.Clock(13, 0), Headcount: 31})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.False(t, res.Capacity.Valid)
	assert.True(t, res.Conflict.HasConflict)

	_, err = f.res.ValidateSlot(context.Background(), SlotQuery{Date: may1, Start: model.Clock(11, 0), End: model.Clock(13, 0), Headcount: 1})
	requireCode(t, err, CodeInvalidInput)
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	room := f.room("A101", 30)
	a := f.reservation(model.StatusApproved, &room, may1, model.Clock(10, 0), model.Clock(12, 0), 10)
	f.reservation(model.StatusPending, nil, may2, model.Clock(10, 0), model.Clock(12, 0), 10)

	out, err := f.res.List(context.Background(), model.ReservationFilter{Status: model.StatusApproved})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID}, ids(out))

	out, err = f.res.List(context.Background(), model.ReservationFilter{})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].Date.SameDay(may2), "newest day first")
}

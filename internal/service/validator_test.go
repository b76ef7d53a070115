package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mateusbmelzi/hub-entidades/internal/model"
)

func TestCapacityExamples(t *testing.T) {
	f := newFixture(t)
	a101 := f.room("A101", 30)
	ctx := context.Background()

	ok := f.valid.Capacity(ctx, a101.ID, 25)
	assert.Equal(t, CapacityResult{Valid: true, Capacity: 30, Required: 25}, ok)

	tooMany := f.valid.Capacity(ctx, a101.ID, 40)
	assert.False(t, tooMany.Valid)
	assert.Equal(t, 30, tooMany.Capacity)
	assert.Equal(t, 40, tooMany.Required)
	assert.Equal(t, "insufficient capacity: room holds 30, 40 required", tooMany.Message)

	exact := f.valid.Capacity(ctx, a101.ID, 30)
	assert.True(t, exact.Valid)
}

func TestCapacityRoomNotFound(t *testing.T) {
	f := newFixture(t)
	res := f.valid.Capacity(context.Background(), uuid.New(), 10)
	assert.False(t, res.Valid)
	assert.Equal(t, 0, res.Capacity)
	assert.Equal(t, "room not found", res.Message)
	assert.False(t, res.Uncertain)
}

func TestCapacityMonotonic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, capacity := range []int{0, 1, 12, 30} {
		room := f.room(fmt.Sprintf("R%d", capacity), capacity)
		for h2 := 1; h2 <= 40; h2++ {
			if !f.valid.Capacity(ctx, room.ID, h2).Valid {
				continue
			}
			for h1 := 1; h1 < h2; h1++ {
				assert.Truef(t, f.valid.Capacity(ctx, room.ID, h1).Valid, "capacity %d: %d fits but %d does not", capacity, h2, h1)
			}
		}
	}
}

func TestCapacityFetchFailure(t *testing.T) {
	f := newFixture(t)
	room := f.room("A101", 30)
	f.store.getRoomErr = errors.New("connection reset")

	res := f.valid.Capacity(context.Background(), room.ID, 5)
	assert.False(t, res.Valid, "reject policy fails closed")
	assert.True(t, res.Uncertain)
	assert.Contains(t, res.Message, "connection reset")

	allow := NewValidator(f.store, PolicyAllow, nil)
	res = allow.Capacity(context.Background(), room.ID, 5)
	assert.True(t, res.Valid)
	assert.True(t, res.Uncertain)
	assert.Contains(t, res.Message, "connection reset")
}

func TestConflictOverlapping(t *testing.T) {
	f := newFixture(t)
	a101 := f.room("A101", 30)
	r1 := f.reservation(model.StatusApproved, &a101, may1, model.Clock(10, 0), model.Clock(12, 0), 10)

	res := f.valid.Conflict(context.Background(), ConflictQuery{
		RoomID: a101.ID, Date: may1, Start: model.Clock(11, 0), End: model.Clock(13, 0),
	})
	assert.True(t, res.HasConflict)
	assert.Equal(t, []uuid.UUID{r1.ID}, ids(res.Conflicts))
	assert.Equal(t, "the room is already booked for an overlapping time slot", res.Message)
}

func TestConflictBoundaries(t *testing.T) {
	f := newFixture(t)
	a101 := f.room("A101", 30)
	f.reservation(model.StatusApproved, &a101, may1, model.Clock(10, 0), model.Clock(12, 0), 10)

	cases := []struct {
		name       string
		day        model.Date
		start, end model.TimeOfDay
		want       bool
	}{
		{"back to back after", may1, model.Clock(12, 0), model.Clock(13, 0), false},
		{"back to back before", may1, model.Clock(9, 0), model.Clock(10, 0), false},
		{"start inside", may1, model.Clock(11, 59), model.Clock(13, 0), true},
		{"end inside", may1, model.Clock(9, 0), model.Clock(10, 1), true},
		{"contains", may1, model.Clock(9, 0), model.Clock(13, 0), true},
		{"contained", may1, model.Clock(10, 30), model.Clock(11, 0), true},
		{"identical", may1, model.Clock(10, 0), model.Clock(12, 0), true},
		{"other day", may2, model.Clock(10, 0), model.Clock(12, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := f.valid.Conflict(context.Background(), ConflictQuery{RoomID: a101.ID, Date: tc.day, Start: tc.start, End: tc.end})
			assert.Equal(t, tc.want, res.HasConflict)
			if !tc.want {
				assert.Empty(t, res.Conflicts)
				assert.Empty(t, res.Message)
			}
		})
	}
}

func TestConflictIgnoresNonApproved(t *testing.T) {
	f := newFixture(t)
	a101 := f.room("A101", 30)
	for _, st := range []model.Status{model.StatusPending, model.StatusRejected, model.StatusCancelled} {
		f.reservation(st, &a101, may1, model.Clock(10, 0), model.Clock(12, 0), 10)
	}
	other := f.room("B202", 30)
	f.reservation(model.StatusApproved, &other, may1, model.Clock(10, 0), model.Clock(12, 0), 10)

	res := f.valid.Conflict(context.Background(), ConflictQuery{RoomID: a101.ID, Date: may1, Start: model.Clock(10, 0), End: model.Clock(12, 0)})
	assert.False(t, res.HasConflict)
}

func TestConflictExcludesItself(t *testing.T) {
	f := newFixture(t)
	a101 := f.room("A101", 30)
	x := f.reservation(model.StatusApproved, &a101, may1, model.Clock(10, 0), model.Clock(12, 0), 10)

	res := f.valid.Conflict(context.Background(), ConflictQuery{
		ReservationID: x.ID, RoomID: a101.ID, Date: x.Date, Start: x.Start, End: x.End,
	})
	assert.False(t, res.HasConflict)
	assert.Empty(t, res.Conflicts)
}

func TestConflictSourceOrder(t *testing.T) {
	f := newFixture(t)
	a101 := f.room("A101", 30)
	first := f.reservation(model.StatusApproved, &a101, may1, model.Clock(13, 0), model.Clock(14, 0), 10)
	second := f.reservation(model.StatusApproved, &a101, may1, model.Clock(8, 0), model.Clock(9, 0), 10)
	f.reservation(model.StatusApproved, &a101, may1, model.Clock(15, 0), model.Clock(16, 0), 10)

	res := f.valid.Conflict(context.Background(), ConflictQuery{RoomID: a101.ID, Date: may1, Start: model.Clock(8, 30), End: model.Clock(13, 30)})
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, ids(res.Conflicts))
}

func TestConflictSymmetric(t *testing.T) {
	slots := [][2]int{{8, 10}, {9, 11}, {10, 12}, {11, 12}, {12, 14}, {8, 14}, {13, 15}}
	conflicts := func(have, query [2]int) bool {
		f := newFixture(t)
		room := f.room("A101", 30)
		f.reservation(model.StatusApproved, &room, may1, model.Clock(have[0], 0), model.Clock(have[1], 0), 1)
		return f.valid.Conflict(context.Background(), ConflictQuery{
			RoomID: room.ID, Date: may1, Start: model.Clock(query[0], 0), End: model.Clock(query[1], 0),
		}).HasConflict
	}
	for _, a := range slots {
		for _, b := range slots {
			assert.Equalf(t, conflicts(a, b), conflicts(b, a), "slots %v and %v", a, b)
		}
	}
}

func TestConflictFetchFailure(t *testing.T) {
	f := newFixture(t)
	a101 := f.room("A101", 30)
	f.store.listApprovedErr = errors.New("timeout")
	q := ConflictQuery{RoomID: a101.ID, Date: may1, Start: model.Clock(10, 0), End: model.Clock(11, 0)}

	res := f.valid.Conflict(context.Background(), q)
	assert.True(t, res.HasConflict, "reject policy treats unknown schedule as conflicting")
	assert.True(t, res.Uncertain)
	assert.Contains(t, res.Message, "timeout")
	assert.Empty(t, res.Conflicts)

	res = NewValidator(f.store, PolicyAllow, nil).Conflict(context.Background(), q)
	assert.False(t, res.HasConflict)
	assert.Contains(t, res.Message, "timeout")
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyReject, p)

	p, err = ParsePolicy(" Allow ")
	require.NoError(t, err)
	assert.Equal(t, PolicyAllow, p)

	_, err = ParsePolicy("maybe")
	assert.Error(t, err)

	assert.Equal(t, PolicyReject, NewValidator(nil, "", nil).Policy())
}

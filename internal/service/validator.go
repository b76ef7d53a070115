// Package service holds the reservation core: capacity and conflict
// validation, the reservation status machine, and the event and phase
// linkages.  Handlers call into it; it talks to storage only through
// repository.Store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Mateusbmelzi/hub-entidades/internal/model"
	"github.com/Mateusbmelzi/hub-entidades/internal/repository"
)

// UncertaintyPolicy decides what a validator reports when it cannot read
// the data it needs.
type UncertaintyPolicy string

const (
	// PolicyReject fails closed: an unreadable room is "insufficient" and
	// an unreadable schedule is "conflicting".
	PolicyReject UncertaintyPolicy = "reject"
	// PolicyAllow lets the check pass while still reporting the error.
	PolicyAllow UncertaintyPolicy = "allow"
)

// ParsePolicy accepts "reject" and "allow"; empty means reject.
func ParsePolicy(s string) (UncertaintyPolicy, error) {
	switch UncertaintyPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicyAllow:
		return PolicyAllow, nil
	}
	return "", fmt.Errorf("unknown uncertainty policy %q", s)
}

const (
	msgRoomNotFound = "room not found"
	msgConflict     = "the room is already booked for an overlapping time slot"
)

// CapacityResult is the outcome of a capacity check.  Uncertain is set when
// the room could not be read and Valid was decided by the policy.
type CapacityResult struct {
	Valid     bool   `json:"valid"`
	Capacity  int    `json:"capacity"`
	Required  int    `json:"required"`
	Message   string `json:"message,omitempty"`
	Uncertain bool   `json:"uncertain,omitempty"`
}

// ConflictQuery is the slot being checked.  ReservationID, when set, is
// left out of its own conflict set.
type ConflictQuery struct {
	ReservationID uuid.UUID
	RoomID        uuid.UUID
	Date          model.Date
	Start, End    model.TimeOfDay
}

// ConflictResult lists the approved reservations overlapping the query, in
// the order the store returned them.
type ConflictResult struct {
	HasConflict bool                `json:"has_conflict"`
	Conflicts   []model.Reservation `json:"conflicts"`
	Message     string              `json:"message,omitempty"`
	Uncertain   bool                `json:"uncertain,omitempty"`
}

// Validator runs the capacity and conflict checks.  It has no side effects.
type Validator struct {
	store  repository.Store
	policy UncertaintyPolicy
	log    *slog.Logger
}

// NewValidator returns a validator reading from store.  An empty policy
// means PolicyReject.
func NewValidator(store repository.Store, policy UncertaintyPolicy, log *slog.Logger) *Validator {
	if policy == "" {
		policy = PolicyReject
	}
	if log == nil {
		log = slog.Default()
	}
	return &Validator{store: store, policy: policy, log: log}
}

// Policy returns the configured uncertainty policy.
func (v *Validator) Policy() UncertaintyPolicy { return v.policy }

// on returns a copy reading from store, used inside room transactions.
func (v *Validator) on(store repository.Store) *Validator {
	return &Validator{store: store, policy: v.policy, log: v.log}
}

// Capacity checks that the room can host headcount people.
func (v *Validator) Capacity(ctx context.Context, roomID uuid.UUID, headcount int) CapacityResult {
	res := CapacityResult{Required: headcount}
	room, err := v.store.GetRoom(ctx, roomID)
	if errors.Is(err, repository.ErrNotFound) {
		res.Message = msgRoomNotFound
		return res
	}
	if err != nil {
		v.log.WarnContext(ctx, "capacity check could not read room",
			slog.String("room_id", roomID.String()), slog.Any("err", err), slog.String("policy", string(v.policy)))
		res.Uncertain = true
		res.Valid = v.policy == PolicyAllow
		res.Message = fmt.Sprintf("could not verify room capacity: %v", err)
		return res
	}
	res.Capacity = room.Capacity
	res.Valid = room.Fits(headcount)
	if !res.Valid {
		res.Message = fmt.Sprintf("insufficient capacity: room holds %d, %d required", room.Capacity, headcount)
	}
	return res
}

// Conflict looks for approved reservations in q.RoomID overlapping q's
// slot.  Pending, rejected and cancelled reservations never conflict.
func (v *Validator) Conflict(ctx context.Context, q ConflictQuery) ConflictResult {
	res := ConflictResult{Conflicts: []model.Reservation{}}
	approved, err := v.store.ListApprovedInRoom(ctx, q.RoomID)
	if err != nil {
		v.log.WarnContext(ctx, "conflict check could not read schedule",
			slog.String("room_id", q.RoomID.String()), slog.Any("err", err), slog.String("policy", string(v.policy)))
		res.Uncertain = true
		res.HasConflict = v.policy == PolicyReject
		res.Message = fmt.Sprintf("could not verify room availability: %v", err)
		return res
	}
	for _, r := range approved {
		if r.ID == q.ReservationID {
			continue
		}
		if r.Overlaps(q.Date, q.Start, q.End) {
			res.Conflicts = append(res.Conflicts, r)
		}
	}
	if len(res.Conflicts) > 0 {
		res.HasConflict = true
		res.Message = msgConflict
	}
	return res
}

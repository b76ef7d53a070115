package model

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// legacyStatus maps the spellings found in older rows and clients onto the
// canonical values.
var legacyStatus = map[string]Status{
	"pendente":  StatusPending,
	"aprovada":  StatusApproved,
	"aprovado":  StatusApproved,
	"rejeitada": StatusRejected,
	"rejeitado": StatusRejected,
	"cancelada": StatusCancelled,
	"cancelado": StatusCancelled,
}

// ParseStatus is the single entry point for status values coming from
// outside the process (query strings, request bodies, database rows).
func ParseStatus(s string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch Status(v) {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return Status(v), nil
	}
	if st, ok := legacyStatus[v]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown reservation status %q", s)
}

// CanTransitionTo reports whether the machine allows moving from s to next.
//
//	pending  -> approved | rejected
//	approved -> cancelled
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved:
		return next == StatusCancelled
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool { return s == StatusRejected || s == StatusCancelled }

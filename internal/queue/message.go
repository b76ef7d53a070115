// Package queue defines the reservation lifecycle messages exchanged over
// RabbitMQ, the publishers that send them and the audit consumer that
// appends them to logs/reservations.log.
package queue

// QueueName is the durable queue lifecycle messages are routed to.
const QueueName = "hub.reservations"

// MessageType names a committed change.
type MessageType string

const (
	MsgCreated       MessageType = "reservation.created"
	MsgApproved      MessageType = "reservation.approved"
	MsgRejected      MessageType = "reservation.rejected"
	MsgCancelled     MessageType = "reservation.cancelled"
	MsgEventLinked   MessageType = "event.linked"
	MsgEventUnlinked MessageType = "event.unlinked"
	MsgPhaseAttached MessageType = "phase.attached"
	MsgPhaseDetached MessageType = "phase.detached"
)

// ReservationMessage is published after a reservation changes state or
// gains or loses a link.  It carries enough for downstream consumers to
// log or notify without querying the primary database.
type ReservationMessage struct {
	Type          MessageType `json:"type"`
	ReservationID string      `json:"reservation_id"`
	RoomID        string      `json:"room_id,omitempty"`
	EventID       string      `json:"event_id,omitempty"`
	PhaseID       string      `json:"phase_id,omitempty"`
	Actor         string      `json:"actor"`
	At            string      `json:"at"` // RFC 3339, UTC
}

package model

import "github.com/google/uuid"

// Phase is an ordered step of an organisation's admissions process
// ("processo seletivo").  Reservations are attached to phases through
// the phase_reservations join table, e.g. to book interview slots.
type Phase struct {
	ID             uuid.UUID `json:"id"`              // phases.id
	OrganizationID uuid.UUID `json:"organization_id"` // phases.organization_id
	Name           string    `json:"name"`            // phases.name
	Ordinal        int       `json:"ordinal"`         // phases.ordinal
}

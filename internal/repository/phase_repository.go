package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/Mateusbmelzi/hub-entidades/internal/model"
)

// GetPhase returns the phase or ErrNotFound.
func (s *SQLStore) GetPhase(ctx context.Context, id uuid.UUID) (*model.Phase, error) {
	var p model.Phase
	err := s.q.QueryRowContext(ctx, `SELECT id, organization_id, name, ordinal FROM phases WHERE id = ?`, id.String()).
		Scan(&p.ID, &p.OrganizationID, &p.Name, &p.Ordinal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// InsertPhaseReservation adds the join row.  The (phase_id,
// reservation_id) unique key turns a repeated attach into ErrDuplicate.
func (s *SQLStore) InsertPhaseReservation(ctx context.Context, phaseID, reservationID uuid.UUID) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO phase_reservations (phase_id, reservation_id) VALUES (?, ?)`,
		phaseID.String(), reservationID.String())
	if isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

// DeletePhaseReservation removes the join row, reporting whether one existed.
func (s *SQLStore) DeletePhaseReservation(ctx context.Context, phaseID, reservationID uuid.UUID) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM phase_reservations WHERE phase_id = ? AND reservation_id = ?`,
		phaseID.String(), reservationID.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListPhaseReservations returns the reservations attached to the phase,
// ordered by day and start time.
func (s *SQLStore) ListPhaseReservations(ctx context.Context, phaseID uuid.UUID) ([]model.Reservation, error) {
	const q = `SELECT r.id, r.requester_id, r.organization_id, r.room_id, r.kind, r.title, r.date, r.start_time, r.end_time,
	                  r.headcount, r.status, r.catering, r.security, r.tech_support, r.event_id,
	                  r.reviewed_by, r.reviewed_at, r.review_comment, r.cancelled_by, r.cancelled_at, r.created_at, r.updated_at
	           FROM phase_reservations pr
	           JOIN reservations r ON r.id = pr.reservation_id
	           WHERE pr.phase_id = ?
	           ORDER BY r.date, r.start_time, r.id`
	rows, err := s.q.QueryContext(ctx, q, phaseID.String())
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

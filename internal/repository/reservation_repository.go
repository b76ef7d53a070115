package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Mateusbmelzi/hub-entidades/internal/model"
)

const reservationColumns = `id, requester_id, organization_id, room_id, kind, title, date, start_time, end_time,
	headcount, status, catering, security, tech_support, event_id,
	reviewed_by, reviewed_at, review_comment, cancelled_by, cancelled_at, created_at, updated_at`

// scanReservation reads one row selected with reservationColumns.  The
// status column goes through model.ParseStatus so rows written by older
// clients with Portuguese spellings come back canonical.
func scanReservation(row interface{ Scan(...any) error }) (*model.Reservation, error) {
	var (
		r                                model.Reservation
		org, room, event                 uuid.NullUUID
		status                           string
		catering, security, tech         sql.NullString
		reviewedBy, comment, cancelledBy sql.NullString
		reviewedAt, cancelledAt          sql.NullTime
	)
	err := row.Scan(
		&r.ID, &r.RequesterID, &org, &room, &r.Kind, &r.Title, &r.Date, &r.Start, &r.End,
		&r.Headcount, &status, &catering, &security, &tech, &event,
		&reviewedBy, &reviewedAt, &comment, &cancelledBy, &cancelledAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	st, err := model.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	r.Status = st
	r.OrganizationID = uuidPtr(org)
	r.RoomID = uuidPtr(room)
	r.EventID = uuidPtr(event)
	r.Catering = stringPtr(catering)
	r.Security = stringPtr(security)
	r.TechSupport = stringPtr(tech)
	r.ReviewedBy = stringPtr(reviewedBy)
	r.ReviewComment = stringPtr(comment)
	r.CancelledBy = stringPtr(cancelledBy)
	if reviewedAt.Valid {
		t := reviewedAt.Time.UTC()
		r.ReviewedAt = &t
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time.UTC()
		r.CancelledAt = &t
	}
	return &r, nil
}

func collectReservations(rows *sql.Rows) ([]model.Reservation, error) {
	defer rows.Close()
	out := []model.Reservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// CreateReservation inserts r.  The caller assigns ID and timestamps.
func (s *SQLStore) CreateReservation(ctx context.Context, r *model.Reservation) error {
	const q = `INSERT INTO reservations (id, requester_id, organization_id, room_id, kind, title, date, start_time, end_time,
	                                     headcount, status, catering, security, tech_support, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.q.ExecContext(ctx, q,
		r.ID.String(), r.RequesterID, uuidArg(r.OrganizationID), uuidArg(r.RoomID), string(r.Kind), r.Title,
		r.Date, r.Start, r.End, r.Headcount, string(r.Status),
		stringArg(r.Catering), stringArg(r.Security), stringArg(r.TechSupport), r.CreatedAt, r.UpdatedAt,
	)
	if isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

// GetReservation returns the reservation or ErrNotFound.
func (s *SQLStore) GetReservation(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	r, err := scanReservation(s.q.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// ListReservations returns reservations matching f, newest day first.
func (s *SQLStore) ListReservations(ctx context.Context, f model.ReservationFilter) ([]model.Reservation, error) {
	f = f.Normalize()
	where := []string{"1 = 1"}
	args := []any{}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.RoomID != nil {
		where = append(where, "room_id = ?")
		args = append(args, f.RoomID.String())
	}
	if f.OrganizationID != nil {
		where = append(where, "organization_id = ?")
		args = append(args, f.OrganizationID.String())
	}
	if f.RequesterID != "" {
		where = append(where, "requester_id = ?")
		args = append(args, f.RequesterID)
	}
	if f.From != nil {
		where = append(where, "date >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		where = append(where, "date <= ?")
		args = append(args, *f.To)
	}
	q := fmt.Sprintf(`SELECT %s FROM reservations WHERE %s ORDER BY date DESC, start_time, created_at, id LIMIT ? OFFSET ?`,
		reservationColumns, strings.Join(where, " AND "))
	args = append(args, f.Limit, f.Offset)
	rows, err := s.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

// ListApprovedInRoom returns approved reservations assigned to roomID in
// insertion order.
func (s *SQLStore) ListApprovedInRoom(ctx context.Context, roomID uuid.UUID) ([]model.Reservation, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE room_id = ? AND status = ? ORDER BY created_at, id`,
		roomID.String(), string(model.StatusApproved))
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

// UpdateReservationStatus applies c guarded by "status = from".  Approval
// with a room also assigns room_id; rejection stores the comment; every
// transition records who made it and when.
func (s *SQLStore) UpdateReservationStatus(ctx context.Context, id uuid.UUID, from model.Status, c model.StatusChange) error {
	var (
		q    string
		args []any
	)
	switch c.To {
	case model.StatusApproved:
		q = `UPDATE reservations SET status = ?, room_id = COALESCE(?, room_id), reviewed_by = ?, reviewed_at = ?, updated_at = ?
		     WHERE id = ? AND status = ?`
		args = []any{string(c.To), uuidArg(c.RoomID), c.Actor, c.At, c.At, id.String(), string(from)}
	case model.StatusRejected:
		q = `UPDATE reservations SET status = ?, reviewed_by = ?, reviewed_at = ?, review_comment = ?, updated_at = ?
		     WHERE id = ? AND status = ?`
		args = []any{string(c.To), c.Actor, c.At, stringArg(c.Comment), c.At, id.String(), string(from)}
	case model.StatusCancelled:
		q = `UPDATE reservations SET status = ?, cancelled_by = ?, cancelled_at = ?, updated_at = ?
		     WHERE id = ? AND status = ?`
		args = []any{string(c.To), c.Actor, c.At, c.At, id.String(), string(from)}
	default:
		return fmt.Errorf("unsupported target status %q", c.To)
	}
	res, err := s.q.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if err := rowsAffected(res); errors.Is(err, ErrNotFound) {
		// Distinguish a missing row from a row in another state.
		if _, getErr := s.GetReservation(ctx, id); getErr != nil {
			return getErr
		}
		return ErrStaleState
	} else if err != nil {
		return err
	}
	return nil
}

// SetReservationEvent moves reservations.event_id from `from` to `to`.
// The null-safe <=> makes a nil `from` match only an unlinked row.
func (s *SQLStore) SetReservationEvent(ctx context.Context, reservationID uuid.UUID, from, to *uuid.UUID) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE reservations SET event_id = ? WHERE id = ? AND event_id <=> ?`,
		uuidArg(to), reservationID.String(), uuidArg(from))
	if err != nil {
		return err
	}
	if err := rowsAffected(res); errors.Is(err, ErrNotFound) {
		if _, getErr := s.GetReservation(ctx, reservationID); getErr != nil {
			return getErr
		}
		return ErrStaleState
	} else if err != nil {
		return err
	}
	return nil
}

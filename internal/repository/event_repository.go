package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/Mateusbmelzi/hub-entidades/internal/model"
)

const eventColumns = `id, organization_id, title, starts_at, reservation_id, created_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	var (
		e        model.Event
		org, res uuid.NullUUID
	)
	if err := row.Scan(&e.ID, &org, &e.Title, &e.StartsAt, &res, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.OrganizationID = uuidPtr(org)
	e.ReservationID = uuidPtr(res)
	return &e, nil
}

// GetEvent returns the event or ErrNotFound.
func (s *SQLStore) GetEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	e, err := scanEvent(s.q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// ListEvents returns one page of events ordered by start time together
// with the total number of matching events.
func (s *SQLStore) ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, int, error) {
	f = f.Normalize()
	where := `1 = 1`
	args := []any{}
	if f.OrganizationID != nil {
		where = `organization_id = ?`
		args = append(args, f.OrganizationID.String())
	}
	var total int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE `+where+` ORDER BY starts_at, id LIMIT ? OFFSET ?`,
		append(args, f.PageSize, f.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

// SetEventReservation moves events.reservation_id from `from` to `to`.
func (s *SQLStore) SetEventReservation(ctx context.Context, eventID uuid.UUID, from, to *uuid.UUID) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE events SET reservation_id = ? WHERE id = ? AND reservation_id <=> ?`,
		uuidArg(to), eventID.String(), uuidArg(from))
	if err != nil {
		return err
	}
	if err := rowsAffected(res); errors.Is(err, ErrNotFound) {
		if _, getErr := s.GetEvent(ctx, eventID); getErr != nil {
			return getErr
		}
		return ErrStaleState
	} else if err != nil {
		return err
	}
	return nil
}

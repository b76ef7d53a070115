package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/Mateusbmelzi/hub-entidades/internal/model"
)

const roomColumns = `id, building, label, floor, capacity, reservation_id`

func scanRoom(row interface{ Scan(...any) error }) (*model.Room, error) {
	var (
		r      model.Room
		holder uuid.NullUUID
	)
	if err := row.Scan(&r.ID, &r.Building, &r.Label, &r.Floor, &r.Capacity, &holder); err != nil {
		return nil, err
	}
	r.ReservationID = uuidPtr(holder)
	return &r, nil
}

// GetRoom returns the room or ErrNotFound.
func (s *SQLStore) GetRoom(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	r, err := scanRoom(s.q.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// ListRooms returns every room ordered by building and label.
func (s *SQLStore) ListRooms(ctx context.Context) ([]model.Room, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY building, label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Room{}
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// SetRoomHolder points rooms.reservation_id at reservationID.
func (s *SQLStore) SetRoomHolder(ctx context.Context, roomID, reservationID uuid.UUID) error {
	res, err := s.q.ExecContext(ctx, `UPDATE rooms SET reservation_id = ? WHERE id = ?`, reservationID.String(), roomID.String())
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

// ReleaseRoomHolder clears rooms.reservation_id when it still points at
// reservationID.
func (s *SQLStore) ReleaseRoomHolder(ctx context.Context, roomID, reservationID uuid.UUID) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE rooms SET reservation_id = NULL WHERE id = ? AND reservation_id = ?`,
		roomID.String(), reservationID.String())
	return err
}

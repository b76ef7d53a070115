package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// querier is the subset of *sql.DB and *sql.Tx used by the repositories,
// so the same methods work inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements Store on MySQL.  A store bound to a transaction
// (inside InRoomTx) shares the parent's *sql.DB but routes every
// statement through the *sql.Tx.
type SQLStore struct {
	db *sql.DB
	q  querier
	tx *sql.Tx
}

// NewSQLStore returns a Store backed by db.
func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db, q: db} }

// DB exposes the underlying handle for health checks and migrations.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Ping checks the connection.
func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// InRoomTx locks the room row with SELECT ... FOR UPDATE inside a READ
// COMMITTED transaction.  A second approval for the same room blocks on
// the lock until the first commits, and then reads the committed rows, so
// the conflict check always sees the competing reservation.
func (s *SQLStore) InRoomTx(ctx context.Context, roomID uuid.UUID, fn func(tx Store) error) error {
	if s.tx != nil {
		// Already inside a transaction: take the additional row lock and
		// let the outer call own commit/rollback.
		if err := s.lockRoom(ctx, roomID); err != nil {
			return err
		}
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	bound := &SQLStore{db: s.db, q: tx, tx: tx}
	if err := bound.lockRoom(ctx, roomID); err != nil {
		return err
	}
	if err := fn(bound); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

func (s *SQLStore) lockRoom(ctx context.Context, roomID uuid.UUID) error {
	var id string
	err := s.q.QueryRowContext(ctx, `SELECT id FROM rooms WHERE id = ? FOR UPDATE`, roomID.String()).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock room: %w", err)
	}
	return nil
}

// isDuplicateKey reports whether err is MySQL's ER_DUP_ENTRY.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// uuidArg converts an optional id into a driver argument (NULL when nil).
func uuidArg(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

// uuidPtr converts a scanned nullable id into an optional id.
func uuidPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func stringArg(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// rowsAffected returns ErrNotFound when an UPDATE/DELETE touched nothing.
func rowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

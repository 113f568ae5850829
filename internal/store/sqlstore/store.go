package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"queuesmart/backend/internal/store"
)

// Store implements the repositories on top of bun for both the Postgres and
// the SQLite dialect.
type Store struct {
	db *bun.DB
}

func New(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) InStaffTransaction(ctx context.Context, staffIDs []string, fn func(ctx context.Context, tx store.AppointmentTx) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, id := range lockOrder(staffIDs) {
			if err := s.lockStaff(ctx, tx, id); err != nil {
				return err
			}
		}
		return fn(ctx, appointmentTx{tx: tx})
	})
}

// lockStaff serializes transactions touching one staff member's queue and
// slots. SQLite runs on a single connection and needs no extra lock.
func (s *Store) lockStaff(ctx context.Context, tx bun.Tx, staffID string) error {
	if s.db.Dialect().Name() != dialect.PG {
		return nil
	}
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", "staff:"+staffID).Exec(ctx)
	return err
}

// lockOrder dedupes and sorts so concurrent transactions always acquire
// advisory locks in the same order.
func lockOrder(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func mapReadError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapWriteError turns unique and exclusion violations into store.ErrConflict
// for either driver.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23P01":
			if strings.HasSuffix(pgErr.ConstraintName, "_pkey") {
				return fmt.Errorf("%w: %s", store.ErrDuplicateID, pgErr.ConstraintName)
			}
			return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
		}
		return err
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return fmt.Errorf("%w: %s", store.ErrDuplicateID, liteErr.Error())
		}
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return fmt.Errorf("%w: %s", store.ErrConflict, liteErr.Error())
		}
		if code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE") {
			return fmt.Errorf("%w: %s", store.ErrConflict, liteErr.Error())
		}
	}
	return err
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// withTx runs fn inside a new transaction and commits it.
//
// The store's transaction slot must be idle on entry; it is marked active
// for the duration of fn and returned to idle on every exit path. Any
// failure before the commit, including a panic in fn, rolls back. A failed
// commit leaves nothing to roll back: pgx closes the transaction either way.
func (s *RecordStore[E, PK]) withTx(ctx context.Context, op string, fn func(pgx.Tx) error) error {
	if s.tx != txIdle {
		return &Error{Op: op, Kind: KindStore, Err: ErrTxActive}
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	s.tx = txActive

	committed := false
	defer func() {
		s.tx = txIdle
		if committed {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger(ctx).Error("failed to rollback transaction", "op", op, "error", rbErr)
			return
		}
		s.logger(ctx).Warn("transaction rolled back", "op", op)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	committed = true
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger(ctx).Debug("transaction committed", "op", op)
	return nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/recordstore/internal/logging"
	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Conn is the single connection a RecordStore owns.
// Satisfied by *pgx.Conn and pgxmock.PgxConnIface.
type Conn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close(ctx context.Context) error
}

// querier is what reads and writes need. Satisfied by Conn and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Dialer opens a connection for a connection profile (a PostgreSQL DSN).
type Dialer func(ctx context.Context, dsn string) (Conn, error)

// Policy selects how Create and ClearAll report failures.
type Policy int

const (
	// PolicyPropagate returns every failure to the caller.
	PolicyPropagate Policy = iota
	// PolicyLegacy makes Create and ClearAll roll back, log and swallow
	// failures, returning no error. Update, Delete and SaveAll still
	// propagate. Kept for parity with the historical data layer.
	PolicyLegacy
)

// ParsePolicy converts "propagate" or "legacy" to a Policy. Case is ignored.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "propagate":
		return PolicyPropagate, nil
	case "legacy":
		return PolicyLegacy, nil
	default:
		return PolicyPropagate, fmt.Errorf("unknown failure policy %q", s)
	}
}

// Options tunes a RecordStore.
type Options struct {
	Policy Policy

	// UseCopy lets SaveAll write batches with the COPY protocol when the
	// mapping does not generate keys.
	UseCopy bool

	// Dial overrides how Open connects. Defaults to Dial.
	Dial Dialer
}

type txState int

const (
	txIdle txState = iota
	txActive
)

func (s txState) String() string {
	if s == txActive {
		return "active"
	}
	return "idle"
}

// RecordStore is a transactional CRUD engine for one entity type.
type RecordStore[E any, PK comparable] struct {
	conn    Conn
	mapping Mapping[E, PK]
	opts    Options
	tx      txState
}

// Dial connects to PostgreSQL and verifies the connection with a ping.
func Dial(ctx context.Context, dsn string) (Conn, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("ping: %w", err)
	}

	return conn, nil
}

// Open dials a dedicated connection for dsn and binds it to mapping.
// Any dial failure is reported as KindConnectionInit.
func Open[E any, PK comparable](ctx context.Context, dsn string, mapping Mapping[E, PK], opts Options) (*RecordStore[E, PK], error) {
	op := mapping.Table + ".open"

	if err := mapping.Validate(); err != nil {
		return nil, &Error{Op: op, Kind: KindConnectionInit, Err: err}
	}

	dial := opts.Dial
	if dial == nil {
		dial = Dial
	}

	conn, err := dial(ctx, dsn)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindConnectionInit, Err: err}
	}

	logging.FromContext(ctx).Debug("store connected", "table", mapping.Table)
	return New(conn, mapping, opts)
}

// New binds an already open connection to mapping. The store takes
// ownership of conn and closes it on Disconnect.
func New[E any, PK comparable](conn Conn, mapping Mapping[E, PK], opts Options) (*RecordStore[E, PK], error) {
	op := mapping.Table + ".open"

	if conn == nil {
		return nil, &Error{Op: op, Kind: KindConnectionInit, Err: errors.New("nil connection")}
	}
	if err := mapping.Validate(); err != nil {
		return nil, &Error{Op: op, Kind: KindConnectionInit, Err: err}
	}

	return &RecordStore[E, PK]{
		conn:    conn,
		mapping: mapping,
		opts:    opts,
	}, nil
}

// Mapping returns the mapping the store was built with.
func (s *RecordStore[E, PK]) Mapping() Mapping[E, PK] {
	return s.mapping
}

// Create inserts e in its own transaction. Generated keys are written back
// into e.
//
// Under PolicyLegacy a failure is rolled back, logged and swallowed.
func (s *RecordStore[E, PK]) Create(ctx context.Context, e *E) error {
	op := s.op("create")
	if err := s.ensureOpen(op); err != nil {
		return err
	}

	err := s.withTx(ctx, op, func(tx pgx.Tx) error {
		return s.insert(ctx, tx, e)
	})
	if err != nil {
		err = wrap(op, err)
		if s.opts.Policy == PolicyLegacy {
			s.logger(ctx).Warn("create failed, ignored by legacy policy", "error", err)
			return nil
		}
		return err
	}

	return nil
}

// Read fetches the entity stored under pk. It always goes to the database,
// so the result reflects the committed state. Returns nil, nil when absent.
func (s *RecordStore[E, PK]) Read(ctx context.Context, pk PK) (*E, error) {
	op := s.op("read")
	if err := s.ensureOpen(op); err != nil {
		return nil, err
	}

	e, err := s.find(ctx, s.conn, pk)
	if err != nil {
		return nil, wrap(op, err)
	}
	return e, nil
}

// Update merges e into the store in its own transaction.
//
// For versioned mappings the row is only written when its stored version
// equals e's version; a mismatch yields KindConcurrencyConflict and nothing
// is written. When no row exists under e's key, e is inserted. On success
// e's version is advanced to the stored one.
func (s *RecordStore[E, PK]) Update(ctx context.Context, e *E) error {
	op := s.op("update")
	if err := s.ensureOpen(op); err != nil {
		return err
	}

	var next int64
	err := s.withTx(ctx, op, func(tx pgx.Tx) error {
		var err error
		next, err = s.merge(ctx, tx, e)
		return err
	})
	if err != nil {
		return wrap(op, err)
	}

	if s.mapping.Versioned() {
		s.mapping.SetVersion(e, next)
	}
	return nil
}

// Delete removes the entity stored under pk. Absence is a no-op.
//
// The entity is read first; for versioned mappings the delete only applies
// to the version just read, so a concurrent write yields
// KindConcurrencyConflict.
func (s *RecordStore[E, PK]) Delete(ctx context.Context, pk PK) error {
	op := s.op("delete")
	if err := s.ensureOpen(op); err != nil {
		return err
	}

	e, err := s.find(ctx, s.conn, pk)
	if err != nil {
		return wrap(op, err)
	}
	if e == nil {
		return nil
	}

	err = s.withTx(ctx, op, func(tx pgx.Tx) error {
		return s.remove(ctx, tx, e)
	})
	return wrap(op, err)
}

// Count returns the number of rows in the mapped table.
func (s *RecordStore[E, PK]) Count(ctx context.Context) (int64, error) {
	op := s.op("count")
	if err := s.ensureOpen(op); err != nil {
		return 0, err
	}

	query, args, err := squirrel.Select("count(*)").
		From(s.mapping.Table).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, wrap(op, fmt.Errorf("building count query: %w", err))
	}

	var n int64
	if err := s.conn.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, wrap(op, fmt.Errorf("counting rows: %w", err))
	}
	return n, nil
}

// Search returns the single entity whose property prop equals value.
// The query always targets the store's own table. Fails with ErrNoResult
// when nothing matches and ErrNotUnique when several rows match.
func (s *RecordStore[E, PK]) Search(ctx context.Context, prop string, value any) (*E, error) {
	op := s.op("search")
	if err := s.ensureOpen(op); err != nil {
		return nil, err
	}

	if !s.mapping.HasColumn(prop) {
		return nil, wrap(op, fmt.Errorf("%w: %q", ErrUnknownProperty, prop))
	}

	query, args, err := s.selectBuilder().
		Where(squirrel.Eq{prop: value}).
		Limit(2).
		ToSql()
	if err != nil {
		return nil, wrap(op, fmt.Errorf("building search query: %w", err))
	}

	var found []E
	if err := pgxscan.Select(ctx, s.conn, &found, query, args...); err != nil {
		return nil, wrap(op, fmt.Errorf("scanning search result: %w", err))
	}

	switch len(found) {
	case 0:
		return nil, wrap(op, fmt.Errorf("%w for %s = %v", ErrNoResult, prop, value))
	case 1:
		return &found[0], nil
	default:
		return nil, wrap(op, fmt.Errorf("%w for %s = %v", ErrNotUnique, prop, value))
	}
}

// List returns every entity in the table, ordered by the mapping's OrderBy.
// The result is never nil.
func (s *RecordStore[E, PK]) List(ctx context.Context) ([]E, error) {
	op := s.op("list")
	if err := s.ensureOpen(op); err != nil {
		return nil, err
	}

	sb := s.selectBuilder()
	if len(s.mapping.OrderBy) > 0 {
		sb = sb.OrderBy(s.mapping.OrderBy...)
	}

	query, args, err := sb.ToSql()
	if err != nil {
		return nil, wrap(op, fmt.Errorf("building list query: %w", err))
	}

	items := make([]E, 0)
	if err := pgxscan.Select(ctx, s.conn, &items, query, args...); err != nil {
		return nil, wrap(op, fmt.Errorf("scanning list: %w", err))
	}
	if items == nil {
		items = make([]E, 0)
	}
	return items, nil
}

// ClearAll deletes every row of the table in one transaction and returns
// the number of rows removed.
//
// Under PolicyLegacy a failure is rolled back, logged and reported as 0
// rows with no error.
func (s *RecordStore[E, PK]) ClearAll(ctx context.Context) (int64, error) {
	op := s.op("clear_all")
	if err := s.ensureOpen(op); err != nil {
		return 0, err
	}

	var removed int64
	err := s.withTx(ctx, op, func(tx pgx.Tx) error {
		query, args, err := squirrel.Delete(s.mapping.Table).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("building delete query: %w", err)
		}
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("deleting rows: %w", err)
		}
		removed = tag.RowsAffected()
		return nil
	})
	if err != nil {
		err = wrap(op, err)
		if s.opts.Policy == PolicyLegacy {
			s.logger(ctx).Warn("clear all failed, ignored by legacy policy", "error", err)
			return 0, nil
		}
		return 0, err
	}

	return removed, nil
}

// SaveAll inserts every entity of list in a single transaction and returns
// how many were saved. Any failure rolls back the whole batch.
// Generated keys are written back into the list's elements.
func (s *RecordStore[E, PK]) SaveAll(ctx context.Context, list []E) (int, error) {
	op := s.op("save_all")
	if err := s.ensureOpen(op); err != nil {
		return 0, err
	}
	if len(list) == 0 {
		return 0, nil
	}

	err := s.withTx(ctx, op, func(tx pgx.Tx) error {
		if s.opts.UseCopy && !s.mapping.GeneratedKey {
			return s.copyAll(ctx, tx, list)
		}
		for i := range list {
			if err := s.insert(ctx, tx, &list[i]); err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, wrap(op, err)
	}

	s.logger(ctx).Debug("batch saved", "rows", len(list))
	return len(list), nil
}

// Disconnect closes the connection. The store cannot be used afterwards.
// Calling it twice returns ErrDisconnected.
func (s *RecordStore[E, PK]) Disconnect(ctx context.Context) error {
	op := s.op("disconnect")
	if err := s.ensureOpen(op); err != nil {
		return err
	}

	conn := s.conn
	s.conn = nil
	s.tx = txIdle

	if err := conn.Close(ctx); err != nil {
		return wrap(op, fmt.Errorf("closing connection: %w", err))
	}
	return nil
}

// IsConnected reports whether the connection handle is present and open.
func (s *RecordStore[E, PK]) IsConnected() bool {
	if s.conn == nil {
		return false
	}
	if c, ok := s.conn.(interface{ IsClosed() bool }); ok {
		return !c.IsClosed()
	}
	return true
}

// ----------------------------------------------------------------------------
// Internals
// ----------------------------------------------------------------------------

func (s *RecordStore[E, PK]) op(name string) string {
	return s.mapping.Table + "." + name
}

func (s *RecordStore[E, PK]) logger(ctx context.Context) *slog.Logger {
	return logging.WithFields(ctx, "table", s.mapping.Table)
}

func (s *RecordStore[E, PK]) ensureOpen(op string) error {
	if s.conn == nil {
		return &Error{Op: op, Kind: KindStore, Err: ErrDisconnected}
	}
	return nil
}

func (s *RecordStore[E, PK]) selectBuilder() squirrel.SelectBuilder {
	return squirrel.Select(s.mapping.allColumns()...).
		From(s.mapping.Table).
		PlaceholderFormat(squirrel.Dollar)
}

// find loads one entity by key through q. Returns nil, nil when absent.
func (s *RecordStore[E, PK]) find(ctx context.Context, q querier, pk PK) (*E, error) {
	query, args, err := s.selectBuilder().
		Where(squirrel.Eq{s.mapping.Key: pk}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}

	var e E
	if err := pgxscan.Get(ctx, q, &e, query, args...); err != nil {
		if pgxscan.NotFound(err) || errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning %s: %w", s.mapping.Table, err)
	}
	return &e, nil
}

// insert writes e through q, reading back a generated key when needed.
func (s *RecordStore[E, PK]) insert(ctx context.Context, q querier, e *E) error {
	cols, vals := s.mapping.insertColumns(e)

	ib := squirrel.Insert(s.mapping.Table).
		Columns(cols...).
		Values(vals...).
		PlaceholderFormat(squirrel.Dollar)

	if s.mapping.GeneratedKey {
		query, args, err := ib.Suffix("RETURNING " + s.mapping.Key).ToSql()
		if err != nil {
			return fmt.Errorf("building insert query: %w", err)
		}
		var pk PK
		if err := q.QueryRow(ctx, query, args...).Scan(&pk); err != nil {
			return fmt.Errorf("inserting into %s: %w", s.mapping.Table, err)
		}
		s.mapping.SetKey(e, pk)
		return nil
	}

	query, args, err := ib.ToSql()
	if err != nil {
		return fmt.Errorf("building insert query: %w", err)
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting into %s: %w", s.mapping.Table, err)
	}
	return nil
}

// merge updates e by key and returns the version now stored. When no row
// matches it tells a missing row (insert) from a stale one (conflict).
func (s *RecordStore[E, PK]) merge(ctx context.Context, tx pgx.Tx, e *E) (int64, error) {
	m := s.mapping
	pk := m.KeyOf(e)

	ub := squirrel.Update(m.Table).PlaceholderFormat(squirrel.Dollar)
	values := m.ValuesOf(e)
	for i, col := range m.Columns {
		ub = ub.Set(col, values[i])
	}

	var current, next int64
	if m.Versioned() {
		current = m.VersionOf(e)
		next = current + 1
		ub = ub.Set(m.Version, next)
	}

	ub = ub.Where(squirrel.Eq{m.Key: pk})
	if m.Versioned() {
		ub = ub.Where(squirrel.Eq{m.Version: current})
	}

	query, args, err := ub.ToSql()
	if err != nil {
		return 0, fmt.Errorf("building update query: %w", err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("updating %s: %w", m.Table, err)
	}
	if tag.RowsAffected() > 0 {
		return next, nil
	}

	if m.Versioned() {
		stored, err := s.find(ctx, tx, pk)
		if err != nil {
			return 0, err
		}
		if stored != nil {
			return 0, fmt.Errorf("%w: %s %v is at version %d, caller has %d",
				ErrStaleVersion, m.Table, pk, m.VersionOf(stored), current)
		}
	}

	if err := s.insert(ctx, tx, e); err != nil {
		return 0, err
	}
	return current, nil
}

// remove deletes e by key, guarded by its version when the mapping has one.
func (s *RecordStore[E, PK]) remove(ctx context.Context, tx pgx.Tx, e *E) error {
	m := s.mapping

	db := squirrel.Delete(m.Table).
		Where(squirrel.Eq{m.Key: m.KeyOf(e)}).
		PlaceholderFormat(squirrel.Dollar)
	if m.Versioned() {
		db = db.Where(squirrel.Eq{m.Version: m.VersionOf(e)})
	}

	query, args, err := db.ToSql()
	if err != nil {
		return fmt.Errorf("building delete query: %w", err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", m.Table, err)
	}
	if tag.RowsAffected() == 0 && m.Versioned() {
		return fmt.Errorf("%w: %s %v changed since it was read", ErrStaleVersion, m.Table, m.KeyOf(e))
	}
	return nil
}

// copyAll writes list with the COPY protocol.
func (s *RecordStore[E, PK]) copyAll(ctx context.Context, tx pgx.Tx, list []E) error {
	var cols []string
	rows := make([][]any, len(list))
	for i := range list {
		c, vals := s.mapping.insertColumns(&list[i])
		cols = c
		rows[i] = vals
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{s.mapping.Table}, cols, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copying into %s: %w", s.mapping.Table, err)
	}
	if int(n) != len(list) {
		return fmt.Errorf("copying into %s: wrote %d of %d rows", s.mapping.Table, n, len(list))
	}
	return nil
}

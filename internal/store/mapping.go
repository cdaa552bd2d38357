package store

import (
	"fmt"
	"strings"
)

// Mapping describes how an entity type E with key PK is laid out in one
// table. It is the only view a RecordStore has of its entities.
type Mapping[E any, PK comparable] struct {
	Table string // table name
	Key   string // primary key column

	// GeneratedKey means the database assigns the key on insert. The store
	// omits Key from INSERT statements and writes the returned key back
	// through SetKey.
	GeneratedKey bool

	// Columns lists writable columns other than Key and Version.
	// ValuesOf must return values in the same order.
	Columns []string

	// Version is the optimistic-lock column. Empty disables version checks.
	Version string

	// OrderBy is the ordering applied by List, e.g. []string{"nom"}.
	// Empty means storage order.
	OrderBy []string

	KeyOf      func(*E) PK
	SetKey     func(*E, PK)
	ValuesOf   func(*E) []any
	VersionOf  func(*E) int64
	SetVersion func(*E, int64)
}

// Validate checks that the mapping is complete enough to build queries.
func (m Mapping[E, PK]) Validate() error {
	var errs []string

	if m.Table == "" {
		errs = append(errs, "table is required")
	}
	if m.Key == "" {
		errs = append(errs, "key column is required")
	}
	if m.KeyOf == nil {
		errs = append(errs, "KeyOf is required")
	}
	if m.ValuesOf == nil {
		errs = append(errs, "ValuesOf is required")
	}
	if m.GeneratedKey && m.SetKey == nil {
		errs = append(errs, "SetKey is required when the key is generated")
	}
	if m.Version != "" && (m.VersionOf == nil || m.SetVersion == nil) {
		errs = append(errs, "VersionOf and SetVersion are required when Version is set")
	}

	seen := make(map[string]bool)
	for _, col := range m.allColumns() {
		if col == "" {
			continue
		}
		if seen[col] {
			errs = append(errs, fmt.Sprintf("column %q listed twice", col))
		}
		seen[col] = true
	}
	for _, col := range m.OrderBy {
		if !m.HasColumn(orderColumn(col)) {
			errs = append(errs, fmt.Sprintf("order column %q is not mapped", col))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w for %q: %s", ErrInvalidMapping, m.Table, strings.Join(errs, "; "))
	}
	return nil
}

// HasColumn reports whether col is one of the mapped columns.
func (m Mapping[E, PK]) HasColumn(col string) bool {
	for _, c := range m.allColumns() {
		if c != "" && c == col {
			return true
		}
	}
	return false
}

// Versioned reports whether the mapping uses optimistic locking.
func (m Mapping[E, PK]) Versioned() bool {
	return m.Version != ""
}

// allColumns returns Key, Columns and Version in select order.
func (m Mapping[E, PK]) allColumns() []string {
	cols := make([]string, 0, len(m.Columns)+2)
	cols = append(cols, m.Key)
	cols = append(cols, m.Columns...)
	if m.Version != "" {
		cols = append(cols, m.Version)
	}
	return cols
}

// insertColumns returns the columns and values written by INSERT.
func (m Mapping[E, PK]) insertColumns(e *E) ([]string, []any) {
	cols := make([]string, 0, len(m.Columns)+2)
	vals := make([]any, 0, len(m.Columns)+2)

	if !m.GeneratedKey {
		cols = append(cols, m.Key)
		vals = append(vals, m.KeyOf(e))
	}
	cols = append(cols, m.Columns...)
	vals = append(vals, m.ValuesOf(e)...)
	if m.Version != "" {
		cols = append(cols, m.Version)
		vals = append(vals, m.VersionOf(e))
	}
	return cols, vals
}

// orderColumn strips a trailing ASC/DESC from an ORDER BY term.
func orderColumn(term string) string {
	fields := strings.Fields(term)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

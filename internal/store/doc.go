// Package store provides RecordStore, a generic transactional record-access
// engine bound to one entity type and one PostgreSQL connection.
//
// # Mappings
//
// A store never inspects an entity beyond what its [Mapping] exposes: the
// table, the key column, the writable columns, an optional optimistic-lock
// version column and the ordering used by [RecordStore.List]. Entities are
// scanned with pgxscan, so struct fields carry `db:"column"` tags matching
// the mapping's column names.
//
//	var PersonMapping = store.Mapping[Person, int]{
//	    Table:   "t_personne",
//	    Key:     "pk_pers",
//	    Columns: []string{"nom", "prenom"},
//	    Version: "version",
//	    OrderBy: []string{"nom"},
//	    KeyOf:   func(p *Person) int { return p.ID },
//	    ...
//	}
//
// # Transactions
//
// Every mutating operation owns exactly one transaction from begin to
// commit or rollback. A store tracks its transaction slot explicitly
// (idle/active) and refuses to begin a second one while the first is still
// open. The slot returns to idle on every exit path.
//
// # Errors
//
// Every failure is an [*Error] carrying the operation and a [Kind]:
//
//   - KindConnectionInit: the connection could not be opened
//   - KindConcurrencyConflict: the record changed since it was read
//   - KindStore: any other backing-store fault
//
// Absence is not an error: Read returns nil and Delete is a no-op.
//
// # Failure policy
//
// PolicyPropagate (the default) returns every failure to the caller.
// PolicyLegacy keeps the historical behaviour where Create and ClearAll
// roll back, log and swallow the failure.
//
// A RecordStore is not safe for concurrent use. Confine each store to one
// goroutine.
package store

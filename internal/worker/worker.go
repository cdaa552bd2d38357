// Package worker is the business facade over the person, locality and
// department stores. It sequences store and loader calls and adds no
// rules of its own.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/recordstore/internal/extract"
	"github.com/JonMunkholm/recordstore/internal/loader"
	"github.com/JonMunkholm/recordstore/internal/logging"
	"github.com/JonMunkholm/recordstore/internal/model"
	"github.com/JonMunkholm/recordstore/internal/store"
	"github.com/google/uuid"
)

// NothingImported is returned by the import methods when the file held no
// usable line.
const NothingImported = -1

// Options configures a DbWorker.
type Options struct {
	Store    store.Options // shared by the three stores
	LoadMode loader.Mode
}

// DbWorker owns one store per entity and one loader per import format.
// Each store holds its own connection.
type DbWorker struct {
	persons     *store.RecordStore[model.Person, int]
	localities  *store.RecordStore[model.Locality, int]
	departments *store.RecordStore[model.Department, int]

	localityFiles   *loader.BulkLoader[model.Locality]
	departmentFiles *loader.BulkLoader[model.Department]
}

// Open connects the three stores to dsn. If one of them fails, those
// already opened are disconnected before the error is returned.
func Open(ctx context.Context, dsn string, opts Options) (*DbWorker, error) {
	w := &DbWorker{
		localityFiles:   loader.New[model.Locality](extract.LocalityParser{}, opts.LoadMode),
		departmentFiles: loader.New[model.Department](extract.DepartmentParser{}, opts.LoadMode),
	}

	var err error
	if w.persons, err = store.Open(ctx, dsn, model.PersonMapping, opts.Store); err != nil {
		return nil, err
	}
	if w.localities, err = store.Open(ctx, dsn, model.LocalityMapping, opts.Store); err != nil {
		_ = w.Close(ctx)
		return nil, err
	}
	if w.departments, err = store.Open(ctx, dsn, model.DepartmentMapping, opts.Store); err != nil {
		_ = w.Close(ctx)
		return nil, err
	}

	return w, nil
}

// Close disconnects every store that is still connected.
func (w *DbWorker) Close(ctx context.Context) error {
	var errs []error
	disconnect := func(connected bool, fn func(context.Context) error) {
		if connected {
			errs = append(errs, fn(ctx))
		}
	}

	if w.persons != nil {
		disconnect(w.persons.IsConnected(), w.persons.Disconnect)
	}
	if w.localities != nil {
		disconnect(w.localities.IsConnected(), w.localities.Disconnect)
	}
	if w.departments != nil {
		disconnect(w.departments.IsConnected(), w.departments.Disconnect)
	}

	return errors.Join(errs...)
}

// IsConnected reports whether at least one store is still connected.
func (w *DbWorker) IsConnected() bool {
	return (w.persons != nil && w.persons.IsConnected()) ||
		(w.localities != nil && w.localities.IsConnected()) ||
		(w.departments != nil && w.departments.IsConnected())
}

// ----------------------------------------------------------------------------
// Persons
// ----------------------------------------------------------------------------

// Persons lists every person ordered by last name.
func (w *DbWorker) Persons(ctx context.Context) ([]model.Person, error) {
	return w.persons.List(ctx)
}

// CountPersons returns the number of stored persons.
func (w *DbWorker) CountPersons(ctx context.Context) (int64, error) {
	return w.persons.Count(ctx)
}

// AddPerson stores a new person.
func (w *DbWorker) AddPerson(ctx context.Context, p *model.Person) error {
	return w.persons.Create(ctx, p)
}

// ReadPerson returns the stored state of the person with id, or nil.
func (w *DbWorker) ReadPerson(ctx context.Context, id int) (*model.Person, error) {
	return w.persons.Read(ctx, id)
}

// UpdatePerson saves p. A person changed by someone else since it was read
// is reported as a concurrency conflict (see store.IsConflict).
func (w *DbWorker) UpdatePerson(ctx context.Context, p *model.Person) error {
	return w.persons.Update(ctx, p)
}

// DeletePerson removes the person with id. Unknown ids are ignored.
func (w *DbWorker) DeletePerson(ctx context.Context, id int) error {
	return w.persons.Delete(ctx, id)
}

// FindPersonByName returns the only person with the given last name.
func (w *DbWorker) FindPersonByName(ctx context.Context, name string) (*model.Person, error) {
	return w.persons.Search(ctx, "nom", name)
}

// ----------------------------------------------------------------------------
// Localities
// ----------------------------------------------------------------------------

// Localities lists every locality.
func (w *DbWorker) Localities(ctx context.Context) ([]model.Locality, error) {
	return w.localities.List(ctx)
}

// CountLocalities returns the number of stored localities.
func (w *DbWorker) CountLocalities(ctx context.Context) (int64, error) {
	return w.localities.Count(ctx)
}

// ImportLocalities loads a tab-separated locality file and saves it in one
// transaction. It returns the number saved, or NothingImported.
func (w *DbWorker) ImportLocalities(ctx context.Context, path, charset string) (int, error) {
	return importFile(ctx, "localities", path, charset, w.localityFiles, w.localities)
}

// ----------------------------------------------------------------------------
// Departments
// ----------------------------------------------------------------------------

// Departments lists every department.
func (w *DbWorker) Departments(ctx context.Context) ([]model.Department, error) {
	return w.departments.List(ctx)
}

// CountDepartments returns the number of stored departments.
func (w *DbWorker) CountDepartments(ctx context.Context) (int64, error) {
	return w.departments.Count(ctx)
}

// ImportDepartments loads a semicolon-separated department file and saves
// it in one transaction. It returns the number saved, or NothingImported.
func (w *DbWorker) ImportDepartments(ctx context.Context, path, charset string) (int, error) {
	return importFile(ctx, "departments", path, charset, w.departmentFiles, w.departments)
}

func importFile[E any](ctx context.Context, kind, path, charset string, l *loader.BulkLoader[E], s *store.RecordStore[E, int]) (int, error) {
	start := time.Now()

	if logging.LoadIDFromContext(ctx) == "" {
		ctx = logging.ContextWithLoadID(ctx, uuid.New().String())
	}
	logger := logging.WithFields(ctx, "kind", kind, "file", path)

	list, err := l.Load(ctx, path, charset)
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", kind, err)
	}
	if len(list) == 0 {
		logger.Info("nothing to import")
		return NothingImported, nil
	}

	n, err := s.SaveAll(ctx, list)
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", kind, err)
	}

	logger.Info("import complete", "saved", n, "duration_ms", time.Since(start).Milliseconds())
	return n, nil
}

package worker

import (
	"context"
	"fmt"
)

// ResetResult counts the rows removed per table by ResetAll.
type ResetResult struct {
	Persons     int64
	Localities  int64
	Departments int64
}

type resetStep struct {
	name    string
	reset   func(ctx context.Context) (int64, error)
	removed *int64
}

// ResetAll empties the person, locality and department tables, each in its
// own transaction. Persons go first since they reference the other two.
// This is a destructive operation.
func (w *DbWorker) ResetAll(ctx context.Context) (ResetResult, error) {
	var res ResetResult

	err := runResets(ctx, []resetStep{
		{"persons", w.persons.ClearAll, &res.Persons},
		{"localities", w.localities.ClearAll, &res.Localities},
		{"departments", w.departments.ClearAll, &res.Departments},
	})
	return res, err
}

func runResets(ctx context.Context, steps []resetStep) error {
	for _, s := range steps {
		n, err := s.reset(ctx)
		if err != nil {
			return fmt.Errorf("reset %s: %w", s.name, err)
		}
		*s.removed = n
	}
	return nil
}

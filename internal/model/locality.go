package model

import "github.com/JonMunkholm/recordstore/internal/store"

// Locality is one row of t_localite.
type Locality struct {
	ID       int    `db:"pk_loc"`
	Postcode int    `db:"npa"`
	Name     string `db:"localite"`
	Canton   string `db:"canton"`
}

// LocalityMapping maps Locality to t_localite. Keys come from the database.
var LocalityMapping = store.Mapping[Locality, int]{
	Table:        "t_localite",
	Key:          "pk_loc",
	GeneratedKey: true,
	Columns:      []string{"npa", "localite", "canton"},

	KeyOf:    func(l *Locality) int { return l.ID },
	SetKey:   func(l *Locality, id int) { l.ID = id },
	ValuesOf: func(l *Locality) []any { return []any{l.Postcode, l.Name, l.Canton} },
}

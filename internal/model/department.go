package model

import "github.com/JonMunkholm/recordstore/internal/store"

// Department is one row of t_departement.
type Department struct {
	ID   int    `db:"pk_dep"`
	Name string `db:"nom"`
}

// DepartmentMapping maps Department to t_departement. Keys come from the
// database.
var DepartmentMapping = store.Mapping[Department, int]{
	Table:        "t_departement",
	Key:          "pk_dep",
	GeneratedKey: true,
	Columns:      []string{"nom"},

	KeyOf:    func(d *Department) int { return d.ID },
	SetKey:   func(d *Department, id int) { d.ID = id },
	ValuesOf: func(d *Department) []any { return []any{d.Name} },
}

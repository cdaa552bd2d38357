package model

import (
	"time"

	"github.com/JonMunkholm/recordstore/internal/store"
)

// Person is one row of t_personne.
type Person struct {
	ID           int        `db:"pk_pers"`
	LastName     string     `db:"nom"`
	FirstName    string     `db:"prenom"`
	BirthDate    *time.Time `db:"date_naissance"`
	StreetNo     *int       `db:"no_rue"`
	Street       string     `db:"rue"`
	LocalityID   *int       `db:"fk_loc"`
	DepartmentID *int       `db:"fk_dep"`
	Active       bool       `db:"actif"`
	Salary       float64    `db:"salaire"`
	ModifiedAt   *time.Time `db:"date_modif"`
	Version      int64      `db:"version"`
}

// PersonMapping maps Person to t_personne. Updates are checked against
// the version column and lists are ordered by last name.
var PersonMapping = store.Mapping[Person, int]{
	Table: "t_personne",
	Key:   "pk_pers",
	Columns: []string{
		"nom", "prenom", "date_naissance", "no_rue", "rue",
		"fk_loc", "fk_dep", "actif", "salaire", "date_modif",
	},
	Version: "version",
	OrderBy: []string{"nom"},

	KeyOf:  func(p *Person) int { return p.ID },
	SetKey: func(p *Person, id int) { p.ID = id },
	ValuesOf: func(p *Person) []any {
		return []any{
			p.LastName, p.FirstName, p.BirthDate, p.StreetNo, p.Street,
			p.LocalityID, p.DepartmentID, p.Active, p.Salary, p.ModifiedAt,
		}
	},
	VersionOf:  func(p *Person) int64 { return p.Version },
	SetVersion: func(p *Person, v int64) { p.Version = v },
}

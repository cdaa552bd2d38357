// Package extract turns lines of the locality and department exports into
// model entities. Each parser plugs into a loader.BulkLoader.
package extract

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/recordstore/internal/model"
)

// LocalityParser reads tab-separated lines: postcode, name, canton.
type LocalityParser struct{}

// Separator implements loader.Parser.
func (LocalityParser) Separator() rune { return '\t' }

// Parse implements loader.Parser.
func (LocalityParser) Parse(fields []string) (model.Locality, error) {
	if len(fields) < 2 {
		return model.Locality{}, fmt.Errorf("locality: expected at least 2 fields, got %d", len(fields))
	}

	postcode, err := ToInt(fields[0])
	if err != nil {
		return model.Locality{}, fmt.Errorf("locality postcode %q: %w", fields[0], err)
	}

	name, err := ToText(fields[1])
	if err != nil {
		return model.Locality{}, fmt.Errorf("locality name: %w", err)
	}

	return model.Locality{
		Postcode: postcode,
		Name:     name,
		Canton:   strings.ToUpper(CleanCell(cell(fields, 2))),
	}, nil
}

// DepartmentParser reads semicolon-separated lines whose first field is
// the department name. Extra fields are ignored.
type DepartmentParser struct{}

// Separator implements loader.Parser.
func (DepartmentParser) Separator() rune { return ';' }

// Parse implements loader.Parser.
func (DepartmentParser) Parse(fields []string) (model.Department, error) {
	name, err := ToText(cell(fields, 0))
	if err != nil {
		return model.Department{}, fmt.Errorf("department name: %w", err)
	}
	return model.Department{Name: name}, nil
}

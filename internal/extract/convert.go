package extract

// convert.go cleans raw cells from hand-edited text exports:
//   - Excel formula prefixes (="value")
//   - Surrounding quotes left by spreadsheet tools
//   - Thousands separators and stray spaces in numbers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrEmptyCell is returned when a required cell is blank.
var ErrEmptyCell = errors.New("empty cell")

// CleanCell removes common export artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}

// ToText returns the cleaned cell, or ErrEmptyCell when nothing is left.
func ToText(s string) (string, error) {
	s = CleanCell(s)
	if s == "" {
		return "", ErrEmptyCell
	}
	return s, nil
}

// ToInt parses a cleaned cell as a base-10 integer. Apostrophe, space and
// comma thousands separators are accepted ("1'700", "1 700", "1,700").
func ToInt(s string) (int, error) {
	s = CleanCell(s)
	if s == "" {
		return 0, ErrEmptyCell
	}

	s = strings.NewReplacer("'", "", " ", "", "\u00a0", "", ",", "").Replace(s)

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %w", err)
	}
	return n, nil
}

// cell returns fields[i], or "" when the line is too short.
func cell(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}

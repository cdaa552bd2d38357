package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapping_Validate(t *testing.T) {
	valid := personMapping

	tests := []struct {
		name    string
		mutate  func(m *Mapping[person, int])
		wantMsg string
	}{
		{"valid", func(m *Mapping[person, int]) {}, ""},
		{"missing table", func(m *Mapping[person, int]) { m.Table = "" }, "table is required"},
		{"missing key", func(m *Mapping[person, int]) { m.Key = "" }, "key column is required"},
		{"missing KeyOf", func(m *Mapping[person, int]) { m.KeyOf = nil }, "KeyOf is required"},
		{"version without accessors", func(m *Mapping[person, int]) { m.SetVersion = nil }, "VersionOf and SetVersion"},
		{"generated key without SetKey", func(m *Mapping[person, int]) { m.GeneratedKey = true }, "SetKey is required"},
		{"duplicate column", func(m *Mapping[person, int]) { m.Columns = []string{"nom", "nom"} }, `"nom" listed twice`},
		{"unmapped order column", func(m *Mapping[person, int]) { m.OrderBy = []string{"prenom DESC"} }, `order column "prenom DESC"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid
			tt.mutate(&m)
			err := m.Validate()
			if tt.wantMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidMapping)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestMapping_OrderByAcceptsDirection(t *testing.T) {
	m := personMapping
	m.OrderBy = []string{"nom DESC", "pk_pers"}
	assert.NoError(t, m.Validate())
}

func TestMapping_HasColumn(t *testing.T) {
	assert.True(t, personMapping.HasColumn("pk_pers"))
	assert.True(t, personMapping.HasColumn("nom"))
	assert.True(t, personMapping.HasColumn("version"))
	assert.False(t, personMapping.HasColumn("prenom"))
	assert.False(t, cityMapping.HasColumn(""))
}

func TestMapping_InsertColumns(t *testing.T) {
	cols, vals := personMapping.insertColumns(&person{ID: 4, Name: "Rossi", Version: 2})
	assert.Equal(t, []string{"pk_pers", "nom", "version"}, cols)
	assert.Equal(t, []any{4, "Rossi", int64(2)}, vals)

	cols, vals = cityMapping.insertColumns(&city{ID: 9, Name: "Bulle"})
	assert.Equal(t, []string{"localite"}, cols)
	assert.Equal(t, []any{"Bulle"}, vals)
}

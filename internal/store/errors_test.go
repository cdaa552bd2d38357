package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestWrap_Classification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"plain error", errors.New("boom"), KindStore},
		{"stale version", fmt.Errorf("update: %w", ErrStaleVersion), KindConcurrencyConflict},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, KindConcurrencyConflict},
		{"serialization failure inside commit", fmt.Errorf("committing transaction: %w", &pgconn.PgError{Code: "40001"}), KindConcurrencyConflict},
		{"unique violation", &pgconn.PgError{Code: "23505"}, KindStore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrap("t_personne.update", tt.err)
			assert.Equal(t, tt.want, KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestWrap_KeepsExistingStoreError(t *testing.T) {
	inner := &Error{Op: "t_personne.read", Kind: KindStore, Err: errors.New("boom")}

	err := wrap("t_personne.delete", inner)

	assert.Same(t, inner, err)
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, wrap("op", nil))
}

func TestError_Message(t *testing.T) {
	err := &Error{Op: "t_localite.save_all", Kind: KindConcurrencyConflict, Err: ErrStaleVersion}

	assert.Equal(t, "t_localite.save_all: concurrency conflict: stale version", err.Error())
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Equal(t, KindStore, KindOf(errors.New("not ours")))
	assert.False(t, IsConflict(errors.New("OptimisticLockException")))
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", PolicyPropagate, false},
		{"propagate", PolicyPropagate, false},
		{"legacy", PolicyLegacy, false},
		{" Legacy ", PolicyLegacy, false},
		{"swallow", PolicyPropagate, true},
	}

	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

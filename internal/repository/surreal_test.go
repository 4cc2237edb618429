package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/surrealdb/surrealdb.go/pkg/models"
)

func TestRecordKey(t *testing.T) {
	cases := []struct {
		name string
		rid  *models.RecordID
		want int64
		ok   bool
	}{
		{"nil", nil, 0, false},
		{"int", &models.RecordID{Table: "employees", ID: 7}, 7, true},
		{"int64", &models.RecordID{Table: "employees", ID: int64(1_000_000_001)}, 1_000_000_001, true},
		{"uint64", &models.RecordID{Table: "employees", ID: uint64(12)}, 12, true},
		{"float64", &models.RecordID{Table: "employees", ID: float64(3)}, 3, true},
		{"fractional", &models.RecordID{Table: "employees", ID: 3.5}, 0, false},
		{"string", &models.RecordID{Table: "employees", ID: "44"}, 44, true},
		{"escaped string", &models.RecordID{Table: "employees", ID: "⟨45⟩"}, 45, true},
		{"uuid", &models.RecordID{Table: "employees", ID: "abc"}, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := recordKey(tc.rid)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsNoResult(t *testing.T) {
	assert.True(t, isNoResult(errors.New("Expected a single or multiple results but got 0")))
	assert.False(t, isNoResult(errors.New("connection closed")))
	assert.False(t, isNoResult(nil))
}

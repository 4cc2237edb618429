package model

import "time"

// AggregateType tags the stream an outbox event belongs to.
type AggregateType string

const (
	AggregateEmployee    AggregateType = "Employee"
	AggregateBicycle     AggregateType = "Bicycle"
	AggregateRoute       AggregateType = "Route"
	AggregateShift       AggregateType = "Shift"
	AggregateShiftPlan   AggregateType = "ShiftPlan"
	AggregateWorkHours   AggregateType = "WorkHours"
	AggregateSubstituted AggregateType = "Substituted"
)

func (t AggregateType) String() string { return string(t) }

// Aggregate is implemented by every top-level entity persisted through the
// primary and secondary stores.
type Aggregate interface {
	AggregateType() AggregateType
	AggregateID() int64
	SetAggregateID(id int64)
	Times() *Timestamps
}

// Timestamps is embedded by aggregates that track creation/update times.
type Timestamps struct {
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (t *Timestamps) Times() *Timestamps { return t }

package model

import "time"

// ShiftPlan groups the shifts of a planning period.
type ShiftPlan struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Published bool      `db:"published" json:"published"`
	Timestamps
}

func (p *ShiftPlan) AggregateType() AggregateType { return AggregateShiftPlan }
func (p *ShiftPlan) AggregateID() int64           { return p.ID }
func (p *ShiftPlan) SetAggregateID(id int64)      { p.ID = id }

package model

import "time"

type ShiftStatus string

const (
	ShiftPlanned   ShiftStatus = "planned"
	ShiftCompleted ShiftStatus = "completed"
	ShiftCancelled ShiftStatus = "cancelled"
)

func (s ShiftStatus) Valid() bool {
	return s == ShiftPlanned || s == ShiftCompleted || s == ShiftCancelled
}

type Shift struct {
	ID                   int64       `db:"id" json:"id"`
	ShiftPlanID          *int64      `db:"shift_plan_id" json:"shift_plan_id,omitempty"`
	EmployeeID           int64       `db:"employee_id" json:"employee_id"`
	BicycleID            *int64      `db:"bicycle_id" json:"bicycle_id,omitempty"`
	RouteID              *int64      `db:"route_id" json:"route_id,omitempty"`
	StartsAt             time.Time   `db:"starts_at" json:"starts_at"`
	EndsAt               time.Time   `db:"ends_at" json:"ends_at"`
	HoursWorked          *float64    `db:"hours_worked" json:"hours_worked,omitempty"`
	SubstituteEmployeeID *int64      `db:"substitute_employee_id" json:"substitute_employee_id,omitempty"`
	Status               ShiftStatus `db:"status" json:"status"`
	Timestamps
}

func (s *Shift) AggregateType() AggregateType { return AggregateShift }
func (s *Shift) AggregateID() int64           { return s.ID }
func (s *Shift) SetAggregateID(id int64)      { s.ID = id }

// ScheduledHours is the planned length of the shift.
func (s *Shift) ScheduledHours() float64 {
	return s.EndsAt.Sub(s.StartsAt).Hours()
}

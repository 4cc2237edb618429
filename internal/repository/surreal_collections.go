package repository

import (
	"context"

	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/surrealdb/surrealdb.go"
)

type SurrealEmployees = SurrealCollection[model.Employee, *model.Employee]
type SurrealBicycles = SurrealCollection[model.Bicycle, *model.Bicycle]
type SurrealRoutes = SurrealCollection[model.Route, *model.Route]
type SurrealShiftPlans = SurrealCollection[model.ShiftPlan, *model.ShiftPlan]

func NewSurrealEmployees(db *surrealdb.DB) *SurrealEmployees {
	return newSurrealCollection[model.Employee](db, "employees")
}

func NewSurrealBicycles(db *surrealdb.DB) *SurrealBicycles {
	return newSurrealCollection[model.Bicycle](db, "bicycles")
}

func NewSurrealRoutes(db *surrealdb.DB) *SurrealRoutes {
	return newSurrealCollection[model.Route](db, "routes")
}

func NewSurrealShiftPlans(db *surrealdb.DB) *SurrealShiftPlans {
	return newSurrealCollection[model.ShiftPlan](db, "shift_plans")
}

// SurrealShifts is the secondary adapter for shifts.
type SurrealShifts struct {
	*SurrealCollection[model.Shift, *model.Shift]
}

func NewSurrealShifts(db *surrealdb.DB) *SurrealShifts {
	return &SurrealShifts{SurrealCollection: newSurrealCollection[model.Shift](db, "shifts")}
}

var (
	_ CRUD[model.Employee]  = (*SurrealEmployees)(nil)
	_ Sink[model.Employee]  = (*SurrealEmployees)(nil)
	_ CRUD[model.Bicycle]   = (*SurrealBicycles)(nil)
	_ CRUD[model.Route]     = (*SurrealRoutes)(nil)
	_ CRUD[model.ShiftPlan] = (*SurrealShiftPlans)(nil)
	_ ShiftsRepository      = (*SurrealShifts)(nil)
	_ Sink[model.Shift]     = (*SurrealShifts)(nil)
)

func (r *SurrealShifts) RecordWorkHours(ctx context.Context, id int64, hours float64) (*model.Shift, error) {
	return r.modify(ctx, "record_work_hours", id, func(s *model.Shift) { applyWorkHours(s, hours) })
}

func (r *SurrealShifts) Substitute(ctx context.Context, id, employeeID int64) (*model.Shift, error) {
	return r.modify(ctx, "substitute", id, func(s *model.Shift) { applySubstitute(s, employeeID) })
}

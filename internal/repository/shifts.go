package repository

import (
	"context"

	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/jmoiron/sqlx"
)

// ShiftsRepositoryImpl is the MySQL adapter for shifts.
type ShiftsRepositoryImpl struct {
	*MySQLTable[model.Shift, *model.Shift]
}

func NewShiftsRepository(db *sqlx.DB, outbox *OutboxRepositoryImpl) *ShiftsRepositoryImpl {
	return &ShiftsRepositoryImpl{
		MySQLTable: newMySQLTable[model.Shift](db, outbox, model.AggregateShift, "shifts",
			"shift_plan_id", "employee_id", "bicycle_id", "route_id", "starts_at", "ends_at",
			"hours_worked", "substitute_employee_id", "status", "created_at", "updated_at",
		),
	}
}

var _ ShiftsRepository = (*ShiftsRepositoryImpl)(nil)

// RecordWorkHours stores the hours worked and completes the shift. The
// change is published under the WorkHours tag.
func (r *ShiftsRepositoryImpl) RecordWorkHours(ctx context.Context, id int64, hours float64) (*model.Shift, error) {
	return r.modify(ctx, "record_work_hours", id, model.AggregateWorkHours, func(s *model.Shift) {
		applyWorkHours(s, hours)
	})
}

// Substitute assigns another employee to the shift. The change is published
// under the Substituted tag.
func (r *ShiftsRepositoryImpl) Substitute(ctx context.Context, id, employeeID int64) (*model.Shift, error) {
	return r.modify(ctx, "substitute", id, model.AggregateSubstituted, func(s *model.Shift) {
		applySubstitute(s, employeeID)
	})
}

func applyWorkHours(s *model.Shift, hours float64) {
	s.HoursWorked = &hours
	s.Status = model.ShiftCompleted
}

func applySubstitute(s *model.Shift, employeeID int64) {
	s.SubstituteEmployeeID = &employeeID
}

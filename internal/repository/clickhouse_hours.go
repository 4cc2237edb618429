package repository

import (
	"context"

	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/jmoiron/sqlx"
)

// CHHoursRepository reads the monthly work-hours report from ClickHouse.
type CHHoursRepository interface {
	MonthlyHours(ctx context.Context, year, month int, employeeID int64) ([]model.MonthlyHours, error)
}

type chHoursRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHHoursRepository(ch *sqlx.DB) CHHoursRepository {
	return &chHoursRepository{ch: ch}
}

// MonthlyHours aggregates completed shifts per employee; a substitute's hours
// are credited to the substitute. employeeID 0 returns every employee.
func (r *chHoursRepository) MonthlyHours(ctx context.Context, year, month int, employeeID int64) ([]model.MonthlyHours, error) {
	q := `
		SELECT
		    ifNull(substitute_employee_id, employee_id) AS employee_id,
		    toInt32(toYear(starts_at))                  AS year,
		    toInt32(toMonth(starts_at))                 AS month,
		    count()                                     AS shifts,
		    sum(ifNull(hours_worked, 0))                AS hours_worked
		FROM shifts.shifts_latest
		WHERE toYear(starts_at) = ? AND toMonth(starts_at) = ? AND status = 'completed'
	`
	args := []any{year, month}

	if employeeID > 0 {
		q += " AND ifNull(substitute_employee_id, employee_id) = ?"
		args = append(args, employeeID)
	}

	q += " GROUP BY employee_id, year, month ORDER BY employee_id"

	var rows []model.MonthlyHours
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

package model

// MonthlyHours is one row of the monthly work-hours report.
type MonthlyHours struct {
	EmployeeID  int64   `db:"employee_id" json:"employee_id"`
	Year        int     `db:"year" json:"year"`
	Month       int     `db:"month" json:"month"`
	Shifts      uint64  `db:"shifts" json:"shifts"`
	HoursWorked float64 `db:"hours_worked" json:"hours_worked"`
}

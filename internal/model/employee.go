package model

import "strings"

type EmployeeRole string

const (
	RoleCourier    EmployeeRole = "courier"
	RoleDispatcher EmployeeRole = "dispatcher"
	RoleAdmin      EmployeeRole = "admin"
)

func (r EmployeeRole) Valid() bool {
	return r == RoleCourier || r == RoleDispatcher || r == RoleAdmin
}

// ParseEmployeeRole normalizes input; empty => courier.
func ParseEmployeeRole(s string) (EmployeeRole, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "courier":
		return RoleCourier, true
	case "dispatcher":
		return RoleDispatcher, true
	case "admin":
		return RoleAdmin, true
	default:
		return RoleCourier, false
	}
}

type Employee struct {
	ID        int64        `db:"id" json:"id"`
	FirstName string       `db:"first_name" json:"first_name"`
	LastName  string       `db:"last_name" json:"last_name"`
	Email     string       `db:"email" json:"email"`
	Phone     string       `db:"phone" json:"phone"`
	Role      EmployeeRole `db:"role" json:"role"`
	Active    bool         `db:"active" json:"active"`
	Timestamps
}

func (e *Employee) AggregateType() AggregateType { return AggregateEmployee }
func (e *Employee) AggregateID() int64           { return e.ID }
func (e *Employee) SetAggregateID(id int64)      { e.ID = id }

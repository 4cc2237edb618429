package repository

import (
	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/jmoiron/sqlx"
)

type EmployeesRepository = CRUD[model.Employee]

type EmployeesRepositoryImpl = MySQLTable[model.Employee, *model.Employee]

func NewEmployeesRepository(db *sqlx.DB, outbox *OutboxRepositoryImpl) *EmployeesRepositoryImpl {
	return newMySQLTable[model.Employee](db, outbox, model.AggregateEmployee, "employees",
		"first_name", "last_name", "email", "phone", "role", "active", "created_at", "updated_at",
	)
}

var _ EmployeesRepository = (*EmployeesRepositoryImpl)(nil)

package repository

import (
	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/jmoiron/sqlx"
)

type ShiftPlansRepository = CRUD[model.ShiftPlan]

type ShiftPlansRepositoryImpl = MySQLTable[model.ShiftPlan, *model.ShiftPlan]

func NewShiftPlansRepository(db *sqlx.DB, outbox *OutboxRepositoryImpl) *ShiftPlansRepositoryImpl {
	return newMySQLTable[model.ShiftPlan](db, outbox, model.AggregateShiftPlan, "shift_plans",
		"name", "start_date", "end_date", "published", "created_at", "updated_at",
	)
}

var _ ShiftPlansRepository = (*ShiftPlansRepositoryImpl)(nil)

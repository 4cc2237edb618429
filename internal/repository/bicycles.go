package repository

import (
	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/jmoiron/sqlx"
)

type BicyclesRepository = CRUD[model.Bicycle]

type BicyclesRepositoryImpl = MySQLTable[model.Bicycle, *model.Bicycle]

func NewBicyclesRepository(db *sqlx.DB, outbox *OutboxRepositoryImpl) *BicyclesRepositoryImpl {
	return newMySQLTable[model.Bicycle](db, outbox, model.AggregateBicycle, "bicycles",
		"serial_number", "model", "status", "created_at", "updated_at",
	)
}

var _ BicyclesRepository = (*BicyclesRepositoryImpl)(nil)

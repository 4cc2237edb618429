package repository

import (
	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/jmoiron/sqlx"
)

type RoutesRepository = CRUD[model.Route]

type RoutesRepositoryImpl = MySQLTable[model.Route, *model.Route]

func NewRoutesRepository(db *sqlx.DB, outbox *OutboxRepositoryImpl) *RoutesRepositoryImpl {
	return newMySQLTable[model.Route](db, outbox, model.AggregateRoute, "routes",
		"name", "description", "distance_km", "estimated_minutes", "active", "created_at", "updated_at",
	)
}

var _ RoutesRepository = (*RoutesRepositoryImpl)(nil)

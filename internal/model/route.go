package model

type Route struct {
	ID               int64   `db:"id" json:"id"`
	Name             string  `db:"name" json:"name"`
	Description      string  `db:"description" json:"description"`
	DistanceKm       float64 `db:"distance_km" json:"distance_km"`
	EstimatedMinutes int     `db:"estimated_minutes" json:"estimated_minutes"`
	Active           bool    `db:"active" json:"active"`
	Timestamps
}

func (r *Route) AggregateType() AggregateType { return AggregateRoute }
func (r *Route) AggregateID() int64           { return r.ID }
func (r *Route) SetAggregateID(id int64)      { r.ID = id }

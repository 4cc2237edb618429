package model

type BicycleStatus string

const (
	BicycleAvailable BicycleStatus = "available"
	BicycleInService BicycleStatus = "in_service"
	BicycleRetired   BicycleStatus = "retired"
)

func (s BicycleStatus) Valid() bool {
	return s == BicycleAvailable || s == BicycleInService || s == BicycleRetired
}

type Bicycle struct {
	ID           int64         `db:"id" json:"id"`
	SerialNumber string        `db:"serial_number" json:"serial_number"`
	Model        string        `db:"model" json:"model"`
	Status       BicycleStatus `db:"status" json:"status"`
	Timestamps
}

func (b *Bicycle) AggregateType() AggregateType { return AggregateBicycle }
func (b *Bicycle) AggregateID() int64           { return b.ID }
func (b *Bicycle) SetAggregateID(id int64)      { b.ID = id }

package models

import "time"

// Order belongs to a user. DT is assigned by the database when the order is
// created and never changes afterwards.
type Order struct {
	ID     int64     `db:"id" json:"id"`
	UserID int64     `db:"user_id" json:"user_id"`
	DT     time.Time `db:"dt" json:"dt"`
	Status string    `db:"status" json:"status" validate:"required,max=15"`
}

func (Order) TableName() string {
	return "orders"
}

func (o Order) String() string {
	return o.DT.Format(time.RFC3339)
}

package models

import "fmt"

type Contact struct {
	ID     int64  `db:"id" json:"id"`
	UserID int64  `db:"user_id" json:"user_id"`
	Type   string `db:"type" json:"type" validate:"required,max=15"`
	Value  string `db:"value" json:"value" validate:"required,max=50"`
}

func (Contact) TableName() string {
	return "contacts"
}

func (c Contact) String() string {
	return fmt.Sprintf("%s: %s", c.Type, c.Value)
}

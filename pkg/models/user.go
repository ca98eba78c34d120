package models

import "time"

// User mirrors an account owned by the identity service. IDs are assigned
// there, never here.
type User struct {
	ID        int64     `db:"id" json:"id" validate:"required"`
	Username  string    `db:"username" json:"username" validate:"max=150"`
	Email     string    `db:"email" json:"email" validate:"omitempty,max=254"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u User) String() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

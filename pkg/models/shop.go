package models

// Shop is a catalog source selling product listings.
type Shop struct {
	ID   int64   `db:"id" json:"id"`
	Name string  `db:"name" json:"name" validate:"required,max=50"`
	URL  *string `db:"url" json:"url,omitempty" validate:"omitempty,max=200"`
}

func (Shop) TableName() string {
	return "shops"
}

func (s Shop) String() string {
	return s.Name
}

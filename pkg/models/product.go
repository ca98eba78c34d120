package models

type Product struct {
	ID         int64  `db:"id" json:"id"`
	CategoryID int64  `db:"category_id" json:"category_id"`
	Name       string `db:"name" json:"name" validate:"required,max=50"`
}

func (Product) TableName() string {
	return "products"
}

func (p Product) String() string {
	return p.Name
}

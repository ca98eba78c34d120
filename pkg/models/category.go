package models

type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name" validate:"required,max=50"`
}

func (Category) TableName() string {
	return "categories"
}

func (c Category) String() string {
	return c.Name
}

// CategoryShop links a category to a shop that carries it.
type CategoryShop struct {
	CategoryID int64 `db:"category_id" json:"category_id"`
	ShopID     int64 `db:"shop_id" json:"shop_id"`
}

func (CategoryShop) TableName() string {
	return "category_shops"
}

package models

// ProductInfo is one shop's listing of a product. A product has at most one
// listing per shop.
type ProductInfo struct {
	ID        int64  `db:"id" json:"id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	ShopID    int64  `db:"shop_id" json:"shop_id"`
	Name      string `db:"name" json:"name" validate:"required,max=50"`
	Quantity  int64  `db:"quantity" json:"quantity" validate:"gte=0"`
	Price     int64  `db:"price" json:"price" validate:"gte=0"`
	PriceRRC  int64  `db:"price_rrc" json:"price_rrc" validate:"gte=0"`
}

func (ProductInfo) TableName() string {
	return "product_infos"
}

func (p ProductInfo) String() string {
	return p.Name
}

package models

import "fmt"

// OrderItem is a line of an order. ShopID always equals the shop of the
// referenced listing.
type OrderItem struct {
	ID            int64 `db:"id" json:"id"`
	OrderID       int64 `db:"order_id" json:"order_id"`
	ProductInfoID int64 `db:"product_info_id" json:"product_info_id"`
	ShopID        int64 `db:"shop_id" json:"shop_id"`
	Quantity      int64 `db:"quantity" json:"quantity" validate:"gte=0"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

func (i OrderItem) String() string {
	return fmt.Sprintf("order %d", i.OrderID)
}

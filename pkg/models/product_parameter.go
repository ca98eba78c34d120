package models

// ProductParameter is the value of a parameter for a single listing.
type ProductParameter struct {
	ID            int64  `db:"id" json:"id"`
	ProductInfoID int64  `db:"product_info_id" json:"product_info_id"`
	ParameterID   int64  `db:"parameter_id" json:"parameter_id"`
	Value         string `db:"value" json:"value" validate:"required,max=50"`
}

func (ProductParameter) TableName() string {
	return "product_parameters"
}

func (p ProductParameter) String() string {
	return p.Value
}

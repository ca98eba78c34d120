package models

type Parameter struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name" validate:"required,max=50"`
}

func (Parameter) TableName() string {
	return "parameters"
}

func (p Parameter) String() string {
	return p.Name
}

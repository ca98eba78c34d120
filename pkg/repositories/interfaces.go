package repositories

import (
	"context"

	"github.com/SirPen9uin/shop-api/pkg/models"
)

// UserRepo mirrors accounts owned by the identity service
type UserRepo interface {
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Delete(ctx context.Context, id int64) (*models.DeleteResult, error)
}

type ShopRepo interface {
	Create(ctx context.Context, shop *models.Shop) error
	GetByID(ctx context.Context, id int64) (*models.Shop, error)
	FindByName(ctx context.Context, name string) (*models.Shop, error)
	List(ctx context.Context) ([]models.Shop, error)
	Update(ctx context.Context, shop *models.Shop) error
	Delete(ctx context.Context, id int64) (*models.DeleteResult, error)
}

type CategoryRepo interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id int64) (*models.Category, error)
	FindByName(ctx context.Context, name string) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	ListByShop(ctx context.Context, shopID int64) ([]models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id int64) (*models.DeleteResult, error)
	AddShop(ctx context.Context, categoryID, shopID int64) error
	RemoveShop(ctx context.Context, categoryID, shopID int64) error
	ListShops(ctx context.Context, categoryID int64) ([]models.Shop, error)
}

type ProductRepo interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	FindByName(ctx context.Context, categoryID int64, name string) (*models.Product, error)
	List(ctx context.Context) ([]models.Product, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id int64) (*models.DeleteResult, error)
}

type ProductInfoRepo interface {
	Create(ctx context.Context, info *models.ProductInfo) error
	GetByID(ctx context.Context, id int64) (*models.ProductInfo, error)
	GetByProductAndShop(ctx context.Context, productID, shopID int64) (*models.ProductInfo, error)
	ListByProduct(ctx context.Context, productID int64) ([]models.ProductInfo, error)
	ListByShop(ctx context.Context, shopID int64) ([]models.ProductInfo, error)
	Update(ctx context.Context, info *models.ProductInfo) error
	Upsert(ctx context.Context, info *models.ProductInfo) error
	Delete(ctx context.Context, id int64) (*models.DeleteResult, error)
}

type ParameterRepo interface {
	Create(ctx context.Context, parameter *models.Parameter) error
	GetByID(ctx context.Context, id int64) (*models.Parameter, error)
	FindByName(ctx context.Context, name string) (*models.Parameter, error)
	List(ctx context.Context) ([]models.Parameter, error)
	Update(ctx context.Context, parameter *models.Parameter) error
	Delete(ctx context.Context, id int64) (*models.DeleteResult, error)
}

type ProductParameterRepo interface {
	Create(ctx context.Context, pp *models.ProductParameter) error
	GetByID(ctx context.Context, id int64) (*models.ProductParameter, error)
	ListByProductInfo(ctx context.Context, productInfoID int64) ([]models.ProductParameter, error)
	Update(ctx context.Context, pp *models.ProductParameter) error
	Upsert(ctx context.Context, pp *models.ProductParameter) error
	Delete(ctx context.Context, id int64) error
}

type OrderRepo interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	List(ctx context.Context) ([]models.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*models.Order, error)
	Delete(ctx context.Context, id int64) (*models.DeleteResult, error)
}

type OrderItemRepo interface {
	Create(ctx context.Context, item *models.OrderItem) error
	GetByID(ctx context.Context, id int64) (*models.OrderItem, error)
	ListByOrder(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	UpdateQuantity(ctx context.Context, id int64, quantity int64) (*models.OrderItem, error)
	AddQuantity(ctx context.Context, orderID, productInfoID, delta int64) (*models.OrderItem, error)
	Delete(ctx context.Context, id int64) error
}

type ContactRepo interface {
	Create(ctx context.Context, contact *models.Contact) error
	GetByID(ctx context.Context, id int64) (*models.Contact, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Contact, error)
	Update(ctx context.Context, contact *models.Contact) error
	Delete(ctx context.Context, id int64) error
}

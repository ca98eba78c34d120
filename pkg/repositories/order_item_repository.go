package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/SirPen9uin/shop-api/pkg/database"
	"github.com/SirPen9uin/shop-api/pkg/models"
	"github.com/SirPen9uin/shop-api/pkg/tracing"
)

const (
	orderItemsTable = "order_items"
	orderItemEntity = "order_item"

	uniqueOrderItem       = "unique_order_item"
	orderItemShopMismatch = "order_items_product_info_shop_fkey"
)

var orderItemStruct = database.NewStruct(new(models.OrderItem))

// OrderItemRepository handles order lines. The shop of a line is always the
// shop of the listing it points at.
type OrderItemRepository struct {
	*Repository
}

func NewOrderItemRepository(db database.DB, logger ectologger.Logger) *OrderItemRepository {
	return &OrderItemRepository{
		Repository: NewRepository(db, logger),
	}
}

// insertFromListing builds an INSERT ... SELECT that copies the shop from the
// listing, so a missing listing or a mismatching shop inserts nothing.
func insertFromListing(orderID, productInfoID, shopID, quantity int64) (string, []any) {
	sb := database.NewSelectBuilder()
	sb.Select(sb.Var(orderID)+"::bigint", "id", "shop_id", sb.Var(quantity)+"::bigint").
		From(productInfosTable).
		Where(sb.Equal("id", productInfoID))
	if shopID != 0 {
		sb.Where(sb.Equal("shop_id", shopID))
	}

	query, args := sb.Build()
	return fmt.Sprintf("INSERT INTO %s (order_id, product_info_id, shop_id, quantity) %s", orderItemsTable, query), args
}

const orderItemColumns = "id, order_id, product_info_id, shop_id, quantity"

// Create adds a line to an order. item.ShopID may be left zero, in which case
// it is filled from the listing. A second line for the same listing in the
// same order is a constraint violation; use AddQuantity or UpdateQuantity.
func (r *OrderItemRepository) Create(ctx context.Context, item *models.OrderItem) error {
	ctx, span := tracing.StartSpan(ctx, "OrderItemRepository.Create")
	defer span.End()

	if err := validateModel(item); err != nil {
		return err
	}

	query, args := insertFromListing(item.OrderID, item.ProductInfoID, item.ShopID, item.Quantity)
	query += " " + database.Returning(orderItemColumns)

	var created models.OrderItem
	err := r.conn(ctx).QueryRowxContext(ctx, query, args...).StructScan(&created)
	if errors.Is(err, sql.ErrNoRows) {
		return r.explainMissingListing(ctx, item.ProductInfoID, item.ShopID)
	}
	if err != nil {
		return r.translate(ctx, err, orderItemEntity, "create", map[string]any{
			"order_id":        item.OrderID,
			"product_info_id": item.ProductInfoID,
		})
	}
	*item = created

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"order_item_id": item.ID,
		"order_id":      item.OrderID,
	}).Debugf("Created %s", orderItemsTable)
	return nil
}

// AddQuantity adds delta to the line for a listing in an order, creating the
// line when the order does not contain the listing yet. Lowering a quantity
// goes through UpdateQuantity.
func (r *OrderItemRepository) AddQuantity(ctx context.Context, orderID, productInfoID, delta int64) (*models.OrderItem, error) {
	ctx, span := tracing.StartSpan(ctx, "OrderItemRepository.AddQuantity")
	defer span.End()

	if err := nonNegative(orderItemsTable, "quantity", delta); err != nil {
		return nil, err
	}

	query, args := insertFromListing(orderID, productInfoID, 0, delta)
	query += fmt.Sprintf(" ON CONFLICT ON CONSTRAINT %s DO UPDATE SET quantity = %s.quantity + %s ",
		uniqueOrderItem, orderItemsTable, database.Excluded("quantity")) + database.Returning(orderItemColumns)

	var item models.OrderItem
	err := r.conn(ctx).QueryRowxContext(ctx, query, args...).StructScan(&item)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.explainMissingListing(ctx, productInfoID, 0)
	}
	if err != nil {
		return nil, r.translate(ctx, err, orderItemEntity, "add quantity", map[string]any{
			"order_id":        orderID,
			"product_info_id": productInfoID,
		})
	}

	return &item, nil
}

// explainMissingListing reports why an insert from a listing produced no row.
func (r *OrderItemRepository) explainMissingListing(ctx context.Context, productInfoID, shopID int64) error {
	sb := database.NewSelectBuilder()
	sb.Select("shop_id").From(productInfosTable).Where(sb.Equal("id", productInfoID))

	query, args := sb.Build()
	var listingShop int64
	err := r.conn(ctx).GetContext(ctx, &listingShop, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ReferentialIntegrityViolation("order_items_product_info_id_fkey", "product info %d does not exist", productInfoID)
	}
	if err != nil {
		return r.translate(ctx, err, orderItemEntity, "create", map[string]any{"product_info_id": productInfoID})
	}

	return ConstraintViolation(orderItemShopMismatch,
		"product info %d belongs to shop %d, not shop %d", productInfoID, listingShop, shopID)
}

func (r *OrderItemRepository) GetByID(ctx context.Context, id int64) (*models.OrderItem, error) {
	ctx, span := tracing.StartSpan(ctx, "OrderItemRepository.GetByID")
	defer span.End()

	sb := orderItemStruct.SelectFrom(orderItemsTable)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var item models.OrderItem
	if err := r.conn(ctx).GetContext(ctx, &item, query, args...); err != nil {
		return nil, r.notFoundOr(ctx, err, orderItemEntity, "get", id)
	}

	return &item, nil
}

func (r *OrderItemRepository) ListByOrder(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	ctx, span := tracing.StartSpan(ctx, "OrderItemRepository.ListByOrder")
	defer span.End()

	sb := orderItemStruct.SelectFrom(orderItemsTable)
	sb.Where(sb.Equal("order_id", orderID)).OrderBy("id")

	query, args := sb.Build()
	items := []models.OrderItem{}
	if err := r.conn(ctx).SelectContext(ctx, &items, query, args...); err != nil {
		return nil, r.translate(ctx, err, orderItemEntity, "list", map[string]any{"order_id": orderID})
	}

	return items, nil
}

func (r *OrderItemRepository) UpdateQuantity(ctx context.Context, id int64, quantity int64) (*models.OrderItem, error) {
	ctx, span := tracing.StartSpan(ctx, "OrderItemRepository.UpdateQuantity")
	defer span.End()

	if err := nonNegative(orderItemsTable, "quantity", quantity); err != nil {
		return nil, err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(orderItemsTable).
		Set(ub.Assign("quantity", quantity)).
		Where(ub.Equal("id", id))
	ub.SQL(database.Returning(orderItemColumns))

	query, args := ub.Build()
	var item models.OrderItem
	if err := r.conn(ctx).QueryRowxContext(ctx, query, args...).StructScan(&item); err != nil {
		return nil, r.notFoundOr(ctx, err, orderItemEntity, "update", id)
	}

	return &item, nil
}

func (r *OrderItemRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "OrderItemRepository.Delete")
	defer span.End()

	return r.deleteOne(ctx, orderItemEntity, orderItemsTable, id)
}

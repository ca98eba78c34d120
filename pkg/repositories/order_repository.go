package repositories

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/SirPen9uin/shop-api/pkg/database"
	"github.com/SirPen9uin/shop-api/pkg/models"
	"github.com/SirPen9uin/shop-api/pkg/tracing"
)

const (
	ordersTable = "orders"
	orderEntity = "order"
)

var orderStruct = database.NewStruct(new(models.Order))

type OrderRepository struct {
	*Repository
}

func NewOrderRepository(db database.DB, logger ectologger.Logger) *OrderRepository {
	return &OrderRepository{
		Repository: NewRepository(db, logger),
	}
}

// Create inserts an order for an existing user. DT is taken from the
// database clock and written back to order.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	ctx, span := tracing.StartSpan(ctx, "OrderRepository.Create")
	defer span.End()

	if err := validateModel(order); err != nil {
		return err
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(ordersTable).
		Cols("user_id", "dt", "status").
		Values(order.UserID, sqlbuilder.Raw("NOW()"), order.Status)

	query, args := ib.Build()
	query += " " + database.Returning("id", "dt")
	if err := r.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&order.ID, &order.DT); err != nil {
		return r.translate(ctx, err, orderEntity, "create", map[string]any{"user_id": order.UserID})
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"order_id": order.ID,
		"user_id":  order.UserID,
	}).Debugf("Created %s", ordersTable)
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	ctx, span := tracing.StartSpan(ctx, "OrderRepository.GetByID")
	defer span.End()

	sb := orderStruct.SelectFrom(ordersTable)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var order models.Order
	if err := r.conn(ctx).GetContext(ctx, &order, query, args...); err != nil {
		return nil, r.notFoundOr(ctx, err, orderEntity, "get", id)
	}

	return &order, nil
}

// List returns all orders, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]models.Order, error) {
	ctx, span := tracing.StartSpan(ctx, "OrderRepository.List")
	defer span.End()

	sb := orderStruct.SelectFrom(ordersTable)
	sb.OrderBy("dt DESC", "id DESC")

	query, args := sb.Build()
	orders := []models.Order{}
	if err := r.conn(ctx).SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, r.translate(ctx, err, orderEntity, "list", nil)
	}

	return orders, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	ctx, span := tracing.StartSpan(ctx, "OrderRepository.ListByUser")
	defer span.End()

	sb := orderStruct.SelectFrom(ordersTable)
	sb.Where(sb.Equal("user_id", userID)).OrderBy("dt DESC", "id DESC")

	query, args := sb.Build()
	orders := []models.Order{}
	if err := r.conn(ctx).SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, r.translate(ctx, err, orderEntity, "list", map[string]any{"user_id": userID})
	}

	return orders, nil
}

// UpdateStatus changes the status label. DT is never touched.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status string) (*models.Order, error) {
	ctx, span := tracing.StartSpan(ctx, "OrderRepository.UpdateStatus")
	defer span.End()

	if err := validateValue("status", status, "required,max=15"); err != nil {
		return nil, err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(ordersTable).
		Set(ub.Assign("status", status)).
		Where(ub.Equal("id", id))
	ub.SQL(database.Returning("id", "user_id", "dt", "status"))

	query, args := ub.Build()
	var order models.Order
	if err := r.conn(ctx).QueryRowxContext(ctx, query, args...).StructScan(&order); err != nil {
		return nil, r.notFoundOr(ctx, err, orderEntity, "update", id)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"order_id": id,
		"status":   status,
	}).Debugf("Updated %s status", ordersTable)
	return &order, nil
}

// Delete removes the order and its items.
func (r *OrderRepository) Delete(ctx context.Context, id int64) (*models.DeleteResult, error) {
	ctx, span := tracing.StartSpan(ctx, "OrderRepository.Delete")
	defer span.End()

	return r.cascade(ctx, orderEntity, ordersTable, id, []cascadeStep{
		{table: orderItemsTable, where: whereEqual("order_id", id)},
		{table: ordersTable, where: whereEqual("id", id)},
	})
}

package repositories

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/SirPen9uin/shop-api/pkg/database"
	"github.com/SirPen9uin/shop-api/pkg/models"
	"github.com/SirPen9uin/shop-api/pkg/tracing"
)

const (
	shopsTable = "shops"
	shopEntity = "shop"
)

var shopStruct = database.NewStruct(new(models.Shop))

// ShopRepository handles database operations for shops
type ShopRepository struct {
	*Repository
}

func NewShopRepository(db database.DB, logger ectologger.Logger) *ShopRepository {
	return &ShopRepository{
		Repository: NewRepository(db, logger),
	}
}

func (r *ShopRepository) Create(ctx context.Context, shop *models.Shop) error {
	ctx, span := tracing.StartSpan(ctx, "ShopRepository.Create")
	defer span.End()

	if err := validateModel(shop); err != nil {
		return err
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(shopsTable).
		Cols("name", "url").
		Values(shop.Name, shop.URL)

	query, args := ib.Build()
	query += " " + database.Returning("id")
	err := r.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&shop.ID)
	if err != nil {
		return r.translate(ctx, err, shopEntity, "create", map[string]any{"shop_name": shop.Name})
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"shop_id": shop.ID,
	}).Debugf("Created %s", shopsTable)
	return nil
}

func (r *ShopRepository) GetByID(ctx context.Context, id int64) (*models.Shop, error) {
	ctx, span := tracing.StartSpan(ctx, "ShopRepository.GetByID")
	defer span.End()

	sb := shopStruct.SelectFrom(shopsTable)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var shop models.Shop
	if err := r.conn(ctx).GetContext(ctx, &shop, query, args...); err != nil {
		return nil, r.notFoundOr(ctx, err, shopEntity, "get", id)
	}

	return &shop, nil
}

// FindByName returns the first shop with the given name. Names are not unique.
func (r *ShopRepository) FindByName(ctx context.Context, name string) (*models.Shop, error) {
	ctx, span := tracing.StartSpan(ctx, "ShopRepository.FindByName")
	defer span.End()

	sb := shopStruct.SelectFrom(shopsTable)
	sb.Where(sb.Equal("name", name)).OrderBy("id").Limit(1)

	query, args := sb.Build()
	var shop models.Shop
	if err := r.conn(ctx).GetContext(ctx, &shop, query, args...); err != nil {
		return nil, r.notFoundOr(ctx, err, shopEntity, "find", name)
	}

	return &shop, nil
}

func (r *ShopRepository) List(ctx context.Context) ([]models.Shop, error) {
	ctx, span := tracing.StartSpan(ctx, "ShopRepository.List")
	defer span.End()

	sb := shopStruct.SelectFrom(shopsTable)
	sb.OrderBy("name").Desc()

	query, args := sb.Build()
	shops := []models.Shop{}
	if err := r.conn(ctx).SelectContext(ctx, &shops, query, args...); err != nil {
		return nil, r.translate(ctx, err, shopEntity, "list", nil)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"shop_count": len(shops),
	}).Debugf("Listed %s", shopsTable)
	return shops, nil
}

func (r *ShopRepository) Update(ctx context.Context, shop *models.Shop) error {
	ctx, span := tracing.StartSpan(ctx, "ShopRepository.Update")
	defer span.End()

	if err := validateModel(shop); err != nil {
		return err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(shopsTable).
		Set(
			ub.Assign("name", shop.Name),
			ub.Assign("url", shop.URL),
		).
		Where(ub.Equal("id", shop.ID))

	query, args := ub.Build()
	res, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return r.translate(ctx, err, shopEntity, "update", map[string]any{"shop_id": shop.ID})
	}
	if err := r.exactlyOne(ctx, res, shopEntity, "update", shop.ID); err != nil {
		return err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"shop_id": shop.ID,
	}).Debugf("Updated %s", shopsTable)
	return nil
}

// Delete removes the shop, its listings with their parameters and order
// items, and its category links.
func (r *ShopRepository) Delete(ctx context.Context, id int64) (*models.DeleteResult, error) {
	ctx, span := tracing.StartSpan(ctx, "ShopRepository.Delete")
	defer span.End()

	listings := idsWhere(productInfosTable, "shop_id", id)

	return r.cascade(ctx, shopEntity, shopsTable, id, []cascadeStep{
		{table: orderItemsTable, where: whereEqual("shop_id", id)},
		{table: productParametersTable, where: whereIn("product_info_id", listings)},
		{table: productInfosTable, where: whereEqual("shop_id", id)},
		{table: categoryShopsTable, where: whereEqual("shop_id", id)},
		{table: shopsTable, where: whereEqual("id", id)},
	})
}

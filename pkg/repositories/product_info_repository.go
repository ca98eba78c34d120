package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Gobusters/ectologger"

	"github.com/SirPen9uin/shop-api/pkg/database"
	"github.com/SirPen9uin/shop-api/pkg/models"
	"github.com/SirPen9uin/shop-api/pkg/tracing"
)

const (
	productInfosTable = "product_infos"
	productInfoEntity = "product_info"

	uniqueProductInfo = "unique_product_info"
)

var productInfoStruct = database.NewStruct(new(models.ProductInfo))

// ProductInfoRepository handles shop listings of products
type ProductInfoRepository struct {
	*Repository
}

func NewProductInfoRepository(db database.DB, logger ectologger.Logger) *ProductInfoRepository {
	return &ProductInfoRepository{
		Repository: NewRepository(db, logger),
	}
}

func (r *ProductInfoRepository) insert(info *models.ProductInfo) (string, []any) {
	ib := database.NewInsertBuilder()
	ib.InsertInto(productInfosTable).
		Cols("product_id", "shop_id", "name", "quantity", "price", "price_rrc").
		Values(info.ProductID, info.ShopID, info.Name, info.Quantity, info.Price, info.PriceRRC)
	return ib.Build()
}

// Create lists a product in a shop. A second listing for the same product
// and shop is rejected with a constraint violation.
func (r *ProductInfoRepository) Create(ctx context.Context, info *models.ProductInfo) error {
	ctx, span := tracing.StartSpan(ctx, "ProductInfoRepository.Create")
	defer span.End()

	if err := validateModel(info); err != nil {
		return err
	}

	query, args := r.insert(info)
	query += " " + database.Returning("id")
	if err := r.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&info.ID); err != nil {
		return r.translate(ctx, err, productInfoEntity, "create", map[string]any{
			"product_id": info.ProductID,
			"shop_id":    info.ShopID,
		})
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"product_info_id": info.ID,
		"product_id":      info.ProductID,
		"shop_id":         info.ShopID,
	}).Debugf("Created %s", productInfosTable)
	return nil
}

// Upsert creates the listing for (product, shop) or overwrites its name,
// stock and prices.
func (r *ProductInfoRepository) Upsert(ctx context.Context, info *models.ProductInfo) error {
	ctx, span := tracing.StartSpan(ctx, "ProductInfoRepository.Upsert")
	defer span.End()

	if err := validateModel(info); err != nil {
		return err
	}

	query, args := r.insert(info)
	query += " " + database.OnConstraintConflict(uniqueProductInfo, "name", "quantity", "price", "price_rrc") +
		" " + database.Returning("id")
	if err := r.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&info.ID); err != nil {
		return r.translate(ctx, err, productInfoEntity, "upsert", map[string]any{
			"product_id": info.ProductID,
			"shop_id":    info.ShopID,
		})
	}

	return nil
}

func (r *ProductInfoRepository) GetByID(ctx context.Context, id int64) (*models.ProductInfo, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductInfoRepository.GetByID")
	defer span.End()

	sb := productInfoStruct.SelectFrom(productInfosTable)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var info models.ProductInfo
	if err := r.conn(ctx).GetContext(ctx, &info, query, args...); err != nil {
		return nil, r.notFoundOr(ctx, err, productInfoEntity, "get", id)
	}

	return &info, nil
}

// GetByProductAndShop returns the single listing of a product in a shop.
func (r *ProductInfoRepository) GetByProductAndShop(ctx context.Context, productID, shopID int64) (*models.ProductInfo, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductInfoRepository.GetByProductAndShop")
	defer span.End()

	sb := productInfoStruct.SelectFrom(productInfosTable)
	sb.Where(sb.Equal("product_id", productID), sb.Equal("shop_id", shopID))

	query, args := sb.Build()
	var info models.ProductInfo
	err := r.conn(ctx).GetContext(ctx, &info, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound("product %d is not listed by shop %d", productID, shopID)
	}
	if err != nil {
		return nil, r.translate(ctx, err, productInfoEntity, "get", map[string]any{
			"product_id": productID,
			"shop_id":    shopID,
		})
	}

	return &info, nil
}

func (r *ProductInfoRepository) ListByProduct(ctx context.Context, productID int64) ([]models.ProductInfo, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductInfoRepository.ListByProduct")
	defer span.End()

	sb := productInfoStruct.SelectFrom(productInfosTable)
	sb.Where(sb.Equal("product_id", productID)).OrderBy("id")

	query, args := sb.Build()
	infos := []models.ProductInfo{}
	if err := r.conn(ctx).SelectContext(ctx, &infos, query, args...); err != nil {
		return nil, r.translate(ctx, err, productInfoEntity, "list", map[string]any{"product_id": productID})
	}

	return infos, nil
}

func (r *ProductInfoRepository) ListByShop(ctx context.Context, shopID int64) ([]models.ProductInfo, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductInfoRepository.ListByShop")
	defer span.End()

	sb := productInfoStruct.SelectFrom(productInfosTable)
	sb.Where(sb.Equal("shop_id", shopID)).OrderBy("id")

	query, args := sb.Build()
	infos := []models.ProductInfo{}
	if err := r.conn(ctx).SelectContext(ctx, &infos, query, args...); err != nil {
		return nil, r.translate(ctx, err, productInfoEntity, "list", map[string]any{"shop_id": shopID})
	}

	return infos, nil
}

// Update changes the name, stock and prices of a listing. Product and shop
// are fixed once listed.
func (r *ProductInfoRepository) Update(ctx context.Context, info *models.ProductInfo) error {
	ctx, span := tracing.StartSpan(ctx, "ProductInfoRepository.Update")
	defer span.End()

	if err := validateValue("name", info.Name, "required,max=50"); err != nil {
		return err
	}
	for column, value := range map[string]int64{"quantity": info.Quantity, "price": info.Price, "price_rrc": info.PriceRRC} {
		if err := nonNegative(productInfosTable, column, value); err != nil {
			return err
		}
	}

	ub := database.NewUpdateBuilder()
	ub.Update(productInfosTable).
		Set(
			ub.Assign("name", info.Name),
			ub.Assign("quantity", info.Quantity),
			ub.Assign("price", info.Price),
			ub.Assign("price_rrc", info.PriceRRC),
		).
		Where(ub.Equal("id", info.ID))
	ub.SQL(database.Returning("product_id", "shop_id"))

	query, args := ub.Build()
	err := r.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&info.ProductID, &info.ShopID)
	if err != nil {
		return r.notFoundOr(ctx, err, productInfoEntity, "update", info.ID)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"product_info_id": info.ID,
	}).Debugf("Updated %s", productInfosTable)
	return nil
}

// Delete removes the listing, its parameters and every order item for it.
func (r *ProductInfoRepository) Delete(ctx context.Context, id int64) (*models.DeleteResult, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductInfoRepository.Delete")
	defer span.End()

	return r.cascade(ctx, productInfoEntity, productInfosTable, id, []cascadeStep{
		{table: orderItemsTable, where: whereEqual("product_info_id", id)},
		{table: productParametersTable, where: whereEqual("product_info_id", id)},
		{table: productInfosTable, where: whereEqual("id", id)},
	})
}

package repositories

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/SirPen9uin/shop-api/pkg/database"
	"github.com/SirPen9uin/shop-api/pkg/models"
	"github.com/SirPen9uin/shop-api/pkg/tracing"
)

const (
	productsTable = "products"
	productEntity = "product"
)

var productStruct = database.NewStruct(new(models.Product))

type ProductRepository struct {
	*Repository
}

func NewProductRepository(db database.DB, logger ectologger.Logger) *ProductRepository {
	return &ProductRepository{
		Repository: NewRepository(db, logger),
	}
}

// Create inserts a product. The category must exist.
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.Create")
	defer span.End()

	if err := validateModel(product); err != nil {
		return err
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(productsTable).
		Cols("category_id", "name").
		Values(product.CategoryID, product.Name)

	query, args := ib.Build()
	query += " " + database.Returning("id")
	if err := r.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&product.ID); err != nil {
		return r.translate(ctx, err, productEntity, "create", map[string]any{
			"category_id":  product.CategoryID,
			"product_name": product.Name,
		})
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"product_id":  product.ID,
		"category_id": product.CategoryID,
	}).Debugf("Created %s", productsTable)
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.GetByID")
	defer span.End()

	sb := productStruct.SelectFrom(productsTable)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var product models.Product
	if err := r.conn(ctx).GetContext(ctx, &product, query, args...); err != nil {
		return nil, r.notFoundOr(ctx, err, productEntity, "get", id)
	}

	return &product, nil
}

// FindByName returns the first product named name in a category.
func (r *ProductRepository) FindByName(ctx context.Context, categoryID int64, name string) (*models.Product, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.FindByName")
	defer span.End()

	sb := productStruct.SelectFrom(productsTable)
	sb.Where(sb.Equal("category_id", categoryID), sb.Equal("name", name)).
		OrderBy("id").Limit(1)

	query, args := sb.Build()
	var product models.Product
	if err := r.conn(ctx).GetContext(ctx, &product, query, args...); err != nil {
		return nil, r.notFoundOr(ctx, err, productEntity, "find", name)
	}

	return &product, nil
}

func (r *ProductRepository) List(ctx context.Context) ([]models.Product, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.List")
	defer span.End()

	sb := productStruct.SelectFrom(productsTable)
	sb.OrderBy("name").Desc()

	query, args := sb.Build()
	products := []models.Product{}
	if err := r.conn(ctx).SelectContext(ctx, &products, query, args...); err != nil {
		return nil, r.translate(ctx, err, productEntity, "list", nil)
	}

	return products, nil
}

func (r *ProductRepository) ListByCategory(ctx context.Context, categoryID int64) ([]models.Product, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.ListByCategory")
	defer span.End()

	sb := productStruct.SelectFrom(productsTable)
	sb.Where(sb.Equal("category_id", categoryID)).OrderBy("name").Desc()

	query, args := sb.Build()
	products := []models.Product{}
	if err := r.conn(ctx).SelectContext(ctx, &products, query, args...); err != nil {
		return nil, r.translate(ctx, err, productEntity, "list", map[string]any{"category_id": categoryID})
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"category_id":   categoryID,
		"product_count": len(products),
	}).Debugf("Listed %s by category", productsTable)
	return products, nil
}

// Update renames a product or moves it to another category.
func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.Update")
	defer span.End()

	if err := validateModel(product); err != nil {
		return err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(productsTable).
		Set(
			ub.Assign("category_id", product.CategoryID),
			ub.Assign("name", product.Name),
		).
		Where(ub.Equal("id", product.ID))

	query, args := ub.Build()
	res, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return r.translate(ctx, err, productEntity, "update", map[string]any{"product_id": product.ID})
	}
	return r.exactlyOne(ctx, res, productEntity, "update", product.ID)
}

// Delete removes the product and its listings with their parameters and
// order items.
func (r *ProductRepository) Delete(ctx context.Context, id int64) (*models.DeleteResult, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.Delete")
	defer span.End()

	listings := idsWhere(productInfosTable, "product_id", id)

	return r.cascade(ctx, productEntity, productsTable, id, []cascadeStep{
		{table: orderItemsTable, where: whereIn("product_info_id", listings)},
		{table: productParametersTable, where: whereIn("product_info_id", listings)},
		{table: productInfosTable, where: whereEqual("product_id", id)},
		{table: productsTable, where: whereEqual("id", id)},
	})
}

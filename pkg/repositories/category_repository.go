package repositories

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/SirPen9uin/shop-api/pkg/database"
	"github.com/SirPen9uin/shop-api/pkg/models"
	"github.com/SirPen9uin/shop-api/pkg/tracing"
)

const (
	categoriesTable    = "categories"
	categoryShopsTable = "category_shops"
	categoryEntity     = "category"
)

var (
	categoryStruct     = database.NewStruct(new(models.Category))
	categoryShopStruct = database.NewStruct(new(models.CategoryShop))
)

// CategoryRepository handles categories and their links to shops
type CategoryRepository struct {
	*Repository
}

func NewCategoryRepository(db database.DB, logger ectologger.Logger) *CategoryRepository {
	return &CategoryRepository{
		Repository: NewRepository(db, logger),
	}
}

func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	ctx, span := tracing.StartSpan(ctx, "CategoryRepository.Create")
	defer span.End()

	if err := validateModel(category); err != nil {
		return err
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(categoriesTable).
		Cols("name").
		Values(category.Name)

	query, args := ib.Build()
	query += " " + database.Returning("id")
	if err := r.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&category.ID); err != nil {
		return r.translate(ctx, err, categoryEntity, "create", map[string]any{"category_name": category.Name})
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"category_id": category.ID,
	}).Debugf("Created %s", categoriesTable)
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	ctx, span := tracing.StartSpan(ctx, "CategoryRepository.GetByID")
	defer span.End()

	sb := categoryStruct.SelectFrom(categoriesTable)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var category models.Category
	if err := r.conn(ctx).GetContext(ctx, &category, query, args...); err != nil {
		return nil, r.notFoundOr(ctx, err, categoryEntity, "get", id)
	}

	return &category, nil
}

func (r *CategoryRepository) FindByName(ctx context.Context, name string) (*models.Category, error) {
	ctx, span := tracing.StartSpan(ctx, "CategoryRepository.FindByName")
	defer span.End()

	sb := categoryStruct.SelectFrom(categoriesTable)
	sb.Where(sb.Equal("name", name)).OrderBy("id").Limit(1)

	query, args := sb.Build()
	var category models.Category
	if err := r.conn(ctx).GetContext(ctx, &category, query, args...); err != nil {
		return nil, r.notFoundOr(ctx, err, categoryEntity, "find", name)
	}

	return &category, nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	ctx, span := tracing.StartSpan(ctx, "CategoryRepository.List")
	defer span.End()

	sb := categoryStruct.SelectFrom(categoriesTable)
	sb.OrderBy("name").Desc()

	query, args := sb.Build()
	categories := []models.Category{}
	if err := r.conn(ctx).SelectContext(ctx, &categories, query, args...); err != nil {
		return nil, r.translate(ctx, err, categoryEntity, "list", nil)
	}

	return categories, nil
}

// ListByShop returns the categories linked to a shop.
func (r *CategoryRepository) ListByShop(ctx context.Context, shopID int64) ([]models.Category, error) {
	ctx, span := tracing.StartSpan(ctx, "CategoryRepository.ListByShop")
	defer span.End()

	sb := categoryStruct.SelectFrom(categoriesTable)
	sb.Join(categoryShopsTable, "category_shops.category_id = categories.id").
		Where(sb.Equal("category_shops.shop_id", shopID)).
		OrderBy("categories.name").Desc()

	query, args := sb.Build()
	categories := []models.Category{}
	if err := r.conn(ctx).SelectContext(ctx, &categories, query, args...); err != nil {
		return nil, r.translate(ctx, err, categoryEntity, "list", map[string]any{"shop_id": shopID})
	}

	return categories, nil
}

func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	ctx, span := tracing.StartSpan(ctx, "CategoryRepository.Update")
	defer span.End()

	if err := validateModel(category); err != nil {
		return err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(categoriesTable).
		Set(ub.Assign("name", category.Name)).
		Where(ub.Equal("id", category.ID))

	query, args := ub.Build()
	res, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return r.translate(ctx, err, categoryEntity, "update", map[string]any{"category_id": category.ID})
	}
	if err := r.exactlyOne(ctx, res, categoryEntity, "update", category.ID); err != nil {
		return err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"category_id": category.ID,
	}).Debugf("Updated %s", categoriesTable)
	return nil
}

// Delete removes the category, its products with everything they own, and
// its shop links. Shops are left alone.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) (*models.DeleteResult, error) {
	ctx, span := tracing.StartSpan(ctx, "CategoryRepository.Delete")
	defer span.End()

	products := idsWhere(productsTable, "category_id", id)
	listings := idsIn(productInfosTable, "product_id", products)

	return r.cascade(ctx, categoryEntity, categoriesTable, id, []cascadeStep{
		{table: orderItemsTable, where: whereIn("product_info_id", listings)},
		{table: productParametersTable, where: whereIn("product_info_id", listings)},
		{table: productInfosTable, where: whereIn("product_id", products)},
		{table: productsTable, where: whereEqual("category_id", id)},
		{table: categoryShopsTable, where: whereEqual("category_id", id)},
		{table: categoriesTable, where: whereEqual("id", id)},
	})
}

// AddShop links a category to a shop. Linking twice is a no-op.
func (r *CategoryRepository) AddShop(ctx context.Context, categoryID, shopID int64) error {
	ctx, span := tracing.StartSpan(ctx, "CategoryRepository.AddShop")
	defer span.End()

	link := models.CategoryShop{CategoryID: categoryID, ShopID: shopID}
	ib := categoryShopStruct.InsertInto(link.TableName(), link)

	query, args := ib.Build()
	query += " ON CONFLICT ON CONSTRAINT category_shops_pkey DO NOTHING"
	if _, err := r.conn(ctx).ExecContext(ctx, query, args...); err != nil {
		return r.translate(ctx, err, categoryEntity, "link", map[string]any{
			"category_id": categoryID,
			"shop_id":     shopID,
		})
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"category_id": categoryID,
		"shop_id":     shopID,
	}).Debugf("Linked %s", categoryShopsTable)
	return nil
}

func (r *CategoryRepository) RemoveShop(ctx context.Context, categoryID, shopID int64) error {
	ctx, span := tracing.StartSpan(ctx, "CategoryRepository.RemoveShop")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(categoryShopsTable).
		Where(db.Equal("category_id", categoryID), db.Equal("shop_id", shopID))

	query, args := db.Build()
	res, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return r.translate(ctx, err, categoryEntity, "unlink", map[string]any{
			"category_id": categoryID,
			"shop_id":     shopID,
		})
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return r.translate(ctx, err, categoryEntity, "unlink", nil)
	}
	if rows == 0 {
		return NotFound("category %d is not linked to shop %d", categoryID, shopID)
	}

	return nil
}

// ListShops returns the shops a category is linked to.
func (r *CategoryRepository) ListShops(ctx context.Context, categoryID int64) ([]models.Shop, error) {
	ctx, span := tracing.StartSpan(ctx, "CategoryRepository.ListShops")
	defer span.End()

	sb := shopStruct.SelectFrom(shopsTable)
	sb.Join(categoryShopsTable, "category_shops.shop_id = shops.id").
		Where(sb.Equal("category_shops.category_id", categoryID)).
		OrderBy("shops.name").Desc()

	query, args := sb.Build()
	shops := []models.Shop{}
	if err := r.conn(ctx).SelectContext(ctx, &shops, query, args...); err != nil {
		return nil, r.translate(ctx, err, categoryEntity, "list shops", map[string]any{"category_id": categoryID})
	}

	return shops, nil
}

package repositories

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/SirPen9uin/shop-api/pkg/database"
	"github.com/SirPen9uin/shop-api/pkg/models"
	"github.com/SirPen9uin/shop-api/pkg/tracing"
)

const (
	productParametersTable = "product_parameters"
	productParameterEntity = "product_parameter"

	uniqueProductParameter = "unique_product_parameter"
)

var productParameterStruct = database.NewStruct(new(models.ProductParameter))

// ProductParameterRepository handles parameter values of listings
type ProductParameterRepository struct {
	*Repository
}

func NewProductParameterRepository(db database.DB, logger ectologger.Logger) *ProductParameterRepository {
	return &ProductParameterRepository{
		Repository: NewRepository(db, logger),
	}
}

func (r *ProductParameterRepository) insert(pp *models.ProductParameter) (string, []any) {
	ib := database.NewInsertBuilder()
	ib.InsertInto(productParametersTable).
		Cols("product_info_id", "parameter_id", "value").
		Values(pp.ProductInfoID, pp.ParameterID, pp.Value)
	return ib.Build()
}

func (r *ProductParameterRepository) Create(ctx context.Context, pp *models.ProductParameter) error {
	ctx, span := tracing.StartSpan(ctx, "ProductParameterRepository.Create")
	defer span.End()

	if err := validateModel(pp); err != nil {
		return err
	}

	query, args := r.insert(pp)
	query += " " + database.Returning("id")
	if err := r.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&pp.ID); err != nil {
		return r.translate(ctx, err, productParameterEntity, "create", map[string]any{
			"product_info_id": pp.ProductInfoID,
			"parameter_id":    pp.ParameterID,
		})
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"product_parameter_id": pp.ID,
	}).Debugf("Created %s", productParametersTable)
	return nil
}

// Upsert sets the value of a parameter on a listing, replacing any previous value.
func (r *ProductParameterRepository) Upsert(ctx context.Context, pp *models.ProductParameter) error {
	ctx, span := tracing.StartSpan(ctx, "ProductParameterRepository.Upsert")
	defer span.End()

	if err := validateModel(pp); err != nil {
		return err
	}

	query, args := r.insert(pp)
	query += " " + database.OnConstraintConflict(uniqueProductParameter, "value") + " " + database.Returning("id")
	if err := r.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&pp.ID); err != nil {
		return r.translate(ctx, err, productParameterEntity, "upsert", map[string]any{
			"product_info_id": pp.ProductInfoID,
			"parameter_id":    pp.ParameterID,
		})
	}

	return nil
}

func (r *ProductParameterRepository) GetByID(ctx context.Context, id int64) (*models.ProductParameter, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductParameterRepository.GetByID")
	defer span.End()

	sb := productParameterStruct.SelectFrom(productParametersTable)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var pp models.ProductParameter
	if err := r.conn(ctx).GetContext(ctx, &pp, query, args...); err != nil {
		return nil, r.notFoundOr(ctx, err, productParameterEntity, "get", id)
	}

	return &pp, nil
}

func (r *ProductParameterRepository) ListByProductInfo(ctx context.Context, productInfoID int64) ([]models.ProductParameter, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductParameterRepository.ListByProductInfo")
	defer span.End()

	sb := productParameterStruct.SelectFrom(productParametersTable)
	sb.Where(sb.Equal("product_info_id", productInfoID)).OrderBy("id")

	query, args := sb.Build()
	params := []models.ProductParameter{}
	if err := r.conn(ctx).SelectContext(ctx, &params, query, args...); err != nil {
		return nil, r.translate(ctx, err, productParameterEntity, "list", map[string]any{"product_info_id": productInfoID})
	}

	return params, nil
}

// Update changes the value. The listing and parameter are fixed.
func (r *ProductParameterRepository) Update(ctx context.Context, pp *models.ProductParameter) error {
	ctx, span := tracing.StartSpan(ctx, "ProductParameterRepository.Update")
	defer span.End()

	if err := validateValue("value", pp.Value, "required,max=50"); err != nil {
		return err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(productParametersTable).
		Set(ub.Assign("value", pp.Value)).
		Where(ub.Equal("id", pp.ID))
	ub.SQL(database.Returning("product_info_id", "parameter_id"))

	query, args := ub.Build()
	err := r.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&pp.ProductInfoID, &pp.ParameterID)
	if err != nil {
		return r.notFoundOr(ctx, err, productParameterEntity, "update", pp.ID)
	}

	return nil
}

func (r *ProductParameterRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "ProductParameterRepository.Delete")
	defer span.End()

	return r.deleteOne(ctx, productParameterEntity, productParametersTable, id)
}

package repositories

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/SirPen9uin/shop-api/pkg/database"
	"github.com/SirPen9uin/shop-api/pkg/models"
	"github.com/SirPen9uin/shop-api/pkg/tracing"
)

const (
	parametersTable = "parameters"
	parameterEntity = "parameter"
)

var parameterStruct = database.NewStruct(new(models.Parameter))

type ParameterRepository struct {
	*Repository
}

func NewParameterRepository(db database.DB, logger ectologger.Logger) *ParameterRepository {
	return &ParameterRepository{
		Repository: NewRepository(db, logger),
	}
}

func (r *ParameterRepository) Create(ctx context.Context, parameter *models.Parameter) error {
	ctx, span := tracing.StartSpan(ctx, "ParameterRepository.Create")
	defer span.End()

	if err := validateModel(parameter); err != nil {
		return err
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(parametersTable).
		Cols("name").
		Values(parameter.Name)

	query, args := ib.Build()
	query += " " + database.Returning("id")
	if err := r.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&parameter.ID); err != nil {
		return r.translate(ctx, err, parameterEntity, "create", map[string]any{"parameter_name": parameter.Name})
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"parameter_id": parameter.ID,
	}).Debugf("Created %s", parametersTable)
	return nil
}

func (r *ParameterRepository) GetByID(ctx context.Context, id int64) (*models.Parameter, error) {
	ctx, span := tracing.StartSpan(ctx, "ParameterRepository.GetByID")
	defer span.End()

	sb := parameterStruct.SelectFrom(parametersTable)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var parameter models.Parameter
	if err := r.conn(ctx).GetContext(ctx, &parameter, query, args...); err != nil {
		return nil, r.notFoundOr(ctx, err, parameterEntity, "get", id)
	}

	return &parameter, nil
}

func (r *ParameterRepository) FindByName(ctx context.Context, name string) (*models.Parameter, error) {
	ctx, span := tracing.StartSpan(ctx, "ParameterRepository.FindByName")
	defer span.End()

	sb := parameterStruct.SelectFrom(parametersTable)
	sb.Where(sb.Equal("name", name)).OrderBy("id").Limit(1)

	query, args := sb.Build()
	var parameter models.Parameter
	if err := r.conn(ctx).GetContext(ctx, &parameter, query, args...); err != nil {
		return nil, r.notFoundOr(ctx, err, parameterEntity, "find", name)
	}

	return &parameter, nil
}

func (r *ParameterRepository) List(ctx context.Context) ([]models.Parameter, error) {
	ctx, span := tracing.StartSpan(ctx, "ParameterRepository.List")
	defer span.End()

	sb := parameterStruct.SelectFrom(parametersTable)
	sb.OrderBy("name").Desc()

	query, args := sb.Build()
	parameters := []models.Parameter{}
	if err := r.conn(ctx).SelectContext(ctx, &parameters, query, args...); err != nil {
		return nil, r.translate(ctx, err, parameterEntity, "list", nil)
	}

	return parameters, nil
}

func (r *ParameterRepository) Update(ctx context.Context, parameter *models.Parameter) error {
	ctx, span := tracing.StartSpan(ctx, "ParameterRepository.Update")
	defer span.End()

	if err := validateModel(parameter); err != nil {
		return err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(parametersTable).
		Set(ub.Assign("name", parameter.Name)).
		Where(ub.Equal("id", parameter.ID))

	query, args := ub.Build()
	res, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return r.translate(ctx, err, parameterEntity, "update", map[string]any{"parameter_id": parameter.ID})
	}
	return r.exactlyOne(ctx, res, parameterEntity, "update", parameter.ID)
}

// Delete removes the parameter and every value recorded for it.
func (r *ParameterRepository) Delete(ctx context.Context, id int64) (*models.DeleteResult, error) {
	ctx, span := tracing.StartSpan(ctx, "ParameterRepository.Delete")
	defer span.End()

	return r.cascade(ctx, parameterEntity, parametersTable, id, []cascadeStep{
		{table: productParametersTable, where: whereEqual("parameter_id", id)},
		{table: parametersTable, where: whereEqual("id", id)},
	})
}

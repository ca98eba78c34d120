package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/SirPen9uin/shop-api/pkg/database"
	"github.com/SirPen9uin/shop-api/pkg/metrics"
	"github.com/SirPen9uin/shop-api/pkg/tracing"
)

// StatusReferentialIntegrity is returned when a write points at a parent row
// that does not exist.
const StatusReferentialIntegrity = http.StatusUnprocessableEntity

const metaConstraint = "constraint"

// NotFound returns a 404 HTTP error with a descriptive message
func NotFound(format string, args ...any) error {
	return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf(format, args...))
}

// BadRequest returns a 400 HTTP error
func BadRequest(message string) error {
	return httperror.NewHTTPError(http.StatusBadRequest, message)
}

// ConstraintViolation returns a 409 HTTP error naming the violated constraint
func ConstraintViolation(constraint, format string, args ...any) error {
	return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf(format, args...)).
		AddMetaValue(metaConstraint, constraint)
}

// ReferentialIntegrityViolation returns a 422 HTTP error naming the foreign key
func ReferentialIntegrityViolation(constraint, format string, args ...any) error {
	return httperror.NewHTTPError(StatusReferentialIntegrity, fmt.Sprintf(format, args...)).
		AddMetaValue(metaConstraint, constraint)
}

func hasStatus(err error, code int) bool {
	return httperror.IsStatus(err, code)
}

func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

func IsConstraintViolation(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

func IsReferentialIntegrityViolation(err error) bool {
	return hasStatus(err, StatusReferentialIntegrity)
}

func IsValidation(err error) bool {
	return hasStatus(err, http.StatusBadRequest)
}

// ConstraintName returns the constraint recorded on a violation error.
func ConstraintName(err error) string {
	var httpErr *httperror.HTTPError
	if !errors.As(err, &httpErr) {
		return ""
	}
	name, _ := httpErr.Meta[metaConstraint].(string)
	return name
}

// Repository provides the database handle and error translation shared by
// every entity repository.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

func (r *Repository) DB() database.DB {
	return r.db
}

// conn returns the transaction in ctx or the pool.
func (r *Repository) conn(ctx context.Context) database.Executor {
	return database.Conn(ctx, r.db)
}

// translate turns a driver error into the error returned to callers. Integrity
// errors become constraint, referential or validation errors; anything else is
// logged and reported as an internal error.
func (r *Repository) translate(ctx context.Context, err error, entity, operation string, fields map[string]any) error {
	if err == nil {
		return nil
	}
	if httperror.IsHTTPError(err) {
		return err
	}

	tracing.RecordError(ctx, err)

	if v, ok := database.AsViolation(err); ok {
		metrics.RecordConstraintViolation(entity, v.Kind.String(), v.Constraint)
		r.logger.WithContext(ctx).WithFields(fields).WithFields(map[string]any{
			"constraint": v.Constraint,
			"kind":       v.Kind.String(),
		}).Debugf("%s %s rejected by database", entity, operation)

		switch {
		case v.Constraint == orderItemShopMismatch:
			return ConstraintViolation(v.Constraint, "%s", violationMessage(entity, v))
		case v.Kind == database.ViolationUnique, v.Kind == database.ViolationCheck:
			return ConstraintViolation(v.Constraint, "%s", violationMessage(entity, v))
		case v.Kind == database.ViolationForeignKey:
			return ReferentialIntegrityViolation(v.Constraint, "%s", violationMessage(entity, v))
		default:
			return httperror.NewHTTPError(http.StatusBadRequest, violationMessage(entity, v)).
				AddMetaValue("column", v.Column)
		}
	}

	metrics.RecordRepositoryError(entity, operation)
	r.logger.WithContext(ctx).WithError(err).WithFields(fields).Errorf("failed to %s %s", operation, entity)
	return httperror.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to %s %s", operation, entity))
}

var constraintMessages = map[string]string{
	"unique_product_info":                     "product is already listed by this shop",
	"unique_product_parameter":                "parameter is already set for this listing",
	"unique_order_item":                       "product is already in this order, update its quantity instead",
	"order_items_product_info_shop_fkey":      "order item shop must match the shop of its listing",
	"product_infos_quantity_check":            "quantity must not be negative",
	"product_infos_price_check":               "price must not be negative",
	"product_infos_price_rrc_check":           "price_rrc must not be negative",
	"order_items_quantity_check":              "quantity must not be negative",
	"category_shops_category_id_fkey":         "category does not exist",
	"category_shops_shop_id_fkey":             "shop does not exist",
	"products_category_id_fkey":               "category does not exist",
	"product_infos_product_id_fkey":           "product does not exist",
	"product_infos_shop_id_fkey":              "shop does not exist",
	"product_parameters_product_info_id_fkey": "product info does not exist",
	"product_parameters_parameter_id_fkey":    "parameter does not exist",
	"orders_user_id_fkey":                     "user does not exist",
	"order_items_order_id_fkey":               "order does not exist",
	"order_items_product_info_id_fkey":        "product info does not exist",
	"order_items_shop_id_fkey":                "shop does not exist",
	"contacts_user_id_fkey":                   "user does not exist",
}

func violationMessage(entity string, v *database.Violation) string {
	if msg, ok := constraintMessages[v.Constraint]; ok {
		return msg
	}
	switch v.Kind {
	case database.ViolationNotNull:
		return fmt.Sprintf("%s %s is required", entity, v.Column)
	case database.ViolationTooLong:
		return fmt.Sprintf("%s value is too long", entity)
	default:
		return fmt.Sprintf("%s violates constraint %s", entity, v.Constraint)
	}
}

// notFoundOr maps sql.ErrNoRows to a 404 and everything else through translate.
func (r *Repository) notFoundOr(ctx context.Context, err error, entity, operation string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return NotFound("%s %v does not exist", entity, id)
	}
	return r.translate(ctx, err, entity, operation, map[string]any{entity + "_id": id})
}

// exactlyOne returns a 404 when a write touched no rows.
func (r *Repository) exactlyOne(ctx context.Context, result sql.Result, entity, operation string, id any) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return r.translate(ctx, err, entity, operation, map[string]any{entity + "_id": id})
	}
	if rows == 0 {
		return NotFound("%s %v does not exist", entity, id)
	}
	return nil
}

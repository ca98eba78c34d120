package repositories

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report column names so failures line up with the table constraints
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("db"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

type tabler interface {
	TableName() string
}

// validateModel checks the struct tags of a model before it is written. A
// negative number is reported as a violation of the matching check
// constraint; other failures are bad requests.
func validateModel(model tabler) error {
	err := validate.Struct(model)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return BadRequest(err.Error())
	}

	for _, fe := range verrs {
		if fe.Tag() == "gte" {
			constraint := fmt.Sprintf("%s_%s_check", model.TableName(), fe.Field())
			return ConstraintViolation(constraint, "%s must not be negative", fe.Field())
		}
	}

	fields := make([]string, 0, len(verrs))
	msg := ""
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
		switch fe.Tag() {
		case "required":
			msg += fmt.Sprintf("%s is required. ", fe.Field())
		case "max":
			msg += fmt.Sprintf("%s must be at most %s characters. ", fe.Field(), fe.Param())
		default:
			msg += fmt.Sprintf("%s failed rule '%s'. ", fe.Field(), fe.Tag())
		}
	}

	return httperror.NewHTTPError(http.StatusBadRequest, strings.TrimSpace(msg)).AddMetaValue("fields", fields)
}

// nonNegative mirrors a CHECK (column >= 0) constraint for single column writes.
func nonNegative(table, column string, value int64) error {
	if value < 0 {
		return ConstraintViolation(fmt.Sprintf("%s_%s_check", table, column), "%s must not be negative", column)
	}
	return nil
}

// validateValue checks a single string column against a validator tag.
func validateValue(column string, value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "max" {
			return BadRequest(fmt.Sprintf("%s must be at most %s characters", column, verrs[0].Param()))
		}
		return BadRequest(fmt.Sprintf("%s is required", column))
	}
	return nil
}

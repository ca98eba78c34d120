package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SirPen9uin/shop-api/pkg/context"
	"github.com/SirPen9uin/shop-api/pkg/middleware"
	"github.com/SirPen9uin/shop-api/pkg/repositories"
)

func newServer(handler echo.HandlerFunc) *echo.Echo {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.GET("/test", handler)
	return e
}

func serve(e *echo.Echo, req *http.Request) (*httptest.ResponseRecorder, middleware.ErrorResponse) {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var body middleware.ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestContext_SetsRequestValues(t *testing.T) {
	var requestID, userID, source string
	e := newServer(func(c echo.Context) error {
		ctx := c.Request().Context()
		requestID = context.GetRequestID(ctx)
		userID = context.GetUserID(ctx)
		source = context.GetSource(ctx)
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-1")
	req.Header.Set(middleware.HeaderUserID, "42")
	rec, _ := serve(e, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "req-1", requestID)
	assert.Equal(t, "42", userID)
	assert.Equal(t, "http", source)
	assert.Equal(t, "req-1", rec.Header().Get(echo.HeaderXRequestID))
}

func TestContext_GeneratesRequestID(t *testing.T) {
	e := newServer(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	rec, _ := serve(e, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestError_RendersRepositoryErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		constraint string
	}{
		{"not found", repositories.NotFound("shop %d not found", 1), http.StatusNotFound, ""},
		{"constraint", repositories.ConstraintViolation("unique_product_info", "duplicate listing"), http.StatusConflict, "unique_product_info"},
		{"referential", repositories.ReferentialIntegrityViolation("products_category_id_fkey", "no category"), http.StatusUnprocessableEntity, "products_category_id_fkey"},
		{"wrapped", errors.Join(errors.New("import failed"), repositories.BadRequest("bad")), http.StatusBadRequest, ""},
		{"echo", echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"), http.StatusMethodNotAllowed, ""},
		{"plain", errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newServer(func(c echo.Context) error { return tt.err })

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set(echo.HeaderXRequestID, "req-err")
			rec, body := serve(e, req)

			require.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "req-err", body.RequestID)
			assert.NotEmpty(t, body.Message)
			if tt.constraint != "" {
				assert.Equal(t, tt.constraint, body.Meta["constraint"])
			}
		})
	}
}

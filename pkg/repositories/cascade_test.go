package repositories_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SirPen9uin/shop-api/pkg/database"
	"github.com/SirPen9uin/shop-api/pkg/models"
	"github.com/SirPen9uin/shop-api/pkg/repositories"
)

// seedTree builds one category with n products, each listed in two shops
// with one parameter value and one order line per listing.
func (r *repos) seedTree(t *testing.T, ctx context.Context, n int) (*models.Category, *models.Order) {
	t.Helper()

	shops := []*models.Shop{{Name: "Acme"}, {Name: "Bolt"}}
	for _, s := range shops {
		require.NoError(t, r.shops.Create(ctx, s))
	}
	category := &models.Category{Name: "Widgets"}
	require.NoError(t, r.categories.Create(ctx, category))
	for _, s := range shops {
		require.NoError(t, r.categories.AddShop(ctx, category.ID, s.ID))
	}

	colour := &models.Parameter{Name: "Colour"}
	require.NoError(t, r.parameters.Create(ctx, colour))

	user := r.seedUser(t, ctx, 1)
	order := &models.Order{UserID: user.ID, Status: "basket"}
	require.NoError(t, r.orders.Create(ctx, order))

	for i := 0; i < n; i++ {
		product := &models.Product{CategoryID: category.ID, Name: fmt.Sprintf("Gadget %d", i)}
		require.NoError(t, r.products.Create(ctx, product))

		for _, s := range shops {
			listing := &models.ProductInfo{ProductID: product.ID, ShopID: s.ID, Name: product.Name, Price: 10}
			require.NoError(t, r.productInfos.Create(ctx, listing))
			require.NoError(t, r.productParameters.Create(ctx, &models.ProductParameter{
				ProductInfoID: listing.ID, ParameterID: colour.ID, Value: "gold",
			}))
			require.NoError(t, r.orderItems.Create(ctx, &models.OrderItem{
				OrderID: order.ID, ProductInfoID: listing.ID, Quantity: 1,
			}))
		}
	}

	return category, order
}

func TestCategoryRepository_DeleteCascades(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	category, order := r.seedTree(t, ctx, 3)

	// an unrelated category must survive
	keep := &models.Category{Name: "Tools"}
	require.NoError(t, r.categories.Create(ctx, keep))
	require.NoError(t, r.products.Create(ctx, &models.Product{CategoryID: keep.ID, Name: "Hammer"}))

	res, err := r.categories.Delete(ctx, category.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.Count("categories"))
	assert.Equal(t, int64(3), res.Count("products"))
	assert.Equal(t, int64(6), res.Count("product_infos"))
	assert.Equal(t, int64(6), res.Count("product_parameters"))
	assert.Equal(t, int64(6), res.Count("order_items"))
	assert.Equal(t, int64(2), res.Count("category_shops"))
	assert.Equal(t, int64(24), res.Total())

	assert.Equal(t, int64(1), r.count(t, "products"))
	assert.Equal(t, int64(0), r.count(t, "product_infos"))
	assert.Equal(t, int64(0), r.count(t, "product_parameters"))
	assert.Equal(t, int64(0), r.count(t, "order_items"))
	assert.Equal(t, int64(2), r.count(t, "shops"))
	assert.Equal(t, int64(1), r.count(t, "parameters"))

	// the order itself is not owned by the catalog
	_, err = r.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)

	_, err = r.categories.Delete(ctx, category.ID)
	assertNotFound(t, err)
}

func TestShopRepository_DeleteCascades(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	r.seedTree(t, ctx, 2)
	acme, err := r.shops.FindByName(ctx, "Acme")
	require.NoError(t, err)

	res, err := r.shops.Delete(ctx, acme.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(2), res.Count("product_infos"))
	assert.Equal(t, int64(2), res.Count("product_parameters"))
	assert.Equal(t, int64(2), res.Count("order_items"))
	assert.Equal(t, int64(1), res.Count("category_shops"))

	assert.Equal(t, int64(2), r.count(t, "products"))
	assert.Equal(t, int64(2), r.count(t, "product_infos"))
	assert.Equal(t, int64(1), r.count(t, "categories"))
}

func TestProductInfoRepository_DeleteCascadesAcrossOrders(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	c := r.seedCatalog(t, ctx)

	user := r.seedUser(t, ctx, 7)
	for i := 0; i < 3; i++ {
		order := &models.Order{UserID: user.ID, Status: "new"}
		require.NoError(t, r.orders.Create(ctx, order))
		require.NoError(t, r.orderItems.Create(ctx, &models.OrderItem{OrderID: order.ID, ProductInfoID: c.listing.ID, Quantity: 2}))
	}

	res, err := r.productInfos.Delete(ctx, c.listing.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Count("order_items"))
	assert.Equal(t, int64(3), r.count(t, "orders"))
	assert.Equal(t, int64(0), r.count(t, "order_items"))
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	c := r.seedCatalog(t, ctx)

	user := r.seedUser(t, ctx, 42)
	other := r.seedUser(t, ctx, 43)

	order := &models.Order{UserID: user.ID, Status: "new"}
	require.NoError(t, r.orders.Create(ctx, order))
	require.NoError(t, r.orderItems.Create(ctx, &models.OrderItem{OrderID: order.ID, ProductInfoID: c.listing.ID, Quantity: 1}))
	require.NoError(t, r.contacts.Create(ctx, &models.Contact{UserID: user.ID, Type: "phone", Value: "+100"}))
	require.NoError(t, r.contacts.Create(ctx, &models.Contact{UserID: user.ID, Type: "phone", Value: "+200"}))
	require.NoError(t, r.contacts.Create(ctx, &models.Contact{UserID: other.ID, Type: "email", Value: "x@example.com"}))

	res, err := r.users.Delete(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Count("orders"))
	assert.Equal(t, int64(1), res.Count("order_items"))
	assert.Equal(t, int64(2), res.Count("contacts"))
	assert.Equal(t, int64(1), res.Count("users"))

	contacts, err := r.contacts.ListByUser(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, contacts, 1)

	// the catalog is untouched
	_, err = r.productInfos.GetByID(ctx, c.listing.ID)
	require.NoError(t, err)

	_, err = r.users.GetByID(ctx, user.ID)
	assertNotFound(t, err)
}

func TestCascade_JoinsCallerTransaction(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	c := r.seedCatalog(t, ctx)

	rollback := errors.New("abort")
	err := database.RunInTx(ctx, r.db, func(ctx context.Context) error {
		if _, err := r.products.Delete(ctx, c.product.ID); err != nil {
			return err
		}
		return rollback
	})
	require.ErrorIs(t, err, rollback)

	// the delete was rolled back with the outer transaction
	_, err = r.products.GetByID(ctx, c.product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.count(t, "product_infos"))
}

func TestCascade_RollsBackWhenAStepFails(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	db := database.NewDatabaseInstance(sqlx.NewDb(raw, "postgres"), logger)
	shops := repositories.NewShopRepository(db, logger)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM shops WHERE id = \\$1 FOR UPDATE").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectExec("DELETE FROM order_items").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("DELETE FROM product_parameters").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	res, err := shops.Delete(context.Background(), 5)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, httperror.GetStatusCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCascade_MissingRootDeletesNothing(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	db := database.NewDatabaseInstance(sqlx.NewDb(raw, "postgres"), logger)
	orders := repositories.NewOrderRepository(db, logger)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM orders").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err = orders.Delete(context.Background(), 9)
	assertNotFound(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

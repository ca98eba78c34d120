package repositories

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/SirPen9uin/shop-api/pkg/database"
	"github.com/SirPen9uin/shop-api/pkg/models"
	"github.com/SirPen9uin/shop-api/pkg/tracing"
)

const (
	usersTable = "users"
	userEntity = "user"
)

var userStruct = database.NewStruct(new(models.User))

// UserRepository keeps the local copy of identity service accounts
type UserRepository struct {
	*Repository
}

func NewUserRepository(db database.DB, logger ectologger.Logger) *UserRepository {
	return &UserRepository{
		Repository: NewRepository(db, logger),
	}
}

// Upsert inserts the user or refreshes its username and email.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	ctx, span := tracing.StartSpan(ctx, "UserRepository.Upsert")
	defer span.End()

	if err := validateModel(user); err != nil {
		return err
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(usersTable).
		Cols("id", "username", "email", "created_at", "updated_at").
		Values(user.ID, user.Username, user.Email, sqlbuilder.Raw("NOW()"), sqlbuilder.Raw("NOW()"))

	query, args := ib.Build()
	query += " ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, email = EXCLUDED.email, updated_at = NOW() " +
		database.Returning("created_at", "updated_at")
	if err := r.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&user.CreatedAt, &user.UpdatedAt); err != nil {
		return r.translate(ctx, err, userEntity, "upsert", map[string]any{"user_id": user.ID})
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"user_id": user.ID,
	}).Debugf("Upserted %s", usersTable)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "UserRepository.GetByID")
	defer span.End()

	sb := userStruct.SelectFrom(usersTable)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var user models.User
	if err := r.conn(ctx).GetContext(ctx, &user, query, args...); err != nil {
		return nil, r.notFoundOr(ctx, err, userEntity, "get", id)
	}

	return &user, nil
}

// Delete removes the user with its orders, their items, and its contacts.
func (r *UserRepository) Delete(ctx context.Context, id int64) (*models.DeleteResult, error) {
	ctx, span := tracing.StartSpan(ctx, "UserRepository.Delete")
	defer span.End()

	orders := idsWhere(ordersTable, "user_id", id)

	return r.cascade(ctx, userEntity, usersTable, id, []cascadeStep{
		{table: orderItemsTable, where: whereIn("order_id", orders)},
		{table: ordersTable, where: whereEqual("user_id", id)},
		{table: contactsTable, where: whereEqual("user_id", id)},
		{table: usersTable, where: whereEqual("id", id)},
	})
}

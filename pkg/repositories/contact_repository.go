package repositories

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/SirPen9uin/shop-api/pkg/database"
	"github.com/SirPen9uin/shop-api/pkg/models"
	"github.com/SirPen9uin/shop-api/pkg/tracing"
)

const (
	contactsTable = "contacts"
	contactEntity = "contact"
)

var contactStruct = database.NewStruct(new(models.Contact))

type ContactRepository struct {
	*Repository
}

func NewContactRepository(db database.DB, logger ectologger.Logger) *ContactRepository {
	return &ContactRepository{
		Repository: NewRepository(db, logger),
	}
}

func (r *ContactRepository) Create(ctx context.Context, contact *models.Contact) error {
	ctx, span := tracing.StartSpan(ctx, "ContactRepository.Create")
	defer span.End()

	if err := validateModel(contact); err != nil {
		return err
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(contactsTable).
		Cols("user_id", "type", "value").
		Values(contact.UserID, contact.Type, contact.Value)

	query, args := ib.Build()
	query += " " + database.Returning("id")
	if err := r.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&contact.ID); err != nil {
		return r.translate(ctx, err, contactEntity, "create", map[string]any{"user_id": contact.UserID})
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"contact_id": contact.ID,
		"user_id":    contact.UserID,
	}).Debugf("Created %s", contactsTable)
	return nil
}

func (r *ContactRepository) GetByID(ctx context.Context, id int64) (*models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "ContactRepository.GetByID")
	defer span.End()

	sb := contactStruct.SelectFrom(contactsTable)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var contact models.Contact
	if err := r.conn(ctx).GetContext(ctx, &contact, query, args...); err != nil {
		return nil, r.notFoundOr(ctx, err, contactEntity, "get", id)
	}

	return &contact, nil
}

func (r *ContactRepository) ListByUser(ctx context.Context, userID int64) ([]models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "ContactRepository.ListByUser")
	defer span.End()

	sb := contactStruct.SelectFrom(contactsTable)
	sb.Where(sb.Equal("user_id", userID)).OrderBy("id")

	query, args := sb.Build()
	contacts := []models.Contact{}
	if err := r.conn(ctx).SelectContext(ctx, &contacts, query, args...); err != nil {
		return nil, r.translate(ctx, err, contactEntity, "list", map[string]any{"user_id": userID})
	}

	return contacts, nil
}

// Update changes the type and value. A contact never moves between users.
func (r *ContactRepository) Update(ctx context.Context, contact *models.Contact) error {
	ctx, span := tracing.StartSpan(ctx, "ContactRepository.Update")
	defer span.End()

	if err := validateValue("type", contact.Type, "required,max=15"); err != nil {
		return err
	}
	if err := validateValue("value", contact.Value, "required,max=50"); err != nil {
		return err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(contactsTable).
		Set(
			ub.Assign("type", contact.Type),
			ub.Assign("value", contact.Value),
		).
		Where(ub.Equal("id", contact.ID))
	ub.SQL(database.Returning("user_id"))

	query, args := ub.Build()
	if err := r.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&contact.UserID); err != nil {
		return r.notFoundOr(ctx, err, contactEntity, "update", contact.ID)
	}

	return nil
}

func (r *ContactRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "ContactRepository.Delete")
	defer span.End()

	return r.deleteOne(ctx, contactEntity, contactsTable, id)
}

package repositories

import (
	"context"

	"github.com/huandu/go-sqlbuilder"

	"github.com/SirPen9uin/shop-api/pkg/database"
	"github.com/SirPen9uin/shop-api/pkg/metrics"
	"github.com/SirPen9uin/shop-api/pkg/models"
)

// cascadeStep deletes the rows of table selected by where.
type cascadeStep struct {
	table string
	where func(b *sqlbuilder.DeleteBuilder) string
}

func whereEqual(column string, value any) func(b *sqlbuilder.DeleteBuilder) string {
	return func(b *sqlbuilder.DeleteBuilder) string {
		return b.Equal(column, value)
	}
}

func whereIn(column string, sub sqlbuilder.Builder) func(b *sqlbuilder.DeleteBuilder) string {
	return func(b *sqlbuilder.DeleteBuilder) string {
		return b.In(column, sub)
	}
}

// idsWhere selects the ids of table whose column equals value.
func idsWhere(table, column string, value any) *sqlbuilder.SelectBuilder {
	sb := database.NewSelectBuilder()
	sb.Select("id").From(table).Where(sb.Equal(column, value))
	return sb
}

// idsIn selects the ids of table whose column is in sub.
func idsIn(table, column string, sub sqlbuilder.Builder) *sqlbuilder.SelectBuilder {
	sb := database.NewSelectBuilder()
	sb.Select("id").From(table).Where(sb.In(column, sub))
	return sb
}

// cascade removes the root row and everything it owns in one transaction.
// Steps run in order and must delete children before parents; the last step
// deletes the root. A missing root is a 404 and nothing is removed.
func (r *Repository) cascade(ctx context.Context, entity, rootTable string, id int64, steps []cascadeStep) (*models.DeleteResult, error) {
	result := models.NewDeleteResult()

	err := database.RunInTx(ctx, r.db, func(ctx context.Context) error {
		if err := r.lockRow(ctx, entity, rootTable, id); err != nil {
			return err
		}

		for _, step := range steps {
			n, err := r.deleteWhere(ctx, step.table, step.where)
			if err != nil {
				return r.translate(ctx, err, entity, "delete", map[string]any{
					entity + "_id": id,
					"table":        step.table,
				})
			}
			result.Add(step.table, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordCascade(rootTable, result.Rows)
	r.logger.WithContext(ctx).WithFields(map[string]any{
		entity + "_id": id,
		"rows":         result.Rows,
	}).Debugf("Deleted %s and %d dependent rows", rootTable, result.Total()-1)
	return result, nil
}

// lockRow takes a row lock on the root so concurrent writers referencing it
// wait for the delete to finish.
func (r *Repository) lockRow(ctx context.Context, entity, table string, id int64) error {
	sb := database.NewSelectBuilder()
	sb.Select("id").From(table).Where(sb.Equal("id", id)).ForUpdate()

	query, args := sb.Build()
	var locked int64
	err := r.conn(ctx).GetContext(ctx, &locked, query, args...)
	return r.notFoundOr(ctx, err, entity, "delete", id)
}

func (r *Repository) deleteWhere(ctx context.Context, table string, where func(b *sqlbuilder.DeleteBuilder) string) (int64, error) {
	db := database.NewDeleteBuilder()
	db.DeleteFrom(table).Where(where(db))

	query, args := db.Build()
	res, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// deleteOne removes a single row that owns nothing.
func (r *Repository) deleteOne(ctx context.Context, entity, table string, id int64) error {
	db := database.NewDeleteBuilder()
	db.DeleteFrom(table).Where(db.Equal("id", id))

	query, args := db.Build()
	res, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return r.translate(ctx, err, entity, "delete", map[string]any{entity + "_id": id})
	}
	if err := r.exactlyOne(ctx, res, entity, "delete", id); err != nil {
		return err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		entity + "_id": id,
	}).Debugf("Deleted %s", table)
	return nil
}

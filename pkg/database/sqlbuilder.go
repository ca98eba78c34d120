package database

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

func Excluded(column string) string {
	return fmt.Sprintf("EXCLUDED.%s", column)
}

func NewInsertBuilder() *sqlbuilder.InsertBuilder {
	return sqlbuilder.PostgreSQL.NewInsertBuilder()
}

func NewUpdateBuilder() *sqlbuilder.UpdateBuilder {
	return sqlbuilder.PostgreSQL.NewUpdateBuilder()
}

func NewDeleteBuilder() *sqlbuilder.DeleteBuilder {
	return sqlbuilder.PostgreSQL.NewDeleteBuilder()
}

func NewSelectBuilder() *sqlbuilder.SelectBuilder {
	return sqlbuilder.PostgreSQL.NewSelectBuilder()
}

// NewStruct maps a db-tagged struct to PostgreSQL column lists.
func NewStruct(v any) *sqlbuilder.Struct {
	return sqlbuilder.NewStruct(v).For(sqlbuilder.PostgreSQL)
}

// OnConstraintConflict renders an upsert clause for a named constraint that
// overwrites the given columns with the proposed row.
func OnConstraintConflict(constraint string, columns ...string) string {
	if len(columns) == 0 {
		return fmt.Sprintf("ON CONFLICT ON CONSTRAINT %s DO NOTHING", constraint)
	}

	assignments := make([]string, 0, len(columns))
	for _, column := range columns {
		assignments = append(assignments, fmt.Sprintf("%s = %s", column, Excluded(column)))
	}
	return fmt.Sprintf("ON CONFLICT ON CONSTRAINT %s DO UPDATE SET %s", constraint, strings.Join(assignments, ", "))
}

// Returning renders a RETURNING clause.
func Returning(columns ...string) string {
	return "RETURNING " + strings.Join(columns, ", ")
}

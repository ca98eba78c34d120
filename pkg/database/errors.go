package database

import (
	"errors"

	"github.com/lib/pq"
)

type ViolationKind int

const (
	ViolationUnknown ViolationKind = iota
	ViolationUnique
	ViolationForeignKey
	ViolationCheck
	ViolationNotNull
	ViolationTooLong
)

func (k ViolationKind) String() string {
	switch k {
	case ViolationUnique:
		return "unique"
	case ViolationForeignKey:
		return "foreign_key"
	case ViolationCheck:
		return "check"
	case ViolationNotNull:
		return "not_null"
	case ViolationTooLong:
		return "too_long"
	default:
		return "unknown"
	}
}

var sqlStates = map[pq.ErrorCode]ViolationKind{
	"23505": ViolationUnique,
	"23503": ViolationForeignKey,
	"23514": ViolationCheck,
	"23502": ViolationNotNull,
	"22001": ViolationTooLong,
}

// Violation describes an integrity error reported by PostgreSQL.
type Violation struct {
	Kind       ViolationKind
	Constraint string
	Table      string
	Column     string
	Detail     string
	Err        error
}

func (v *Violation) Error() string {
	return v.Err.Error()
}

func (v *Violation) Unwrap() error {
	return v.Err
}

// AsViolation reports whether err is an integrity error and describes it.
func AsViolation(err error) (*Violation, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil, false
	}

	kind, ok := sqlStates[pqErr.Code]
	if !ok {
		return nil, false
	}

	return &Violation{
		Kind:       kind,
		Constraint: pqErr.Constraint,
		Table:      pqErr.Table,
		Column:     pqErr.Column,
		Detail:     pqErr.Detail,
		Err:        err,
	}, true
}

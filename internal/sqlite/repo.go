// Package sqlite implements the storage surface over a sqlite database.
package sqlite

import (
	"errors"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"

	"github.com/adityarao312/feednest/internal/feednest"
)

// Ensure Repo implements the Repository interface
var _ feednest.Repository = (*Repo)(nil)

type Repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repo {
	return Repo{db: db}
}

// sqlite extended result code for a UNIQUE constraint violation.
const codeConstraintUnique = 2067

func isUniqueViolation(err error) bool {
	sqliteErr := (&sqlite.Error{})
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == codeConstraintUnique
}

// Package gen is the typed query layer over the sqlite schema. Each query
// lives next to its SQL and maps rows onto plain structs; the driver package
// converts those into domain types.
//
// The package is maintained by hand in sqlc's generated layout; there is no
// sqlc config to regenerate it from. TestQueriesMatchSchema keeps every query
// honest against the migrations.
package gen

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{
		db: tx,
	}
}

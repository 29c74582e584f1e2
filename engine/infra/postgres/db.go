package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the minimal database interface the repositories depend on (pgxpool or pgxmock).
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CodeResolver maps reference table ids to mnemonic codes and back.
type CodeResolver interface {
	Resolve(ctx context.Context, id int64) (string, error)
	Lookup(ctx context.Context, code string) (int64, error)
}

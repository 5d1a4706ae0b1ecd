package questdb

import (
	"context"

	"github.com/jackc/pgx/v5"
)

//go:generate mockgen -source=interface.go -destination=mock/interface_mock.go -package=mock

// RowsInterface is the cursor returned by Query. Candle reads and the
// schema_migrations scan only ever walk rows forward.
type RowsInterface interface {
	Next() bool
	Scan(dest ...any) error
	Close()
	Err() error
}

// QuestDBClient is the slice of the postgres wire protocol QuestDB serves.
// QuestDB has no COPY and no interactive transactions over pgwire, so
// writes go through Exec with multi-row INSERT statements.
type QuestDBClient interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (RowsInterface, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row

	Ping(ctx context.Context) error
	Close()
}

// pgxRows adapts pgx.Rows; its method set already matches.
type pgxRows struct {
	pgx.Rows
}

var _ RowsInterface = pgxRows{}

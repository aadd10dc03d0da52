package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// GraphDBStorage implements store.GraphStorage on PostgreSQL. Each graph is
// a row in graphs with its nodes and relationships stored in order.
type GraphDBStorage struct {
	conn      pgxIConn
	batchSize int
}

type GraphDBStorageOption func(*GraphDBStorage)

// WithBatchSize sets how many rows are inserted per statement.
func WithBatchSize(n int) GraphDBStorageOption {
	return func(s *GraphDBStorage) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// NewGraphDBStorageWithConnection creates a new GraphDBStorage using an
// existing connection or pool.
func NewGraphDBStorageWithConnection(conn pgxIConn, opts ...GraphDBStorageOption) *GraphDBStorage {
	s := &GraphDBStorage{
		conn:      conn,
		batchSize: 1000,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS graphs (
	id BIGSERIAL PRIMARY KEY,
	key TEXT NOT NULL UNIQUE,
	schema_version TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS graph_nodes (
	graph_id BIGINT NOT NULL REFERENCES graphs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	node_id TEXT NOT NULL,
	type TEXT NOT NULL,
	name TEXT NOT NULL,
	context TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (graph_id, position)
);

CREATE TABLE IF NOT EXISTS graph_relationships (
	graph_id BIGINT NOT NULL REFERENCES graphs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	relation TEXT NOT NULL,
	confidence DOUBLE PRECISION,
	PRIMARY KEY (graph_id, position)
);

CREATE INDEX IF NOT EXISTS graph_nodes_type_name_idx ON graph_nodes (type, name);
`

// EnsureSchema creates the graph tables if they do not exist.
func (s *GraphDBStorage) EnsureSchema(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, schemaSQL)
	return err
}

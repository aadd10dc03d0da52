package pgx

import (
	"context"
	"errors"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/OFFIS-RIT/findet/internal/util"
	"github.com/OFFIS-RIT/findet/pkg/common"
	"github.com/OFFIS-RIT/findet/pkg/logger"
	"github.com/OFFIS-RIT/findet/pkg/store"
)

const (
	upsertGraphSQL = `
INSERT INTO graphs (key, schema_version)
VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE
SET schema_version = EXCLUDED.schema_version, updated_at = now()
RETURNING id`

	insertNodesSQL = `
INSERT INTO graph_nodes (graph_id, position, node_id, type, name, context)
SELECT $1, * FROM unnest($2::int[], $3::text[], $4::text[], $5::text[], $6::text[])`

	insertRelationshipsSQL = `
INSERT INTO graph_relationships (graph_id, position, source, target, relation, confidence)
SELECT $1, * FROM unnest($2::int[], $3::text[], $4::text[], $5::text[], $6::float8[])`
)

type nodeColumns struct {
	positions []int32
	ids       []string
	types     []string
	names     []string
	contexts  []string
}

func toNodeColumns(nodes []common.Node, offset int) nodeColumns {
	cols := nodeColumns{
		positions: make([]int32, len(nodes)),
		ids:       make([]string, len(nodes)),
		types:     make([]string, len(nodes)),
		names:     make([]string, len(nodes)),
		contexts:  make([]string, len(nodes)),
	}
	for i, n := range nodes {
		cols.positions[i] = int32(offset + i)
		cols.ids[i] = util.SanitizePostgresText(n.ID)
		cols.types[i] = util.SanitizePostgresText(string(n.Type))
		cols.names[i] = util.SanitizePostgresText(n.Name)
		cols.contexts[i] = util.SanitizePostgresText(n.Context)
	}
	return cols
}

type relationshipColumns struct {
	positions   []int32
	sources     []string
	targets     []string
	relations   []string
	confidences []*float64
}

func toRelationshipColumns(rels []common.Relationship, offset int) relationshipColumns {
	cols := relationshipColumns{
		positions:   make([]int32, len(rels)),
		sources:     make([]string, len(rels)),
		targets:     make([]string, len(rels)),
		relations:   make([]string, len(rels)),
		confidences: make([]*float64, len(rels)),
	}
	for i, r := range rels {
		cols.positions[i] = int32(offset + i)
		cols.sources[i] = util.SanitizePostgresText(r.Source)
		cols.targets[i] = util.SanitizePostgresText(r.Target)
		cols.relations[i] = util.SanitizePostgresText(string(r.Relation))
		cols.confidences[i] = r.Confidence
	}
	return cols
}

// SaveGraph replaces the graph stored under key within one transaction.
func (s *GraphDBStorage) SaveGraph(ctx context.Context, key string, g *common.Graph) error {
	if g == nil {
		return fmt.Errorf("graph is nil")
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	schemaVersion := g.SchemaVersion
	if schemaVersion == "" {
		schemaVersion = common.SchemaVersion
	}

	var graphID int64
	if err := tx.QueryRow(ctx, upsertGraphSQL, key, schemaVersion).Scan(&graphID); err != nil {
		return fmt.Errorf("failed to upsert graph: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM graph_nodes WHERE graph_id = $1`, graphID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM graph_relationships WHERE graph_id = $1`, graphID); err != nil {
		return err
	}

	err = store.ChunkRange(len(g.Nodes), s.batchSize, func(start, end int) error {
		cols := toNodeColumns(g.Nodes[start:end], start)
		_, err := tx.Exec(ctx, insertNodesSQL, graphID, cols.positions, cols.ids, cols.types, cols.names, cols.contexts)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert nodes: %w", err)
	}

	err = store.ChunkRange(len(g.Relationships), s.batchSize, func(start, end int) error {
		cols := toRelationshipColumns(g.Relationships[start:end], start)
		_, err := tx.Exec(ctx, insertRelationshipsSQL, graphID, cols.positions, cols.sources, cols.targets, cols.relations, cols.confidences)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert relationships: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.Debug("[Store][Postgres] Saved graph", "key", key, "nodes", len(g.Nodes), "relationships", len(g.Relationships))
	return nil
}

// LoadGraph reads the graph stored under key in its original order.
func (s *GraphDBStorage) LoadGraph(ctx context.Context, key string) (*common.Graph, error) {
	g := common.NewGraph()

	var graphID int64
	err := s.conn.QueryRow(ctx, `SELECT id, schema_version FROM graphs WHERE key = $1`, key).Scan(&graphID, &g.SchemaVersion)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrGraphNotFound, key)
		}
		return nil, err
	}

	rows, err := s.conn.Query(ctx, `
SELECT node_id, type, name, context FROM graph_nodes
WHERE graph_id = $1 ORDER BY position`, graphID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var n common.Node
		if err := rows.Scan(&n.ID, &n.Type, &n.Name, &n.Context); err != nil {
			rows.Close()
			return nil, err
		}
		g.Nodes = append(g.Nodes, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.conn.Query(ctx, `
SELECT source, target, relation, confidence FROM graph_relationships
WHERE graph_id = $1 ORDER BY position`, graphID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var r common.Relationship
		if err := rows.Scan(&r.Source, &r.Target, &r.Relation, &r.Confidence); err != nil {
			return nil, err
		}
		g.Relationships = append(g.Relationships, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return g, nil
}

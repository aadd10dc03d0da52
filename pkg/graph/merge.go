package graph

import (
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/findet/pkg/common"
	"github.com/OFFIS-RIT/findet/pkg/logger"
)

type nodeKey struct {
	nodeType common.NodeType
	name     string
}

type localID struct {
	graph int
	id    string
}

type relationKey struct {
	source   string
	target   string
	relation common.RelationType
}

// TypePrefix returns the prefix used for canonical ids of nodes of type t.
func TypePrefix(t common.NodeType) string {
	switch t {
	case common.NodeTypeCompany:
		return "company"
	case common.NodeTypeRiskFactor:
		return "risk"
	case common.NodeTypeDollarAmount:
		return "amount"
	default:
		return strings.ToLower(string(t))
	}
}

// MergeGraphs combines graphs into one graph with canonical node ids.
//
// Nodes are deduplicated by type and exact name, relationships by their
// resolved endpoints and relation. Output order is first-seen order across
// the inputs, so the order of graphs decides which duplicate wins. A single
// graph is returned as is.
//
// Relationship endpoints that do not resolve to a node of their own graph
// are passed through unchanged. RepairGraph drops them later.
func MergeGraphs(graphs []*common.Graph) (*common.Graph, error) {
	if len(graphs) == 0 {
		return nil, invalidArgument("cannot merge empty list of graphs")
	}
	if len(graphs) == 1 {
		return graphs[0], nil
	}

	canonical := make(map[nodeKey]string)
	resolved := make(map[localID]string)
	counters := make(map[common.NodeType]int)

	nodeCount, relCount := 0, 0
	for _, g := range graphs {
		if g == nil {
			continue
		}
		nodeCount += len(g.Nodes)
		relCount += len(g.Relationships)
	}

	nodes := make([]common.Node, 0, nodeCount)
	for gi, g := range graphs {
		if g == nil {
			continue
		}
		for _, n := range g.Nodes {
			key := nodeKey{nodeType: n.Type, name: n.Name}
			if id, ok := canonical[key]; ok {
				resolved[localID{graph: gi, id: n.ID}] = id
				continue
			}

			counters[n.Type]++
			id := fmt.Sprintf("%s_%d", TypePrefix(n.Type), counters[n.Type])
			canonical[key] = id
			resolved[localID{graph: gi, id: n.ID}] = id
			nodes = append(nodes, common.Node{
				ID:      id,
				Type:    n.Type,
				Name:    n.Name,
				Context: n.Context,
			})
		}
	}

	seen := make(map[relationKey]struct{}, relCount)
	relationships := make([]common.Relationship, 0, relCount)
	unresolved := 0
	for gi, g := range graphs {
		if g == nil {
			continue
		}
		for _, r := range g.Relationships {
			source, ok := resolved[localID{graph: gi, id: r.Source}]
			if !ok {
				source = r.Source
				unresolved++
				logger.Debug("[Merge] Unresolved relationship source", "graph", gi, "id", r.Source)
			}
			target, ok := resolved[localID{graph: gi, id: r.Target}]
			if !ok {
				target = r.Target
				unresolved++
				logger.Debug("[Merge] Unresolved relationship target", "graph", gi, "id", r.Target)
			}

			key := relationKey{source: source, target: target, relation: r.Relation}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			relationships = append(relationships, common.Relationship{
				Source:     source,
				Target:     target,
				Relation:   r.Relation,
				Confidence: r.Confidence,
			})
		}
	}

	schemaVersion := common.SchemaVersion
	if graphs[0] != nil && graphs[0].SchemaVersion != "" {
		schemaVersion = graphs[0].SchemaVersion
	}

	logger.Debug(
		"[Merge] Merged graphs",
		"graphs", len(graphs),
		"nodes", len(nodes),
		"relationships", len(relationships),
		"unresolved", unresolved,
	)

	return &common.Graph{
		SchemaVersion: schemaVersion,
		Nodes:         nodes,
		Relationships: relationships,
	}, nil
}

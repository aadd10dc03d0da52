package graph

import (
	"github.com/OFFIS-RIT/findet/pkg/common"
	"github.com/OFFIS-RIT/findet/pkg/logger"
)

// ValidateGraph checks g without modifying it. It fails when g has no nodes,
// when node ids repeat, or when a relationship points to a missing node.
func ValidateGraph(g *common.Graph) error {
	if g == nil || len(g.Nodes) == 0 {
		return ErrEmptyGraph
	}

	ids := make(map[string]int, len(g.Nodes))
	duplicates := make([]string, 0)
	for _, n := range g.Nodes {
		ids[n.ID]++
		if ids[n.ID] == 2 {
			duplicates = append(duplicates, n.ID)
		}
	}
	if len(duplicates) > 0 {
		return &DuplicateNodeIDError{IDs: duplicates}
	}

	dangling := make([]string, 0)
	for _, r := range g.Relationships {
		_, okSource := ids[r.Source]
		_, okTarget := ids[r.Target]
		if !okSource || !okTarget {
			dangling = append(dangling, r.Source+"->"+r.Target)
		}
	}
	if len(dangling) > 0 {
		return &DanglingReferenceError{References: dangling}
	}

	return nil
}

// RepairGraph returns a copy of g without relationships that point to
// missing nodes or break a type constraint:
//
//	HAS_RISK        target must be a RiskFactor
//	REPORTS_AMOUNT  target must be a DollarAmount
//	OWNS            source and target must be Companies
//
// Other relations are kept as they are. Nodes are not touched.
func RepairGraph(g *common.Graph) (*common.Graph, error) {
	if g == nil || len(g.Nodes) == 0 {
		return nil, ErrEmptyGraph
	}

	index := g.NodeIndex()
	relationships := make([]common.Relationship, 0, len(g.Relationships))
	for _, r := range g.Relationships {
		if relationshipAllowed(index, r) {
			relationships = append(relationships, r)
		}
	}

	nodes := make([]common.Node, len(g.Nodes))
	copy(nodes, g.Nodes)

	if removed := len(g.Relationships) - len(relationships); removed > 0 {
		logger.Warn("[Repair] Removed invalid relationships", "removed", removed, "kept", len(relationships))
	}

	return &common.Graph{
		SchemaVersion: g.SchemaVersion,
		Nodes:         nodes,
		Relationships: relationships,
	}, nil
}

func relationshipAllowed(index map[string]common.Node, r common.Relationship) bool {
	source, ok := index[r.Source]
	if !ok {
		return false
	}
	target, ok := index[r.Target]
	if !ok {
		return false
	}

	switch r.Relation {
	case common.RelationHasRisk:
		return target.Type == common.NodeTypeRiskFactor
	case common.RelationReportsAmount:
		return target.Type == common.NodeTypeDollarAmount
	case common.RelationOwns:
		return source.Type == common.NodeTypeCompany && target.Type == common.NodeTypeCompany
	}
	return true
}

package graph

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/OFFIS-RIT/findet/pkg/common"
	"github.com/OFFIS-RIT/findet/pkg/logger"
)

var (
	numericName     = regexp.MustCompile(`^[\d]+$`)
	letterAndNumber = regexp.MustCompile(`^[A-Z]\s+[\d,.]+$`)
	unitOnly        = regexp.MustCompile(`(?i)^[\d,.~]+\s*(GW|GWh|MMTPA|MTPA|TPD|TPA|MW|MWh|acres?|lacs?\s*TPA|\+)h?$`)
	numberStripper  = strings.NewReplacer(",", "", ".", "", " ", "", "-", "")

	currencyMarkers = []string{"$", "₹", "Rs", "USD", "INR", "crore", "billion", "million", "lakh"}
)

// PruneStats counts what PruneGraph removed.
type PruneStats struct {
	NodesRemoved         int `json:"nodes_removed"`
	OrphansRemoved       int `json:"orphans_removed"`
	RelationshipsRemoved int `json:"relationships_removed"`
}

// PruneGraph removes nodes that carry no information, such as bare numbers or
// unit values without context, together with their relationships. Nodes left
// without any relationship are removed afterwards.
func PruneGraph(g *common.Graph) (*common.Graph, PruneStats) {
	stats := PruneStats{}
	if g == nil {
		return common.NewGraph(), stats
	}

	removed := make(map[string]struct{})
	nodes := make([]common.Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if meaninglessNode(n) {
			removed[n.ID] = struct{}{}
			stats.NodesRemoved++
			continue
		}
		nodes = append(nodes, n)
	}

	connected := make(map[string]struct{})
	relationships := make([]common.Relationship, 0, len(g.Relationships))
	for _, r := range g.Relationships {
		_, badSource := removed[r.Source]
		_, badTarget := removed[r.Target]
		if badSource || badTarget {
			stats.RelationshipsRemoved++
			continue
		}
		relationships = append(relationships, r)
		connected[r.Source] = struct{}{}
		connected[r.Target] = struct{}{}
	}

	kept := nodes[:0]
	for _, n := range nodes {
		if _, ok := connected[n.ID]; !ok {
			stats.OrphansRemoved++
			continue
		}
		kept = append(kept, n)
	}

	logger.Info(
		"[Prune] Cleaned graph",
		"nodes_removed", stats.NodesRemoved,
		"orphans_removed", stats.OrphansRemoved,
		"relationships_removed", stats.RelationshipsRemoved,
	)

	return &common.Graph{
		SchemaVersion: g.SchemaVersion,
		Nodes:         kept,
		Relationships: relationships,
	}, stats
}

func meaninglessNode(n common.Node) bool {
	name := strings.TrimSpace(n.Name)
	context := strings.TrimSpace(n.Context)

	if utf8.RuneCountInString(name) < 3 {
		return true
	}
	if numericName.MatchString(numberStripper.Replace(name)) {
		return true
	}
	if letterAndNumber.MatchString(name) {
		return true
	}
	if unitOnly.MatchString(name) && utf8.RuneCountInString(context) < 10 {
		return true
	}
	if n.Type == common.NodeTypeDollarAmount && !hasCurrency(name) && utf8.RuneCountInString(context) <= 5 {
		return true
	}
	return false
}

func hasCurrency(name string) bool {
	for _, marker := range currencyMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

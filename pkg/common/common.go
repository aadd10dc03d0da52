package common

// SchemaVersion is the graph format version written by extractors that do not
// report one themselves.
const SchemaVersion = "1.0.0"

// NodeType is the kind of a node in a financial graph.
type NodeType string

const (
	NodeTypeCompany      NodeType = "Company"
	NodeTypeRiskFactor   NodeType = "RiskFactor"
	NodeTypeDollarAmount NodeType = "DollarAmount"
)

// NodeTypes lists the node kinds an extractor may emit.
var NodeTypes = []NodeType{NodeTypeCompany, NodeTypeRiskFactor, NodeTypeDollarAmount}

// Valid reports whether t is one of the declared node kinds.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeCompany, NodeTypeRiskFactor, NodeTypeDollarAmount:
		return true
	}
	return false
}

// RelationType is the kind of a directed edge between two nodes.
type RelationType string

const (
	RelationOwns             RelationType = "OWNS"
	RelationHasRisk          RelationType = "HAS_RISK"
	RelationReportsAmount    RelationType = "REPORTS_AMOUNT"
	RelationOperates         RelationType = "OPERATES"
	RelationImpactedBy       RelationType = "IMPACTED_BY"
	RelationDeclinedDueTo    RelationType = "DECLINED_DUE_TO"
	RelationSupportedBy      RelationType = "SUPPORTED_BY"
	RelationPartneredWith    RelationType = "PARTNERED_WITH"
	RelationJointVentureWith RelationType = "JOINT_VENTURE_WITH"
	RelationRaisedCapital    RelationType = "RAISED_CAPITAL"
	RelationInvestedIn       RelationType = "INVESTED_IN"
	RelationCommittedCapex   RelationType = "COMMITTED_CAPEX"
	RelationTargets          RelationType = "TARGETS"
	RelationPlansTo          RelationType = "PLANS_TO"
	RelationOnTrackTo        RelationType = "ON_TRACK_TO"
	RelationCommittedTo      RelationType = "COMMITTED_TO"
	RelationCompliesWith     RelationType = "COMPLIES_WITH"
	RelationSubjectTo        RelationType = "SUBJECT_TO"
)

// RelationTypes lists every relation kind in declaration order.
var RelationTypes = []RelationType{
	RelationOwns,
	RelationHasRisk,
	RelationReportsAmount,
	RelationOperates,
	RelationImpactedBy,
	RelationDeclinedDueTo,
	RelationSupportedBy,
	RelationPartneredWith,
	RelationJointVentureWith,
	RelationRaisedCapital,
	RelationInvestedIn,
	RelationCommittedCapex,
	RelationTargets,
	RelationPlansTo,
	RelationOnTrackTo,
	RelationCommittedTo,
	RelationCompliesWith,
	RelationSubjectTo,
}

// Graph is a typed entity-relationship graph extracted from financial text.
//
// Node ids are local labels. They only have meaning inside one graph and are
// reassigned whenever graphs are merged.
type Graph struct {
	SchemaVersion string         `json:"schema_version"`
	Nodes         []Node         `json:"nodes"`
	Relationships []Relationship `json:"relationships"`
}

// Node is an entity in the graph. Two nodes describe the same entity when
// their type and name are equal.
type Node struct {
	ID      string   `json:"id"`
	Type    NodeType `json:"type"`
	Name    string   `json:"name"`
	Context string   `json:"context,omitempty"`
}

// Relationship is a directed edge between two node ids.
type Relationship struct {
	Source     string       `json:"source"`
	Target     string       `json:"target"`
	Relation   RelationType `json:"relation"`
	Confidence *float64     `json:"confidence,omitempty"`
}

// NewGraph returns an empty graph with the current schema version.
func NewGraph() *Graph {
	return &Graph{
		SchemaVersion: SchemaVersion,
		Nodes:         []Node{},
		Relationships: []Relationship{},
	}
}

// NodeIndex maps node ids to nodes. Later duplicates overwrite earlier ones.
func (g *Graph) NodeIndex() map[string]Node {
	idx := make(map[string]Node, len(g.Nodes))
	for _, n := range g.Nodes {
		idx[n.ID] = n
	}
	return idx
}

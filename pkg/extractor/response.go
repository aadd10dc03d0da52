package extractor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/findet/pkg/ai"
	"github.com/OFFIS-RIT/findet/pkg/common"
	"github.com/OFFIS-RIT/findet/pkg/logger"
)

type extractNode struct {
	ID      string `json:"id" jsonschema_description:"Identifier unique within this answer, numbered per type such as company_1, risk_1 or amount_1"`
	Type    string `json:"type" jsonschema:"enum=Company,enum=RiskFactor,enum=DollarAmount" jsonschema_description:"Kind of entity"`
	Name    string `json:"name" jsonschema_description:"Name of the entity exactly as written in the text"`
	Context string `json:"context" jsonschema_description:"Short phrase from the text explaining the entity, for example Revenue FY2024"`

	hasName bool
}

// UnmarshalJSON accepts the usual node object and repairs the malformed
// variant {"id: risk_1": "RiskFactor", ...} some models emit.
func (n *extractNode) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*n = extractNode{}
	_, hasType := raw["type"]
	for key, value := range raw {
		switch {
		case key == "id":
			n.ID = stringValue(value)
		case key == "type":
			n.Type = stringValue(value)
		case key == "name":
			n.Name = stringValue(value)
			n.hasName = value != nil
		case key == "context":
			n.Context = stringValue(value)
		case strings.HasPrefix(key, "id:"):
			n.ID = strings.TrimSpace(strings.TrimPrefix(key, "id:"))
			if !hasType {
				n.Type = stringValue(value)
			}
		}
	}
	return nil
}

type extractRelationship struct {
	Source     string  `json:"source" jsonschema_description:"Id of the source node"`
	Target     string  `json:"target" jsonschema_description:"Id of the target node"`
	Relation   string  `json:"relation" jsonschema_description:"One of the listed relation types"`
	Confidence float64 `json:"confidence" jsonschema_description:"Confidence between 0 and 1 that the relationship is stated in the text"`
}

// UnmarshalJSON tolerates confidences given as strings.
func (r *extractRelationship) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = extractRelationship{
		Source:   stringValue(raw["source"]),
		Target:   stringValue(raw["target"]),
		Relation: stringValue(raw["relation"]),
	}
	switch v := raw["confidence"].(type) {
	case float64:
		r.Confidence = v
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			r.Confidence = f
		}
	}
	return nil
}

type extractResponse struct {
	SchemaVersion string                `json:"schema_version" jsonschema_description:"Always 1.0.0"`
	Nodes         []extractNode         `json:"nodes" jsonschema_description:"Companies, risk factors and monetary amounts found in the text"`
	Relationships []extractRelationship `json:"relationships" jsonschema_description:"Directed relationships between the nodes"`
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

// toGraph turns a model answer into a graph. Nodes without id or with an
// unknown type are dropped, a missing name falls back to the context or
// "Unknown", and relations are normalised with ai.NormalizeRelation.
// Relationships with relations that cannot be mapped are dropped.
func (r extractResponse) toGraph() *common.Graph {
	g := common.NewGraph()
	if r.SchemaVersion != "" {
		g.SchemaVersion = r.SchemaVersion
	}

	droppedNodes := 0
	for _, n := range r.Nodes {
		nodeType := common.NodeType(n.Type)
		if n.ID == "" || !nodeType.Valid() {
			droppedNodes++
			continue
		}

		name := n.Name
		if !n.hasName || name == "" {
			name = n.Context
			if name == "" {
				name = "Unknown"
			}
		}

		g.Nodes = append(g.Nodes, common.Node{
			ID:      n.ID,
			Type:    nodeType,
			Name:    name,
			Context: n.Context,
		})
	}

	droppedRelationships := 0
	for _, rel := range r.Relationships {
		relation, ok := ai.NormalizeRelation(rel.Relation)
		if !ok || rel.Source == "" || rel.Target == "" {
			droppedRelationships++
			continue
		}

		out := common.Relationship{
			Source:   rel.Source,
			Target:   rel.Target,
			Relation: relation,
		}
		if rel.Confidence > 0 {
			c := min(rel.Confidence, 1)
			out.Confidence = &c
		}
		g.Relationships = append(g.Relationships, out)
	}

	if droppedNodes > 0 || droppedRelationships > 0 {
		logger.Debug(
			"[Extract] Dropped unusable model output",
			"nodes", droppedNodes,
			"relationships", droppedRelationships,
		)
	}

	return g
}

package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/findet/pkg/common"
)

func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

// EncodeGraph renders g as indented JSON with a trailing newline.
func EncodeGraph(g *common.Graph) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("graph is nil")
	}
	out := *g
	if out.Nodes == nil {
		out.Nodes = []common.Node{}
	}
	if out.Relationships == nil {
		out.Relationships = []common.Relationship{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeGraph parses a graph document. Missing lists decode as empty.
func DecodeGraph(data []byte) (*common.Graph, error) {
	var g common.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	if g.Nodes == nil {
		g.Nodes = []common.Node{}
	}
	if g.Relationships == nil {
		g.Relationships = []common.Relationship{}
	}
	return &g, nil
}

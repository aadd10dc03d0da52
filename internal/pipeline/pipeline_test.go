package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/findet/internal/config"
	"github.com/OFFIS-RIT/findet/pkg/ai"
	"github.com/OFFIS-RIT/findet/pkg/common"
	"github.com/OFFIS-RIT/findet/pkg/extractor"
	"github.com/OFFIS-RIT/findet/pkg/graph"
)

func newGraphClient(t *testing.T) *graph.GraphClient {
	t.Helper()
	gc, err := graph.NewGraphClient(graph.NewGraphClientParams{
		ChunkEnabled:    true,
		ChunkSizeTokens: 20,
	})
	require.NoError(t, err)
	return gc
}

func dirtyGraph() *common.Graph {
	return &common.Graph{
		SchemaVersion: common.SchemaVersion,
		Nodes: []common.Node{
			{ID: "company_1", Type: common.NodeTypeCompany, Name: "Reliance Industries"},
			{ID: "company_2", Type: common.NodeTypeCompany, Name: "Reliance Retail"},
			{ID: "amount_1", Type: common.NodeTypeDollarAmount, Name: "1234"},
			{ID: "company_3", Type: common.NodeTypeCompany, Name: "Lonely Corp"},
		},
		Relationships: []common.Relationship{
			{Source: "company_1", Target: "company_2", Relation: common.RelationOwns},
			{Source: "company_1", Target: "company_2", Relation: common.RelationHasRisk},
			{Source: "company_1", Target: "amount_1", Relation: common.RelationReportsAmount},
		},
	}
}

func TestRunRepairAndClean(t *testing.T) {
	p := &Pipeline{
		Graph: newGraphClient(t),
		Extractor: graph.ExtractorFunc(func(ctx context.Context, text string) (*common.Graph, error) {
			return dirtyGraph(), nil
		}),
	}

	res, err := p.Run(context.Background(), "Reliance Industries owns Reliance Retail.", RunOptions{Clean: true})
	require.NoError(t, err)

	assert.Equal(t, 1, res.TotalChunks)
	assert.Empty(t, res.FailedChunks)
	assert.Equal(t, 1, res.RelationshipsRemoved)
	require.NotNil(t, res.Prune)
	assert.Equal(t, 1, res.Prune.NodesRemoved)
	assert.Equal(t, 1, res.Prune.OrphansRemoved)
	assert.Len(t, res.Graph.Nodes, 2)
	assert.Len(t, res.Graph.Relationships, 1)
	require.NoError(t, graph.ValidateGraph(res.Graph))
}

func TestRunWithoutRepairKeepsGraph(t *testing.T) {
	want := dirtyGraph()
	p := &Pipeline{
		Graph: newGraphClient(t),
		Extractor: graph.ExtractorFunc(func(ctx context.Context, text string) (*common.Graph, error) {
			return want, nil
		}),
	}

	res, err := p.Run(context.Background(), "short", RunOptions{})
	require.NoError(t, err)
	assert.Same(t, want, res.Graph)
	assert.Nil(t, res.Prune)
}

func TestRunEmptyGraphSkipsRepair(t *testing.T) {
	p := &Pipeline{
		Graph: newGraphClient(t),
		Extractor: graph.ExtractorFunc(func(ctx context.Context, text string) (*common.Graph, error) {
			return common.NewGraph(), nil
		}),
	}

	res, err := p.Run(context.Background(), "nothing here", RunOptions{Repair: true})
	require.NoError(t, err)
	assert.Empty(t, res.Graph.Nodes)
}

func TestRunUsesOverrideClient(t *testing.T) {
	var texts []string
	p := &Pipeline{
		Graph: newGraphClient(t),
		Extractor: graph.ExtractorFunc(func(ctx context.Context, text string) (*common.Graph, error) {
			texts = append(texts, text)
			return dirtyGraph(), nil
		}),
	}
	text := strings.Repeat("a", 60) + "\n\n" + strings.Repeat("b", 60)

	res, err := p.Run(context.Background(), text, RunOptions{Graph: p.Graph.WithChunking(false, 20, 0)})
	require.NoError(t, err)
	assert.Equal(t, []string{text}, texts)
	assert.Equal(t, 1, res.TotalChunks)
}

func TestRunPropagatesExtractionError(t *testing.T) {
	boom := errors.New("llm down")
	p := &Pipeline{
		Graph: newGraphClient(t),
		Extractor: graph.ExtractorFunc(func(ctx context.Context, text string) (*common.Graph, error) {
			return nil, boom
		}),
	}

	_, err := p.Run(context.Background(), "short", RunOptions{Repair: true})
	assert.ErrorIs(t, err, boom)
}

func TestNewRequiresCredentials(t *testing.T) {
	cfg := &config.Config{Provider: extractor.ProviderOpenAI, ChunkSizeTokens: 10, ParallelRequests: 1, MaxRetries: 1}
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewOllama(t *testing.T) {
	cfg := &config.Config{
		Provider:         extractor.ProviderOllama,
		OllamaModel:      "llama3:latest",
		OllamaBaseURL:    "http://localhost:11434",
		ChunkEnabled:     true,
		ChunkSizeTokens:  4000,
		ParallelRequests: 2,
		MaxRetries:       1,
	}
	p, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, p.AI)
	assert.NotNil(t, p.Extractor)
	assert.NotNil(t, p.Graph)
}

type closingClient struct {
	ai.GraphAIClient
	closed int
}

func (c *closingClient) Close() error {
	c.closed++
	return nil
}

func TestCloseReleasesBackend(t *testing.T) {
	client := &closingClient{}
	p := &Pipeline{AI: client}
	require.NoError(t, p.Close())
	assert.Equal(t, 1, client.closed)

	ollama, err := New(context.Background(), &config.Config{
		Provider:         extractor.ProviderOllama,
		OllamaModel:      "llama3:latest",
		OllamaBaseURL:    "http://localhost:11434",
		ChunkSizeTokens:  4000,
		ParallelRequests: 1,
		MaxRetries:       1,
	})
	require.NoError(t, err)
	assert.NoError(t, ollama.Close())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "01:02:03", FormatDuration(time.Hour+2*time.Minute+3*time.Second))
	assert.Equal(t, "00:00:00", FormatDuration(0))
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/findet/internal/config"
	"github.com/OFFIS-RIT/findet/internal/pipeline"
	"github.com/OFFIS-RIT/findet/pkg/common"
	"github.com/OFFIS-RIT/findet/pkg/graph"
	"github.com/OFFIS-RIT/findet/pkg/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand("test")
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func fakePipeline(t *testing.T, extract graph.ExtractorFunc) {
	t.Helper()
	prev := newPipeline
	newPipeline = func(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, error) {
		gc, err := graph.NewGraphClient(cfg.GraphClientParams())
		if err != nil {
			return nil, err
		}
		return &pipeline.Pipeline{Graph: gc, Extractor: extract}, nil
	}
	t.Cleanup(func() { newPipeline = prev })
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeGraph(t *testing.T, path string, g *common.Graph) {
	t.Helper()
	data, err := store.EncodeGraph(g)
	require.NoError(t, err)
	writeFile(t, path, string(data))
}

func readGraph(t *testing.T, path string) *common.Graph {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	g, err := store.DecodeGraph(data)
	require.NoError(t, err)
	return g
}

func report() string {
	return strings.Repeat("a", 60) + "\n\n" + strings.Repeat("b", 60) + "\n\n" + strings.Repeat("c", 60)
}

func TestParseS3URI(t *testing.T) {
	bucket, key, err := parseS3URI("s3://reports/2024/annual.txt")
	require.NoError(t, err)
	assert.Equal(t, "reports", bucket)
	assert.Equal(t, "2024/annual.txt", key)

	for _, uri := range []string{"s3://reports", "s3:///key", "reports/key"} {
		_, _, err := parseS3URI(uri)
		assert.Error(t, err, uri)
	}
}

func TestExtractCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	input := filepath.Join(dir, "report.txt")
	output := filepath.Join(dir, "out", "graph.json")
	writeFile(t, input, report())

	var calls atomic.Int32
	fakePipeline(t, func(ctx context.Context, text string) (*common.Graph, error) {
		calls.Add(1)
		if text[0] == 'b' {
			return nil, errors.New("model unavailable")
		}
		return &common.Graph{
			SchemaVersion: common.SchemaVersion,
			Nodes: []common.Node{
				{ID: "company_1", Type: common.NodeTypeCompany, Name: strings.ToUpper(text[:1]) + " Holdings"},
				{ID: "risk_1", Type: common.NodeTypeRiskFactor, Name: "currency risk"},
			},
			Relationships: []common.Relationship{
				{Source: "company_1", Target: "risk_1", Relation: common.RelationHasRisk},
				{Source: "risk_1", Target: "company_1", Relation: common.RelationOwns},
			},
		}, nil
	})

	stdout, err := execute(t, "extract", "--input", input, "--output", output,
		"--chunk-size", "20", "--overlap", "0", "--json")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())

	var summary RunSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, 3, summary.TotalChunks)
	assert.Equal(t, []int{2}, summary.FailedChunks)
	assert.Equal(t, 3, summary.Nodes)
	assert.Equal(t, 2, summary.NodesByType["Company"])
	assert.Equal(t, 2, summary.RelationshipsRemoved)
	assert.Nil(t, summary.Prune)

	g := readGraph(t, output)
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Relationships, 2)
	require.NoError(t, graph.ValidateGraph(g))
}

func TestExtractCommandNoChunk(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	input := filepath.Join(dir, "report.txt")
	output := filepath.Join(dir, "graph.json")
	writeFile(t, input, report())

	fakePipeline(t, func(ctx context.Context, text string) (*common.Graph, error) {
		assert.Equal(t, report(), text)
		return &common.Graph{
			SchemaVersion: common.SchemaVersion,
			Nodes: []common.Node{
				{ID: "company_1", Type: common.NodeTypeCompany, Name: "Acme"},
				{ID: "amount_1", Type: common.NodeTypeDollarAmount, Name: "42"},
			},
		}, nil
	})

	stdout, err := execute(t, "extract", "-i", input, "-o", output, "--no-chunk", "--clean")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Chunks:         1")
	assert.Contains(t, stdout, "Pruned:")

	g := readGraph(t, output)
	assert.Empty(t, g.Nodes)
}

func TestExtractCommandErrors(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	empty := filepath.Join(dir, "empty.txt")
	writeFile(t, empty, "  \n")
	fakePipeline(t, func(ctx context.Context, text string) (*common.Graph, error) {
		return nil, errors.New("must not be called")
	})

	_, err := execute(t, "extract", "-i", filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)

	_, err = execute(t, "extract", "-i", empty)
	assert.ErrorContains(t, err, "no text")

	_, err = execute(t, "extract", "-i", empty, "--chunk-size", "10", "--overlap", "10")
	assert.ErrorContains(t, err, "--overlap")
}

func TestExtractCommandAllChunksFail(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	input := filepath.Join(dir, "report.txt")
	writeFile(t, input, report())
	fakePipeline(t, func(ctx context.Context, text string) (*common.Graph, error) {
		return nil, errors.New("bad response")
	})

	_, err := execute(t, "extract", "-i", input, "-o", filepath.Join(dir, "graph.json"), "--chunk-size", "20", "--overlap", "0")
	assert.True(t, errors.Is(err, graph.ErrAllChunksFailed))
}

func relianceGraph() *common.Graph {
	return &common.Graph{
		SchemaVersion: common.SchemaVersion,
		Nodes: []common.Node{
			{ID: "company_1", Type: common.NodeTypeCompany, Name: "Reliance Industries"},
			{ID: "company_2", Type: common.NodeTypeCompany, Name: "Reliance Retail"},
			{ID: "amount_1", Type: common.NodeTypeDollarAmount, Name: "1234"},
		},
		Relationships: []common.Relationship{
			{Source: "company_1", Target: "company_2", Relation: common.RelationOwns},
			{Source: "company_1", Target: "company_2", Relation: common.RelationHasRisk},
			{Source: "company_1", Target: "amount_1", Relation: common.RelationReportsAmount},
		},
	}
}

func TestRepairCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "graph.json")
	out := filepath.Join(dir, "repaired.json")
	writeGraph(t, in, relianceGraph())

	stdout, err := execute(t, "repair", in, "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Removed 1 of 3 relationships")
	assert.Len(t, readGraph(t, out).Relationships, 2)
	assert.Len(t, readGraph(t, in).Relationships, 3)
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid.json")
	writeGraph(t, valid, relianceGraph())

	stdout, err := execute(t, "validate", valid)
	require.NoError(t, err)
	assert.Contains(t, stdout, "is valid")

	dangling := relianceGraph()
	dangling.Relationships = append(dangling.Relationships, common.Relationship{
		Source: "company_1", Target: "ghost", Relation: common.RelationOwns,
	})
	invalid := filepath.Join(dir, "invalid.json")
	writeGraph(t, invalid, dangling)

	_, err = execute(t, "validate", invalid)
	assert.True(t, errors.Is(err, graph.ErrDanglingReference))

	_, err = execute(t, "validate", filepath.Join(dir, "missing.json"))
	assert.True(t, errors.Is(err, store.ErrGraphNotFound))
}

func TestMergeCommand(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.json")
	out := filepath.Join(dir, "merged.json")
	writeGraph(t, a, relianceGraph())
	writeGraph(t, b, &common.Graph{
		SchemaVersion: common.SchemaVersion,
		Nodes: []common.Node{
			{ID: "company_1", Type: common.NodeTypeCompany, Name: "Reliance Retail"},
			{ID: "risk_1", Type: common.NodeTypeRiskFactor, Name: "market risk"},
		},
		Relationships: []common.Relationship{
			{Source: "company_1", Target: "risk_1", Relation: common.RelationHasRisk},
		},
	})

	_, err := execute(t, "merge", a, b)
	assert.Error(t, err)

	stdout, err := execute(t, "merge", a, b, "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Merged 2 graphs")

	merged := readGraph(t, out)
	assert.Len(t, merged.Nodes, 4)
	assert.Equal(t, "company_2", merged.Relationships[len(merged.Relationships)-1].Source)
}

func TestCleanCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "graph.json")
	writeGraph(t, in, relianceGraph())

	stdout, err := execute(t, "clean", in)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Pruned 1 nodes")

	g := readGraph(t, in)
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Relationships, 1)
}

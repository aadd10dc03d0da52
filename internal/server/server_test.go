package server

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/findet/internal/pipeline"
	mid "github.com/OFFIS-RIT/findet/internal/server/middleware"
	"github.com/OFFIS-RIT/findet/internal/util"
	"github.com/OFFIS-RIT/findet/pkg/common"
	"github.com/OFFIS-RIT/findet/pkg/graph"
)

const masterKey = "test-master-key"

type fakeJobs struct {
	mu        sync.Mutex
	submitted map[string]string
	links     map[string]string
	err       error
}

func (f *fakeJobs) Submit(ctx context.Context, jobID, text string, clean bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.submitted == nil {
		f.submitted = make(map[string]string)
	}
	f.submitted[jobID] = text
	return nil
}

func (f *fakeJobs) GraphLink(ctx context.Context, jobID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[jobID]
	if !ok {
		return "", mid.ErrJobNotFound
	}
	return link, nil
}

func testPipeline(t *testing.T, extract graph.ExtractorFunc) *pipeline.Pipeline {
	t.Helper()
	gc, err := graph.NewGraphClient(graph.NewGraphClientParams{
		ChunkEnabled:    true,
		ChunkSizeTokens: 1000,
	})
	require.NoError(t, err)
	return &pipeline.Pipeline{Graph: gc, Extractor: extract}
}

func relianceGraph() *common.Graph {
	return &common.Graph{
		SchemaVersion: common.SchemaVersion,
		Nodes: []common.Node{
			{ID: "company_1", Type: common.NodeTypeCompany, Name: "Reliance Industries"},
			{ID: "company_2", Type: common.NodeTypeCompany, Name: "Reliance Retail"},
		},
		Relationships: []common.Relationship{
			{Source: "company_1", Target: "company_2", Relation: common.RelationOwns},
			{Source: "company_1", Target: "company_2", Relation: common.RelationHasRisk},
		},
	}
}

func do(t *testing.T, app *mid.App, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(data))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	New(app).ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	rec := do(t, &mid.App{}, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAuthRequired(t *testing.T) {
	app := &mid.App{MasterAPIKey: masterKey}

	rec := do(t, app, http.MethodPost, "/api/graphs/validate", "", map[string]any{"graph": relianceGraph()})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, app, http.MethodPost, "/api/graphs/validate", "wrong", map[string]any{"graph": relianceGraph()})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExtract(t *testing.T) {
	app := &mid.App{
		MasterAPIKey: masterKey,
		Pipeline: testPipeline(t, func(ctx context.Context, text string) (*common.Graph, error) {
			return relianceGraph(), nil
		}),
	}

	rec := do(t, app, http.MethodPost, "/api/extract", masterKey, map[string]any{
		"text": "Reliance Industries owns Reliance Retail.",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		Graph                common.Graph `json:"graph"`
		TotalChunks          int          `json:"total_chunks"`
		FailedChunks         []int        `json:"failed_chunks"`
		RelationshipsRemoved int          `json:"relationships_removed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.TotalChunks)
	assert.Empty(t, res.FailedChunks)
	assert.Equal(t, 1, res.RelationshipsRemoved)
	assert.Len(t, res.Graph.Nodes, 2)
	assert.Len(t, res.Graph.Relationships, 1)
}

func TestExtractWithoutRepair(t *testing.T) {
	app := &mid.App{
		MasterAPIKey: masterKey,
		Pipeline: testPipeline(t, func(ctx context.Context, text string) (*common.Graph, error) {
			return relianceGraph(), nil
		}),
	}

	rec := do(t, app, http.MethodPost, "/api/extract", masterKey, map[string]any{
		"text":   "Reliance Industries owns Reliance Retail.",
		"repair": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Len(t, out["graph"].(map[string]any)["relationships"], 2)
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   map[string]any
		err    error
		status int
	}{
		{name: "missing text", body: map[string]any{}, status: http.StatusBadRequest},
		{name: "invalid parallel", body: map[string]any{"text": "x", "parallel": 0}, status: http.StatusBadRequest},
		{
			name:   "overlap too large",
			body:   map[string]any{"text": strings.Repeat("word ", 20), "chunk_size_tokens": 10, "chunk_overlap_tokens": 10},
			status: http.StatusBadRequest,
		},
		{name: "model failure", body: map[string]any{"text": "x"}, err: errors.New("boom"), status: http.StatusInternalServerError},
		{name: "timeout", body: map[string]any{"text": "x"}, err: context.DeadlineExceeded, status: http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &mid.App{
				MasterAPIKey: masterKey,
				Pipeline: testPipeline(t, func(ctx context.Context, text string) (*common.Graph, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return relianceGraph(), nil
				}),
			}
			rec := do(t, app, http.MethodPost, "/api/extract", masterKey, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestExtractNotConfigured(t *testing.T) {
	rec := do(t, &mid.App{MasterAPIKey: masterKey}, http.MethodPost, "/api/extract", masterKey, map[string]any{"text": "x"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGraphRoutes(t *testing.T) {
	app := &mid.App{MasterAPIKey: masterKey}

	t.Run("validate ok", func(t *testing.T) {
		rec := do(t, app, http.MethodPost, "/api/graphs/validate", masterKey, map[string]any{"graph": relianceGraph()})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decode(t, rec)["valid"])
	})

	t.Run("validate dangling", func(t *testing.T) {
		g := relianceGraph()
		g.Relationships = append(g.Relationships, common.Relationship{
			Source: "company_1", Target: "ghost", Relation: common.RelationOwns,
		})
		rec := do(t, app, http.MethodPost, "/api/graphs/validate", masterKey, map[string]any{"graph": g})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, false, decode(t, rec)["valid"])
	})

	t.Run("validate empty", func(t *testing.T) {
		rec := do(t, app, http.MethodPost, "/api/graphs/validate", masterKey, map[string]any{"graph": common.NewGraph()})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("repair", func(t *testing.T) {
		rec := do(t, app, http.MethodPost, "/api/graphs/repair", masterKey, map[string]any{"graph": relianceGraph()})
		require.Equal(t, http.StatusOK, rec.Code)
		out := decode(t, rec)
		assert.Equal(t, float64(1), out["relationships_removed"])
	})

	t.Run("clean", func(t *testing.T) {
		g := relianceGraph()
		g.Nodes = append(g.Nodes, common.Node{ID: "amount_1", Type: common.NodeTypeDollarAmount, Name: "1234"})
		rec := do(t, app, http.MethodPost, "/api/graphs/clean", masterKey, map[string]any{"graph": g})
		require.Equal(t, http.StatusOK, rec.Code)
		out := decode(t, rec)
		assert.Len(t, out["graph"].(map[string]any)["nodes"], 2)
		prune := out["prune"].(map[string]any)
		assert.Equal(t, float64(1), prune["nodes_removed"])
	})

	t.Run("merge", func(t *testing.T) {
		other := &common.Graph{
			SchemaVersion: common.SchemaVersion,
			Nodes:         []common.Node{{ID: "company_1", Type: common.NodeTypeCompany, Name: "Reliance Retail"}},
		}
		rec := do(t, app, http.MethodPost, "/api/graphs/merge", masterKey, map[string]any{
			"graphs": []*common.Graph{relianceGraph(), other},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode(t, rec)["graph"].(map[string]any)["nodes"], 2)
	})

	t.Run("merge nothing", func(t *testing.T) {
		rec := do(t, app, http.MethodPost, "/api/graphs/merge", masterKey, map[string]any{"graphs": []any{}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestJobs(t *testing.T) {
	jobs := &fakeJobs{links: map[string]string{}}
	app := &mid.App{MasterAPIKey: masterKey, Jobs: jobs}

	rec := do(t, app, http.MethodPost, "/api/jobs", masterKey, map[string]any{"text": "annual report"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID := decode(t, rec)["job_id"].(string)
	assert.True(t, util.IsNanoid(jobID))
	assert.Equal(t, "annual report", jobs.submitted[jobID])

	rec = do(t, app, http.MethodGet, "/api/jobs/"+jobID, masterKey, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	jobs.links[jobID] = "https://s3.example.com/jobs/" + jobID + "/graph.json"
	rec = do(t, app, http.MethodGet, "/api/jobs/"+jobID, masterKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, jobs.links[jobID], decode(t, rec)["url"])

	rec = do(t, app, http.MethodGet, "/api/jobs/not-a-job", masterKey, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobsSubmitFailure(t *testing.T) {
	app := &mid.App{MasterAPIKey: masterKey, Jobs: &fakeJobs{err: errors.New("bucket unavailable")}}
	rec := do(t, app, http.MethodPost, "/api/jobs", masterKey, map[string]any{"text": "annual report"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func newJWKS(t *testing.T) (keyfunc.Keyfunc, *rsa.PrivateKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	enc := base64.RawURLEncoding
	jwks := map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"kid": "test",
			"alg": "RS256",
			"use": "sig",
			"n":   enc.EncodeToString(priv.N.Bytes()),
			"e":   enc.EncodeToString(big.NewInt(int64(priv.E)).Bytes()),
		}},
	}
	raw, err := json.Marshal(jwks)
	require.NoError(t, err)

	k, err := keyfunc.NewJWKSetJSON(raw)
	require.NoError(t, err)
	return k, priv
}

func signToken(t *testing.T, priv *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = "test"
	signed, err := token.SignedString(priv)
	require.NoError(t, err)
	return signed
}

func TestJWTPermissions(t *testing.T) {
	k, priv := newJWKS(t)
	jobs := &fakeJobs{links: map[string]string{}}
	app := &mid.App{Key: k, Jobs: jobs}
	exp := time.Now().Add(time.Hour).Unix()

	viewer := signToken(t, priv, jwt.MapClaims{"sub": "user-1", "permissions": []string{"job.view"}, "exp": exp})
	rec := do(t, app, http.MethodPost, "/api/jobs", viewer, map[string]any{"text": "annual report"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	jobID, err := util.NewID()
	require.NoError(t, err)
	rec = do(t, app, http.MethodGet, "/api/jobs/"+jobID, viewer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	admin := signToken(t, priv, jwt.MapClaims{"sub": "admin-1", "role": "admin", "exp": exp})
	rec = do(t, app, http.MethodPost, "/api/jobs", admin, map[string]any{"text": "annual report"})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	expired := signToken(t, priv, jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(-time.Hour).Unix()})
	rec = do(t, app, http.MethodGet, "/api/jobs/"+jobID, expired, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	anonymous := signToken(t, priv, jwt.MapClaims{"exp": exp})
	rec = do(t, app, http.MethodGet, "/api/jobs/"+jobID, anonymous, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

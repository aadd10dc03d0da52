package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/findet/internal/pipeline"
	"github.com/OFFIS-RIT/findet/pkg/common"
	"github.com/OFFIS-RIT/findet/pkg/graph"
	"github.com/OFFIS-RIT/findet/pkg/loader"
	"github.com/OFFIS-RIT/findet/pkg/store"
)

const jobID = "sGvgBXbBcVCjBIKCLS2Os"

type published struct {
	exchange string
	key      string
	msg      amqp091.Publishing
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *fakePublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

type fakeAcker struct {
	acked, nacked, requeued bool
}

func (a *fakeAcker) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}

func (a *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked = true
	a.requeued = requeue
	return nil
}

func (a *fakeAcker) Reject(tag uint64, requeue bool) error {
	return nil
}

type textLoader map[string]string

func (l textLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	text, ok := l[file.FilePath]
	if !ok {
		return nil, errors.New("no such object")
	}
	return []byte(text), nil
}

type memoryStorage struct {
	mu     sync.Mutex
	graphs map[string]*common.Graph
	saves  map[string]int
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{graphs: map[string]*common.Graph{}, saves: map[string]int{}}
}

func (s *memoryStorage) SaveGraph(ctx context.Context, key string, g *common.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[key] = g
	s.saves[key]++
	return nil
}

func (s *memoryStorage) LoadGraph(ctx context.Context, key string) (*common.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.graphs[key]
	if !ok {
		return nil, store.ErrGraphNotFound
	}
	return g, nil
}

func testPipeline(t *testing.T, fn graph.ExtractorFunc) *pipeline.Pipeline {
	t.Helper()
	gc, err := graph.NewGraphClient(graph.NewGraphClientParams{ChunkEnabled: true, ChunkSizeTokens: 20})
	require.NoError(t, err)
	return &pipeline.Pipeline{Graph: gc, Extractor: fn}
}

func jobBody(t *testing.T) []byte {
	t.Helper()
	b, err := json.Marshal(ExtractJobMsg{JobID: jobID, InputKey: "jobs/in.txt", OutputKey: "jobs/graph.json"})
	require.NoError(t, err)
	return b
}

func TestParseExtractJobMsg(t *testing.T) {
	_, err := ParseExtractJobMsg([]byte(`{`))
	assert.Error(t, err)

	_, err = ParseExtractJobMsg([]byte(`{"job_id":"short","input_key":"a","output_key":"b"}`))
	assert.Error(t, err)

	_, err = ParseExtractJobMsg([]byte(`{"job_id":"` + jobID + `","input_key":"a"}`))
	assert.Error(t, err)

	msg, err := ParseExtractJobMsg([]byte(`{"job_id":"` + jobID + `","input_key":"a","output_key":"b","clean":true}`))
	require.NoError(t, err)
	assert.True(t, msg.Clean)
}

func TestExtractHandlerHandle(t *testing.T) {
	text := strings.Repeat("a", 60) + "\n\n" + strings.Repeat("b", 60)
	graphs := newMemoryStorage()
	archive := newMemoryStorage()
	pub := &fakePublisher{}

	h := &ExtractHandler{
		Pipeline: testPipeline(t, func(ctx context.Context, chunk string) (*common.Graph, error) {
			g := common.NewGraph()
			g.Nodes = append(g.Nodes,
				common.Node{ID: "c1", Type: common.NodeTypeCompany, Name: "Acme"},
				common.Node{ID: "c2", Type: common.NodeTypeCompany, Name: string(chunk[0]) + " Holdings"},
			)
			g.Relationships = append(g.Relationships,
				common.Relationship{Source: "c1", Target: "c2", Relation: common.RelationOwns},
				common.Relationship{Source: "c1", Target: "c2", Relation: common.RelationHasRisk},
			)
			return g, nil
		}),
		Texts:     textLoader{"jobs/in.txt": text},
		Graphs:    graphs,
		Archive:   archive,
		Publisher: pub,
	}

	require.NoError(t, h.Handle(context.Background(), jobBody(t)))

	assert.Equal(t, 3, graphs.saves["jobs/graph.json"])
	final := graphs.graphs["jobs/graph.json"]
	require.NotNil(t, final)
	assert.Len(t, final.Nodes, 3)
	assert.Len(t, final.Relationships, 2)
	assert.Same(t, final, archive.graphs[jobID])

	require.Len(t, pub.sent, 3)
	assert.Equal(t, TopicExchange, pub.sent[0].exchange)
	assert.Equal(t, ProgressTopic(jobID), pub.sent[0].key)
	assert.Equal(t, ProgressTopic(jobID), pub.sent[1].key)
	assert.Equal(t, CompletedTopic(jobID), pub.sent[2].key)

	var progress ProgressMsg
	require.NoError(t, json.Unmarshal(pub.sent[1].msg.Body, &progress))
	assert.Equal(t, ProgressMsg{JobID: jobID, Chunk: 2, Total: 2, Nodes: 3, Relationships: 4}, progress)

	var done CompletedMsg
	require.NoError(t, json.Unmarshal(pub.sent[2].msg.Body, &done))
	assert.Equal(t, 2, done.TotalChunks)
	assert.Equal(t, []int{}, done.FailedChunks)
	assert.Equal(t, 2, done.RelationshipsRemoved)
}

func TestExtractHandlerMissingInput(t *testing.T) {
	h := &ExtractHandler{
		Pipeline: testPipeline(t, func(ctx context.Context, chunk string) (*common.Graph, error) {
			t.Fatal("extractor must not run without input")
			return nil, nil
		}),
		Texts:  textLoader{},
		Graphs: newMemoryStorage(),
	}
	assert.Error(t, h.Handle(context.Background(), jobBody(t)))
}

func TestExtractHandlerAllChunksFail(t *testing.T) {
	graphs := newMemoryStorage()
	h := &ExtractHandler{
		Pipeline: testPipeline(t, func(ctx context.Context, chunk string) (*common.Graph, error) {
			return nil, errors.New("model unavailable")
		}),
		Texts:  textLoader{"jobs/in.txt": "Acme reported revenue."},
		Graphs: graphs,
	}

	err := h.Handle(context.Background(), jobBody(t))
	assert.Error(t, err)
	assert.Empty(t, graphs.graphs)
}

type fakeLocker struct {
	keys []string
	err  error
}

func (l *fakeLocker) WithLease(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return l.err
	}
	return fn(ctx)
}

func TestExtractHandlerHoldsLease(t *testing.T) {
	busy := errors.New("lease is held by another worker")
	calls := 0
	newHandler := func(locks *fakeLocker) *ExtractHandler {
		return &ExtractHandler{
			Pipeline: testPipeline(t, func(ctx context.Context, chunk string) (*common.Graph, error) {
				calls++
				g := common.NewGraph()
				g.Nodes = append(g.Nodes, common.Node{ID: "c1", Type: common.NodeTypeCompany, Name: "Acme"})
				return g, nil
			}),
			Texts:  textLoader{"jobs/in.txt": "Acme reported revenue."},
			Graphs: newMemoryStorage(),
			Locks:  locks,
		}
	}

	locks := &fakeLocker{}
	require.NoError(t, newHandler(locks).Handle(context.Background(), jobBody(t)))
	assert.Equal(t, []string{"extract:" + jobID}, locks.keys)
	assert.Equal(t, 1, calls)

	err := newHandler(&fakeLocker{err: busy}).Handle(context.Background(), jobBody(t))
	assert.True(t, errors.Is(err, busy))
	assert.Equal(t, 1, calls)
}

func TestHandleProcessingErrorRetries(t *testing.T) {
	pub := &fakePublisher{}
	acker := &fakeAcker{}
	msg := amqp091.Delivery{Acknowledger: acker, Body: []byte("job"), Headers: amqp091.Table{"x-retries": int64(1)}}

	HandleProcessingError(context.Background(), pub, msg, ExtractQueue)

	require.Len(t, pub.sent, 1)
	assert.Equal(t, "extract_queue_retry", pub.sent[0].key)
	assert.Equal(t, int32(2), pub.sent[0].msg.Headers["x-retries"])
	assert.Equal(t, int64(1), msg.Headers["x-retries"])
	assert.True(t, acker.acked)
}

func TestHandleProcessingErrorDeadLetters(t *testing.T) {
	pub := &fakePublisher{}
	acker := &fakeAcker{}
	msg := amqp091.Delivery{Acknowledger: acker, Body: []byte("job"), Headers: amqp091.Table{"x-retries": int32(MaxDeliveryRetries)}}

	HandleProcessingError(context.Background(), pub, msg, ExtractQueue)

	require.Len(t, pub.sent, 1)
	assert.Equal(t, "extract_queue_dlq", pub.sent[0].key)
	assert.True(t, acker.acked)
}

func TestHandleProcessingErrorRequeuesOnPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	acker := &fakeAcker{}
	msg := amqp091.Delivery{Acknowledger: acker, Body: []byte("job")}

	HandleProcessingError(context.Background(), pub, msg, ExtractQueue)

	assert.False(t, acker.acked)
	assert.True(t, acker.nacked)
	assert.True(t, acker.requeued)
}

func TestPublishFIFO(t *testing.T) {
	pub := &fakePublisher{}
	require.NoError(t, PublishFIFO(context.Background(), pub, ExtractQueue, []byte(`{}`)))
	require.Len(t, pub.sent, 1)
	assert.Equal(t, "", pub.sent[0].exchange)
	assert.Equal(t, ExtractQueue, pub.sent[0].key)
	assert.Equal(t, amqp091.Persistent, pub.sent[0].msg.DeliveryMode)
}

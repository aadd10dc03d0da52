package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/findet/internal/pipeline"
	"github.com/OFFIS-RIT/findet/internal/util"
	"github.com/OFFIS-RIT/findet/pkg/common"
	"github.com/OFFIS-RIT/findet/pkg/loader"
	"github.com/OFFIS-RIT/findet/pkg/logger"
	"github.com/OFFIS-RIT/findet/pkg/store"
)

// ExtractJobMsg is the body of a message on the extract queue.
type ExtractJobMsg struct {
	JobID     string `json:"job_id"`
	InputKey  string `json:"input_key"`
	OutputKey string `json:"output_key"`
	Clean     bool   `json:"clean,omitempty"`
}

// ProgressMsg is published on extract.<job_id>.progress after every chunk.
type ProgressMsg struct {
	JobID         string `json:"job_id"`
	Chunk         int    `json:"chunk"`
	Total         int    `json:"total"`
	Nodes         int    `json:"nodes"`
	Relationships int    `json:"relationships"`
}

// CompletedMsg is published on extract.<job_id>.completed.
type CompletedMsg struct {
	JobID                string `json:"job_id"`
	OutputKey            string `json:"output_key"`
	TotalChunks          int    `json:"total_chunks"`
	FailedChunks         []int  `json:"failed_chunks"`
	Nodes                int    `json:"nodes"`
	Relationships        int    `json:"relationships"`
	RelationshipsRemoved int    `json:"relationships_removed"`
}

func ProgressTopic(jobID string) string {
	return "extract." + jobID + ".progress"
}

func CompletedTopic(jobID string) string {
	return "extract." + jobID + ".completed"
}

// Locker runs fn while no other worker runs a function for the same key.
type Locker interface {
	WithLease(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// ExtractHandler runs extraction jobs. Texts loads job input, Graphs
// receives partial and final graphs, and Archive, when set, receives a copy
// of the final graph keyed by job id. Locks, when set, keeps a redelivered
// job from running twice at the same time.
type ExtractHandler struct {
	Pipeline  *pipeline.Pipeline
	Texts     loader.GraphFileLoader
	Graphs    store.GraphStorage
	Archive   store.GraphStorage
	Publisher Publisher
	Locks     Locker
}

func ParseExtractJobMsg(body []byte) (*ExtractJobMsg, error) {
	var data ExtractJobMsg
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode job message: %w", err)
	}
	if !util.IsNanoid(data.JobID) {
		return nil, fmt.Errorf("invalid job id %q", data.JobID)
	}
	if data.InputKey == "" || data.OutputKey == "" {
		return nil, errors.New("job message needs input_key and output_key")
	}
	return &data, nil
}

// Handle processes one message body. Returning an error sends the message
// through the retry queue.
func (h *ExtractHandler) Handle(ctx context.Context, body []byte) error {
	msg, err := ParseExtractJobMsg(body)
	if err != nil {
		return err
	}

	if h.Locks != nil {
		return h.Locks.WithLease(ctx, "extract:"+msg.JobID, func(ctx context.Context) error {
			return h.run(ctx, msg)
		})
	}
	return h.run(ctx, msg)
}

func (h *ExtractHandler) run(ctx context.Context, msg *ExtractJobMsg) error {
	logger.Info("[Worker] Starting extraction", "job_id", msg.JobID, "input", msg.InputKey)

	text, err := loader.NewGraphFile(msg.JobID, msg.InputKey, h.Texts).GetText(ctx)
	if err != nil {
		return err
	}

	progress := func(merged *common.Graph, chunk, total int) {
		if err := h.Graphs.SaveGraph(ctx, msg.OutputKey, merged); err != nil {
			logger.Error("[Worker] Failed to save partial graph", "job_id", msg.JobID, "chunk", chunk, "err", err)
		}
		h.publish(ctx, ProgressTopic(msg.JobID), ProgressMsg{
			JobID:         msg.JobID,
			Chunk:         chunk,
			Total:         total,
			Nodes:         len(merged.Nodes),
			Relationships: len(merged.Relationships),
		})
		logger.Info("[Worker] Chunk processed", "job_id", msg.JobID, "chunk", chunk, "total", total)
	}

	res, err := h.Pipeline.Run(ctx, text, pipeline.RunOptions{
		Repair:   true,
		Clean:    msg.Clean,
		Progress: progress,
	})
	if err != nil {
		return fmt.Errorf("extraction of job %s failed: %w", msg.JobID, err)
	}

	err = util.RetryErrWithContext(ctx, 3, func(ctx context.Context) error {
		return h.Graphs.SaveGraph(ctx, msg.OutputKey, res.Graph)
	})
	if err != nil {
		return fmt.Errorf("failed to save graph of job %s: %w", msg.JobID, err)
	}

	if h.Archive != nil {
		if err := h.Archive.SaveGraph(ctx, msg.JobID, res.Graph); err != nil {
			return fmt.Errorf("failed to archive graph of job %s: %w", msg.JobID, err)
		}
	}

	failed := res.FailedChunks
	if failed == nil {
		failed = []int{}
	}
	h.publish(ctx, CompletedTopic(msg.JobID), CompletedMsg{
		JobID:                msg.JobID,
		OutputKey:            msg.OutputKey,
		TotalChunks:          res.TotalChunks,
		FailedChunks:         failed,
		Nodes:                len(res.Graph.Nodes),
		Relationships:        len(res.Graph.Relationships),
		RelationshipsRemoved: res.RelationshipsRemoved,
	})

	logger.Info("[Worker] Extraction completed", "job_id", msg.JobID, "nodes", len(res.Graph.Nodes),
		"relationships", len(res.Graph.Relationships), "failed_chunks", failed,
		"duration", pipeline.FormatDuration(res.Duration))
	return nil
}

func (h *ExtractHandler) publish(ctx context.Context, topic string, payload any) {
	if h.Publisher == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		logger.Error("[Worker] Failed to encode event", "topic", topic, "err", err)
		return
	}
	if err := PublishTopic(ctx, h.Publisher, topic, b); err != nil {
		logger.Error("[Worker] Failed to publish event", "topic", topic, "err", err)
	}
}

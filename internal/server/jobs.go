package server

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/OFFIS-RIT/findet/internal/queue"
	mid "github.com/OFFIS-RIT/findet/internal/server/middleware"
	"github.com/OFFIS-RIT/findet/internal/storage"
)

// S3Jobs keeps job input and output in S3 and hands jobs to the worker
// through the extract queue.
type S3Jobs struct {
	Client         *s3.Client
	Bucket         string
	PublicEndpoint string
	Queue          queue.Publisher
}

func (j *S3Jobs) Submit(ctx context.Context, jobID, text string, clean bool) error {
	inputKey := storage.JobInputKey(jobID)
	if err := storage.PutFile(ctx, j.Client, j.Bucket, inputKey, "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		return err
	}

	msg, err := json.Marshal(queue.ExtractJobMsg{
		JobID:     jobID,
		InputKey:  inputKey,
		OutputKey: storage.JobGraphKey(jobID),
		Clean:     clean,
	})
	if err != nil {
		return err
	}
	return queue.PublishFIFO(ctx, j.Queue, queue.ExtractQueue, msg)
}

func (j *S3Jobs) GraphLink(ctx context.Context, jobID string) (string, error) {
	key := storage.JobGraphKey(jobID)
	ok, err := storage.FileExists(ctx, j.Client, j.Bucket, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", mid.ErrJobNotFound
	}
	return storage.GenerateDownloadLink(ctx, j.Client, j.Bucket, j.PublicEndpoint, key)
}

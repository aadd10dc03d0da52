package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/OFFIS-RIT/findet/pkg/common"
	"github.com/OFFIS-RIT/findet/pkg/logger"
	"github.com/OFFIS-RIT/findet/pkg/store"
)

// ObjectAPI is the subset of the S3 client used for graph documents.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// GraphS3Storage stores graphs as JSON objects in a single bucket.
type GraphS3Storage struct {
	bucket string
	client ObjectAPI
}

func NewGraphS3Storage(bucket string, client ObjectAPI) *GraphS3Storage {
	return &GraphS3Storage{
		bucket: bucket,
		client: client,
	}
}

func (s *GraphS3Storage) SaveGraph(ctx context.Context, key string, g *common.Graph) error {
	data, err := store.EncodeGraph(g)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload graph to S3: %w", err)
	}

	logger.Debug("[Store][S3] Saved graph", "bucket", s.bucket, "key", key, "nodes", len(g.Nodes))
	return nil
}

func (s *GraphS3Storage) LoadGraph(ctx context.Context, key string) (*common.Graph, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", store.ErrGraphNotFound, key)
		}
		return nil, fmt.Errorf("failed to get graph from S3: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph: %w", err)
	}
	return store.DecodeGraph(data)
}

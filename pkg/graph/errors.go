package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrAllChunksFailed   = errors.New("all chunks failed")
	ErrEmptyGraph        = errors.New("graph must contain at least one node")
	ErrDuplicateNodeID   = errors.New("duplicate node ids")
	ErrDanglingReference = errors.New("invalid node references in relationships")
)

func invalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}

// ChunkFailure records a chunk whose extraction failed. Index is 1-based.
type ChunkFailure struct {
	Index int
	Err   error
}

func (f ChunkFailure) Error() string {
	return fmt.Sprintf("chunk %d: %v", f.Index, f.Err)
}

func (f ChunkFailure) Unwrap() error {
	return f.Err
}

// AllChunksFailedError is returned when no chunk of a document could be
// extracted.
type AllChunksFailedError struct {
	Total    int
	Failures []ChunkFailure
}

func (e *AllChunksFailedError) Error() string {
	return fmt.Sprintf(
		"all %d chunks failed to extract, check LLM connection and prompt compatibility",
		e.Total,
	)
}

func (e *AllChunksFailedError) Unwrap() error {
	return ErrAllChunksFailed
}

// DuplicateNodeIDError lists node ids that occur more than once.
type DuplicateNodeIDError struct {
	IDs []string
}

func (e *DuplicateNodeIDError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDuplicateNodeID, strings.Join(e.IDs, ", "))
}

func (e *DuplicateNodeIDError) Unwrap() error {
	return ErrDuplicateNodeID
}

// DanglingReferenceError lists relationship endpoints that point to no node.
// Each entry reads "source->target".
type DanglingReferenceError struct {
	References []string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDanglingReference, strings.Join(e.References, ", "))
}

func (e *DanglingReferenceError) Unwrap() error {
	return ErrDanglingReference
}

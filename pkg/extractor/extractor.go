package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/findet/pkg/ai"
	"github.com/OFFIS-RIT/findet/pkg/common"
)

var ErrEmptyText = errors.New("text to extract from is empty")

// LLMExtractor extracts financial graphs from text with a language model.
// It implements graph.Extractor.
type LLMExtractor struct {
	client  ai.GraphAIClient
	model   string
	timeout time.Duration
}

// NewLLMExtractorParams configures an LLMExtractor.
//
// Model overrides the backend default. Timeout bounds a single model call;
// zero disables it.
type NewLLMExtractorParams struct {
	Client  ai.GraphAIClient
	Model   string
	Timeout time.Duration
}

func NewLLMExtractor(params NewLLMExtractorParams) (*LLMExtractor, error) {
	if params.Client == nil {
		return nil, errors.New("ai client is required")
	}
	return &LLMExtractor{
		client:  params.Client,
		model:   params.Model,
		timeout: params.Timeout,
	}, nil
}

// Extract asks the model for the graph contained in text.
func (e *LLMExtractor) Extract(ctx context.Context, text string) (*common.Graph, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	opts := []ai.GenerateOption{
		ai.WithSystemPrompts(ai.ExtractGraphPrompt),
		ai.WithTemperature(0),
	}
	if e.model != "" {
		opts = append(opts, ai.WithModel(e.model))
	}

	var resp extractResponse
	err := e.client.GenerateCompletionWithFormat(
		ctx,
		"knowledge_graph",
		"Knowledge graph of companies, risk factors and monetary amounts in a financial text",
		text,
		&resp,
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to extract graph from text: %w", err)
	}

	return resp.toGraph(), nil
}

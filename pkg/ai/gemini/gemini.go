package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/findet/pkg/ai"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GraphGeminiClient implements ai.GraphAIClient with Google's Gemini API.
type GraphGeminiClient struct {
	ai.MetricsRecorder

	extractionModel string

	// send issues the request; tests replace it to avoid the network.
	send func(ctx context.Context, m *genai.GenerativeModel, parts ...genai.Part) (*genai.GenerateContentResponse, error)

	Client *genai.Client
}

// NewGraphGeminiClientParams contains configuration options for creating a new GraphGeminiClient.
type NewGraphGeminiClientParams struct {
	ExtractionModel string
	ApiKey          string
}

// NewGraphGeminiClient creates a Gemini client. Close must be called when
// the client is no longer used.
func NewGraphGeminiClient(
	ctx context.Context,
	params NewGraphGeminiClientParams,
) (*GraphGeminiClient, error) {
	if params.ApiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(params.ApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := params.ExtractionModel
	if model == "" {
		model = "gemini-2.0-flash"
	}

	return &GraphGeminiClient{
		extractionModel: model,
		send:            sendContent,
		Client:          client,
	}, nil
}

// Close releases the underlying connection.
func (c *GraphGeminiClient) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

func sendContent(ctx context.Context, m *genai.GenerativeModel, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	return m.GenerateContent(ctx, parts...)
}

func (c *GraphGeminiClient) model(options ai.GenerateOptions) *genai.GenerativeModel {
	var m *genai.GenerativeModel
	if c.Client != nil {
		m = c.Client.GenerativeModel(options.Model)
	} else {
		m = &genai.GenerativeModel{}
	}
	m.SetTemperature(float32(options.Temperature))
	if len(options.SystemPrompts) > 0 {
		parts := make([]genai.Part, len(options.SystemPrompts))
		for i, sp := range options.SystemPrompts {
			parts[i] = genai.Text(sp)
		}
		m.SystemInstruction = &genai.Content{Parts: parts}
	}
	return m
}

func (c *GraphGeminiClient) generate(ctx context.Context, m *genai.GenerativeModel, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.send(ctx, m, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	duration := time.Since(start).Milliseconds()

	metrics := ai.ModelMetrics{DurationMs: duration, WallClockMs: duration}
	if resp.UsageMetadata != nil {
		metrics.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		metrics.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		metrics.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	c.Record(metrics)

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no candidates in response from gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("empty response from gemini (finish_reason: %s)", resp.Candidates[0].FinishReason)
	}
	return sb.String(), nil
}

// GenerateCompletion sends a single-turn prompt and returns the answer text.
func (c *GraphGeminiClient) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       c.extractionModel,
		Temperature: 0,
	}, opts...)

	return c.generate(ctx, c.model(options), prompt)
}

// GenerateCompletionWithFormat asks for a JSON answer constrained by the
// schema of out and unmarshals it into out.
func (c *GraphGeminiClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       c.extractionModel,
		Temperature: 0,
	}, opts...)

	m := c.model(options)
	m.ResponseMIMEType = "application/json"
	m.ResponseSchema = responseSchema(ai.GenerateSchema(out))

	full := prompt
	if description != "" {
		full = fmt.Sprintf("%s (%s)\n\nTEXT:\n%s", description, name, prompt)
	}

	answer, err := c.generate(ctx, m, full)
	if err != nil {
		return err
	}
	return ai.UnmarshalAnswer(answer, out)
}

// LoadModel is a no-op; hosted models need no warm-up.
func (c *GraphGeminiClient) LoadModel(ctx context.Context, opts ...ai.GenerateOption) error {
	return nil
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/neetprep/neetprep/internal/llm/prompts"
	"github.com/neetprep/neetprep/internal/model"
)

// MaxBatchSize bounds a single generation request.
const MaxBatchSize = 50

// Client wraps an OpenAI-compatible API client for question generation.
type Client struct {
	api           *openai.Client
	model         string
	allowFallback bool
}

// New creates a new generation client. When allowFallback is set, a shortfall
// of valid generated questions is topped up from the static template bank;
// otherwise callers see the short batch as-is and fail hard.
func New(baseURL, apiKey, modelName string, allowFallback bool) (*Client, error) {
	if modelName == "" {
		return nil, fmt.Errorf("LLM model name is required")
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:           openai.NewClientWithConfig(config),
		model:         modelName,
		allowFallback: allowFallback,
	}, nil
}

// Ping verifies the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

// generationResponse is the JSON object the model is instructed to return.
type generationResponse struct {
	Questions []model.RawQuestionPayload `json:"questions"`
}

// Generate produces a batch of candidate questions for a subject and optional
// topic. Items missing a required field are dropped; the returned slice may be
// shorter than requested. Each item carries a fresh batch-scoped ephemeral ID.
func (c *Client) Generate(ctx context.Context, subject, topic string, count int, difficulty model.Difficulty) ([]model.EphemeralQuestion, error) {
	if count < 1 || count > MaxBatchSize {
		return nil, fmt.Errorf("question count must be between 1 and %d, got %d", MaxBatchSize, count)
	}
	if !difficulty.Valid() {
		difficulty = model.DifficultyMedium
	}

	prompt := prompts.Generation(subject, topic, count, string(difficulty))

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompts.GenerationSystem},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM generation response", "raw", raw)

	var parsed generationResponse
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w", err)
	}

	batchID := uuid.NewString()
	var questions []model.EphemeralQuestion
	for i, payload := range parsed.Questions {
		eq, err := payload.Normalize()
		if err != nil {
			slog.Warn("dropping invalid generated question", "index", i, "error", err)
			continue
		}
		eq.ID = ephemeralID(batchID, i)
		questions = append(questions, eq)
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("LLM produced no valid questions for %s", subject)
	}

	if len(questions) < count && c.allowFallback {
		templates := prompts.TemplateQuestions(subject, count-len(questions), difficulty)
		for i, eq := range templates {
			eq.ID = ephemeralID(batchID, len(parsed.Questions)+i)
			questions = append(questions, eq)
		}
		slog.Info("topped up generation shortfall from template bank",
			"subject", subject, "generated", len(questions)-len(templates), "templates", len(templates))
	}

	return questions, nil
}

func ephemeralID(batchID string, i int) model.EphemeralID {
	return model.EphemeralID(fmt.Sprintf("q_%s_%d", batchID, i))
}

// stripCodeFence removes a markdown ```json fence if the model wrapped its
// output in one despite the JSON response format.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if after, ok := strings.CutPrefix(s, "```json"); ok {
		s = after
	} else if after, ok := strings.CutPrefix(s, "```"); ok {
		s = after
	} else {
		return s
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/gamer-card/internal/analysis"
	"github.com/xaenox/gamer-card/internal/metrics"
	"github.com/xaenox/gamer-card/internal/models"
)

// ChatClient is the subset of *openai.Client the classifiers use
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

type GPTClassifier struct {
	client   ChatClient
	opts     Options
	fallback Classifier
	logger   *zap.Logger
}

func NewGPTClassifier(client ChatClient, opts Options, logger *zap.Logger) *GPTClassifier {
	return &GPTClassifier{
		client:   client,
		opts:     opts,
		fallback: NewFallbackClassifier(),
		logger:   logger,
	}
}

// Classify asks the model for a personality and reconciles it against the
// summary. Model or decoding failures fall back to the local classifier; only
// a cancelled context is returned as an error.
func (c *GPTClassifier) Classify(ctx context.Context, summary models.AnalysisSummary) (models.Personality, error) {
	tier := analysis.ClassifyTier(summary.TotalPlaytimeHours, summary.TotalGames)

	var p models.Personality
	err := complete(ctx, c.client, c.opts, personalitySystemPrompt, personalityUserPrompt(summary, tier), &p)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.Personality{}, ctxErr
		}
		c.logger.Error("Failed to get GPT personality, using fallback", zap.Error(err))
		metrics.LLMFallbacks.WithLabelValues("personality").Inc()
		return c.fallback.Classify(ctx, summary)
	}

	if p.Tier != tier {
		c.logger.Debug("Overriding model tier",
			zap.String("suggested", string(p.Tier)),
			zap.String("computed", string(tier)))
	}
	return Reconcile(p, summary), nil
}

// complete runs one JSON-mode chat completion and decodes the answer into out
func complete(ctx context.Context, client ChatClient, opts Options, system, user string, out any) error {
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   opts.MaxTokens,
		Temperature: float32(opts.Temperature),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return errors.New("chat completion returned no choices")
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("failed to parse model response: %w", err)
	}
	return nil
}

// stripCodeFence removes a surrounding ```json fence some models add
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

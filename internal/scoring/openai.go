package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kiranshivaraju/inocula/internal/config"
	"github.com/kiranshivaraju/inocula/pkg/models"
	"github.com/sashabaranov/go-openai"
)

const (
	explainMaxTokens = 120
	promptTextBytes  = 300
)

const explainSystemPrompt = "You are a professional misinformation analyst. " +
	"You write one-sentence explanations of credibility scans for end users."

// chatCompleter is the subset of *openai.Client used here.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIScorer scores text with the rules engine and asks an OpenAI-compatible
// model to phrase the explanation. A failed model call degrades to FallbackExplanation;
// only cancellation of ctx fails the score.
type OpenAIScorer struct {
	rules  *RulesScorer
	client chatCompleter
	model  string
}

// NewOpenAIScorer builds a scorer against the configured endpoint. An empty
// BaseURL targets api.openai.com.
func NewOpenAIScorer(cfg config.OpenAIConfig) *OpenAIScorer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIScorer{
		rules:  NewRulesScorer(),
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

func (s *OpenAIScorer) Name() string { return "openai" }

func (s *OpenAIScorer) Score(ctx context.Context, text string) (models.Result, error) {
	if err := ctx.Err(); err != nil {
		return models.Result{}, err
	}
	res := s.rules.Evaluate(text)

	explanation, err := s.explain(ctx, text, res)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.Result{}, ctxErr
		}
		slog.Warn("explanation unavailable, using fallback", "scorer", s.Name(), "error", err)
		explanation = FallbackExplanation
	}
	res.Explanation = explanation
	return res, nil
}

func (s *OpenAIScorer) explain(ctx context.Context, text string, res models.Result) (string, error) {
	factors := "none"
	if len(res.Reasons) > 0 {
		factors = strings.Join(res.Reasons, ", ")
	}
	prompt := fmt.Sprintf(`Review these scan results:

- Content: "%s..."
- Score: %d/100
- Factors: %s

Task: Write a concise, one-sentence explanation for the user.
Guidelines:
- Score > 70: Be reassuring but objective.
- 40-70: Start with 'Caution:' and explain why.
- < 40: Start with 'High Risk:' and be direct about manipulation.
- Do NOT use any markdown formatting or stars (*).`,
		truncateString(text, promptTextBytes), res.Score, factors)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   explainMaxTokens,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: explainSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrInvalidResponse)
	}

	explanation := strings.TrimSpace(strings.ReplaceAll(resp.Choices[0].Message.Content, "*", ""))
	if explanation == "" {
		return "", fmt.Errorf("%w: empty explanation", ErrInvalidResponse)
	}
	if prefix := BandPrefix(res.Score); prefix != "" && !strings.HasPrefix(explanation, prefix) {
		explanation = prefix + " " + explanation
	}
	return explanation, nil
}

func classifyOpenAIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrScoringTimeout, err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}

var _ models.Scorer = (*OpenAIScorer)(nil)

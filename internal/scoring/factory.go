package scoring

import (
	"fmt"

	"github.com/kiranshivaraju/inocula/internal/config"
	"github.com/kiranshivaraju/inocula/pkg/models"
)

// NewScorer constructs the configured scorer.
// Called once at server startup.
func NewScorer(cfg config.ScorerConfig) (models.Scorer, error) {
	switch cfg.Provider {
	case "rules":
		return NewRulesScorer(), nil
	case "openai":
		return NewOpenAIScorer(cfg.OpenAI), nil
	default:
		return nil, fmt.Errorf("unknown scorer provider %q: must be one of rules, openai", cfg.Provider)
	}
}

// Package models contains shared data models used across the Inocula codebase.
package models

import "context"

// Scorer is the Analysis Pipeline. All credibility backends implement it.
// Never call a specific backend directly; always inject this interface.
type Scorer interface {
	// Score rates the credibility of text and explains the rating.
	Score(ctx context.Context, text string) (Result, error)
	// Name returns the scorer identifier (e.g., "rules", "openai").
	Name() string
}

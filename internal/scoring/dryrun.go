package scoring

import (
	"context"
	"math/rand/v2"

	"github.com/hothouse/hothouse/internal/config"
)

// DryRunScorer assigns a pseudo-random score without calling the scoring
// service. Cost-control toggle for local runs; never use in production.
type DryRunScorer struct{}

// NewDryRunScorer creates a scorer that skips the scoring API.
func NewDryRunScorer() *DryRunScorer {
	return &DryRunScorer{}
}

func (*DryRunScorer) Score(_ context.Context, _ string, _ [][]byte) (*Result, error) {
	return &Result{
		Score: rand.IntN(100) + 1,
		Notes: "dry-run: scoring service skipped, pseudo-random score assigned",
	}, nil
}

// NewFromConfig returns the dry-run scorer when configured, otherwise the
// Anthropic scorer.
func NewFromConfig(cfg config.ScoringConfig) (Scorer, error) {
	if cfg.DryRun {
		return NewDryRunScorer(), nil
	}
	return NewAnthropicScorer(cfg)
}

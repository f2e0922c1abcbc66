package scoring

import (
	"context"
	"testing"

	"github.com/hothouse/hothouse/internal/config"
)

func TestParseResultReattachesLeadingBrace(t *testing.T) {
	// The priming turn consumes the opening brace, so the completion
	// normally starts mid-object.
	result, err := ParseResult(`"score": 87, "notes": "strong fit", "github": "https://github.com/ada", "personalSite": null}`)
	if err != nil {
		t.Fatalf("ParseResult() error = %v", err)
	}
	if result.Score != 87 {
		t.Errorf("Score = %d, want 87", result.Score)
	}
	if result.Notes != "strong fit" {
		t.Errorf("Notes = %q", result.Notes)
	}
	if result.GitHub != "https://github.com/ada" {
		t.Errorf("GitHub = %q", result.GitHub)
	}
	if result.PersonalSite != "" {
		t.Errorf("PersonalSite = %q, want empty", result.PersonalSite)
	}
}

func TestParseResultToleratesEchoedBrace(t *testing.T) {
	result, err := ParseResult(`{"score": 42, "notes": "mixed"}`)
	if err != nil {
		t.Fatalf("ParseResult() error = %v", err)
	}
	if result.Score != 42 {
		t.Errorf("Score = %d, want 42", result.Score)
	}
}

func TestParseResultToleratesLeadingWhitespace(t *testing.T) {
	result, err := ParseResult("\n  \"score\": 5, \"notes\": \"weak\"}")
	if err != nil {
		t.Fatalf("ParseResult() error = %v", err)
	}
	if result.Score != 5 {
		t.Errorf("Score = %d, want 5", result.Score)
	}
}

func TestParseResultNonJSONIsError(t *testing.T) {
	if _, err := ParseResult("I cannot rate this candidate."); err == nil {
		t.Fatal("ParseResult() expected error for non-JSON completion")
	}
}

func TestNewAnthropicScorerRequiresAPIKey(t *testing.T) {
	if _, err := NewAnthropicScorer(config.ScoringConfig{}); err != ErrMissingAPIKey {
		t.Fatalf("NewAnthropicScorer() error = %v, want ErrMissingAPIKey", err)
	}
}

func TestDryRunScorerStaysInRange(t *testing.T) {
	scorer := NewDryRunScorer()
	for range 50 {
		result, err := scorer.Score(context.Background(), "job", nil)
		if err != nil {
			t.Fatalf("Score() error = %v", err)
		}
		if result.Score < 1 || result.Score > 100 {
			t.Fatalf("Score = %d, want 1..100", result.Score)
		}
		if result.Notes == "" {
			t.Fatal("dry-run result must carry explanatory notes")
		}
	}
}

func TestNewFromConfigSelectsDryRun(t *testing.T) {
	scorer, err := NewFromConfig(config.ScoringConfig{DryRun: true})
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	if _, ok := scorer.(*DryRunScorer); !ok {
		t.Fatalf("NewFromConfig() = %T, want *DryRunScorer", scorer)
	}
}

// Package scoring turns a job description plus page images into a
// structured suitability score via a language-model completion service.
package scoring

import (
	"context"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hothouse/hothouse/internal/config"
)

//go:embed prompt.md
var systemPrompt string

// ErrMissingAPIKey is returned when the scoring API key is not configured.
var ErrMissingAPIKey = errors.New("scoring api key is not set")

// Result is the structured rating parsed from the model completion.
type Result struct {
	Score        int    `json:"score"`
	Notes        string `json:"notes"`
	GitHub       string `json:"github"`
	PersonalSite string `json:"personalSite"`
}

// Scorer produces a rating for one candidate's documents.
type Scorer interface {
	// Score submits the job description and the ordered PNG page images
	// and returns the parsed rating. A completion that does not parse as
	// JSON is an error; callers must not swallow it.
	Score(ctx context.Context, jobDescription string, pages [][]byte) (*Result, error)
}

// AnthropicScorer scores through the Anthropic messages API.
type AnthropicScorer struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropicScorer creates the production scorer.
func NewAnthropicScorer(cfg config.ScoringConfig) (*AnthropicScorer, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &AnthropicScorer{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     anthropic.Model(cfg.Model),
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Score builds the message sequence: an instruction turn, the job
// description, the page images, and a priming assistant turn of "{" so the
// completion continues a JSON object.
func (s *AnthropicScorer) Score(ctx context.Context, jobDescription string, pages [][]byte) (*Result, error) {
	imageBlocks := make([]anthropic.ContentBlockParamUnion, 0, len(pages))
	for _, page := range pages {
		imageBlocks = append(imageBlocks, anthropic.NewImageBlockBase64(
			"image/png", base64.StdEncoding.EncodeToString(page),
		))
	}

	message, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(
				"Rate the attached resume and optional cover letter for the following job post:",
			)),
			anthropic.NewUserMessage(anthropic.NewTextBlock(jobDescription)),
			anthropic.NewUserMessage(imageBlocks...),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock("{")),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scoring request: %w", err)
	}

	var completion string
	for _, block := range message.Content {
		if block.Type == "text" {
			completion = block.Text
			break
		}
	}

	return ParseResult(completion)
}

// ParseResult parses a model completion as the rating JSON. The priming
// turn means the completion usually continues after the opening brace; the
// brace is re-attached unless the service echoed it back anyway.
func ParseResult(completion string) (*Result, error) {
	trimmed := strings.TrimSpace(completion)
	if !strings.HasPrefix(trimmed, "{") {
		trimmed = "{" + trimmed
	}

	var result Result
	if err := json.Unmarshal([]byte(trimmed), &result); err != nil {
		return nil, fmt.Errorf("parse scoring response: %w", err)
	}
	return &result, nil
}

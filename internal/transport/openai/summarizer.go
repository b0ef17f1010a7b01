package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/domain/analysis"
	"github.com/kailas-cloud/docsearch/internal/domain/text"
)

// Summarizer defaults.
const (
	DefaultSummaryTemperature = 0.3
	DefaultSummaryMaxTokens   = 1000
)

const analyzePrompt = `You are a document analyzer. Analyze the following file content and provide:
1. A brief summary (2-3 sentences)
2. Key topics (3-5 topics)
3. Main insights or important points (3-5 points)
4. Content type/category

Format your response as JSON with keys: summary, topics (array), insights (array), category.`

// SummarizerConfig holds chat completion settings.
type SummarizerConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Summarizer analyzes document text with a chat completion in JSON mode.
type Summarizer struct {
	client *openai.Client
	cfg    SummarizerConfig
	logger *zap.Logger
}

// NewSummarizer creates a summarizer on the provider described by cfg.
func NewSummarizer(cfg *Config, sc SummarizerConfig) *Summarizer {
	if sc.Temperature <= 0 {
		sc.Temperature = DefaultSummaryTemperature
	}
	if sc.MaxTokens <= 0 {
		sc.MaxTokens = DefaultSummaryMaxTokens
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{client: newClient(cfg), cfg: sc, logger: logger}
}

type analysisPayload struct {
	Summary  string   `json:"summary"`
	Topics   []string `json:"topics"`
	Insights []string `json:"insights"`
	Category string   `json:"category"`
}

// Analyze summarizes the first text.SummaryWindow runes of content.
// Provider failures wrap domain.ErrSummaryUnavailable.
func (s *Summarizer) Analyze(ctx context.Context, fileName, content string) (analysis.Analysis, error) {
	if strings.TrimSpace(content) == "" {
		return analysis.Analysis{}, fmt.Errorf("content text is required: %w", domain.ErrInvalidRequest)
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analyzePrompt},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: "File name: " + fileName + "\n\nContent:\n" + text.Window(content, text.SummaryWindow),
			},
		},
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		status, detail := statusAndDetail(err)
		if status != 0 {
			return analysis.Analysis{}, fmt.Errorf("chat API error %d: %s: %w", status, detail, domain.ErrSummaryUnavailable)
		}
		return analysis.Analysis{}, fmt.Errorf("chat request failed: %w: %w", domain.ErrSummaryUnavailable, err)
	}

	raw := "{}"
	if len(resp.Choices) > 0 && resp.Choices[0].Message.Content != "" {
		raw = resp.Choices[0].Message.Content
	}

	var p analysisPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.logger.Warn("Unparseable analysis response", zap.String("file_name", fileName), zap.Error(err))
		return analysis.Analysis{}, fmt.Errorf("decode analysis: %w: %w", domain.ErrSummaryUnavailable, err)
	}

	return analysis.Analysis{
		FileName: fileName,
		Summary:  p.Summary,
		Topics:   p.Topics,
		Insights: p.Insights,
		Category: p.Category,
	}.WithDefaults(), nil
}

package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/newswise/backend/pkg/circuitbreaker"
	"github.com/newswise/backend/pkg/logger"
	"github.com/newswise/backend/pkg/retry"
)

const analyzePrompt = `You are a financial news sentiment classifier.
Classify the sentiment of the given headline and summary for investors.
Respond with ONLY a JSON object: {"label": "positive"|"negative"|"neutral", "score": <number between -1 and 1>}`

// OpenAIAnalyzer classifies sentiment with a chat completion. Calls go
// through a circuit breaker and retry so a flaky upstream degrades to
// the fallback analyzer instead of stalling ingestion.
type OpenAIAnalyzer struct {
	client   *openai.Client
	model    string
	timeout  time.Duration
	breaker  *circuitbreaker.CircuitBreaker
	retryCfg retry.Config
	fallback Analyzer
}

func NewOpenAIAnalyzer(apiKey, model string, timeout time.Duration, fallback Analyzer) *OpenAIAnalyzer {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if fallback == nil {
		fallback = NewLexiconAnalyzer()
	}

	return &OpenAIAnalyzer{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
		breaker: circuitbreaker.NewCircuitBreaker("openai-sentiment", circuitbreaker.Config{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          30 * time.Second,
			Logger:           logger.GetLogger(),
		}),
		retryCfg: retry.Config{
			MaxAttempts:  2,
			InitialDelay: 500 * time.Millisecond,
			Logger:       logger.GetLogger(),
		},
		fallback: fallback,
	}
}

func (a *OpenAIAnalyzer) Analyze(ctx context.Context, text string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	result, err := retry.DoWithResult(ctx, a.retryCfg, func() (Result, error) {
		var res Result
		execErr := a.breaker.Execute(ctx, func() error {
			var err error
			res, err = a.classify(ctx, text)
			return err
		})
		return res, execErr
	})

	if err != nil {
		logger.Warn("Sentiment call failed, using fallback analyzer", zap.Error(err))
		return a.fallback.Analyze(ctx, text)
	}
	return result, nil
}

func (a *OpenAIAnalyzer) classify(ctx context.Context, text string) (Result, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0,
		MaxTokens:   60,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analyzePrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("empty completion response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.Trim(content, "` \n")

	var result Result
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return Result{}, fmt.Errorf("failed to parse sentiment response: %w", err)
	}

	switch result.Label {
	case LabelPositive, LabelNegative, LabelNeutral:
	default:
		return Result{}, fmt.Errorf("unexpected sentiment label %q", result.Label)
	}
	if result.Score > 1 {
		result.Score = 1
	} else if result.Score < -1 {
		result.Score = -1
	}

	return result, nil
}

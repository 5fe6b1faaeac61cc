// Package llm values chores with an OpenAI-compatible chat-completions
// endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultURL     = "https://api.openai.com/v1/chat/completions"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 15 * time.Second

	// Bounds stated to the model. The engine re-checks the reply.
	minGems = 5
	maxGems = 25
)

// ErrNoEstimate is returned when the reply holds no integer.
var ErrNoEstimate = errors.New("model reply contained no gem value")

// Config holds the endpoint settings.
type Config struct {
	APIURL  string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Enabled reports whether an API key is configured.
func (c Config) Enabled() bool { return c.APIKey != "" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Estimator implements engine.GemEstimator.
type Estimator struct {
	cfg        Config
	httpClient *http.Client
	log        *zap.Logger
}

// NewEstimator fills defaults for unset Config fields.
func NewEstimator(cfg Config, logger *zap.Logger) *Estimator {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Estimator{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger,
	}
}

var intPattern = regexp.MustCompile(`-?\d+`)

// EstimateGems asks the model to value description against the household
// rubric and returns the first integer in its reply.
func (e *Estimator) EstimateGems(ctx context.Context, description, rubric string) (int, error) {
	body, err := json.Marshal(chatRequest{
		Model: e.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(rubric)},
			{Role: "user", Content: description},
		},
		Temperature: 0,
		MaxTokens:   8,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	start := time.Now()
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("estimate request: %w", err)
	}
	defer resp.Body.Close()

	var cr chatResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&cr)
	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && cr.Error != nil {
			return 0, fmt.Errorf("estimate: status %d: %s", resp.StatusCode, cr.Error.Message)
		}
		return 0, fmt.Errorf("estimate: status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return 0, fmt.Errorf("decode response: %w", decodeErr)
	}
	if len(cr.Choices) == 0 {
		return 0, ErrNoEstimate
	}

	reply := cr.Choices[0].Message.Content
	m := intPattern.FindString(reply)
	if m == "" {
		return 0, ErrNoEstimate
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, ErrNoEstimate
	}
	e.log.Debug("gem estimate",
		zap.Int("gems", n),
		zap.Duration("took", time.Since(start)))
	return n, nil
}

func systemPrompt(rubric string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You value household chores in gems. Reply with one integer from %d to %d and nothing else.", minGems, maxGems)
	if r := strings.TrimSpace(rubric); r != "" {
		b.WriteString("\nHousehold rubric:\n")
		b.WriteString(r)
	}
	return b.String()
}

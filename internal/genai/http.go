package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"genbi/internal/domain"
)

// HTTPClient talks to an OpenAI-compatible chat completions endpoint.
// Both calls honor ctx deadlines via the request context; the pipeline
// wraps them in its own per-stage timeouts.
type HTTPClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

var _ domain.GenerativeClient = (*HTTPClient)(nil)

func NewHTTPClient(baseURL, apiKey, model string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const classifySystemPrompt = `You classify analytics questions. Respond with a single JSON object:
{"category": one of TOP_N, AGGREGATION, TREND, COMPARISON, FILTER, OTHER,
 "group_by": the grouping attribute or "",
 "time_range": the time span mentioned or ""}`

func (c *HTTPClient) Classify(ctx context.Context, question string) (*domain.QueryIntent, error) {
	content, err := c.complete(ctx, []chatMessage{
		{Role: "system", Content: classifySystemPrompt},
		{Role: "user", Content: question},
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Category  string `json:"category"`
		GroupBy   string `json:"group_by"`
		TimeRange string `json:"time_range"`
	}
	if err := json.Unmarshal([]byte(stripFence(content)), &parsed); err != nil {
		return nil, fmt.Errorf("parse classification: %w", err)
	}

	category := strings.ToUpper(strings.TrimSpace(parsed.Category))
	if !domain.ValidIntentCategory(category) {
		category = domain.IntentOther
	}
	return &domain.QueryIntent{
		Category:  category,
		GroupBy:   parsed.GroupBy,
		TimeRange: parsed.TimeRange,
	}, nil
}

func (c *HTTPClient) Synthesize(ctx context.Context, req domain.SynthesisRequest) (string, error) {
	var b strings.Builder
	b.WriteString("Write one SQL SELECT statement answering the question. Use only the schema below. Return only SQL.\n\nSchema:\n")
	for _, e := range req.Elements {
		if e.Kind == domain.ElementTable {
			b.WriteString(e.Document)
			b.WriteString("\n")
		}
	}
	if req.Intent != nil {
		fmt.Fprintf(&b, "\nQuestion type: %s\n", req.Intent.Category)
	}
	for _, ex := range req.Examples {
		fmt.Fprintf(&b, "\nExample question: %s\nExample SQL: %s\n", ex.Question, ex.SQL)
	}
	if req.Feedback != "" {
		fmt.Fprintf(&b, "\nYour previous attempt was rejected: %s\nFix it.\n", req.Feedback)
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n", req.Question)

	return c.complete(ctx, []chatMessage{
		{Role: "user", Content: b.String()},
	})
}

func (c *HTTPClient) complete(ctx context.Context, messages []chatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("model endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("model endpoint returned error", "status", resp.StatusCode)
		return "", fmt.Errorf("model endpoint: status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse completion: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("model endpoint: empty completion")
	}
	return parsed.Choices[0].Message.Content, nil
}

// stripFence removes a surrounding markdown code fence, if present, so the
// JSON parser sees bare JSON.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// Package planner holds the pipeline's understanding stages: intent
// classification and schema context expansion.
package planner

import (
	"context"
	"log/slog"
	"time"

	"genbi/internal/domain"
)

// DefaultClassifyTimeout bounds one classification call. The pipeline must
// not hang on a slow collaborator; a timed-out classification degrades
// rather than fails.
const DefaultClassifyTimeout = 10 * time.Second

// Classifier wraps the generative collaborator's Classify call with a
// timeout and a degradation path: any failure yields an OTHER intent marked
// low confidence instead of an error, so a flaky classifier never kills a
// query on its own.
type Classifier struct {
	client  domain.GenerativeClient
	timeout time.Duration
	logger  *slog.Logger
}

func NewClassifier(client domain.GenerativeClient, timeout time.Duration, logger *slog.Logger) *Classifier {
	if timeout <= 0 {
		timeout = DefaultClassifyTimeout
	}
	return &Classifier{
		client:  client,
		timeout: timeout,
		logger:  logger.With("component", "classifier"),
	}
}

// Classify never returns an error: collaborator failures degrade to an
// OTHER intent with LowConfidence set.
func (c *Classifier) Classify(ctx context.Context, question string) *domain.QueryIntent {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	intent, err := c.client.Classify(cctx, question)
	if err != nil {
		c.logger.Warn("classification degraded", "error", err)
		return &domain.QueryIntent{Category: domain.IntentOther, LowConfidence: true}
	}
	if !domain.ValidIntentCategory(intent.Category) {
		c.logger.Warn("classifier returned unknown category", "category", intent.Category)
		return &domain.QueryIntent{Category: domain.IntentOther, LowConfidence: true}
	}
	return intent
}

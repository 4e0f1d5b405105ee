package synth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"genbi/internal/domain"
)

// DefaultSynthesizeTimeout bounds one synthesis call.
const DefaultSynthesizeTimeout = 30 * time.Second

// Synthesizer turns an intent plus expanded schema surface into a candidate
// statement, via the generative collaborator and the pattern library.
type Synthesizer struct {
	client   domain.GenerativeClient
	patterns *PatternLibrary
	timeout  time.Duration
	logger   *slog.Logger
}

func NewSynthesizer(client domain.GenerativeClient, patterns *PatternLibrary, timeout time.Duration, logger *slog.Logger) *Synthesizer {
	if timeout <= 0 {
		timeout = DefaultSynthesizeTimeout
	}
	return &Synthesizer{
		client:   client,
		patterns: patterns,
		timeout:  timeout,
		logger:   logger.With("component", "synthesizer"),
	}
}

// Synthesize produces one candidate. Feedback carries the validator error
// from a previous attempt so retries can self-correct. A collaborator
// failure here is fatal for the attempt; the pipeline decides whether to
// retry.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, intent *domain.QueryIntent, elements []domain.SchemaElement, feedback string) (*domain.CandidateSQL, error) {
	category := domain.IntentOther
	if intent != nil {
		category = intent.Category
	}

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.client.Synthesize(sctx, domain.SynthesisRequest{
		Question: question,
		Intent:   intent,
		Elements: elements,
		Examples: s.patterns.Examples(category),
		Feedback: feedback,
	})
	if err != nil {
		return nil, domain.ErrCollaborator("synthesizer", err)
	}

	sql := ExtractSQL(raw)
	if sql == "" {
		return nil, domain.ErrSQLValidation(domain.ValidationSyntax, "synthesis produced no statement")
	}

	candidate := &domain.CandidateSQL{
		Text:       sql,
		Confidence: Confidence(sql, intent, elements),
	}
	s.logger.Debug("candidate synthesized", "confidence", candidate.Confidence)
	return candidate, nil
}

// ExtractSQL pulls the statement out of a collaborator response: the first
// fenced code block if present, otherwise everything from the first
// SELECT/WITH keyword. Trailing semicolons are dropped.
func ExtractSQL(raw string) string {
	text := strings.TrimSpace(raw)

	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		if j := strings.Index(rest, "\n"); j >= 0 && !strings.ContainsAny(rest[:j], " \t") {
			rest = rest[j+1:] // drop the language tag line
		}
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		text = strings.TrimSpace(rest)
	}

	upper := strings.ToUpper(text)
	start := -1
	for _, kw := range []string{"SELECT", "WITH"} {
		if i := strings.Index(upper, kw); i >= 0 && (start < 0 || i < start) {
			start = i
		}
	}
	if start < 0 {
		return ""
	}
	text = text[start:]

	// A blank line after the statement starts prose, not SQL.
	if i := strings.Index(text, "\n\n"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSuffix(strings.TrimSpace(text), ";")
}

// Confidence scores a candidate with cheap structural heuristics. Scores
// stay in [0.1, 0.95]: synthesis is never certain and never hopeless.
func Confidence(sql string, intent *domain.QueryIntent, elements []domain.SchemaElement) float64 {
	upper := strings.ToUpper(sql)
	score := 0.5

	if intent != nil {
		switch intent.Category {
		case domain.IntentAggregation, domain.IntentComparison:
			if strings.Contains(upper, "GROUP BY") {
				score += 0.2
			}
		case domain.IntentTopN:
			if strings.Contains(upper, "LIMIT") && strings.Contains(upper, "ORDER BY") {
				score += 0.2
			}
		case domain.IntentTrend:
			if strings.Contains(upper, "GROUP BY") && strings.Contains(upper, "ORDER BY") {
				score += 0.2
			}
		}
		if intent.LowConfidence {
			score -= 0.2
		}
	}

	lower := strings.ToLower(sql)
	for _, e := range elements {
		if e.Kind == domain.ElementTable && strings.Contains(lower, strings.ToLower(e.QualifiedName)) {
			score += 0.1
			break
		}
	}

	if score < 0.1 {
		score = 0.1
	}
	if score > 0.95 {
		score = 0.95
	}
	return score
}

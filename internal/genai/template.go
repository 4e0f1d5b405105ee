// Package genai provides the generative collaborator implementations: a
// deterministic local template client used when no model endpoint is
// configured, and an HTTP client for an OpenAI-compatible chat endpoint.
package genai

import (
	"context"
	"fmt"
	"strings"

	"genbi/internal/domain"
)

// TemplateClient classifies questions with keyword heuristics and composes
// SQL from the expanded schema surface. Fully deterministic: the same
// question and schema always produce the same output, which makes it usable
// offline and in tests.
type TemplateClient struct{}

var _ domain.GenerativeClient = (*TemplateClient)(nil)

func NewTemplateClient() *TemplateClient {
	return &TemplateClient{}
}

// Classify maps the question to an intent category by keyword. Categories
// are checked in a fixed order so overlapping cues resolve the same way
// every time.
func (c *TemplateClient) Classify(_ context.Context, question string) (*domain.QueryIntent, error) {
	q := " " + strings.ToLower(question) + " "

	intent := &domain.QueryIntent{Category: domain.IntentOther}
	switch {
	case containsAny(q, " top ", " best ", " highest ", " largest ", " most "):
		intent.Category = domain.IntentTopN
	case containsAny(q, " trend", " over time", " monthly ", " weekly ", " daily ", " per month", " per week", " growth "):
		intent.Category = domain.IntentTrend
	case containsAny(q, " compare", " versus ", " vs ", " across ", " difference between "):
		intent.Category = domain.IntentComparison
	case containsAny(q, " total ", " sum ", " count ", " average ", " avg ", " how many ", " how much "):
		intent.Category = domain.IntentAggregation
	case containsAny(q, " where ", " only ", " with ", " in the ", " filter"):
		intent.Category = domain.IntentFilter
	}
	intent.LowConfidence = intent.Category == domain.IntentOther

	if i := strings.Index(q, " by "); i >= 0 {
		intent.GroupBy = firstWord(q[i+len(" by "):])
	}
	for _, span := range []string{"last month", "this month", "last year", "this year", "last week", "last quarter", "this quarter", "today", "yesterday"} {
		if strings.Contains(q, span) {
			intent.TimeRange = span
			break
		}
	}

	return intent, nil
}

// Synthesize composes a single SELECT over the most relevant table in the
// expanded surface, shaped by the intent category. The worked examples are
// ignored here; they exist for the model-backed client.
func (c *TemplateClient) Synthesize(_ context.Context, req domain.SynthesisRequest) (string, error) {
	table := firstTable(req.Elements)
	if table == nil {
		return "", fmt.Errorf("no table in scope for question %q", req.Question)
	}

	measure := pickColumn(table, isMeasure, "")
	timeCol := pickColumn(table, isTemporal, "")
	dimension := pickDimension(table, req.Intent)

	category := domain.IntentOther
	if req.Intent != nil {
		category = req.Intent.Category
	}

	switch category {
	case domain.IntentTopN:
		if dimension != "" && measure != "" {
			return fmt.Sprintf("SELECT %s, SUM(%s) AS total FROM %s GROUP BY %s ORDER BY total DESC LIMIT 10",
				dimension, measure, table.QualifiedName, dimension), nil
		}
		if measure != "" {
			return fmt.Sprintf("SELECT * FROM %s ORDER BY %s DESC LIMIT 10", table.QualifiedName, measure), nil
		}
	case domain.IntentAggregation:
		if dimension != "" && measure != "" {
			return fmt.Sprintf("SELECT %s, SUM(%s) AS total FROM %s GROUP BY %s",
				dimension, measure, table.QualifiedName, dimension), nil
		}
		if measure != "" {
			return fmt.Sprintf("SELECT SUM(%s) AS total FROM %s", measure, table.QualifiedName), nil
		}
		return fmt.Sprintf("SELECT COUNT(*) AS total FROM %s", table.QualifiedName), nil
	case domain.IntentTrend:
		if timeCol != "" && measure != "" {
			return fmt.Sprintf("SELECT %s, SUM(%s) AS total FROM %s GROUP BY %s ORDER BY %s",
				timeCol, measure, table.QualifiedName, timeCol, timeCol), nil
		}
	case domain.IntentComparison:
		if dimension != "" && measure != "" {
			return fmt.Sprintf("SELECT %s, SUM(%s) AS total FROM %s GROUP BY %s ORDER BY total DESC",
				dimension, measure, table.QualifiedName, dimension), nil
		}
	}

	return fmt.Sprintf("SELECT * FROM %s LIMIT 100", table.QualifiedName), nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func firstWord(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_')
	})
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// firstTable returns the first table element; elements arrive most relevant
// first, so this is the expander's best match.
func firstTable(elements []domain.SchemaElement) *domain.SchemaElement {
	for i := range elements {
		if elements[i].Kind == domain.ElementTable {
			return &elements[i]
		}
	}
	return nil
}

// pickColumn returns the first column matching the predicate, skipping the
// named column.
func pickColumn(table *domain.SchemaElement, match func(domain.ColumnInfo) bool, skip string) string {
	for _, col := range table.Columns {
		if col.Name != skip && match(col) {
			return col.Name
		}
	}
	return ""
}

// pickDimension prefers the intent's GROUP BY target when it names a real
// column, then falls back to the first textual non-key column.
func pickDimension(table *domain.SchemaElement, intent *domain.QueryIntent) string {
	if intent != nil && intent.GroupBy != "" {
		for _, col := range table.Columns {
			if strings.EqualFold(col.Name, intent.GroupBy) {
				return col.Name
			}
		}
	}
	for _, col := range table.Columns {
		if !col.PrimaryKey && !isNumeric(col) && !isTemporal(col) {
			return col.Name
		}
	}
	return ""
}

// isMeasure accepts numeric columns that are not keys: primary keys and
// *_id columns are join plumbing, not quantities worth aggregating.
func isMeasure(col domain.ColumnInfo) bool {
	lower := strings.ToLower(col.Name)
	if col.PrimaryKey || lower == "id" || strings.HasSuffix(lower, "_id") {
		return false
	}
	return isNumeric(col)
}

func isNumeric(col domain.ColumnInfo) bool {
	t := strings.ToUpper(col.DataType)
	return containsAny(t, "INT", "REAL", "FLOAT", "DOUBLE", "NUM", "DEC")
}

func isTemporal(col domain.ColumnInfo) bool {
	t := strings.ToUpper(col.DataType)
	return containsAny(t, "DATE", "TIME")
}

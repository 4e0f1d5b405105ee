package domain

// Intent categories. A classifier must always produce one of these,
// defaulting to IntentOther rather than failing.
const (
	IntentTopN        = "TOP_N"
	IntentAggregation = "AGGREGATION"
	IntentTrend       = "TREND"
	IntentComparison  = "COMPARISON"
	IntentFilter      = "FILTER"
	IntentOther       = "OTHER"
)

// IntentEntities holds the schema-facing vocabulary extracted from a question.
type IntentEntities struct {
	Tables     []string
	Columns    []string
	Conditions []string
}

// QueryIntent is the structured classification of a natural-language
// question. Produced once per question and immutable afterwards.
type QueryIntent struct {
	Category  string
	Entities  IntentEntities
	TimeRange string // free-form time constraint, e.g. "last 12 months"
	GroupBy   string // grouping hint, e.g. "month"

	// LowConfidence marks intents produced by the degraded path (capability
	// error or timeout). The pipeline proceeds regardless.
	LowConfidence bool
}

// ValidIntentCategory reports whether c is a known category.
func ValidIntentCategory(c string) bool {
	switch c {
	case IntentTopN, IntentAggregation, IntentTrend, IntentComparison, IntentFilter, IntentOther:
		return true
	}
	return false
}

// EntityText flattens the intent's entities into a single text used for
// similarity ranking against the schema index.
func (q *QueryIntent) EntityText() string {
	parts := make([]string, 0, len(q.Entities.Tables)+len(q.Entities.Columns)+len(q.Entities.Conditions))
	parts = append(parts, q.Entities.Tables...)
	parts = append(parts, q.Entities.Columns...)
	parts = append(parts, q.Entities.Conditions...)
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}

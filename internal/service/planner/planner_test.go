package planner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genbi/internal/domain"
)

type stubGenClient struct {
	intent *domain.QueryIntent
	err    error
	block  bool
}

func (s *stubGenClient) Classify(ctx context.Context, _ string) (*domain.QueryIntent, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.intent, s.err
}

func (s *stubGenClient) Synthesize(context.Context, domain.SynthesisRequest) (string, error) {
	return "", errors.New("not used")
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestClassifier_PassesThroughValidIntent(t *testing.T) {
	c := NewClassifier(&stubGenClient{intent: &domain.QueryIntent{Category: domain.IntentTopN}}, 0, discard())

	intent := c.Classify(context.Background(), "top customers")
	assert.Equal(t, domain.IntentTopN, intent.Category)
	assert.False(t, intent.LowConfidence)
}

func TestClassifier_DegradesOnError(t *testing.T) {
	c := NewClassifier(&stubGenClient{err: errors.New("model down")}, 0, discard())

	intent := c.Classify(context.Background(), "top customers")
	assert.Equal(t, domain.IntentOther, intent.Category)
	assert.True(t, intent.LowConfidence)
}

func TestClassifier_DegradesOnUnknownCategory(t *testing.T) {
	c := NewClassifier(&stubGenClient{intent: &domain.QueryIntent{Category: "RANKING"}}, 0, discard())

	intent := c.Classify(context.Background(), "top customers")
	assert.Equal(t, domain.IntentOther, intent.Category)
	assert.True(t, intent.LowConfidence)
}

func TestClassifier_DegradesOnTimeout(t *testing.T) {
	c := NewClassifier(&stubGenClient{block: true}, 20*time.Millisecond, discard())

	done := make(chan *domain.QueryIntent, 1)
	go func() { done <- c.Classify(context.Background(), "top customers") }()

	select {
	case intent := <-done:
		assert.Equal(t, domain.IntentOther, intent.Category)
		assert.True(t, intent.LowConfidence)
	case <-time.After(2 * time.Second):
		t.Fatal("classifier did not honor its timeout")
	}
}

// fakeSearcher returns a canned ranking over a fixed snapshot.
type fakeSearcher struct {
	snap   *domain.SchemaSnapshot
	ranked []domain.RankedElement
}

func (f *fakeSearcher) Search(context.Context, string, int) ([]domain.RankedElement, error) {
	return f.ranked, nil
}

func (f *fakeSearcher) Snapshot() *domain.SchemaSnapshot { return f.snap }

func chainSnapshot() *domain.SchemaSnapshot {
	// orders -> customers -> accounts, refunds -> orders.
	return &domain.SchemaSnapshot{
		Database: "sales_db",
		Elements: []domain.SchemaElement{
			{
				Kind: domain.ElementTable, QualifiedName: "orders", Table: "orders",
				ForeignKeys: []domain.ForeignKey{
					{FromTable: "orders", FromColumn: "customer_id", ToTable: "customers", ToColumn: "id"},
				},
			},
			{
				Kind: domain.ElementTable, QualifiedName: "customers", Table: "customers",
				ForeignKeys: []domain.ForeignKey{
					{FromTable: "customers", FromColumn: "account_id", ToTable: "accounts", ToColumn: "id"},
				},
			},
			{Kind: domain.ElementTable, QualifiedName: "accounts", Table: "accounts"},
			{
				Kind: domain.ElementTable, QualifiedName: "refunds", Table: "refunds",
				ForeignKeys: []domain.ForeignKey{
					{FromTable: "refunds", FromColumn: "order_id", ToTable: "orders", ToColumn: "id"},
				},
			},
			{Kind: domain.ElementTable, QualifiedName: "products", Table: "products"},
		},
	}
}

func rankedTables(snap *domain.SchemaSnapshot, names ...string) []domain.RankedElement {
	out := make([]domain.RankedElement, 0, len(names))
	for i, n := range names {
		out = append(out, domain.RankedElement{Element: snap.TableElement(n), Score: 1 - float64(i)*0.1})
	}
	return out
}

func tableNames(elements []domain.SchemaElement) []string {
	out := make([]string, len(elements))
	for i, e := range elements {
		out[i] = e.QualifiedName
	}
	return out
}

func TestExpander_SeedsInRankOrder(t *testing.T) {
	snap := chainSnapshot()
	e := NewExpander(&fakeSearcher{snap: snap, ranked: rankedTables(snap, "products")},
		ExpanderOptions{MaxHops: -1}, discard())

	elements, err := e.Expand(context.Background(), "products", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"products"}, tableNames(elements))
}

func TestExpander_FollowsForeignKeysBothDirections(t *testing.T) {
	snap := chainSnapshot()
	e := NewExpander(&fakeSearcher{snap: snap, ranked: rankedTables(snap, "orders")},
		ExpanderOptions{MaxHops: 1}, discard())

	elements, err := e.Expand(context.Background(), "orders", nil)
	require.NoError(t, err)
	// customers via outgoing FK, refunds via incoming FK; accounts is 2 hops.
	assert.Equal(t, []string{"orders", "customers", "refunds"}, tableNames(elements))
}

func TestExpander_TwoHopsReachesTransitiveNeighbors(t *testing.T) {
	snap := chainSnapshot()
	e := NewExpander(&fakeSearcher{snap: snap, ranked: rankedTables(snap, "orders")},
		ExpanderOptions{MaxHops: 2}, discard())

	elements, err := e.Expand(context.Background(), "orders", nil)
	require.NoError(t, err)
	assert.Contains(t, tableNames(elements), "accounts")
	assert.NotContains(t, tableNames(elements), "products")
}

func TestExpander_CapsTableCount(t *testing.T) {
	snap := chainSnapshot()
	e := NewExpander(&fakeSearcher{snap: snap, ranked: rankedTables(snap, "orders", "products")},
		ExpanderOptions{MaxHops: 2, MaxTables: 2}, discard())

	elements, err := e.Expand(context.Background(), "everything", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "products"}, tableNames(elements))
}

func TestExpander_Deterministic(t *testing.T) {
	snap := chainSnapshot()
	e := NewExpander(&fakeSearcher{snap: snap, ranked: rankedTables(snap, "orders", "customers")},
		ExpanderOptions{}, discard())

	a, err := e.Expand(context.Background(), "orders and customers", nil)
	require.NoError(t, err)
	b, err := e.Expand(context.Background(), "orders and customers", nil)
	require.NoError(t, err)
	assert.Equal(t, tableNames(a), tableNames(b))
}

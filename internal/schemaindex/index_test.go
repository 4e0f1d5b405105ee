package schemaindex

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genbi/internal/domain"
)

type fakeSource struct {
	database string
	tables   []domain.SchemaElement
	err      error
}

func (f *fakeSource) Introspect(_ context.Context) (string, []domain.SchemaElement, error) {
	return f.database, f.tables, f.err
}

func testSource() *fakeSource {
	return &fakeSource{
		database: "sales_db",
		tables: []domain.SchemaElement{
			{
				QualifiedName: "orders",
				Columns: []domain.ColumnInfo{
					{Name: "id", DataType: "INTEGER", PrimaryKey: true},
					{Name: "order_date", DataType: "DATE"},
					{Name: "total_amount", DataType: "REAL"},
					{Name: "customer_id", DataType: "INTEGER"},
				},
				ForeignKeys: []domain.ForeignKey{
					{FromTable: "orders", FromColumn: "customer_id", ToTable: "customers", ToColumn: "id"},
				},
			},
			{
				QualifiedName: "customers",
				Columns: []domain.ColumnInfo{
					{Name: "id", DataType: "INTEGER", PrimaryKey: true},
					{Name: "email", DataType: "TEXT"},
					{Name: "region", DataType: "TEXT"},
				},
			},
		},
	}
}

func newTestIndex(t *testing.T, src domain.SchemaSource) *Index {
	t.Helper()
	return New(src, NewHashEmbedder(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestIndex_SearchBeforeRefresh(t *testing.T) {
	ix := newTestIndex(t, testSource())

	_, err := ix.Search(context.Background(), "revenue", 5)
	var ce *domain.CollaboratorError
	require.ErrorAs(t, err, &ce)
	assert.Nil(t, ix.Snapshot())
}

func TestIndex_RefreshBuildsSnapshot(t *testing.T) {
	ix := newTestIndex(t, testSource())
	require.NoError(t, ix.Refresh(context.Background()))

	snap := ix.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, "sales_db", snap.Database)
	// 2 table elements + 7 column elements.
	assert.Len(t, snap.Elements, 9)

	orders := snap.TableElement("orders")
	require.NotNil(t, orders)
	assert.Len(t, orders.Columns, 4)
	assert.Len(t, orders.ForeignKeys, 1)
	for _, e := range snap.Elements {
		assert.NotEmpty(t, e.Embedding, "element %s must be embedded", e.QualifiedName)
	}
}

func TestIndex_RefreshSourceError(t *testing.T) {
	ix := newTestIndex(t, &fakeSource{err: errors.New("connection refused")})

	err := ix.Refresh(context.Background())
	var ce *domain.CollaboratorError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "schema source", ce.Collaborator)
}

func TestIndex_SearchRanksByTokenOverlap(t *testing.T) {
	ix := newTestIndex(t, testSource())
	require.NoError(t, ix.Refresh(context.Background()))

	ranked, err := ix.Search(context.Background(), "customer email address", 3)
	require.NoError(t, err)
	require.NotEmpty(t, ranked)
	assert.Equal(t, "customers", ranked[0].Element.Table)
}

func TestIndex_SearchDeterministic(t *testing.T) {
	ix := newTestIndex(t, testSource())
	require.NoError(t, ix.Refresh(context.Background()))

	a, err := ix.Search(context.Background(), "total order amount by date", 5)
	require.NoError(t, err)
	b, err := ix.Search(context.Background(), "total order amount by date", 5)
	require.NoError(t, err)

	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].Element.QualifiedName, b[i].Element.QualifiedName)
		assert.Equal(t, a[i].Score, b[i].Score)
	}
}

func TestIndex_SearchTieBreakIsDeclarationOrder(t *testing.T) {
	ix := newTestIndex(t, testSource())
	require.NoError(t, ix.Refresh(context.Background()))

	// No token overlap at all: every score is zero, so snapshot order wins.
	ranked, err := ix.Search(context.Background(), "zzzz qqqq", 4)
	require.NoError(t, err)
	require.Len(t, ranked, 4)
	assert.Equal(t, "orders", ranked[0].Element.QualifiedName)
	assert.Equal(t, "orders.id", ranked[1].Element.QualifiedName)
}

func TestIndex_SearchTruncatesToK(t *testing.T) {
	ix := newTestIndex(t, testSource())
	require.NoError(t, ix.Refresh(context.Background()))

	ranked, err := ix.Search(context.Background(), "orders", 2)
	require.NoError(t, err)
	assert.Len(t, ranked, 2)
}

// switchingSource alternates between a one-table and a two-table schema on
// each introspection, so consecutive refreshes build snapshots of different
// sizes.
type switchingSource struct {
	calls atomic.Int64
}

func (s *switchingSource) Introspect(_ context.Context) (string, []domain.SchemaElement, error) {
	full := testSource()
	if s.calls.Add(1)%2 == 0 {
		return full.database, full.tables[:1], nil
	}
	return full.database, full.tables, nil
}

func TestIndex_ReadersAlwaysSeeWholeSnapshots(t *testing.T) {
	src := &switchingSource{}
	ix := newTestIndex(t, src)
	require.NoError(t, ix.Refresh(context.Background()))

	// Element counts of the two alternating schemas: orders alone is one
	// table plus four columns; the full schema is nine elements. Anything
	// else means a reader observed a half-built snapshot.
	validSizes := map[int]bool{5: true, 9: true}

	done := make(chan struct{})
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}

				snap := ix.Snapshot()
				if snap == nil {
					t.Error("snapshot vanished after first refresh")
					return
				}
				if !validSizes[len(snap.Elements)] {
					t.Errorf("torn snapshot: %d elements", len(snap.Elements))
					return
				}
				for i := range snap.Elements {
					if len(snap.Elements[i].Embedding) == 0 {
						t.Errorf("element %s visible without embedding", snap.Elements[i].QualifiedName)
						return
					}
				}

				ranked, err := ix.Search(context.Background(), "customer email", 3)
				if err != nil {
					t.Errorf("search during refresh: %v", err)
					return
				}
				if len(ranked) == 0 {
					t.Error("search returned no elements")
					return
				}
			}
		}()
	}

	for i := 0; i < 25; i++ {
		require.NoError(t, ix.Refresh(context.Background()))
	}
	close(done)
	wg.Wait()
}

// countingSource tracks how many introspections run at once.
type countingSource struct {
	active  atomic.Int64
	maxSeen atomic.Int64
}

func (s *countingSource) Introspect(_ context.Context) (string, []domain.SchemaElement, error) {
	cur := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		m := s.maxSeen.Load()
		if cur <= m || s.maxSeen.CompareAndSwap(m, cur) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	full := testSource()
	return full.database, full.tables, nil
}

func TestIndex_RefreshesAreSerialized(t *testing.T) {
	src := &countingSource{}
	ix := newTestIndex(t, src)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, ix.Refresh(context.Background()))
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, src.maxSeen.Load(), "rebuilds must not overlap")
	require.NotNil(t, ix.Snapshot())
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder()
	a, err := e.Embed(context.Background(), "Total revenue by month")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "Total revenue by month")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

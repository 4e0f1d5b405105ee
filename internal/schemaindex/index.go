// Package schemaindex holds the process-wide schema context index: an
// immutable snapshot of schema metadata with embedding vectors, answering
// similarity queries for the planner.
//
// The snapshot is swapped atomically on refresh; readers always see either
// the old or the new snapshot, never a partial one. Refresh is an explicit
// external operation and is never triggered mid-query.
package schemaindex

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"genbi/internal/domain"
)

// defaultEmbedParallelism bounds concurrent Embed calls during a refresh.
const defaultEmbedParallelism = 8

// Index is the schema context index. Safe for unlimited concurrent readers.
type Index struct {
	source   domain.SchemaSource
	embedder domain.Embedder
	logger   *slog.Logger
	snapshot atomic.Pointer[domain.SchemaSnapshot]

	// refreshMu serializes rebuilds so a slow stale build cannot overwrite
	// a newer snapshot. Both the admin endpoint and the cron scheduler call
	// Refresh.
	refreshMu sync.Mutex
}

var _ domain.SchemaSearcher = (*Index)(nil)

// New creates an empty index. Call Refresh before serving queries.
func New(source domain.SchemaSource, embedder domain.Embedder, logger *slog.Logger) *Index {
	return &Index{source: source, embedder: embedder, logger: logger}
}

// Snapshot returns the current snapshot, or nil before the first refresh.
func (ix *Index) Snapshot() *domain.SchemaSnapshot {
	return ix.snapshot.Load()
}

// Refresh rebuilds the snapshot from the schema source and swaps it in
// atomically. Refreshes are serialized; concurrent readers are always safe.
func (ix *Index) Refresh(ctx context.Context) error {
	ix.refreshMu.Lock()
	defer ix.refreshMu.Unlock()

	database, tables, err := ix.source.Introspect(ctx)
	if err != nil {
		return domain.ErrCollaborator("schema source", err)
	}

	elements := buildElements(database, tables)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultEmbedParallelism)
	for i := range elements {
		i := i
		g.Go(func() error {
			vec, err := ix.embedder.Embed(gctx, elements[i].Document)
			if err != nil {
				return fmt.Errorf("embed %s: %w", elements[i].QualifiedName, err)
			}
			elements[i].Embedding = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.ErrCollaborator("embedder", err)
	}

	snap := &domain.SchemaSnapshot{
		Database: database,
		Elements: elements,
		BuiltAt:  time.Now().UTC(),
	}
	ix.snapshot.Store(snap)
	ix.logger.Info("schema index refreshed",
		"database", database,
		"elements", len(elements),
	)
	return nil
}

// Search ranks snapshot elements by cosine similarity to the query text.
// Equal scores keep snapshot declaration order so identical inputs always
// produce identical rankings.
func (ix *Index) Search(ctx context.Context, text string, k int) ([]domain.RankedElement, error) {
	snap := ix.snapshot.Load()
	if snap == nil {
		return nil, domain.ErrCollaborator("schema index", fmt.Errorf("no snapshot: refresh has not run"))
	}

	query, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, domain.ErrCollaborator("embedder", err)
	}

	ranked := make([]domain.RankedElement, 0, len(snap.Elements))
	for i := range snap.Elements {
		e := &snap.Elements[i]
		ranked = append(ranked, domain.RankedElement{
			Element: e,
			Score:   cosine(query, e.Embedding),
		})
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].Score > ranked[b].Score })

	if k > 0 && k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked, nil
}

// buildElements turns introspected table metadata into index elements:
// one element per table and one per column, each with a searchable document.
func buildElements(database string, tables []domain.SchemaElement) []domain.SchemaElement {
	var out []domain.SchemaElement

	for _, t := range tables {
		names := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			names[i] = c.Name
		}

		doc := fmt.Sprintf("Table %s with columns %s", t.QualifiedName, strings.Join(names, ", "))
		for _, fk := range t.ForeignKeys {
			doc += fmt.Sprintf(". %s.%s references %s.%s", fk.FromTable, fk.FromColumn, fk.ToTable, fk.ToColumn)
		}

		out = append(out, domain.SchemaElement{
			Kind:          domain.ElementTable,
			QualifiedName: t.QualifiedName,
			Table:         t.QualifiedName,
			Columns:       t.Columns,
			ForeignKeys:   t.ForeignKeys,
			Document:      doc,
		})

		for _, c := range t.Columns {
			colDoc := fmt.Sprintf("Column %s in table %s of type %s", c.Name, t.QualifiedName, c.DataType)
			if c.PrimaryKey {
				colDoc += " primary key"
			}
			out = append(out, domain.SchemaElement{
				Kind:          domain.ElementColumn,
				QualifiedName: t.QualifiedName + "." + c.Name,
				Table:         t.QualifiedName,
				Document:      colDoc,
			})
		}
	}

	_ = database
	return out
}

// cosine computes cosine similarity; mismatched or zero vectors score 0.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

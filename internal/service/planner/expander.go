package planner

import (
	"context"
	"log/slog"
	"strings"

	"genbi/internal/domain"
)

// Expansion limits. Bounded context keeps synthesis prompts small and
// keeps the blast radius of a bad ranking contained.
const (
	DefaultTopK      = 12
	DefaultMaxHops   = 2
	DefaultMaxTables = 8
)

// ExpanderOptions tune how much schema surface a question pulls in.
// Zero values take the package defaults; MaxHops < 0 disables FK widening.
type ExpanderOptions struct {
	TopK      int // ranked elements considered from the index
	MaxHops   int // foreign-key hops followed from seed tables
	MaxTables int // hard cap on tables in the expanded surface
}

func (o ExpanderOptions) withDefaults() ExpanderOptions {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.MaxHops == 0 {
		o.MaxHops = DefaultMaxHops
	}
	if o.MaxHops < 0 {
		o.MaxHops = 0
	}
	if o.MaxTables <= 0 {
		o.MaxTables = DefaultMaxTables
	}
	return o
}

// Expander selects the schema surface relevant to a question: the tables
// behind the best-ranked index elements, widened along foreign keys so
// joinable neighbors are always in scope.
type Expander struct {
	searcher domain.SchemaSearcher
	opts     ExpanderOptions
	logger   *slog.Logger
}

func NewExpander(searcher domain.SchemaSearcher, opts ExpanderOptions, logger *slog.Logger) *Expander {
	return &Expander{
		searcher: searcher,
		opts:     opts.withDefaults(),
		logger:   logger.With("component", "expander"),
	}
}

// Expand returns table elements ordered most relevant first. Seed tables
// come from ranked search hits in rank order; foreign-key neighbors follow,
// one hop at a time, in the deterministic order of their referencing seed.
// The result never exceeds MaxTables.
func (e *Expander) Expand(ctx context.Context, question string, intent *domain.QueryIntent) ([]domain.SchemaElement, error) {
	text := question
	if intent != nil {
		if extra := intent.EntityText(); extra != "" {
			text += " " + extra
		}
	}

	ranked, err := e.searcher.Search(ctx, text, e.opts.TopK)
	if err != nil {
		return nil, err
	}
	snap := e.searcher.Snapshot()

	seen := map[string]bool{}
	var order []string
	add := func(table string) {
		if table != "" && !seen[table] && len(order) < e.opts.MaxTables {
			seen[table] = true
			order = append(order, table)
		}
	}

	for _, r := range ranked {
		add(r.Element.Table)
	}

	// Widen along foreign keys, breadth-first, both directions.
	frontier := append([]string(nil), order...)
	for hop := 0; hop < e.opts.MaxHops && len(order) < e.opts.MaxTables; hop++ {
		var next []string
		for _, name := range frontier {
			for _, neighbor := range fkNeighbors(snap, name) {
				if !seen[neighbor] {
					add(neighbor)
					next = append(next, neighbor)
				}
			}
		}
		frontier = next
	}

	elements := make([]domain.SchemaElement, 0, len(order))
	for _, name := range order {
		if te := snap.TableElement(name); te != nil {
			elements = append(elements, *te)
		}
	}

	e.logger.Debug("context expanded",
		"question", question,
		"tables", strings.Join(order, ","),
	)
	return elements, nil
}

// fkNeighbors returns tables one foreign-key hop from name, outgoing
// references first, then incoming, in snapshot declaration order.
func fkNeighbors(snap *domain.SchemaSnapshot, name string) []string {
	var out []string
	if te := snap.TableElement(name); te != nil {
		for _, fk := range te.ForeignKeys {
			out = append(out, fk.ToTable)
		}
	}
	for i := range snap.Elements {
		el := &snap.Elements[i]
		if el.Kind != domain.ElementTable {
			continue
		}
		for _, fk := range el.ForeignKeys {
			if fk.ToTable == name {
				out = append(out, el.QualifiedName)
			}
		}
	}
	return out
}

package domain

import "time"

// Schema element kinds.
const (
	ElementDatabase = "database"
	ElementTable    = "table"
	ElementColumn   = "column"
)

// ForeignKey is a join edge between two tables.
type ForeignKey struct {
	FromTable  string
	FromColumn string
	ToTable    string
	ToColumn   string
}

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name       string
	DataType   string
	Nullable   bool
	PrimaryKey bool
}

// SchemaElement is one entry of the schema context index: a database, a
// table, or a column, with its embedding vector and relationship edges.
// Elements are built at refresh time and read-only during query processing.
type SchemaElement struct {
	Kind          string // database, table, or column
	QualifiedName string // "db", "table", or "table.column"
	Table         string // owning table for column elements
	Columns       []ColumnInfo
	ForeignKeys   []ForeignKey
	Document      string // text the embedding was computed from
	Embedding     []float32
}

// SchemaSnapshot is an immutable view of schema metadata. A refresh builds a
// whole new snapshot; readers always see either the old or the new one.
type SchemaSnapshot struct {
	Database string
	Elements []SchemaElement
	BuiltAt  time.Time
}

// TableElement returns the table element with the given name, or nil.
func (s *SchemaSnapshot) TableElement(name string) *SchemaElement {
	for i := range s.Elements {
		e := &s.Elements[i]
		if e.Kind == ElementTable && e.QualifiedName == name {
			return e
		}
	}
	return nil
}

// RankedElement pairs a schema element with its similarity score.
type RankedElement struct {
	Element *SchemaElement
	Score   float64
}

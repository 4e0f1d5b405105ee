package db

import (
	"context"
	"database/sql"
	"fmt"

	"genbi/internal/domain"
)

// Introspector reads table metadata from a SQLite target database. It
// implements domain.SchemaSource for the schema index.
type Introspector struct {
	pool     *sql.DB
	database string // logical database name reported to the index
}

var _ domain.SchemaSource = (*Introspector)(nil)

func NewIntrospector(pool *sql.DB, database string) *Introspector {
	return &Introspector{pool: pool, database: database}
}

// Introspect lists user tables with their columns and foreign keys, in
// name order so index snapshots are stable across refreshes.
func (i *Introspector) Introspect(ctx context.Context) (string, []domain.SchemaElement, error) {
	rows, err := i.pool.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		  AND name NOT LIKE 'goose_%'
		ORDER BY name`)
	if err != nil {
		return "", nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return "", nil, err
	}

	tables := make([]domain.SchemaElement, 0, len(names))
	for _, name := range names {
		columns, err := i.columns(ctx, name)
		if err != nil {
			return "", nil, err
		}
		fks, err := i.foreignKeys(ctx, name)
		if err != nil {
			return "", nil, err
		}
		tables = append(tables, domain.SchemaElement{
			Kind:          domain.ElementTable,
			QualifiedName: name,
			Table:         name,
			Columns:       columns,
			ForeignKeys:   fks,
		})
	}

	return i.database, tables, nil
}

func (i *Introspector) columns(ctx context.Context, table string) ([]domain.ColumnInfo, error) {
	rows, err := i.pool.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	var out []domain.ColumnInfo
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		out = append(out, domain.ColumnInfo{
			Name:       name,
			DataType:   ctype,
			Nullable:   notNull == 0,
			PrimaryKey: pk > 0,
		})
	}
	return out, rows.Err()
}

func (i *Introspector) foreignKeys(ctx context.Context, table string) ([]domain.ForeignKey, error) {
	rows, err := i.pool.QueryContext(ctx, fmt.Sprintf(`PRAGMA foreign_key_list(%q)`, table))
	if err != nil {
		return nil, fmt.Errorf("foreign_key_list %s: %w", table, err)
	}
	defer rows.Close()

	var out []domain.ForeignKey
	for rows.Next() {
		var (
			id, seq            int
			toTable            string
			from, to           sql.NullString
			onUpdate, onDelete string
			match              string
		)
		if err := rows.Scan(&id, &seq, &toTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		out = append(out, domain.ForeignKey{
			FromTable:  table,
			FromColumn: from.String,
			ToTable:    toTable,
			ToColumn:   to.String,
		})
	}
	return out, rows.Err()
}

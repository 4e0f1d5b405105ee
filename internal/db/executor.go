package db

import (
	"context"
	"database/sql"
	"time"

	"genbi/internal/domain"
)

// DefaultQueryTimeout bounds one statement on the execution engine.
const DefaultQueryTimeout = 30 * time.Second

// Executor runs authorized statements against the target database. It
// implements domain.ExecutionEngine over a read-only pool; the pipeline's
// validator guarantees nothing but SELECTs reach it.
type Executor struct {
	pool    *sql.DB
	timeout time.Duration
}

var _ domain.ExecutionEngine = (*Executor)(nil)

func NewExecutor(pool *sql.DB, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &Executor{pool: pool, timeout: timeout}
}

func (e *Executor) Execute(ctx context.Context, query string) (*domain.ResultSet, error) {
	qctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rows, err := e.pool.QueryContext(qctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &domain.ResultSet{Columns: columns}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			// Byte slices are driver-owned; copy into plain strings.
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	return result, rows.Err()
}

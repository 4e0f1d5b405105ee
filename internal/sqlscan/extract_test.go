package sqlscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_SimpleSelect(t *testing.T) {
	rs, err := Extract("SELECT order_date, total_amount FROM orders")
	require.NoError(t, err)

	assert.Equal(t, []string{"orders"}, rs.SortedTables())
	assert.Equal(t, []string{"orders.order_date", "orders.total_amount"}, rs.SortedColumns())
	assert.Empty(t, rs.SortedDatabases())
}

func TestExtract_AliasResolution(t *testing.T) {
	rs, err := Extract("SELECT t.order_date FROM orders t WHERE t.total_amount > 100")
	require.NoError(t, err)

	assert.Equal(t, []string{"orders"}, rs.SortedTables())
	assert.Equal(t, []string{"orders.order_date", "orders.total_amount"}, rs.SortedColumns())
}

func TestExtract_UnqualifiedColumnAttributedToEveryTable(t *testing.T) {
	// Ambiguity must over-attribute: amt could live in either table.
	rs, err := Extract("SELECT amt FROM a JOIN b ON a.id = b.id")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, rs.SortedTables())
	assert.Contains(t, rs.Columns, "a.amt")
	assert.Contains(t, rs.Columns, "b.amt")
	assert.Contains(t, rs.Columns, "a.id")
	assert.Contains(t, rs.Columns, "b.id")
}

func TestExtract_WildcardSelect(t *testing.T) {
	rs, err := Extract("SELECT * FROM orders JOIN customers ON orders.customer_id = customers.id")
	require.NoError(t, err)

	assert.Contains(t, rs.Columns, "orders.*")
	assert.Contains(t, rs.Columns, "customers.*")
}

func TestExtract_QualifiedWildcard(t *testing.T) {
	rs, err := Extract("SELECT o.* FROM orders o")
	require.NoError(t, err)

	assert.Equal(t, []string{"orders.*"}, rs.SortedColumns())
}

func TestExtract_SelectAliasNotAColumn(t *testing.T) {
	rs, err := Extract("SELECT SUM(total_amount) AS revenue FROM orders GROUP BY region ORDER BY revenue DESC")
	require.NoError(t, err)

	assert.NotContains(t, rs.Columns, "orders.revenue")
	assert.Contains(t, rs.Columns, "orders.total_amount")
	assert.Contains(t, rs.Columns, "orders.region")
}

func TestExtract_ImplicitAliasWithoutAS(t *testing.T) {
	rs, err := Extract("SELECT SUM(total_amount) revenue FROM orders ORDER BY revenue")
	require.NoError(t, err)

	assert.NotContains(t, rs.Columns, "orders.revenue")
}

func TestExtract_FunctionNamesSkipped(t *testing.T) {
	rs, err := Extract("SELECT DATE_TRUNC('month', order_date) AS month FROM orders GROUP BY month")
	require.NoError(t, err)

	assert.NotContains(t, rs.Columns, "orders.DATE_TRUNC")
	assert.NotContains(t, rs.Columns, "orders.month")
	assert.Contains(t, rs.Columns, "orders.order_date")
}

func TestExtract_CommaSeparatedFromList(t *testing.T) {
	rs, err := Extract("SELECT a.x, b.y FROM a, b WHERE a.id = b.id")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, rs.SortedTables())
}

func TestExtract_SubqueryTables(t *testing.T) {
	rs, err := Extract("SELECT id FROM orders WHERE id IN (SELECT order_id FROM refunds)")
	require.NoError(t, err)

	assert.Contains(t, rs.Tables, "orders")
	assert.Contains(t, rs.Tables, "refunds")
}

func TestExtract_DatabaseQualifiedTable(t *testing.T) {
	rs, err := Extract("SELECT o.total_amount FROM sales_db.orders o")
	require.NoError(t, err)

	assert.Equal(t, []string{"sales_db"}, rs.SortedDatabases())
	assert.Equal(t, []string{"orders"}, rs.SortedTables())
	assert.Equal(t, []string{"orders.total_amount"}, rs.SortedColumns())
}

func TestExtract_SelfJoinDeduplicates(t *testing.T) {
	rs, err := Extract("SELECT t1.id FROM orders t1 JOIN orders t2 ON t1.id = t2.parent_id")
	require.NoError(t, err)

	assert.Equal(t, []string{"orders"}, rs.SortedTables())
}

func TestExtract_QuotedIdentifiers(t *testing.T) {
	rs, err := Extract(`SELECT "OrderDate" FROM "Orders"`)
	require.NoError(t, err)

	assert.Contains(t, rs.Tables, "Orders")
	assert.Contains(t, rs.Columns, "Orders.OrderDate")
}

func TestExtract_CTENotATable(t *testing.T) {
	sql := `WITH monthly AS (SELECT order_date, SUM(total_amount) AS total FROM orders GROUP BY order_date)
SELECT m.order_date, m.total FROM monthly m`
	rs, err := Extract(sql)
	require.NoError(t, err)

	assert.Equal(t, []string{"orders"}, rs.SortedTables())
	assert.NotContains(t, rs.Tables, "monthly")
	assert.NotContains(t, rs.Tables, "m")
	// CTE column references fall back to every stored table in scope.
	assert.Contains(t, rs.Columns, "orders.order_date")
	assert.NotContains(t, rs.Columns, "orders.total")
}

func TestExtract_LimitClauseIgnored(t *testing.T) {
	with, err := Extract("SELECT order_date FROM orders LIMIT 50")
	require.NoError(t, err)
	without, err := Extract("SELECT order_date FROM orders")
	require.NoError(t, err)

	assert.True(t, with.Equal(without), "LIMIT must not alter the resource set")
}

func TestExtract_Unbalanced(t *testing.T) {
	_, err := Extract("SELECT SUM(total FROM orders")
	require.Error(t, err)
}

func TestWellformed(t *testing.T) {
	require.NoError(t, Wellformed("SELECT 1"))
	require.Error(t, Wellformed(""))
	require.Error(t, Wellformed("SELECT (1"))
}

func TestClassifyStatement(t *testing.T) {
	tests := []struct {
		sql  string
		want StatementClass
	}{
		{"SELECT * FROM orders", StmtSelect},
		{"select 1", StmtSelect},
		{"WITH cte AS (SELECT 1) SELECT * FROM cte", StmtSelect},
		{"INSERT INTO orders VALUES (1)", StmtWrite},
		{"UPDATE orders SET x = 1", StmtWrite},
		{"DELETE FROM orders", StmtWrite},
		{"DROP TABLE orders", StmtDDL},
		{"CREATE TABLE t (id INT)", StmtDDL},
		{"TRUNCATE TABLE orders", StmtDDL},
		{"SELECT 1; SELECT 2", StmtMulti},
		{"SELECT 1;", StmtSelect}, // trailing semicolon is not a batch
		{"EXPLAIN SELECT 1", StmtUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyStatement(tt.sql), "sql: %s", tt.sql)
	}
}

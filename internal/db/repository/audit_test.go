package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genbi/internal/db"
	"genbi/internal/domain"
)

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }
func i64Ptr(i int64) *int64     { return &i }

func insertEntry(t *testing.T, repo *AuditRepo, principal, status string, at time.Time) {
	t.Helper()
	entry := &domain.AuditEntry{
		ID:            domain.NewID(),
		PrincipalName: principal,
		Question:      "total revenue by region",
		Status:        status,
		CreatedAt:     at,
	}
	switch status {
	case domain.AuditExecuted:
		entry.CandidateSQL = strPtr("SELECT region, SUM(total_amount) AS total FROM orders GROUP BY region")
		entry.Confidence = f64Ptr(0.8)
		entry.DurationMs = i64Ptr(42)
	case domain.AuditDenied:
		entry.CandidateSQL = strPtr("SELECT salary FROM salaries")
		entry.ReasonCode = strPtr(domain.ReasonTableDenied)
	case domain.AuditFailed:
		entry.ErrorMessage = strPtr("could not produce a safe query after 2 attempts")
	}
	require.NoError(t, repo.Insert(context.Background(), entry))
}

func TestAuditRepo_InsertAndList(t *testing.T) {
	writeDB, readDB := db.OpenTestSQLite(t)
	repo := NewAuditRepo(writeDB, readDB)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	insertEntry(t, repo, "analyst", domain.AuditExecuted, base)
	insertEntry(t, repo, "analyst", domain.AuditDenied, base.Add(time.Minute))
	insertEntry(t, repo, "intern", domain.AuditFailed, base.Add(2*time.Minute))

	entries, total, err := repo.List(context.Background(), domain.AuditFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.AuditFailed, entries[0].Status, "newest first")
	assert.Equal(t, domain.AuditExecuted, entries[2].Status)

	executed := entries[2]
	require.NotNil(t, executed.CandidateSQL)
	assert.Contains(t, *executed.CandidateSQL, "GROUP BY region")
	require.NotNil(t, executed.Confidence)
	assert.InDelta(t, 0.8, *executed.Confidence, 1e-9)
	assert.Equal(t, base, executed.CreatedAt)
}

func TestAuditRepo_Filters(t *testing.T) {
	writeDB, readDB := db.OpenTestSQLite(t)
	repo := NewAuditRepo(writeDB, readDB)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	insertEntry(t, repo, "analyst", domain.AuditExecuted, base)
	insertEntry(t, repo, "analyst", domain.AuditDenied, base.Add(time.Minute))
	insertEntry(t, repo, "intern", domain.AuditDenied, base.Add(2*time.Minute))

	byPrincipal, total, err := repo.List(context.Background(), domain.AuditFilter{PrincipalName: strPtr("analyst")})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, byPrincipal, 2)

	denied := domain.AuditDenied
	byStatus, total, err := repo.List(context.Background(), domain.AuditFilter{Status: &denied})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, e := range byStatus {
		assert.Equal(t, domain.AuditDenied, e.Status)
	}

	both, total, err := repo.List(context.Background(), domain.AuditFilter{
		PrincipalName: strPtr("analyst"), Status: &denied,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, both, 1)
	require.NotNil(t, both[0].ReasonCode)
}

func TestAuditRepo_ConcurrentInserts(t *testing.T) {
	writeDB, readDB := db.OpenTestSQLite(t)
	repo := NewAuditRepo(writeDB, readDB)

	const (
		writers          = 8
		entriesPerWriter = 10
	)

	var wg sync.WaitGroup
	errs := make(chan error, writers*entriesPerWriter)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < entriesPerWriter; i++ {
				entry := &domain.AuditEntry{
					ID:            domain.NewID(),
					PrincipalName: fmt.Sprintf("writer-%d", w),
					Question:      fmt.Sprintf("question %d", i),
					Status:        domain.AuditExecuted,
					CreatedAt:     time.Now().UTC(),
				}
				if err := repo.Insert(context.Background(), entry); err != nil {
					errs <- err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent insert: %v", err)
	}

	_, total, err := repo.List(context.Background(), domain.AuditFilter{Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, writers*entriesPerWriter, total, "every append must land")
}

func TestAuditRepo_Pagination(t *testing.T) {
	writeDB, readDB := db.OpenTestSQLite(t)
	repo := NewAuditRepo(writeDB, readDB)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		insertEntry(t, repo, "analyst", domain.AuditExecuted, base.Add(time.Duration(i)*time.Second))
	}

	page, total, err := repo.List(context.Background(), domain.AuditFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, page, 2)
}

package expense

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(db), mock
}

func TestList_MonthAndCategoryFilter(t *testing.T) {
	repo, mock := newTestRepo(t)

	month := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "category_id", "recurring_id", "title", "amount_cents", "currency", "incurred_on", "created_at", "updated_at",
	}).AddRow("e1", "u1", "c1", nil, "Groceries", int64(4250), "EUR", month.AddDate(0, 0, 4), now, now)

	mock.ExpectQuery("SELECT id, user_id, category_id, recurring_id").
		WithArgs("u1", month, month.AddDate(0, 1, 0), "c1").
		WillReturnRows(rows)

	expenses, err := repo.List(context.Background(), "u1", ListFilter{Month: &month, CategoryID: "c1"})
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, "Groceries", expenses[0].Title)
	assert.Equal(t, int64(4250), expenses[0].AmountCents)
	assert.Nil(t, expenses[0].RecurringID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_CategoryNotOwned(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectExec("INSERT INTO expenses").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Create(context.Background(), "u1", ExpenseInput{
		CategoryID:  "c-other",
		Title:       "Sneaky",
		AmountCents: 100,
		Currency:    "USD",
	}, time.Now().UTC())

	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectExec("DELETE FROM expenses").
		WithArgs("e-missing", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "u1", "e-missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSummary(t *testing.T) {
	repo, mock := newTestRepo(t)

	month := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "name", "total"}).
		AddRow("c1", "Groceries", int64(12300)).
		AddRow("c2", "Transport", int64(4500))

	mock.ExpectQuery("SELECT c.id, c.name, COALESCE").
		WithArgs("u1", monthStart, monthStart.AddDate(0, 1, 0)).
		WillReturnRows(rows)

	summary, err := repo.Summary(context.Background(), "u1", month)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, "Groceries", summary[0].CategoryName)
	assert.Equal(t, int64(12300), summary[0].TotalCents)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterializeDue(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectExec("WITH due AS").
		WillReturnResult(sqlmock.NewResult(0, 3))

	inserted, err := repo.MaterializeDue(context.Background(), time.Now().UTC(), 500)
	require.NoError(t, err)
	assert.Equal(t, int64(3), inserted)

	// Idempotence within the month comes from the anti-join: a second run
	// finds nothing due.
	mock.ExpectExec("WITH due AS").
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err = repo.MaterializeDue(context.Background(), time.Now().UTC(), 500)
	require.NoError(t, err)
	assert.Zero(t, inserted)

	require.NoError(t, mock.ExpectationsWereMet())
}

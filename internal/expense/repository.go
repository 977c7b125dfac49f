package expense

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context, userID string, filter ListFilter) ([]Expense, error) {
	query := `
		SELECT id, user_id, category_id, recurring_id, title, amount_cents, currency, incurred_on, created_at, updated_at
		FROM expenses
		WHERE user_id = $1
	`
	args := []any{userID}

	if filter.Month != nil {
		monthStart := time.Date(filter.Month.Year(), filter.Month.Month(), 1, 0, 0, 0, 0, time.UTC)
		args = append(args, monthStart, monthStart.AddDate(0, 1, 0))
		query += fmt.Sprintf(" AND incurred_on >= $%d AND incurred_on < $%d", len(args)-1, len(args))
	}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		query += fmt.Sprintf(" AND category_id = $%d", len(args))
	}
	query += " ORDER BY incurred_on DESC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]Expense, 0)
	for rows.Next() {
		var e Expense
		var recurringID sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.CategoryID, &recurringID, &e.Title, &e.AmountCents, &e.Currency, &e.IncurredOn, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if recurringID.Valid {
			e.RecurringID = &recurringID.String
		}
		expenses = append(expenses, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}

	return expenses, nil
}

func (r *Repository) Create(ctx context.Context, userID string, input ExpenseInput, incurredOn time.Time) (Expense, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Expense{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := time.Now().UTC()
	e := Expense{
		ID:          id.String(),
		UserID:      userID,
		CategoryID:  input.CategoryID,
		Title:       input.Title,
		AmountCents: input.AmountCents,
		Currency:    input.Currency,
		IncurredOn:  incurredOn,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// The INSERT..SELECT inserts nothing when the category does not belong
	// to the caller; that surfaces as not-found.
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (id, user_id, category_id, title, amount_cents, currency, incurred_on, created_at, updated_at)
		SELECT $1, $2, c.id, $4, $5, $6, $7, $8, $8
		FROM categories c
		WHERE c.id = $3 AND c.user_id = $2
	`, e.ID, e.UserID, e.CategoryID, e.Title, e.AmountCents, e.Currency, e.IncurredOn, now)
	if err != nil {
		return Expense{}, fmt.Errorf("insert expense: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return Expense{}, fmt.Errorf("insert expense rows affected: %w", err)
	}
	if affected == 0 {
		return Expense{}, sql.ErrNoRows
	}

	return e, nil
}

func (r *Repository) Update(ctx context.Context, userID, id string, input ExpenseInput, incurredOn time.Time) (Expense, error) {
	var e Expense
	var recurringID sql.NullString
	err := r.db.QueryRowContext(ctx, `
		UPDATE expenses
		SET category_id = $3, title = $4, amount_cents = $5, currency = $6, incurred_on = $7, updated_at = $8
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, category_id, recurring_id, title, amount_cents, currency, incurred_on, created_at, updated_at
	`, id, userID, input.CategoryID, input.Title, input.AmountCents, input.Currency, incurredOn, time.Now().UTC()).
		Scan(&e.ID, &e.UserID, &e.CategoryID, &recurringID, &e.Title, &e.AmountCents, &e.Currency, &e.IncurredOn, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Expense{}, err
		}
		return Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if recurringID.Valid {
		e.RecurringID = &recurringID.String
	}

	return e, nil
}

func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// Summary totals the user's expenses per category for the month containing
// the given date.
func (r *Repository) Summary(ctx context.Context, userID string, month time.Time) ([]SummaryRow, error) {
	monthStart := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, COALESCE(SUM(e.amount_cents), 0)
		FROM expenses e
		JOIN categories c ON c.id = e.category_id
		WHERE e.user_id = $1 AND e.incurred_on >= $2 AND e.incurred_on < $3
		GROUP BY c.id, c.name
		ORDER BY 3 DESC
	`, userID, monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return nil, fmt.Errorf("query expense summary: %w", err)
	}
	defer rows.Close()

	summary := make([]SummaryRow, 0)
	for rows.Next() {
		var row SummaryRow
		if err := rows.Scan(&row.CategoryID, &row.CategoryName, &row.TotalCents); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		summary = append(summary, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}

	return summary, nil
}

func (r *Repository) ListRecurring(ctx context.Context, userID string) ([]RecurringExpense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, category_id, title, amount_cents, currency, day_of_month, created_at, updated_at
		FROM recurring_expenses
		WHERE user_id = $1
		ORDER BY day_of_month ASC, title ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query recurring expenses: %w", err)
	}
	defer rows.Close()

	recurring := make([]RecurringExpense, 0)
	for rows.Next() {
		var re RecurringExpense
		if err := rows.Scan(&re.ID, &re.UserID, &re.CategoryID, &re.Title, &re.AmountCents, &re.Currency, &re.DayOfMonth, &re.CreatedAt, &re.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan recurring expense: %w", err)
		}
		recurring = append(recurring, re)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recurring expenses: %w", err)
	}

	return recurring, nil
}

func (r *Repository) CreateRecurring(ctx context.Context, userID string, input RecurringInput) (RecurringExpense, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return RecurringExpense{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := time.Now().UTC()
	re := RecurringExpense{
		ID:          id.String(),
		UserID:      userID,
		CategoryID:  input.CategoryID,
		Title:       input.Title,
		AmountCents: input.AmountCents,
		Currency:    input.Currency,
		DayOfMonth:  input.DayOfMonth,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_expenses (id, user_id, category_id, title, amount_cents, currency, day_of_month, created_at, updated_at)
		SELECT $1, $2, c.id, $4, $5, $6, $7, $8, $8
		FROM categories c
		WHERE c.id = $3 AND c.user_id = $2
	`, re.ID, re.UserID, re.CategoryID, re.Title, re.AmountCents, re.Currency, re.DayOfMonth, now)
	if err != nil {
		return RecurringExpense{}, fmt.Errorf("insert recurring expense: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return RecurringExpense{}, fmt.Errorf("insert recurring rows affected: %w", err)
	}
	if affected == 0 {
		return RecurringExpense{}, sql.ErrNoRows
	}

	return re, nil
}

func (r *Repository) UpdateRecurring(ctx context.Context, userID, id string, input RecurringInput) (RecurringExpense, error) {
	var re RecurringExpense
	err := r.db.QueryRowContext(ctx, `
		UPDATE recurring_expenses
		SET category_id = $3, title = $4, amount_cents = $5, currency = $6, day_of_month = $7, updated_at = $8
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, category_id, title, amount_cents, currency, day_of_month, created_at, updated_at
	`, id, userID, input.CategoryID, input.Title, input.AmountCents, input.Currency, input.DayOfMonth, time.Now().UTC()).
		Scan(&re.ID, &re.UserID, &re.CategoryID, &re.Title, &re.AmountCents, &re.Currency, &re.DayOfMonth, &re.CreatedAt, &re.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RecurringExpense{}, err
		}
		return RecurringExpense{}, fmt.Errorf("update recurring expense: %w", err)
	}

	return re, nil
}

func (r *Repository) DeleteRecurring(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_expenses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete recurring expense: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// MaterializeDue inserts a concrete expense for every recurring template due
// on the given day that has not been materialized this month yet. The
// anti-join makes the job idempotent within a month, so rerunning it never
// duplicates rows.
func (r *Repository) MaterializeDue(ctx context.Context, now time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	today := now.UTC().Format("2006-01-02")

	res, err := r.db.ExecContext(ctx, `
		WITH due AS (
			SELECT r.id, r.user_id, r.category_id, r.title, r.amount_cents, r.currency
			FROM recurring_expenses r
			WHERE r.day_of_month = EXTRACT(DAY FROM $1::date)
			  AND NOT EXISTS (
				SELECT 1
				FROM expenses e
				WHERE e.recurring_id = r.id
				  AND e.incurred_on >= date_trunc('month', $1::date)
				  AND e.incurred_on < date_trunc('month', $1::date) + INTERVAL '1 month'
			  )
			ORDER BY r.id
			LIMIT $2
		)
		INSERT INTO expenses (id, user_id, category_id, recurring_id, title, amount_cents, currency, incurred_on, created_at, updated_at)
		SELECT gen_random_uuid(), user_id, category_id, id, title, amount_cents, currency, $1::date, NOW(), NOW()
		FROM due
	`, today, batchSize)
	if err != nil {
		return 0, fmt.Errorf("materialize recurring expenses: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("materialize rows affected: %w", err)
	}

	return affected, nil
}

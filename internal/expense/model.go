package expense

import "time"

type Expense struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	CategoryID  string    `json:"categoryId"`
	RecurringID *string   `json:"recurringId,omitempty"`
	Title       string    `json:"title"`
	AmountCents int64     `json:"amountCents"`
	Currency    string    `json:"currency"`
	IncurredOn  time.Time `json:"incurredOn"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ExpenseInput carries the request body; IncurredOn stays a string until the
// handler has validated the YYYY-MM-DD format.
type ExpenseInput struct {
	CategoryID  string `json:"categoryId"`
	Title       string `json:"title"`
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
	IncurredOn  string `json:"incurredOn"`
}

type RecurringExpense struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	CategoryID  string    `json:"categoryId"`
	Title       string    `json:"title"`
	AmountCents int64     `json:"amountCents"`
	Currency    string    `json:"currency"`
	DayOfMonth  int       `json:"dayOfMonth"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type RecurringInput struct {
	CategoryID  string `json:"categoryId"`
	Title       string `json:"title"`
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
	DayOfMonth  int    `json:"dayOfMonth"`
}

type SummaryRow struct {
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	TotalCents   int64  `json:"totalCents"`
}

// ListFilter narrows List; zero values mean no filtering.
type ListFilter struct {
	Month      *time.Time
	CategoryID string
}

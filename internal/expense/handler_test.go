package expense

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Validation failures never reach the repository, so a nil-repo handler is
// enough for these cases.
func TestCreate_Validation(t *testing.T) {
	t.Parallel()

	handler := NewHandler(nil)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"bad category id", `{"categoryId":"nope","title":"Coffee","amountCents":300,"incurredOn":"2026-03-01"}`},
		{"missing title", `{"categoryId":"0195c3a4-0000-7000-8000-000000000000","title":"","amountCents":300,"incurredOn":"2026-03-01"}`},
		{"negative amount", `{"categoryId":"0195c3a4-0000-7000-8000-000000000000","title":"Coffee","amountCents":-1,"incurredOn":"2026-03-01"}`},
		{"bad currency", `{"categoryId":"0195c3a4-0000-7000-8000-000000000000","title":"Coffee","amountCents":300,"currency":"usd$","incurredOn":"2026-03-01"}`},
		{"bad date", `{"categoryId":"0195c3a4-0000-7000-8000-000000000000","title":"Coffee","amountCents":300,"incurredOn":"03/01/2026"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			handler.Create(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestList_BadFilters(t *testing.T) {
	t.Parallel()

	handler := NewHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/expenses?month=March", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/expenses?category=nope", nil)
	rec = httptest.NewRecorder()
	handler.List(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummary_BadMonth(t *testing.T) {
	t.Parallel()

	handler := NewHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/expenses/summary?month=2026-3", nil)
	rec := httptest.NewRecorder()
	handler.Summary(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRecurring_Validation(t *testing.T) {
	t.Parallel()

	handler := NewHandler(nil)

	cases := []struct {
		name string
		body string
	}{
		{"day too small", `{"categoryId":"0195c3a4-0000-7000-8000-000000000000","title":"Rent","amountCents":90000,"dayOfMonth":0}`},
		{"day too large", `{"categoryId":"0195c3a4-0000-7000-8000-000000000000","title":"Rent","amountCents":90000,"dayOfMonth":32}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/recurring-expenses", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			handler.CreateRecurring(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestParseExpenseInput_DefaultsCurrency(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(
		`{"categoryId":"0195c3a4-0000-7000-8000-000000000000","title":"Coffee","amountCents":300,"incurredOn":"2026-03-01"}`))
	req = req.WithContext(context.Background())
	rec := httptest.NewRecorder()

	input, incurredOn, ok := parseExpenseInput(rec, req)
	assert.True(t, ok)
	assert.Equal(t, "USD", input.Currency)
	assert.Equal(t, "2026-03-01", incurredOn.Format("2006-01-02"))
}

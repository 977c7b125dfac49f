package category

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreate_Validation(t *testing.T) {
	t.Parallel()

	handler := NewHandler(nil)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing name", `{"name":"  "}`},
		{"name too long", `{"name":"` + strings.Repeat("a", 65) + `"}`},
		{"bad color", `{"name":"Groceries","color":"blue"}`},
		{"unknown field", `{"name":"Groceries","icon":"cart"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			handler.Create(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUpdate_InvalidID(t *testing.T) {
	t.Parallel()

	handler := NewHandler(nil)

	req := httptest.NewRequest(http.MethodPut, "/api/categories/nope", strings.NewReader(`{"name":"Groceries"}`))
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	handler.Update(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

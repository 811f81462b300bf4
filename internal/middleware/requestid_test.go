package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveRequestID(t *testing.T, header string) (ctxID string, rec *httptest.ResponseRecorder) {
	t.Helper()
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/query", nil)
	if header != "" {
		req.Header.Set("X-Request-ID", header)
	}
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return ctxID, rec
}

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	id, rec := serveRequestID(t, "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, id, 36)
	assert.Equal(t, id, rec.Header().Get("X-Request-ID"))
}

func TestRequestID_ClientValues(t *testing.T) {
	tests := []struct {
		name string
		in   string
		keep bool
	}{
		{"dashboard trace id", "dash-7f3a_01", true},
		{"128 chars", strings.Repeat("x", 128), true},
		{"129 chars", strings.Repeat("x", 129), false},
		{"newline", "abc\nlevel=ERROR", false},
		{"carriage return", "abc\rdef", false},
		{"space", "two words", false},
		{"markup", "<b>id</b>", false},
		{"dot", "a.b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, rec := serveRequestID(t, tt.in)
			require.NotEmpty(t, id)
			assert.Equal(t, id, rec.Header().Get("X-Request-ID"))
			if tt.keep {
				assert.Equal(t, tt.in, id)
			} else {
				assert.NotEqual(t, tt.in, id)
			}
		})
	}
}

func TestRequestIDFromContext_Missing(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}

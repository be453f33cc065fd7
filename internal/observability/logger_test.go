package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestWithFields(t *testing.T) {
	ctx := context.Background()
	ctx = WithFields(ctx, Field{"request_id", "req-1"})
	ctx = WithFields(ctx, Field{"path", "/health"})

	fields := getObservabilityFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].Key != "request_id" || fields[0].Value != "req-1" {
		t.Errorf("unexpected first field: %+v", fields[0])
	}
	if fields[1].Key != "path" || fields[1].Value != "/health" {
		t.Errorf("unexpected second field: %+v", fields[1])
	}
}

func TestMiddleware_RequestID(t *testing.T) {
	tests := []struct {
		name      string
		requestID string
		wantSame  bool
	}{
		{
			name:      "existing request id is preserved",
			requestID: "req-abc",
			wantSame:  true,
		},
		{
			name:      "missing request id gets generated",
			requestID: "",
			wantSame:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			router := gin.New()
			router.Use(Middleware(NewLogger()))
			router.GET("/ping", func(c *gin.Context) {
				c.String(http.StatusOK, "pong")
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.requestID != "" {
				req.Header.Set("X-Request-ID", tt.requestID)
			}
			router.ServeHTTP(w, req)

			got := w.Header().Get("X-Request-ID")
			if got == "" {
				t.Fatal("expected X-Request-ID response header")
			}
			if tt.wantSame && got != tt.requestID {
				t.Errorf("expected request id %q to be preserved, got %q", tt.requestID, got)
			}
			if !tt.wantSame && !strings.HasPrefix(got, "req-") {
				t.Errorf("expected generated request id with req- prefix, got %q", got)
			}
		})
	}
}

func TestMiddleware_RecoversFromPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware(NewLogger()))
	router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 after panic, got %d", w.Code)
	}
}

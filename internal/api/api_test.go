package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"intake-server/internal/clients/notify"
	intakeHandler "intake-server/internal/intake/handler"
	"intake-server/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := observability.NewLogger()
	h := intakeHandler.New("test-key", "", notify.New("http://localhost/hook", logger), logger)

	router := gin.New()
	api := New(router.Group("/"), h)
	api.RegisterRoutes()
	return router
}

func TestHealth(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["message"])
}

func TestIncomingCallRouteRegistered(t *testing.T) {
	router := newTestRouter()

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(method, "/api/phone/incoming-call", nil))
		assert.Equal(t, http.StatusOK, w.Code, "method %s", method)
		assert.Contains(t, w.Body.String(), "<Connect>")
	}
}

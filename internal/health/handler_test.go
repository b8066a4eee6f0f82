package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ready bool

func (r ready) Ready() bool { return bool(r) }

func TestHealthReportsStoreState(t *testing.T) {
	started := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, tc := range []struct {
		ready  bool
		code   int
		status string
	}{
		{true, http.StatusOK, "ok"},
		{false, http.StatusServiceUnavailable, "degraded"},
	} {
		h := NewHandler(ready(tc.ready), started, "telegram", ":8000")
		h.now = func() time.Time { return started.Add(90 * time.Second) }

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, tc.code, rec.Code)
		var resp healthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, tc.status, resp.Status)
		assert.Equal(t, tc.ready, resp.Store.Connected)
		assert.Equal(t, int64(90), resp.UptimeSec)
		assert.Equal(t, "telegram", resp.App.TelegramMode)
		assert.NotEmpty(t, resp.Runtime.GoVersion)
	}
}

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func up(ctx context.Context) error { return nil }

func failing(ctx context.Context) error { return errors.New("connection refused") }

func TestRunWorstStatusWins(t *testing.T) {
	c := NewChecker()
	c.Register("corpus", PingCheck(up, true))
	c.Register("redis", PingCheck(failing, false))

	report := c.Run(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, "connection refused", report.Components["redis"].Message)

	c.Register("postgres", PingCheck(failing, true))
	assert.Equal(t, StatusDown, c.Run(context.Background()).Status)
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("redis", PingCheck(failing, false))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var report Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, StatusDegraded, report.Status)

	c.Register("corpus", PingCheck(failing, true))
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker().LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
}

func TestCheckTimeout(t *testing.T) {
	c := NewChecker()
	c.CheckTimeout = 10 * time.Millisecond
	c.Register("slow", PingCheck(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, true))

	report := c.Run(context.Background())
	assert.Equal(t, StatusDown, report.Status)
	assert.Contains(t, report.Components["slow"].Message, "deadline exceeded")
}

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

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func up(context.Context) error { return nil }

func TestRunAllUp(t *testing.T) {
	c := NewChecker()
	c.Register("storage", PingCheck(pingFunc(up)))
	c.Register("redis", PingCheck(pingFunc(up)))

	report := c.Run(context.Background())
	assert.Equal(t, StatusUp, report.Status)
	assert.Len(t, report.Components, 2)
}

func TestRunDownWins(t *testing.T) {
	c := NewChecker()
	c.Register("storage", PingCheck(pingFunc(func(context.Context) error { return errors.New("refused") })))
	c.Register("kafka", OptionalCheck(PingCheck(pingFunc(func(context.Context) error { return errors.New("no broker") }))))

	report := c.Run(context.Background())
	assert.Equal(t, StatusDown, report.Status)
	assert.Equal(t, "refused", report.Components["storage"].Message)
	assert.Equal(t, StatusDegraded, report.Components["kafka"].Status)
}

func TestOptionalFailureDegrades(t *testing.T) {
	c := NewChecker()
	c.Register("storage", PingCheck(pingFunc(up)))
	c.Register("kafka", OptionalCheck(PingCheck(pingFunc(func(context.Context) error { return errors.New("no broker") }))))

	assert.Equal(t, StatusDegraded, c.Run(context.Background()).Status)
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	failing := false
	c.Register("storage", PingCheck(pingFunc(func(context.Context) error {
		if failing {
			return errors.New("down")
		}
		return nil
	})))
	mux := http.NewServeMux()
	c.Mount(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	failing = true
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var report Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, StatusDown, report.Status)
}

func TestLiveHandler(t *testing.T) {
	mux := http.NewServeMux()
	NewChecker().Mount(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
}

func TestReadyWhenDegraded(t *testing.T) {
	c := NewChecker()
	c.Register("kafka", OptionalCheck(PingCheck(pingFunc(func(context.Context) error { return errors.New("no broker") }))))

	rec := httptest.NewRecorder()
	c.ReadyHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHungCheckIsBoundedByCheckTimeout(t *testing.T) {
	c := NewChecker()
	c.checkTimeout = 20 * time.Millisecond
	c.Register("storage", PingCheck(pingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})))
	c.Register("redis", PingCheck(pingFunc(func(context.Context) error { return nil })))

	start := time.Now()
	report := c.Run(context.Background())
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StatusDown, report.Status)
	assert.Equal(t, StatusUp, report.Components["redis"].Status)
}

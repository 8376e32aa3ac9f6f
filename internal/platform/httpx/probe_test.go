package httpx

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

func TestReadinessAllPassing(t *testing.T) {
	h := Readiness(time.Second, Probe{Name: "redis", Check: func(context.Context) error { return nil }})
	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{"redis":"ok"}}`, rr.Body.String())
}

func TestReadinessReportsFailures(t *testing.T) {
	h := Readiness(time.Second,
		Probe{Name: "redis", Check: func(context.Context) error { return nil }},
		Probe{Name: "reload", Check: func(context.Context) error { return errors.New("not subscribed") }},
	)
	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Not Ready", body.Title)
	assert.Equal(t, map[string]string{"redis": "ok", "reload": "not subscribed"}, body.Checks)
}

func TestProblem(t *testing.T) {
	rr := httptest.NewRecorder()
	Problem(rr, http.StatusBadRequest, "Bad Request", "unknown sort field")

	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"title":"Bad Request","status":400,"detail":"unknown sort field"}`, rr.Body.String())
}

package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	snapshots []AggregatedStats
	err       error
	limit     int
}

func (f *fakeHistory) ListSnapshots(_ context.Context, limit int) ([]AggregatedStats, error) {
	f.limit = limit
	return f.snapshots, f.err
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator(0)
	agg.Record(search("json", []string{"json"}, 2, 3, false))
	h := NewHandler(agg, nil)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, int64(1), stats.TotalQueries)
}

func TestHandlerHistory(t *testing.T) {
	history := &fakeHistory{snapshots: []AggregatedStats{{TotalQueries: 7}}}
	h := NewHandler(NewAggregator(0), history)

	rec := httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, history.limit)
	assert.Contains(t, rec.Body.String(), `"total_queries":7`)

	for _, bad := range []string{"0", "-1", "abc", "501"} {
		rec = httptest.NewRecorder()
		h.History(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history?limit="+bad, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}

	history.err = errors.New("db down")
	rec = httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 24, history.limit)
}

func TestHandlerHistoryDisabled(t *testing.T) {
	h := NewHandler(NewAggregator(0), nil)
	rec := httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

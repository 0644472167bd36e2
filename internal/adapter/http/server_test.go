package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/collapse-story-etl/internal/adapter/http"
	"github.com/couchcryptid/collapse-story-etl/internal/domain"
	"github.com/couchcryptid/collapse-story-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSnapshots struct {
	snap *pipeline.Snapshot
	err  error
}

func (m *mockSnapshots) CheckReadiness(_ context.Context) error { return m.err }

func (m *mockSnapshots) Snapshot() (pipeline.Snapshot, bool) {
	if m.snap == nil {
		return pipeline.Snapshot{}, false
	}
	return *m.snap, true
}

func testSnapshot() *pipeline.Snapshot {
	accidents := domain.Workbook{domain.DefaultSheet: {Data: []domain.RawRow{
		{"road_type": "高速公路", "accident_time": "2024年5月1日", "accident_location": "广东省梅州市", "injury_statistics": "48人死亡"},
		{"road_type": "桥梁", "accident_time": "2023-10-11", "accident_location": "江西省九江市", "injury_statistics": "3人死亡"},
		{"road_type": "地铁", "accident_time": "2024-12-20", "accident_location": "广东省深圳市", "injury_statistics": "1人失联"},
	}}}
	media := domain.Workbook{domain.DefaultSheet: {Data: []domain.RawRow{
		{"publish_time": float64(45631), "publisher_type": "新闻媒体", "publisher_id_location": "广东", "publisher_name": "南方日报"},
		{"publish_time": float64(45632), "publisher_type": "自媒体", "publisher_id_location": "北京", "publisher_name": "路况观察"},
		{"publish_time": float64(45632), "publisher_type": "新闻媒体", "publisher_id_location": "北京", "publisher_name": "深圳特区报"},
	}}}

	clock := clockwork.NewFakeClockAt(time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC))
	snap := pipeline.NewTransformer(domain.DefaultSheet, 10, clock, nil).Transform(accidents, media)
	return &snap
}

func newTestServer(snap *pipeline.Snapshot, readyErr error) *httpadapter.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpadapter.NewServer(":0", &mockSnapshots{snap: snap, err: readyErr}, 10, logger)
}

func get(t *testing.T, srv http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(t, newTestServer(nil, nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(t, newTestServer(testSnapshot(), nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode[map[string]string](t, rec)["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(t, newTestServer(nil, fmt.Errorf("not ready yet")), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(nil, nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestDatasetRoutesReturn503BeforeFirstBuild(t *testing.T) {
	srv := newTestServer(nil, pipeline.ErrSnapshotNotReady)

	for _, path := range []string{"/v1/snapshot", "/v1/accidents", "/v1/media/stats", "/v1/coverage"} {
		rec := get(t, srv, path)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
		assert.Equal(t, pipeline.ErrSnapshotNotReady.Error(), decode[map[string]string](t, rec)["error"], path)
	}
}

func TestSnapshotRoute(t *testing.T) {
	snap := testSnapshot()
	rec := get(t, newTestServer(snap, nil), "/v1/snapshot")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode[map[string]any](t, rec)
	assert.Equal(t, snap.ID, body["id"])
	assert.Contains(t, body, "accidentStats")
	assert.Contains(t, body, "coverage")
}

func TestAccidentsRoute_ProvinceFilter(t *testing.T) {
	srv := newTestServer(testSnapshot(), nil)

	all := decode[[]domain.ProcessedAccidentRecord](t, get(t, srv, "/v1/accidents"))
	assert.Len(t, all, 3)

	gd := decode[[]domain.ProcessedAccidentRecord](t, get(t, srv, "/v1/accidents?province="+url.QueryEscape("广东")))
	require.Len(t, gd, 2)
	for _, r := range gd {
		assert.Equal(t, "广东", r.Province)
	}
}

func TestAccidentStatsRoute(t *testing.T) {
	srv := newTestServer(testSnapshot(), nil)

	stats := decode[domain.AccidentStatistics](t, get(t, srv, "/v1/accidents/stats"))
	assert.Equal(t, 3, stats.TotalAccidents)
	assert.Equal(t, 52, stats.TotalCasualties)

	gd := decode[domain.AccidentStatistics](t, get(t, srv, "/v1/accidents/stats?limit=1&province="+url.QueryEscape("广东")))
	assert.Equal(t, 2, gd.TotalAccidents)
	assert.Equal(t, 49, gd.TotalCasualties)
	require.Len(t, gd.RecentAccidents, 1)
	assert.Equal(t, "accident-2", gd.RecentAccidents[0].ID)

	rec := get(t, srv, "/v1/accidents/stats?limit=-1&province="+url.QueryEscape("广东"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMediaRoutes(t *testing.T) {
	srv := newTestServer(testSnapshot(), nil)

	all := decode[[]domain.ProcessedMediaRecord](t, get(t, srv, "/v1/media"))
	assert.Len(t, all, 3)

	local := decode[[]domain.ProcessedMediaRecord](t, get(t, srv, "/v1/media?local=true"))
	assert.Len(t, local, 2)

	stats := decode[domain.MediaStatistics](t, get(t, srv, "/v1/media/stats"))
	assert.Equal(t, 3, stats.TotalArticles)
	assert.Equal(t, map[string]int{"新闻媒体": 2, "自媒体": 1}, stats.ByPublisherType)
}

func TestCoverageRoutes(t *testing.T) {
	srv := newTestServer(testSnapshot(), nil)

	cov := decode[domain.Coverage](t, get(t, srv, "/v1/coverage"))
	assert.Equal(t, 3, cov.TotalArticles)
	assert.Equal(t, domain.PeakDay{Date: "12月7日", Count: 2}, cov.PeakDay)

	rec := get(t, srv, "/v1/coverage/days/"+url.PathEscape("12月7日"))
	require.Equal(t, http.StatusOK, rec.Code)
	day := decode[domain.DailyStats](t, rec)
	assert.Equal(t, 2, day.Count)
	assert.Len(t, day.Articles, 2)

	rec = get(t, srv, "/v1/coverage/days/"+url.PathEscape("1月1日"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sitescope-io/cctv-analytics/internal/cache"
	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
	"github.com/sitescope-io/cctv-analytics/internal/engine"
	"github.com/sitescope-io/cctv-analytics/internal/tenant"
	"github.com/sitescope-io/cctv-analytics/internal/warehouse/memframe"
)

func testHandler() *Handler {
	router := tenant.New(map[string]string{"acme": "tbl"}, "proj", "ds")
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	frame := memframe.New(
		[]string{"measure_id", "bucket_start", "value", "coverage", "raw_count"},
		[]map[string]interface{}{
			{"measure_id": "occ", "bucket_start": ts, "value": 5.0, "coverage": 1.0, "raw_count": int64(1)},
		},
	)
	wh := memframe.NewWarehouse(frame)
	specCache := cache.New(cache.NewMemoryBackend(), 5*time.Minute)
	eng := engine.New(router, wh, specCache, zerolog.Nop())
	return New(eng, zerolog.Nop())
}

func testRequestBody() ChartRequest {
	b := chartspec.BucketHour
	return ChartRequest{
		Organisation: "acme",
		Spec: chartspec.ChartSpec{
			Dataset:    "events",
			ChartType:  chartspec.ChartComposedTime,
			Measures:   []chartspec.Measure{{ID: "occ", Aggregation: chartspec.AggOccupancyRecursion}},
			Dimensions: []chartspec.Dimension{{ID: "time", Column: "timestamp", Bucket: &b}},
			TimeWindow: chartspec.TimeWindow{
				From:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				To:       time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC),
				Bucket:   chartspec.BucketHour,
				Timezone: "UTC",
			},
		},
	}
}

func TestChartsReturns200ForValidRequest(t *testing.T) {
	h := testHandler()
	body, _ := json.Marshal(testRequestBody())

	req := httptest.NewRequest(http.MethodPost, "/v1/charts", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Charts(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result chartspec.ChartResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(result.Series) != 1 {
		t.Fatalf("expected 1 series, got %d", len(result.Series))
	}
}

func TestChartsRejectsMissingOrganisation(t *testing.T) {
	h := testHandler()
	reqBody := testRequestBody()
	reqBody.Organisation = ""
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/v1/charts", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Charts(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestChartsReturns404ForUnknownOrganisation(t *testing.T) {
	h := testHandler()
	reqBody := testRequestBody()
	reqBody.Organisation = "ghost"
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/v1/charts", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Charts(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHealthzAndReady(t *testing.T) {
	h := testHandler()

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from healthz, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from ready, got %d", rec.Code)
	}
}

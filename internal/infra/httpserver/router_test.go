package httpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appdiag "github.com/bryanwahyu/verdant-vision/internal/application/diagnosis"
	"github.com/bryanwahyu/verdant-vision/internal/domain/detection"
	domain "github.com/bryanwahyu/verdant-vision/internal/domain/diagnosis"
	"github.com/bryanwahyu/verdant-vision/internal/infra/db/memory"
	"github.com/bryanwahyu/verdant-vision/internal/middleware"
)

type noSleep struct{}

func (noSleep) Sleep(context.Context, time.Duration) error { return nil }

var photo = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpeg bytes"))

func newServer(t *testing.T, detect detection.DetectorFunc, opts Options) (*httptest.Server, *memory.DiagnosisRepository) {
	t.Helper()
	repo := memory.NewDiagnosisRepository()
	svc := &appdiag.Service{Detector: detect, Repo: repo, Sleeper: noSleep{}}
	srv := httptest.NewServer(NewRouter(svc, opts))
	t.Cleanup(srv.Close)
	return srv, repo
}

func returns(ds ...domain.Diagnosis) detection.DetectorFunc {
	return func(context.Context, detection.Input) (*domain.Result, error) {
		return &domain.Result{Diagnoses: ds}, nil
	}
}

func failsWith(err error) detection.DetectorFunc {
	return func(context.Context, detection.Input) (*domain.Result, error) { return nil, err }
}

func post(t *testing.T, url, body string, header ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if len(header) == 2 {
		req.Header.Set(header[0], header[1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func detectBody(uri, desc string) string {
	b, _ := json.Marshal(detectRequest{PhotoDataURI: uri, Description: desc})
	return string(b)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestDetect(t *testing.T) {
	var got detection.Input
	srv, repo := newServer(t, func(_ context.Context, in detection.Input) (*domain.Result, error) {
		got = in
		return &domain.Result{Diagnoses: []domain.Diagnosis{{Disease: "Late Blight", Confidence: 0.82}}}, nil
	}, Options{})

	resp := post(t, srv.URL+"/v1/detect", detectBody(photo, " wilting\x00 "))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[resultView](t, resp)
	assert.Equal(t, []diagnosisView{{Disease: "Late Blight", Confidence: 0.82, Level: domain.LevelHigh}}, body.Diagnoses)
	assert.Equal(t, "wilting", got.Description)
	assert.Equal(t, photo, got.PhotoDataURI)
	assert.Equal(t, 0, repo.Len())
}

func TestDetect_HealthyReturnsEmptyList(t *testing.T) {
	srv, _ := newServer(t, returns(), Options{})

	resp := post(t, srv.URL+"/v1/detect", detectBody(photo, ""))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw := decode[map[string]json.RawMessage](t, resp)
	assert.JSONEq(t, `[]`, string(raw["diagnoses"]))
}

func TestDetect_BadInput(t *testing.T) {
	srv, _ := newServer(t, returns(), Options{})

	for name, body := range map[string]string{
		"not json":  "{",
		"no photo":  `{"description":"x"}`,
		"not image": detectBody("data:text/plain;base64,aGk=", ""),
		"long desc": detectBody(photo, strings.Repeat("x", middleware.MaxDescriptionLength+1)),
	} {
		t.Run(name, func(t *testing.T) {
			resp := post(t, srv.URL+"/v1/detect", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "bad_request", decode[middleware.ErrorBody](t, resp).Kind)
		})
	}
}

func TestDetect_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   detection.Kind
		msg    string
	}{
		{"busy", errors.New("503 Service Unavailable"), http.StatusServiceUnavailable, detection.KindServiceBusy,
			"The Plant Analysis Service is currently busy. Please try again in a few moments."},
		{"safety", errors.New("blocked: SAFETY"), http.StatusUnprocessableEntity, detection.KindContentRejected,
			"The analysis could not be completed due to content safety filters. Try a different image or adjust your plant description."},
		{"media", errors.New("Invalid media"), http.StatusUnprocessableEntity, detection.KindUnprocessableImage,
			"The uploaded image could not be processed. Please try a different image format or a clearer picture."},
		{"other", errors.New("model exploded"), http.StatusBadGateway, detection.KindDetectionFailed,
			"Failed to detect disease: model exploded"},
		{"quota", detection.ErrQuotaExceeded, http.StatusTooManyRequests, detection.KindDetectionFailed,
			"Failed to detect disease: ai quota exceeded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, repo := newServer(t, failsWith(tt.err), Options{})

			resp := post(t, srv.URL+"/v1/diagnoses", detectBody(photo, ""))

			assert.Equal(t, tt.status, resp.StatusCode)
			body := decode[middleware.ErrorBody](t, resp)
			assert.Equal(t, string(tt.kind), body.Kind)
			assert.Equal(t, tt.msg, body.Error)
			assert.Equal(t, 0, repo.Len())
		})
	}
}

func TestDetect_UnknownFailure(t *testing.T) {
	srv, _ := newServer(t, func(context.Context, detection.Input) (*domain.Result, error) {
		panic(42)
	}, Options{})

	resp := post(t, srv.URL+"/v1/detect", detectBody(photo, ""))

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, string(detection.KindUnknownFailure), decode[middleware.ErrorBody](t, resp).Kind)
}

func TestSaveHistoryAndSummary(t *testing.T) {
	results := [][]domain.Diagnosis{
		{{Disease: "Rust", Confidence: 0.55}},
		{},
		{{Disease: "Blight", Confidence: 0.9}, {Disease: "Rust", Confidence: 0.3}},
	}
	i := 0
	srv, _ := newServer(t, func(context.Context, detection.Input) (*domain.Result, error) {
		r := &domain.Result{Diagnoses: results[i]}
		i++
		return r, nil
	}, Options{APIKeys: map[string]string{"grower": "k1"}})

	for range results {
		resp := post(t, srv.URL+"/v1/diagnoses", detectBody(photo, ""), "Authorization", "Bearer k1")
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/diagnoses?limit=2", nil)
	req.Header.Set("Authorization", "k1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[[]recordView](t, resp)
	require.Len(t, history, 2)
	assert.Equal(t, "Blight", history[0].Diagnoses[0].Disease)
	assert.Empty(t, history[1].Diagnoses)
	assert.Equal(t, "grower", history[0].UserID)
	assert.Equal(t, photo, history[0].PhotoDataURI)
	_, err = time.Parse(time.RFC3339Nano, history[0].Timestamp)
	assert.NoError(t, err)

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/v1/analytics/summary", nil)
	req.Header.Set("Authorization", "k1")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	summary := decode[domain.AnalyticsSummary](t, resp2)
	assert.Equal(t, domain.AnalyticsSummary{
		TotalScans:    3,
		HealthyScans:  1,
		DiseasedScans: 2,
		CommonIssues:  []domain.IssueCount{{Name: "Rust", Count: 2}, {Name: "Blight", Count: 1}},
	}, summary)
}

func TestHistory_BadLimit(t *testing.T) {
	srv, _ := newServer(t, returns(), Options{})

	resp := get(t, srv.URL+"/v1/diagnoses?limit=ten")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHistory_EmptyIsArray(t *testing.T) {
	srv, _ := newServer(t, returns(), Options{})

	resp := get(t, srv.URL+"/v1/diagnoses")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw := decode[json.RawMessage](t, resp)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestAuthRequiredWhenKeysConfigured(t *testing.T) {
	srv, _ := newServer(t, returns(), Options{APIKeys: map[string]string{"grower": "k1"}})

	assert.Equal(t, http.StatusUnauthorized, get(t, srv.URL+"/v1/analytics/summary").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/health").StatusCode)
}

func TestProbesAndMetrics(t *testing.T) {
	m := middleware.NewMetrics()
	srv, _ := newServer(t, returns(), Options{Metrics: m})

	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/health").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/healthz").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/readyz").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/livez").StatusCode)

	resp := get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw := new(strings.Builder)
	_, err := io.Copy(raw, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), `verdant_http_requests_total{method="GET",route="/livez",status="200"} 1`)
}

func TestRateLimited(t *testing.T) {
	limiter := middleware.NewRateLimiter(0.001, 1)
	t.Cleanup(limiter.Stop)
	srv, _ := newServer(t, returns(), Options{RateLimiter: limiter})

	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/v1/analytics/summary").StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, get(t, srv.URL+"/v1/analytics/summary").StatusCode)
}

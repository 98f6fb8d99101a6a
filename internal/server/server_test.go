package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ppiankov/claimlens/internal/cache"
	"github.com/ppiankov/claimlens/internal/extract"
	"github.com/ppiankov/claimlens/internal/metrics"
	"github.com/ppiankov/claimlens/internal/model"
	"github.com/ppiankov/claimlens/internal/pipeline"
	"github.com/ppiankov/claimlens/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAnalyzer struct {
	err   error
	calls atomic.Int32
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req model.AnalysisRequest) (*model.Report, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &model.Report{
		Video:     model.Video{ID: "dQw4w9WgXcQ", Title: "Test"},
		Consensus: model.Consensus{Rating: model.RatingMixed, Summary: "mixed"},
		Claims:    []model.VerifiedClaim{},
		Meta:      model.Meta{TookMs: 5, Model: "gpt-test"},
	}, nil
}

// stage fakes for running a real pipeline behind the router
type stubVideo struct{}

func (stubVideo) Metadata(ctx context.Context, id string) (model.Video, error) {
	return model.Video{ID: id, Title: "Stub"}, nil
}

func (stubVideo) Transcript(ctx context.Context, id string, langs []string) (string, error) {
	return "the moon is made of rock", nil
}

type tallyExtractor struct {
	calls atomic.Int32
}

func (e *tallyExtractor) Extract(ctx context.Context, transcript string, maxClaims int, opts ...extract.Option) (extract.Extraction, error) {
	e.calls.Add(1)
	return extract.Extraction{Claims: []model.Claim{{Text: transcript}}, Model: "gpt-test"}, nil
}

type constVerifier struct{}

func (constVerifier) Verify(ctx context.Context, claim string) model.Verification {
	return model.Verification{Rating: model.RatingReliable, Rationale: "ok", Sources: []model.Source{}}
}

type constSynthesizer struct{}

func (constSynthesizer) Synthesize(ctx context.Context, verifications []model.Verification) model.Consensus {
	return model.Consensus{Rating: model.RatingReliable, Summary: "solid"}
}

type recordingPublisher struct {
	mu  sync.Mutex
	ids []string
}

func (p *recordingPublisher) ReportSaved(ctx context.Context, id string, report model.Report) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type failingStore struct {
	store.Store
}

func (failingStore) Save(context.Context, model.Report) (string, bool, error) {
	return "", false, errors.New("db down")
}

func (failingStore) LatestByVideoID(context.Context, string) (*store.Record, error) {
	return nil, store.ErrNotFound
}

func (failingStore) List(context.Context, int, int) (store.Page, error) {
	return store.Page{}, errors.New("db down")
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const analyzeBody = `{"url": "https://youtu.be/dQw4w9WgXcQ"}`

func TestHealth(t *testing.T) {
	srv := New(&fakeAnalyzer{}, store.NewMemoryStore(), nil)
	rec := do(t, srv.Router(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok": true}`, rec.Body.String())
}

func TestAnalyzeSavesAndPublishes(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	st := store.NewMemoryStore()
	pub := &recordingPublisher{}
	router := New(analyzer, st, pub).Router()

	rec := do(t, router, http.MethodPost, "/analyze", analyzeBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	report := decode[model.Report](t, rec)
	require.NotEmpty(t, report.ReportID)
	assert.False(t, report.Meta.Cached)
	assert.Equal(t, []string{report.ReportID}, pub.ids)

	// Second request is served from the store
	rec = do(t, router, http.MethodPost, "/analyze", analyzeBody)
	require.Equal(t, http.StatusOK, rec.Code)
	again := decode[model.Report](t, rec)
	assert.Equal(t, report.ReportID, again.ReportID)
	assert.True(t, again.Meta.Cached)
	assert.EqualValues(t, 1, analyzer.calls.Load())

	// Refresh reruns but keeps the one stored record
	rec = do(t, router, http.MethodPost, "/analyze", `{"url": "https://youtu.be/dQw4w9WgXcQ", "refresh": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	refreshed := decode[model.Report](t, rec)
	assert.Equal(t, report.ReportID, refreshed.ReportID)
	assert.EqualValues(t, 2, analyzer.calls.Load())
	assert.Equal(t, []string{report.ReportID}, pub.ids, "no event for a report that was already stored")

	page, err := st.List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestAnalyzeRefreshRerunsCachedPipeline(t *testing.T) {
	extractor := &tallyExtractor{}
	p := pipeline.New(pipeline.Components{
		Video:       stubVideo{},
		Extractor:   extractor,
		Verifier:    constVerifier{},
		Synthesizer: constSynthesizer{},
	}, pipeline.Config{}, pipeline.WithCache(cache.NewMemoryCache(time.Minute, time.Minute), time.Hour))
	pub := &recordingPublisher{}
	router := New(p, store.NewMemoryStore(), pub).Router()

	const refreshBody = `{"url": "https://youtu.be/dQw4w9WgXcQ", "refresh": true}`

	rec := do(t, router, http.MethodPost, "/analyze", refreshBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode[model.Report](t, rec)
	assert.False(t, first.Meta.Cached)

	rec = do(t, router, http.MethodPost, "/analyze", refreshBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decode[model.Report](t, rec)
	assert.False(t, second.Meta.Cached)
	assert.Equal(t, first.ReportID, second.ReportID)

	assert.EqualValues(t, 2, extractor.calls.Load())
	assert.Len(t, pub.ids, 1)
}

func TestAnalyzeBadRequests(t *testing.T) {
	router := New(&fakeAnalyzer{}, store.NewMemoryStore(), nil).Router()

	for _, body := range []string{
		`{}`,
		`not json`,
		`{"url": "https://youtu.be/dQw4w9WgXcQ", "maxClaims": -1}`,
		`{"url": "https://youtu.be/dQw4w9WgXcQ", "maxClaims": 500}`,
	} {
		rec := do(t, router, http.MethodPost, "/analyze", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestAnalyzeClientInputError(t *testing.T) {
	analyzer := &fakeAnalyzer{err: &pipeline.ClientInputError{Message: "Invalid YouTube URL"}}
	router := New(analyzer, store.NewMemoryStore(), nil).Router()

	rec := do(t, router, http.MethodPost, "/analyze", `{"url": "https://example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail": "Invalid YouTube URL"}`, rec.Body.String())
}

func TestAnalyzeInternalErrorIsDebugGated(t *testing.T) {
	analyzer := &fakeAnalyzer{err: errors.New("secret upstream detail")}

	rec := do(t, New(analyzer, store.NewMemoryStore(), nil).Router(), http.MethodPost, "/analyze", analyzeBody)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail": "Internal error"}`, rec.Body.String())

	rec = do(t, New(analyzer, store.NewMemoryStore(), nil, WithDebug(true)).Router(), http.MethodPost, "/analyze", analyzeBody)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail": "secret upstream detail"}`, rec.Body.String())
}

func TestAnalyzeSaveFailureStillReturnsReport(t *testing.T) {
	pub := &recordingPublisher{}
	router := New(&fakeAnalyzer{}, failingStore{}, pub).Router()

	rec := do(t, router, http.MethodPost, "/analyze", analyzeBody)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[model.Report](t, rec)
	assert.Empty(t, report.ReportID)
	assert.Empty(t, pub.ids)
	assert.NotContains(t, rec.Body.String(), "reportId")
}

func TestSavedReports(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	var ids []string
	for _, vid := range []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"} {
		id, _, err := st.Save(ctx, model.Report{Video: model.Video{ID: vid}, Claims: []model.VerifiedClaim{}})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	router := New(&fakeAnalyzer{}, st, nil).Router()

	rec := do(t, router, http.MethodGet, "/saved-reports?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[store.Page](t, rec)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Reports, 2)
	assert.True(t, page.HasMore)

	rec = do(t, router, http.MethodGet, "/saved-reports?limit=0&offset=-4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[store.Page](t, rec)
	assert.Len(t, page.Reports, 1)

	rec = do(t, router, http.MethodGet, "/saved-reports?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/saved-reports/"+ids[1], "")
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[model.Report](t, rec)
	assert.Equal(t, ids[1], report.ReportID)
	assert.Equal(t, "bbbbbbbbbbb", report.Video.ID)

	rec = do(t, router, http.MethodDelete, "/saved-reports/"+ids[1], "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, "/saved-reports/"+ids[1], "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodDelete, "/saved-reports/"+ids[1], "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSavedReportsStoreError(t *testing.T) {
	router := New(&fakeAnalyzer{}, failingStore{}, nil).Router()
	rec := do(t, router, http.MethodGet, "/saved-reports", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORS(t *testing.T) {
	router := New(&fakeAnalyzer{}, store.NewMemoryStore(), nil, WithCORS([]string{"https://app.example"})).Router()

	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	router := New(&fakeAnalyzer{}, store.NewMemoryStore(), nil, WithMetrics(m)).Router()

	do(t, router, http.MethodGet, "/health", "")
	rec := do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `claimlens_http_requests_total{code="200",method="GET",route="/health"} 1`)
}

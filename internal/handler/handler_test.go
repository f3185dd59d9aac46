package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seedwatch/internal/config"
	"seedwatch/internal/container"
	"seedwatch/internal/domain"
	"seedwatch/pkg/logger"
)

const tiktokVideo = "https://www.tiktok.com/@shopvn/video/7300000000000000001"

type errorBody struct {
	Error struct {
		Type      string                 `json:"type"`
		Message   string                 `json:"message"`
		Details   map[string]interface{} `json:"details"`
		RequestID string                 `json:"request_id"`
	} `json:"error"`
}

type testServer struct {
	router http.Handler
	c      *container.Container
	hits   *atomic.Int32
}

func testConfig(tiktokURL string) *config.Config {
	return &config.Config{
		AppName:             "Seedwatch Test",
		AppVersion:          "test",
		Environment:         "test",
		RequestTimeout:      10 * time.Second,
		RateLimitRequests:   100,
		RateLimitWindow:     time.Hour,
		BatchSize:           10,
		TikTokAPIBaseURL:    tiktokURL,
		TikTokMSTokens:      []string{"token-a"},
		TikTokAPITimeout:    5 * time.Second,
		TikTokMaxAttempts:   1,
		MaxCommentsPerVideo: 50,
		MaxFileSizeMB:       1,
		MaxBatchSize:        100,
		AllowedFileTypes:    []string{".json", ".csv"},
		CacheTTL:            time.Hour,
		StatsCacheTTL:       5 * time.Minute,
		JanitorSchedule:     "@every 1m",
	}
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()

	hits := &atomic.Int32{}
	tiktok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status_code":0,"has_more":0,"cursor":2,"comments":[
			{"cid":"c1","text":"Inbox shop để mua giá rẻ, liên hệ admin ngay!","digg_count":4,"create_time":1704067200,"user":{"uid":"u1"}},
			{"cid":"c2","text":"Video hay quá, cảm ơn bạn","digg_count":1,"create_time":1704067300,"user":{"uid":"u2"}}]}`))
	}))
	t.Cleanup(tiktok.Close)

	cfg := testConfig(tiktok.URL)
	for _, m := range mutate {
		m(cfg)
	}

	c, err := container.New(cfg, logger.NewNop())
	require.NoError(t, err)
	return &testServer{router: NewRouter(c), c: c, hits: hits}
}

func (s *testServer) do(t *testing.T, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.RemoteAddr = "10.1.1.1:4000"
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(t *testing.T, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return s.do(t, http.MethodPost, "/predict/file", buf.Bytes(), mw.FormDataContentType())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestPredictFile_CSVColumnAlias(t *testing.T) {
	s := newTestServer(t)

	rec := s.upload(t, "comments.csv", "content,likes,author\n"+
		"\"Inbox shop để mua giá rẻ, liên hệ admin ngay!\",5,shopee_vn\n"+
		"\"Video hay quá, cảm ơn bạn\",2,viewer\n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[domain.AnalysisResult](t, rec)
	require.Len(t, result.Comments, 2)
	assert.Equal(t, "Inbox shop để mua giá rẻ, liên hệ admin ngay!", result.Comments[0].Text)
	assert.Equal(t, "shopee_vn", result.Comments[0].AuthorID)
	assert.True(t, result.Comments[0].IsSeeding())
	assert.False(t, result.Comments[1].IsSeeding())
	assert.GreaterOrEqual(t, *result.Comments[0].Confidence, 0.65)
	assert.Equal(t, domain.AnalysisStats{Total: 2, SeedingCount: 1, NotSeedingCount: 1, SeedingPercentage: 50}, result.Stats)
	assert.Contains(t, result.Keywords, "inbox")
	assert.Equal(t, "comments.csv", result.Source)
}

func TestPredictFile_Rejections(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		filename string
		content  string
	}{
		{name: "unsupported type", filename: "comments.xlsx", content: "x"},
		{name: "missing text column", filename: "comments.csv", content: "likes,user\n1,a\n"},
		{name: "invalid json", filename: "comments.json", content: "{"},
		{name: "no valid rows", filename: "comments.json", content: `[{"comment_text":"   "}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.upload(t, tt.filename, tt.content)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "validation", decode[errorBody](t, rec).Error.Type)
		})
	}

	t.Run("missing file field", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/predict/file", []byte("{}"), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDeleteAnalysis_RemovesFromStats(t *testing.T) {
	s := newTestServer(t)

	first := decode[domain.AnalysisResult](t, s.upload(t, "a.csv", "comment_text\nInbox shop nhé\nhay quá\n"))
	second := decode[domain.AnalysisResult](t, s.upload(t, "b.json", `[{"text":"cảm ơn bạn nhiều"}]`))
	require.NotEmpty(t, first.ID)
	require.NotEmpty(t, second.ID)

	stats := decode[domain.GlobalStats](t, s.do(t, http.MethodGet, "/stats", nil, ""))
	assert.Equal(t, 2, stats.TotalAnalyses)
	assert.Equal(t, 3, stats.TotalCommentsProcessed)

	rec := s.do(t, http.MethodDelete, "/analysis/"+first.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first.ID, decode[DeleteResponse](t, rec).AnalysisID)

	rec = s.do(t, http.MethodGet, "/analysis/"+first.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[errorBody](t, rec).Error.Type)

	stats = decode[domain.GlobalStats](t, s.do(t, http.MethodGet, "/stats", nil, ""))
	assert.Equal(t, 1, stats.TotalAnalyses)
	assert.Equal(t, 1, stats.TotalCommentsProcessed)
	require.Len(t, stats.RecentActivity, 1)
	assert.Equal(t, second.ID, stats.RecentActivity[0].ID)

	rec = s.do(t, http.MethodDelete, "/analysis/"+first.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalysisViews(t *testing.T) {
	s := newTestServer(t)
	created := decode[domain.AnalysisResult](t, s.upload(t, "c.csv", "text,likes\none,1\ntwo,2\nthree,3\n"))

	t.Run("pagination", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/analysis/"+created.ID+"?page=2&per_page=2", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		page := decode[domain.AnalysisPage](t, rec)
		require.Len(t, page.Comments, 1)
		assert.Equal(t, "three", page.Comments[0].Text)
		assert.Equal(t, domain.Pagination{Page: 2, PerPage: 2, Total: 3, Pages: 2, HasNext: false, HasPrev: true}, page.Pagination)
		assert.Equal(t, 3, page.Stats.Total)
	})

	t.Run("default pagination", func(t *testing.T) {
		page := decode[domain.AnalysisPage](t, s.do(t, http.MethodGet, "/analysis/"+created.ID, nil, ""))
		assert.Len(t, page.Comments, 3)
		assert.Equal(t, 50, page.Pagination.PerPage)
	})

	t.Run("huge page is empty", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/analysis/"+created.ID+"?page=4611686018427387904&per_page=4", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		page := decode[domain.AnalysisPage](t, rec)
		assert.Empty(t, page.Comments)
		assert.Equal(t, 1, page.Pagination.Pages)
		assert.False(t, page.Pagination.HasNext)
	})

	t.Run("bad pagination", func(t *testing.T) {
		for _, q := range []string{"?page=0", "?per_page=501", "?page=abc"} {
			rec := s.do(t, http.MethodGet, "/analysis/"+created.ID+q, nil, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		}
	})

	t.Run("report", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/analysis/"+created.ID+"/report", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var report map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, created.ID, report["analysis_id"])
	})

	t.Run("download", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/download/"+created.ID, nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "tiktok_analysis_"+created.ID+".csv")

		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, "comment_id,comment_text,like_count,timestamp,user_id,prediction,confidence", strings.TrimSpace(lines[0]))
		assert.True(t, strings.HasPrefix(lines[1], "csv_comment_0,one,1,"))
	})

	t.Run("unknown id", func(t *testing.T) {
		for _, path := range []string{"/analysis/nope", "/analysis/nope/report", "/download/nope"} {
			assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, path, nil, "").Code, path)
		}
	})
}

func TestPredictURL(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(URLRequest{URL: tiktokVideo})

	rec := s.do(t, http.MethodPost, "/predict/url", body, "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[domain.AnalysisResult](t, rec)
	assert.Equal(t, tiktokVideo, result.Source)
	assert.Equal(t, 2, result.Stats.Total)
	assert.Equal(t, 1, result.Stats.SeedingCount)
	assert.Equal(t, "c1", result.Comments[0].ID)
	assert.Equal(t, "u1", result.Comments[0].AuthorID)

	rec = s.do(t, http.MethodPost, "/predict/url", body, "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, result.ID, decode[domain.AnalysisResult](t, rec).ID)
	assert.Equal(t, int32(1), s.hits.Load())

	t.Run("invalid url", func(t *testing.T) {
		body, _ := json.Marshal(URLRequest{URL: "https://example.com/watch"})
		rec := s.do(t, http.MethodPost, "/predict/url", body, "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/predict/url", []byte("{"), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPredictURLs(t *testing.T) {
	t.Run("eleven urls rejected before scraping", func(t *testing.T) {
		s := newTestServer(t)
		urls := make([]string, 11)
		for i := range urls {
			urls[i] = tiktokVideo
		}
		body, _ := json.Marshal(MultiURLRequest{URLs: urls})

		rec := s.do(t, http.MethodPost, "/predict/urls", body, "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation", decode[errorBody](t, rec).Error.Type)
		assert.Equal(t, int32(0), s.hits.Load())
	})

	t.Run("combined urls", func(t *testing.T) {
		s := newTestServer(t)
		body, _ := json.Marshal(MultiURLRequest{URLs: []string{
			tiktokVideo,
			"https://www.tiktok.com/@other/video/7300000000000000002",
		}})

		rec := s.do(t, http.MethodPost, "/predict/urls", body, "application/json")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		result := decode[domain.AnalysisResult](t, rec)
		assert.Equal(t, "2 URLs", result.Source)
		assert.Equal(t, 4, result.Stats.Total)
		assert.Equal(t, int32(2), s.hits.Load())
	})

	t.Run("unconfigured source url is skipped", func(t *testing.T) {
		s := newTestServer(t)
		body, _ := json.Marshal(MultiURLRequest{URLs: []string{tiktokVideo, "https://youtu.be/dQw4w9WgXcQ"}})

		rec := s.do(t, http.MethodPost, "/predict/urls", body, "application/json")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, 2, decode[domain.AnalysisResult](t, rec).Stats.Total)
	})
}

func TestHealthAndBanner(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[HealthResponse](t, rec)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "operational", health.Services["tiktok"])
	assert.Equal(t, "not configured", health.Services["youtube"])
	assert.Equal(t, "disabled", health.Services["redis"])
	assert.Equal(t, "simulation", health.Model.Mode)
	assert.Equal(t, 0, health.System.AnalysisCount)

	rec = s.do(t, http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Seedwatch Test", decode[map[string]interface{}](t, rec)["message"])

	for _, path := range []string{"/docs", "/redoc", "/metrics"} {
		assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, path, nil, "").Code, path)
	}

	rec = s.do(t, http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[errorBody](t, rec).Error.Type)
}

func TestCacheEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/stats", nil, "")

	rec := s.do(t, http.MethodGet, "/cache/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, float64(1), stats["active_entries"])

	rec = s.do(t, http.MethodPost, "/cache/clear", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cleared map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cleared))
	assert.Equal(t, float64(1), cleared["cleared_entries"])
}

func TestRateLimitedRoutes(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) { cfg.RateLimitRequests = 2 })

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/stats", nil, "").Code)
	}
	rec := s.do(t, http.MethodGet, "/stats", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit", decode[errorBody](t, rec).Error.Type)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", nil, "").Code)
	}
}

package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seedwatch/internal/domain"
)

func newModelServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))

		var req remoteRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Inputs)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestRemote_Classify(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   bool
		wantLabel domain.Label
		wantConf  float64
	}{
		{
			name:      "nested response picks max score",
			status:    http.StatusOK,
			body:      `[[{"label":"NOT_SEEDING","score":0.12},{"label":"SEEDING","score":0.88}]]`,
			wantLabel: domain.LabelSeeding,
			wantConf:  0.88,
		},
		{
			name:      "flat response",
			status:    http.StatusOK,
			body:      `[{"label":"SEEDING","score":0.3},{"label":"NOT_SEEDING","score":0.7}]`,
			wantLabel: domain.LabelNotSeeding,
			wantConf:  0.7,
		},
		{
			name:      "label match is case insensitive",
			status:    http.StatusOK,
			body:      `[[{"label":"seeding","score":0.91}]]`,
			wantLabel: domain.LabelSeeding,
			wantConf:  0.91,
		},
		{
			name:      "other categories map to not seeding",
			status:    http.StatusOK,
			body:      `[[{"label":"LABEL_0","score":0.99},{"label":"SEEDING","score":0.01}]]`,
			wantLabel: domain.LabelNotSeeding,
			wantConf:  0.99,
		},
		{
			name:    "model loading",
			status:  http.StatusServiceUnavailable,
			body:    `{"error":"Model is currently loading","estimated_time":20}`,
			wantErr: true,
		},
		{
			name:    "unexpected object",
			status:  http.StatusOK,
			body:    `{"error":"bad input"}`,
			wantErr: true,
		},
		{
			name:    "empty list",
			status:  http.StatusOK,
			body:    `[]`,
			wantErr: true,
		},
		{
			name:    "empty nested list",
			status:  http.StatusOK,
			body:    `[[]]`,
			wantErr: true,
		},
		{
			name:    "score out of range",
			status:  http.StatusOK,
			body:    `[[{"label":"SEEDING","score":3.5}]]`,
			wantErr: true,
		},
		{
			name:    "not json",
			status:  http.StatusOK,
			body:    `<html>oops</html>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newModelServer(t, tt.status, tt.body)
			r := NewRemoteStrategy(srv.URL, "hf_test")

			p, err := r.Classify(context.Background(), "Inbox shop nhé")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, p.Label)
			assert.InDelta(t, tt.wantConf, p.Confidence, 1e-9)
		})
	}
}

func TestRemote_CustomSeedingLabel(t *testing.T) {
	srv, _ := newModelServer(t, http.StatusOK, `[[{"label":"LABEL_1","score":0.8}]]`)
	r := NewRemoteStrategy(srv.URL, "hf_test", WithSeedingLabel("LABEL_1"))

	p, err := r.Classify(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, domain.LabelSeeding, p.Label)
}

func TestRemote_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	r := NewRemoteStrategy(srv.URL, "hf_test", WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := r.Classify(context.Background(), "x")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRemote_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	r := NewRemoteStrategy(url, "hf_test", WithTimeout(time.Second))
	_, err := r.Classify(context.Background(), "x")
	assert.Error(t, err)
}

type mapMemo struct {
	mu   sync.Mutex
	data map[string]Prediction
	sets int
}

func (m *mapMemo) Get(_ context.Context, text string) (Prediction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.data[text]
	return p, ok
}

func (m *mapMemo) Set(_ context.Context, text string, p Prediction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[text] = p
	m.sets++
}

func TestRemote_MemoAvoidsRepeatCalls(t *testing.T) {
	srv, hits := newModelServer(t, http.StatusOK, `[[{"label":"SEEDING","score":0.9}]]`)
	memo := &mapMemo{data: map[string]Prediction{}}
	r := NewRemoteStrategy(srv.URL, "hf_test", WithMemo(memo))

	for i := 0; i < 3; i++ {
		p, err := r.Classify(context.Background(), "same text")
		require.NoError(t, err)
		assert.Equal(t, domain.LabelSeeding, p.Label)
	}

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1, memo.sets)
}

func TestRemote_FailuresAreNotMemoized(t *testing.T) {
	srv, hits := newModelServer(t, http.StatusInternalServerError, `{}`)
	memo := &mapMemo{data: map[string]Prediction{}}
	r := NewRemoteStrategy(srv.URL, "hf_test", WithMemo(memo))

	for i := 0; i < 2; i++ {
		_, err := r.Classify(context.Background(), "same text")
		assert.Error(t, err)
	}
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, 0, memo.sets)
}

func TestRemote_RateLimitWaitRespectsTimeout(t *testing.T) {
	srv, hits := newModelServer(t, http.StatusOK, `[[{"label":"SEEDING","score":0.9}]]`)
	// One call per minute: the second call cannot get a slot inside its timeout
	r := NewRemoteStrategy(srv.URL, "hf_test",
		WithRateLimit(1.0/60, 1),
		WithTimeout(50*time.Millisecond))

	_, err := r.Classify(context.Background(), "first")
	require.NoError(t, err)

	_, err = r.Classify(context.Background(), "second")
	assert.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

package classifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seedwatch/internal/domain"
)

func TestNew_SimulationMode(t *testing.T) {
	e, err := New(Config{BatchSize: 10}, Deps{Random: noJitter()})
	require.NoError(t, err)

	info := e.ModelInfo()
	assert.Equal(t, ModeSimulation, info.Mode)
	assert.Equal(t, []string{TierHeuristic, TierKeywordCount}, info.Tiers)
	assert.Equal(t, []string{"Not Seeding", "Seeding"}, info.Labels)
	assert.NotEmpty(t, info.PolicyVersion)

	got := e.Predict(context.Background(), "Inbox shop để mua giá rẻ, liên hệ admin ngay!")
	assert.Equal(t, TierHeuristic, got.Tier)
	assert.Equal(t, domain.LabelSeeding, got.Label)
	assert.InDelta(t, 0.95, got.Confidence, 1e-9)
}

func TestNew_RemoteModeFallsBackToHeuristic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	obs := newRecordingObserver()
	e, err := New(Config{
		RemoteURL:     srv.URL,
		RemoteToken:   "hf_test",
		RemoteTimeout: time.Second,
		RemoteRPS:     100,
		BatchSize:     10,
	}, Deps{Random: noJitter(), Observer: obs})
	require.NoError(t, err)

	info := e.ModelInfo()
	assert.Equal(t, ModeRemote, info.Mode)
	assert.Equal(t, []string{TierRemote, TierHeuristic, TierKeywordCount}, info.Tiers)
	assert.Equal(t, srv.URL, info.ModelURL)

	got := e.Predict(context.Background(), "Video hay quá, cảm ơn bạn")
	assert.Equal(t, TierHeuristic, got.Tier)
	assert.Equal(t, domain.LabelNotSeeding, got.Label)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
	assert.Equal(t, 1, obs.failures[TierRemote])
}

func TestNew_RemoteModeUsesModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[[{"label":"SEEDING","score":0.97}]]`))
	}))
	defer srv.Close()

	e, err := New(Config{RemoteURL: srv.URL, RemoteToken: "hf_test"}, Deps{Random: noJitter()})
	require.NoError(t, err)

	results, err := e.PredictBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, TierRemote, r.Tier)
		assert.Equal(t, domain.LabelSeeding, r.Label)
		assert.InDelta(t, 0.97, r.Confidence, 1e-9)
	}
}

func TestNew_BadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threshold: -1"), 0o600))

	_, err := New(Config{PolicyFile: path}, Deps{})
	assert.Error(t, err)
}

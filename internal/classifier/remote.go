package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"seedwatch/internal/domain"
)

const (
	defaultRemoteTimeout = 30 * time.Second
	maxRemoteBodyBytes   = 1 << 20
)

// PredictionMemo remembers remote predictions across requests. Failures to
// read or write the memo must not fail classification.
type PredictionMemo interface {
	Get(ctx context.Context, text string) (Prediction, bool)
	Set(ctx context.Context, text string, p Prediction)
}

// RemoteStrategy asks a hosted text-classification model for a label
type RemoteStrategy struct {
	url          string
	token        string
	seedingLabel string
	timeout      time.Duration
	client       *http.Client
	limiter      *rate.Limiter
	memo         PredictionMemo
}

// RemoteOption configures a RemoteStrategy
type RemoteOption func(*RemoteStrategy)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) RemoteOption {
	return func(r *RemoteStrategy) { r.client = client }
}

// WithTimeout bounds each remote call, including time spent waiting for the pacer
func WithTimeout(timeout time.Duration) RemoteOption {
	return func(r *RemoteStrategy) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithSeedingLabel sets the model category that maps to Seeding
func WithSeedingLabel(label string) RemoteOption {
	return func(r *RemoteStrategy) {
		if label != "" {
			r.seedingLabel = label
		}
	}
}

// WithRateLimit paces remote calls to rps with the given burst. rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) RemoteOption {
	return func(r *RemoteStrategy) {
		if rps <= 0 {
			r.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMemo attaches a prediction memo
func WithMemo(memo PredictionMemo) RemoteOption {
	return func(r *RemoteStrategy) { r.memo = memo }
}

// NewRemoteStrategy creates the remote model tier
func NewRemoteStrategy(url, token string, opts ...RemoteOption) *RemoteStrategy {
	r := &RemoteStrategy{
		url:          url,
		token:        token,
		seedingLabel: "SEEDING",
		timeout:      defaultRemoteTimeout,
		client:       &http.Client{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name implements Strategy
func (r *RemoteStrategy) Name() string {
	return TierRemote
}

type remoteRequest struct {
	Inputs string `json:"inputs"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify implements Strategy
func (r *RemoteStrategy) Classify(ctx context.Context, text string) (Prediction, error) {
	if r.memo != nil {
		if p, ok := r.memo.Get(ctx, text); ok {
			return p, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return Prediction{}, fmt.Errorf("wait for remote slot: %w", err)
		}
	}

	scores, err := r.call(ctx, text)
	if err != nil {
		return Prediction{}, err
	}

	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	if best.Label == "" || best.Score < 0 || best.Score > 1 {
		return Prediction{}, fmt.Errorf("remote returned invalid score %q=%v", best.Label, best.Score)
	}

	p := Prediction{Label: domain.LabelNotSeeding, Confidence: best.Score}
	if strings.EqualFold(best.Label, r.seedingLabel) {
		p.Label = domain.LabelSeeding
	}

	if r.memo != nil {
		r.memo.Set(ctx, text, p)
	}
	return p, nil
}

func (r *RemoteStrategy) call(ctx context.Context, text string) ([]labelScore, error) {
	body, err := json.Marshal(remoteRequest{Inputs: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote model returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return parseRemoteScores(data)
}

// parseRemoteScores accepts [[{label,score}...]] (one row per input) or a
// flat [{label,score}...] list.
func parseRemoteScores(data []byte) ([]labelScore, error) {
	var nested [][]labelScore
	if err := json.Unmarshal(data, &nested); err == nil {
		if len(nested) > 0 && len(nested[0]) > 0 {
			return nested[0], nil
		}
		return nil, errors.New("remote returned no scores")
	}

	var flat []labelScore
	if err := json.Unmarshal(data, &flat); err == nil {
		if len(flat) > 0 {
			return flat, nil
		}
		return nil, errors.New("remote returned no scores")
	}

	return nil, errors.New("unrecognized remote response format")
}

package source

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"seedwatch/internal/ingest"
	"seedwatch/pkg/errors"
	"seedwatch/pkg/logger"
)

const (
	tiktokCommentPath  = "/api/comment/list/"
	tiktokMaxPageSize  = 50
	tiktokUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	tiktokMaxBodyBytes = 4 << 20
)

// errBlocked marks an empty or rejected comment page, usually an expired msToken
var errBlocked = stderrors.New("tiktok returned an empty or blocked response")

type tiktokCommentPage struct {
	StatusCode int             `json:"status_code"`
	StatusMsg  string          `json:"status_msg"`
	Comments   []tiktokComment `json:"comments"`
	Cursor     int64           `json:"cursor"`
	HasMore    int             `json:"has_more"`
}

type tiktokComment struct {
	CID        string `json:"cid"`
	Text       string `json:"text"`
	DiggCount  int    `json:"digg_count"`
	CreateTime int64  `json:"create_time"`
	User       struct {
		UID      string `json:"uid"`
		UniqueID string `json:"unique_id"`
	} `json:"user"`
}

// TikTokSource pages the TikTok web comment API, rotating through a pool of
// msTokens when a page comes back empty or blocked
type TikTokSource struct {
	baseURL     string
	tokens      []string
	next        atomic.Uint64
	client      *http.Client
	policy      RetryPolicy
	maxComments int
	logger      *logger.Logger
}

// TikTokOption configures a TikTokSource
type TikTokOption func(*TikTokSource)

// WithTikTokHTTPClient replaces the HTTP client
func WithTikTokHTTPClient(c *http.Client) TikTokOption {
	return func(s *TikTokSource) { s.client = c }
}

// WithTikTokRetryPolicy replaces the retry policy
func WithTikTokRetryPolicy(p RetryPolicy) TikTokOption {
	return func(s *TikTokSource) { s.policy = p }
}

// NewTikTokSource creates a TikTok fetcher
func NewTikTokSource(baseURL string, tokens []string, maxComments int, log *logger.Logger, opts ...TikTokOption) *TikTokSource {
	s := &TikTokSource{
		baseURL:     strings.TrimRight(baseURL, "/"),
		tokens:      tokens,
		client:      &http.Client{Timeout: 30 * time.Second},
		policy:      DefaultRetryPolicy(3),
		maxComments: maxComments,
		logger:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Platform implements Fetcher
func (s *TikTokSource) Platform() Platform { return PlatformTikTok }

// Configured reports whether at least one msToken is set
func (s *TikTokSource) Configured() bool { return len(s.tokens) > 0 }

// Fetch implements Fetcher
func (s *TikTokSource) Fetch(ctx context.Context, target Target) ([]ingest.Record, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	if target.ShortLink() {
		resolved, err := s.resolve(ctx, target)
		if err != nil {
			return nil, err
		}
		target = resolved
	}
	if target.VideoID == "" {
		return nil, errors.NewValidationError("URL does not point to a TikTok video", map[string]interface{}{"url": target.URL})
	}

	log := s.logger.WithField("video_id", target.VideoID)
	records := make([]ingest.Record, 0, min(s.maxComments, 256))
	var cursor int64

	for len(records) < s.maxComments {
		count := min(tiktokMaxPageSize, s.maxComments-len(records))

		var page tiktokCommentPage
		err := retry(ctx, s.policy, func(attempt int) error {
			p, err := s.fetchPage(ctx, target, cursor, count)
			if err != nil {
				if stderrors.Is(err, errBlocked) {
					s.rotate()
				}
				log.WithField("attempt", attempt).WithError(err).Debug("TikTok comment page failed")
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			if len(records) > 0 {
				log.WithError(err).Warn("Stopping TikTok paging early, returning partial comments")
				break
			}
			return nil, errors.NewExternalError("Failed to fetch TikTok comments", err)
		}

		for _, c := range page.Comments {
			if len(records) >= s.maxComments {
				break
			}
			records = append(records, c.record())
		}
		if page.HasMore == 0 || len(page.Comments) == 0 {
			break
		}
		cursor = page.Cursor
	}

	log.WithField("count", len(records)).Debug("Crawled TikTok comments")
	return records, nil
}

func (s *TikTokSource) token() string {
	return s.tokens[s.next.Load()%uint64(len(s.tokens))]
}

func (s *TikTokSource) rotate() {
	s.next.Add(1)
}

func (s *TikTokSource) fetchPage(ctx context.Context, target Target, cursor int64, count int) (tiktokCommentPage, error) {
	q := url.Values{}
	q.Set("aweme_id", target.VideoID)
	q.Set("cursor", strconv.FormatInt(cursor, 10))
	q.Set("count", strconv.Itoa(count))
	q.Set("msToken", s.token())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+tiktokCommentPath+"?"+q.Encode(), nil)
	if err != nil {
		return tiktokCommentPage{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", tiktokUserAgent)
	req.Header.Set("Referer", target.URL)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return tiktokCommentPage{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, tiktokMaxBodyBytes))
	if err != nil {
		return tiktokCommentPage{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return tiktokCommentPage{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return tiktokCommentPage{}, errBlocked
	}

	var page tiktokCommentPage
	if err := json.Unmarshal(body, &page); err != nil {
		return tiktokCommentPage{}, fmt.Errorf("%w: %v", errBlocked, err)
	}
	if page.StatusCode != 0 {
		return tiktokCommentPage{}, fmt.Errorf("%w: status %d %s", errBlocked, page.StatusCode, page.StatusMsg)
	}
	return page, nil
}

// resolve follows a short link's redirects to the canonical video URL
func (s *TikTokSource) resolve(ctx context.Context, target Target) (Target, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return Target{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", tiktokUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return Target{}, errors.NewExternalError("Failed to resolve TikTok short link", err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, tiktokMaxBodyBytes))
	resp.Body.Close()

	final := resp.Request.URL
	resolved := Target{Platform: PlatformTikTok, URL: final.String()}
	if m := tiktokVideoID.FindStringSubmatch(final.Path); m != nil {
		resolved.VideoID = m[1]
	}
	if m := tiktokUsername.FindStringSubmatch(final.Path); m != nil {
		resolved.Username = m[1]
	}

	s.logger.WithFields(map[string]interface{}{
		"short_url": target.URL,
		"video_id":  resolved.VideoID,
	}).Debug("Resolved TikTok short link")
	return resolved, nil
}

func (c tiktokComment) record() ingest.Record {
	r := ingest.Record{
		ingest.FieldID:        c.CID,
		ingest.FieldText:      c.Text,
		ingest.FieldLikeCount: c.DiggCount,
	}
	if c.CreateTime > 0 {
		r[ingest.FieldTimestamp] = time.Unix(c.CreateTime, 0).UTC().Format(time.RFC3339)
	}
	if c.User.UID != "" {
		r[ingest.FieldUserID] = c.User.UID
	} else if c.User.UniqueID != "" {
		r[ingest.FieldUserID] = c.User.UniqueID
	}
	return r
}

package source

import (
	"context"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"seedwatch/internal/ingest"
	"seedwatch/pkg/errors"
	"seedwatch/pkg/logger"
)

const youtubeMaxPageSize = 100

// YouTubeSource lists top-level comment threads with the Data API
type YouTubeSource struct {
	apiKey      string
	maxComments int
	options     []option.ClientOption
	logger      *logger.Logger
}

// NewYouTubeSource creates a YouTube fetcher. Extra client options are
// appended after the API key.
func NewYouTubeSource(apiKey string, maxComments int, log *logger.Logger, opts ...option.ClientOption) *YouTubeSource {
	return &YouTubeSource{
		apiKey:      apiKey,
		maxComments: maxComments,
		options:     opts,
		logger:      log,
	}
}

// Platform implements Fetcher
func (s *YouTubeSource) Platform() Platform { return PlatformYouTube }

// Configured reports whether an API key is set
func (s *YouTubeSource) Configured() bool { return s.apiKey != "" }

// Fetch implements Fetcher
func (s *YouTubeSource) Fetch(ctx context.Context, target Target) ([]ingest.Record, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	s.logger.WithField("video_id", target.VideoID).Debug("Listing YouTube comment threads")

	opts := append([]option.ClientOption{option.WithAPIKey(s.apiKey)}, s.options...)
	youtubeService, err := youtube.NewService(ctx, opts...)
	if err != nil {
		s.logger.WithError(err).Error("Failed to create YouTube service")
		return nil, errors.NewInternalError("Failed to initialize YouTube service", err)
	}

	records := make([]ingest.Record, 0, min(s.maxComments, 256))
	pageToken := ""
	for len(records) < s.maxComments {
		call := youtubeService.CommentThreads.List([]string{"snippet"}).
			VideoId(target.VideoID).
			TextFormat("plainText").
			MaxResults(int64(min(youtubeMaxPageSize, s.maxComments-len(records))))
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Context(ctx).Do()
		if err != nil {
			if len(records) > 0 {
				s.logger.WithError(err).Warn("Stopping YouTube paging early, returning partial comments")
				break
			}
			s.logger.WithError(err).Error("Failed to list comment threads")
			return nil, errors.NewExternalError("Failed to fetch YouTube comments", err)
		}

		for _, thread := range resp.Items {
			if len(records) >= s.maxComments {
				break
			}
			if r, ok := threadRecord(thread); ok {
				records = append(records, r)
			}
		}

		if resp.NextPageToken == "" || len(resp.Items) == 0 {
			break
		}
		pageToken = resp.NextPageToken
	}

	s.logger.WithFields(map[string]interface{}{
		"video_id": target.VideoID,
		"count":    len(records),
	}).Debug("Listed YouTube comments")
	return records, nil
}

func threadRecord(thread *youtube.CommentThread) (ingest.Record, bool) {
	if thread == nil || thread.Snippet == nil || thread.Snippet.TopLevelComment == nil {
		return nil, false
	}
	comment := thread.Snippet.TopLevelComment
	if comment.Snippet == nil {
		return nil, false
	}

	snippet := comment.Snippet
	text := snippet.TextDisplay
	if text == "" {
		text = snippet.TextOriginal
	}

	r := ingest.Record{
		ingest.FieldID:        comment.Id,
		ingest.FieldText:      text,
		ingest.FieldLikeCount: snippet.LikeCount,
		ingest.FieldTimestamp: snippet.PublishedAt,
	}
	if snippet.AuthorChannelId != nil && snippet.AuthorChannelId.Value != "" {
		r[ingest.FieldUserID] = snippet.AuthorChannelId.Value
	} else if snippet.AuthorDisplayName != "" {
		r[ingest.FieldUserID] = snippet.AuthorDisplayName
	}
	return r, true
}

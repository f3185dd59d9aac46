package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"seedwatch/internal/analysis"
	"seedwatch/internal/classifier"
	"seedwatch/internal/domain"
	"seedwatch/internal/ingest"
	"seedwatch/internal/source"
	"seedwatch/pkg/errors"
)

const (
	// MaxURLs caps a multi-URL request
	MaxURLs = 10
	// DefaultFetchConcurrency bounds parallel fetches of a multi-URL request
	DefaultFetchConcurrency = 3
)

// AnalysisConfig holds the request limits of the analysis service
type AnalysisConfig struct {
	MaxFileSize      int64
	MaxBatchSize     int
	AllowedFileTypes []string
	FetchConcurrency int
}

// AnalysisServiceImpl runs the fetch, classify, aggregate and store pipeline
type AnalysisServiceImpl struct {
	cfg        AnalysisConfig
	classifier Classifier
	fetcher    CommentFetcher
	store      *analysis.Store
	aggregator *analysis.Aggregator
	cache      *CacheService
	now        func() time.Time
	logger     *zap.Logger
}

// NewAnalysisService creates the analysis service
func NewAnalysisService(
	cfg AnalysisConfig,
	clf Classifier,
	fetcher CommentFetcher,
	store *analysis.Store,
	aggregator *analysis.Aggregator,
	cacheService *CacheService,
	logger *zap.Logger,
) *AnalysisServiceImpl {
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = DefaultFetchConcurrency
	}
	return &AnalysisServiceImpl{
		cfg:        cfg,
		classifier: clf,
		fetcher:    fetcher,
		store:      store,
		aggregator: aggregator,
		cache:      cacheService,
		now:        time.Now,
		logger:     logger,
	}
}

// AnalyzeURL analyzes the comments of one video. Results are cached per URL
// for as long as the stored analysis exists.
func (s *AnalysisServiceImpl) AnalyzeURL(ctx context.Context, rawURL string) (domain.AnalysisResult, error) {
	target, err := source.Validate(rawURL)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	if cached, ok := s.cache.GetURLResult(target.URL); ok {
		if _, stored := s.store.Get(cached.ID); stored {
			s.logger.Info("Returning cached URL analysis",
				zap.String("url", target.URL),
				zap.String("analysis_id", cached.ID))
			return cached, nil
		}
		s.cache.DeleteURLResult(target.URL)
	}

	comments, err := s.fetchComments(ctx, target)
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	if len(comments) == 0 {
		return domain.AnalysisResult{}, errors.NewNotFoundError("No comments found for this URL")
	}

	result, err := s.process(ctx, comments, target.URL)
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	s.cache.SetURLResult(target.URL, result)
	return result, nil
}

// AnalyzeURLs analyzes the combined comments of several videos. Every URL is
// validated before anything is fetched; URLs that yield no comments are skipped.
func (s *AnalysisServiceImpl) AnalyzeURLs(ctx context.Context, rawURLs []string) (domain.AnalysisResult, error) {
	if len(rawURLs) == 0 {
		return domain.AnalysisResult{}, errors.NewValidationError("At least one URL is required", nil)
	}
	if len(rawURLs) > MaxURLs {
		return domain.AnalysisResult{}, errors.NewValidationError(
			fmt.Sprintf("Maximum %d URLs allowed per request", MaxURLs),
			map[string]interface{}{"max_urls": MaxURLs, "received": len(rawURLs)},
		)
	}

	targets := make([]source.Target, len(rawURLs))
	for i, raw := range rawURLs {
		target, err := source.Validate(raw)
		if err != nil {
			appErr := errors.As(err)
			return domain.AnalysisResult{}, errors.NewValidationError(
				fmt.Sprintf("Invalid URL at position %d: %s", i+1, appErr.Message),
				map[string]interface{}{"url": raw},
			)
		}
		targets[i] = target
	}

	perURL := make([][]domain.Comment, len(targets))
	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed []string
	)
	g.SetLimit(s.cfg.FetchConcurrency)
	for i, target := range targets {
		g.Go(func() error {
			comments, err := s.fetchComments(ctx, target)
			if err == nil && len(comments) == 0 {
				err = stderrors.New("no comments found")
			}
			if err != nil {
				s.logger.Warn("Skipping URL",
					zap.String("url", target.URL),
					zap.Error(err))
				mu.Lock()
				failed = append(failed, target.URL)
				mu.Unlock()
				return nil
			}
			perURL[i] = comments
			return nil
		})
	}
	_ = g.Wait()

	var all []domain.Comment
	for _, comments := range perURL {
		all = append(all, comments...)
	}
	if len(all) == 0 {
		return domain.AnalysisResult{}, errors.NewNotFoundError("No comments found for any of the provided URLs")
	}
	if len(failed) > 0 {
		s.logger.Info("Multi-URL analysis completed with skipped URLs",
			zap.Int("requested", len(targets)),
			zap.Strings("skipped", failed))
	}

	return s.process(ctx, all, fmt.Sprintf("%d URLs", len(targets)))
}

// AnalyzeFile analyzes the comments of an uploaded JSON or CSV file
func (s *AnalysisServiceImpl) AnalyzeFile(ctx context.Context, filename string, data []byte) (domain.AnalysisResult, error) {
	ext := ingest.FileExt(filename)
	if !slices.Contains(s.cfg.AllowedFileTypes, ext) {
		return domain.AnalysisResult{}, errors.NewValidationError(
			fmt.Sprintf("File type not allowed. Allowed types: %s", strings.Join(s.cfg.AllowedFileTypes, ", ")),
			map[string]interface{}{"allowed_types": s.cfg.AllowedFileTypes},
		)
	}
	if s.cfg.MaxFileSize > 0 && int64(len(data)) > s.cfg.MaxFileSize {
		return domain.AnalysisResult{}, errors.NewValidationError(
			fmt.Sprintf("File too large. Maximum size: %dMB", s.cfg.MaxFileSize/(1024*1024)),
			map[string]interface{}{"max_bytes": s.cfg.MaxFileSize},
		)
	}

	records, err := ingest.ParseFile(filename, data)
	if err != nil {
		return domain.AnalysisResult{}, errors.NewValidationError(
			fmt.Sprintf("Invalid file format: %s", err.Error()), nil)
	}

	comments, skipped := ingest.NewBuilder(strings.TrimPrefix(ext, "."), ingest.WithClock(s.now)).BuildAll(records)
	if len(skipped) > 0 {
		s.logger.Warn("Skipped malformed records",
			zap.String("filename", filename),
			zap.Int("skipped", len(skipped)))
	}
	if len(comments) == 0 {
		return domain.AnalysisResult{}, errors.NewValidationError("No valid comments found in file", nil)
	}
	if s.cfg.MaxBatchSize > 0 && len(comments) > s.cfg.MaxBatchSize {
		return domain.AnalysisResult{}, errors.NewValidationError(
			fmt.Sprintf("Too many comments. Maximum: %d", s.cfg.MaxBatchSize),
			map[string]interface{}{"max_batch_size": s.cfg.MaxBatchSize, "received": len(comments)},
		)
	}

	return s.process(ctx, comments, filename)
}

// Get returns a stored analysis
func (s *AnalysisServiceImpl) Get(id string) (domain.AnalysisResult, error) {
	result, ok := s.store.Get(id)
	if !ok {
		return domain.AnalysisResult{}, errors.NewNotFoundError("Analysis not found")
	}
	return result, nil
}

// Page returns one page of a stored analysis
func (s *AnalysisServiceImpl) Page(id string, page, perPage int) (domain.AnalysisPage, error) {
	result, err := s.Get(id)
	if err != nil {
		return domain.AnalysisPage{}, err
	}
	p, err := analysis.Paginate(result, page, perPage)
	if err != nil {
		return domain.AnalysisPage{}, errors.NewValidationError(err.Error(),
			map[string]interface{}{"page": page, "per_page": perPage})
	}
	return p, nil
}

// Report builds the detailed report of a stored analysis
func (s *AnalysisServiceImpl) Report(id string) (analysis.Report, error) {
	result, err := s.Get(id)
	if err != nil {
		return analysis.Report{}, err
	}
	return analysis.BuildReport(result), nil
}

// Delete removes a stored analysis and invalidates the global stats
func (s *AnalysisServiceImpl) Delete(id string) error {
	if !s.store.Delete(id) {
		return errors.NewNotFoundError("Analysis not found")
	}
	s.cache.InvalidateGlobalStats()
	s.logger.Info("Analysis deleted", zap.String("analysis_id", id))
	return nil
}

// GlobalStats returns the cached aggregate of every stored analysis
func (s *AnalysisServiceImpl) GlobalStats() domain.GlobalStats {
	return s.cache.GlobalStatsWithCache(func() domain.GlobalStats {
		return analysis.ComputeGlobalStats(s.store.All(), s.now())
	})
}

// Count returns the number of stored analyses
func (s *AnalysisServiceImpl) Count() int {
	return s.store.Count()
}

// ModelInfo describes the classifier
func (s *AnalysisServiceImpl) ModelInfo() classifier.ModelInfo {
	return s.classifier.ModelInfo()
}

// SourceStatus reports which comment sources are configured
func (s *AnalysisServiceImpl) SourceStatus() map[source.Platform]bool {
	return s.fetcher.Status()
}

func (s *AnalysisServiceImpl) fetchComments(ctx context.Context, target source.Target) ([]domain.Comment, error) {
	records, err := s.fetcher.Fetch(ctx, target)
	if err != nil {
		if stderrors.Is(err, source.ErrNotConfigured) {
			return nil, errors.NewExternalError("Comment source is not configured", err)
		}
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, errors.NewExternalError("Failed to fetch comments", err)
	}

	comments, skipped := ingest.NewBuilder(string(target.Platform), ingest.WithClock(s.now)).BuildAll(records)
	if len(skipped) > 0 {
		s.logger.Debug("Skipped malformed comment records",
			zap.String("url", target.URL),
			zap.Int("skipped", len(skipped)))
	}
	return comments, nil
}

// process classifies comments, aggregates them and stores the result
func (s *AnalysisServiceImpl) process(ctx context.Context, comments []domain.Comment, src string) (domain.AnalysisResult, error) {
	start := s.now()

	texts := make([]string, len(comments))
	for i, c := range comments {
		texts[i] = c.Text
	}

	results, err := s.classifier.PredictBatch(ctx, texts)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("classify comments: %w", err)
	}
	var classifySeconds float64
	for i := range comments {
		comments[i].ApplyResult(results[i])
		classifySeconds += results[i].ProcessingSeconds()
	}

	aggregated := s.aggregator.Aggregate(comments, src)
	aggregated.ProcessingTime = classifySeconds
	result := s.store.Save(aggregated)
	s.cache.InvalidateGlobalStats()

	s.logger.Info("Analysis completed",
		zap.String("analysis_id", result.ID),
		zap.String("source", src),
		zap.Int("total", result.Stats.Total),
		zap.Int("seeding", result.Stats.SeedingCount),
		zap.Float64("processing_time", result.ProcessingTime),
		zap.Duration("elapsed", s.now().Sub(start)))
	return result, nil
}

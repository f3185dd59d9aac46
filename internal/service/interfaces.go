package service

import (
	"context"

	"seedwatch/internal/analysis"
	"seedwatch/internal/cache"
	"seedwatch/internal/classifier"
	"seedwatch/internal/domain"
	"seedwatch/internal/ingest"
	"seedwatch/internal/source"
)

// Classifier labels comment texts
type Classifier interface {
	// PredictBatch classifies texts in order. It only fails when ctx ends
	// before every sub-batch was dispatched.
	PredictBatch(ctx context.Context, texts []string) ([]domain.ClassificationResult, error)

	// ModelInfo describes the active tiers
	ModelInfo() classifier.ModelInfo
}

// CommentFetcher retrieves raw comment records for a validated URL
type CommentFetcher interface {
	Fetch(ctx context.Context, target source.Target) ([]ingest.Record, error)
	Status() map[source.Platform]bool
}

// AnalysisService defines the interface for analysis operations
type AnalysisService interface {
	// AnalyzeURL scrapes, classifies and stores the comments of one video
	AnalyzeURL(ctx context.Context, rawURL string) (domain.AnalysisResult, error)

	// AnalyzeURLs combines the comments of up to MaxURLs videos into one analysis
	AnalyzeURLs(ctx context.Context, rawURLs []string) (domain.AnalysisResult, error)

	// AnalyzeFile classifies the comments of an uploaded JSON or CSV file
	AnalyzeFile(ctx context.Context, filename string, data []byte) (domain.AnalysisResult, error)

	// Get returns a stored analysis
	Get(id string) (domain.AnalysisResult, error)

	// Page returns one page of a stored analysis
	Page(id string, page, perPage int) (domain.AnalysisPage, error)

	// Report builds the detailed report of a stored analysis
	Report(id string) (analysis.Report, error)

	// Delete removes a stored analysis
	Delete(id string) error

	// GlobalStats aggregates every stored analysis
	GlobalStats() domain.GlobalStats

	// Count returns the number of stored analyses
	Count() int

	// ModelInfo describes the classifier
	ModelInfo() classifier.ModelInfo

	// SourceStatus reports which comment sources are configured
	SourceStatus() map[source.Platform]bool
}

// CacheManager exposes cache introspection to handlers
type CacheManager interface {
	Stats() cache.Stats
	Clear(ctx context.Context) ClearResult
}

// Services aggregates all service interfaces
type Services struct {
	Analysis AnalysisService
	Cache    CacheManager
}

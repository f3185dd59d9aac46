package domain

import "time"

// AnalysisStats summarises the labels of an analysis
type AnalysisStats struct {
	Total             int     `json:"total"`
	SeedingCount      int     `json:"seeding"`
	NotSeedingCount   int     `json:"not_seeding"`
	SeedingPercentage float64 `json:"seeding_percentage"`
}

// AnalysisResult is the outcome of one analysis request
type AnalysisResult struct {
	ID          string         `json:"analysis_id,omitempty"`
	Comments    []Comment      `json:"comments"`
	Stats       AnalysisStats  `json:"stats"`
	Keywords    map[string]int `json:"keywords"`
	Source      string         `json:"source"`
	ProcessedAt time.Time      `json:"processed_at"`
	// ProcessingTime is the summed classification time in seconds
	ProcessingTime float64 `json:"processing_time"`
}

// Pagination describes a page of comments
type Pagination struct {
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// AnalysisPage is a paginated view of a stored analysis
type AnalysisPage struct {
	AnalysisResult
	Pagination Pagination `json:"pagination"`
}

// RecentAnalysis is a short summary of a stored analysis
type RecentAnalysis struct {
	ID                string    `json:"analysis_id"`
	Source            string    `json:"source"`
	CommentCount      int       `json:"comment_count"`
	SeedingPercentage float64   `json:"seeding_percentage"`
	ProcessedAt       time.Time `json:"processed_at"`
}

// GlobalStats aggregates every retained analysis
type GlobalStats struct {
	TotalAnalyses          int              `json:"total_analyses"`
	TotalCommentsProcessed int              `json:"total_comments_processed"`
	TotalSeedingDetected   int              `json:"total_seeding_detected"`
	AverageSeedingRate     float64          `json:"average_seeding_rate"`
	TopSeedingKeywords     map[string]int   `json:"top_seeding_keywords"`
	RecentActivity         []RecentAnalysis `json:"recent_activity"`
	LastUpdated            time.Time        `json:"last_updated"`
}

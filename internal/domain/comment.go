package domain

import "time"

// Label is the classification outcome for a comment
type Label int

const (
	LabelNotSeeding Label = 0
	LabelSeeding    Label = 1
)

// String returns the human readable label used in exports
func (l Label) String() string {
	if l == LabelSeeding {
		return "Seeding"
	}
	return "Not Seeding"
}

// Comment is a single comment taken from a video or an uploaded file.
// Prediction and Confidence are unset until the comment has been classified.
type Comment struct {
	ID         string   `json:"comment_id"`
	Text       string   `json:"comment_text"`
	LikeCount  int      `json:"like_count"`
	Timestamp  string   `json:"timestamp"`
	AuthorID   string   `json:"user_id"`
	Prediction *Label   `json:"prediction"`
	Confidence *float64 `json:"confidence"`
}

// ApplyResult records a classification result on the comment
func (c *Comment) ApplyResult(result ClassificationResult) {
	label := result.Label
	confidence := result.Confidence
	c.Prediction = &label
	c.Confidence = &confidence
}

// IsSeeding reports whether the comment was classified as seeding
func (c *Comment) IsSeeding() bool {
	return c.Prediction != nil && *c.Prediction == LabelSeeding
}

// ClassificationResult is the outcome of classifying one text
type ClassificationResult struct {
	Label          Label         `json:"label"`
	Confidence     float64       `json:"confidence"`
	ProcessingTime time.Duration `json:"-"`
	Tier           string        `json:"tier"`
}

// ProcessingSeconds returns the processing time in seconds
func (r ClassificationResult) ProcessingSeconds() float64 {
	return r.ProcessingTime.Seconds()
}

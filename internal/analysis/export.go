package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"seedwatch/internal/domain"
)

// ExportHeader is the column order of the CSV export
var ExportHeader = []string{
	"comment_id", "comment_text", "like_count", "timestamp", "user_id", "prediction", "confidence",
}

// ExportFilename is the download name for an analysis export
func ExportFilename(id string) string {
	return fmt.Sprintf("tiktok_analysis_%s.csv", id)
}

// WriteCSV writes every comment of result as one CSV row. Unclassified
// comments get "N/A" for prediction and confidence.
func WriteCSV(w io.Writer, result domain.AnalysisResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for i := range result.Comments {
		c := &result.Comments[i]
		prediction, confidence := "N/A", "N/A"
		if c.Prediction != nil {
			prediction = c.Prediction.String()
		}
		if c.Confidence != nil {
			confidence = strconv.FormatFloat(*c.Confidence, 'f', 3, 64)
		}

		row := []string{
			c.ID,
			c.Text,
			strconv.Itoa(c.LikeCount),
			c.Timestamp,
			c.AuthorID,
			prediction,
			confidence,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

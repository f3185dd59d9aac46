package analysis

import (
	"errors"

	"seedwatch/internal/domain"
)

// Pagination limits
const (
	DefaultPage    = 1
	DefaultPerPage = 50
	MaxPerPage     = 500
)

// ErrInvalidPage is returned for a page or per_page outside the allowed range
var ErrInvalidPage = errors.New("page must be >= 1 and per_page between 1 and 500")

// Paginate returns one page of the analysis comments. A page past the end
// is empty rather than an error.
func Paginate(result domain.AnalysisResult, page, perPage int) (domain.AnalysisPage, error) {
	if page < 1 || perPage < 1 || perPage > MaxPerPage {
		return domain.AnalysisPage{}, ErrInvalidPage
	}

	total := len(result.Comments)
	start := total
	if page-1 <= total/perPage {
		start = min((page-1)*perPage, total)
	}
	end := min(start+perPage, total)

	pageResult := result
	pageResult.Comments = result.Comments[start:end]

	return domain.AnalysisPage{
		AnalysisResult: pageResult,
		Pagination: domain.Pagination{
			Page:    page,
			PerPage: perPage,
			Total:   total,
			Pages:   (total + perPage - 1) / perPage,
			HasNext: end < total,
			HasPrev: page > 1,
		},
	}, nil
}

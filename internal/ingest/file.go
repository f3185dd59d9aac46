package ingest

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFileType is returned for uploads that are neither JSON nor CSV
var ErrUnsupportedFileType = errors.New("unsupported file type")

// FileExt returns the lower-cased extension of filename, including the dot
func FileExt(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// ParseFile picks the parser from the file extension
func ParseFile(filename string, data []byte) ([]Record, error) {
	switch FileExt(filename) {
	case ".json":
		return ParseJSON(data)
	case ".csv":
		return ParseCSV(data)
	default:
		return nil, ErrUnsupportedFileType
	}
}

package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidJSONStructure is returned when the document is neither an array,
// an object with a "comments" array nor a single comment object
var ErrInvalidJSONStructure = errors.New("JSON must be an array of comments, an object with a comments array, or a single comment object")

// ParseJSON decodes an uploaded JSON document into records. Array elements
// that are not objects are dropped.
func ParseJSON(data []byte) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	switch v := doc.(type) {
	case []any:
		return objects(v), nil
	case map[string]any:
		if nested, ok := v["comments"]; ok {
			list, ok := nested.([]any)
			if !ok {
				return nil, ErrInvalidJSONStructure
			}
			return objects(list), nil
		}
		return []Record{Record(v)}, nil
	default:
		return nil, ErrInvalidJSONStructure
	}
}

func objects(list []any) []Record {
	records := make([]Record, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			records = append(records, Record(obj))
		}
	}
	return records
}

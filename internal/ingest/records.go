// Package ingest turns loosely shaped comment records from uploads and
// scrapers into validated domain comments.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"seedwatch/internal/domain"
)

// MaxTextLength is the longest accepted comment, in characters
const MaxTextLength = 2000

// Canonical record keys
const (
	FieldID        = "comment_id"
	FieldText      = "comment_text"
	FieldLikeCount = "like_count"
	FieldTimestamp = "timestamp"
	FieldUserID    = "user_id"
)

var (
	ErrMissingText      = errors.New("comment text is missing or blank")
	ErrTextTooLong      = fmt.Errorf("comment text exceeds %d characters", MaxTextLength)
	ErrInvalidLikeCount = errors.New("like count is not a non-negative integer")
)

// aliases maps alternative column names to canonical keys
var aliases = map[string]string{
	"id":         FieldID,
	"text":       FieldText,
	"content":    FieldText,
	"message":    FieldText,
	"likes":      FieldLikeCount,
	"like":       FieldLikeCount,
	"time":       FieldTimestamp,
	"date":       FieldTimestamp,
	"created_at": FieldTimestamp,
	"user":       FieldUserID,
	"username":   FieldUserID,
	"author":     FieldUserID,
}

// Record is one raw comment as decoded from JSON, CSV or a scraper
type Record map[string]any

// CanonicalKey lower-cases a column name and resolves aliases
func CanonicalKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if canonical, ok := aliases[key]; ok {
		return canonical
	}
	return key
}

// Canonicalize returns a copy of r keyed by canonical names. A canonical key
// present in r wins over its aliases; among aliases the first in sorted order
// wins.
func (r Record) Canonicalize() Record {
	keys := make([]string, 0, len(r))
	for key := range r {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make(Record, len(r))
	for _, key := range keys {
		canonical := CanonicalKey(key)
		if _, taken := out[canonical]; taken && strings.ToLower(strings.TrimSpace(key)) != canonical {
			continue
		}
		out[canonical] = r[key]
	}
	return out
}

// Builder constructs comments from records
type Builder struct {
	prefix string
	now    func() time.Time
}

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithClock replaces time.Now for default timestamps
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates a builder. prefix names generated ids, for example
// "csv" gives csv_comment_3 and csv_user_3.
func NewBuilder(prefix string, opts ...BuilderOption) *Builder {
	b := &Builder{prefix: prefix, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build converts one record. index is the record's position and is used
// for generated ids.
func (b *Builder) Build(r Record, index int) (domain.Comment, error) {
	r = r.Canonicalize()

	text, _ := stringValue(r[FieldText])
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Comment{}, ErrMissingText
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return domain.Comment{}, ErrTextTooLong
	}

	likes, err := likeCount(r[FieldLikeCount])
	if err != nil {
		return domain.Comment{}, err
	}

	c := domain.Comment{
		ID:        fmt.Sprintf("%s_comment_%d", b.prefix, index),
		Text:      text,
		LikeCount: likes,
		Timestamp: b.now().UTC().Format(time.RFC3339),
		AuthorID:  fmt.Sprintf("%s_user_%d", b.prefix, index),
	}
	if id, ok := stringValue(r[FieldID]); ok && id != "" {
		c.ID = id
	}
	if ts, ok := stringValue(r[FieldTimestamp]); ok && ts != "" {
		c.Timestamp = ts
	}
	if user, ok := stringValue(r[FieldUserID]); ok && user != "" {
		c.AuthorID = user
	}
	return c, nil
}

// BuildAll converts records, skipping malformed ones. It returns the
// comments and the error for each skipped record index.
func (b *Builder) BuildAll(records []Record) ([]domain.Comment, map[int]error) {
	comments := make([]domain.Comment, 0, len(records))
	var skipped map[int]error
	for i, r := range records {
		c, err := b.Build(r, i)
		if err != nil {
			if skipped == nil {
				skipped = make(map[int]error)
			}
			skipped[i] = err
			continue
		}
		comments = append(comments, c)
	}
	return comments, skipped
}

func stringValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return strconv.FormatInt(int64(t), 10), true
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return fmt.Sprint(t), true
	}
}

func likeCount(v any) (int, error) {
	var n int64
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int:
		n = int64(t)
	case int64:
		n = t
	case float64:
		if t != math.Trunc(t) || math.Abs(t) > math.MaxInt32 {
			return 0, ErrInvalidLikeCount
		}
		n = int64(t)
	case json.Number:
		parsed, err := t.Int64()
		if err != nil {
			return 0, ErrInvalidLikeCount
		}
		n = parsed
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, nil
		}
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, ErrInvalidLikeCount
		}
		n = parsed
	default:
		return 0, ErrInvalidLikeCount
	}
	if n < 0 || n > math.MaxInt32 {
		return 0, ErrInvalidLikeCount
	}
	return int(n), nil
}

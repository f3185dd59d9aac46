package analysis

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"seedwatch/internal/domain"
	"seedwatch/pkg/utils"
)

var (
	urlPattern = regexp.MustCompile(`https?://|www\.`)

	positiveWords = []string{"tốt", "hay", "tuyệt", "xuất sắc", "chất lượng", "uy tín"}
	negativeWords = []string{"tệ", "dở", "kém", "lừa đảo", "fake", "giả"}
)

// Report is the detailed breakdown of one analysis
type Report struct {
	AnalysisID string          `json:"analysis_id"`
	Summary    Summary         `json:"summary"`
	Spam       SpamPatterns    `json:"spam_patterns"`
	Sentiment  SentimentCounts `json:"sentiment"`
	Contacts   ContactSignals  `json:"contact_indicators"`
	Keywords   []KeywordCount  `json:"top_keywords"`
}

// Summary describes engagement and authorship
type Summary struct {
	TotalComments          int     `json:"total_comments"`
	SeedingCount           int     `json:"seeding_count"`
	NormalCount            int     `json:"normal_count"`
	TimeSpanDays           int     `json:"time_span_days"`
	AverageLikes           float64 `json:"average_likes"`
	HighEngagementComments int     `json:"high_engagement_comments"`
	UniqueUsers            int     `json:"unique_users"`
	AvgCommentLength       float64 `json:"avg_comment_length"`
}

// SpamPatterns counts comments showing common spam shapes
type SpamPatterns struct {
	RepeatedComments int `json:"repeated_comments"`
	ShortComments    int `json:"short_comments"`
	EmojiHeavy       int `json:"emoji_heavy"`
	URLContaining    int `json:"url_containing"`
}

// SentimentCounts is a coarse lexicon-based sentiment tally
type SentimentCounts struct {
	AverageSentiment float64 `json:"average_sentiment"`
	Positive         int     `json:"positive_comments"`
	Negative         int     `json:"negative_comments"`
	Neutral          int     `json:"neutral_comments"`
}

// ContactSignals counts comments that carry a phone number
type ContactSignals struct {
	CommentsWithPhone int      `json:"comments_with_phone"`
	PhoneNumbers      []string `json:"phone_numbers"`
}

// BuildReport computes the full report for a stored analysis
func BuildReport(result domain.AnalysisResult) Report {
	return Report{
		AnalysisID: result.ID,
		Summary:    Summarize(result.Comments),
		Spam:       DetectSpamPatterns(result.Comments),
		Sentiment:  AnalyzeSentiment(result.Comments),
		Contacts:   findContacts(result.Comments),
		Keywords:   RankKeywords(result.Keywords, MaxKeywords),
	}
}

// Summarize computes engagement figures. Timestamps that are not RFC 3339
// are left out of the time span.
func Summarize(comments []domain.Comment) Summary {
	s := Summary{TotalComments: len(comments)}
	if len(comments) == 0 {
		return s
	}

	var (
		earliest, latest time.Time
		likes, length    int
		users            = make(map[string]struct{}, len(comments))
	)
	for i := range comments {
		c := &comments[i]
		if c.IsSeeding() {
			s.SeedingCount++
		}
		likes += c.LikeCount
		length += utf8.RuneCountInString(c.Text)
		users[c.AuthorID] = struct{}{}

		ts, err := time.Parse(time.RFC3339, c.Timestamp)
		if err != nil {
			continue
		}
		if earliest.IsZero() || ts.Before(earliest) {
			earliest = ts
		}
		if latest.IsZero() || ts.After(latest) {
			latest = ts
		}
	}

	s.NormalCount = s.TotalComments - s.SeedingCount
	if !earliest.IsZero() {
		s.TimeSpanDays = int(latest.Sub(earliest).Hours() / 24)
	}

	avg := float64(likes) / float64(len(comments))
	s.AverageLikes = round2(avg)
	for i := range comments {
		if float64(comments[i].LikeCount) > avg {
			s.HighEngagementComments++
		}
	}
	s.UniqueUsers = len(users)
	s.AvgCommentLength = round2(float64(length) / float64(len(comments)))
	return s
}

// DetectSpamPatterns counts repeated, short, emoji-heavy and link-carrying
// comments. One comment may count toward several patterns.
func DetectSpamPatterns(comments []domain.Comment) SpamPatterns {
	seen := make(map[string]int, len(comments))
	for i := range comments {
		seen[comments[i].Text]++
	}

	var p SpamPatterns
	for i := range comments {
		text := comments[i].Text
		words := len(strings.Fields(text))

		if seen[text] > 1 {
			p.RepeatedComments++
		}
		if words <= 2 {
			p.ShortComments++
		}
		if float64(countEmoji(text)) > float64(words)/2 {
			p.EmojiHeavy++
		}
		if urlPattern.MatchString(text) {
			p.URLContaining++
		}
	}
	return p
}

// countEmoji counts runes in the Emoticons block
func countEmoji(text string) int {
	n := 0
	for _, r := range text {
		if r >= 0x1F600 && r <= 0x1F64F {
			n++
		}
	}
	return n
}

// AnalyzeSentiment scores each comment as positive hits minus negative hits
func AnalyzeSentiment(comments []domain.Comment) SentimentCounts {
	var s SentimentCounts
	if len(comments) == 0 {
		return s
	}

	total := 0
	for i := range comments {
		text := normalizeLower(comments[i].Text)
		score := countContained(text, positiveWords) - countContained(text, negativeWords)
		total += score
		switch {
		case score > 0:
			s.Positive++
		case score < 0:
			s.Negative++
		default:
			s.Neutral++
		}
	}
	s.AverageSentiment = round2(float64(total) / float64(len(comments)))
	return s
}

func countContained(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}

func findContacts(comments []domain.Comment) ContactSignals {
	c := ContactSignals{PhoneNumbers: []string{}}
	seen := make(map[string]bool)
	for i := range comments {
		phones := utils.FindPhoneNumbers(comments[i].Text)
		if len(phones) == 0 {
			continue
		}
		c.CommentsWithPhone++
		for _, p := range phones {
			if !seen[p] {
				seen[p] = true
				c.PhoneNumbers = append(c.PhoneNumbers, p)
			}
		}
	}
	return c
}

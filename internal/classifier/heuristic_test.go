package classifier

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"

	"seedwatch/internal/domain"
)

func TestHeuristic_Score(t *testing.T) {
	h := NewHeuristicStrategy(mustDefaultPolicy(t), noJitter())

	tests := []struct {
		name string
		text string
		want float64
	}{
		{
			name: "promotional comment",
			// shop 2.0 + mua 1.5 + inbox 2.5 + admin 2.0 + giá rẻ 1.8 + liên hệ 2.3,
			// two patterns, and the exclamation mark
			text: "Inbox shop để mua giá rẻ, liên hệ admin ngay!",
			want: 16.4,
		},
		{
			name: "organic comment",
			text: "Video hay quá, cảm ơn bạn",
			want: 0,
		},
		{
			name: "phone number",
			text: "Gọi 0909300861 nha",
			want: 2.0,
		},
		{
			name: "contact platform",
			text: "Kết bạn Zalo nhé",
			want: 1.5,
		},
		{
			name: "question mark",
			text: "Nhạc gì vậy?",
			want: 0.3,
		},
		{
			name: "long comment",
			text: strings.TrimSpace(strings.Repeat("xa ", 16)),
			want: 0.5,
		},
		{
			name: "fifteen words is not long",
			text: strings.TrimSpace(strings.Repeat("xa ", 15)),
			want: 0,
		},
		{
			name: "pattern across words",
			text: "xem link trong bio",
			want: 2.0 + 2.0,
		},
		{
			name: "keyword counted once",
			text: "shop shop shop",
			want: 2.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, h.Score(tt.text), 1e-9)
		})
	}
}

func TestHeuristic_SeedingScenario(t *testing.T) {
	h := NewHeuristicStrategy(mustDefaultPolicy(t), noJitter())

	p, err := h.Classify(context.Background(), "Inbox shop để mua giá rẻ, liên hệ admin ngay!")
	require.NoError(t, err)
	assert.Equal(t, domain.LabelSeeding, p.Label)
	assert.InDelta(t, 0.95, p.Confidence, 1e-9)
	assert.GreaterOrEqual(t, p.Confidence, 0.65)
	assert.LessOrEqual(t, p.Confidence, 0.98)
}

func TestHeuristic_OrganicScenario(t *testing.T) {
	h := NewHeuristicStrategy(mustDefaultPolicy(t), noJitter())

	p, err := h.Classify(context.Background(), "Video hay quá, cảm ơn bạn")
	require.NoError(t, err)
	assert.Equal(t, domain.LabelNotSeeding, p.Label)
	assert.InDelta(t, 0.9, p.Confidence, 1e-9)
}

func TestHeuristic_ConfidenceFormula(t *testing.T) {
	h := NewHeuristicStrategy(mustDefaultPolicy(t), noJitter())

	tests := []struct {
		name      string
		text      string
		wantLabel domain.Label
		wantConf  float64
	}{
		// inbox 2.5 + ? 0.3 = 2.8, below threshold: 0.9 - 0.28
		{"just below threshold", "inbox?", domain.LabelNotSeeding, 0.62},
		// shop 2.0 + link 2.0 = 4.0: 0.65 + 0.1
		{"just above threshold", "shop link", domain.LabelSeeding, 0.75},
		// phone 2.0 + zalo 1.5 = 3.5: 0.65 + 0.05
		{"structural signals only", "zalo 0909300861", domain.LabelSeeding, 0.70},
		// inbox 2.5 + admin 2.0 + ! 0.3 = 4.8 -> 0.65 + 0.18
		{"mid range", "inbox admin!", domain.LabelSeeding, 0.83},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := h.Classify(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, p.Label)
			assert.InDelta(t, tt.wantConf, p.Confidence, 1e-9)
		})
	}
}

func TestHeuristic_JitterIsBoundedAndClamped(t *testing.T) {
	policy := mustDefaultPolicy(t)

	tests := []struct {
		name     string
		random   float64
		text     string
		wantConf float64
	}{
		{"max jitter clamps at ceiling", 1.0, "Inbox shop để mua giá rẻ, liên hệ admin ngay!", 0.98},
		{"min jitter on capped score", 0.0, "Inbox shop để mua giá rẻ, liên hệ admin ngay!", 0.90},
		{"min jitter on organic", 0.0, "Video hay quá, cảm ơn bạn", 0.85},
		{"max jitter on organic", 1.0, "Video hay quá, cảm ơn bạn", 0.95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHeuristicStrategy(policy, fixedRandom{f: tt.random})
			p, err := h.Classify(context.Background(), tt.text)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantConf, p.Confidence, 1e-9)
		})
	}
}

func TestHeuristic_SeededRandomStaysInRange(t *testing.T) {
	h := NewHeuristicStrategy(mustDefaultPolicy(t), NewRandom(42))

	for i := 0; i < 200; i++ {
		p, err := h.Classify(context.Background(), "Inbox shop để mua giá rẻ, liên hệ admin ngay!")
		require.NoError(t, err)
		assert.Equal(t, domain.LabelSeeding, p.Label)
		assert.GreaterOrEqual(t, p.Confidence, 0.9)
		assert.LessOrEqual(t, p.Confidence, 0.98)
	}
}

func TestHeuristic_DecomposedDiacriticsMatch(t *testing.T) {
	h := NewHeuristicStrategy(mustDefaultPolicy(t), noJitter())

	composed := "liên hệ ngay"
	decomposed := norm.NFD.String(composed)
	require.NotEqual(t, composed, decomposed)

	assert.InDelta(t, 2.3, h.Score(decomposed), 1e-9)
}

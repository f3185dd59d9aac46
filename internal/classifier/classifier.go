package classifier

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"seedwatch/pkg/logger"
)

// ModelInfo describes the classification chain for the API
type ModelInfo struct {
	ModelName     string   `json:"model_name"`
	ModelURL      string   `json:"model_url"`
	Language      string   `json:"language"`
	Task          string   `json:"task"`
	Labels        []string `json:"labels"`
	Mode          string   `json:"mode"`
	Tiers         []string `json:"tiers"`
	PolicyVersion string   `json:"policy_version"`
}

// Modes reported in ModelInfo
const (
	ModeRemote     = "remote"
	ModeSimulation = "simulation"
)

// Config holds the settings needed to build the default chain
type Config struct {
	RemoteURL     string
	RemoteToken   string
	RemoteTimeout time.Duration
	SeedingLabel  string
	RemoteRPS     float64
	BatchSize     int
	BatchPause    time.Duration
	PolicyFile    string
}

// Deps are the optional collaborators of the default chain
type Deps struct {
	Logger   *logger.Logger
	Observer Observer
	Memo     PredictionMemo
	Random   Random
}

// New builds the default chain: remote (when a token is configured),
// heuristic, then keyword count.
func New(cfg Config, deps Deps) (*Engine, error) {
	policy, err := LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return nil, fmt.Errorf("load classifier policy: %w", err)
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	rnd := deps.Random
	if rnd == nil {
		rnd = NewTimeSeededRandom()
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	info := ModelInfo{
		ModelName:     "VisoBERT Comments Seeding",
		ModelURL:      cfg.RemoteURL,
		Language:      "Vietnamese",
		Task:          "Text Classification",
		Labels:        []string{"Not Seeding", "Seeding"},
		Mode:          ModeSimulation,
		PolicyVersion: policy.Version,
	}

	strategies := make([]Strategy, 0, 3)
	if cfg.RemoteToken != "" && cfg.RemoteURL != "" {
		opts := []RemoteOption{
			WithTimeout(cfg.RemoteTimeout),
			WithSeedingLabel(cfg.SeedingLabel),
			WithRateLimit(cfg.RemoteRPS, batchSize),
		}
		if deps.Memo != nil {
			opts = append(opts, WithMemo(deps.Memo))
		}
		strategies = append(strategies, NewRemoteStrategy(cfg.RemoteURL, cfg.RemoteToken, opts...))
		info.Mode = ModeRemote
	}
	strategies = append(strategies,
		NewHeuristicStrategy(policy, rnd),
		NewKeywordCountStrategy(policy, rnd),
	)

	for _, s := range strategies {
		info.Tiers = append(info.Tiers, s.Name())
	}

	log.Info("classification engine ready",
		zap.String("mode", info.Mode),
		zap.Strings("tiers", info.Tiers),
		zap.String("policy_version", policy.Version))

	return NewEngine(strategies,
		WithBatchSize(batchSize),
		WithBatchPause(cfg.BatchPause),
		WithLogger(log),
		WithObserver(deps.Observer),
		WithModelInfo(info),
	), nil
}

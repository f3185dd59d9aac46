package classifier

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"seedwatch/internal/domain"
	"seedwatch/pkg/logger"
)

const (
	defaultBatchSize  = 10
	defaultBatchPause = 100 * time.Millisecond

	// Returned when no tier produced a prediction
	undecidedConfidence = 0.5
)

// Engine runs texts through an ordered list of strategies
type Engine struct {
	strategies []Strategy
	batchSize  int
	batchPause time.Duration
	info       ModelInfo
	log        *logger.Logger
	observer   Observer
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithBatchSize sets the number of texts classified concurrently
func WithBatchSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithBatchPause sets the pause between sub-batches
func WithBatchPause(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d >= 0 {
			e.batchPause = d
		}
	}
}

// WithLogger attaches a logger
func WithLogger(log *logger.Logger) EngineOption {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithObserver attaches a metrics observer
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithModelInfo sets the description returned by ModelInfo
func WithModelInfo(info ModelInfo) EngineOption {
	return func(e *Engine) { e.info = info }
}

// NewEngine creates an engine trying strategies in the given order
func NewEngine(strategies []Strategy, opts ...EngineOption) *Engine {
	e := &Engine{
		strategies: strategies,
		batchSize:  defaultBatchSize,
		batchPause: defaultBatchPause,
		log:        logger.NewNop(),
		observer:   nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ModelInfo describes the configured chain
func (e *Engine) ModelInfo() ModelInfo {
	return e.info
}

// Predict classifies one text. It never fails: a tier that errors or panics
// is skipped and the next one is tried.
func (e *Engine) Predict(ctx context.Context, text string) domain.ClassificationResult {
	start := time.Now()

	for _, s := range e.strategies {
		p, err := e.attempt(ctx, s, text)
		if err != nil {
			e.observer.ObserveTierFailure(s.Name())
			e.log.Debug("classification tier failed",
				zap.String("tier", s.Name()),
				zap.Error(err))
			continue
		}

		elapsed := time.Since(start)
		e.observer.ObserveClassification(s.Name(), p.Label, elapsed)
		return domain.ClassificationResult{
			Label:          p.Label,
			Confidence:     p.Confidence,
			ProcessingTime: elapsed,
			Tier:           s.Name(),
		}
	}

	e.log.Warn("no classification tier produced a prediction", zap.Int("tiers", len(e.strategies)))
	elapsed := time.Since(start)
	e.observer.ObserveClassification(TierNone, domain.LabelNotSeeding, elapsed)
	return domain.ClassificationResult{
		Label:          domain.LabelNotSeeding,
		Confidence:     undecidedConfidence,
		ProcessingTime: elapsed,
		Tier:           TierNone,
	}
}

func (e *Engine) attempt(ctx context.Context, s Strategy, text string) (p Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s tier panicked: %v", s.Name(), r)
		}
	}()

	p, err = s.Classify(ctx, text)
	if err != nil {
		return Prediction{}, err
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return Prediction{}, fmt.Errorf("%s tier returned confidence %v outside [0, 1]", s.Name(), p.Confidence)
	}
	return p, nil
}

// PredictBatch classifies texts and returns results in input order. Texts
// are processed in sub-batches whose items run concurrently, with a pause
// between sub-batches. Once ctx is done no further sub-batch is started and
// the call fails; sub-batches already running finish first.
func (e *Engine) PredictBatch(ctx context.Context, texts []string) ([]domain.ClassificationResult, error) {
	results := make([]domain.ClassificationResult, len(texts))
	if len(texts) == 0 {
		return results, nil
	}
	e.observer.ObserveBatch(len(texts))

	// In-flight items are not cancelled; the remote tier has its own timeout
	itemCtx := context.WithoutCancel(ctx)

	for start := 0; start < len(texts); start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("batch prediction stopped after %d of %d texts: %w", start, len(texts), err)
		}

		end := min(start+e.batchSize, len(texts))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("classify text %d: %v", i, r)
					}
				}()
				results[i] = e.Predict(itemCtx, texts[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("batch prediction failed: %w", err)
		}

		if end < len(texts) && e.batchPause > 0 {
			timer := time.NewTimer(e.batchPause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, fmt.Errorf("batch prediction stopped after %d of %d texts: %w", end, len(texts), ctx.Err())
			case <-timer.C:
			}
		}
	}

	return results, nil
}

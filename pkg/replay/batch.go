package replay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/Mindburn-Labs/wake/pkg/frame"
	"github.com/Mindburn-Labs/wake/pkg/observability"
)

// Batch executor defaults.
const (
	DefaultMaxFramesPerBatch = 10_000
	DefaultMaxTotalFrames    = 1_000_000
)

// BatchConfig bounds a BatchReplayExecutor.
type BatchConfig struct {
	// Replay configures the engine built for every frame in the batch.
	Replay Config `json:"replay" yaml:"replay"`

	// MaxFramesPerBatch rejects oversized batches outright.
	MaxFramesPerBatch int `json:"max_frames_per_batch" yaml:"max_frames_per_batch"`

	// MaxTotalFrames caps the cumulative number of frames replayed by one
	// executor across all batches.
	MaxTotalFrames int64 `json:"max_total_frames" yaml:"max_total_frames"`

	// Concurrency sizes the worker pool. 1 replays sequentially.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// RatePerSecond paces frame replays when positive; zero disables
	// pacing.
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second"`
}

// DefaultBatchConfig returns the default bounds around a replay Config.
func DefaultBatchConfig(replay Config) BatchConfig {
	return BatchConfig{
		Replay:            replay,
		MaxFramesPerBatch: DefaultMaxFramesPerBatch,
		MaxTotalFrames:    DefaultMaxTotalFrames,
		Concurrency:       1,
	}
}

// Validate checks the batch bounds.
func (c BatchConfig) Validate() error {
	if err := c.Replay.Validate(); err != nil {
		return err
	}
	if c.MaxFramesPerBatch < 0 {
		return fmt.Errorf("max_frames_per_batch must not be negative, got %d", c.MaxFramesPerBatch)
	}
	if c.MaxTotalFrames < 0 {
		return fmt.Errorf("max_total_frames must not be negative, got %d", c.MaxTotalFrames)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	if c.RatePerSecond < 0 {
		return fmt.Errorf("rate_per_second must not be negative, got %g", c.RatePerSecond)
	}
	return nil
}

func (c BatchConfig) withDefaults() BatchConfig {
	if c.MaxFramesPerBatch == 0 {
		c.MaxFramesPerBatch = DefaultMaxFramesPerBatch
	}
	if c.MaxTotalFrames == 0 {
		c.MaxTotalFrames = DefaultMaxTotalFrames
	}
	if c.Concurrency == 0 {
		c.Concurrency = 1
	}
	return c
}

// BatchFailure is one frame's replay failure.
type BatchFailure struct {
	FrameHash string `json:"frame_hash"`
	Err       string `json:"error"`
}

// BatchResult aggregates one batch replay.
type BatchResult struct {
	Mode             Kind           `json:"mode"`
	Attempted        int            `json:"attempted"`
	SuccessCount     int            `json:"success_count"`
	Failures         []BatchFailure `json:"failures,omitempty"`
	DriftSamples     []float64      `json:"drift_samples,omitempty"`
	MeanDriftPercent float64        `json:"mean_drift_percent"`
}

// BatchReplayExecutor replays bounded batches of frames, fail-fast on
// invalid input and aggregate on execution. The per-batch bound rejects
// oversized batches before any replay; the cumulative bound caps the
// executor's lifetime frame count.
type BatchReplayExecutor struct {
	cfg     BatchConfig
	limiter *rate.Limiter
	obs     *observability.Provider
	logger  *slog.Logger

	mu            sync.Mutex
	totalReplayed int64
}

// ExecutorOption configures a BatchReplayExecutor.
type ExecutorOption func(*BatchReplayExecutor)

// WithObservability attaches an observability provider; batches are tracked
// as "replay.batch" operations.
func WithObservability(p *observability.Provider) ExecutorOption {
	return func(x *BatchReplayExecutor) { x.obs = p }
}

// WithExecutorLogger overrides the executor's structured logger.
func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(x *BatchReplayExecutor) { x.logger = logger }
}

// NewBatchReplayExecutor builds an executor with validated bounds.
func NewBatchReplayExecutor(cfg BatchConfig, opts ...ExecutorOption) (*BatchReplayExecutor, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("batch replay config: %w", err)
	}

	x := &BatchReplayExecutor{
		cfg:    cfg,
		obs:    observability.Noop(),
		logger: slog.Default().With("component", "batch_replay"),
	}
	if cfg.RatePerSecond > 0 {
		x.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	for _, opt := range opts {
		opt(x)
	}
	return x, nil
}

// TotalReplayed reports the cumulative number of frames this executor has
// admitted for replay.
func (x *BatchReplayExecutor) TotalReplayed() int64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.totalReplayed
}

// ExecuteParallel replays a batch of frames.
//
// The whole batch is rejected with zero replays performed when it exceeds
// the per-batch bound or would push the executor past its cumulative bound.
// Every frame's integrity is then validated up front, and the first invalid
// frame aborts the batch: replaying a tampered frame is meaningless and
// would execute under falsified resource claims. Only a fully valid batch
// proceeds to execution, sequentially or through a bounded worker pool.
func (x *BatchReplayExecutor) ExecuteParallel(ctx context.Context, frames []*frame.Frame) (res *BatchResult, err error) {
	ctx, done := x.obs.TrackOperation(ctx, "replay.batch",
		observability.ReplayAttrs(string(x.cfg.Replay.Mode), len(frames))...)
	defer func() { done(err) }()

	if len(frames) > x.cfg.MaxFramesPerBatch {
		err = fmt.Errorf("batch replay: batch of %d frames exceeds maximum of %d",
			len(frames), x.cfg.MaxFramesPerBatch)
		return nil, err
	}

	for i, f := range frames {
		if f == nil {
			err = fmt.Errorf("batch replay: frame %d is nil", i)
			return nil, err
		}
		if verr := f.VerifyIntegrity(); verr != nil {
			err = fmt.Errorf("batch replay: frame %d (%s) failed validation, aborting batch: %w",
				i, f.ContentHash, verr)
			return nil, err
		}
	}

	if err = x.reserve(len(frames)); err != nil {
		return nil, err
	}

	results := make([]*Result, len(frames))
	errs := make([]error, len(frames))

	if x.cfg.Concurrency > 1 {
		x.runPool(ctx, frames, results, errs)
	} else {
		for i, f := range frames {
			results[i], errs[i] = x.replayOne(ctx, f)
		}
	}

	res = &BatchResult{Mode: x.cfg.Replay.Mode, Attempted: len(frames)}
	for i, f := range frames {
		switch {
		case errs[i] != nil:
			res.Failures = append(res.Failures, BatchFailure{FrameHash: f.ContentHash, Err: errs[i].Error()})
		case results[i].Success:
			res.SuccessCount++
		default:
			res.Failures = append(res.Failures, BatchFailure{FrameHash: f.ContentHash, Err: results[i].Err})
		}
		if errs[i] == nil && results[i].Drift != nil {
			res.DriftSamples = append(res.DriftSamples, results[i].Drift.DriftPercent)
		}
	}
	if len(res.DriftSamples) > 0 {
		var sum float64
		for _, d := range res.DriftSamples {
			sum += d
		}
		res.MeanDriftPercent = sum / float64(len(res.DriftSamples))
	}

	x.logger.Info("batch replay complete",
		"mode", x.cfg.Replay.Mode,
		"attempted", res.Attempted,
		"succeeded", res.SuccessCount,
		"failed", len(res.Failures),
		"mean_drift_percent", res.MeanDriftPercent,
	)
	return res, nil
}

// reserve admits n frames against the cumulative bound.
func (x *BatchReplayExecutor) reserve(n int) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.totalReplayed+int64(n) > x.cfg.MaxTotalFrames {
		return fmt.Errorf("batch replay: batch of %d frames exceeds maximum total of %d (replayed so far: %d)",
			n, x.cfg.MaxTotalFrames, x.totalReplayed)
	}
	x.totalReplayed += int64(n)
	return nil
}

// replayOne paces, builds the mode-appropriate engine, and executes it.
func (x *BatchReplayExecutor) replayOne(ctx context.Context, f *frame.Frame) (*Result, error) {
	if x.limiter != nil {
		if err := x.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate pacing: %w", err)
		}
	}
	sel, err := NewEngine(f, x.cfg.Replay)
	if err != nil {
		return nil, err
	}
	return sel.Execute(ctx, f)
}

// runPool replays frames through Concurrency workers. Results land at the
// frame's own index, so aggregation order is independent of scheduling.
func (x *BatchReplayExecutor) runPool(ctx context.Context, frames []*frame.Frame, results []*Result, errs []error) {
	indexes := make(chan int)
	var wg sync.WaitGroup

	workers := x.cfg.Concurrency
	if workers > len(frames) {
		workers = len(frames)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i], errs[i] = x.replayOne(ctx, frames[i])
			}
		}()
	}

	for i := range frames {
		indexes <- i
	}
	close(indexes)
	wg.Wait()
}

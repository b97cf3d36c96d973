package correlation

import (
	"context"
	"log/slog"

	"github.com/mdeval/mdeval/internal/checksum"
	"github.com/mdeval/mdeval/internal/trajectory"
)

// Producer computes a result on a cache miss.
type Producer func(ctx context.Context) (*Result, error)

// Gateway memoizes results by fingerprint. Implementations run produce at
// most once per key within a process and store a successful result before
// returning it.
type Gateway interface {
	GetOrCompute(ctx context.Context, key checksum.Fingerprint, produce Producer) (*Result, error)
}

type labelKey struct{}

// WithLabel attaches a human-readable description of the computation to ctx.
// Gateways may store it next to the result.
func WithLabel(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, labelKey{}, label)
}

// LabelFrom returns the label set by WithLabel, or "".
func LabelFrom(ctx context.Context) string {
	s, _ := ctx.Value(labelKey{}).(string)
	return s
}

// Scheduler runs shifted correlations through a Gateway.
type Scheduler struct {
	gateway Gateway
	engine  *checksum.Engine
	logger  *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithEngine fingerprints cache keys with e instead of the default engine.
func WithEngine(e *checksum.Engine) SchedulerOption {
	return func(s *Scheduler) {
		s.engine = e
	}
}

// WithLogger sets the logger for segment progress.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// NewScheduler creates a scheduler memoizing through g. A nil g disables
// caching.
func NewScheduler(g Gateway, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		gateway: g,
		engine:  checksum.Default(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Shifted computes fn over frames, returning a cached result when the
// gateway holds one for the same call. Invalid options fail before the
// gateway is consulted.
func (s *Scheduler) Shifted(ctx context.Context, fn Function, frames trajectory.Sequence, opts Options) (*Result, error) {
	task, err := NewTask(fn, frames, opts)
	if err != nil {
		return nil, err
	}
	task.logger = s.logger

	if s.gateway == nil {
		return task.Compute(ctx)
	}

	key := task.Key(s.engine)
	s.logger.Debug("shifted correlation", "key", key.Hex(), "label", task.Label())
	return s.gateway.GetOrCompute(WithLabel(ctx, task.Label()), key, task.Compute)
}

// Key returns the cache key Shifted would use, validating opts the same way.
func (s *Scheduler) Key(fn Function, frames trajectory.Sequence, opts Options) (checksum.Fingerprint, error) {
	task, err := NewTask(fn, frames, opts)
	if err != nil {
		return checksum.Fingerprint{}, err
	}
	return task.Key(s.engine), nil
}

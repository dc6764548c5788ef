package simulation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Tushar4059x/the-hive-project/eventstore"
)

const (
	DefaultMinInterval = time.Second
	DefaultMaxInterval = 4 * time.Second

	logMsgEventSent      = "simulation: event sent"
	logMsgEventFailed    = "simulation: sending event failed"
	logMsgPersonaStarted = "simulation: persona started"
	logMsgPersonaStopped = "simulation: persona stopped"

	logAttrAgentID = "agent_id"
	logAttrLevel   = "level"
	logAttrError   = "error"

	metricEventsSent   = "simulation_events_sent_total"
	metricEventsFailed = "simulation_events_failed_total"
	labelAgentID       = "agent_id"
)

var (
	// ErrNilIngester is returned by NewRunner without an ingester.
	ErrNilIngester = errors.New("ingester must not be nil")

	// ErrNoPersonas is returned by NewRunner with an empty persona list.
	ErrNoPersonas = errors.New("at least one persona is required")

	// ErrInvalidInterval is returned when the pacing bounds are not 0 < min <= max.
	ErrInvalidInterval = errors.New("interval bounds must satisfy 0 < min <= max")
)

// Runner paces every persona in its own goroutine.
type Runner struct {
	ingester    Ingester
	personas    []Persona
	generator   *Generator
	minInterval time.Duration
	maxInterval time.Duration

	logger           eventstore.Logger
	metricsCollector eventstore.MetricsCollector
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner) error

// WithPersonas replaces DefaultPersonas.
func WithPersonas(personas ...Persona) RunnerOption {
	return func(r *Runner) error {
		if len(personas) == 0 {
			return ErrNoPersonas
		}

		r.personas = personas

		return nil
	}
}

// WithInterval sets the bounds of the random pause between two events of one persona.
func WithInterval(minInterval, maxInterval time.Duration) RunnerOption {
	return func(r *Runner) error {
		if minInterval <= 0 || maxInterval < minInterval {
			return ErrInvalidInterval
		}

		r.minInterval = minInterval
		r.maxInterval = maxInterval

		return nil
	}
}

// WithSeed makes the generated sequence reproducible.
func WithSeed(seed uint64) RunnerOption {
	return func(r *Runner) error {
		r.generator = NewGenerator(seed)
		return nil
	}
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(logger eventstore.Logger) RunnerOption {
	return func(r *Runner) error {
		r.logger = logger
		return nil
	}
}

// WithRunnerMetrics sets the metrics collector.
func WithRunnerMetrics(collector eventstore.MetricsCollector) RunnerOption {
	return func(r *Runner) error {
		r.metricsCollector = collector
		return nil
	}
}

// NewRunner creates a Runner for the default personas with a time-based seed.
func NewRunner(ingester Ingester, options ...RunnerOption) (*Runner, error) {
	if ingester == nil {
		return nil, ErrNilIngester
	}

	r := &Runner{
		ingester:    ingester,
		personas:    DefaultPersonas(),
		minInterval: DefaultMinInterval,
		maxInterval: DefaultMaxInterval,
	}

	for _, option := range options {
		if err := option(r); err != nil {
			return nil, err
		}
	}

	if r.generator == nil {
		r.generator = NewGenerator(uint64(time.Now().UnixNano()))
	}

	return r, nil
}

// Run emits events until ctx is done. Ingest failures are logged and the persona carries on.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for _, persona := range r.personas {
		wg.Add(1)

		go func(p Persona) {
			defer wg.Done()
			r.runPersona(ctx, p)
		}(persona)
	}

	wg.Wait()
}

func (r *Runner) runPersona(ctx context.Context, p Persona) {
	r.logInfo(logMsgPersonaStarted, logAttrAgentID, p.ID)
	defer r.logInfo(logMsgPersonaStopped, logAttrAgentID, p.ID)

	timer := time.NewTimer(r.generator.Interval(0, r.minInterval))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		r.emit(ctx, p)

		timer.Reset(r.generator.Interval(r.minInterval, r.maxInterval))
	}
}

func (r *Runner) emit(ctx context.Context, p Persona) {
	fields := r.generator.Generate(p)

	if err := r.ingester.Ingest(ctx, fields); err != nil {
		if ctx.Err() != nil {
			return
		}

		r.logWarn(logMsgEventFailed, logAttrAgentID, p.ID, logAttrError, err.Error())
		r.incrementCounter(metricEventsFailed, p.ID)

		return
	}

	r.logDebug(logMsgEventSent, logAttrAgentID, p.ID, logAttrLevel, fields[eventstore.FieldLevel])
	r.incrementCounter(metricEventsSent, p.ID)
}

func (r *Runner) logDebug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

func (r *Runner) logInfo(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}

func (r *Runner) logWarn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}

func (r *Runner) incrementCounter(metric, agentID string) {
	if r.metricsCollector != nil {
		r.metricsCollector.IncrementCounter(metric, map[string]string{labelAgentID: agentID})
	}
}

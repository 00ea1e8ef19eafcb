package processor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/V-AS/CoinForLooP/internal/inference"
	"github.com/V-AS/CoinForLooP/internal/models"
)

const (
	OperationGoalPlanning   = "goal_planning"
	OperationMonthlySummary = "monthly_summary"
)

type Generator interface {
	Generate(ctx context.Context, prompt string) inference.Outcome
	Provider() string
	Model() string
}

// Recorder stores an audit row per model call.
type Recorder interface {
	Record(ctx context.Context, record models.InferenceRecord) error
}

type Option func(*base)

type base struct {
	gen      Generator
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

func WithRecorder(recorder Recorder) Option {
	return func(b *base) {
		b.recorder = recorder
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock задает источник текущего времени для расчета сроков.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

func newBase(gen Generator, opts []Option) base {
	b := base{
		gen:    gen,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// generate вызывает модель и пишет аудит. Ошибка возвращается только если
// вызывающая сторона отменила запрос.
func (b base) generate(ctx context.Context, operation, prompt string) (inference.Outcome, error) {
	started := time.Now()
	outcome := b.gen.Generate(ctx, prompt)

	if failure := outcome.Failure(); failure != nil && failure.Kind == inference.KindCanceled {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
	}

	b.record(ctx, operation, len(prompt), outcome, time.Since(started))
	return outcome, nil
}

func (b base) record(ctx context.Context, operation string, promptChars int, outcome inference.Outcome, latency time.Duration) {
	if b.recorder == nil {
		return
	}

	record := models.InferenceRecord{
		ID:           uuid.New(),
		Operation:    operation,
		Provider:     b.gen.Provider(),
		Model:        b.gen.Model(),
		Success:      outcome.OK(),
		Attempts:     outcome.Attempts(),
		PromptChars:  promptChars,
		Latency:      latency,
		FallbackUsed: !outcome.OK(),
		CreatedAt:    time.Now().UTC(),
	}
	if failure := outcome.Failure(); failure != nil {
		record.FailureKind = string(failure.Kind)
	}

	if err := b.recorder.Record(ctx, record); err != nil {
		b.logger.Warn("inference audit write failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
	}
}

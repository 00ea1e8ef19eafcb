package inference

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/V-AS/CoinForLooP/internal/ai"
)

// Policy задает экспоненциальный backoff для повторов.
type Policy struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxAttempts  int
	// MaxDelay ограничивает задержку между попытками при rate limit.
	MaxDelay time.Duration
	// CallTimeout ограничивает каждый отдельный вызов провайдера.
	CallTimeout time.Duration
}

type Config struct {
	Provider        string
	Model           string
	SystemPrompt    string
	Temperature     float64
	MaxOutputTokens int
	Policy          Policy
}

type Option func(*Client)

// Client performs one logical text generation per Generate call, retrying
// only the failures that may go away on their own.
type Client struct {
	chat   ai.Client
	cfg    Config
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// DefaultPolicy возвращает политику: 1s, множитель 2, три попытки.
func DefaultPolicy() Policy {
	return Policy{
		InitialDelay: time.Second,
		Multiplier:   2,
		MaxAttempts:  3,
		MaxDelay:     time.Minute,
		CallTimeout:  20 * time.Second,
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSleeper подменяет ожидание между попытками (используется в тестах).
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// WithJitter подменяет источник случайной добавки в диапазоне [0, 1).
func WithJitter(jitter func() float64) Option {
	return func(c *Client) {
		c.jitter = jitter
	}
}

// New создает клиент генерации поверх провайдера.
func New(chat ai.Client, cfg Config, opts ...Option) *Client {
	cfg.Policy = normalizePolicy(cfg.Policy)

	c := &Client{
		chat:   chat,
		cfg:    cfg,
		logger: slog.Default(),
		sleep:  sleepContext,
		jitter: rand.Float64,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Provider() string {
	return c.cfg.Provider
}

func (c *Client) Model() string {
	return c.cfg.Model
}

// Generate отправляет промпт модели и применяет политику повторов:
// rate limit повторяется с растущей задержкой, прочие ошибки провайдера с
// фиксированной, некорректный запрос и неизвестные ошибки не повторяются.
func (c *Client) Generate(ctx context.Context, prompt string) Outcome {
	policy := c.cfg.Policy
	delay := policy.InitialDelay

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return Failed(KindCanceled, err.Error(), attempt-1)
		}

		text, err := c.call(ctx, prompt)
		if err == nil {
			if strings.TrimSpace(text) == "" {
				c.logger.Warn("inference returned empty response",
					slog.String("provider", c.cfg.Provider),
					slog.Int("attempt", attempt),
				)
				return Failed(KindEmptyResponse, "inference returned empty response", attempt)
			}
			return Succeeded(text, attempt)
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return Failed(KindCanceled, ctxErr.Error(), attempt)
		}

		var wait time.Duration
		switch ai.Classify(err) {
		case ai.KindRateLimited:
			if attempt >= policy.MaxAttempts {
				c.logFailure(KindRateLimited, attempt, err)
				return Failed(KindRateLimited, err.Error(), attempt)
			}
			delay = nextDelay(delay, policy, c.jitter())
			wait = delay
		case ai.KindMalformedRequest:
			c.logFailure(KindMalformedRequest, attempt, err)
			return Failed(KindMalformedRequest, err.Error(), attempt)
		case ai.KindProvider:
			if attempt >= policy.MaxAttempts {
				c.logFailure(KindProviderError, attempt, err)
				return Failed(KindProviderError, err.Error(), attempt)
			}
			wait = policy.InitialDelay
		default:
			c.logger.Error("unexpected inference error",
				slog.String("provider", c.cfg.Provider),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			return Failed(KindUnexpected, err.Error(), attempt)
		}

		c.logger.Warn("inference attempt failed, retrying",
			slog.String("provider", c.cfg.Provider),
			slog.String("kind", string(ai.Classify(err))),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", wait),
			slog.String("error", err.Error()),
		)

		if err := c.sleep(ctx, wait); err != nil {
			return Failed(KindCanceled, err.Error(), attempt)
		}
	}
}

func (c *Client) call(ctx context.Context, prompt string) (string, error) {
	if c.cfg.Policy.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Policy.CallTimeout)
		defer cancel()
	}

	return c.chat.Chat(ctx, ai.ChatRequest{
		System:          c.cfg.SystemPrompt,
		User:            prompt,
		Temperature:     c.cfg.Temperature,
		MaxOutputTokens: c.cfg.MaxOutputTokens,
	})
}

func (c *Client) logFailure(kind FailureKind, attempts int, err error) {
	c.logger.Warn("inference failed",
		slog.String("provider", c.cfg.Provider),
		slog.String("kind", string(kind)),
		slog.Int("attempts", attempts),
		slog.String("error", err.Error()),
	)
}

func normalizePolicy(p Policy) Policy {
	defaults := DefaultPolicy()
	if p.InitialDelay <= 0 {
		p.InitialDelay = defaults.InitialDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = defaults.Multiplier
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaults.MaxAttempts
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaults.MaxDelay
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	return p
}

// nextDelay возвращает следующую задержку rate limit, не больше p.MaxDelay.
func nextDelay(prev time.Duration, p Policy, jitter float64) time.Duration {
	next := float64(prev) * p.Multiplier * (1 + jitter)
	if next > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(next)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

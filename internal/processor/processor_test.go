package processor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V-AS/CoinForLooP/internal/ai"
	"github.com/V-AS/CoinForLooP/internal/inference"
	"github.com/V-AS/CoinForLooP/internal/models"
)

type stubGenerator struct {
	outcome inference.Outcome
	prompts []string
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) inference.Outcome {
	s.prompts = append(s.prompts, prompt)
	return s.outcome
}

func (s *stubGenerator) Provider() string { return "stub" }
func (s *stubGenerator) Model() string    { return "stub-model" }

type memoryRecorder struct {
	mu      sync.Mutex
	records []models.InferenceRecord
	err     error
}

func (m *memoryRecorder) Record(ctx context.Context, record models.InferenceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return m.err
}

type failingChat struct {
	calls int
}

func (f *failingChat) Chat(ctx context.Context, req ai.ChatRequest) (string, error) {
	f.calls++
	return "", &ai.APIError{Provider: "test", Kind: ai.KindRateLimited, StatusCode: 429, Message: "quota"}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock() time.Time {
	return time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestGoalPlanningFeasibilityBoundary(t *testing.T) {
	gen := &stubGenerator{outcome: inference.Succeeded("save 1000 a month", 1)}
	processor := NewGoalPlanningProcessor(gen, WithClock(fixedClock), WithLogger(quietLogger()))

	resp, err := processor.Process(context.Background(), models.GoalPlanningRequest{
		GoalID:       7,
		Description:  "emergency fund",
		TargetAmount: 6000,
		Deadline:     time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC),
		Income:       3000,
		AvgSpending:  floatPtr(2000),
	})

	require.NoError(t, err)
	assert.Equal(t, 6, resp.MonthsRemaining)
	assert.InDelta(t, 1000.0, resp.RequiredMonthlySavings, 1e-9)
	assert.InDelta(t, 1000.0, resp.AvailableMonthlySavings, 1e-9)
	assert.True(t, resp.IsRealistic)
	assert.Equal(t, "save 1000 a month", resp.Plan)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Required monthly savings: $1000.00")
}

func TestGoalPlanningAverageFromTransactions(t *testing.T) {
	gen := &stubGenerator{outcome: inference.Succeeded("plan", 1)}
	processor := NewGoalPlanningProcessor(gen, WithClock(fixedClock), WithLogger(quietLogger()))

	resp, err := processor.Process(context.Background(), models.GoalPlanningRequest{
		TargetAmount: 6000,
		Deadline:     time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC),
		Income:       3000,
		Transactions: []models.Transaction{
			{Amount: 1500, Category: "Rent", Date: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)},
			{Amount: 500, Category: "Food", Date: time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC)},
			{Amount: 2000.01, Category: "Rent", Date: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)},
		},
	})

	require.NoError(t, err)
	assert.InDelta(t, 999.995, resp.AvailableMonthlySavings, 1e-9)
	assert.False(t, resp.IsRealistic)
}

func TestGoalPlanningPastDeadlineUsesOneMonth(t *testing.T) {
	gen := &stubGenerator{outcome: inference.Succeeded("plan", 1)}
	processor := NewGoalPlanningProcessor(gen, WithClock(fixedClock), WithLogger(quietLogger()))

	resp, err := processor.Process(context.Background(), models.GoalPlanningRequest{
		TargetAmount: 1200,
		Deadline:     time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
		Income:       2000,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, resp.MonthsRemaining)
	assert.InDelta(t, 1200.0, resp.RequiredMonthlySavings, 1e-9)
	assert.InDelta(t, 2000.0, resp.AvailableMonthlySavings, 1e-9)
	assert.True(t, resp.IsRealistic)
}

// TestGoalPlanningFallbackKeepsFeasibility проверяет, что при исчерпании повторов
// план заменяется шаблоном, а флаг реалистичности остается вычисленным.
func TestGoalPlanningFallbackKeepsFeasibility(t *testing.T) {
	chat := &failingChat{}
	client := inference.New(chat, inference.Config{
		Provider: "test",
		Policy:   inference.Policy{InitialDelay: time.Millisecond, Multiplier: 2, MaxAttempts: 3},
	},
		inference.WithLogger(quietLogger()),
		inference.WithSleeper(func(ctx context.Context, d time.Duration) error { return nil }),
	)
	recorder := &memoryRecorder{}
	processor := NewGoalPlanningProcessor(client, WithClock(fixedClock), WithLogger(quietLogger()), WithRecorder(recorder))

	resp, err := processor.Process(context.Background(), models.GoalPlanningRequest{
		TargetAmount: 6000,
		Deadline:     time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC),
		Income:       3000,
		AvgSpending:  floatPtr(2000),
	})

	require.NoError(t, err)
	assert.Equal(t, 3, chat.calls)
	assert.Equal(t, GoalFallbackPlan, resp.Plan)
	assert.True(t, resp.IsRealistic)

	require.Len(t, recorder.records, 1)
	record := recorder.records[0]
	assert.Equal(t, OperationGoalPlanning, record.Operation)
	assert.False(t, record.Success)
	assert.True(t, record.FallbackUsed)
	assert.Equal(t, string(inference.KindRateLimited), record.FailureKind)
	assert.Equal(t, 3, record.Attempts)
	assert.Equal(t, "test", record.Provider)
	assert.Positive(t, record.PromptChars)
}

func TestGoalPlanningCanceledReturnsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &stubGenerator{outcome: inference.Failed(inference.KindCanceled, "context canceled", 0)}
	recorder := &memoryRecorder{}
	processor := NewGoalPlanningProcessor(gen, WithClock(fixedClock), WithLogger(quietLogger()), WithRecorder(recorder))

	_, err := processor.Process(ctx, models.GoalPlanningRequest{TargetAmount: 10, Deadline: fixedClock()})

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, recorder.records)
}

func TestSummaryEndToEndScenario(t *testing.T) {
	gen := &stubGenerator{outcome: inference.Succeeded("You overspent on rent.", 1)}
	processor := NewSummaryProcessor(gen, WithLogger(quietLogger()))

	resp, err := processor.Process(context.Background(), models.SummaryRequest{
		UserID: 1,
		Month:  3,
		Year:   2024,
		Income: 2000,
		Transactions: []models.Transaction{
			{Amount: 500, Category: "Food", Date: time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)},
			{Amount: 1800, Category: "Rent", Date: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)},
		},
	})

	require.NoError(t, err)
	assert.InDelta(t, 2300.0, resp.TotalSpending, 1e-9)
	assert.Equal(t, models.BudgetStatusOver, resp.BudgetStatus)
	assert.Equal(t, map[string]float64{"Food": 500, "Rent": 1800}, resp.TopCategories)
	assert.Equal(t, "You overspent on rent.", resp.Summary)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "March 2024")
}

func TestSummaryFallbackKeepsNumbers(t *testing.T) {
	gen := &stubGenerator{outcome: inference.Failed(inference.KindProviderError, "503", 3)}
	processor := NewSummaryProcessor(gen, WithLogger(quietLogger()))

	resp, err := processor.Process(context.Background(), models.SummaryRequest{
		Month:  3,
		Year:   2024,
		Income: 2000,
		Transactions: []models.Transaction{
			{Amount: 500, Category: "Food"},
			{Amount: 1800, Category: "Rent"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "In 3/2024, you spent $2300.00 with income of $2000.00.", resp.Summary)
	assert.Equal(t, models.BudgetStatusOver, resp.BudgetStatus)
	assert.Len(t, resp.TopCategories, 2)
}

// TestSummaryEqualSpendingIsOverBudget фиксирует границу: равенство считается перерасходом.
func TestSummaryEqualSpendingIsOverBudget(t *testing.T) {
	gen := &stubGenerator{outcome: inference.Succeeded("ok", 1)}
	processor := NewSummaryProcessor(gen, WithLogger(quietLogger()))

	resp, err := processor.Process(context.Background(), models.SummaryRequest{
		Month:        1,
		Year:         2024,
		Income:       1000,
		Transactions: []models.Transaction{{Amount: 600, Category: "Rent"}, {Amount: 400, Category: "Food"}},
	})

	require.NoError(t, err)
	assert.Equal(t, models.BudgetStatusOver, resp.BudgetStatus)
}

func TestSummaryCategoryTotalsMatchTotal(t *testing.T) {
	amounts := []float64{0.1, 0.2, 0.3, 19.99, 5.01, 120.45, 0.07, 33.33}
	categories := []string{"Food", "Transport", "Food", "Fun", "Transport", "Rent", "Fun", "Food"}

	transactions := make([]models.Transaction, 0, len(amounts))
	for i, amount := range amounts {
		transactions = append(transactions, models.Transaction{Amount: amount, Category: categories[i]})
	}

	totals, total := aggregate(transactions)

	var sum float64
	for _, value := range totals {
		sum += value
	}
	assert.InDelta(t, total, sum, 1e-9)
	assert.InDelta(t, 179.45, total, 1e-9)
	assert.InDelta(t, 33.73, totals["Food"], 1e-9)
	assert.Len(t, totals, 4)
}

func TestSummaryEmptyMonth(t *testing.T) {
	gen := &stubGenerator{outcome: inference.Succeeded("Nothing spent.", 1)}
	processor := NewSummaryProcessor(gen, WithLogger(quietLogger()))

	resp, err := processor.Process(context.Background(), models.SummaryRequest{Month: 2, Year: 2024, Income: 100})

	require.NoError(t, err)
	assert.Zero(t, resp.TotalSpending)
	assert.Empty(t, resp.TopCategories)
	assert.NotNil(t, resp.TopCategories)
	assert.Equal(t, models.BudgetStatusUnder, resp.BudgetStatus)
}

func TestRecorderErrorDoesNotFailRequest(t *testing.T) {
	gen := &stubGenerator{outcome: inference.Succeeded("ok", 1)}
	recorder := &memoryRecorder{err: errors.New("db down")}
	processor := NewSummaryProcessor(gen, WithLogger(quietLogger()), WithRecorder(recorder))

	resp, err := processor.Process(context.Background(), models.SummaryRequest{Month: 2, Year: 2024, Income: 100})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Summary)
	require.Len(t, recorder.records, 1)
	assert.True(t, recorder.records[0].Success)
	assert.Equal(t, OperationMonthlySummary, recorder.records[0].Operation)
}

func TestAverageMonthlySpending(t *testing.T) {
	assert.Zero(t, AverageMonthlySpending(nil))

	single := []models.Transaction{{Amount: 300, Date: time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC)}}
	assert.InDelta(t, 300.0, AverageMonthlySpending(single), 1e-9)

	spread := []models.Transaction{
		{Amount: 100, Date: time.Date(2024, time.March, 30, 0, 0, 0, 0, time.UTC)},
		{Amount: 200, Date: time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)},
	}
	assert.InDelta(t, 100.0, AverageMonthlySpending(spread), 1e-9)
}

package processor

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/V-AS/CoinForLooP/internal/models"
	"github.com/V-AS/CoinForLooP/internal/prompt"
)

const GoalFallbackPlan = "I'm unable to generate personalized financial advice at the moment. Please try again later."

type GoalPlanningProcessor struct {
	base
}

// NewGoalPlanningProcessor создает процессор планирования цели.
func NewGoalPlanningProcessor(gen Generator, opts ...Option) *GoalPlanningProcessor {
	return &GoalPlanningProcessor{base: newBase(gen, opts)}
}

// Process считает требуемые и доступные накопления, запрашивает план у модели
// и подставляет шаблонный текст, если модель недоступна. Флаг реалистичности
// не зависит от ответа модели.
func (p *GoalPlanningProcessor) Process(ctx context.Context, req models.GoalPlanningRequest) (models.GoalPlanningResponse, error) {
	now := p.now()

	months := prompt.MonthsRemaining(req.Deadline, now)
	required := prompt.RequiredMonthlySavings(req.TargetAmount, months)

	avgSpending := AverageMonthlySpending(req.Transactions)
	if req.AvgSpending != nil {
		avgSpending = *req.AvgSpending
	}
	available := req.Income - avgSpending

	response := models.GoalPlanningResponse{
		IsRealistic:             available >= required,
		MonthsRemaining:         months,
		RequiredMonthlySavings:  required,
		AvailableMonthlySavings: available,
	}

	outcome, err := p.generate(ctx, OperationGoalPlanning, prompt.BuildGoalPlanningPrompt(req, now))
	if err != nil {
		return models.GoalPlanningResponse{}, err
	}

	if !outcome.OK() {
		response.Plan = GoalFallbackPlan
		p.logger.Warn("goal plan fallback used",
			slog.Int64("goal_id", req.GoalID),
			slog.String("kind", string(outcome.Failure().Kind)),
		)
		return response, nil
	}

	response.Plan = outcome.Text()
	p.logger.Info("goal plan generated", slog.Int64("goal_id", req.GoalID), slog.Int("attempts", outcome.Attempts()))
	return response, nil
}

// AverageMonthlySpending делит сумму транзакций на число календарных месяцев,
// которые покрывает окно (от самой ранней до самой поздней, включительно).
func AverageMonthlySpending(transactions []models.Transaction) float64 {
	if len(transactions) == 0 {
		return 0
	}

	total := decimal.Zero
	earliest, latest := transactions[0].Date, transactions[0].Date
	for _, transaction := range transactions {
		total = total.Add(decimal.NewFromFloat(transaction.Amount))
		if transaction.Date.Before(earliest) {
			earliest = transaction.Date
		}
		if transaction.Date.After(latest) {
			latest = transaction.Date
		}
	}

	return total.Div(decimal.NewFromInt(int64(monthsSpanned(earliest, latest)))).InexactFloat64()
}

func monthsSpanned(from, to time.Time) int {
	return to.Year()*12 + int(to.Month()) - (from.Year()*12 + int(from.Month())) + 1
}

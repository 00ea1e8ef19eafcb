package processor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/V-AS/CoinForLooP/internal/models"
	"github.com/V-AS/CoinForLooP/internal/prompt"
)

type SummaryProcessor struct {
	base
}

// NewSummaryProcessor создает процессор месячной сводки.
func NewSummaryProcessor(gen Generator, opts ...Option) *SummaryProcessor {
	return &SummaryProcessor{base: newBase(gen, opts)}
}

// Process агрегирует траты по категориям и запрашивает у модели анализ месяца.
// Числовая часть ответа возвращается и при сбое модели.
func (p *SummaryProcessor) Process(ctx context.Context, req models.SummaryRequest) (models.SummaryResponse, error) {
	totals, total := aggregate(req.Transactions)
	status := models.StatusFor(total, req.Income)

	response := models.SummaryResponse{
		TopCategories: totals,
		TotalSpending: total,
		BudgetStatus:  status,
	}

	summaryPrompt := prompt.BuildMonthlySummaryPrompt(prompt.SummaryInput{
		Month:          req.Month,
		Year:           req.Year,
		Income:         req.Income,
		TotalSpending:  total,
		BudgetStatus:   status,
		CategoryTotals: totals,
		Transactions:   req.Transactions,
	})

	outcome, err := p.generate(ctx, OperationMonthlySummary, summaryPrompt)
	if err != nil {
		return models.SummaryResponse{}, err
	}

	if !outcome.OK() {
		response.Summary = FallbackSummary(req.Month, req.Year, total, req.Income)
		p.logger.Warn("monthly summary fallback used",
			slog.Int64("user_id", req.UserID),
			slog.String("kind", string(outcome.Failure().Kind)),
		)
		return response, nil
	}

	response.Summary = outcome.Text()
	p.logger.Info("monthly summary generated", slog.Int64("user_id", req.UserID), slog.Int("attempts", outcome.Attempts()))
	return response, nil
}

// FallbackSummary возвращает шаблонную сводку на случай недоступности модели.
func FallbackSummary(month, year int, totalSpending, income float64) string {
	return fmt.Sprintf("In %d/%d, you spent $%.2f with income of $%.2f.", month, year, totalSpending, income)
}

func aggregate(transactions []models.Transaction) (map[string]float64, float64) {
	sums := make(map[string]decimal.Decimal)
	total := decimal.Zero

	for _, transaction := range transactions {
		amount := decimal.NewFromFloat(transaction.Amount)
		sums[transaction.Category] = sums[transaction.Category].Add(amount)
		total = total.Add(amount)
	}

	totals := make(map[string]float64, len(sums))
	for category, sum := range sums {
		totals[category] = sum.InexactFloat64()
	}

	return totals, total.InexactFloat64()
}

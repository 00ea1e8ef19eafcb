package models

import (
	"time"

	"github.com/google/uuid"
)

type BudgetStatus string

const (
	BudgetStatusUnder BudgetStatus = "Under Budget"
	BudgetStatusOver  BudgetStatus = "Over Budget"
)

// Transaction is a single expense as the bridge sees it. Amounts of expenses are
// positive magnitudes.
type Transaction struct {
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Date        time.Time `json:"date"`
	Description string    `json:"description,omitempty"`
}

type GoalPlanningRequest struct {
	GoalID       int64
	Description  string
	TargetAmount float64
	Deadline     time.Time
	Income       float64
	Transactions []Transaction
	// Priority is 0 when the user did not set it, otherwise 1..5.
	Priority int
	// AvgSpending overrides the average derived from Transactions when set.
	AvgSpending *float64
}

type GoalPlanningResponse struct {
	Plan                    string  `json:"plan"`
	IsRealistic             bool    `json:"is_realistic"`
	MonthsRemaining         int     `json:"months_remaining"`
	RequiredMonthlySavings  float64 `json:"required_monthly_savings"`
	AvailableMonthlySavings float64 `json:"available_monthly_savings"`
}

type SummaryRequest struct {
	UserID       int64
	Month        int
	Year         int
	Income       float64
	Transactions []Transaction
}

type SummaryResponse struct {
	Summary       string             `json:"summary"`
	TopCategories map[string]float64 `json:"top_categories"`
	TotalSpending float64            `json:"total_spending"`
	BudgetStatus  BudgetStatus       `json:"budget_status"`
}

// StatusFor returns the budget status for a month. Spending equal to income is
// reported as over budget.
func StatusFor(totalSpending, income float64) BudgetStatus {
	if totalSpending < income {
		return BudgetStatusUnder
	}

	return BudgetStatusOver
}

// InferenceRecord is one audited model call made while serving a request.
type InferenceRecord struct {
	ID           uuid.UUID
	Operation    string
	Provider     string
	Model        string
	Success      bool
	FailureKind  string
	Attempts     int
	PromptChars  int
	Latency      time.Duration
	FallbackUsed bool
	CreatedAt    time.Time
}

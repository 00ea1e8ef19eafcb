package dispatch

import (
	"errors"
	"strings"
	"time"

	"github.com/V-AS/CoinForLooP/internal/models"
)

// Форматы дат, которые присылает веб-бэкенд: дата, RFC 3339 и isoformat() без зоны.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

var errInvalidDate = errors.New("invalid date")

type TransactionPayload struct {
	ID          *int64   `json:"id,omitempty"`
	Amount      *float64 `json:"amount" validate:"required"`
	Category    string   `json:"category" validate:"required"`
	Date        string   `json:"date" validate:"required,isodate"`
	Description *string  `json:"description,omitempty"`
}

type GoalPlanningPayload struct {
	GoalID          *int64               `json:"goal_id" validate:"required"`
	GoalDescription string               `json:"goal_description" validate:"required"`
	TargetAmount    *float64             `json:"target_amount" validate:"required,gt=0"`
	Deadline        string               `json:"deadline" validate:"required,isodate"`
	UserIncome      *float64             `json:"user_income" validate:"required,gte=0"`
	AvgSpending     *float64             `json:"avg_spending,omitempty" validate:"omitempty,gte=0"`
	GoalPriority    int                  `json:"goal_priority,omitempty" validate:"min=0,max=5"`
	Transactions    []TransactionPayload `json:"transactions,omitempty" validate:"omitempty,dive"`
}

type SummaryPayload struct {
	UserID       *int64               `json:"user_id" validate:"required"`
	Month        *int                 `json:"month" validate:"required,min=1,max=12"`
	Year         *int                 `json:"year" validate:"required,min=1"`
	Income       *float64             `json:"income" validate:"required,gte=0"`
	Transactions []TransactionPayload `json:"transactions" validate:"omitempty,dive"`
}

// ParseDate разбирает дату в любом из поддерживаемых форматов.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}

	return time.Time{}, errInvalidDate
}

func (p TransactionPayload) toModel() (models.Transaction, error) {
	date, err := ParseDate(p.Date)
	if err != nil {
		return models.Transaction{}, err
	}

	transaction := models.Transaction{
		Amount:   *p.Amount,
		Category: p.Category,
		Date:     date,
	}
	if p.Description != nil {
		transaction.Description = *p.Description
	}

	return transaction, nil
}

func toTransactions(payloads []TransactionPayload) ([]models.Transaction, error) {
	transactions := make([]models.Transaction, 0, len(payloads))
	for _, payload := range payloads {
		transaction, err := payload.toModel()
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, transaction)
	}

	return transactions, nil
}

func (p GoalPlanningPayload) toModel() (models.GoalPlanningRequest, error) {
	deadline, err := ParseDate(p.Deadline)
	if err != nil {
		return models.GoalPlanningRequest{}, err
	}

	transactions, err := toTransactions(p.Transactions)
	if err != nil {
		return models.GoalPlanningRequest{}, err
	}

	return models.GoalPlanningRequest{
		GoalID:       *p.GoalID,
		Description:  p.GoalDescription,
		TargetAmount: *p.TargetAmount,
		Deadline:     deadline,
		Income:       *p.UserIncome,
		Transactions: transactions,
		Priority:     p.GoalPriority,
		AvgSpending:  p.AvgSpending,
	}, nil
}

func (p SummaryPayload) toModel() (models.SummaryRequest, error) {
	transactions, err := toTransactions(p.Transactions)
	if err != nil {
		return models.SummaryRequest{}, err
	}

	return models.SummaryRequest{
		UserID:       *p.UserID,
		Month:        *p.Month,
		Year:         *p.Year,
		Income:       *p.Income,
		Transactions: transactions,
	}, nil
}

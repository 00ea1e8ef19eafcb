package prompt

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/V-AS/CoinForLooP/internal/models"
)

const (
	deadlineLayout      = "January 02, 2006"
	isoDateLayout       = "2006-01-02"
	topCategoryCount    = 5
	excerptLimit        = 5
	goalExcerptLimit    = 20
	otherCategoriesName = "Other categories"
	noDescription       = "No description"
	summaryWordBudget   = 250
)

var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

type SummaryInput struct {
	Month          int
	Year           int
	Income         float64
	TotalSpending  float64
	BudgetStatus   models.BudgetStatus
	CategoryTotals map[string]float64
	Transactions   []models.Transaction
}

type CategoryLine struct {
	Name    string
	Amount  float64
	Percent float64
}

// MonthName возвращает английское название месяца (1-12) или пустую строку.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}

	return monthNames[month-1]
}

// MonthsRemaining считает целые месяцы до дедлайна без учета дня месяца.
// Результат не бывает меньше 1.
func MonthsRemaining(deadline, now time.Time) int {
	months := deadline.Year()*12 + int(deadline.Month()) - (now.Year()*12 + int(now.Month()))
	if months < 1 {
		return 1
	}

	return months
}

// RequiredMonthlySavings возвращает сумму, которую нужно откладывать ежемесячно.
func RequiredMonthlySavings(targetAmount float64, months int) float64 {
	if months < 1 {
		months = 1
	}

	return targetAmount / float64(months)
}

func priorityText(priority int) string {
	if priority == 0 {
		return "Not specified"
	}

	return fmt.Sprintf("%d/5", priority)
}

// BuildGoalPlanningPrompt собирает промпт для плана накоплений.
// Оценку реалистичности цели делает модель, флаг считается отдельно процессором.
func BuildGoalPlanningPrompt(req models.GoalPlanningRequest, now time.Time) string {
	months := MonthsRemaining(req.Deadline, now)
	required := RequiredMonthlySavings(req.TargetAmount, months)

	var b strings.Builder
	fmt.Fprintf(&b, "User wants to save $%.2f for %s by %s.\n", req.TargetAmount, strings.TrimSpace(req.Description), req.Deadline.Format(deadlineLayout))
	fmt.Fprintf(&b, "Months remaining until the deadline: %d\n", months)
	fmt.Fprintf(&b, "Monthly income: $%.2f\n", req.Income)
	fmt.Fprintf(&b, "Required monthly savings: $%.2f\n", required)
	if req.AvgSpending != nil {
		fmt.Fprintf(&b, "Average monthly spending: $%.2f\n", *req.AvgSpending)
		fmt.Fprintf(&b, "Available for monthly savings: $%.2f\n", req.Income-*req.AvgSpending)
	}
	fmt.Fprintf(&b, "Goal priority: %s\n", priorityText(req.Priority))
	b.WriteString("\nRecent transactions:\n")
	b.WriteString(renderTransactions(req.Transactions))
	b.WriteString(`

Based on this information:
1. Judge whether the goal is realistic given the income and the spending shown above.
2. Create a month-by-month savings plan that reaches the goal by the deadline.
3. If the goal looks unrealistic, suggest concrete adjustments (reducing specific expenses, extending the timeline, lowering the target).
4. Take the goal priority into account when proposing trade-offs against other spending.

Provide specific, actionable advice in a friendly, encouraging tone. Format your response as a clear plan with short bullet points.`)

	return b.String()
}

func renderTransactions(transactions []models.Transaction) string {
	if len(transactions) == 0 {
		return "- No transactions recorded"
	}

	return strings.Join(excerpt(transactions, goalExcerptLimit), "\n")
}

func transactionLine(transaction models.Transaction) string {
	description := strings.TrimSpace(transaction.Description)
	if description == "" {
		description = noDescription
	}

	return fmt.Sprintf("- $%.2f on %s (%s): %s", transaction.Amount, transaction.Category, transaction.Date.Format(isoDateLayout), description)
}

// CategoryBreakdown возвращает пять крупнейших категорий и, если категорий
// больше, одну строку с суммой остальных.
func CategoryBreakdown(totals map[string]float64, totalSpending float64) []CategoryLine {
	lines := make([]CategoryLine, 0, len(totals))
	for name, amount := range totals {
		lines = append(lines, CategoryLine{Name: name, Amount: amount})
	}

	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Amount != lines[j].Amount {
			return lines[i].Amount > lines[j].Amount
		}
		return lines[i].Name < lines[j].Name
	})

	if len(lines) > topCategoryCount {
		var rest float64
		for _, line := range lines[topCategoryCount:] {
			rest += line.Amount
		}
		lines = append(lines[:topCategoryCount:topCategoryCount], CategoryLine{Name: otherCategoriesName, Amount: rest})
	}

	for i := range lines {
		lines[i].Percent = percentOf(lines[i].Amount, totalSpending)
	}

	return lines
}

// TransactionExcerpt возвращает не более пяти строк транзакций и строку
// с количеством пропущенных.
func TransactionExcerpt(transactions []models.Transaction) []string {
	return excerpt(transactions, excerptLimit)
}

func excerpt(transactions []models.Transaction, maxLines int) []string {
	limit := len(transactions)
	if limit > maxLines {
		limit = maxLines
	}

	lines := make([]string, 0, limit+1)
	for _, transaction := range transactions[:limit] {
		lines = append(lines, transactionLine(transaction))
	}

	if omitted := len(transactions) - limit; omitted > 0 {
		lines = append(lines, fmt.Sprintf("- ... and %d more transactions", omitted))
	}

	return lines
}

// BuildMonthlySummaryPrompt собирает промпт для анализа расходов за месяц.
func BuildMonthlySummaryPrompt(in SummaryInput) string {
	netSavings := in.Income - in.TotalSpending
	spendingPercent := percentOf(in.TotalSpending, in.Income)

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following financial data for %s %d:\n\n", MonthName(in.Month), in.Year)
	fmt.Fprintf(&b, "Monthly Income: $%.2f\n", in.Income)
	fmt.Fprintf(&b, "Total Spending: $%.2f (%.1f%% of income)\n", in.TotalSpending, spendingPercent)
	fmt.Fprintf(&b, "Net Savings: $%.2f\n", netSavings)
	fmt.Fprintf(&b, "Budget Status: %s\n", in.BudgetStatus)

	b.WriteString("\nSpending by Category:\n")
	breakdown := CategoryBreakdown(in.CategoryTotals, in.TotalSpending)
	if len(breakdown) == 0 {
		b.WriteString("- No spending recorded\n")
	}
	for _, line := range breakdown {
		fmt.Fprintf(&b, "- %s: $%.2f (%.1f%%)\n", line.Name, line.Amount, line.Percent)
	}

	b.WriteString("\nRecent Transactions:\n")
	excerpt := TransactionExcerpt(in.Transactions)
	if len(excerpt) == 0 {
		b.WriteString("- No transactions recorded\n")
	}
	for _, line := range excerpt {
		b.WriteString(line)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, `
Please provide:
1. A short summary of the month's spending patterns.
2. The categories with unusually high spending.
3. Two or three specific improvements for next month.
4. If the user is over budget, practical ways to reduce expenses.

Formatting rules:
- Keep the whole answer under %d words.
- Use a friendly, non-judgemental tone and address the user as "you".
- Structure the answer as short paragraphs or bullet points, no tables.
- Refer to amounts in dollars with two decimals.`, summaryWordBudget)

	return b.String()
}

func percentOf(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}

	return part / whole * 100
}

/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's types from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts are rendered as fixed two-decimal strings ("-123.45") so clients
  never see float rounding. Request bodies accept JSON numbers or strings
  (shopspring/decimal).

VALIDATION:
  Validation is done in handlers and in the budget package, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/rows.go: Datastore row shapes used for import and simulation
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/report"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// TransactionRequest creates or replaces a transaction.
type TransactionRequest struct {
	Date         string           `json:"date"`
	Category     string           `json:"category"`
	Amount       decimal.Decimal  `json:"amount"`
	Installments int              `json:"installments"`
	SpentBy      string           `json:"spent_by"`
	Description  string           `json:"description"`
	Kind         string           `json:"kind"`
	Gain         *decimal.Decimal `json:"gain,omitempty"`
}

// BudgetRequest sets a user's budget for one category.
type BudgetRequest struct {
	Budget decimal.Decimal `json:"budget"`
}

// SubscriptionRequest subscribes an address to the scheduled report.
type SubscriptionRequest struct {
	Email  string `json:"email"`
	Active *bool  `json:"active,omitempty"`
}

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ErrorResponse is the body of every error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type CycleDTO struct {
	Key   string `json:"key"`
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
}

type TransactionDTO struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Date         string `json:"date"`
	ValidDate    bool   `json:"valid_date"`
	Category     string `json:"category"`
	Kind         string `json:"kind"`
	Amount       string `json:"amount"`
	Installments int    `json:"installments"`
	TotalCost    string `json:"total_cost"`
	SpentBy      string `json:"spent_by,omitempty"`
	Description  string `json:"description,omitempty"`
	Gain         string `json:"gain,omitempty"`
}

// EntryDTO is one line of a cycle listing, stored or projected.
type EntryDTO struct {
	TransactionDTO
	Projected   bool   `json:"projected"`
	ParentID    string `json:"parent_id,omitempty"`
	Installment int    `json:"installment"`
	Of          int    `json:"of"`
}

type CategoryTotalDTO struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Spent   string `json:"spent"`
	Budget  string `json:"budget"`
	Percent string `json:"percent"`
	Status  string `json:"status"`
}

type SummaryDTO struct {
	Income     string             `json:"income"`
	Expense    string             `json:"expense"`
	Investment string             `json:"investment"`
	Gain       string             `json:"gain"`
	Balance    string             `json:"balance"`
	Categories []CategoryTotalDTO `json:"categories"`
}

type SnapshotDTO struct {
	Cycle   CycleDTO   `json:"cycle"`
	Entries []EntryDTO `json:"entries"`
	Summary SummaryDTO `json:"summary"`
}

type CategoryDTO struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Budget string `json:"budget"`
}

type CategoryPlanDTO struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Planned string `json:"planned"`
}

type MonthPlanDTO struct {
	Month      int               `json:"month"`
	Income     string            `json:"income"`
	Expense    string            `json:"expense"`
	Investment string            `json:"investment"`
	Balance    string            `json:"balance"`
	Categories []CategoryPlanDTO `json:"categories,omitempty"`
}

type PlanDTO struct {
	Year   int            `json:"year"`
	Months []MonthPlanDTO `json:"months"`
	Totals MonthPlanDTO   `json:"totals"`
}

type ComparisonDTO struct {
	Month              int          `json:"month"`
	Cycle              CycleDTO     `json:"cycle"`
	Planned            MonthPlanDTO `json:"planned"`
	Actual             SummaryDTO   `json:"actual"`
	IncomeVariance     string       `json:"income_variance"`
	ExpenseVariance    string       `json:"expense_variance"`
	InvestmentVariance string       `json:"investment_variance"`
}

type RowErrorDTO struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

type ImportResultDTO struct {
	Imported int           `json:"imported"`
	Rejected int           `json:"rejected"`
	Errors   []RowErrorDTO `json:"errors"`
}

type SubscriptionDTO struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

type RunDTO struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscription_id"`
	UserID         string `json:"user_id"`
	Cycle          string `json:"cycle"`
	RanAt          string `json:"ran_at"`
	Status         string `json:"status"`
	Error          string `json:"error,omitempty"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	UserID      string `json:"user_id"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toCycleDTO(c budget.Cycle) CycleDTO {
	return CycleDTO{
		Key:   c.Key().String(),
		Start: c.Start.String(),
		End:   c.End.String(),
		Label: c.Label,
	}
}

func toCycleDTOs(cycles []budget.Cycle) []CycleDTO {
	out := make([]CycleDTO, len(cycles))
	for i, c := range cycles {
		out[i] = toCycleDTO(c)
	}
	return out
}

func toTransactionDTO(tx budget.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:           string(tx.ID),
		UserID:       string(tx.UserID),
		Date:         tx.RawDate,
		ValidDate:    tx.HasValidDate(),
		Category:     tx.Category,
		Kind:         string(tx.Kind()),
		Amount:       tx.Amount.String(),
		Installments: tx.Installments,
		TotalCost:    budget.TotalCost(tx).String(),
		SpentBy:      tx.SpentBy,
		Description:  tx.Description,
	}
	if tx.HasValidDate() {
		dto.Date = tx.Date.String()
	}
	if g := tx.Gain(); g != nil {
		dto.Gain = g.String()
	}
	return dto
}

func toTransactionDTOs(txs []budget.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		out[i] = toTransactionDTO(tx)
	}
	return out
}

func toEntryDTOs(entries []budget.Entry) []EntryDTO {
	out := make([]EntryDTO, len(entries))
	for i, e := range entries {
		out[i] = EntryDTO{
			TransactionDTO: toTransactionDTO(e.Transaction),
			Projected:      e.Projected,
			ParentID:       string(e.ParentID),
			Installment:    e.Index,
			Of:             e.Total,
		}
	}
	return out
}

func toSummaryDTO(s budget.Summary) SummaryDTO {
	dto := SummaryDTO{
		Income:     s.TotalIncome.String(),
		Expense:    s.TotalExpense.String(),
		Investment: s.TotalInvestment.String(),
		Gain:       s.TotalGain.String(),
		Balance:    s.Balance.String(),
		Categories: make([]CategoryTotalDTO, len(s.PerCategory)),
	}
	for i, ct := range s.PerCategory {
		dto.Categories[i] = CategoryTotalDTO{
			Name:    ct.Name,
			Kind:    string(ct.Kind),
			Spent:   ct.Spent.String(),
			Budget:  ct.Budget.String(),
			Percent: ct.Percent.StringFixed(1),
			Status:  string(ct.Status),
		}
	}
	return dto
}

func toSnapshotDTO(snap budget.CycleSnapshot) SnapshotDTO {
	return SnapshotDTO{
		Cycle:   toCycleDTO(snap.Cycle),
		Entries: toEntryDTOs(snap.Entries()),
		Summary: toSummaryDTO(snap.Summary),
	}
}

func toCategoryDTOs(cats []budget.Category) []CategoryDTO {
	out := make([]CategoryDTO, len(cats))
	for i, c := range cats {
		out[i] = CategoryDTO{Name: c.Name, Kind: string(c.Kind), Budget: c.Budget.String()}
	}
	return out
}

func toMonthPlanDTO(mp budget.MonthPlan) MonthPlanDTO {
	dto := MonthPlanDTO{
		Month:      int(mp.Month),
		Income:     mp.Income.String(),
		Expense:    mp.Expense.String(),
		Investment: mp.Investment.String(),
		Balance:    mp.Balance.String(),
	}
	for _, c := range mp.Categories {
		dto.Categories = append(dto.Categories, CategoryPlanDTO{Name: c.Name, Kind: string(c.Kind), Planned: c.Planned.String()})
	}
	return dto
}

func toPlanDTO(p budget.Plan) PlanDTO {
	dto := PlanDTO{Year: p.Year, Months: make([]MonthPlanDTO, len(p.Months)), Totals: toMonthPlanDTO(p.Totals)}
	for i, mp := range p.Months {
		dto.Months[i] = toMonthPlanDTO(mp)
	}
	return dto
}

func toComparisonDTOs(cmps []budget.PlanComparison) []ComparisonDTO {
	out := make([]ComparisonDTO, len(cmps))
	for i, c := range cmps {
		out[i] = ComparisonDTO{
			Month:              int(c.Month),
			Cycle:              toCycleDTO(c.Cycle),
			Planned:            toMonthPlanDTO(c.Planned),
			Actual:             toSummaryDTO(c.Actual),
			IncomeVariance:     c.IncomeVariance.String(),
			ExpenseVariance:    c.ExpenseVariance.String(),
			InvestmentVariance: c.InvestmentVariance.String(),
		}
	}
	return out
}

func toSubscriptionDTO(s report.Subscription) SubscriptionDTO {
	return SubscriptionDTO{
		ID:        s.ID,
		UserID:    string(s.UserID),
		Email:     s.Email,
		Active:    s.Active,
		CreatedAt: s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func toRunDTO(r report.Run) RunDTO {
	return RunDTO{
		ID:             r.ID,
		SubscriptionID: r.SubscriptionID,
		UserID:         string(r.UserID),
		Cycle:          r.Cycle,
		RanAt:          r.RanAt.Format("2006-01-02T15:04:05Z07:00"),
		Status:         string(r.Status),
		Error:          r.Error,
	}
}

/*
Package factory converts datastore rows to budget types and back.

PURPOSE:
  The hosted datastore speaks Portuguese column names and loose types
  (nullable descriptions, nullable gains, dates as text). The engine speaks
  budget.Transaction, budget.BudgetOverride and budget.SimulationEntry.
  Everything crossing that line goes through this package.

ROW SCHEMAS:
  transaction: {
    "id": "uuid", "data": "2025-03-26", "categoria": "Casa",
    "valor": -150.00, "parcelas": 3, "quem_gastou": "Ana",
    "descricao": null, "tipo": "despesa", "ganhos": null,
    "usuario_id": "uuid"
  }
  override:    {"usuario_id", "categoria_nome", "categoria_tipo", "orcamento"}
  simulation:  {"usuario_id", "ano", "mes", "categoria_nome",
                "categoria_tipo", "valor_previsto"}

DATES:
  A row whose "data" does not parse is still converted: the transaction
  keeps RawDate and a zero Date, so it stays editable but never lands in a
  cycle. Every other field problem is an error.

USAGE:
  f := factory.NewRowFactory()
  tx, err := f.TransactionFromRow(row)
  txs, rowErrs, err := f.ParseTransactionRows(body, userID)

SEE ALSO:
  - budget/types.go:  Transaction, Variant
  - categories.json:  default category catalog
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/budget"
)

// =============================================================================
// ROW SCHEMA TYPES
// =============================================================================

// TransactionRow is one row of the transactions table.
type TransactionRow struct {
	ID         string              `json:"id,omitempty"`
	Data       string              `json:"data"`
	Categoria  string              `json:"categoria"`
	Valor      decimal.Decimal     `json:"valor"`
	Parcelas   int                 `json:"parcelas,omitempty"`
	QuemGastou string              `json:"quem_gastou,omitempty"`
	Descricao  *string             `json:"descricao"`
	Tipo       string              `json:"tipo"`
	Ganhos     decimal.NullDecimal `json:"ganhos"`
	UsuarioID  string              `json:"usuario_id,omitempty"`
}

// OverrideRow is one row of the category budget override table.
type OverrideRow struct {
	ID            string          `json:"id,omitempty"`
	UsuarioID     string          `json:"usuario_id"`
	CategoriaNome string          `json:"categoria_nome"`
	CategoriaTipo string          `json:"categoria_tipo"`
	Orcamento     decimal.Decimal `json:"orcamento"`
}

// SimulationRow is one row of the yearly simulation table.
type SimulationRow struct {
	UsuarioID     string          `json:"usuario_id"`
	Ano           int             `json:"ano"`
	Mes           int             `json:"mes"`
	CategoriaNome string          `json:"categoria_nome"`
	CategoriaTipo string          `json:"categoria_tipo"`
	ValorPrevisto decimal.Decimal `json:"valor_previsto"`
}

// RowError reports why one row of a batch was rejected.
type RowError struct {
	Index int
	ID    string
	Err   error
}

func (e RowError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("row %d (%s): %v", e.Index, e.ID, e.Err)
	}
	return fmt.Sprintf("row %d: %v", e.Index, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// =============================================================================
// ROW FACTORY
// =============================================================================

// RowFactory converts rows. NewID generates ids for rows that have none.
type RowFactory struct {
	NewID func() string
}

func NewRowFactory() *RowFactory {
	return &RowFactory{NewID: uuid.NewString}
}

// ParseTransactionRow parses a single JSON row.
func (f *RowFactory) ParseTransactionRow(data []byte) (budget.Transaction, error) {
	var row TransactionRow
	if err := json.Unmarshal(data, &row); err != nil {
		return budget.Transaction{}, fmt.Errorf("failed to parse transaction row: %w", err)
	}
	return f.TransactionFromRow(row)
}

// TransactionFromRow converts a row. The sign convention is applied to
// the amount.
func (f *RowFactory) TransactionFromRow(row TransactionRow) (budget.Transaction, error) {
	kind, err := budget.ParseKind(row.Tipo)
	if err != nil {
		return budget.Transaction{}, err
	}

	var gain *budget.Amount
	if row.Ganhos.Valid {
		g := budget.AmountOf(row.Ganhos.Decimal)
		gain = &g
	}
	variant, err := budget.VariantFor(kind, gain)
	if err != nil {
		return budget.Transaction{}, err
	}

	if strings.TrimSpace(row.Categoria) == "" {
		return budget.Transaction{}, &budget.ValidationError{Field: "categoria", Reason: "must not be empty", Err: budget.ErrEmptyCategory}
	}

	installments := row.Parcelas
	if installments == 0 {
		installments = 1
	}
	if installments < 1 {
		return budget.Transaction{}, &budget.ValidationError{
			Field:  "parcelas",
			Reason: fmt.Sprintf("%d is below 1", row.Parcelas),
			Err:    budget.ErrInvalidInstallments,
		}
	}

	id := row.ID
	if id == "" {
		id = f.NewID()
	}

	tx := budget.Transaction{
		ID:           budget.TransactionID(id),
		UserID:       budget.UserID(row.UsuarioID),
		RawDate:      row.Data,
		Category:     strings.TrimSpace(row.Categoria),
		Amount:       budget.AmountOf(row.Valor),
		Installments: installments,
		SpentBy:      row.QuemGastou,
		Variant:      variant,
	}
	if row.Descricao != nil {
		tx.Description = *row.Descricao
	}
	if date, err := budget.ParseDate(row.Data); err == nil {
		tx.Date = date
		tx.RawDate = date.String()
	}
	return tx.Normalized(), nil
}

// TransactionToRow converts a stored transaction back to its row.
func (f *RowFactory) TransactionToRow(tx budget.Transaction) TransactionRow {
	row := TransactionRow{
		ID:         string(tx.ID),
		Data:       tx.RawDate,
		Categoria:  tx.Category,
		Valor:      tx.Amount.Value,
		Parcelas:   tx.Installments,
		QuemGastou: tx.SpentBy,
		Tipo:       tx.Kind().RowName(),
		UsuarioID:  string(tx.UserID),
	}
	if tx.HasValidDate() {
		row.Data = tx.Date.String()
	}
	if tx.Description != "" {
		desc := tx.Description
		row.Descricao = &desc
	}
	if g := tx.Gain(); g != nil {
		row.Ganhos = decimal.NewNullDecimal(g.Value)
	}
	return row
}

// ParseTransactionRows parses a JSON array of rows for user. Bad rows are
// reported in the returned RowErrors and do not stop the batch. The error
// is only set when body is not a JSON array.
func (f *RowFactory) ParseTransactionRows(body []byte, user budget.UserID) ([]budget.Transaction, []RowError, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to parse transaction rows: %w", err)
	}

	var (
		txs  []budget.Transaction
		errs []RowError
	)
	for i, msg := range raw {
		var row TransactionRow
		if err := json.Unmarshal(msg, &row); err != nil {
			errs = append(errs, RowError{Index: i, Err: err})
			continue
		}
		if row.UsuarioID != "" && budget.UserID(row.UsuarioID) != user {
			errs = append(errs, RowError{Index: i, ID: row.ID, Err: fmt.Errorf("row belongs to user %s", row.UsuarioID)})
			continue
		}
		if budget.IsProjectionID(budget.TransactionID(row.ID)) {
			errs = append(errs, RowError{Index: i, ID: row.ID, Err: fmt.Errorf("installment projections are never stored")})
			continue
		}
		row.UsuarioID = string(user)

		tx, err := f.TransactionFromRow(row)
		if err != nil {
			errs = append(errs, RowError{Index: i, ID: row.ID, Err: err})
			continue
		}
		txs = append(txs, tx)
	}
	return txs, errs, nil
}

// =============================================================================
// OVERRIDES AND SIMULATION
// =============================================================================

func (f *RowFactory) OverrideFromRow(row OverrideRow) (budget.BudgetOverride, error) {
	kind, err := budget.ParseKind(row.CategoriaTipo)
	if err != nil {
		return budget.BudgetOverride{}, err
	}
	if strings.TrimSpace(row.CategoriaNome) == "" {
		return budget.BudgetOverride{}, &budget.ValidationError{Field: "categoria_nome", Reason: "must not be empty", Err: budget.ErrEmptyCategory}
	}
	id := row.ID
	if id == "" {
		id = f.NewID()
	}
	return budget.BudgetOverride{
		ID:           id,
		UserID:       budget.UserID(row.UsuarioID),
		CategoryName: strings.TrimSpace(row.CategoriaNome),
		Kind:         kind,
		Budget:       budget.AmountOf(row.Orcamento.Abs()),
	}, nil
}

func (f *RowFactory) OverrideToRow(o budget.BudgetOverride) OverrideRow {
	return OverrideRow{
		ID:            o.ID,
		UsuarioID:     string(o.UserID),
		CategoriaNome: o.CategoryName,
		CategoriaTipo: o.Kind.RowName(),
		Orcamento:     o.Budget.Value,
	}
}

func (f *RowFactory) SimulationFromRow(row SimulationRow) (budget.SimulationEntry, error) {
	kind, err := budget.ParseKind(row.CategoriaTipo)
	if err != nil {
		return budget.SimulationEntry{}, err
	}
	entry := budget.SimulationEntry{
		UserID:       budget.UserID(row.UsuarioID),
		Year:         row.Ano,
		Month:        row.Mes,
		CategoryName: strings.TrimSpace(row.CategoriaNome),
		Kind:         kind,
		Planned:      budget.AmountOf(row.ValorPrevisto),
	}
	if err := entry.Validate(); err != nil {
		return budget.SimulationEntry{}, err
	}
	return entry, nil
}

func (f *RowFactory) SimulationToRow(e budget.SimulationEntry) SimulationRow {
	return SimulationRow{
		UsuarioID:     string(e.UserID),
		Ano:           e.Year,
		Mes:           e.Month,
		CategoriaNome: e.CategoryName,
		CategoriaTipo: e.Kind.RowName(),
		ValorPrevisto: e.Planned.Value,
	}
}

package factory_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/factory"
)

func newFactory() *factory.RowFactory {
	n := 0
	return &factory.RowFactory{NewID: func() string {
		n++
		return "generated-" + string(rune('0'+n))
	}}
}

func TestParseTransactionRow_Expense(t *testing.T) {
	// GIVEN: A datastore row with a positive amount and three installments
	// WHEN: Parsing
	// THEN: The expense is negative and every field is mapped
	row := `{
		"id": "tx-1", "data": "2025-03-26", "categoria": " Casa ",
		"valor": 150.5, "parcelas": 3, "quem_gastou": "Ana",
		"descricao": "Sofá", "tipo": "despesa", "ganhos": null,
		"usuario_id": "user-1"
	}`

	tx, err := newFactory().ParseTransactionRow([]byte(row))
	require.NoError(t, err)

	assert.Equal(t, budget.TransactionID("tx-1"), tx.ID)
	assert.Equal(t, budget.UserID("user-1"), tx.UserID)
	assert.Equal(t, "2025-03-26", tx.Date.String())
	assert.Equal(t, "Casa", tx.Category)
	assert.True(t, tx.Amount.Equal(budget.NewAmount(-150.5)))
	assert.Equal(t, 3, tx.Installments)
	assert.Equal(t, "Ana", tx.SpentBy)
	assert.Equal(t, "Sofá", tx.Description)
	assert.Equal(t, budget.KindExpense, tx.Kind())
	assert.Nil(t, tx.Gain())
}

func TestParseTransactionRow_InvestmentWithGain(t *testing.T) {
	row := `{"data": "2025-03-26", "categoria": "Renda Fixa", "valor": "1000.00",
		"tipo": "investimento", "ganhos": "-12.30"}`

	tx, err := newFactory().ParseTransactionRow([]byte(row))
	require.NoError(t, err)

	assert.Equal(t, budget.TransactionID("generated-1"), tx.ID)
	assert.Equal(t, 1, tx.Installments)
	require.NotNil(t, tx.Gain())
	assert.True(t, tx.Gain().Equal(budget.NewAmount(-12.3)))
}

func TestParseTransactionRow_BadDateIsKept(t *testing.T) {
	row := `{"id": "x", "data": "26/03/2025", "categoria": "Casa", "valor": -1, "tipo": "despesa"}`

	tx, err := newFactory().ParseTransactionRow([]byte(row))
	require.NoError(t, err)
	assert.False(t, tx.HasValidDate())
	assert.Equal(t, "26/03/2025", tx.RawDate)
}

func TestParseTransactionRow_TrailingTextIsNotADate(t *testing.T) {
	row := `{"id": "x", "data": "2025-03-20garbage", "categoria": "Casa", "valor": -1, "tipo": "despesa"}`

	tx, err := newFactory().ParseTransactionRow([]byte(row))
	require.NoError(t, err)
	assert.False(t, tx.HasValidDate())
	assert.Equal(t, "2025-03-20garbage", tx.RawDate)
}

func TestParseTransactionRow_Rejections(t *testing.T) {
	f := newFactory()
	cases := map[string]error{
		`{"data": "2025-03-26", "categoria": "Casa", "valor": 1, "tipo": "transfer"}`:                 budget.ErrInvalidKind,
		`{"data": "2025-03-26", "categoria": "", "valor": 1, "tipo": "despesa"}`:                      budget.ErrEmptyCategory,
		`{"data": "2025-03-26", "categoria": "Casa", "valor": 1, "tipo": "despesa", "parcelas": -1}`:  budget.ErrInvalidInstallments,
		`{"data": "2025-03-26", "categoria": "Casa", "valor": 1, "tipo": "receita", "ganhos": 5}`:     budget.ErrGainOnNonInvestment,
	}
	for row, want := range cases {
		_, err := f.ParseTransactionRow([]byte(row))
		assert.ErrorIs(t, err, want, row)
		assert.True(t, budget.IsClientError(err), row)
	}
}

func TestTransactionToRow_RoundTripsThroughJSON(t *testing.T) {
	f := newFactory()
	gain := budget.NewAmount(7.5)
	tx := budget.Transaction{
		ID: "tx", UserID: "user-1", Date: budget.MustParseDate("2025-03-26"), RawDate: "2025-03-26",
		Category: "Ações", Amount: budget.NewAmount(200), Installments: 1,
		Description: "PETR4", Variant: budget.Investment{Gain: &gain},
	}

	data, err := json.Marshal(f.TransactionToRow(tx))
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	assert.Equal(t, "investimento", generic["tipo"])
	assert.Equal(t, "2025-03-26", generic["data"])
	assert.Equal(t, "PETR4", generic["descricao"])

	back, err := f.ParseTransactionRow(data)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, back.ID)
	assert.True(t, back.Amount.Equal(tx.Amount))
	require.NotNil(t, back.Gain())
	assert.True(t, back.Gain().Equal(gain))
}

func TestTransactionToRow_NullableFields(t *testing.T) {
	row := newFactory().TransactionToRow(budget.Transaction{ID: "tx", Category: "Casa", Variant: budget.Expense{}})
	data, err := json.Marshal(row)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	assert.Nil(t, generic["descricao"])
	assert.Nil(t, generic["ganhos"])
	assert.Equal(t, "despesa", generic["tipo"])
}

func TestParseTransactionRows_PartialSuccess(t *testing.T) {
	body := `[
		{"id": "ok-1", "data": "2025-03-26", "categoria": "Casa", "valor": -10, "tipo": "despesa"},
		{"id": "bad-kind", "data": "2025-03-26", "categoria": "Casa", "valor": -10, "tipo": "??"},
		"not an object",
		{"id": "other-user", "data": "2025-03-26", "categoria": "Casa", "valor": -10, "tipo": "despesa", "usuario_id": "bob"},
		{"id": "ok-2", "data": "2025-03-27", "categoria": "Salário", "valor": 5000, "tipo": "receita", "usuario_id": "alice"}
	]`

	txs, rowErrs, err := newFactory().ParseTransactionRows([]byte(body), "alice")
	require.NoError(t, err)

	require.Len(t, txs, 2)
	assert.Equal(t, budget.TransactionID("ok-1"), txs[0].ID)
	assert.Equal(t, budget.UserID("alice"), txs[0].UserID)
	assert.Equal(t, budget.TransactionID("ok-2"), txs[1].ID)

	require.Len(t, rowErrs, 3)
	assert.Equal(t, 1, rowErrs[0].Index)
	assert.ErrorIs(t, rowErrs[0], budget.ErrInvalidKind)
	assert.Equal(t, 2, rowErrs[1].Index)
	assert.Equal(t, "other-user", rowErrs[2].ID)
}

func TestParseTransactionRows_NotAnArray(t *testing.T) {
	_, _, err := newFactory().ParseTransactionRows([]byte(`{"id": "x"}`), "alice")
	assert.Error(t, err)
}

func TestOverrideAndSimulationRows(t *testing.T) {
	f := newFactory()

	o, err := f.OverrideFromRow(factory.OverrideRow{UsuarioID: "alice", CategoriaNome: "Casa", CategoriaTipo: "despesa"})
	require.NoError(t, err)
	assert.Equal(t, "generated-1", o.ID)
	assert.Equal(t, budget.KindExpense, o.Kind)
	assert.Equal(t, "despesa", f.OverrideToRow(o).CategoriaTipo)

	_, err = f.OverrideFromRow(factory.OverrideRow{UsuarioID: "alice", CategoriaTipo: "despesa"})
	assert.ErrorIs(t, err, budget.ErrEmptyCategory)

	e, err := f.SimulationFromRow(factory.SimulationRow{UsuarioID: "alice", Ano: 2025, Mes: 3, CategoriaNome: "Casa", CategoriaTipo: "despesa"})
	require.NoError(t, err)
	assert.Equal(t, 3, e.Month)
	assert.Equal(t, 2025, f.SimulationToRow(e).Ano)

	_, err = f.SimulationFromRow(factory.SimulationRow{Ano: 2025, Mes: 13, CategoriaNome: "Casa", CategoriaTipo: "despesa"})
	assert.ErrorIs(t, err, budget.ErrInvalidMonth)
}

func TestDefaultCategories(t *testing.T) {
	cats := factory.DefaultCategories()
	require.NotEmpty(t, cats)

	seen := map[string]bool{}
	kinds := map[budget.Kind]bool{}
	for _, c := range cats {
		key := string(c.Kind) + "/" + c.Name
		assert.False(t, seen[key], "duplicate %s", key)
		seen[key] = true
		kinds[c.Kind] = true
	}
	assert.Len(t, kinds, 3)
	assert.True(t, seen["expense/Casa"])
}

func TestParseCategories_RejectsUnknownKind(t *testing.T) {
	_, err := factory.ParseCategories([]byte(`[{"nome": "X", "tipo": "outro", "orcamento": 1}]`))
	assert.ErrorIs(t, err, budget.ErrInvalidKind)
}

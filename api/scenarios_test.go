package api

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/budget"
)

func TestLoadScenarios_ParsesEmbeddedFiles(t *testing.T) {
	all, err := LoadScenarios()
	require.NoError(t, err)
	require.Len(t, all, 3)

	ids := make([]string, len(all))
	for i, s := range all {
		ids[i] = s.ID
		assert.NotEmpty(t, s.Name, s.ID)
		assert.NotEmpty(t, s.Transactions, s.ID)
	}
	assert.Equal(t, []string{"annual-plan", "household-month", "installments"}, ids)
}

func TestScenarios_EveryScenarioLoads(t *testing.T) {
	all, err := LoadScenarios()
	require.NoError(t, err)

	for _, s := range all {
		t.Run(s.ID, func(t *testing.T) {
			_, router := newTestServer(t)

			rec := do(t, router, http.MethodPost, "/api/scenarios/load", `{"scenario_id":"`+s.ID+`"}`)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			rec = do(t, router, http.MethodGet, "/api/scenarios/current", "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, s.ID, decode[ScenarioDTO](t, rec).ID)

			rec = do(t, router, http.MethodGet, "/api/users/"+s.User+"/transactions", "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Len(t, decode[struct {
				Transactions []TransactionDTO `json:"transactions"`
			}](t, rec).Transactions, len(s.Transactions))
		})
	}
}

func TestScenarios_ListAndUnknown(t *testing.T) {
	_, router := newTestServer(t)

	rec := do(t, router, http.MethodGet, "/api/scenarios", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ScenarioDTO](t, rec), 3)

	rec = do(t, router, http.MethodGet, "/api/scenarios/current", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodPost, "/api/scenarios/load", `{"scenario_id":"nope"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, "/api/scenarios/load", `{`).Code)
}

func TestHouseholdScenario_Snapshot(t *testing.T) {
	h, router := newTestServer(t)
	require.NoError(t, h.LoadScenarioByID(context.Background(), "household-month"))

	rec := do(t, router, http.MethodGet, "/api/users/demo/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap := decode[SnapshotDTO](t, rec)

	assert.Equal(t, "2025-03", snap.Cycle.Key)
	assert.Len(t, snap.Entries, 7, "the row with an invalid date belongs to no cycle")
	assert.Equal(t, "6500.00", snap.Summary.Income)
	assert.Equal(t, "8.45", snap.Summary.Gain)

	lazer, ok := findCategory(snap.Summary, "Lazer", "expense")
	require.True(t, ok)
	assert.Equal(t, "400.00", lazer.Spent)
	assert.Equal(t, "300.00", lazer.Budget)
	assert.Equal(t, "over", lazer.Status)

	mercado, ok := findCategory(snap.Summary, "Mercado", "expense")
	require.True(t, ok)
	assert.Equal(t, "510.47", mercado.Spent, "category names match case-insensitively")

	rec = do(t, router, http.MethodGet, "/api/users/demo/transactions/demo-typo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[TransactionDTO](t, rec).ValidDate)
}

func TestInstallmentsScenario_ProjectsIntoCurrentCycle(t *testing.T) {
	h, router := newTestServer(t)
	require.NoError(t, h.LoadScenarioByID(context.Background(), "installments"))

	rec := do(t, router, http.MethodGet, "/api/users/demo/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[SnapshotDTO](t, rec)

	parents := map[string]bool{}
	for _, e := range snap.Entries {
		if e.Projected {
			parents[e.ParentID] = true
		}
	}
	assert.True(t, parents["inst-tv"])
	assert.True(t, parents["inst-phone"])
	assert.False(t, parents["inst-course"], "the course starts in this cycle so it is stored, not projected")
}

func TestResetDatabase(t *testing.T) {
	h, router := newTestServer(t)
	require.NoError(t, h.LoadScenarioByID(context.Background(), "household-month"))

	rec := do(t, router, http.MethodPost, "/api/scenarios/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)

	txs, err := h.Store.ListTransactions(context.Background(), budget.UserID("demo"))
	require.NoError(t, err)
	assert.Empty(t, txs)

	rec = do(t, router, http.MethodGet, "/api/users/demo/transactions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[struct {
		Transactions []TransactionDTO `json:"transactions"`
	}](t, rec).Transactions)

	rec = do(t, router, http.MethodGet, "/api/users/demo/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decode[struct {
		Categories []CategoryDTO `json:"categories"`
	}](t, rec).Categories
	assert.Len(t, cats, 19, "the default catalog is seeded again")
	for _, c := range cats {
		if c.Name == "Lazer" {
			assert.Equal(t, "400.00", c.Budget, "overrides are gone")
		}
	}

	rec = do(t, router, http.MethodGet, "/api/scenarios/current", "")
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}

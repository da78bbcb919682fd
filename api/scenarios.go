/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Provides pre-built scenarios that populate the database with realistic
  data for demos. Each scenario is a YAML file embedded from scenarios/.

AVAILABLE SCENARIOS:
  household-month: One cycle of income and spending, budgets near and over the limit
  installments:    Purchases split into installments, projected forward
  annual-plan:     A yearly plan compared with the actual cycles

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Seed the default category catalog
 3. Save budget overrides
 4. Convert transactions through the row factory and save them
 5. Save the simulation and report subscriptions

DATES:
  A transaction either carries a literal date (kept as typed, even when
  invalid) or offset_days, counted from the start of the cycle containing
  "today". Offsets 0..27 always land in the current cycle. A simulation
  entry without a year uses the current year.

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "installments"}

ADDING NEW SCENARIOS:
  Drop a YAML file into scenarios/. Nothing else to register.

NOTE:
  Scenarios reset the database. Only use in development/demo environments.
*/
package api

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/factory"
	"github.com/warp/budget-engine/report"
)

//go:embed scenarios/*.yaml
var scenarioFS embed.FS

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type Scenario struct {
	ID            string                `yaml:"id"`
	Name          string                `yaml:"name"`
	Description   string                `yaml:"description"`
	User          string                `yaml:"user"`
	Budgets       []scenarioBudget      `yaml:"budgets"`
	Transactions  []scenarioTransaction `yaml:"transactions"`
	Simulation    []scenarioPlan        `yaml:"simulation"`
	Subscriptions []string              `yaml:"subscriptions"`
}

type scenarioBudget struct {
	Category string `yaml:"category"`
	Kind     string `yaml:"kind"`
	Budget   string `yaml:"budget"`
}

type scenarioTransaction struct {
	ID           string `yaml:"id"`
	Date         string `yaml:"date"`
	OffsetDays   *int   `yaml:"offset_days"`
	Category     string `yaml:"category"`
	Kind         string `yaml:"kind"`
	Amount       string `yaml:"amount"`
	Installments int    `yaml:"installments"`
	SpentBy      string `yaml:"spent_by"`
	Description  string `yaml:"description"`
	Gain         string `yaml:"gain"`
}

type scenarioPlan struct {
	Year     int    `yaml:"year"`
	Month    int    `yaml:"month"`
	Category string `yaml:"category"`
	Kind     string `yaml:"kind"`
	Planned  string `yaml:"planned"`
}

// LoadScenarios parses every embedded scenario, sorted by id.
func LoadScenarios() ([]Scenario, error) {
	files, err := fs.Glob(scenarioFS, "scenarios/*.yaml")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	out := make([]Scenario, 0, len(files))
	for _, name := range files {
		data, err := scenarioFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		var s Scenario
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", name, err)
		}
		if s.ID == "" || s.User == "" {
			return nil, fmt.Errorf("scenario %s: id and user are required", name)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("scenario %s: duplicate id %s", name, s.ID)
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func findScenario(id string) (Scenario, error) {
	all, err := LoadScenarios()
	if err != nil {
		return Scenario{}, err
	}
	for _, s := range all {
		if s.ID == id {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("unknown scenario %q", id)
}

func toScenarioDTO(s Scenario) ScenarioDTO {
	return ScenarioDTO{ID: s.ID, Name: s.Name, Description: s.Description, UserID: s.User}
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	all, err := LoadScenarios()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenarios", err)
		return
	}
	dtos := make([]ScenarioDTO, len(all))
	for i, s := range all {
		dtos[i] = toScenarioDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	s, err := findScenario(current)
	if err != nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, toScenarioDTO(s))
}

// LoadScenario resets the database and loads a scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	s, err := findScenario(req.ScenarioID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Scenario not found", err)
		return
	}
	if err := h.loadScenario(r.Context(), s); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "loaded",
		"scenario": toScenarioDTO(s),
	})
}

// ResetDatabase clears all data and reseeds the default catalog.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"status": "reset"})
}

// LoadScenarioByID loads a scenario at startup (--load-scenario).
func (h *Handler) LoadScenarioByID(ctx context.Context, id string) error {
	s, err := findScenario(id)
	if err != nil {
		return err
	}
	return h.loadScenario(ctx, s)
}

// =============================================================================
// LOADING
// =============================================================================

func (h *Handler) reset(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	h.Feed.ForgetAll()
	_, err := factory.SeedDefaultCategories(ctx, h.Store)
	return err
}

func (h *Handler) loadScenario(ctx context.Context, s Scenario) error {
	if err := h.reset(ctx); err != nil {
		return err
	}

	user := budget.UserID(s.User)
	today := h.today()
	cycleStart := h.Cycle.CycleFor(today).Start

	for i, b := range s.Budgets {
		amount, err := budget.ParseAmount(b.Budget)
		if err != nil {
			return fmt.Errorf("budget %d: %w", i, err)
		}
		override, err := h.Rows.OverrideFromRow(factory.OverrideRow{
			UsuarioID:     s.User,
			CategoriaNome: b.Category,
			CategoriaTipo: b.Kind,
			Orcamento:     amount.Value,
		})
		if err != nil {
			return fmt.Errorf("budget %d: %w", i, err)
		}
		if err := h.Store.SaveOverride(ctx, override); err != nil {
			return err
		}
	}

	txs := make([]budget.Transaction, 0, len(s.Transactions))
	for i, st := range s.Transactions {
		row, err := st.row(s.User, cycleStart)
		if err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
		tx, err := h.Rows.TransactionFromRow(row)
		if err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
		txs = append(txs, tx)
	}
	if err := h.Store.SaveTransactions(ctx, txs); err != nil {
		return err
	}

	byYear := make(map[int][]budget.SimulationEntry)
	for i, p := range s.Simulation {
		planned, err := budget.ParseAmount(p.Planned)
		if err != nil {
			return fmt.Errorf("simulation %d: %w", i, err)
		}
		year := p.Year
		if year == 0 {
			year = today.Year()
		}
		entry, err := h.Rows.SimulationFromRow(factory.SimulationRow{
			UsuarioID:     s.User,
			Ano:           year,
			Mes:           p.Month,
			CategoriaNome: p.Category,
			CategoriaTipo: p.Kind,
			ValorPrevisto: planned.Value,
		})
		if err != nil {
			return fmt.Errorf("simulation %d: %w", i, err)
		}
		byYear[year] = append(byYear[year], entry)
	}
	for year, entries := range byYear {
		if err := h.Store.SaveSimulation(ctx, user, year, entries); err != nil {
			return err
		}
	}

	for _, email := range s.Subscriptions {
		if _, err := h.Store.SaveSubscription(ctx, report.Subscription{UserID: user, Email: email, Active: true}); err != nil {
			return err
		}
	}

	h.dataChanged(user)
	h.mu.Lock()
	h.currentScenario = s.ID
	h.mu.Unlock()

	h.Log.WithFields(logrus.Fields{
		"scenario":     s.ID,
		"user_id":      user,
		"transactions": len(txs),
	}).Info("scenario loaded")
	return nil
}

// row builds the datastore row of a scenario transaction.
func (st scenarioTransaction) row(user string, cycleStart budget.TimePoint) (factory.TransactionRow, error) {
	amount, err := budget.ParseAmount(st.Amount)
	if err != nil {
		return factory.TransactionRow{}, fmt.Errorf("amount %q: %w", st.Amount, err)
	}

	row := factory.TransactionRow{
		ID:         st.ID,
		Data:       st.Date,
		Categoria:  st.Category,
		Valor:      amount.Value,
		Parcelas:   st.Installments,
		QuemGastou: st.SpentBy,
		Tipo:       st.Kind,
		UsuarioID:  user,
	}
	if st.OffsetDays != nil {
		row.Data = cycleStart.AddDays(*st.OffsetDays).String()
	}
	if st.Description != "" {
		desc := st.Description
		row.Descricao = &desc
	}
	if strings.TrimSpace(st.Gain) != "" {
		gain, err := budget.ParseAmount(st.Gain)
		if err != nil {
			return factory.TransactionRow{}, fmt.Errorf("gain %q: %w", st.Gain, err)
		}
		row.Ganhos.Decimal = gain.Value
		row.Ganhos.Valid = true
	}
	return row, nil
}

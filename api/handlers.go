/*
handlers.go - HTTP API handlers for the budget service

PURPOSE:
  Exposes the financial-cycle engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the budget
  package for every computation.

ENDPOINTS:
  Cycles:
    GET    /api/cycles?ref=&before=&after=      Cycles around a date
    GET    /api/cycles/containing?date=          Cycle of one date

  Transactions (per user):
    GET    /api/users/{userID}/transactions                 List stored
    POST   /api/users/{userID}/transactions                 Create
    POST   /api/users/{userID}/transactions/import          Bulk import of datastore rows
    GET    /api/users/{userID}/transactions/{id}            Get
    PUT    /api/users/{userID}/transactions/{id}            Replace
    DELETE /api/users/{userID}/transactions/{id}            Delete
    GET    /api/users/{userID}/transactions/{id}/installments  All occurrences

  Cycle views (per user):
    GET    /api/users/{userID}/cycles            Cycles covering the user's data
    GET    /api/users/{userID}/snapshot?date=    Snapshot of one cycle

  Budgets, plans, reports (per user):
    GET    /api/users/{userID}/categories
    PUT    /api/users/{userID}/categories/{kind}/{name}/budget
    DELETE /api/users/{userID}/categories/{kind}/{name}/budget
    GET    /api/users/{userID}/simulation/{year}
    PUT    /api/users/{userID}/simulation/{year}
    GET    /api/users/{userID}/simulation/{year}/comparison
    GET    /api/users/{userID}/report?date=&locale=
    GET    /api/users/{userID}/report/subscriptions
    POST   /api/users/{userID}/report/subscriptions

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: SQLite persistence
  - Feed: Cached transaction lists (refresh gate + debounced change signal)
  - Reports: Snapshot and report builder reading through the Feed
  - Rows: Datastore row conversion for import and simulation

WRITES:
  Every transaction write drops this instance's cached list and raises a
  debounced change signal so other readers reload within their gate.

ERROR HANDLING:
  Errors are returned as JSON {error, details} with:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/factory"
	"github.com/warp/budget-engine/feed"
	"github.com/warp/budget-engine/report"
	"github.com/warp/budget-engine/store/sqlite"
)

const (
	maxBodyBytes   = 1 << 20
	maxImportBytes = 8 << 20
	maxWindow      = 60
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Feed    *feed.TransactionFeed
	Reports *report.Builder
	Rows    *factory.RowFactory
	Cycle   budget.CycleConfig
	Log     logrus.FieldLogger
	Now     func() time.Time

	// Dispatcher is optional; without it POST /api/reports/dispatch
	// answers 503.
	Dispatcher *report.Dispatcher

	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a handler reading transactions through fd.
func NewHandler(store *sqlite.Store, fd *feed.TransactionFeed, cycle budget.CycleConfig, opts report.Options, log logrus.FieldLogger) *Handler {
	log = log.WithField("component", "api")
	return &Handler{
		Store: store,
		Feed:  fd,
		Reports: &report.Builder{
			Transactions: fd,
			Categories:   store,
			Cycle:        cycle,
			Options:      opts,
			Log:          log,
		},
		Rows:  factory.NewRowFactory(),
		Cycle: cycle,
		Log:   log,
		Now:   time.Now,
	}
}

// Health reports liveness and database reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// =============================================================================
// CYCLE CALENDAR
// =============================================================================

// ListCycles returns the cycles from ref-before months to ref+after months.
// GET /api/cycles?ref=2025-03-26&before=3&after=3
func (h *Handler) ListCycles(w http.ResponseWriter, r *http.Request) {
	ref, err := h.dateParam(r, "ref")
	if err != nil {
		writeDomainError(w, "Invalid ref date", err)
		return
	}
	before, err := intParam(r, "before", 3, 0, maxWindow)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid before", err)
		return
	}
	after, err := intParam(r, "after", 3, 0, maxWindow)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid after", err)
		return
	}

	cycles := h.Cycle.EnumerateWindow(ref, before, after)
	writeJSON(w, http.StatusOK, map[string]any{
		"current": toCycleDTO(h.Cycle.CycleFor(ref)),
		"cycles":  toCycleDTOs(cycles),
	})
}

// CycleContaining returns the cycle of one date.
// GET /api/cycles/containing?date=2025-03-26
func (h *Handler) CycleContaining(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("date") == "" {
		writeError(w, http.StatusBadRequest, "date is required", nil)
		return
	}
	date, err := h.dateParam(r, "date")
	if err != nil {
		writeDomainError(w, "Invalid date", err)
		return
	}
	writeJSON(w, http.StatusOK, toCycleDTO(h.Cycle.CycleFor(date)))
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// ListTransactions returns the user's stored transactions.
// GET /api/users/{userID}/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	user := userParam(r)
	txs, err := h.Feed.Transactions(r.Context(), user)
	if err != nil {
		writeDomainError(w, "Failed to list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": toTransactionDTOs(txs)})
}

// CreateTransaction stores a new transaction.
// POST /api/users/{userID}/transactions
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	user := userParam(r)

	var req TransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tx, err := transactionFromRequest(budget.TransactionID(h.Rows.NewID()), user, req)
	if err != nil {
		writeDomainError(w, "Invalid transaction", err)
		return
	}
	if err := h.Store.SaveTransaction(r.Context(), tx); err != nil {
		writeDomainError(w, "Failed to save transaction", err)
		return
	}
	h.dataChanged(user)

	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// GetTransaction returns one stored transaction.
// GET /api/users/{userID}/transactions/{id}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Store.GetTransaction(r.Context(), userParam(r), budget.TransactionID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

// UpdateTransaction replaces an existing transaction. Its projections
// follow automatically since they are never stored.
// PUT /api/users/{userID}/transactions/{id}
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userParam(r)
	id := budget.TransactionID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetTransaction(ctx, user, id); err != nil {
		writeDomainError(w, "Failed to get transaction", err)
		return
	}

	var req TransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	tx, err := transactionFromRequest(id, user, req)
	if err != nil {
		writeDomainError(w, "Invalid transaction", err)
		return
	}
	if err := h.Store.SaveTransaction(ctx, tx); err != nil {
		writeDomainError(w, "Failed to save transaction", err)
		return
	}
	h.dataChanged(user)

	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

// DeleteTransaction removes a stored transaction.
// DELETE /api/users/{userID}/transactions/{id}
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	user := userParam(r)
	id := budget.TransactionID(chi.URLParam(r, "id"))

	if budget.IsProjectionID(id) {
		writeError(w, http.StatusBadRequest, "Projected installments cannot be deleted; delete the original transaction", nil)
		return
	}
	if err := h.Store.DeleteTransaction(r.Context(), user, id); err != nil {
		writeDomainError(w, "Failed to delete transaction", err)
		return
	}
	h.dataChanged(user)

	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "id": id})
}

// ImportTransactions stores a JSON array of datastore rows. Bad rows are
// reported and skipped; good rows are saved in one batch.
// POST /api/users/{userID}/transactions/import
func (h *Handler) ImportTransactions(w http.ResponseWriter, r *http.Request) {
	user := userParam(r)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}
	txs, rowErrs, err := h.Rows.ParseTransactionRows(body, user)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Body must be a JSON array of transaction rows", err)
		return
	}

	if len(txs) > 0 {
		if err := h.Store.SaveTransactions(r.Context(), txs); err != nil {
			writeDomainError(w, "Failed to import transactions", err)
			return
		}
		h.dataChanged(user)
	}

	result := ImportResultDTO{Imported: len(txs), Rejected: len(rowErrs), Errors: make([]RowErrorDTO, 0, len(rowErrs))}
	for _, re := range rowErrs {
		result.Errors = append(result.Errors, RowErrorDTO{Index: re.Index, ID: re.ID, Error: re.Err.Error()})
	}
	h.Log.WithFields(logrus.Fields{"user_id": user, "imported": result.Imported, "rejected": result.Rejected}).Info("transactions imported")

	writeJSON(w, http.StatusOK, result)
}

// GetInstallments returns every occurrence of a stored transaction:
// occurrence 1 (the stored record) followed by its projections.
// GET /api/users/{userID}/transactions/{id}/installments
func (h *Handler) GetInstallments(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Store.GetTransaction(r.Context(), userParam(r), budget.TransactionID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get transaction", err)
		return
	}

	entries := []budget.Entry{{Transaction: tx, Index: 1, Total: tx.Installments}}
	for _, p := range budget.ProjectInstallments(tx) {
		entries = append(entries, budget.Entry{
			Transaction: p.Transaction,
			Projected:   true,
			ParentID:    p.ParentID,
			Index:       p.Index,
			Total:       p.Total,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_cost":   budget.TotalCost(tx).String(),
		"installments": toEntryDTOs(entries),
	})
}

// =============================================================================
// CYCLE VIEWS
// =============================================================================

// ListUserCycles returns the cycles covering the user's transactions,
// padded by ?pad= months on each side (budget.DefaultPadMonths by default).
// GET /api/users/{userID}/cycles
func (h *Handler) ListUserCycles(w http.ResponseWriter, r *http.Request) {
	pad, err := intParam(r, "pad", budget.DefaultPadMonths, 0, maxWindow)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pad", err)
		return
	}
	txs, err := h.Feed.Transactions(r.Context(), userParam(r))
	if err != nil {
		writeDomainError(w, "Failed to list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cycles": toCycleDTOs(h.Cycle.EnumerateForTransactions(txs, pad))})
}

// GetSnapshot returns the snapshot of the cycle containing ?date= (today
// by default).
// GET /api/users/{userID}/snapshot
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	ref, err := h.dateParam(r, "date")
	if err != nil {
		writeDomainError(w, "Invalid date", err)
		return
	}
	snap, err := h.Reports.Snapshot(r.Context(), userParam(r), ref)
	if err != nil {
		writeDomainError(w, "Failed to build snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTO(snap))
}

// =============================================================================
// CATEGORIES AND BUDGETS
// =============================================================================

// ListCategories returns the user's effective categories.
// GET /api/users/{userID}/categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Reports.EffectiveCategories(r.Context(), userParam(r))
	if err != nil {
		writeDomainError(w, "Failed to list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": toCategoryDTOs(cats)})
}

// SetBudget overrides the user's budget for one category.
// PUT /api/users/{userID}/categories/{kind}/{name}/budget
func (h *Handler) SetBudget(w http.ResponseWriter, r *http.Request) {
	user := userParam(r)
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid category name", err)
		return
	}

	var req BudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	override, err := h.Rows.OverrideFromRow(factory.OverrideRow{
		UsuarioID:     string(user),
		CategoriaNome: name,
		CategoriaTipo: chi.URLParam(r, "kind"),
		Orcamento:     req.Budget,
	})
	if err != nil {
		writeDomainError(w, "Invalid budget", err)
		return
	}
	if err := h.Store.SaveOverride(r.Context(), override); err != nil {
		writeDomainError(w, "Failed to save budget", err)
		return
	}

	writeJSON(w, http.StatusOK, CategoryDTO{
		Name:   override.CategoryName,
		Kind:   string(override.Kind),
		Budget: override.Budget.String(),
	})
}

// ResetBudget removes the user's override, restoring the default budget.
// DELETE /api/users/{userID}/categories/{kind}/{name}/budget
func (h *Handler) ResetBudget(w http.ResponseWriter, r *http.Request) {
	kind, err := budget.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeDomainError(w, "Invalid kind", err)
		return
	}
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid category name", err)
		return
	}
	if err := h.Store.DeleteOverride(r.Context(), userParam(r), name, kind); err != nil {
		writeDomainError(w, "Failed to reset budget", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "reset"})
}

// =============================================================================
// ANNUAL SIMULATION
// =============================================================================

// GetSimulation returns the user's plan for a year.
// GET /api/users/{userID}/simulation/{year}
func (h *Handler) GetSimulation(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	entries, err := h.Store.Simulation(r.Context(), userParam(r), year)
	if err != nil {
		writeDomainError(w, "Failed to load simulation", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(budget.BuildPlan(year, entries)))
}

// PutSimulation replaces the user's plan for a year with a JSON array of
// simulation rows. Any invalid row rejects the whole plan.
// PUT /api/users/{userID}/simulation/{year}
func (h *Handler) PutSimulation(w http.ResponseWriter, r *http.Request) {
	user := userParam(r)
	year, err := yearParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	var rows []factory.SimulationRow
	if err := decodeJSON(r, &rows); err != nil {
		writeError(w, http.StatusBadRequest, "Body must be a JSON array of simulation rows", err)
		return
	}

	entries := make([]budget.SimulationEntry, 0, len(rows))
	var errs []error
	for i, row := range rows {
		if row.Ano != 0 && row.Ano != year {
			errs = append(errs, fmt.Errorf("row %d: year %d does not match %d", i, row.Ano, year))
			continue
		}
		row.Ano = year
		row.UsuarioID = string(user)
		entry, err := h.Rows.SimulationFromRow(row)
		if err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", i, err))
			continue
		}
		entries = append(entries, entry)
	}
	if len(errs) > 0 {
		writeError(w, http.StatusBadRequest, "Invalid simulation rows", errors.Join(errs...))
		return
	}

	if err := h.Store.SaveSimulation(r.Context(), user, year, entries); err != nil {
		writeDomainError(w, "Failed to save simulation", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(budget.BuildPlan(year, entries)))
}

// CompareSimulation puts every planned month next to the actuals of the
// cycle starting in that month.
// GET /api/users/{userID}/simulation/{year}/comparison
func (h *Handler) CompareSimulation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userParam(r)
	year, err := yearParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	entries, err := h.Store.Simulation(ctx, user, year)
	if err != nil {
		writeDomainError(w, "Failed to load simulation", err)
		return
	}
	txs, err := h.Feed.Transactions(ctx, user)
	if err != nil {
		writeDomainError(w, "Failed to list transactions", err)
		return
	}
	cats, err := h.Reports.EffectiveCategories(ctx, user)
	if err != nil {
		writeDomainError(w, "Failed to list categories", err)
		return
	}

	cmps := budget.ComparePlan(budget.BuildPlan(year, entries), h.Cycle, txs, cats, h.Log.WithField("user_id", user))
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "months": toComparisonDTOs(cmps)})
}

// =============================================================================
// REPORTS
// =============================================================================

// GetReport renders the cycle report as plain text.
// GET /api/users/{userID}/report?date=&locale=
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	ref, err := h.dateParam(r, "date")
	if err != nil {
		writeDomainError(w, "Invalid date", err)
		return
	}

	builder := h.Reports
	if raw := r.URL.Query().Get("locale"); raw != "" {
		locale, ok := budget.ParseLocale(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "Unsupported locale", fmt.Errorf("%q", raw))
			return
		}
		localized := *h.Reports
		localized.Options.Locale = locale
		localized.Cycle.Locale = locale
		builder = &localized
	}

	text, _, err := builder.Report(r.Context(), userParam(r), ref)
	if err != nil {
		writeDomainError(w, "Failed to build report", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, text)
}

// ListSubscriptions returns the user's report subscriptions.
// GET /api/users/{userID}/report/subscriptions
func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.Store.ListSubscriptions(r.Context(), userParam(r))
	if err != nil {
		writeDomainError(w, "Failed to list subscriptions", err)
		return
	}
	dtos := make([]SubscriptionDTO, len(subs))
	for i, s := range subs {
		dtos[i] = toSubscriptionDTO(s)
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscriptions": dtos})
}

// Subscribe creates or updates a report subscription.
// POST /api/users/{userID}/report/subscriptions
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid email", err)
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	sub, err := h.Store.SaveSubscription(r.Context(), report.Subscription{
		UserID: userParam(r),
		Email:  addr.Address,
		Active: active,
	})
	if err != nil {
		writeDomainError(w, "Failed to save subscription", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubscriptionDTO(sub))
}

// ListRuns returns recent report deliveries.
// GET /api/reports/runs?limit=
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 50, 1, 500)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}
	runs, err := h.Store.ListRuns(r.Context(), limit)
	if err != nil {
		writeDomainError(w, "Failed to list runs", err)
		return
	}
	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// DispatchReports sends the scheduled report now.
// POST /api/reports/dispatch
func (h *Handler) DispatchReports(w http.ResponseWriter, r *http.Request) {
	if h.Dispatcher == nil {
		writeError(w, http.StatusServiceUnavailable, "Report dispatcher is disabled", nil)
		return
	}
	sent, err := h.Dispatcher.RunNow(r.Context())
	resp := map[string]any{"sent": sent}
	if err != nil {
		resp["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func transactionFromRequest(id budget.TransactionID, user budget.UserID, req TransactionRequest) (budget.Transaction, error) {
	kind, err := budget.ParseKind(req.Kind)
	if err != nil {
		return budget.Transaction{}, err
	}
	in := budget.TransactionInput{
		ID:           id,
		UserID:       user,
		Date:         req.Date,
		Category:     req.Category,
		Amount:       budget.AmountOf(req.Amount),
		Installments: req.Installments,
		SpentBy:      req.SpentBy,
		Description:  req.Description,
		Kind:         kind,
	}
	if req.Gain != nil {
		g := budget.AmountOf(*req.Gain)
		in.Gain = &g
	}
	return budget.NewTransaction(in)
}

// dataChanged drops this instance's cache and signals other readers.
func (h *Handler) dataChanged(user budget.UserID) {
	h.Feed.Forget(user)
	h.Feed.Invalidate(user)
}

func (h *Handler) today() budget.TimePoint {
	return budget.FromTime(h.Now())
}

// dateParam parses a YYYY-MM-DD query parameter, defaulting to today.
func (h *Handler) dateParam(r *http.Request, key string) (budget.TimePoint, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return h.today(), nil
	}
	return budget.ParseDate(raw)
}

func userParam(r *http.Request) budget.UserID {
	return budget.UserID(chi.URLParam(r, "userID"))
}

func yearParam(r *http.Request) (int, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		return 0, err
	}
	if year < 1900 || year > 9999 {
		return 0, fmt.Errorf("year %d out of range", year)
	}
	return year, nil
}

func intParam(r *http.Request, key string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < min || n > max {
		return 0, fmt.Errorf("%s must be between %d and %d", key, min, max)
	}
	return n, nil
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case budget.IsClientError(err):
		return http.StatusBadRequest
	case budget.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

package http

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"findash/internal/core"
	"findash/internal/display"
)

// decimalString accepts a monetary amount as either a JSON string ("50.00",
// the documented wire format) or a bare number, tolerated for convenience.
type decimalString string

func (d *decimalString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = decimalString(s)
		return nil
	}
	*d = decimalString(strings.TrimSpace(string(b)))
	return nil
}

type transactionRequest struct {
	Amount          decimalString `json:"amount"`
	Description     string        `json:"description"`
	Category        string        `json:"category"`
	TransactionType string        `json:"transaction_type"`
	Date            string        `json:"date"`
}

type transactionResponse struct {
	ID              int64  `json:"id"`
	Amount          string `json:"amount"`
	AmountDisplay   string `json:"amount_display"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	CategoryLabel   string `json:"category_label"`
	TransactionType string `json:"transaction_type"`
	Date            string `json:"date"`
	DateDisplay     string `json:"date_display"`
	CreatedAt       string `json:"created_at"`
}

func (s *Server) transactionToResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:              tx.ID,
		Amount:          tx.Amount.String(),
		AmountDisplay:   display.FormatCurrency(tx.Amount, s.opts.CurrencySymbol),
		Description:     tx.Description,
		Category:        string(tx.Category),
		CategoryLabel:   display.CategoryLabel(tx.Category),
		TransactionType: string(tx.Type),
		Date:            tx.Date.Format(time.RFC3339),
		DateDisplay:     display.FormatDateShort(tx.Date),
		CreatedAt:       tx.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to Personal Finance Dashboard API",
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	cents, err := core.ParseDecimalToCents(string(req.Amount))
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx := core.Transaction{
		Amount:      core.Money{Cents: cents},
		Description: sanitizeInput(req.Description),
		Category:    core.Category(strings.ToLower(strings.TrimSpace(req.Category))),
		Type:        core.TransactionType(strings.ToLower(strings.TrimSpace(req.TransactionType))),
	}
	if req.Date != "" {
		parsed, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			writeError(w, r, &core.ValidationError{Field: "date", Reason: "must be an RFC 3339 timestamp"})
			return
		}
		tx.Date = parsed
	}

	created, err := s.store.CreateTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateDerived()
	writeJSON(w, http.StatusCreated, s.transactionToResponse(created))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	skip := queryInt(q.Get("skip"), 0)
	limit := queryInt(q.Get("limit"), 100)
	search := strings.TrimSpace(q.Get("search"))
	category := strings.TrimSpace(q.Get("category"))

	txs, err := s.store.ListTransactions(r.Context(), skip, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Filtering and most-recent-first ordering are presentation concerns;
	// the store hands back insertion order.
	filtered := txs[:0:0]
	for _, tx := range txs {
		if display.Matches(tx, search, category) {
			filtered = append(filtered, tx)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Date.After(filtered[j].Date)
	})

	out := make([]transactionResponse, len(filtered))
	for i, tx := range filtered {
		out[i] = s.transactionToResponse(tx)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid transaction id"})
		return
	}

	tx, err := s.store.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.transactionToResponse(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid transaction id"})
		return
	}

	if err := s.store.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateDerived()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Transaction deleted successfully"})
}

func (s *Server) handleUploadCSV(w http.ResponseWriter, r *http.Request) {
	payload, err := s.readUpload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result, err := s.importer.ImportBatch(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if result.SuccessfulImports > 0 {
		s.invalidateDerived()
	}

	writeJSON(w, http.StatusOK, struct {
		Message           string   `json:"message"`
		TotalRows         int      `json:"total_rows"`
		SuccessfulImports int      `json:"successful_imports"`
		Errors            []string `json:"errors"`
	}{
		Message:           "CSV processed successfully",
		TotalRows:         result.TotalRows,
		SuccessfulImports: result.SuccessfulImports,
		Errors:            result.Errors,
	})
}

// readUpload accepts the CSV either as a multipart "file" field or as the
// raw request body, capped at the configured upload size.
func (s *Server) readUpload(r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, s.opts.MaxUploadSizeBytes)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(s.opts.MaxUploadSizeBytes); err != nil {
			return nil, errUploadTooLargeOrMalformed
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, errMissingFileField
		}
		defer func(f multipart.File) { _ = f.Close() }(file)
		return io.ReadAll(file)
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errUploadTooLargeOrMalformed
	}
	return payload, nil
}

// summarySnapshot pairs the totals with the top expense category so a
// single cache entry serves the whole dashboard header.
type summarySnapshot struct {
	Summary    core.Summary
	TopExpense string
}

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.summaryCache.Get("summary")
	if !ok {
		gen := s.derivedGeneration()
		txs, err := s.store.AllTransactions(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		top, _ := core.TopExpenseCategory(txs)
		snap = summarySnapshot{Summary: core.Summarize(txs), TopExpense: top}
		s.storeSummary(gen, snap)
	}
	summary := snap.Summary

	writeJSON(w, http.StatusOK, struct {
		TotalIncome        string            `json:"total_income"`
		TotalExpenses      string            `json:"total_expenses"`
		NetWorth           string            `json:"net_worth"`
		TransactionCount   int               `json:"transaction_count"`
		TopExpenseCategory string            `json:"top_expense_category,omitempty"`
		Display            map[string]string `json:"display"`
	}{
		TotalIncome:        summary.TotalIncome.String(),
		TotalExpenses:      summary.TotalExpenses.String(),
		NetWorth:           summary.NetWorth.String(),
		TransactionCount:   summary.TransactionCount,
		TopExpenseCategory: snap.TopExpense,
		Display: map[string]string{
			"total_income":   display.FormatCurrency(summary.TotalIncome, s.opts.CurrencySymbol),
			"total_expenses": display.FormatCurrency(summary.TotalExpenses, s.opts.CurrencySymbol),
			"net_worth":      display.FormatCurrency(summary.NetWorth, s.opts.CurrencySymbol),
		},
	})
}

type breakdownEntry struct {
	Label         string `json:"label"`
	Amount        string `json:"amount"`
	AmountDisplay string `json:"amount_display"`
}

func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	breakdown, ok := s.breakdownCache.Get("breakdown")
	if !ok {
		gen := s.derivedGeneration()
		txs, err := s.store.AllTransactions(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		breakdown = core.CategoryBreakdown(txs)
		s.storeBreakdown(gen, breakdown)
	}

	// chart-ready: largest slice first, ties alphabetical
	entries := make([]breakdownEntry, 0, len(breakdown))
	for label, amount := range breakdown {
		entries = append(entries, breakdownEntry{
			Label:         label,
			Amount:        amount.String(),
			AmountDisplay: display.FormatCurrency(amount, s.opts.CurrencySymbol),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := breakdown[entries[i].Label].Cents, breakdown[entries[j].Label].Cents
		if a != b {
			return a > b
		}
		return entries[i].Label < entries[j].Label
	})

	writeJSON(w, http.StatusOK, map[string]any{"categories": entries})
}

func (s *Server) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	out := make(map[string][]map[string]string, 3)
	for _, t := range []core.TransactionType{core.TypeIncome, core.TypeExpense, core.TypeTransfer} {
		var group []map[string]string
		for _, c := range core.CategoriesByType(t) {
			group = append(group, map[string]string{
				"name":  string(c),
				"label": display.CategoryLabel(c),
			})
		}
		out[string(t)] = group
	}
	writeJSON(w, http.StatusOK, out)
}

type accountRequest struct {
	Name        string        `json:"name"`
	AccountType string        `json:"account_type"`
	Balance     decimalString `json:"balance"`
}

type accountResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	AccountType    string `json:"account_type"`
	Balance        string `json:"balance"`
	BalanceDisplay string `json:"balance_display"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

func (s *Server) accountToResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:             a.ID,
		Name:           a.Name,
		AccountType:    a.AccountType,
		Balance:        a.Balance.String(),
		BalanceDisplay: display.FormatCurrency(a.Balance, s.opts.CurrencySymbol),
		CreatedAt:      a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      a.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	account := core.Account{
		Name:        sanitizeInput(req.Name),
		AccountType: sanitizeInput(req.AccountType),
	}
	if req.Balance != "" {
		cents, err := core.ParseDecimalToCents(string(req.Balance))
		if err != nil {
			writeError(w, r, &core.ValidationError{Field: "balance", Reason: "invalid amount"})
			return
		}
		account.Balance = core.Money{Cents: cents}
	}

	created, err := s.store.CreateAccount(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.accountToResponse(created))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]accountResponse, len(accounts))
	for i, a := range accounts {
		out[i] = s.accountToResponse(a)
	}
	writeJSON(w, http.StatusOK, out)
}

func queryInt(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

var (
	errUploadTooLargeOrMalformed = &uploadError{"could not read upload (too large or malformed)"}
	errMissingFileField          = &uploadError{"missing 'file' field in multipart form"}
)

type uploadError struct{ msg string }

func (e *uploadError) Error() string { return e.msg }

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"findash/internal/core"
	"findash/internal/ledger/memory"
	"findash/internal/log"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer(":0", memory.New(), Options{RateLimitPerMinute: 10000})
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
	})
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func TestCreateTransaction(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/transactions",
		`{"amount":"50.00","description":"Groceries","category":"food","transaction_type":"expense"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp transactionResponse
	decodeBody(t, rec, &resp)
	if resp.ID != 1 {
		t.Errorf("expected id 1, got %d", resp.ID)
	}
	if resp.Amount != "50.00" {
		t.Errorf("expected amount 50.00, got %q", resp.Amount)
	}
	if resp.CategoryLabel != "Food" {
		t.Errorf("expected label Food, got %q", resp.CategoryLabel)
	}
}

func TestCreateTransactionNumericAmount(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/transactions",
		`{"amount":12.5,"description":"Bus","category":"transport","transaction_type":"expense"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp transactionResponse
	decodeBody(t, rec, &resp)
	if resp.Amount != "12.50" {
		t.Errorf("expected amount 12.50, got %q", resp.Amount)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		body  string
		field string
	}{
		{`{"amount":"-5.00","description":"x","category":"food","transaction_type":"expense"}`, "amount"},
		{`{"amount":"0","description":"x","category":"food","transaction_type":"expense"}`, "amount"},
		{`{"amount":"10.00","description":"","category":"food","transaction_type":"expense"}`, "description"},
		{`{"amount":"10.00","description":"x","category":"nope","transaction_type":"expense"}`, "category"},
		{`{"amount":"10.00","description":"x","category":"food","transaction_type":"income"}`, "transaction_type"},
		{`{"amount":"10.00","description":"x","category":"food","transaction_type":"weird"}`, "transaction_type"},
	}

	for i, tc := range cases {
		rec := doJSON(t, s, http.MethodPost, "/transactions", tc.body)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("case %d: expected 422, got %d: %s", i, rec.Code, rec.Body.String())
		}
		var resp map[string]string
		decodeBody(t, rec, &resp)
		if resp["field"] != tc.field {
			t.Errorf("case %d: expected field %q, got %q", i, tc.field, resp["field"])
		}
	}
}

func TestGetTransaction(t *testing.T) {
	s := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/transactions",
		`{"amount":"10.00","description":"Lunch","category":"food","transaction_type":"expense"}`)

	rec := doJSON(t, s, http.MethodGet, "/transactions/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp transactionResponse
	decodeBody(t, rec, &resp)
	if resp.Description != "Lunch" {
		t.Errorf("expected description Lunch, got %q", resp.Description)
	}

	rec = doJSON(t, s, http.MethodGet, "/transactions/99", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing transaction, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/transactions/abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric id, got %d", rec.Code)
	}
}

func TestDeleteTransaction(t *testing.T) {
	s := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/transactions",
		`{"amount":"10.00","description":"Lunch","category":"food","transaction_type":"expense"}`)

	rec := doJSON(t, s, http.MethodDelete, "/transactions/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodDelete, "/transactions/1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on double delete, got %d", rec.Code)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	s := newTestServer(t)

	bodies := []string{
		`{"amount":"10.00","description":"Grocery run","category":"food","transaction_type":"expense"}`,
		`{"amount":"20.00","description":"Train ticket","category":"transport","transaction_type":"expense"}`,
		`{"amount":"30.00","description":"More groceries","category":"food","transaction_type":"expense"}`,
	}
	for _, b := range bodies {
		if rec := doJSON(t, s, http.MethodPost, "/transactions", b); rec.Code != http.StatusCreated {
			t.Fatalf("seed failed: %d %s", rec.Code, rec.Body.String())
		}
	}

	cases := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?category=food", 2},
		{"?search=grocer", 2},
		{"?search=ticket", 1},
		{"?category=food&search=more", 1},
		{"?limit=2", 2},
		{"?skip=2", 1},
	}
	for i, tc := range cases {
		rec := doJSON(t, s, http.MethodGet, "/transactions"+tc.query, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("case %d: expected 200, got %d", i, rec.Code)
		}
		var resp []transactionResponse
		decodeBody(t, rec, &resp)
		if len(resp) != tc.want {
			t.Errorf("case %d (%q): expected %d transactions, got %d", i, tc.query, tc.want, len(resp))
		}
	}
}

func TestDashboardSummary(t *testing.T) {
	s := newTestServer(t)

	seeds := []string{
		`{"amount":"3000.00","description":"Paycheck","category":"salary","transaction_type":"income"}`,
		`{"amount":"50.00","description":"Groceries","category":"food","transaction_type":"expense"}`,
		`{"amount":"200.00","description":"Savings move","category":"transfer","transaction_type":"transfer"}`,
	}
	for _, b := range seeds {
		if rec := doJSON(t, s, http.MethodPost, "/transactions", b); rec.Code != http.StatusCreated {
			t.Fatalf("seed failed: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/dashboard/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		TotalIncome        string            `json:"total_income"`
		TotalExpenses      string            `json:"total_expenses"`
		NetWorth           string            `json:"net_worth"`
		TransactionCount   int               `json:"transaction_count"`
		TopExpenseCategory string            `json:"top_expense_category"`
		Display            map[string]string `json:"display"`
	}
	decodeBody(t, rec, &resp)

	if resp.TotalIncome != "3000.00" {
		t.Errorf("expected total_income 3000.00, got %q", resp.TotalIncome)
	}
	if resp.TotalExpenses != "50.00" {
		t.Errorf("expected total_expenses 50.00 (transfer excluded), got %q", resp.TotalExpenses)
	}
	if resp.NetWorth != "2950.00" {
		t.Errorf("expected net_worth 2950.00, got %q", resp.NetWorth)
	}
	if resp.TransactionCount != 3 {
		t.Errorf("expected transaction_count 3, got %d", resp.TransactionCount)
	}
	if resp.TopExpenseCategory != "Food" {
		t.Errorf("expected top_expense_category Food, got %q", resp.TopExpenseCategory)
	}
	if resp.Display["net_worth"] != "$2,950.00" {
		t.Errorf("expected display net_worth $2,950.00, got %q", resp.Display["net_worth"])
	}
}

func TestSummaryInvalidatedAfterMutation(t *testing.T) {
	s := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/transactions",
		`{"amount":"100.00","description":"Paycheck","category":"salary","transaction_type":"income"}`)
	doJSON(t, s, http.MethodGet, "/dashboard/summary", "")

	doJSON(t, s, http.MethodPost, "/transactions",
		`{"amount":"40.00","description":"Dinner","category":"food","transaction_type":"expense"}`)

	rec := doJSON(t, s, http.MethodGet, "/dashboard/summary", "")
	var resp struct {
		NetWorth string `json:"net_worth"`
	}
	decodeBody(t, rec, &resp)
	if resp.NetWorth != "60.00" {
		t.Errorf("expected refreshed net_worth 60.00, got %q", resp.NetWorth)
	}
}

func TestStaleSnapshotNotCachedAfterInvalidation(t *testing.T) {
	s := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/transactions",
		`{"amount":"100.00","description":"Paycheck","category":"salary","transaction_type":"income"}`)

	// a recompute observes the generation and reads the store ...
	gen := s.derivedGeneration()
	txs, err := s.store.AllTransactions(context.Background())
	if err != nil {
		t.Fatalf("reading transactions: %v", err)
	}
	top, _ := core.TopExpenseCategory(txs)
	snap := summarySnapshot{Summary: core.Summarize(txs), TopExpense: top}
	breakdown := core.CategoryBreakdown(txs)

	// ... but a mutation lands before it can write the caches
	doJSON(t, s, http.MethodPost, "/transactions",
		`{"amount":"40.00","description":"Dinner","category":"food","transaction_type":"expense"}`)

	s.storeSummary(gen, snap)
	s.storeBreakdown(gen, breakdown)

	if _, ok := s.summaryCache.Get("summary"); ok {
		t.Fatalf("pre-mutation summary snapshot must not be cached")
	}
	if _, ok := s.breakdownCache.Get("breakdown"); ok {
		t.Fatalf("pre-mutation breakdown must not be cached")
	}

	rec := doJSON(t, s, http.MethodGet, "/dashboard/summary", "")
	var resp struct {
		NetWorth         string `json:"net_worth"`
		TransactionCount int    `json:"transaction_count"`
	}
	decodeBody(t, rec, &resp)
	if resp.NetWorth != "60.00" || resp.TransactionCount != 2 {
		t.Fatalf("expected live totals 60.00 / 2, got %q / %d", resp.NetWorth, resp.TransactionCount)
	}
}

func TestSnapshotCachedWhenGenerationUnchanged(t *testing.T) {
	s := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/transactions",
		`{"amount":"100.00","description":"Paycheck","category":"salary","transaction_type":"income"}`)

	gen := s.derivedGeneration()
	s.storeSummary(gen, summarySnapshot{Summary: core.Summary{TransactionCount: 1}})
	if _, ok := s.summaryCache.Get("summary"); !ok {
		t.Fatalf("snapshot with current generation must be cached")
	}
}

func TestCategoryBreakdown(t *testing.T) {
	s := newTestServer(t)

	seeds := []string{
		`{"amount":"50.00","description":"Groceries","category":"food","transaction_type":"expense"}`,
		`{"amount":"10.00","description":"Bus","category":"transport","transaction_type":"expense"}`,
		`{"amount":"25.00","description":"Takeout","category":"food","transaction_type":"expense"}`,
		`{"amount":"1000.00","description":"Paycheck","category":"salary","transaction_type":"income"}`,
	}
	for _, b := range seeds {
		doJSON(t, s, http.MethodPost, "/transactions", b)
	}

	rec := doJSON(t, s, http.MethodGet, "/dashboard/breakdown", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Categories []breakdownEntry `json:"categories"`
	}
	decodeBody(t, rec, &resp)

	if len(resp.Categories) != 2 {
		t.Fatalf("expected 2 categories (income excluded), got %d", len(resp.Categories))
	}
	if resp.Categories[0].Label != "Food" || resp.Categories[0].Amount != "75.00" {
		t.Errorf("expected Food 75.00 first, got %s %s", resp.Categories[0].Label, resp.Categories[0].Amount)
	}
	if resp.Categories[1].Label != "Transport" || resp.Categories[1].Amount != "10.00" {
		t.Errorf("expected Transport 10.00 second, got %s %s", resp.Categories[1].Label, resp.Categories[1].Amount)
	}
}

func TestListCategories(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/categories", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string][]map[string]string
	decodeBody(t, rec, &resp)

	if len(resp["income"]) != 4 {
		t.Errorf("expected 4 income categories, got %d", len(resp["income"]))
	}
	if len(resp["expense"]) != 9 {
		t.Errorf("expected 9 expense categories, got %d", len(resp["expense"]))
	}
	if len(resp["transfer"]) != 1 {
		t.Errorf("expected 1 transfer category, got %d", len(resp["transfer"]))
	}
}

func TestUploadCSV(t *testing.T) {
	s := newTestServer(t)

	csv := "amount,description,category,transaction_type\n" +
		"50.00,Groceries,food,expense\n" +
		"bad,Broken,food,expense\n" +
		"3000.00,Paycheck,salary,income\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "transactions.csv")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := fw.Write([]byte(csv)); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/transactions/upload-csv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		TotalRows         int      `json:"total_rows"`
		SuccessfulImports int      `json:"successful_imports"`
		Errors            []string `json:"errors"`
	}
	decodeBody(t, rec, &resp)

	if resp.TotalRows != 3 || resp.SuccessfulImports != 2 {
		t.Errorf("expected 3 rows / 2 imported, got %d / %d", resp.TotalRows, resp.SuccessfulImports)
	}
	if len(resp.Errors) != 1 || resp.Errors[0] != "row 2: invalid amount" {
		t.Errorf("unexpected errors: %v", resp.Errors)
	}

	list := doJSON(t, s, http.MethodGet, "/transactions", "")
	var txs []transactionResponse
	decodeBody(t, list, &txs)
	if len(txs) != 2 {
		t.Errorf("expected 2 stored transactions, got %d", len(txs))
	}
}

func TestUploadCSVRawBody(t *testing.T) {
	s := newTestServer(t)

	csv := "amount,description,category,transaction_type\n10.00,Bus,transport,expense\n"
	req := httptest.NewRequest(http.MethodPost, "/transactions/upload-csv", strings.NewReader(csv))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUploadCSVMissingColumns(t *testing.T) {
	s := newTestServer(t)

	csv := "amount,description\n10.00,Bus\n"
	req := httptest.NewRequest(http.MethodPost, "/transactions/upload-csv", strings.NewReader(csv))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing columns, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAccounts(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/accounts",
		`{"name":"Checking","account_type":"checking","balance":"1250.00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created accountResponse
	decodeBody(t, rec, &created)
	if created.Balance != "1250.00" {
		t.Errorf("expected balance 1250.00, got %q", created.Balance)
	}

	rec = doJSON(t, s, http.MethodGet, "/accounts", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var accounts []accountResponse
	decodeBody(t, rec, &accounts)
	if len(accounts) != 1 || accounts[0].Name != "Checking" {
		t.Errorf("unexpected accounts list: %+v", accounts)
	}
}

func TestRateLimit(t *testing.T) {
	s := NewServer(":0", memory.New(), Options{RateLimitPerMinute: 2})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	body := `{"amount":"10.00","description":"x","category":"food","transaction_type":"expense"}`
	for i := 0; i < 2; i++ {
		rec := doJSON(t, s, http.MethodPost, "/transactions", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d", i, rec.Code)
		}
	}

	rec := doJSON(t, s, http.MethodPost, "/transactions", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Errorf("expected Retry-After 60, got %q", got)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	for i, path := range []string{"/health", "/healthz", "/readyz"} {
		rec := doJSON(t, s, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("case %d (%s): expected 200, got %d", i, path, rec.Code)
		}
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"203.0.113.7, 10.0.0.1", "", "198.51.100.2:4321", "203.0.113.7"},
		{"203.0.113.7", "", "198.51.100.2:4321", "203.0.113.7"},
		{"not-an-ip", "192.0.2.10", "198.51.100.2:4321", "192.0.2.10"},
		{"", "192.0.2.10", "198.51.100.2:4321", "192.0.2.10"},
		{"", "garbage", "198.51.100.2:4321", "198.51.100.2"},
		{"", "", "198.51.100.2:4321", "198.51.100.2"},
		{"", "", "local", "local"},
	}
	for i, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.remote
		if tc.xff != "" {
			req.Header.Set("X-Forwarded-For", tc.xff)
		}
		if tc.xri != "" {
			req.Header.Set("X-Real-IP", tc.xri)
		}
		if got := clientIP(req); got != tc.want {
			t.Fatalf("case %d expected %q, got %q", i, tc.want, got)
		}
	}
}

func TestRequestLogFields(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	s := newTestServer(t)
	doJSON(t, s, http.MethodGet, "/transactions", "")

	out := buf.String()
	for _, key := range []string{
		log.FieldRequestID, log.FieldMethod, log.FieldPath,
		log.FieldClientIP, log.FieldUserAgent,
		log.FieldStatusCode, log.FieldDuration,
	} {
		if !strings.Contains(out, `"`+key+`"`) {
			t.Fatalf("request log missing field %q in %s", key, out)
		}
	}
}

func TestUnparseableAmountRejected(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/transactions",
		`{"amount":"abc","description":"x","category":"food","transaction_type":"expense"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unparseable amount, got %d: %s", rec.Code, rec.Body.String())
	}
}

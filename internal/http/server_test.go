package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"smartexpense/internal/auth"
	"smartexpense/internal/core"
	"smartexpense/internal/services"
	"smartexpense/internal/storage"
)

const testSecret = "test-session-secret"

type fakeIdentity struct {
	registerErr error
	principal   auth.Principal
	authErr     error
}

func (f *fakeIdentity) Register(ctx context.Context, signup auth.Signup) error {
	return f.registerErr
}

func (f *fakeIdentity) Authenticate(ctx context.Context, username, password string) (auth.Principal, error) {
	return f.principal, f.authErr
}

type fakeBudgets struct {
	dashboard    services.Dashboard
	detail       services.BudgetDetail
	detailErr    error
	history      []storage.BudgetSummary
	addTxErr     error
	addPlanErr   error
	createErr    error
	lastTx       core.Transaction
	createdPlans []core.PlannedExpense
}

func (f *fakeBudgets) CreateBudget(ctx context.Context, b core.Budget, plan []core.PlannedExpense) (int64, error) {
	f.createdPlans = plan
	return 1, f.createErr
}

func (f *fakeBudgets) AddPlannedExpense(ctx context.Context, budgetID int64, p core.PlannedExpense) error {
	return f.addPlanErr
}

func (f *fakeBudgets) AddTransaction(ctx context.Context, userID int64, t core.Transaction) error {
	f.lastTx = t
	return f.addTxErr
}

func (f *fakeBudgets) Dashboard(ctx context.Context, userID int64, now time.Time) (services.Dashboard, error) {
	return f.dashboard, nil
}

func (f *fakeBudgets) History(ctx context.Context, userID int64) ([]storage.BudgetSummary, error) {
	return f.history, nil
}

func (f *fakeBudgets) BudgetDetail(ctx context.Context, userID, budgetID int64) (services.BudgetDetail, error) {
	return f.detail, f.detailErr
}

func newTestServer(identity *fakeIdentity, budgets *fakeBudgets) *Server {
	return NewServer(":0", testSecret, identity, budgets)
}

// do runs one request against the server, carrying over any session cookies.
func do(t *testing.T, srv *Server, method, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func signedInCookies(t *testing.T, srv *Server) []*http.Cookie {
	t.Helper()
	rr := do(t, srv, http.MethodPost, "/login", url.Values{
		"username": {"ada"},
		"password": {"secret1"},
	}, nil)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("login status = %d", rr.Code)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("login set no session cookie")
	}
	return cookies
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(&fakeIdentity{}, &fakeBudgets{})

	rr := do(t, srv, http.MethodGet, "/", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "SmartExpense") {
		t.Error("index body missing heading")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, nil, nil)
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rr.Code)
		}
	}
}

func TestUnknownPathIs404(t *testing.T) {
	srv := newTestServer(&fakeIdentity{}, &fakeBudgets{})
	rr := do(t, srv, http.MethodGet, "/no/such/page", nil, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestGatedRoutesRedirectToLogin(t *testing.T) {
	srv := newTestServer(&fakeIdentity{}, &fakeBudgets{})

	for _, path := range []string{"/dashboard", "/create_budget", "/history", "/history/1", "/logout"} {
		rr := do(t, srv, http.MethodGet, path, nil, nil)
		if rr.Code != http.StatusSeeOther {
			t.Errorf("%s status = %d, want 303", path, rr.Code)
			continue
		}
		if loc := rr.Header().Get("Location"); loc != "/login" {
			t.Errorf("%s redirected to %q", path, loc)
		}
	}
}

func TestSignupRejectionFlashesAndRedirects(t *testing.T) {
	identity := &fakeIdentity{registerErr: auth.ErrPasswordMismatch}
	srv := newTestServer(identity, &fakeBudgets{})

	rr := do(t, srv, http.MethodPost, "/signup", url.Values{
		"username":         {"ada"},
		"email":            {"ada@example.com"},
		"password":         {"secret1"},
		"confirm_password": {"secret2"},
	}, nil)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/signup" {
		t.Fatalf("redirected to %q, want /signup", loc)
	}

	// The flash must show up on the next signup page view.
	rr2 := do(t, srv, http.MethodGet, "/signup", nil, rr.Result().Cookies())
	if !strings.Contains(rr2.Body.String(), "Passwords do not match") {
		t.Error("signup page missing rejection flash")
	}
}

func TestSignupSuccessRedirectsToLogin(t *testing.T) {
	srv := newTestServer(&fakeIdentity{}, &fakeBudgets{})

	rr := do(t, srv, http.MethodPost, "/signup", url.Values{
		"username":         {"ada"},
		"email":            {"ada@example.com"},
		"password":         {"secret1"},
		"confirm_password": {"secret1"},
	}, nil)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/login" {
		t.Errorf("redirected to %q, want /login", loc)
	}
}

func TestLoginFailureFlashes(t *testing.T) {
	identity := &fakeIdentity{authErr: auth.ErrInvalidCredentials}
	srv := newTestServer(identity, &fakeBudgets{})

	rr := do(t, srv, http.MethodPost, "/login", url.Values{
		"username": {"ada"},
		"password": {"wrong"},
	}, nil)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/login" {
		t.Fatalf("redirected to %q, want /login", loc)
	}

	rr2 := do(t, srv, http.MethodGet, "/login", nil, rr.Result().Cookies())
	if !strings.Contains(rr2.Body.String(), "Invalid username or password") {
		t.Error("login page missing rejection flash")
	}
}

func TestLoginThenDashboard(t *testing.T) {
	identity := &fakeIdentity{principal: auth.Principal{ID: 7, Username: "ada", FirstName: "Ada"}}
	budgets := &fakeBudgets{dashboard: services.Dashboard{
		Budget: &core.Budget{
			ID: 3, UserID: 7, AccountLimit: core.Money{Cents: 50000}, Month: 6, Year: 2024,
		},
		Categories:  []string{"Groceries"},
		RewardTotal: core.Money{Cents: 260},
	}}
	srv := newTestServer(identity, budgets)

	cookies := signedInCookies(t, srv)
	rr := do(t, srv, http.MethodGet, "/dashboard", nil, cookies)
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Ada", "June 2024", "$500.00", "$2.60", "Groceries"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard body missing %q", want)
		}
	}
}

func TestAddTransactionOverLimitFlashes(t *testing.T) {
	identity := &fakeIdentity{principal: auth.Principal{ID: 7, Username: "ada", FirstName: "Ada"}}
	budgets := &fakeBudgets{addTxErr: core.ErrAccountLimitReached}
	srv := newTestServer(identity, budgets)
	cookies := signedInCookies(t, srv)

	rr := do(t, srv, http.MethodPost, "/add_transaction", url.Values{
		"budget_id": {"3"},
		"category":  {"groceries"},
		"amount":    {"30"},
		"date":      {"2024-06-15"},
	}, cookies)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/dashboard" {
		t.Fatalf("redirected to %q, want /dashboard", loc)
	}

	// The POST response cookie holds the full session, principal included.
	rr2 := do(t, srv, http.MethodGet, "/dashboard", nil, rr.Result().Cookies())
	if !strings.Contains(rr2.Body.String(), "exceed your account limit") {
		t.Error("dashboard missing over-limit flash")
	}
}

func TestAddTransactionParsesForm(t *testing.T) {
	identity := &fakeIdentity{principal: auth.Principal{ID: 7}}
	budgets := &fakeBudgets{}
	srv := newTestServer(identity, budgets)
	cookies := signedInCookies(t, srv)

	rr := do(t, srv, http.MethodPost, "/add_transaction", url.Values{
		"budget_id":   {"3"},
		"category":    {"groceries"},
		"amount":      {"12.34"},
		"date":        {"2024-06-15"},
		"description": {"weekly shop"},
	}, cookies)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rr.Code)
	}

	tx := budgets.lastTx
	if tx.BudgetID != 3 || tx.Amount.Cents != 1234 || tx.Category != "groceries" {
		t.Errorf("recorded tx = %+v", tx)
	}
	if tx.Date.Format("2006-01-02") != "2024-06-15" {
		t.Errorf("tx date = %v", tx.Date)
	}
	if tx.Description != "weekly shop" {
		t.Errorf("tx description = %q", tx.Description)
	}
}

func TestCreateBudgetParsesNumberedRows(t *testing.T) {
	identity := &fakeIdentity{principal: auth.Principal{ID: 7}}
	budgets := &fakeBudgets{}
	srv := newTestServer(identity, budgets)
	cookies := signedInCookies(t, srv)

	rr := do(t, srv, http.MethodPost, "/create_budget", url.Values{
		"account_limit":    {"500"},
		"month":            {"6"},
		"year":             {"2024"},
		"income":           {"2500"},
		"total_expenses":   {"3"},
		"Category1":        {"Groceries"},
		"expense_amount_1": {"200"},
		"Category2":        {""},
		"expense_amount_2": {""},
		"Category3":        {"Rent"},
		"expense_amount_3": {"250"},
	}, cookies)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/dashboard" {
		t.Fatalf("redirected to %q, want /dashboard", loc)
	}

	if len(budgets.createdPlans) != 2 {
		t.Fatalf("planned rows = %+v, want 2", budgets.createdPlans)
	}
	if budgets.createdPlans[0].Category != "Groceries" || budgets.createdPlans[0].Amount.Cents != 20000 {
		t.Errorf("row 0 = %+v", budgets.createdPlans[0])
	}
	if budgets.createdPlans[1].Category != "Rent" || budgets.createdPlans[1].Amount.Cents != 25000 {
		t.Errorf("row 1 = %+v", budgets.createdPlans[1])
	}
}

func TestCreateBudgetBadRowAborts(t *testing.T) {
	identity := &fakeIdentity{principal: auth.Principal{ID: 7}}
	budgets := &fakeBudgets{}
	srv := newTestServer(identity, budgets)
	cookies := signedInCookies(t, srv)

	rr := do(t, srv, http.MethodPost, "/create_budget", url.Values{
		"account_limit":    {"500"},
		"month":            {"6"},
		"year":             {"2024"},
		"total_expenses":   {"1"},
		"Category1":        {"Groceries"},
		"expense_amount_1": {"not-a-number"},
	}, cookies)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/create_budget" {
		t.Fatalf("redirected to %q, want /create_budget", loc)
	}
	if budgets.createdPlans != nil {
		t.Errorf("budget created despite bad row: %+v", budgets.createdPlans)
	}
}

func TestAddExpenseOtherCategory(t *testing.T) {
	identity := &fakeIdentity{principal: auth.Principal{ID: 7}}
	budgets := &fakeBudgets{}
	srv := newTestServer(identity, budgets)
	cookies := signedInCookies(t, srv)

	rr := do(t, srv, http.MethodPost, "/add_expense", url.Values{
		"budget_id":      {"3"},
		"category":       {"Other"},
		"other_category": {"travel"},
		"amount":         {"40"},
	}, cookies)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rr.Code)
	}

	rr2 := do(t, srv, http.MethodGet, "/dashboard", nil, rr.Result().Cookies())
	if !strings.Contains(rr2.Body.String(), "Travel") {
		t.Error("success flash missing the Other category name")
	}
}

func TestHistoryDetailNotFound(t *testing.T) {
	identity := &fakeIdentity{principal: auth.Principal{ID: 7}}
	budgets := &fakeBudgets{detailErr: storage.ErrBudgetNotFound}
	srv := newTestServer(identity, budgets)
	cookies := signedInCookies(t, srv)

	rr := do(t, srv, http.MethodGet, "/history/42", nil, cookies)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/history/not-a-number", nil, cookies)
	if rr.Code != http.StatusNotFound {
		t.Errorf("non-numeric id status = %d, want 404", rr.Code)
	}
}

func TestHistoryListsBudgets(t *testing.T) {
	identity := &fakeIdentity{principal: auth.Principal{ID: 7}}
	budgets := &fakeBudgets{history: []storage.BudgetSummary{
		{ID: 2, Month: 12, Year: 2024, AccountLimit: core.Money{Cents: 50000}, Spent: core.Money{Cents: 12000}},
		{ID: 1, Month: 1, Year: 2024, AccountLimit: core.Money{Cents: 40000}, Spent: core.Money{Cents: 39000}},
	}}
	srv := newTestServer(identity, budgets)
	cookies := signedInCookies(t, srv)

	rr := do(t, srv, http.MethodGet, "/history", nil, cookies)
	if rr.Code != http.StatusOK {
		t.Fatalf("history status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"December 2024", "January 2024", "$500.00", "$120.00"} {
		if !strings.Contains(body, want) {
			t.Errorf("history body missing %q", want)
		}
	}
	if strings.Index(body, "December 2024") > strings.Index(body, "January 2024") {
		t.Error("history not ordered newest first")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	identity := &fakeIdentity{principal: auth.Principal{ID: 7, Username: "ada"}}
	srv := newTestServer(identity, &fakeBudgets{})
	cookies := signedInCookies(t, srv)

	rr := do(t, srv, http.MethodGet, "/logout", nil, cookies)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("logout status = %d", rr.Code)
	}

	// The expired cookie from logout must no longer grant access.
	rr2 := do(t, srv, http.MethodGet, "/dashboard", nil, rr.Result().Cookies())
	if rr2.Code != http.StatusSeeOther || rr2.Header().Get("Location") != "/login" {
		t.Errorf("dashboard after logout: status = %d, location = %q", rr2.Code, rr2.Header().Get("Location"))
	}
}

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"smartexpense/internal/auth"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}
	if s.identity == nil || s.budgets == nil {
		checks["services"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["services"] = "ok"
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	// The root pattern matches everything not routed elsewhere.
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	p, signedIn := s.sessions.principal(r)
	s.render(w, r, "index.html", struct {
		SignedIn  bool
		FirstName string
		Flashes   []flash
	}{
		SignedIn:  signedIn,
		FirstName: p.FirstName,
		Flashes:   s.sessions.flashes(w, r),
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.render(w, r, "signup.html", struct{ Flashes []flash }{s.sessions.flashes(w, r)})
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "url", r.URL.Path)
		s.sessions.addFlash(w, r, "error", "Invalid form submission")
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	signup := auth.Signup{
		FirstName:       sanitizeInput(r.Form.Get("first_name")),
		LastName:        sanitizeInput(r.Form.Get("last_name")),
		Username:        sanitizeInput(r.Form.Get("username")),
		Email:           sanitizeInput(r.Form.Get("email")),
		Password:        r.Form.Get("password"),
		ConfirmPassword: r.Form.Get("confirm_password"),
		AccountType:     sanitizeInput(r.Form.Get("account_type")),
	}

	if err := s.identity.Register(r.Context(), signup); err != nil {
		slog.WarnContext(r.Context(), "Signup rejected", "error", err, "username", signup.Username)
		s.sessions.addFlash(w, r, "error", registrationMessage(err))
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	slog.InfoContext(r.Context(), "User registered", "username", signup.Username)
	s.sessions.addFlash(w, r, "success", "Registration successful. Please log in.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// registrationMessage maps registration failures onto the text shown to the
// user; unexpected storage errors get a generic line.
func registrationMessage(err error) string {
	switch {
	case isOneOf(err,
		auth.ErrPasswordMismatch,
		auth.ErrInvalidEmail,
		auth.ErrPasswordTooShort,
		auth.ErrUserExists):
		return capitalizeSentence(err.Error())
	default:
		return "Something went wrong. Please try again."
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.render(w, r, "login.html", struct{ Flashes []flash }{s.sessions.flashes(w, r)})
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		s.sessions.addFlash(w, r, "error", "Invalid form submission")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	username := sanitizeInput(r.Form.Get("username"))
	principal, err := s.identity.Authenticate(r.Context(), username, r.Form.Get("password"))
	if err != nil {
		slog.WarnContext(r.Context(), "Login rejected", "username", username)
		s.sessions.addFlash(w, r, "error", "Invalid username or password")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	s.sessions.signIn(w, r, principal)
	slog.InfoContext(r.Context(), "User logged in", "user_id", principal.ID, "username", principal.Username)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	s.sessions.signOut(w, r)
	slog.InfoContext(r.Context(), "User logged out", "user_id", p.ID)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

package http

import (
	"encoding/gob"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"

	"smartexpense/internal/auth"
)

const sessionName = "smartexpense_session"

// flash is one status message queued for the next rendered page.
type flash struct {
	Kind    string // "success", "warning" or "error"
	Message string
}

func init() {
	gob.Register(flash{})
	gob.Register(auth.Principal{})
}

type sessionStore struct {
	store *sessions.CookieStore
}

func newSessionStore(secret string) *sessionStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &sessionStore{store: store}
}

func (ss *sessionStore) get(r *http.Request) *sessions.Session {
	// Get never fails fatally for cookie stores; a bad cookie yields a
	// fresh session, which is the behavior we want.
	session, _ := ss.store.Get(r, sessionName)
	return session
}

func (ss *sessionStore) principal(r *http.Request) (auth.Principal, bool) {
	session := ss.get(r)
	p, ok := session.Values["principal"].(auth.Principal)
	return p, ok
}

func (ss *sessionStore) signIn(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	session := ss.get(r)
	session.Values["principal"] = p
	if err := session.Save(r, w); err != nil {
		slog.ErrorContext(r.Context(), "Failed to save session", "error", err)
	}
}

func (ss *sessionStore) signOut(w http.ResponseWriter, r *http.Request) {
	session := ss.get(r)
	delete(session.Values, "principal")
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		slog.ErrorContext(r.Context(), "Failed to clear session", "error", err)
	}
}

func (ss *sessionStore) addFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	session := ss.get(r)
	session.AddFlash(flash{Kind: kind, Message: message})
	if err := session.Save(r, w); err != nil {
		slog.ErrorContext(r.Context(), "Failed to save flash", "error", err)
	}
}

// flashes drains the queued messages, saving the session to clear them.
func (ss *sessionStore) flashes(w http.ResponseWriter, r *http.Request) []flash {
	session := ss.get(r)
	raw := session.Flashes()
	if len(raw) > 0 {
		if err := session.Save(r, w); err != nil {
			slog.ErrorContext(r.Context(), "Failed to clear flashes", "error", err)
		}
	}
	out := make([]flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(flash); ok {
			out = append(out, f)
		}
	}
	return out
}

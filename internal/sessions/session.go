// Package sessions wraps the gorilla cookie store that carries the signed-in
// user's id and role between requests.
package sessions

import (
	"crypto/sha256"
	"net/http"

	"github.com/gorilla/sessions"
)

const sessionName = "mm_session"

// Manager owns the cookie store. One instance is built at boot and injected
// into the handlers.
type Manager struct {
	store *sessions.CookieStore
}

// New derives separate signing and encryption keys from the configured secret.
func New(secret string, secure bool, maxAge int) *Manager {
	if secret == "" {
		// Dev fallback; config validation refuses this once secure is set.
		secret = "dev-insecure-secret-change-me-now"
	}

	h := sha256.Sum256([]byte("auth:" + secret))
	e := sha256.Sum256([]byte("enc:" + secret))

	store := sessions.NewCookieStore(h[:], e[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	}
	return &Manager{store: store}
}

func (m *Manager) get(r *http.Request) (*sessions.Session, error) {
	return m.store.Get(r, sessionName)
}

// SetUser stores the user's id and role, issuing the Set-Cookie header.
func (m *Manager) SetUser(w http.ResponseWriter, r *http.Request, userID int64, role string) error {
	s, err := m.get(r)
	if err != nil {
		return err
	}
	s.Values["user_id"] = userID
	s.Values["role"] = role
	return s.Save(r, w)
}

// CurrentUser returns the session's user id and role, if a session exists.
func (m *Manager) CurrentUser(r *http.Request) (int64, string, bool) {
	s, err := m.get(r)
	if err != nil {
		return 0, "", false
	}
	id, ok := s.Values["user_id"].(int64)
	if !ok {
		return 0, "", false
	}
	role, _ := s.Values["role"].(string)
	return id, role, true
}

// Clear drops the session values and expires the cookie. Clearing when no
// session exists is fine.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) error {
	s, err := m.get(r)
	if err != nil {
		return err
	}
	delete(s.Values, "user_id")
	delete(s.Values, "role")
	s.Options.MaxAge = -1
	return s.Save(r, w)
}

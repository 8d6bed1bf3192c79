package auth

import (
	"crypto/sha256"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

// ErrNoSession is returned when the request carries no signed-in session.
var ErrNoSession = errors.New("no session")

// Session value keys.
const (
	sessionKeyUserID = "user_id"
)

// SessionStore keeps the signed-in user id in a signed cookie.
type SessionStore struct {
	store *sessions.CookieStore
	name  string
}

// SessionOptions configures the session cookie.
type SessionOptions struct {
	Secret     string
	CookieName string
	MaxAge     time.Duration
	Secure     bool
}

// SecureCookies decides the cookie Secure flag. Forcing it through config
// always wins. Otherwise only a plain http:// base URL (local development)
// turns it off.
func SecureCookies(baseURL string, forced bool) bool {
	if forced {
		return true
	}
	u, err := url.Parse(baseURL)
	return err != nil || u.Scheme != "http"
}

// NewSessionStore creates the cookie-based session store.
//
// The secret can be any passphrase; it is SHA-256 hashed to derive a 32-byte
// signing key. It must be the same on every server behind a load balancer.
//
// Cookies are HttpOnly and SameSite=Lax so that links from approval emails
// still arrive signed in.
func NewSessionStore(opts SessionOptions) *SessionStore {
	key := sha256.Sum256([]byte(opts.Secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionStore{store: store, name: opts.CookieName}
}

// Name returns the session cookie name.
func (s *SessionStore) Name() string {
	return s.name
}

// Login records userID in the session and writes the cookie.
func (s *SessionStore) Login(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
	session, err := s.store.Get(r, s.name)
	if err != nil && session == nil {
		return err
	}
	session.Values[sessionKeyUserID] = userID.String()
	return session.Save(r, w)
}

// Logout expires the session cookie.
func (s *SessionStore) Logout(w http.ResponseWriter, r *http.Request) error {
	session, err := s.store.Get(r, s.name)
	if err != nil && session == nil {
		return err
	}
	delete(session.Values, sessionKeyUserID)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// UserID reads the signed-in user id from the request.
// A tampered or foreign cookie is reported as an error.
func (s *SessionStore) UserID(r *http.Request) (uuid.UUID, error) {
	if _, err := r.Cookie(s.name); err != nil {
		return uuid.Nil, ErrNoSession
	}

	session, err := s.store.Get(r, s.name)
	if err != nil {
		return uuid.Nil, err
	}

	raw, ok := session.Values[sessionKeyUserID].(string)
	if !ok || raw == "" {
		return uuid.Nil, ErrNoSession
	}
	return uuid.Parse(raw)
}

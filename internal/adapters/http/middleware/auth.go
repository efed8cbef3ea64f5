package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const sessionContextKey contextKey = "session"

// sessionTTL bounds how long a login token stays valid.
const sessionTTL = 24 * time.Hour

// Session represents an authenticated API session.
type Session struct {
	AccountID string
	Email     string
	CreatedAt time.Time
}

// TokenStore is an in-memory bearer-token store.
type TokenStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{sessions: make(map[string]Session)}
}

// Create stores a new session and returns the bearer token.
// PRE: accountID is non-empty
// POST: Session is stored, token is returned
func (ts *TokenStore) Create(accountID, email string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.sessions[token] = Session{
		AccountID: accountID,
		Email:     email,
		CreatedAt: time.Now(),
	}
	return token, nil
}

// Get retrieves a session by token.
// PRE: token is non-empty
// POST: Returns the session if valid and not expired
func (ts *TokenStore) Get(token string) (Session, bool) {
	ts.mu.RLock()
	sess, ok := ts.sessions[token]
	ts.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if time.Since(sess.CreatedAt) > sessionTTL {
		ts.Revoke(token)
		return Session{}, false
	}
	return sess, true
}

// Revoke removes a token. Revoking an unknown token is not an error.
func (ts *TokenStore) Revoke(token string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	delete(ts.sessions, token)
}

// Auth returns middleware that resolves the Authorization bearer token into
// a Session on the request context. Requests without a valid token pass
// through unauthenticated; handlers decide whether auth is required.
func Auth(tokens *TokenStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if token, ok := strings.CutPrefix(header, "Bearer "); ok {
				if sess, ok := tokens.Get(token); ok {
					r = r.WithContext(context.WithValue(r.Context(), sessionContextKey, sess))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext returns the authenticated session, if any.
func SessionFromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(Session)
	return sess, ok
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

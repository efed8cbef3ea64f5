package web

import (
	"net/http"
	"time"

	emailAdapter "restock/internal/adapters/email"
	"restock/internal/adapters/http/middleware"
	"restock/internal/adapters/metrics"
	accountStore "restock/internal/adapters/storage/account"
	sessionStore "restock/internal/adapters/storage/session"
	supplierStore "restock/internal/adapters/storage/supplier"
	"restock/internal/application/events"
	"restock/internal/application/state"
)

// RateLimitPerSecond caps requests per client IP.
const RateLimitPerSecond = 20

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore  accountStore.Store
	SessionStore  sessionStore.Store
	SupplierStore supplierStore.Store
}

// Server wires the HTTP API to the application layer.
type Server struct {
	Stores  *Stores
	State   *state.Store
	Sender  emailAdapter.Sender
	Bus     *events.Bus
	Metrics *metrics.Metrics
	Tokens  *middleware.TokenStore

	FromAddress string
	ReplyTo     string

	GenerateID func() string
	Now        func() time.Time
}

// Handler builds the API routing table with the middleware chain applied.
// POST: Returns the root handler ready for http.Server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics.Handler())
	}

	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("GET /api/me", s.handleMe)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("POST /api/password", s.handleChangePassword)

	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("PATCH /api/sessions/{id}", s.handleRenameSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDiscardSession)
	mux.HandleFunc("POST /api/sessions/{id}/items", s.handleAddItem)
	mux.HandleFunc("DELETE /api/sessions/{id}/items/{itemID}", s.handleRemoveItem)
	mux.HandleFunc("POST /api/sessions/{id}/generate", s.handleGenerateEmails)

	mux.HandleFunc("GET /api/emails/current", s.handleCurrentEmails)
	mux.HandleFunc("PUT /api/emails/{sessionID}/drafts/{draftID}", s.handleEditDraft)
	mux.HandleFunc("POST /api/emails/{sessionID}/drafts/{draftID}/send", s.handleSendDraft)
	mux.HandleFunc("POST /api/emails/{sessionID}/send", s.handleSendAll)

	mux.HandleFunc("GET /api/suppliers", s.handleListSuppliers)
	mux.HandleFunc("POST /api/suppliers", s.handleSaveSupplier)
	mux.HandleFunc("PUT /api/suppliers/{id}", s.handleSaveSupplier)
	mux.HandleFunc("DELETE /api/suppliers/{id}", s.handleDeleteSupplier)

	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.Auth(s.Tokens),
		middleware.RateLimit(limiter),
	)
}

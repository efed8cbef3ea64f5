package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"restock/internal/adapters/http/middleware"
	"restock/internal/application/orchestrators"
	accountDomain "restock/internal/domain/account"
	"restock/internal/domain/draft"
	sessionDomain "restock/internal/domain/session"
	supplierDomain "restock/internal/domain/supplier"
)

// internalError logs the real error and returns a generic message to the
// client so internal details do not leak.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response_encode_failed", "error", err.Error())
	}
}

// domainError maps expected domain failures onto HTTP statuses; unexpected
// errors become a logged 500.
func domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessionDomain.ErrSessionNotFound),
		errors.Is(err, supplierDomain.ErrNotFound),
		errors.Is(err, draft.ErrDraftNotFound),
		errors.Is(err, accountDomain.ErrNotFound),
		errors.Is(err, sessionDomain.ErrItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, accountDomain.ErrWrongPassword):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, sessionDomain.ErrNotDraft),
		errors.Is(err, sessionDomain.ErrAlreadySent),
		errors.Is(err, draft.ErrAlreadySent),
		errors.Is(err, orchestrators.ErrEmailTaken):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, sessionDomain.ErrNoItems),
		errors.Is(err, sessionDomain.ErrBadQuantity),
		errors.Is(err, sessionDomain.ErrEmptyProduct),
		errors.Is(err, supplierDomain.ErrEmptyName),
		errors.Is(err, orchestrators.ErrSamePassword),
		errors.Is(err, accountDomain.ErrEmptyEmail),
		errors.Is(err, accountDomain.ErrInvalidEmail),
		errors.Is(err, accountDomain.ErrEmptyPassword),
		errors.Is(err, accountDomain.ErrPasswordTooShort),
		errors.Is(err, draft.ErrNoDrafts):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		internalError(w, err)
	}
}

// currentAccount resolves the authenticated account for a request.
// POST: Writes 401 and returns false when unauthenticated
func (s *Server) currentAccount(w http.ResponseWriter, r *http.Request) (accountDomain.Account, bool) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return accountDomain.Account{}, false
	}
	acct, err := s.Stores.AccountStore.GetByID(r.Context(), sess.AccountID)
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return accountDomain.Account{}, false
	}
	return acct, true
}

// --- DTOs ---

type itemJSON struct {
	ID            string `json:"id"`
	ProductName   string `json:"productName"`
	Quantity      int    `json:"quantity"`
	SupplierName  string `json:"supplierName"`
	SupplierEmail string `json:"supplierEmail"`
	Notes         string `json:"notes,omitempty"`
}

type sessionJSON struct {
	ID        string     `json:"id"`
	Name      string     `json:"name,omitempty"`
	Status    string     `json:"status"`
	Items     []itemJSON `json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt,omitempty"`
}

type draftJSON struct {
	ID            string   `json:"id"`
	SupplierName  string   `json:"supplierName"`
	SupplierEmail string   `json:"supplierEmail"`
	Subject       string   `json:"subject"`
	Body          string   `json:"body"`
	Status        string   `json:"status"`
	Products      []string `json:"products"`
	IsEdited      bool     `json:"isEdited,omitempty"`
	Error         string   `json:"error,omitempty"`
}

type emailSessionJSON struct {
	SessionID    string      `json:"sessionId"`
	Drafts       []draftJSON `json:"drafts"`
	ProductCount int         `json:"productCount"`
	CreatedAt    time.Time   `json:"createdAt"`
}

type supplierJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toSessionJSON(sess sessionDomain.RestockSession) sessionJSON {
	items := make([]itemJSON, 0, len(sess.Items))
	for _, item := range sess.Items {
		items = append(items, itemJSON{
			ID:            item.ID,
			ProductName:   item.ProductName,
			Quantity:      item.Quantity,
			SupplierName:  item.SupplierName,
			SupplierEmail: item.SupplierEmail,
			Notes:         item.Notes,
		})
	}
	return sessionJSON{
		ID:        sess.ID,
		Name:      sess.Name,
		Status:    sess.Status,
		Items:     items,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	}
}

func toEmailSessionJSON(sess draft.EmailSession) emailSessionJSON {
	drafts := make([]draftJSON, 0, len(sess.Drafts))
	for _, d := range sess.Drafts {
		drafts = append(drafts, toDraftJSON(d))
	}
	return emailSessionJSON{
		SessionID:    sess.ID,
		Drafts:       drafts,
		ProductCount: sess.ProductCount,
		CreatedAt:    sess.CreatedAt,
	}
}

func toDraftJSON(d draft.EmailDraft) draftJSON {
	return draftJSON{
		ID:            d.ID,
		SupplierName:  d.SupplierName,
		SupplierEmail: d.SupplierEmail,
		Subject:       d.Subject,
		Body:          d.Body,
		Status:        d.Status,
		Products:      d.Products,
		IsEdited:      d.IsEdited,
		Error:         d.ErrorMessage,
	}
}

func toSupplierJSON(sup supplierDomain.Supplier) supplierJSON {
	return supplierJSON{
		ID:        sup.ID,
		Name:      sup.Name,
		Email:     sup.Email,
		Phone:     sup.Phone,
		Notes:     sup.Notes,
		CreatedAt: sup.CreatedAt,
	}
}

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Auth ---

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	acct, err := orchestrators.ExecuteLogin(r.Context(),
		orchestrators.LoginInput{Email: req.Email, Password: req.Password},
		orchestrators.LoginDeps{Accounts: s.Stores.AccountStore})
	if err != nil {
		domainError(w, err)
		return
	}

	token, err := s.Tokens.Create(acct.ID, acct.Email)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"account": map[string]string{
			"id":          acct.ID,
			"email":       acct.Email,
			"storeName":   acct.StoreName,
			"displayName": acct.DisplayName,
		},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	if len(header) > len("Bearer ") {
		s.Tokens.Revoke(header[len("Bearer "):])
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.currentAccount(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":          acct.ID,
		"email":       acct.Email,
		"storeName":   acct.StoreName,
		"displayName": acct.DisplayName,
	})
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentAccount(w, r); !ok {
		return
	}
	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		StoreName   string `json:"storeName"`
		DisplayName string `json:"displayName"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	acct, err := orchestrators.ExecuteCreateAccount(r.Context(),
		orchestrators.CreateAccountInput{
			Email:       req.Email,
			Password:    req.Password,
			StoreName:   req.StoreName,
			DisplayName: req.DisplayName,
		},
		orchestrators.CreateAccountDeps{Accounts: s.Stores.AccountStore, GenerateID: s.GenerateID, Now: s.Now})
	if err != nil {
		domainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":          acct.ID,
		"email":       acct.Email,
		"storeName":   acct.StoreName,
		"displayName": acct.DisplayName,
	})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.currentAccount(w, r)
	if !ok {
		return
	}
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	err := orchestrators.ExecuteChangePassword(r.Context(),
		orchestrators.ChangePasswordInput{
			AccountID:       acct.ID,
			CurrentPassword: req.CurrentPassword,
			NewPassword:     req.NewPassword,
		},
		orchestrators.ChangePasswordDeps{Accounts: s.Stores.AccountStore})
	if err != nil {
		domainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Restock sessions ---

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.currentAccount(w, r)
	if !ok {
		return
	}
	sessions, err := s.Stores.SessionStore.ListByOwner(r.Context(), acct.ID)
	if err != nil {
		internalError(w, err)
		return
	}
	out := make([]sessionJSON, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toSessionJSON(sess))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.currentAccount(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sess, err := orchestrators.ExecuteCreateSession(r.Context(),
		orchestrators.CreateSessionInput{OwnerID: acct.ID, Name: req.Name},
		orchestrators.CreateSessionDeps{Sessions: s.Stores.SessionStore, GenerateID: s.GenerateID, Now: s.Now})
	if err != nil {
		domainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionJSON(sess))
}

// ownedSession loads a session and checks it belongs to the account.
func (s *Server) ownedSession(w http.ResponseWriter, r *http.Request, acct accountDomain.Account, id string) (sessionDomain.RestockSession, bool) {
	sess, err := s.Stores.SessionStore.GetByID(r.Context(), id)
	if err != nil {
		domainError(w, err)
		return sessionDomain.RestockSession{}, false
	}
	if sess.OwnerID != acct.ID {
		http.Error(w, sessionDomain.ErrSessionNotFound.Error(), http.StatusNotFound)
		return sessionDomain.RestockSession{}, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.currentAccount(w, r)
	if !ok {
		return
	}
	sess, ok := s.ownedSession(w, r, acct, r.PathValue("id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSessionJSON(sess))
}

func (s *Server) handleRenameSession(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.currentAccount(w, r)
	if !ok {
		return
	}
	if _, ok := s.ownedSession(w, r, acct, r.PathValue("id")); !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sess, err := orchestrators.ExecuteRenameSession(r.Context(),
		orchestrators.RenameSessionInput{SessionID: r.PathValue("id"), Name: req.Name},
		orchestrators.RenameSessionDeps{Sessions: s.Stores.SessionStore, Now: s.Now})
	if err != nil {
		domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionJSON(sess))
}

func (s *Server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.currentAccount(w, r)
	if !ok {
		return
	}
	if _, ok := s.ownedSession(w, r, acct, r.PathValue("id")); !ok {
		return
	}
	err := orchestrators.ExecuteDiscardSession(r.Context(),
		orchestrators.DiscardSessionInput{SessionID: r.PathValue("id")},
		orchestrators.DiscardSessionDeps{Sessions: s.Stores.SessionStore, State: s.State, Bus: s.Bus})
	if err != nil {
		domainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.currentAccount(w, r)
	if !ok {
		return
	}
	if _, ok := s.ownedSession(w, r, acct, r.PathValue("id")); !ok {
		return
	}
	var req itemJSON
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sess, err := orchestrators.ExecuteAddLineItem(r.Context(),
		orchestrators.AddLineItemInput{
			SessionID:     r.PathValue("id"),
			ProductName:   req.ProductName,
			Quantity:      req.Quantity,
			SupplierName:  req.SupplierName,
			SupplierEmail: req.SupplierEmail,
			Notes:         req.Notes,
		},
		orchestrators.AddLineItemDeps{Sessions: s.Stores.SessionStore, GenerateID: s.GenerateID, Now: s.Now})
	if err != nil {
		domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionJSON(sess))
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.currentAccount(w, r)
	if !ok {
		return
	}
	if _, ok := s.ownedSession(w, r, acct, r.PathValue("id")); !ok {
		return
	}
	sess, err := orchestrators.ExecuteRemoveLineItem(r.Context(),
		orchestrators.RemoveLineItemInput{SessionID: r.PathValue("id"), ItemID: r.PathValue("itemID")},
		orchestrators.AddLineItemDeps{Sessions: s.Stores.SessionStore, GenerateID: s.GenerateID, Now: s.Now})
	if err != nil {
		domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionJSON(sess))
}

// --- Email generation and sending ---

func (s *Server) handleGenerateEmails(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.currentAccount(w, r)
	if !ok {
		return
	}
	if _, ok := s.ownedSession(w, r, acct, r.PathValue("id")); !ok {
		return
	}
	sess, err := orchestrators.ExecuteGenerateEmails(r.Context(),
		orchestrators.GenerateEmailsInput{SessionID: r.PathValue("id")},
		orchestrators.GenerateEmailsDeps{
			Sessions: s.Stores.SessionStore,
			State:    s.State,
			Bus:      s.Bus,
			Identity: acct.SenderIdentity(),
			Now:      s.Now,
		})
	if err != nil {
		domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmailSessionJSON(sess))
}

func (s *Server) handleCurrentEmails(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.currentAccount(w, r)
	if !ok {
		return
	}
	sess, err := s.State.Load(r.Context(), acct.SenderIdentity())
	if err != nil {
		internalError(w, err)
		return
	}
	if sess == nil {
		writeJSON(w, http.StatusOK, map[string]any{"active": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"active": true, "session": toEmailSessionJSON(*sess)})
}

func (s *Server) handleEditDraft(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.currentAccount(w, r)
	if !ok {
		return
	}
	var req struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	updated, err := orchestrators.ExecuteEditDraft(r.Context(),
		orchestrators.EditDraftInput{
			SessionID: r.PathValue("sessionID"),
			DraftID:   r.PathValue("draftID"),
			Subject:   req.Subject,
			Body:      req.Body,
		},
		orchestrators.EditDraftDeps{State: s.State, Identity: acct.SenderIdentity()})
	if err != nil {
		domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDraftJSON(updated))
}

func (s *Server) sendDeps(acct accountDomain.Account) orchestrators.SendDeps {
	return orchestrators.SendDeps{
		State:       s.State,
		Sessions:    s.Stores.SessionStore,
		Sender:      s.Sender,
		Bus:         s.Bus,
		Metrics:     s.Metrics,
		Identity:    acct.SenderIdentity(),
		FromAddress: s.FromAddress,
		ReplyTo:     s.ReplyTo,
	}
}

func sendResultJSON(res orchestrators.SendResult) map[string]any {
	out := map[string]any{"success": res.Success}
	if res.Message != "" {
		out["message"] = res.Message
	}
	if res.Session != nil {
		out["session"] = toEmailSessionJSON(*res.Session)
	}
	return out
}

func (s *Server) handleSendDraft(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.currentAccount(w, r)
	if !ok {
		return
	}
	res, err := orchestrators.ExecuteSendDraft(r.Context(),
		orchestrators.SendDraftInput{SessionID: r.PathValue("sessionID"), DraftID: r.PathValue("draftID")},
		s.sendDeps(acct))
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sendResultJSON(res))
}

func (s *Server) handleSendAll(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.currentAccount(w, r)
	if !ok {
		return
	}
	res, err := orchestrators.ExecuteSendAll(r.Context(),
		orchestrators.SendAllInput{SessionID: r.PathValue("sessionID")},
		s.sendDeps(acct))
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sendResultJSON(res))
}

// --- Suppliers ---

func (s *Server) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.currentAccount(w, r)
	if !ok {
		return
	}
	suppliers, err := s.Stores.SupplierStore.ListByOwner(r.Context(), acct.ID)
	if err != nil {
		internalError(w, err)
		return
	}
	out := make([]supplierJSON, 0, len(suppliers))
	for _, sup := range suppliers {
		out = append(out, toSupplierJSON(sup))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSaveSupplier(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.currentAccount(w, r)
	if !ok {
		return
	}
	var req supplierJSON
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sup := supplierDomain.Supplier{
		ID:      r.PathValue("id"),
		OwnerID: acct.ID,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Notes:   req.Notes,
	}
	status := http.StatusOK
	if sup.ID == "" {
		sup.ID = s.GenerateID()
		sup.CreatedAt = s.Now()
		status = http.StatusCreated
	} else {
		existing, err := s.Stores.SupplierStore.GetByID(r.Context(), sup.ID)
		if err != nil {
			domainError(w, err)
			return
		}
		if existing.OwnerID != acct.ID {
			http.Error(w, supplierDomain.ErrNotFound.Error(), http.StatusNotFound)
			return
		}
		sup.CreatedAt = existing.CreatedAt
		sup.UpdatedAt = s.Now()
	}
	if err := sup.Validate(); err != nil {
		domainError(w, err)
		return
	}
	if err := s.Stores.SupplierStore.Save(r.Context(), sup); err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, status, toSupplierJSON(sup))
}

func (s *Server) handleDeleteSupplier(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.currentAccount(w, r)
	if !ok {
		return
	}
	existing, err := s.Stores.SupplierStore.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		domainError(w, err)
		return
	}
	if existing.OwnerID != acct.ID {
		http.Error(w, supplierDomain.ErrNotFound.Error(), http.StatusNotFound)
		return
	}
	if err := s.Stores.SupplierStore.Delete(r.Context(), existing.ID); err != nil {
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

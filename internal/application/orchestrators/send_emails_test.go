package orchestrators

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"restock/internal/adapters/cache"
	"restock/internal/adapters/email"
	"restock/internal/application/events"
	"restock/internal/application/state"
	"restock/internal/domain/draft"
	sessionDomain "restock/internal/domain/session"
)

var (
	testIdentity = draft.Sender{StoreName: "Corner Dairy", UserName: "Mere", UserEmail: "mere@cornerdairy.co.nz"}
	testNow      = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
)

// mockSessionStore is an in-memory session.Store for orchestrator tests.
type mockSessionStore struct {
	sessions      map[string]sessionDomain.RestockSession
	markSentCalls []string
	markSentErr   error
}

func newMockSessionStore(sessions ...sessionDomain.RestockSession) *mockSessionStore {
	m := &mockSessionStore{sessions: make(map[string]sessionDomain.RestockSession)}
	for _, s := range sessions {
		m.sessions[s.ID] = s
	}
	return m
}

func (m *mockSessionStore) GetByID(_ context.Context, id string) (sessionDomain.RestockSession, error) {
	s, ok := m.sessions[id]
	if !ok {
		return sessionDomain.RestockSession{}, sessionDomain.ErrSessionNotFound
	}
	return s, nil
}

func (m *mockSessionStore) Save(_ context.Context, s sessionDomain.RestockSession) error {
	m.sessions[s.ID] = s
	return nil
}

func (m *mockSessionStore) Delete(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionStore) ListByOwner(_ context.Context, ownerID string) ([]sessionDomain.RestockSession, error) {
	var out []sessionDomain.RestockSession
	for _, s := range m.sessions {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSessionStore) MarkSent(_ context.Context, id string) error {
	m.markSentCalls = append(m.markSentCalls, id)
	if m.markSentErr != nil {
		return m.markSentErr
	}
	s, ok := m.sessions[id]
	if !ok {
		return sessionDomain.ErrSessionNotFound
	}
	s.Status = sessionDomain.StatusSent
	m.sessions[id] = s
	return nil
}

// fakeSender records deliveries and fails for configured recipients.
type fakeSender struct {
	mu      sync.Mutex
	failFor map[string]error // keyed by recipient address
	sent    []email.SendRequest
}

func (f *fakeSender) Send(_ context.Context, req email.SendRequest) (email.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[req.To]; err != nil {
		return email.SendResult{}, err
	}
	f.sent = append(f.sent, req)
	return email.SendResult{MessageID: "msg-" + req.To, SentAt: testNow}, nil
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// sendFixture wires a SendDeps over an in-memory stack with an activated
// email session for the given line items.
type sendFixture struct {
	deps     SendDeps
	cache    *cache.MemCache
	sessions *mockSessionStore
	sender   *fakeSender
	sess     draft.EmailSession
}

func newSendFixture(t *testing.T, items []draft.LineItem) *sendFixture {
	t.Helper()
	c := cache.NewMemCache()
	st := state.NewStore(c)

	restock := sessionDomain.RestockSession{
		ID:        "s1",
		OwnerID:   "owner-1",
		Name:      "Monday walkthrough",
		Status:    sessionDomain.StatusEmailGenerated,
		CreatedAt: testNow,
	}
	sessions := newMockSessionStore(restock)

	sess, err := st.Activate(context.Background(), "s1", items, testIdentity, testNow)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}

	sender := &fakeSender{failFor: make(map[string]error)}
	return &sendFixture{
		deps: SendDeps{
			State:       st,
			Sessions:    sessions,
			Sender:      sender,
			Bus:         events.NewBus(),
			Identity:    testIdentity,
			FromAddress: "Restock <orders@restock.app>",
			ReplyTo:     testIdentity.UserEmail,
		},
		cache:    c,
		sessions: sessions,
		sender:   sender,
		sess:     sess,
	}
}

func twoSupplierItems() []draft.LineItem {
	return []draft.LineItem{
		{ProductName: "Widget", Quantity: 3, SupplierName: "Acme", SupplierEmail: "orders@acme.com"},
		{ProductName: "Bolt", Quantity: 9, SupplierName: "Bolt Co", SupplierEmail: "sales@bolt.co"},
	}
}

// sessionSentEvents subscribes before the operation and returns a channel
// carrying any SessionSent deliveries.
func sessionSentEvents(bus *events.Bus) <-chan events.SessionSent {
	ch := make(chan events.SessionSent, 1)
	bus.SubscribeSessionSent(func(ev events.SessionSent) { ch <- ev })
	return ch
}

func expectEvent(t *testing.T, ch <-chan events.SessionSent, sessionID string) {
	t.Helper()
	select {
	case ev := <-ch:
		if ev.SessionID != sessionID {
			t.Errorf("expected event for %s, got %s", sessionID, ev.SessionID)
		}
	case <-time.After(time.Second):
		t.Error("expected a SessionSent event")
	}
}

func expectNoEvent(t *testing.T, ch <-chan events.SessionSent) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Errorf("unexpected SessionSent event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestSendDraft_LastDraftCompletesSession tests that sending the only draft
// runs the full completion protocol.
func TestSendDraft_LastDraftCompletesSession(t *testing.T) {
	f := newSendFixture(t, twoSupplierItems()[:1])
	ch := sessionSentEvents(f.deps.Bus)

	res, err := ExecuteSendDraft(context.Background(), SendDraftInput{SessionID: "s1", DraftID: f.sess.Drafts[0].ID}, f.deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got: %s", res.Message)
	}
	if res.Session != nil {
		t.Error("expected no remaining session after completion")
	}
	if len(f.sessions.markSentCalls) != 1 || f.sessions.markSentCalls[0] != "s1" {
		t.Errorf("expected session marked sent once, got %v", f.sessions.markSentCalls)
	}
	if f.deps.State.ActiveID() != "" {
		t.Error("expected active email session cleared")
	}
	if _, ok, _ := f.cache.Get(context.Background(), state.SlotKey); ok {
		t.Error("expected cache slot removed")
	}
	expectEvent(t, ch, "s1")
}

// TestSendDraft_PartialSessionStaysActive tests that sending one of two
// drafts leaves the session open for the rest.
func TestSendDraft_PartialSessionStaysActive(t *testing.T) {
	f := newSendFixture(t, twoSupplierItems())
	ch := sessionSentEvents(f.deps.Bus)

	res, err := ExecuteSendDraft(context.Background(), SendDraftInput{SessionID: "s1", DraftID: f.sess.Drafts[0].ID}, f.deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got: %s", res.Message)
	}
	if res.Session == nil {
		t.Fatal("expected session in result")
	}
	if res.Session.Drafts[0].Status != draft.StatusSent {
		t.Errorf("expected first draft sent, got %s", res.Session.Drafts[0].Status)
	}
	if res.Session.Drafts[1].Status != draft.StatusDraft {
		t.Errorf("expected second draft untouched, got %s", res.Session.Drafts[1].Status)
	}
	if len(f.sessions.markSentCalls) != 0 {
		t.Error("session must not be finalized with drafts outstanding")
	}
	if f.deps.State.ActiveID() != "s1" {
		t.Error("expected email session still active")
	}
	expectNoEvent(t, ch)
}

// TestSendDraft_TransportFailure tests that a failing provider lands the
// draft on failed with the error recorded.
func TestSendDraft_TransportFailure(t *testing.T) {
	f := newSendFixture(t, twoSupplierItems()[:1])
	f.sender.failFor["orders@acme.com"] = errors.New("smtp 550")

	res, err := ExecuteSendDraft(context.Background(), SendDraftInput{SessionID: "s1", DraftID: f.sess.Drafts[0].ID}, f.deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure result")
	}
	if !strings.Contains(res.Message, "failed to send email to Acme") {
		t.Errorf("unexpected message: %s", res.Message)
	}
	got := res.Session.Drafts[0]
	if got.Status != draft.StatusFailed {
		t.Errorf("expected failed status, got %s", got.Status)
	}
	if !strings.Contains(got.ErrorMessage, "smtp 550") {
		t.Errorf("expected error recorded on draft, got %q", got.ErrorMessage)
	}
	if len(f.sessions.markSentCalls) != 0 {
		t.Error("failed session must not be finalized")
	}
}

// TestSendDraft_RetryAfterFailure tests the failed to sending to sent path.
func TestSendDraft_RetryAfterFailure(t *testing.T) {
	ctx := context.Background()
	f := newSendFixture(t, twoSupplierItems()[:1])
	f.sender.failFor["orders@acme.com"] = errors.New("timeout")

	input := SendDraftInput{SessionID: "s1", DraftID: f.sess.Drafts[0].ID}
	res, err := ExecuteSendDraft(ctx, input, f.deps)
	if err != nil || res.Success {
		t.Fatalf("expected recorded failure, got success=%v err=%v", res.Success, err)
	}

	delete(f.sender.failFor, "orders@acme.com")
	res, err = ExecuteSendDraft(ctx, input, f.deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected retry to succeed, got: %s", res.Message)
	}
	if len(f.sessions.markSentCalls) != 1 {
		t.Error("expected completion to run after successful retry")
	}
}

// TestSendDraft_AlreadySent tests that a sent draft cannot be dispatched again.
func TestSendDraft_AlreadySent(t *testing.T) {
	ctx := context.Background()
	f := newSendFixture(t, twoSupplierItems())
	input := SendDraftInput{SessionID: "s1", DraftID: f.sess.Drafts[0].ID}
	if res, err := ExecuteSendDraft(ctx, input, f.deps); err != nil || !res.Success {
		t.Fatalf("setup send failed: success=%v err=%v", res.Success, err)
	}

	res, err := ExecuteSendDraft(ctx, input, f.deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Error("expected resend of a sent draft to be rejected")
	}
	if f.sender.sentCount() != 1 {
		t.Errorf("expected exactly one delivery, got %d", f.sender.sentCount())
	}
}

// TestSendDraft_UnknownDraft tests the not-found message.
func TestSendDraft_UnknownDraft(t *testing.T) {
	f := newSendFixture(t, twoSupplierItems())
	res, err := ExecuteSendDraft(context.Background(), SendDraftInput{SessionID: "s1", DraftID: "nope"}, f.deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || !strings.Contains(res.Message, "not found") {
		t.Errorf("expected not-found result, got %+v", res)
	}
}

// TestSendDraft_InactiveSession tests that sends are scoped to the active
// email session.
func TestSendDraft_InactiveSession(t *testing.T) {
	f := newSendFixture(t, twoSupplierItems())
	res, err := ExecuteSendDraft(context.Background(), SendDraftInput{SessionID: "other", DraftID: "other-0"}, f.deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || !strings.Contains(res.Message, "not active") {
		t.Errorf("expected inactive-session result, got %+v", res)
	}
}

// TestSend_UnconfiguredFromAddress tests that nothing is dispatched without a
// configured sender address.
func TestSend_UnconfiguredFromAddress(t *testing.T) {
	f := newSendFixture(t, twoSupplierItems())
	f.deps.FromAddress = ""

	res, err := ExecuteSendAll(context.Background(), SendAllInput{SessionID: "s1"}, f.deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || !strings.Contains(res.Message, "not configured") {
		t.Errorf("expected configuration result, got %+v", res)
	}
	if f.sender.sentCount() != 0 {
		t.Error("expected no deliveries")
	}
}

// TestSendAll_AllSucceed tests the bulk happy path and completion.
func TestSendAll_AllSucceed(t *testing.T) {
	f := newSendFixture(t, twoSupplierItems())
	ch := sessionSentEvents(f.deps.Bus)

	res, err := ExecuteSendAll(context.Background(), SendAllInput{SessionID: "s1"}, f.deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Message != "all emails sent" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if f.sender.sentCount() != 2 {
		t.Errorf("expected 2 deliveries, got %d", f.sender.sentCount())
	}
	if len(f.sessions.markSentCalls) != 1 {
		t.Errorf("expected one MarkSent call, got %v", f.sessions.markSentCalls)
	}
	if f.deps.State.ActiveID() != "" {
		t.Error("expected active email session cleared")
	}
	expectEvent(t, ch, "s1")
}

// TestSendAll_PartialFailure tests that one failing draft keeps the session
// open with per-draft outcomes resolved individually.
func TestSendAll_PartialFailure(t *testing.T) {
	f := newSendFixture(t, twoSupplierItems())
	f.sender.failFor["sales@bolt.co"] = errors.New("mailbox full")
	ch := sessionSentEvents(f.deps.Bus)

	res, err := ExecuteSendAll(context.Background(), SendAllInput{SessionID: "s1"}, f.deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure result")
	}
	if res.Message != "1 out of 2 emails failed to send" {
		t.Errorf("unexpected message: %q", res.Message)
	}
	if res.Session.Drafts[0].Status != draft.StatusSent {
		t.Errorf("expected Acme draft sent, got %s", res.Session.Drafts[0].Status)
	}
	if res.Session.Drafts[1].Status != draft.StatusFailed {
		t.Errorf("expected Bolt Co draft failed, got %s", res.Session.Drafts[1].Status)
	}
	if len(f.sessions.markSentCalls) != 0 {
		t.Error("partially failed session must not be finalized")
	}
	if f.deps.State.ActiveID() != "s1" {
		t.Error("expected email session still active for retry")
	}
	if _, ok, _ := f.cache.Get(context.Background(), state.SlotKey); !ok {
		t.Error("expected cache slot retained")
	}
	expectNoEvent(t, ch)
}

// TestSendAll_SkipsAlreadySent tests that a retry after partial failure
// dispatches only the drafts that are not yet sent.
func TestSendAll_SkipsAlreadySent(t *testing.T) {
	ctx := context.Background()
	f := newSendFixture(t, twoSupplierItems())
	f.sender.failFor["sales@bolt.co"] = errors.New("mailbox full")
	if res, err := ExecuteSendAll(ctx, SendAllInput{SessionID: "s1"}, f.deps); err != nil || res.Success {
		t.Fatalf("expected partial failure, got success=%v err=%v", res.Success, err)
	}
	delivered := f.sender.sentCount()

	delete(f.sender.failFor, "sales@bolt.co")
	res, err := ExecuteSendAll(ctx, SendAllInput{SessionID: "s1"}, f.deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected retry to succeed, got: %s", res.Message)
	}
	if f.sender.sentCount() != delivered+1 {
		t.Errorf("expected exactly one additional delivery, got %d total", f.sender.sentCount())
	}
	if len(f.sessions.markSentCalls) != 1 {
		t.Error("expected completion after the retry")
	}
}

// TestSendAll_EmptyProviderMessageID tests that a silently-accepted send
// without a message ID counts as a failure.
func TestSendAll_EmptyProviderMessageID(t *testing.T) {
	f := newSendFixture(t, twoSupplierItems()[:1])
	f.deps.Sender = blankIDSender{}

	res, err := ExecuteSendAll(context.Background(), SendAllInput{SessionID: "s1"}, f.deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Error("expected missing message ID to fail the send")
	}
	if res.Session.Drafts[0].Status != draft.StatusFailed {
		t.Errorf("expected failed draft, got %s", res.Session.Drafts[0].Status)
	}
}

type blankIDSender struct{}

func (blankIDSender) Send(context.Context, email.SendRequest) (email.SendResult, error) {
	return email.SendResult{}, nil
}

package session

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mtb-digital/banking-assistant/internal/llm"
)

func TestSetSelectedAccountRejectsShortNumber(t *testing.T) {
	m := NewContextManager(nil)
	m.InitializeSession("s1", "01712345678", ChannelWeb)

	err := m.SetSelectedAccount("s1", "5678")
	if !errors.Is(err, ErrInvalidAccountNumber) {
		t.Fatalf("error = %v, want ErrInvalidAccountNumber", err)
	}
	if m.IsAccountSelected("s1") {
		t.Error("short number must not become the selection")
	}
	if m.IsAwaitingPIN("s1") {
		t.Error("failed selection must not set awaiting-PIN")
	}
}

func TestSetSelectedAccountMovesToAwaitingPIN(t *testing.T) {
	m := NewContextManager(nil)
	m.InitializeSession("s1", "01712345678", ChannelWeb)

	if err := m.SetSelectedAccount("s1", "1311002345678"); err != nil {
		t.Fatalf("set selected account: %v", err)
	}

	acct, ok := m.SelectedAccount("s1")
	if !ok || acct != "1311002345678" {
		t.Errorf("selected account = %q, %v", acct, ok)
	}
	if !m.IsAccountSelected("s1") || !m.IsAwaitingPIN("s1") {
		t.Error("selection should set accountSelected and awaitingPIN")
	}
}

func TestSetRetrievedAccountsResetsSelection(t *testing.T) {
	m := NewContextManager(nil)
	m.InitializeSession("s1", "01712345678", ChannelWeb)
	if err := m.SetSelectedAccount("s1", "1311002345678"); err != nil {
		t.Fatalf("set selected account: %v", err)
	}

	m.SetRetrievedAccounts("s1", []AccountRef{
		{AccountNumber: "1308001234567", MaskedAccount: "130800***4567"},
	})

	if _, ok := m.SelectedAccount("s1"); ok {
		t.Error("fresh account list must invalidate prior selection")
	}
	if m.IsAccountSelected("s1") || m.IsAwaitingPIN("s1") {
		t.Error("selection flags must reset on new account list")
	}
	if !m.HasAccounts("s1") {
		t.Error("retrieved accounts should be stored")
	}
}

func TestUpdateContextAutoInitializes(t *testing.T) {
	m := NewContextManager(nil)
	caller := "01712345678"
	ch := ChannelIVR
	m.UpdateContext("fresh", ContextPatch{CallerID: &caller, Channel: &ch})

	got, ok := m.CallerID("fresh")
	if !ok || got != caller {
		t.Errorf("caller id = %q, %v", got, ok)
	}
	if gotCh, _ := m.Channel("fresh"); gotCh != ChannelIVR {
		t.Errorf("channel = %q, want ivr", gotCh)
	}
	if callID, ok := m.CallID("fresh"); !ok || callID == "" {
		t.Error("auto-initialized session should carry a call id")
	}
}

func TestRecordFailedPIN(t *testing.T) {
	m := NewContextManager(nil)
	m.InitializeSession("s1", "", ChannelWeb)

	if got := m.RecordFailedPIN("s1"); got != 1 {
		t.Errorf("first failure count = %d, want 1", got)
	}
	if got := m.RecordFailedPIN("s1"); got != 2 {
		t.Errorf("second failure count = %d, want 2", got)
	}
}

func TestAuthManagerTTL(t *testing.T) {
	m := NewAuthManager(0)
	now := time.Now()
	m.now = func() time.Time { return now }

	if m.IsAuthenticated("s1") {
		t.Error("never-authenticated session must read false")
	}

	m.Authenticate("s1", "1311002345678")
	if !m.IsAuthenticated("s1") {
		t.Error("fresh record should be authenticated")
	}
	if acct, ok := m.AuthenticatedAccount("s1"); !ok || acct != "1311002345678" {
		t.Errorf("authenticated account = %q, %v", acct, ok)
	}

	// Exactly at the TTL boundary the record is still fresh.
	now = now.Add(DefaultAuthTTL)
	if !m.IsAuthenticated("s1") {
		t.Error("record at exactly the TTL should still be fresh")
	}

	now = now.Add(time.Second)
	if m.IsAuthenticated("s1") {
		t.Error("record past the TTL must read unauthenticated")
	}
}

func TestAuthManagerUpdateActivityExtends(t *testing.T) {
	m := NewAuthManager(0)
	now := time.Now()
	m.now = func() time.Time { return now }

	m.Authenticate("s1", "1311002345678")
	now = now.Add(10 * time.Minute)
	m.UpdateActivity("s1")
	now = now.Add(10 * time.Minute)

	if !m.IsAuthenticated("s1") {
		t.Error("activity update should extend the authentication window")
	}

	// UpdateActivity on an unknown session is a no-op.
	m.UpdateActivity("ghost")
	if m.IsAuthenticated("ghost") {
		t.Error("activity update must not create a record")
	}
}

func TestCleanupExpiredIsIdempotent(t *testing.T) {
	m := NewAuthManager(0)
	now := time.Now()
	m.now = func() time.Time { return now }

	m.Authenticate("old", "1311002345678")
	m.Authenticate("fresh", "1308001234567")
	now = now.Add(DefaultAuthTTL + time.Second)
	m.UpdateActivity("fresh")

	expired := m.CleanupExpired()
	if len(expired) != 1 || expired[0] != "old" {
		t.Fatalf("expired = %v, want [old]", expired)
	}

	if again := m.CleanupExpired(); len(again) != 0 {
		t.Errorf("second sweep with no elapsed time = %v, want empty", again)
	}
}

func TestConversationMaterializesSystemPrompt(t *testing.T) {
	m := NewConversationManager("You are a banking assistant.")

	turns := m.History("s1")
	if len(turns) != 1 {
		t.Fatalf("fresh history = %d turns, want 1", len(turns))
	}
	if turns[0].Role != llm.RoleSystem || turns[0].Content != "You are a banking assistant." {
		t.Errorf("first turn = %+v, want system prompt", turns[0])
	}
}

func TestConversationToolTurns(t *testing.T) {
	m := NewConversationManager("prompt")
	m.AddUserMessage("s1", "check my balance")
	m.AddToolCall("s1", llm.ToolCall{ID: "call_1", Name: "validate_account", Input: map[string]interface{}{"account_number": "1311002345678"}})
	m.AddToolCall("s1", llm.ToolCall{ID: "call_2", Name: "validate_pin", Input: map[string]interface{}{"pin": "****"}})
	m.AddToolResponse("s1", "call_1", `{"valid":true}`)

	turns := m.History("s1")
	if len(turns) != 5 {
		t.Fatalf("turns = %d, want 5", len(turns))
	}

	for i, idx := range []int{2, 3} {
		turn := turns[idx]
		if turn.Role != llm.RoleAssistant || len(turn.ToolCalls) != 1 {
			t.Errorf("tool-call turn %d = %+v, want one call per turn", i, turn)
		}
	}
	last := turns[4]
	if last.Role != llm.RoleTool || last.ToolCallID != "call_1" {
		t.Errorf("tool response turn = %+v", last)
	}
}

func TestConversationIsolationAcrossSessions(t *testing.T) {
	m := NewConversationManager("prompt")
	m.AddUserMessage("a", "hello from a")
	m.AddUserMessage("b", "hello from b")

	for _, turn := range m.History("b") {
		if strings.Contains(turn.Content, "hello from a") {
			t.Fatal("turns leaked across sessions")
		}
	}
}

func TestEndConversationAndClearExpired(t *testing.T) {
	m := NewConversationManager("prompt")
	m.AddUserMessage("s1", "hi")
	m.AddUserMessage("s2", "hi")

	m.EndConversation("s1")
	if got := m.History("s1"); len(got) != 1 {
		t.Errorf("ended conversation should rematerialize to 1 turn, got %d", len(got))
	}

	m.ClearExpiredConversations([]string{"s2"})
	if got := m.History("s2"); len(got) != 1 {
		t.Errorf("cleared conversation should rematerialize to 1 turn, got %d", len(got))
	}
}

func TestNewSessionID(t *testing.T) {
	a := NewSessionID()
	b := NewSessionID()
	if !strings.HasPrefix(a, "sess_") {
		t.Errorf("id %q missing sess_ prefix", a)
	}
	if a == b {
		t.Error("ids must be unique")
	}
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	var counter int
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("same")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
	if len(km.entries) != 0 {
		t.Errorf("entries not reclaimed: %d remain", len(km.entries))
	}
}

package session

import (
	"github.com/mtb-digital/banking-assistant/internal/llm"
)

// ConversationManager stores per-session message history for LLM context.
// The first turn of every conversation is the composed system prompt.
type ConversationManager struct {
	store        *shardedStore[[]llm.Message]
	systemPrompt string
}

// NewConversationManager creates a conversation store seeded with the given
// system prompt for new conversations.
func NewConversationManager(systemPrompt string) *ConversationManager {
	return &ConversationManager{
		store:        newShardedStore[[]llm.Message](),
		systemPrompt: systemPrompt,
	}
}

// History returns the turn list, materializing the system prompt turn when
// the conversation does not exist yet.
func (m *ConversationManager) History(sessionID string) []llm.Message {
	var history []llm.Message
	m.store.update(sessionID, func(turns []llm.Message, ok bool) ([]llm.Message, bool) {
		if !ok {
			turns = []llm.Message{{Role: llm.RoleSystem, Content: m.systemPrompt}}
		}
		history = append([]llm.Message(nil), turns...)
		return turns, true
	})
	return history
}

func (m *ConversationManager) append(sessionID string, msg llm.Message) {
	m.store.update(sessionID, func(turns []llm.Message, ok bool) ([]llm.Message, bool) {
		if !ok {
			turns = []llm.Message{{Role: llm.RoleSystem, Content: m.systemPrompt}}
		}
		return append(turns, msg), true
	})
}

// AddUserMessage appends a user turn.
func (m *ConversationManager) AddUserMessage(sessionID, content string) {
	m.append(sessionID, llm.Message{Role: llm.RoleUser, Content: content})
}

// AddAssistantMessage appends an assistant turn.
func (m *ConversationManager) AddAssistantMessage(sessionID, content string) {
	m.append(sessionID, llm.Message{Role: llm.RoleAssistant, Content: content})
}

// AddSystemMessage appends a system turn (operator or state guidance).
func (m *ConversationManager) AddSystemMessage(sessionID, content string) {
	m.append(sessionID, llm.Message{Role: llm.RoleSystem, Content: content})
}

// AddToolCall appends an assistant turn carrying exactly one tool call.
// When the LLM proposes several calls in one turn, each is logged as its own
// turn in call order.
func (m *ConversationManager) AddToolCall(sessionID string, call llm.ToolCall) {
	m.append(sessionID, llm.Message{
		Role:      llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{call},
	})
}

// AddToolResponse appends a tool turn correlated by tool call id.
func (m *ConversationManager) AddToolResponse(sessionID, toolCallID, content string) {
	m.append(sessionID, llm.Message{
		Role:       llm.RoleTool,
		Content:    content,
		ToolCallID: toolCallID,
	})
}

// EndConversation removes the conversation entirely.
func (m *ConversationManager) EndConversation(sessionID string) {
	m.store.delete(sessionID)
}

// ClearExpiredConversations removes conversations for the given session ids.
func (m *ConversationManager) ClearExpiredConversations(ids []string) {
	for _, id := range ids {
		m.store.delete(id)
	}
}

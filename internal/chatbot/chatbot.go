// Package chatbot orchestrates the banking assistant conversation loop:
// restricted-topic screening, the account/PIN authentication funnel, and
// the LLM tool-calling turn.
package chatbot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mtb-digital/banking-assistant/internal/flow"
	"github.com/mtb-digital/banking-assistant/internal/llm"
	"github.com/mtb-digital/banking-assistant/internal/session"
	"github.com/mtb-digital/banking-assistant/internal/telemetry"
	"github.com/mtb-digital/banking-assistant/internal/tools"
)

// Canonical responses. These exact strings are part of the conversational
// contract with the IVR and web frontends.
const (
	restrictedResponse = "I'm sorry, but I can only provide account balance information for standard deposit accounts. " +
		"For inquiries regarding other products like loans, credit cards, or investments, " +
		"please contact our customer support team."

	restrictedOutputResponse = "I'm sorry, but I can only provide account balance information for standard deposit accounts. " +
		"For inquiries regarding other products, please contact our customer support team."

	balancePromptResponse = "To assist you with your account balance, I'll need to verify your account. Please provide the last 4 digits of your account number."

	askPINResponse = "I need your 4-digit PIN to authenticate your account. Please enter only your PIN."

	wrongPINResponse = "Sorry, the PIN you provided is incorrect. Please try again with the correct 4-digit PIN."

	noCallerIDResponse = "I need your mobile number to proceed. Please contact customer support."

	noAccountsResponse = "I'm sorry, but I couldn't find any accounts associated with your phone number."

	sessionErrorResponse = "There was an error with your session. Please start over with your account number."

	identificationErrorResponse = "I'm sorry, but there was an issue with your account identification. Please try again by providing the last 4 digits of your account."

	emptyLLMResponse = "I apologize, but I'm having trouble generating a response. Please try again."

	fallbackResponse = "I'm sorry, but I'm having trouble processing your request right now. Please try again later."
)

const defaultMaxTokens = 1024

// Config wires the chatbot's collaborators.
type Config struct {
	LLM       llm.Client
	Model     string
	MaxTokens int

	Registry *tools.Registry
	Flows    *flow.Manager

	Contexts      *session.ContextManager
	Auth          *session.AuthManager
	Conversations *session.ConversationManager

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// Chatbot processes chat messages for the banking assistant.
type Chatbot struct {
	llm       llm.Client
	model     string
	maxTokens int

	registry *tools.Registry
	flows    *flow.Manager

	contexts *session.ContextManager
	auth     *session.AuthManager
	convos   *session.ConversationManager
	locks    *session.KeyedMutex

	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// New creates a Chatbot from cfg. The LLM client, registry, flow manager
// and session managers are required.
func New(cfg Config) (*Chatbot, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	if cfg.Flows == nil {
		return nil, fmt.Errorf("flow manager is required")
	}
	if cfg.Contexts == nil || cfg.Auth == nil || cfg.Conversations == nil {
		return nil, fmt.Errorf("session managers are required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Chatbot{
		llm:       cfg.LLM,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		registry:  cfg.Registry,
		flows:     cfg.Flows,
		contexts:  cfg.Contexts,
		auth:      cfg.Auth,
		convos:    cfg.Conversations,
		locks:     session.NewKeyedMutex(),
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}, nil
}

// ProcessMessage handles one user message for the session and returns the
// assistant's reply. Internal failures degrade to a fixed apology rather
// than an error so the caller always has something to say to the user.
func (c *Chatbot) ProcessMessage(ctx context.Context, sessionID, message, callerID string, channel session.Channel) (reply string) {
	start := time.Now()
	outcome := "ok"
	logger := telemetry.RequestLogger(c.logger, ctx, sessionID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while processing message", "panic", r)
			reply = fallbackResponse
			outcome = "panic"
		}
		channelName := string(channel)
		if ch, ok := c.contexts.Channel(sessionID); ok {
			channelName = string(ch)
		}
		c.metrics.RecordMessage(channelName, outcome, time.Since(start))
	}()

	unlock := c.locks.Lock(sessionID)
	defer unlock()

	// Sweep auth records past their TTL and drop the associated state.
	// Runs before the context patch so the sweep cannot discard the
	// caller id carried by this message.
	expired := c.auth.CleanupExpired()
	if len(expired) > 0 {
		c.contexts.ClearExpiredSessions(expired)
		c.convos.ClearExpiredConversations(expired)
	}

	c.contexts.UpdateContext(sessionID, session.ContextPatch{
		CallerID: optional(callerID),
		Channel:  optionalChannel(channel),
	})
	c.auth.UpdateActivity(sessionID)

	if ContainsRestrictedKeyword(message) {
		logger.Info("message touches a restricted product")
		outcome = "restricted"
		return restrictedResponse
	}

	if c.auth.IsAuthenticated(sessionID) {
		account, _ := c.auth.AuthenticatedAccount(sessionID)
		if response, ok := c.handleFieldQuery(ctx, sessionID, account, message); ok {
			c.convos.AddAssistantMessage(sessionID, response)
			return response
		}
	}

	if response, ok := c.processAuthenticationState(ctx, sessionID, message, logger); ok {
		return response
	}

	// Unauthenticated balance enquiries start the verification funnel.
	if !c.auth.IsAuthenticated(sessionID) && strings.Contains(strings.ToLower(message), "balance") {
		c.convos.AddAssistantMessage(sessionID, balancePromptResponse)
		return balancePromptResponse
	}

	response, err := c.llmTurn(ctx, sessionID, message, logger)
	if err != nil {
		logger.Error("llm turn failed", "error", err)
		outcome = "error"
		return fallbackResponse
	}
	return response
}

// llmTurn runs the generic tool-calling turn: one completion with tools,
// tool execution, then a follow-up completion to phrase the result.
func (c *Chatbot) llmTurn(ctx context.Context, sessionID, message string, logger *slog.Logger) (string, error) {
	c.convos.AddUserMessage(sessionID, message)
	c.addContextualGuidance(sessionID)

	resp, err := c.chat(ctx, sessionID, c.registry.AllTools())
	if err != nil {
		return "", fmt.Errorf("generate response: %w", err)
	}

	if len(resp.ToolCalls) > 0 {
		logger.Info("model requested tool calls", "count", len(resp.ToolCalls))
		if abort, ok := c.processToolCalls(ctx, sessionID, resp.ToolCalls, logger); ok {
			return abort, nil
		}
		c.addSecurityGuidance(sessionID)

		resp, err = c.chat(ctx, sessionID, nil)
		if err != nil {
			return "", fmt.Errorf("generate final response: %w", err)
		}
	}

	content := resp.Content
	if content == "" {
		content = emptyLLMResponse
	}
	if ContainsRestrictedKeyword(content) {
		logger.Info("model response touched a restricted product, overriding")
		content = restrictedOutputResponse
	}

	c.convos.AddAssistantMessage(sessionID, content)
	return content, nil
}

func (c *Chatbot) chat(ctx context.Context, sessionID string, defs []llm.ToolDefinition) (*llm.ChatResponse, error) {
	resp, err := c.llm.Chat(ctx, llm.ChatRequest{
		Model:     c.model,
		Messages:  c.convos.History(sessionID),
		Tools:     defs,
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return nil, err
	}
	c.metrics.RecordTokens(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	return resp, nil
}

// processAuthenticationState advances the verification funnel. It returns
// the reply and true when the funnel consumed the message.
func (c *Chatbot) processAuthenticationState(ctx context.Context, sessionID, message string, logger *slog.Logger) (string, bool) {
	// Awaiting-PIN wins over digit extraction so a bare 4-digit message is
	// treated as the PIN, not as another account fragment.
	if c.contexts.IsAccountSelected(sessionID) && c.contexts.IsAwaitingPIN(sessionID) && !c.auth.IsAuthenticated(sessionID) {
		return c.handleAwaitingPIN(ctx, sessionID, message, logger), true
	}

	lastFour := ExtractLastFourDigits(message)
	if lastFour == "" {
		return "", false
	}
	return c.handleAccountDigits(ctx, sessionID, lastFour, logger), true
}

func (c *Chatbot) handleAwaitingPIN(ctx context.Context, sessionID, message string, logger *slog.Logger) string {
	pin := ExtractPIN(message)
	if pin == "" {
		c.convos.AddAssistantMessage(sessionID, askPINResponse)
		return askPINResponse
	}

	account, ok := c.contexts.SelectedAccount(sessionID)
	if !ok {
		logger.Error("awaiting PIN with no usable selected account")
		c.contexts.ClearSelectedAccount(sessionID)
		c.convos.AddAssistantMessage(sessionID, identificationErrorResponse)
		return identificationErrorResponse
	}

	response := c.validatePINAndFetchDetails(ctx, sessionID, account, pin, logger)
	c.convos.AddAssistantMessage(sessionID, response)
	return response
}

func (c *Chatbot) handleAccountDigits(ctx context.Context, sessionID, lastFour string, logger *slog.Logger) string {
	callerID, ok := c.contexts.CallerID(sessionID)
	if !ok || callerID == "" {
		logger.Warn("no caller id available for account lookup")
		c.convos.AddAssistantMessage(sessionID, noCallerIDResponse)
		return noCallerIDResponse
	}

	callID, _ := c.contexts.CallID(sessionID)
	result, err := c.executeTool(ctx, "get_accounts_by_mobile", map[string]interface{}{
		"mobile_number": callerID,
		"call_id":       callID,
	})
	if err != nil {
		logger.Error("account lookup failed", "error", err)
		c.convos.AddAssistantMessage(sessionID, fallbackResponse)
		return fallbackResponse
	}

	accounts := accountRefs(result)
	if result["status"] != "success" || len(accounts) == 0 {
		logger.Warn("no accounts found for caller")
		c.convos.AddAssistantMessage(sessionID, noAccountsResponse)
		return noAccountsResponse
	}
	c.contexts.SetRetrievedAccounts(sessionID, accounts)

	for _, acct := range accounts {
		if !strings.HasSuffix(acct.AccountNumber, lastFour) {
			continue
		}
		if err := c.contexts.SetSelectedAccount(sessionID, acct.AccountNumber); err != nil {
			logger.Error("selecting matched account failed", "error", err)
			c.convos.AddAssistantMessage(sessionID, sessionErrorResponse)
			return sessionErrorResponse
		}
		c.convos.AddSystemMessage(sessionID,
			fmt.Sprintf("User confirmed account %s. Now ask for 4-digit PIN to authenticate.", acct.MaskedAccount))
		response := fmt.Sprintf("Thank you for confirming your account %s. For security, please provide your 4-digit PIN.", acct.MaskedAccount)
		c.convos.AddAssistantMessage(sessionID, response)
		return response
	}

	logger.Warn("no account matches provided digits")
	response := fmt.Sprintf("I'm sorry, but I couldn't find an account ending with %s for this phone number. Please check and try again.", lastFour)
	c.convos.AddAssistantMessage(sessionID, response)
	return response
}

// validatePINAndFetchDetails runs the PIN check and, on success, retrieves
// account details. The raw PIN never enters the conversation record.
func (c *Chatbot) validatePINAndFetchDetails(ctx context.Context, sessionID, account, pin string, logger *slog.Logger) string {
	callerID, _ := c.contexts.CallerID(sessionID)
	callID, _ := c.contexts.CallID(sessionID)

	pinResult, err := c.executeTool(ctx, "validate_pin", map[string]interface{}{
		"account_number": account,
		"pin":            pin,
		"mobile_number":  callerID,
		"call_id":        callID,
	})
	if err != nil {
		logger.Error("pin validation failed", "error", err)
		return fallbackResponse
	}

	c.recordToolExchange(sessionID, "pin_validation_call", "validate_pin", map[string]interface{}{
		"account_number": account,
		"pin":            "****",
		"mobile_number":  callerID,
	}, map[string]interface{}{
		"valid":   pinResult["valid"] == true,
		"message": pinResult["message"],
	})

	if pinResult["valid"] != true {
		attempts := c.contexts.RecordFailedPIN(sessionID)
		logger.Warn("incorrect PIN", "failed_attempts", attempts)
		c.metrics.RecordAuth("pin_failed")
		return wrongPINResponse
	}

	c.auth.Authenticate(sessionID, account)
	c.metrics.RecordAuth("success")

	details, err := c.executeTool(ctx, "get_account_details", map[string]interface{}{
		"account_number": account,
		"pin":            pin,
		"mobile_number":  callerID,
		"call_id":        callID,
	})
	if err != nil {
		logger.Error("account details retrieval failed", "error", err)
		return fallbackResponse
	}

	c.recordToolExchange(sessionID, "get_account_details_call", "get_account_details", map[string]interface{}{
		"account_number": account,
		"pin":            "****",
		"mobile_number":  callerID,
	}, details)

	if details["status"] != "success" {
		return fallbackResponse
	}
	data, _ := details["data"].(map[string]interface{})
	return fmt.Sprintf(
		"Thank you for providing your PIN. Here are your account details:\n\n"+
			"- **Current Balance:** %v\n"+
			"- **Currency:** %v\n"+
			"- **Account Status:** %v\n"+
			"- **Last Transaction Date:** %v",
		data["formatted_balance"], data["currency"], data["account_status"], data["last_transaction"])
}

func (c *Chatbot) addContextualGuidance(sessionID string) {
	if c.contexts.HasAccounts(sessionID) && !c.contexts.IsAccountSelected(sessionID) {
		c.convos.AddSystemMessage(sessionID,
			"The user has accounts associated with their phone number. "+
				"Ask them to provide the last 4 digits of their account number to proceed. "+
				"IMPORTANT: DO NOT list or reveal any account numbers or account masks.")
	}
}

func (c *Chatbot) addSecurityGuidance(sessionID string) {
	switch {
	case c.auth.IsAuthenticated(sessionID):
		c.convos.AddSystemMessage(sessionID,
			"Remember to include ALL available account information in your response, "+
				"including balance, currency, account status, and last transaction date if available.")
	case c.contexts.IsAccountSelected(sessionID):
		c.convos.AddSystemMessage(sessionID,
			"The user has selected an account. Ask for their 4-digit PIN to authenticate.")
	case c.contexts.HasAccounts(sessionID):
		c.convos.AddSystemMessage(sessionID,
			"The user has accounts, but hasn't selected one yet. Ask them to provide the "+
				"last 4 digits of their account number. DO NOT list or reveal any account numbers.")
	}
}

// InjectPrompt appends a system prompt to the session's conversation.
func (c *Chatbot) InjectPrompt(sessionID, prompt string) {
	unlock := c.locks.Lock(sessionID)
	defer unlock()
	c.convos.AddSystemMessage(sessionID, prompt)
	c.logger.Info("injected prompt", "session_id", sessionID)
}

// EndSession drops all state held for the session.
func (c *Chatbot) EndSession(sessionID string) {
	unlock := c.locks.Lock(sessionID)
	defer unlock()
	c.convos.EndConversation(sessionID)
	c.auth.EndSession(sessionID)
	c.contexts.EndSession(sessionID)
	c.logger.Info("ended session", "session_id", sessionID)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalChannel(ch session.Channel) *session.Channel {
	if ch == "" {
		return nil
	}
	return &ch
}

// accountRefs converts a mobile lookup result into session account refs.
func accountRefs(result map[string]interface{}) []session.AccountRef {
	raw, _ := result["accounts"].([]map[string]interface{})
	refs := make([]session.AccountRef, 0, len(raw))
	for _, entry := range raw {
		number, _ := entry["account_number"].(string)
		masked, _ := entry["masked_account"].(string)
		refs = append(refs, session.AccountRef{AccountNumber: number, MaskedAccount: masked})
	}
	return refs
}

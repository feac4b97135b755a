package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mtb-digital/banking-assistant/internal/llm"
)

// executeTool dispatches a tool through the registry and records the outcome.
func (c *Chatbot) executeTool(ctx context.Context, name string, args map[string]interface{}) (map[string]interface{}, error) {
	result, err := c.registry.Execute(ctx, name, args)
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordToolCall(name, status)
	return result, err
}

// recordToolExchange appends a tool call and its result to the conversation.
// Callers must pass already-sanitized args: a raw PIN must never reach here.
func (c *Chatbot) recordToolExchange(sessionID, callID, name string, args, result map[string]interface{}) {
	c.convos.AddToolCall(sessionID, llm.ToolCall{ID: callID, Name: name, Input: args})
	payload, err := json.Marshal(result)
	if err != nil {
		payload = []byte(`{"error":"unserializable tool result"}`)
	}
	c.convos.AddToolResponse(sessionID, callID, string(payload))
}

// sanitizeArgs copies args with the PIN masked for conversation storage.
func sanitizeArgs(args map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(args))
	for k, v := range args {
		out[k] = v
	}
	if _, ok := out["pin"]; ok {
		out["pin"] = "****"
	}
	return out
}

// processToolCalls executes a model-requested tool batch. Account validation
// always runs first; if it fails the rest of the batch is abandoned and the
// returned reply (with ok=true) is sent to the user directly.
func (c *Chatbot) processToolCalls(ctx context.Context, sessionID string, calls []llm.ToolCall, logger *slog.Logger) (string, bool) {
	callerID, _ := c.contexts.CallerID(sessionID)
	callID, _ := c.contexts.CallID(sessionID)

	validatedID := ""
	for _, call := range calls {
		if call.Name != "validate_account" {
			continue
		}
		args := copyArgs(call.Input)
		if callerID != "" {
			args["mobile_number"] = callerID
		}
		logger.Info("executing account validation first", "tool", call.Name)

		result, err := c.executeTool(ctx, call.Name, args)
		if err != nil {
			logger.Error("account validation errored", "error", err)
			result = map[string]interface{}{"valid": false, "error": err.Error()}
		}
		c.recordToolExchange(sessionID, call.ID, call.Name, sanitizeArgs(args), result)
		validatedID = call.ID

		if result["valid"] != true {
			logger.Warn("account validation failed, abandoning tool batch")
			reply := invalidAccountReply(args)
			c.convos.AddAssistantMessage(sessionID, reply)
			return reply, true
		}
		c.applyValidatedAccount(sessionID, args, result, logger)
		break
	}

	for _, call := range calls {
		if call.Name == "validate_account" && call.ID == validatedID {
			continue
		}
		args := copyArgs(call.Input)
		switch call.Name {
		case "get_accounts_by_mobile":
			if _, ok := args["call_id"]; !ok {
				args["call_id"] = callID
				args["session_id"] = sessionID
			}
		case "validate_account", "validate_pin", "get_account_details":
			if callerID != "" {
				args["mobile_number"] = callerID
			}
		}

		sanitized := sanitizeArgs(args)
		logger.Info("executing tool", "tool", call.Name)

		result, err := c.executeTool(ctx, call.Name, args)
		if err != nil {
			logger.Error("tool execution failed", "tool", call.Name, "error", err)
			c.recordToolExchange(sessionID, call.ID, call.Name, sanitized, map[string]interface{}{"error": err.Error()})
			continue
		}
		c.convos.AddToolCall(sessionID, llm.ToolCall{ID: call.ID, Name: call.Name, Input: sanitized})
		c.processToolResult(sessionID, call.Name, args, result, call.ID, logger)
	}
	return "", false
}

// invalidAccountReply phrases a validation failure for the user. The backend
// message never reaches the user verbatim.
func invalidAccountReply(args map[string]interface{}) string {
	fragment, _ := args["account_number"].(string)
	if len(fragment) <= 4 && fragment != "" {
		return fmt.Sprintf("I'm sorry, but I couldn't find an account ending with %s associated with your phone number. Please check the last 4 digits of your account number and try again.", fragment)
	}
	return "I'm sorry, but I couldn't verify that account number. Please check and try again."
}

// processToolResult persists the result in the conversation and advances
// session state for the auth-relevant tools.
func (c *Chatbot) processToolResult(sessionID, name string, args, result map[string]interface{}, toolCallID string, logger *slog.Logger) {
	if name == "get_accounts_by_mobile" {
		// The model only learns that accounts exist, never the numbers.
		sanitized := map[string]interface{}{
			"status":         result["status"],
			"message":        result["message"],
			"accounts_found": len(accountRefs(result)) > 0,
		}
		payload, _ := json.Marshal(sanitized)
		c.convos.AddToolResponse(sessionID, toolCallID, string(payload))

		if result["status"] == "success" {
			accounts := accountRefs(result)
			logger.Info("storing retrieved accounts", "count", len(accounts))
			c.contexts.SetRetrievedAccounts(sessionID, accounts)
			c.convos.AddSystemMessage(sessionID, fmt.Sprintf(
				"The system has found %d account(s) associated with the caller's phone number. "+
					"Ask the user to provide the last 4 digits of their account number to confirm which account they want to access. "+
					"IMPORTANT: Do not list or reveal any account numbers to the user. This is a security measure.", len(accounts)))
		}
		return
	}

	payload, _ := json.Marshal(result)
	c.convos.AddToolResponse(sessionID, toolCallID, string(payload))

	switch name {
	case "validate_account":
		if result["valid"] == true {
			c.applyValidatedAccount(sessionID, args, result, logger)
		}
	case "validate_pin":
		if result["valid"] == true {
			account := c.resolveFullAccount(sessionID, args, result)
			logger.Info("PIN validated, session authenticated")
			c.auth.Authenticate(sessionID, account)
			c.metrics.RecordAuth("success")
		} else {
			c.contexts.RecordFailedPIN(sessionID)
			c.metrics.RecordAuth("pin_failed")
		}
	case "get_account_details":
		if result["status"] == "success" {
			if account, ok := args["account_number"].(string); ok && account != "" {
				logger.Info("account details retrieved, session authenticated")
				c.auth.Authenticate(sessionID, account)
			}
		}
	}
}

// applyValidatedAccount marks the validated account as selected, resolving a
// short fragment to the full number first.
func (c *Chatbot) applyValidatedAccount(sessionID string, args, result map[string]interface{}, logger *slog.Logger) {
	account := c.resolveFullAccount(sessionID, args, result)
	if err := c.contexts.SetSelectedAccount(sessionID, account); err != nil {
		logger.Error("cannot select validated account", "error", err)
		c.convos.AddSystemMessage(sessionID,
			"There was an error with the account number validation. Ask the user to try again with the correct account number.")
		return
	}
	logger.Info("account validated and selected, awaiting PIN")
}

// resolveFullAccount resolves the full account number for a tool exchange.
// The backend result wins; otherwise the current selection, the retrieved
// account list, and finally the raw argument are tried in that order.
func (c *Chatbot) resolveFullAccount(sessionID string, args, result map[string]interface{}) string {
	if full, ok := result["account_number"].(string); ok && len(full) >= 10 {
		return full
	}
	fragment, _ := args["account_number"].(string)
	if len(fragment) >= 10 {
		return fragment
	}
	if selected, ok := c.contexts.SelectedAccount(sessionID); ok {
		return selected
	}
	for _, acct := range c.contexts.RetrievedAccounts(sessionID) {
		if strings.HasSuffix(acct.AccountNumber, fragment) {
			return acct.AccountNumber
		}
	}
	return fragment
}

func copyArgs(args map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}

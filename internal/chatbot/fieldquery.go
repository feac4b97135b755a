package chatbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/mtb-digital/banking-assistant/internal/flow"
)

// classifyField maps an authenticated user's question to an account field.
// Returns "" when the message is not a direct field query.
func classifyField(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "balance") || strings.Contains(lower, "how much"):
		return "balance"
	case strings.Contains(lower, "last transaction"):
		return "last_transaction"
	case strings.Contains(lower, "status"):
		return "account_status"
	case strings.Contains(lower, "currency"):
		return "currency"
	case strings.Contains(lower, "account type") || strings.Contains(lower, "type of account"):
		return "account_type"
	}
	return ""
}

// handleFieldQuery answers a direct field question for an authenticated
// session via the account_query flow, bypassing the LLM. It returns ok=false
// when the message is not a field query or the flow could not answer it, in
// which case the normal turn takes over.
func (c *Chatbot) handleFieldQuery(ctx context.Context, sessionID, accountNumber, message string) (string, bool) {
	fieldName := classifyField(message)
	if fieldName == "" {
		return "", false
	}

	callID, _ := c.contexts.CallID(sessionID)
	fctx, err := c.flows.ExecuteFlow(ctx, c.registry, "account_query", map[string]interface{}{
		"account_number": accountNumber,
		"field_name":     fieldName,
		"call_id":        callID,
	})
	if err != nil {
		c.logger.Error("field query flow failed", "session_id", sessionID, "field", fieldName, "error", err)
		return "", false
	}

	fieldResult, ok := stepResult(fctx, "get_account_field")
	if !ok || fieldResult["status"] != "success" {
		return "", false
	}
	value := fieldResult["value"]

	switch fieldName {
	case "balance":
		return fmt.Sprintf("Your current balance is %v.", value), true
	case "last_transaction":
		return fmt.Sprintf("Your last transaction was on %v.", value), true
	case "account_status":
		return fmt.Sprintf("Your account status is '%v'.", value), true
	case "currency":
		if enriched, ok := stepResult(fctx, "get_currency_details"); ok {
			if name, _ := enriched["name"].(string); name != "" {
				return fmt.Sprintf("Your account is denominated in %s (%v).", name, value), true
			}
		}
		return fmt.Sprintf("Your account currency is %v.", value), true
	case "account_type":
		if enriched, ok := stepResult(fctx, "get_account_type_details"); ok {
			if name, _ := enriched["name"].(string); name != "" {
				return fmt.Sprintf("You have a %s (%v).", name, value), true
			}
		}
		return fmt.Sprintf("Your account type is %v.", value), true
	}
	return "", false
}

// stepResult pulls a successful step's tool result out of a finished flow
// context.
func stepResult(fctx map[string]interface{}, step string) (map[string]interface{}, bool) {
	results, ok := fctx[flow.KeyFlowResults].(map[string]interface{})
	if !ok {
		return nil, false
	}
	entry, ok := results[step].(map[string]interface{})
	if !ok || entry["status"] != flow.StatusSuccess {
		return nil, false
	}
	result, ok := entry["result"].(map[string]interface{})
	return result, ok
}

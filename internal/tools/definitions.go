package tools

import (
	"github.com/mtb-digital/banking-assistant/internal/llm"
)

// Tool schema tables. Centralized so the services and the LLM tool list never
// drift apart.

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

func schema(properties map[string]interface{}, required ...string) map[string]interface{} {
	s := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// AuthTools are the schemas owned by the authentication service.
func AuthTools() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        "validate_account",
			Description: "Validates if an account number exists in the system",
			InputSchema: schema(map[string]interface{}{
				"account_number": prop("string", "The account number to validate"),
				"mobile_number":  prop("string", "Optional mobile number for additional validation"),
			}, "account_number"),
		},
		{
			Name:        "validate_pin",
			Description: "Validates if the PIN is correct for the given account number",
			InputSchema: schema(map[string]interface{}{
				"account_number": prop("string", "The account number"),
				"pin":            prop("string", "The PIN to validate"),
				"mobile_number":  prop("string", "Optional mobile number for additional validation"),
			}, "account_number", "pin"),
		},
	}
}

// AccountTools are the schemas owned by the account service.
func AccountTools() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        "get_account_details",
			Description: "Get detailed information about an account",
			InputSchema: schema(map[string]interface{}{
				"account_number": prop("string", "The account number"),
				"pin":            prop("string", "The PIN for the account"),
				"mobile_number":  prop("string", "Optional mobile number for additional validation"),
			}, "account_number", "pin"),
		},
		{
			Name:        "get_account_field",
			Description: "Get a specific field from an authenticated account",
			InputSchema: schema(map[string]interface{}{
				"account_number": prop("string", "The account number"),
				"field_name":     prop("string", "The field to retrieve (e.g., balance, last_transaction, account_status)"),
			}, "account_number", "field_name"),
		},
		{
			Name:        "get_currency_details",
			Description: "Get details about a currency",
			InputSchema: schema(map[string]interface{}{
				"currency_code": prop("string", "The currency code (e.g., USD, EUR)"),
			}, "currency_code"),
		},
		{
			Name:        "get_account_type_details",
			Description: "Get details about an account type",
			InputSchema: schema(map[string]interface{}{
				"account_type": prop("string", "The account type (e.g., checking, savings)"),
			}, "account_type"),
		},
	}
}

// MobileAuthTools are the schemas owned by the mobile-auth service.
func MobileAuthTools() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        "get_accounts_by_mobile",
			Description: "Get account numbers associated with a mobile number",
			InputSchema: schema(map[string]interface{}{
				"mobile_number": prop("string", "The mobile number to lookup accounts for"),
				"call_id":       prop("string", "Optional call ID for tracking purposes"),
			}, "mobile_number"),
		},
	}
}

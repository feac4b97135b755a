// Package services implements the backend service capabilities exposed
// through the tool registry: account data, authentication, and mobile-based
// account discovery.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mtb-digital/banking-assistant/internal/banking"
	"github.com/mtb-digital/banking-assistant/internal/llm"
	"github.com/mtb-digital/banking-assistant/internal/tools"
)

func strArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

// AccountService serves account details, field lookups, and the currency and
// account-type metadata tables.
type AccountService struct {
	client banking.Client
	auth   *AuthService
	logger *slog.Logger
}

// NewAccountService creates the account service. The auth service handles
// the PIN gate on full detail reads.
func NewAccountService(client banking.Client, auth *AuthService, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("account service initialized")
	return &AccountService{client: client, auth: auth, logger: logger}
}

// Domain implements tools.Service.
func (s *AccountService) Domain() string { return "account" }

// Tools implements tools.Service.
func (s *AccountService) Tools() []llm.ToolDefinition { return tools.AccountTools() }

// Execute implements tools.Service.
func (s *AccountService) Execute(ctx context.Context, name string, args map[string]interface{}) (map[string]interface{}, error) {
	switch name {
	case "get_account_details":
		return s.AccountDetails(ctx, strArg(args, "account_number"), strArg(args, "pin"), strArg(args, "mobile_number"), strArg(args, "call_id"))
	case "get_account_field":
		return s.AccountField(ctx, strArg(args, "account_number"), strArg(args, "field_name"), strArg(args, "mobile_number"), strArg(args, "call_id"))
	case "get_currency_details":
		return s.CurrencyDetails(strArg(args, "currency_code")), nil
	case "get_account_type_details":
		return s.AccountTypeDetails(strArg(args, "account_type")), nil
	default:
		return nil, fmt.Errorf("account service: unknown tool %q", name)
	}
}

// AccountDetails validates the PIN and returns the account summary.
func (s *AccountService) AccountDetails(ctx context.Context, accountNumber, pin, mobileNumber, callID string) (map[string]interface{}, error) {
	pinResult, err := s.auth.ValidatePIN(ctx, accountNumber, pin, mobileNumber, callID)
	if err != nil {
		return nil, err
	}
	if pinResult["valid"] != true {
		s.logger.Warn("invalid credentials for account details", "account", banking.MaskAccount(accountNumber))
		return map[string]interface{}{"status": "error", "message": "Invalid credentials"}, nil
	}
	// The PIN check may have resolved a short fragment to the full number.
	if full, ok := pinResult["account_number"].(string); ok && full != "" {
		accountNumber = full
	}

	resp, err := s.client.AccountDetails(ctx, accountNumber, mobileNumber, callID)
	if err != nil {
		return nil, fmt.Errorf("get account details: %w", err)
	}
	if !resp.Status.GStatus || len(resp.Response.ResponseData) == 0 {
		s.logger.Warn("account not found", "account", banking.MaskAccount(accountNumber))
		return map[string]interface{}{"status": "error", "message": "Account not found"}, nil
	}

	detail := resp.Response.ResponseData[0]
	balanceText := strings.TrimSpace(detail.CurrentBalance)
	currency := s.CurrencyDetails(detail.CurrencyCode)
	symbol, _ := currency["symbol"].(string)
	if symbol == "" {
		symbol = detail.CurrencyCode
	}

	balance := 0.0
	formatted := symbol + balanceText
	if f, err := strconv.ParseFloat(balanceText, 64); err == nil {
		balance = f
		formatted = symbol + formatAmount(f)
	}

	accountType := detail.ProductType
	s.logger.Info("account details retrieved",
		"account", banking.MaskAccount(accountNumber), "balance", formatted)

	return map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"balance":           balance,
			"formatted_balance": formatted,
			"currency":          detail.CurrencyCode,
			"account_type":      accountType,
			"account_holder":    detail.AccName,
			"account_status":    detail.AccStatus,
			"last_transaction":  detail.LastTxnDate,
			"account_features":  s.AccountTypeDetails(accountType),
			"currency_details":  currency,
		},
	}, nil
}

var fieldMapping = map[string]func(d banking.AccountDetail) string{
	"balance":          func(d banking.AccountDetail) string { return d.CurrentBalance },
	"account_status":   func(d banking.AccountDetail) string { return d.AccStatus },
	"currency":         func(d banking.AccountDetail) string { return d.CurrencyCode },
	"account_type":     func(d banking.AccountDetail) string { return d.ProductType },
	"last_transaction": func(d banking.AccountDetail) string { return d.LastTxnDate },
}

// AccountField returns one field of the account record. Balance values are
// returned pre-formatted with the currency symbol.
func (s *AccountService) AccountField(ctx context.Context, accountNumber, fieldName, mobileNumber, callID string) (map[string]interface{}, error) {
	resp, err := s.client.AccountDetails(ctx, accountNumber, mobileNumber, callID)
	if err != nil {
		return nil, fmt.Errorf("get account field %s: %w", fieldName, err)
	}
	if !resp.Status.GStatus || len(resp.Response.ResponseData) == 0 {
		return map[string]interface{}{"status": "error", "found": false, "message": "Account not found"}, nil
	}

	detail := resp.Response.ResponseData[0]
	accessor, ok := fieldMapping[fieldName]
	if !ok {
		return map[string]interface{}{
			"status":  "error",
			"found":   false,
			"message": fmt.Sprintf("Field '%s' not found", fieldName),
		}, nil
	}

	value := accessor(detail)
	if fieldName == "balance" {
		currency := s.CurrencyDetails(detail.CurrencyCode)
		symbol, _ := currency["symbol"].(string)
		if symbol == "" {
			symbol = detail.CurrencyCode
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			value = symbol + formatAmount(f)
		} else {
			value = symbol + value
		}
	}

	return map[string]interface{}{
		"status": "success",
		"found":  true,
		"field":  fieldName,
		"value":  value,
	}, nil
}

// CurrencyDetails is a table lookup; unknown codes pass through unchanged.
func (s *AccountService) CurrencyDetails(currencyCode string) map[string]interface{} {
	currencies := map[string][2]string{
		"BDT": {"Bangladeshi Taka", "৳"},
		"USD": {"US Dollar", "$"},
		"EUR": {"Euro", "€"},
	}
	if c, ok := currencies[currencyCode]; ok {
		return map[string]interface{}{
			"status": "success",
			"name":   c[0],
			"symbol": c[1],
			"code":   currencyCode,
		}
	}
	return map[string]interface{}{
		"status": "success",
		"name":   currencyCode,
		"symbol": currencyCode,
		"code":   currencyCode,
	}
}

// AccountTypeDetails is a table lookup; unknown types get a passthrough entry.
func (s *AccountService) AccountTypeDetails(accountType string) map[string]interface{} {
	types := map[string]map[string]interface{}{
		"SB": {
			"name":                   "Savings Account",
			"daily_withdrawal_limit": 50000,
			"monthly_fee":            0.00,
			"interest_rate":          3.5,
			"features":               []string{"Debit Card", "Online Banking", "Mobile Banking"},
		},
		"CA": {
			"name":                   "Current Account",
			"daily_withdrawal_limit": 100000,
			"monthly_fee":            10.00,
			"interest_rate":          0.0,
			"features":               []string{"Checkbook", "Overdraft", "Online Banking"},
		},
		"TD": {
			"name":                   "Time Deposit",
			"daily_withdrawal_limit": 0,
			"monthly_fee":            0.00,
			"interest_rate":          6.5,
			"features":               []string{"Fixed Tenure", "Higher Interest"},
		},
	}
	if t, ok := types[accountType]; ok {
		out := map[string]interface{}{"status": "success"}
		for k, v := range t {
			out[k] = v
		}
		return out
	}
	return map[string]interface{}{
		"status":                 "success",
		"name":                   fmt.Sprintf("Unknown Account Type (%s)", accountType),
		"daily_withdrawal_limit": 0,
		"monthly_fee":            0.00,
		"interest_rate":          0.0,
		"features":               []string{},
	}
}

// formatAmount renders an amount with thousands separators and two decimals.
func formatAmount(f float64) string {
	s := strconv.FormatFloat(f, 'f', 2, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	dot := strings.Index(s, ".")
	intPart, frac := s[:dot], s[dot:]

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}

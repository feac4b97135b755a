package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mtb-digital/banking-assistant/internal/banking"
	"github.com/mtb-digital/banking-assistant/internal/llm"
	"github.com/mtb-digital/banking-assistant/internal/tools"
)

// AuthService validates account numbers and PINs against the banking
// middleware.
type AuthService struct {
	client banking.Client
	logger *slog.Logger
}

// NewAuthService creates the authentication service.
func NewAuthService(client banking.Client, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("authentication service initialized")
	return &AuthService{client: client, logger: logger}
}

// Domain implements tools.Service.
func (s *AuthService) Domain() string { return "authentication" }

// Tools implements tools.Service.
func (s *AuthService) Tools() []llm.ToolDefinition { return tools.AuthTools() }

// Execute implements tools.Service.
func (s *AuthService) Execute(ctx context.Context, name string, args map[string]interface{}) (map[string]interface{}, error) {
	switch name {
	case "validate_account":
		return s.ValidateAccount(ctx, strArg(args, "account_number"), strArg(args, "mobile_number"), strArg(args, "call_id"))
	case "validate_pin":
		return s.ValidatePIN(ctx, strArg(args, "account_number"), strArg(args, "pin"), strArg(args, "mobile_number"), strArg(args, "call_id"))
	default:
		return nil, fmt.Errorf("authentication service: unknown tool %q", name)
	}
}

// resolveShortAccount turns a last-4-digits fragment into the full account
// number via a suffix match against the caller's accounts. A fragment that
// matches nothing must fail here, never go upstream as-is.
func (s *AuthService) resolveShortAccount(ctx context.Context, accountNumber, mobileNumber, callID string) (string, map[string]interface{}, error) {
	// An empty fragment would suffix-match every account; reject it outright.
	if accountNumber == "" {
		return "", map[string]interface{}{
			"valid":   false,
			"message": "Account number is required",
		}, nil
	}
	if mobileNumber == "" || len(accountNumber) > 4 {
		return accountNumber, nil, nil
	}

	s.logger.Warn("short account number received, resolving against caller accounts", "fragment", accountNumber)

	resp, err := s.client.AccountsByMobile(ctx, mobileNumber, callID)
	if err != nil {
		return "", nil, fmt.Errorf("resolve short account: %w", err)
	}
	if !resp.Status.GStatus || len(resp.Response.ResponseData) == 0 {
		return "", map[string]interface{}{
			"valid":   false,
			"message": "No accounts found for this mobile number",
		}, nil
	}

	for _, ref := range resp.Response.ResponseData {
		if ref.Key != "" && len(ref.Key) >= len(accountNumber) &&
			ref.Key[len(ref.Key)-len(accountNumber):] == accountNumber {
			s.logger.Info("resolved short account to full number",
				"fragment", accountNumber, "account", banking.MaskAccount(ref.Key))
			return ref.Key, nil, nil
		}
	}

	s.logger.Warn("no account matches fragment", "fragment", accountNumber)
	return "", map[string]interface{}{
		"valid":   false,
		"message": fmt.Sprintf("No account ending with %s found for this mobile number", accountNumber),
	}, nil
}

// ValidateAccount checks that the account exists. The result carries the
// (possibly resolved) full account number and the account status.
func (s *AuthService) ValidateAccount(ctx context.Context, accountNumber, mobileNumber, callID string) (map[string]interface{}, error) {
	accountNumber, failed, err := s.resolveShortAccount(ctx, accountNumber, mobileNumber, callID)
	if err != nil {
		return nil, err
	}
	if failed != nil {
		failed["account_status"] = nil
		return failed, nil
	}

	resp, err := s.client.AccountDetails(ctx, accountNumber, mobileNumber, callID)
	if err != nil {
		return nil, fmt.Errorf("validate account: %w", err)
	}

	valid := resp.Status.GStatus && len(resp.Response.ResponseData) > 0
	result := map[string]interface{}{
		"valid":          valid,
		"account_number": accountNumber,
	}
	if valid {
		result["message"] = "Account found"
		result["account_status"] = resp.Response.ResponseData[0].AccStatus
	} else {
		result["message"] = "Account not found"
		result["account_status"] = nil
	}

	s.logger.Info("account validation", "account", banking.MaskAccount(accountNumber), "valid", valid)
	return result, nil
}

// ValidatePIN checks the account PIN. The raw PIN is passed to the backend
// and nowhere else; it never appears in the result or the logs.
func (s *AuthService) ValidatePIN(ctx context.Context, accountNumber, pin, mobileNumber, callID string) (map[string]interface{}, error) {
	accountNumber, failed, err := s.resolveShortAccount(ctx, accountNumber, mobileNumber, callID)
	if err != nil {
		return nil, err
	}
	if failed != nil {
		return failed, nil
	}

	resp, err := s.client.VerifyPIN(ctx, accountNumber, pin, mobileNumber, callID)
	if err != nil {
		return nil, fmt.Errorf("validate pin: %w", err)
	}

	valid := resp.Status.GStatus && resp.Response.Status == "Successfull"
	result := map[string]interface{}{
		"valid":          valid,
		"account_number": accountNumber,
	}
	if valid {
		result["message"] = "PIN validated"
	} else {
		result["message"] = "Invalid PIN"
	}

	s.logger.Info("pin validation", "account", banking.MaskAccount(accountNumber), "valid", valid)
	return result, nil
}

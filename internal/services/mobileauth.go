package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/mtb-digital/banking-assistant/internal/banking"
	"github.com/mtb-digital/banking-assistant/internal/llm"
	"github.com/mtb-digital/banking-assistant/internal/tools"
)

// MobileAuthService discovers accounts by mobile number. Concurrent lookups
// for the same normalized number are collapsed into one middleware call.
type MobileAuthService struct {
	client banking.Client
	group  singleflight.Group
	logger *slog.Logger
}

// NewMobileAuthService creates the mobile-auth service.
func NewMobileAuthService(client banking.Client, logger *slog.Logger) *MobileAuthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("mobile authentication service initialized")
	return &MobileAuthService{client: client, logger: logger}
}

// Domain implements tools.Service.
func (s *MobileAuthService) Domain() string { return "mobile_auth" }

// Tools implements tools.Service.
func (s *MobileAuthService) Tools() []llm.ToolDefinition { return tools.MobileAuthTools() }

// Execute implements tools.Service.
func (s *MobileAuthService) Execute(ctx context.Context, name string, args map[string]interface{}) (map[string]interface{}, error) {
	switch name {
	case "get_accounts_by_mobile":
		return s.AccountsByMobile(ctx, strArg(args, "mobile_number"), strArg(args, "call_id"))
	default:
		return nil, fmt.Errorf("mobile auth service: unknown tool %q", name)
	}
}

// AccountsByMobile returns the accounts registered to the mobile number.
// "No accounts" is a status in the result, not an error.
func (s *MobileAuthService) AccountsByMobile(ctx context.Context, mobileNumber, callID string) (map[string]interface{}, error) {
	mobile := banking.NormalizeMobileNumber(mobileNumber)

	v, err, _ := s.group.Do(mobile, func() (interface{}, error) {
		return s.client.AccountsByMobile(ctx, mobile, callID)
	})
	if err != nil {
		return nil, fmt.Errorf("get accounts by mobile: %w", err)
	}
	resp := v.(*banking.AccountsResponse)

	if !resp.Status.GStatus {
		s.logger.Warn("no accounts found for mobile", "mobile", mobile)
		message := resp.Status.GMMsg
		if message == "" {
			message = "No accounts found for this mobile number"
		}
		return map[string]interface{}{
			"status":   "error",
			"message":  message,
			"accounts": []map[string]interface{}{},
		}, nil
	}

	accounts := make([]map[string]interface{}, 0, len(resp.Response.ResponseData))
	for _, ref := range resp.Response.ResponseData {
		accounts = append(accounts, map[string]interface{}{
			"account_number": ref.Key,
			"masked_account": ref.Value,
		})
	}

	s.logger.Info("accounts found for mobile", "mobile", mobile, "count", len(accounts))
	return map[string]interface{}{
		"status":   "success",
		"message":  fmt.Sprintf("Found %d accounts", len(accounts)),
		"accounts": accounts,
	}, nil
}

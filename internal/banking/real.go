package banking

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Endpoint connection names assigned by the middleware.
const (
	connAccountsByMobile = "MWSEIBMN"
	connVerifyTPIN       = "MWVRFTPN"
	connCommonAPI        = "MWSADART"
)

// RealClientConfig configures the middleware HTTP client.
type RealClientConfig struct {
	BaseURL   string
	Secret    string
	ChannelID string
	Timeout   time.Duration
}

// RealClient talks to the banking middleware over HTTP.
type RealClient struct {
	baseURL    string
	secret     string
	channelID  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewRealClient creates a middleware client with a bounded request timeout.
func NewRealClient(cfg RealClientConfig, logger *slog.Logger) *RealClient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ChannelID == "" {
		cfg.ChannelID = "102"
	}
	return &RealClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secret:     cfg.Secret,
		channelID:  cfg.ChannelID,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// get performs a middleware GET and decodes the envelope into out. The
// request URL carries the API secret, so only the path is ever logged.
func (c *RealClient) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	params.Set("secret", c.secret)
	params.Set("rm", "I")

	reqURL := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("banking: build request %s: %w", path, err)
	}

	c.logger.Debug("banking middleware call", "path", path, "connname", params.Get("connname"))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("banking: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("banking: read response %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("banking: %s returned status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("banking: decode response %s: %w", path, err)
	}
	return nil
}

// AccountsByMobile looks up the accounts registered to the mobile number.
func (c *RealClient) AccountsByMobile(ctx context.Context, mobileNumber, callID string) (*AccountsResponse, error) {
	mobile := NormalizeMobileNumber(mobileNumber)
	if callID == "" {
		callID = GenerateCallID()
	}

	params := url.Values{}
	params.Set("callid", callID)
	params.Set("connname", connAccountsByMobile)
	params.Set("cli", mobile)

	var out AccountsResponse
	if err := c.get(ctx, "/account/account-info-by-mobile-no", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyPIN checks the account PIN against the middleware.
func (c *RealClient) VerifyPIN(ctx context.Context, accountNumber, pin, mobileNumber, callID string) (*PINResponse, error) {
	if callID == "" {
		callID = GenerateCallID()
	}
	if mobileNumber == "" {
		mobileNumber = "unknown"
	}

	params := url.Values{}
	params.Set("callid", callID)
	params.Set("connname", connVerifyTPIN)
	params.Set("cli", mobileNumber)
	params.Set("ccn", accountNumber)
	params.Set("crp", pin)

	var out PINResponse
	if err := c.get(ctx, "/card/verify-tpin", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AccountDetails fetches the account detail record.
func (c *RealClient) AccountDetails(ctx context.Context, accountNumber, mobileNumber, callID string) (*DetailsResponse, error) {
	if callID == "" {
		callID = GenerateCallID()
	}
	if mobileNumber == "" {
		mobileNumber = "unknown"
	}

	params := url.Values{}
	params.Set("callid", callID)
	params.Set("connname", connCommonAPI)
	params.Set("cli", mobileNumber)
	params.Set("acc", accountNumber)
	params.Set("channelId", c.channelID)
	params.Set("refNo", GenerateRefNo())

	var out DetailsResponse
	if err := c.get(ctx, "/account/common-api-function", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

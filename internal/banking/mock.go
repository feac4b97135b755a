package banking

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

type mockAccount struct {
	accountNumber string
	maskedAccount string
	pin           string
	mobile        string
	detail        AccountDetail
}

// MockClient serves canned middleware responses for local development and
// tests. Three accounts, all belonging to mobile 01712345678.
type MockClient struct {
	accounts  []mockAccount
	byMobile  map[string][]mockAccount
	byAccount map[string]mockAccount
	logger    *slog.Logger
}

// NewMockClient creates the mock backend with its sample accounts.
func NewMockClient(logger *slog.Logger) *MockClient {
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now()
	accounts := []mockAccount{
		{
			accountNumber: "1311002345678",
			maskedAccount: "131100***5678",
			pin:           "1234",
			mobile:        "01712345678",
			detail: AccountDetail{
				AccNo: "1311002345678", CurrencyCode: "BDT", AccStatus: "OPERATIVE",
				BranchCode: "00057", ProductName: "MTB REGULARSAVINGSSTAFF",
				ProductCode: "1311", ProductSubCode: "1012", IntRate: "2.0000",
				AccName: "AHMED RAHMAN", Mobile: "01712345678",
				AccOpenDate: "2023-06-12", LastTxnDate: now.AddDate(0, 0, -15).Format("2006-01-02"),
				CurrentBalance: "1250.75", UnclearFund: "0.00", AvailableBalance: "1250.75",
				HoldAmount: "0.00", CustomerCIF: "100123456", ModeOfOperation: "SINGLY",
				SMSMobileNo: "1712345678", ProductType: "SB",
			},
		},
		{
			accountNumber: "1308001234567",
			maskedAccount: "130800***4567",
			pin:           "5678",
			mobile:        "01712345678",
			detail: AccountDetail{
				AccNo: "1308001234567", CurrencyCode: "BDT", AccStatus: "OPERATIVE",
				BranchCode: "00012", ProductName: "MTB REGULAR SAVINGS",
				ProductCode: "1308", ProductSubCode: "1010", IntRate: "3.5000",
				AccName: "AHMED RAHMAN", Mobile: "01712345678",
				AccOpenDate: "2023-08-23", LastTxnDate: now.AddDate(0, 0, -10).Format("2006-01-02"),
				CurrentBalance: "8540.25", UnclearFund: "0.00", AvailableBalance: "8540.25",
				HoldAmount: "0.00", CustomerCIF: "100123456", ModeOfOperation: "SINGLY",
				SMSMobileNo: "1712345678", ProductType: "SB",
			},
		},
		{
			accountNumber: "1311003456789",
			maskedAccount: "131100***6789",
			pin:           "9012",
			mobile:        "01712345678",
			detail: AccountDetail{
				AccNo: "1311003456789", CurrencyCode: "BDT", AccStatus: "OPERATIVE",
				BranchCode: "00034", ProductName: "MTB REGULAR SAVINGS",
				ProductCode: "1311", ProductSubCode: "1010", IntRate: "3.5000",
				AccName: "AHMED RAHMAN", Mobile: "01712345678",
				AccOpenDate: "2023-01-05", LastTxnDate: now.AddDate(0, 0, -5).Format("2006-01-02"),
				CurrentBalance: "25480.50", UnclearFund: "0.00", AvailableBalance: "25480.50",
				HoldAmount: "0.00", CustomerCIF: "100123456", ModeOfOperation: "SINGLY",
				SMSMobileNo: "1712345678", ProductType: "SB",
			},
		},
	}

	c := &MockClient{
		accounts:  accounts,
		byMobile:  make(map[string][]mockAccount),
		byAccount: make(map[string]mockAccount),
		logger:    logger,
	}
	for _, a := range accounts {
		c.byMobile[a.mobile] = append(c.byMobile[a.mobile], a)
		c.byAccount[a.accountNumber] = a
	}
	logger.Info("initialized mock banking client", "accounts", len(accounts))
	return c
}

func logID() int64 {
	return 400000000 + rand.Int63n(100000000)
}

// AccountsByMobile returns the accounts registered to the mobile number.
func (c *MockClient) AccountsByMobile(_ context.Context, mobileNumber, callID string) (*AccountsResponse, error) {
	mobile := NormalizeMobileNumber(mobileNumber)
	if callID == "" {
		callID = GenerateCallID()
	}
	c.logger.Info("mock account lookup", "mobile", mobile, "call_id", callID)

	accounts := c.byMobile[mobile]
	resp := &AccountsResponse{}
	resp.Response.LogID = logID()

	if len(accounts) == 0 {
		resp.Status = Status{GMsg: "ERROR", GStatus: false, GCode: 404, GMCode: "2001", GMMsg: "No accounts found for this mobile number"}
		resp.Response.ResCode = "404"
		resp.Response.ResMsg = "No accounts found"
		resp.Response.ResponseData = []AccountRef{}
		return resp, nil
	}

	resp.Status = Status{GMsg: "OK", GStatus: true, GCode: 200, GMCode: "2000", GMMsg: "Service extensive info by mobile number able to read successfully"}
	resp.Response.NoOfRows = 1
	resp.Response.ResCode = "000"
	resp.Response.ResMsg = "Request Successful"
	for _, a := range accounts {
		resp.Response.ResponseData = append(resp.Response.ResponseData, AccountRef{
			Key:   a.accountNumber,
			Value: a.maskedAccount,
		})
	}
	return resp, nil
}

// VerifyPIN checks the PIN against the sample account.
func (c *MockClient) VerifyPIN(_ context.Context, accountNumber, pin, mobileNumber, callID string) (*PINResponse, error) {
	if callID == "" {
		callID = GenerateCallID()
	}
	// Raw PIN never hits the log.
	c.logger.Info("mock pin verification", "account", MaskAccount(accountNumber), "call_id", callID)

	resp := &PINResponse{}
	account, ok := c.byAccount[accountNumber]
	if ok && account.pin == pin {
		resp.Status = Status{GMsg: "OK", GStatus: true, GCode: 200, GMCode: "3035", GMMsg: "Verify Tpin unable to read"}
		resp.Response.Status = "Successfull"
		resp.Response.Reason = "NA"
		return resp, nil
	}

	resp.Status = Status{GMsg: "ERROR", GStatus: false, GCode: 400, GMCode: "3036", GMMsg: "Invalid PIN"}
	resp.Response.Status = "Failed"
	resp.Response.Reason = "Invalid PIN"
	return resp, nil
}

// AccountDetails returns the detail record for the account.
func (c *MockClient) AccountDetails(_ context.Context, accountNumber, mobileNumber, callID string) (*DetailsResponse, error) {
	if callID == "" {
		callID = GenerateCallID()
	}
	refNo := GenerateRefNo()
	c.logger.Info("mock account details", "account", MaskAccount(accountNumber), "call_id", callID)

	resp := &DetailsResponse{}
	resp.Response.LogID = logID()
	resp.Response.ServiceID = refNo
	resp.Response.TimeStamp = time.Now().Format("2006-01-02 15:04:05")

	account, ok := c.byAccount[accountNumber]
	if !ok {
		resp.Status = Status{GMsg: "ERROR", GStatus: false, GCode: 404, GMCode: "2066", GMMsg: "Account not found"}
		resp.Response.ResCode = "404"
		resp.Response.ResMsg = "Account not found."
		resp.Response.Msg = "Account not found"
		resp.Response.ResponseData = []AccountDetail{}
		return resp, nil
	}

	resp.Status = Status{GMsg: "OK", GStatus: true, GCode: 200, GMCode: "2065", GMMsg: "Account Statement From DB able to read successfully"}
	resp.Response.ResCode = "000"
	resp.Response.ResMsg = "Successful."
	resp.Response.ResponseData = []AccountDetail{account.detail}
	return resp, nil
}

// Package banking defines the middleware banking API client: account lookup
// by mobile number, PIN verification, and account details. Responses use the
// middleware envelope (status + response) as delivered by the upstream.
package banking

import "context"

// Status is the middleware envelope status block.
type Status struct {
	GMsg    string `json:"gmsg"`
	GStatus bool   `json:"gstatus"`
	GCode   int    `json:"gcode"`
	GMCode  string `json:"gmcode"`
	GMMsg   string `json:"gmmsg"`
}

// AccountRef is one entry of an account-by-mobile lookup: the full account
// number keyed against its masked display form.
type AccountRef struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// AccountsResponse is the envelope for account-info-by-mobile-no.
type AccountsResponse struct {
	Status   Status `json:"status"`
	Response struct {
		GData        []interface{} `json:"gdata"`
		LogID        int64         `json:"logId"`
		NoOfRows     int           `json:"noOfRows"`
		ResCode      string        `json:"resCode"`
		ResMsg       string        `json:"resMsg"`
		ResponseData []AccountRef  `json:"responseData"`
	} `json:"response"`
}

// PINResponse is the envelope for verify-tpin.
type PINResponse struct {
	Status   Status `json:"status"`
	Response struct {
		GData  []interface{} `json:"gdata"`
		Status string        `json:"Status"`
		Reason string        `json:"Reason"`
	} `json:"response"`
}

// AccountDetail is the detail record returned by common-api-function.
// Every field arrives as a string from the middleware, balances included.
type AccountDetail struct {
	AccNo            string `json:"accNo"`
	CurrencyCode     string `json:"currencyCode"`
	AccStatus        string `json:"accStatus"`
	BranchCode       string `json:"branchCode"`
	ProductName      string `json:"productName"`
	ProductCode      string `json:"productCode"`
	ProductSubCode   string `json:"productSubCode"`
	IntRate          string `json:"intRate"`
	AccName          string `json:"accName"`
	Mobile           string `json:"mobile"`
	AccOpenDate      string `json:"accOpenDate"`
	LastTxnDate      string `json:"lastTxnDate"`
	CurrentBalance   string `json:"currentBalance"`
	UnclearFund      string `json:"unclearFund"`
	AvailableBalance string `json:"availableBalance"`
	HoldAmount       string `json:"holdAmount"`
	CustomerCIF      string `json:"customerCIF"`
	ModeOfOperation  string `json:"modeOfOperation"`
	SMSMobileNo      string `json:"smsMobileNo"`
	ProductType      string `json:"productType"`
	MaturityDate     string `json:"maturityDate"`
}

// DetailsResponse is the envelope for common-api-function account details.
type DetailsResponse struct {
	Status   Status `json:"status"`
	Response struct {
		GData        []interface{}   `json:"gdata"`
		ResCode      string          `json:"resCode"`
		ResMsg       string          `json:"resMsg"`
		LogID        int64           `json:"logId"`
		ServiceID    string          `json:"serviceId"`
		TimeStamp    string          `json:"timeStamp"`
		Msg          string          `json:"msg,omitempty"`
		ResponseData []AccountDetail `json:"responseData"`
	} `json:"response"`
}

// Client is the banking middleware boundary. "No accounts" and "invalid PIN"
// come back as unsuccessful envelopes, not errors; errors are reserved for
// transport and decoding failures.
type Client interface {
	AccountsByMobile(ctx context.Context, mobileNumber, callID string) (*AccountsResponse, error)
	VerifyPIN(ctx context.Context, accountNumber, pin, mobileNumber, callID string) (*PINResponse, error)
	AccountDetails(ctx context.Context, accountNumber, mobileNumber, callID string) (*DetailsResponse, error)
}

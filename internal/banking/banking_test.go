package banking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizeMobileNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"01712345678", "01712345678"},
		{"8801712345678", "01712345678"},
		{"+880 1712-345678", "01712345678"},
		{"1712345678", "01712345678"},
		{"017 1234 5678", "01712345678"},
	}
	for _, tt := range tests {
		if got := NormalizeMobileNumber(tt.in); got != tt.want {
			t.Errorf("NormalizeMobileNumber(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaskAccount(t *testing.T) {
	if got := MaskAccount("1311002345678"); got != "131100***5678" {
		t.Errorf("MaskAccount = %q, want 131100***5678", got)
	}
	if got := MaskAccount("5678"); got != "****" {
		t.Errorf("short MaskAccount = %q, want ****", got)
	}
}

func TestMockAccountsByMobile(t *testing.T) {
	c := NewMockClient(nil)
	ctx := context.Background()

	resp, err := c.AccountsByMobile(ctx, "01712345678", "")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !resp.Status.GStatus {
		t.Fatal("expected success status")
	}
	if len(resp.Response.ResponseData) != 3 {
		t.Fatalf("accounts = %d, want 3", len(resp.Response.ResponseData))
	}
	if resp.Response.ResponseData[0].Key != "1311002345678" || resp.Response.ResponseData[0].Value != "131100***5678" {
		t.Errorf("first account = %+v", resp.Response.ResponseData[0])
	}

	// Country-code form resolves to the same accounts.
	intl, err := c.AccountsByMobile(ctx, "8801712345678", "")
	if err != nil {
		t.Fatalf("intl lookup: %v", err)
	}
	if len(intl.Response.ResponseData) != 3 {
		t.Errorf("normalized lookup accounts = %d, want 3", len(intl.Response.ResponseData))
	}

	// Unknown number: unsuccessful envelope, not an error.
	empty, err := c.AccountsByMobile(ctx, "01999999999", "")
	if err != nil {
		t.Fatalf("empty lookup: %v", err)
	}
	if empty.Status.GStatus || len(empty.Response.ResponseData) != 0 {
		t.Errorf("empty lookup = %+v", empty)
	}
}

func TestMockVerifyPIN(t *testing.T) {
	c := NewMockClient(nil)
	ctx := context.Background()

	ok, err := c.VerifyPIN(ctx, "1311002345678", "1234", "01712345678", "")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok.Status.GStatus || ok.Response.Status != "Successfull" {
		t.Errorf("valid pin response = %+v", ok)
	}

	bad, err := c.VerifyPIN(ctx, "1311002345678", "0000", "01712345678", "")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if bad.Status.GStatus || bad.Response.Reason != "Invalid PIN" {
		t.Errorf("invalid pin response = %+v", bad)
	}

	ghost, err := c.VerifyPIN(ctx, "9999999999999", "1234", "", "")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ghost.Status.GStatus {
		t.Error("unknown account must fail pin verification")
	}
}

func TestMockAccountDetails(t *testing.T) {
	c := NewMockClient(nil)

	resp, err := c.AccountDetails(context.Background(), "1311002345678", "01712345678", "")
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if !resp.Status.GStatus || len(resp.Response.ResponseData) != 1 {
		t.Fatalf("details response = %+v", resp)
	}
	d := resp.Response.ResponseData[0]
	if d.CurrentBalance != "1250.75" || d.CurrencyCode != "BDT" || d.AccStatus != "OPERATIVE" {
		t.Errorf("detail = %+v", d)
	}

	missing, err := c.AccountDetails(context.Background(), "0000000000000", "", "")
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if missing.Status.GStatus {
		t.Error("unknown account must return unsuccessful envelope")
	}
}

func TestRealClientRequestShape(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		var resp PINResponse
		resp.Status = Status{GMsg: "OK", GStatus: true, GCode: 200}
		resp.Response.Status = "Successfull"
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewRealClient(RealClientConfig{BaseURL: srv.URL, Secret: "topsecret"}, nil)
	resp, err := c.VerifyPIN(context.Background(), "1311002345678", "1234", "01712345678", "call-1")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !resp.Status.GStatus {
		t.Errorf("response = %+v", resp)
	}

	if gotPath != "/card/verify-tpin" {
		t.Errorf("path = %q", gotPath)
	}
	for k, want := range map[string]string{
		"secret":   "topsecret",
		"rm":       "I",
		"connname": connVerifyTPIN,
		"cli":      "01712345678",
		"ccn":      "1311002345678",
		"crp":      "1234",
		"callid":   "call-1",
	} {
		if gotQuery[k] != want {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], want)
		}
	}
}

func TestRealClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewRealClient(RealClientConfig{BaseURL: srv.URL, Secret: "topsecret"}, nil)
	_, err := c.AccountsByMobile(context.Background(), "01712345678", "")
	if err == nil {
		t.Fatal("expected error for upstream 502")
	}
	if strings.Contains(err.Error(), "topsecret") {
		t.Error("error text must not leak the API secret")
	}
}

package banking

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"
)

var nonDigits = regexp.MustCompile(`\D`)

// NormalizeMobileNumber reduces a mobile number to the local dialing form:
// digits only, Bangladesh country code (880) stripped, leading 0 restored
// for 10-digit numbers.
func NormalizeMobileNumber(mobileNumber string) string {
	n := nonDigits.ReplaceAllString(mobileNumber, "")
	if strings.HasPrefix(n, "880") {
		n = n[3:]
	}
	if !strings.HasPrefix(n, "0") && len(n) == 10 {
		n = "0" + n
	}
	return n
}

// GenerateCallID creates a middleware call id: unix timestamp plus a random
// nine-digit suffix.
func GenerateCallID() string {
	return fmt.Sprintf("%d%d", time.Now().Unix(), 100000000+rand.Intn(900000000))
}

// GenerateRefNo creates a middleware reference number.
func GenerateRefNo() string {
	return fmt.Sprintf("%sAHw%d", time.Now().Format("20060102150405"), 10+rand.Intn(90))
}

// MaskAccount redacts the middle of an account number, keeping the first six
// and last four digits (e.g. 131100***5678).
func MaskAccount(accountNumber string) string {
	if len(accountNumber) < 10 {
		return strings.Repeat("*", len(accountNumber))
	}
	return accountNumber[:6] + "***" + accountNumber[len(accountNumber)-4:]
}

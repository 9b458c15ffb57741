package sms

import (
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
)

type SMSProvider interface {
	SendSMS(phone, message string) error
}

// MockSMSProvider prints the message to the log instead of dispatching it.
// Used whenever Twilio credentials are not configured.
type MockSMSProvider struct{}

func NewMockSMSProvider() *MockSMSProvider {
	return &MockSMSProvider{}
}

func (p *MockSMSProvider) SendSMS(phone, message string) error {
	log.Println("===== SMS SIMULATION MODE =====")
	log.Printf("Phone: %s", phone)
	log.Printf("Message: %s", message)
	log.Println("===============================")
	return nil
}

// TwilioProvider dispatches through the Twilio REST API.
type TwilioProvider struct {
	AccountSID string
	AuthToken  string
	From       string
	client     *http.Client
}

func NewTwilioProvider(accountSID, authToken, from string) *TwilioProvider {
	return &TwilioProvider{
		AccountSID: accountSID,
		AuthToken:  authToken,
		From:       from,
		client:     http.DefaultClient,
	}
}

func (p *TwilioProvider) SendSMS(phone, message string) error {
	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", p.AccountSID)

	form := url.Values{}
	form.Set("To", phone)
	form.Set("From", p.From)
	form.Set("Body", message)

	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(p.AccountSID, p.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms provider returned status %d", resp.StatusCode)
	}

	return nil
}

// GenerateVerificationCode returns a 6-digit one-time code.
func GenerateVerificationCode() string {
	return fmt.Sprintf("%06d", 100000+rand.Intn(900000))
}

// FormatPhoneNumber normalizes user input to E.164-ish form.
// Bare 10-digit numbers are assumed to be US.
func FormatPhoneNumber(phone string) string {
	cleaned := digitsOnly(phone)

	switch {
	case len(cleaned) == 10:
		return "+1" + cleaned
	case len(cleaned) == 11:
		return "+" + cleaned
	case len(cleaned) > 11:
		return "+1" + cleaned[len(cleaned)-10:]
	case len(cleaned) >= 7:
		return "+1" + cleaned
	}

	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+" + cleaned
}

// ValidatePhoneNumber accepts 7 to 15 digits (international standard).
func ValidatePhoneNumber(phone string) bool {
	n := len(digitsOnly(phone))
	return n >= 7 && n <= 15
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

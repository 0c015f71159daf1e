package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

// TwilioSender delivers SMS through the Twilio Messages API.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
}

// NewTwilioSender builds a TwilioSender with a bounded request timeout.
func NewTwilioSender(accountSID, authToken, from string, timeout time.Duration) *TwilioSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    twilioBaseURL,
		client:     &http.Client{Timeout: timeout},
	}
}

// Configured reports whether credentials are present.
func (t *TwilioSender) Configured() bool {
	return t != nil && t.accountSID != "" && t.authToken != "" && t.from != ""
}

// SendSMS posts one message. All failures come back as a result.
func (t *TwilioSender) SendSMS(ctx context.Context, msg SMSMessage) SMSResult {
	if !t.Configured() {
		return SMSResult{Err: "twilio credentials not configured"}
	}

	form := url.Values{}
	form.Set("To", msg.To)
	form.Set("From", t.from)
	form.Set("Body", msg.Body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", t.baseURL, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return SMSResult{Err: err.Error()}
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return SMSResult{Err: fmt.Sprintf("twilio request: %v", err)}
	}
	defer resp.Body.Close()

	var out struct {
		SID     string `json:"sid"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return SMSResult{Err: fmt.Sprintf("twilio decode: %v", err)}
	}
	if resp.StatusCode >= 300 {
		detail := out.Message
		if detail == "" {
			detail = resp.Status
		}
		return SMSResult{Err: fmt.Sprintf("twilio send failed: %s", detail)}
	}
	return SMSResult{Success: true, SID: out.SID}
}

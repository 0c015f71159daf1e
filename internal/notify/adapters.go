package notify

import "context"

// EmailMessage is one outbound email; To tolerates multiple recipients for
// internal alerts.
type EmailMessage struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// EmailResult reports a provider outcome without raising it as an error.
type EmailResult struct {
	Success bool
	ID      string
	Err     string
}

// SMSMessage is one outbound text message.
type SMSMessage struct {
	To   string
	Body string
}

// SMSResult reports a provider outcome without raising it as an error.
type SMSResult struct {
	Success bool
	SID     string
	Err     string
}

// EmailSender is the email channel adapter.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) EmailResult
}

// SMSSender is the SMS channel adapter.
type SMSSender interface {
	SendSMS(ctx context.Context, msg SMSMessage) SMSResult
}

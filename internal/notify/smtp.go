package notify

import (
	"context"
	"fmt"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SMTPSender delivers email through a plain SMTP relay.
type SMTPSender struct {
	Host    string
	Port    int
	From    string
	Timeout time.Duration
}

// NewSMTPSender builds an SMTPSender with a bounded dial timeout.
func NewSMTPSender(host string, port int, from string, timeout time.Duration) *SMTPSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SMTPSender{Host: host, Port: port, From: from, Timeout: timeout}
}

// SendEmail sends one multipart (text + html) message. Failures are returned
// as a result, never as a panic or error that could abort sibling channels.
func (s *SMTPSender) SendEmail(ctx context.Context, msg EmailMessage) EmailResult {
	if len(msg.To) == 0 {
		return EmailResult{Err: "no recipients"}
	}

	id := uuid.NewString()
	body, err := s.buildMessage(id, msg)
	if err != nil {
		return EmailResult{Err: err.Error()}
	}

	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	deadline := time.Now().Add(s.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	conn, err := (&net.Dialer{Deadline: deadline}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return EmailResult{Err: fmt.Sprintf("smtp dial: %v", err)}
	}
	defer conn.Close()
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		return EmailResult{Err: fmt.Sprintf("smtp handshake: %v", err)}
	}
	defer client.Close()

	if err := client.Mail(s.From); err != nil {
		return EmailResult{Err: fmt.Sprintf("smtp mail: %v", err)}
	}
	for _, to := range msg.To {
		if err := client.Rcpt(to); err != nil {
			return EmailResult{Err: fmt.Sprintf("smtp rcpt %s: %v", to, err)}
		}
	}
	w, err := client.Data()
	if err != nil {
		return EmailResult{Err: fmt.Sprintf("smtp data: %v", err)}
	}
	if _, err := w.Write([]byte(body)); err != nil {
		return EmailResult{Err: fmt.Sprintf("smtp write: %v", err)}
	}
	if err := w.Close(); err != nil {
		return EmailResult{Err: fmt.Sprintf("smtp close: %v", err)}
	}
	_ = client.Quit()

	return EmailResult{Success: true, ID: id}
}

func (s *SMTPSender) buildMessage(id string, msg EmailMessage) (string, error) {
	boundary := "ledgerflow-" + id

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Message-ID: <%s@ledgerflow>\r\n", id)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	for _, part := range []struct{ ctype, content string }{
		{"text/plain; charset=utf-8", msg.Text},
		{"text/html; charset=utf-8", msg.HTML},
	} {
		if part.content == "" {
			continue
		}
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		fmt.Fprintf(&b, "Content-Type: %s\r\n", part.ctype)
		b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
		qp := quotedprintable.NewWriter(&b)
		if _, err := qp.Write([]byte(part.content)); err != nil {
			return "", err
		}
		if err := qp.Close(); err != nil {
			return "", err
		}
		b.WriteString("\r\n")
	}
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return b.String(), nil
}

// Package mailer sends outreach email over SMTP or Microsoft Graph.
package mailer

import (
	"context"
	"fmt"
	"strings"
)

// Message is one outbound email.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Sender delivers one message. Implementations: SMTPSender, GraphSender.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// buildRFC822 renders the message as a plain-text RFC 822 payload.
func buildRFC822(msg Message) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", msg.From)
	fmt.Fprintf(&sb, "To: %s\r\n", msg.To)
	fmt.Fprintf(&sb, "Subject: %s\r\n", msg.Subject)
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(sb.String())
}

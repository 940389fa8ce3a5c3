package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/rotisserie/eris"
)

// SMTPSender delivers mail through an authenticated SMTP relay. The standard
// library client is used directly; none of the repos around us carry a mail
// library and the plain-text sends here do not need one.
type SMTPSender struct {
	host     string
	port     int
	auth     smtp.Auth
	from     string
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates an SMTP sender. Username may be empty for
// unauthenticated relays.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{
		host:     host,
		port:     port,
		auth:     auth,
		from:     from,
		sendMail: smtp.SendMail,
	}
}

// Send delivers the message. The context is checked before dialing; net/smtp
// does not support mid-send cancellation.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "smtp: context done")
	}
	if msg.From == "" {
		msg.From = s.from
	}
	if msg.To == "" {
		return eris.New("smtp: message has no recipient")
	}

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	if err := s.sendMail(addr, s.auth, msg.From, []string{msg.To}, buildRFC822(msg)); err != nil {
		return eris.Wrapf(err, "smtp: send to %s", msg.To)
	}
	return nil
}

// Package mailer sends transactional email over SMTP.
package mailer

import (
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"gopkg.in/gomail.v2"
)

// DefaultTimeout bounds a whole SMTP exchange when SMTP.Timeout is unset.
const DefaultTimeout = 30 * time.Second

// Sender is the outbound email contract. Delivery is best-effort.
type Sender interface {
	SendEmail(to, subject, htmlBody, textBody string) error
}

type SMTP struct {
	Server   string
	Port     int
	User     string
	Password string
	From     string
	// Timeout is the deadline for dialing and the full conversation with the
	// server, so a stalled relay cannot block the caller.
	Timeout time.Duration
}

// SendEmail sends a plain text body with an HTML alternative. The connection
// is upgraded to STARTTLS when the server offers it; port 465 uses implicit TLS.
func (s *SMTP) SendEmail(to, subject, htmlBody, textBody string) error {
	m := s.compose(to, subject, htmlBody, textBody)

	if err := gomail.Send(gomail.SendFunc(s.deliver), m); err != nil {
		log.Printf("[mailer] send %q to %s failed: %v", subject, to, err)
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (s *SMTP) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultTimeout
}

func (s *SMTP) deliver(from string, to []string, msg io.WriterTo) error {
	timeout := s.timeout()
	addr := net.JoinHostPort(s.Server, strconv.Itoa(s.Port))
	tlsConfig := &tls.Config{ServerName: s.Server}

	dialer := &net.Dialer{Timeout: timeout}
	var conn net.Conn
	var err error
	if s.Port == 465 {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
	} else {
		conn, err = dialer.Dial("tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	// The deadline carries over to the TLS conn StartTLS wraps around conn.
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		conn.Close()
		return err
	}

	c, err := smtp.NewClient(conn, s.Server)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok && s.Port != 465 {
		if err := c.StartTLS(tlsConfig); err != nil {
			return err
		}
	}
	if s.User != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", s.User, s.Password, s.Server)); err != nil {
				return err
			}
		}
	}

	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := msg.WriteTo(w); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (s *SMTP) compose(to, subject, htmlBody, textBody string) *gomail.Message {
	from := s.From
	if from == "" {
		from = s.User
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", from, "Study Group Hub")
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	if htmlBody != "" {
		m.AddAlternative("text/html", htmlBody)
	}
	return m
}

// NoEmail is used when SMTP is not configured.
type NoEmail struct{}

func (NoEmail) SendEmail(to, subject, htmlBody, textBody string) error {
	return nil
}

package mailing

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/ignite/report-runner/internal/config"
)

// implicitTLSPort is the submission port that expects TLS from the first byte.
const implicitTLSPort = 465

// SMTPTransport submits messages to an SMTP server with STARTTLS and PLAIN
// authentication. Credentials are only sent over TLS unless TLS verification
// is explicitly skipped for a trusted relay.
type SMTPTransport struct {
	host       string
	port       int
	username   string
	password   string
	skipVerify bool
	timeout    time.Duration
}

// NewSMTPTransport creates a transport from the mail settings.
func NewSMTPTransport(cfg config.MailConfig) *SMTPTransport {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SMTPTransport{
		host:       cfg.Host,
		port:       cfg.Port,
		username:   cfg.User,
		password:   cfg.Password,
		skipVerify: cfg.TLSSkipVerify,
		timeout:    timeout,
	}
}

// Send performs one SMTP transaction with a RCPT command per recipient.
func (t *SMTPTransport) Send(ctx context.Context, from string, recipients []string, msg []byte) error {
	if t.host == "" {
		return fmt.Errorf("SMTP host not configured")
	}
	addr := net.JoinHostPort(t.host, strconv.Itoa(t.port))
	tlsCfg := &tls.Config{ServerName: t.host, InsecureSkipVerify: t.skipVerify}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	dialer := &net.Dialer{Timeout: t.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("SMTP connect to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	if t.port == implicitTLSPort {
		conn = tls.Client(conn, tlsCfg)
	}

	c, err := smtp.NewClient(conn, t.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("SMTP client: %w", err)
	}
	defer c.Close()

	secure := t.port == implicitTLSPort
	if ok, _ := c.Extension("STARTTLS"); ok && !secure {
		if err := c.StartTLS(tlsCfg); err != nil {
			return fmt.Errorf("STARTTLS: %w", err)
		}
		secure = true
	}
	if t.username != "" {
		if !secure && !t.skipVerify {
			return fmt.Errorf("%s does not offer STARTTLS, refusing to send credentials in cleartext", addr)
		}
		if err := c.Auth(&plainAuth{user: t.username, pass: t.password}); err != nil {
			return fmt.Errorf("AUTH: %w", err)
		}
	}

	if err := c.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	for _, rcpt := range recipients {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO: %w", err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("DATA close: %w", err)
	}
	return c.Quit()
}

// plainAuth implements smtp.Auth without the TLS requirement that
// smtp.PlainAuth enforces, for relays on private networks.
type plainAuth struct {
	user, pass string
}

func (a *plainAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	return "PLAIN", []byte("\x00" + a.user + "\x00" + a.pass), nil
}

func (a *plainAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	return nil, nil
}

package mailing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ignite/report-runner/internal/config"
	"github.com/ignite/report-runner/internal/domain"
	"github.com/ignite/report-runner/internal/pkg/logger"
)

// Transport delivers a rendered message to every envelope recipient.
type Transport interface {
	Send(ctx context.Context, from string, recipients []string, msg []byte) error
}

// Renderer produces an HTML body from a named template.
type Renderer interface {
	Render(name string, ctx map[string]any) (string, error)
}

// Notifier sends one email per notification through a Transport.
type Notifier struct {
	from      string
	missing   []string
	templates Renderer
	transport Transport
	log       *logger.Logger
	now       func() time.Time
}

// NewNotifier builds a notifier for cfg. An incomplete cfg is accepted; each
// Notify call then fails without touching the transport.
func NewNotifier(cfg config.MailConfig, templates Renderer, transport Transport, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{
		from:      cfg.From,
		missing:   cfg.Incomplete(),
		templates: templates,
		transport: transport,
		log:       log,
		now:       time.Now,
	}
}

// Notify renders n and sends it. Missing attachment files are logged and
// skipped. All failures wrap domain.ErrNotify.
func (n *Notifier) Notify(ctx context.Context, note domain.Notification) error {
	if len(note.To) == 0 {
		return fmt.Errorf("%w: no primary recipient", domain.ErrNotify)
	}
	if len(n.missing) > 0 || n.transport == nil {
		return fmt.Errorf("%w: mail transport incomplete, missing %s", domain.ErrNotify, strings.Join(n.missing, ", "))
	}

	html, err := n.templates.Render(note.TemplateName, note.Context)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNotify, err)
	}

	msg := &Message{
		From:    n.from,
		To:      note.To,
		CC:      note.CC,
		Subject: note.Subject,
		HTML:    html,
		Date:    n.now(),
		Domain:  addressDomain(n.from),
	}
	var attached []string
	for _, path := range note.Attachments {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				n.log.Warn("attachment missing, skipped", "path", path)
			} else {
				n.log.Warn("attachment unreadable, skipped", "path", path, "error", err)
			}
			continue
		}
		name := filepath.Base(path)
		msg.Attachments = append(msg.Attachments, Attachment{Name: name, Data: data})
		attached = append(attached, name)
	}

	raw, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("%w: build message: %v", domain.ErrNotify, err)
	}

	recipients := envelope(note.To, note.CC, note.BCC)
	n.log.Info("sending email",
		"to", strings.Join(note.To, ","),
		"cc", strings.Join(note.CC, ","),
		"bcc_count", len(note.BCC),
		"attachments", strings.Join(attached, ","))

	if err := n.transport.Send(ctx, n.from, recipients, raw); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotify, err)
	}
	n.log.Info("email sent", "to", strings.Join(note.To, ","), "recipients", len(recipients))
	return nil
}

// envelope merges the recipient lists in order, dropping duplicates.
func envelope(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, addr := range list {
			key := strings.ToLower(addr)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, addr)
		}
	}
	return out
}

// NewTransport returns the transport selected by cfg.Transport.
func NewTransport(ctx context.Context, cfg config.MailConfig) (Transport, error) {
	switch cfg.Transport {
	case "", "smtp":
		return NewSMTPTransport(cfg), nil
	case "ses":
		t, err := NewSESTransport(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	return nil, fmt.Errorf("unsupported mail transport %q", cfg.Transport)
}

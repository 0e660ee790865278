package mailing

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/report-runner/internal/config"
	"github.com/ignite/report-runner/internal/domain"
	"github.com/ignite/report-runner/internal/pkg/logger"
)

type sentMail struct {
	from       string
	recipients []string
	raw        []byte
}

type fakeTransport struct {
	sent []sentMail
	err  error
}

func (f *fakeTransport) Send(_ context.Context, from string, recipients []string, msg []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{from: from, recipients: recipients, raw: msg})
	return nil
}

func completeMailConfig() config.MailConfig {
	return config.MailConfig{
		Transport: "smtp",
		Host:      "smtp.example.com",
		Port:      587,
		User:      "reports@example.com",
		Password:  "secret",
		From:      "reports@example.com",
	}
}

func writeTemplate(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func setupNotifier(t *testing.T, cfg config.MailConfig) (*Notifier, *fakeTransport, string, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	writeTemplate(t, dir, "report.html", `<p>Rapport {{ report_type }} pour {{ nd }}: {{ count | number_with_delimiter }} lignes</p>`)
	transport := &fakeTransport{}
	var logs bytes.Buffer
	n := NewNotifier(cfg, NewTemplateStore(dir), transport, logger.New(&logs, logger.Options{Level: logger.DEBUG}))
	return n, transport, dir, &logs
}

type parsedMail struct {
	header      mail.Header
	html        string
	attachments map[string][]byte
}

func parseMail(t *testing.T, raw []byte) parsedMail {
	t.Helper()
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/mixed", mediaType)

	out := parsedMail{header: msg.Header, attachments: map[string][]byte{}}
	mr := multipart.NewReader(msg.Body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)

		ct, ctParams, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		require.NoError(t, err)
		if ct == "multipart/alternative" {
			alt := multipart.NewReader(part, ctParams["boundary"])
			for {
				p, err := alt.NextPart()
				if errors.Is(err, io.EOF) {
					break
				}
				require.NoError(t, err)
				body, err := io.ReadAll(p)
				require.NoError(t, err)
				if strings.HasPrefix(p.Header.Get("Content-Type"), "text/html") {
					out.html = string(body)
				}
			}
			continue
		}
		// multipart.Part decodes quoted-printable only; base64 is read raw.
		data, err := io.ReadAll(part)
		require.NoError(t, err)
		out.attachments[part.FileName()] = data
	}
	return out
}

func TestNotify_SendsRenderedMessage(t *testing.T) {
	n, transport, dir, _ := setupNotifier(t, completeMailConfig())
	attachment := filepath.Join(dir, "up_ND1_job1.csv")
	require.NoError(t, os.WriteFile(attachment, []byte("A,B\n1,2\n"), 0o644))

	err := n.Notify(context.Background(), domain.Notification{
		To:           []string{"a@x.com", "b@x.com"},
		CC:           []string{"c@x.com"},
		BCC:          []string{"hidden@x.com"},
		Subject:      "Rapport UP",
		TemplateName: "report.html",
		Context:      map[string]any{"report_type": "UP", "nd": "ND1", "count": 12345},
		Attachments:  []string{attachment},
	})
	require.NoError(t, err)
	require.Len(t, transport.sent, 1)

	sent := transport.sent[0]
	assert.Equal(t, "reports@example.com", sent.from)
	assert.Equal(t, []string{"a@x.com", "b@x.com", "c@x.com", "hidden@x.com"}, sent.recipients)

	m := parseMail(t, sent.raw)
	assert.Equal(t, "a@x.com, b@x.com", m.header.Get("To"))
	assert.Equal(t, "c@x.com", m.header.Get("Cc"))
	assert.Equal(t, "Rapport UP", m.header.Get("Subject"))
	assert.True(t, strings.HasSuffix(m.header.Get("Message-ID"), "@example.com>"))
	assert.Contains(t, m.html, "Rapport UP pour ND1: 12 345 lignes")
	require.Contains(t, m.attachments, "up_ND1_job1.csv")
}

func TestNotify_BccNeverInHeaders(t *testing.T) {
	n, transport, _, _ := setupNotifier(t, completeMailConfig())

	err := n.Notify(context.Background(), domain.Notification{
		To:           []string{"a@x.com"},
		BCC:          []string{"secret-boss@x.com"},
		Subject:      "s",
		TemplateName: "report.html",
	})
	require.NoError(t, err)
	require.Len(t, transport.sent, 1)

	assert.Contains(t, transport.sent[0].recipients, "secret-boss@x.com")
	assert.NotContains(t, string(transport.sent[0].raw), "secret-boss")
	assert.Empty(t, parseMail(t, transport.sent[0].raw).header.Get("Bcc"))
}

func TestNotify_MissingAttachmentIsSkipped(t *testing.T) {
	n, transport, dir, logs := setupNotifier(t, completeMailConfig())
	present := filepath.Join(dir, "present.pdf")
	require.NoError(t, os.WriteFile(present, []byte("%PDF-1.3"), 0o644))

	err := n.Notify(context.Background(), domain.Notification{
		To:           []string{"a@x.com"},
		TemplateName: "report.html",
		Attachments:  []string{filepath.Join(dir, "gone.csv"), present},
	})
	require.NoError(t, err)
	require.Len(t, transport.sent, 1)

	m := parseMail(t, transport.sent[0].raw)
	assert.Len(t, m.attachments, 1)
	assert.Contains(t, m.attachments, "present.pdf")
	assert.Contains(t, logs.String(), "attachment missing, skipped")
}

func TestNotify_Failures(t *testing.T) {
	incomplete := completeMailConfig()
	incomplete.Password = ""

	tests := []struct {
		name    string
		cfg     config.MailConfig
		note    domain.Notification
		sendErr error
		want    string
	}{
		{
			name: "no primary recipient",
			cfg:  completeMailConfig(),
			note: domain.Notification{CC: []string{"c@x.com"}, TemplateName: "report.html"},
			want: "no primary recipient",
		},
		{
			name: "incomplete transport",
			cfg:  incomplete,
			note: domain.Notification{To: []string{"a@x.com"}, TemplateName: "report.html"},
			want: "missing password",
		},
		{
			name: "unknown template",
			cfg:  completeMailConfig(),
			note: domain.Notification{To: []string{"a@x.com"}, TemplateName: "nope.html"},
			want: "template not found",
		},
		{
			name: "template outside directory",
			cfg:  completeMailConfig(),
			note: domain.Notification{To: []string{"a@x.com"}, TemplateName: "../report.html"},
			want: "template not found",
		},
		{
			name:    "transport rejects",
			cfg:     completeMailConfig(),
			note:    domain.Notification{To: []string{"a@x.com"}, TemplateName: "report.html"},
			sendErr: errors.New("550 mailbox unavailable"),
			want:    "550 mailbox unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, transport, _, _ := setupNotifier(t, tt.cfg)
			transport.err = tt.sendErr

			err := n.Notify(context.Background(), tt.note)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrNotify))
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, transport.sent)
		})
	}
}

func TestTemplateStore_Filters(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "f.html", `{{ missing | default: "n/a" }}|{{ word | upcase_first }}|{{ big | number_with_delimiter }}|{{ neg | number_with_delimiter }}`)
	store := NewTemplateStore(dir)

	out, err := store.Render("f.html", map[string]any{"word": "rapport", "big": 1234567, "neg": -1000})
	require.NoError(t, err)
	assert.Equal(t, "n/a|Rapport|1 234 567|-1 000", out)
}

func TestTemplateStore_CachesParsedTemplate(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "c.html", "v1")
	store := NewTemplateStore(dir)

	out, err := store.Render("c.html", nil)
	require.NoError(t, err)
	assert.Equal(t, "v1", out)

	writeTemplate(t, dir, "c.html", "v2")
	out, err = store.Render("c.html", nil)
	require.NoError(t, err)
	assert.Equal(t, "v1", out)
}

func TestEnvelope_DeduplicatesInOrder(t *testing.T) {
	got := envelope([]string{"a@x.com", "b@x.com"}, []string{"A@x.com", "c@x.com"}, []string{"b@x.com", "d@x.com"})
	assert.Equal(t, []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com"}, got)
}

func TestNewTransport(t *testing.T) {
	tr, err := NewTransport(context.Background(), completeMailConfig())
	require.NoError(t, err)
	assert.IsType(t, &SMTPTransport{}, tr)

	_, err = NewTransport(context.Background(), config.MailConfig{Transport: "pigeon"})
	assert.Error(t, err)
}

func TestShippedTemplatesRender(t *testing.T) {
	store := NewTemplateStore(filepath.Join("..", "..", "templates"))
	ctx := map[string]any{"nd": "ND001", "report_type": "REMIT", "date_debut": "01/01/2026", "date_fin": "31/01/2026", "count": 1520}

	for _, name := range []string{"remittance.html", "transactions.html"} {
		out, err := store.Render(name, ctx)
		require.NoError(t, err, name)
		assert.Contains(t, out, "ND001", name)
		assert.Contains(t, out, "1 520", name)
	}
}

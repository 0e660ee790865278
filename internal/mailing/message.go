package mailing

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// textFallback is the plain-text part shown by clients without HTML support.
const textFallback = "Votre client email ne supporte pas le HTML."

// Attachment is a file carried by a message.
type Attachment struct {
	Name string
	Data []byte
}

// Message is a rendered email. Bcc recipients are absent: they
// only exist at the transport level.
type Message struct {
	From        string
	To          []string
	CC          []string
	Subject     string
	HTML        string
	Attachments []Attachment
	Date        time.Time
	// Domain is the right-hand side of the Message-ID.
	Domain string
}

// Bytes renders the message as RFC 5322 text with a multipart/mixed body:
// a multipart/alternative part followed by base64 attachments.
func (m *Message) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	mixed := multipart.NewWriter(&buf)
	if err := mixed.SetBoundary("mixed_" + uuid.NewString()); err != nil {
		return nil, err
	}

	domain := m.Domain
	if domain == "" {
		domain = "localhost"
	}

	var head bytes.Buffer
	writeHeader(&head, "From", m.From)
	writeHeader(&head, "To", strings.Join(m.To, ", "))
	if len(m.CC) > 0 {
		writeHeader(&head, "Cc", strings.Join(m.CC, ", "))
	}
	writeHeader(&head, "Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	writeHeader(&head, "Date", m.Date.Format(time.RFC1123Z))
	writeHeader(&head, "Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), domain))
	writeHeader(&head, "MIME-Version", "1.0")
	writeHeader(&head, "Content-Type", "multipart/mixed; boundary=\""+mixed.Boundary()+"\"")
	head.WriteString("\r\n")

	if err := m.writeAlternative(mixed); err != nil {
		return nil, err
	}
	for _, a := range m.Attachments {
		if err := writeAttachment(mixed, a); err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Name, err)
		}
	}
	if err := mixed.Close(); err != nil {
		return nil, err
	}
	return append(head.Bytes(), buf.Bytes()...), nil
}

func (m *Message) writeAlternative(mixed *multipart.Writer) error {
	var body bytes.Buffer
	alt := multipart.NewWriter(&body)
	if err := alt.SetBoundary("alt_" + uuid.NewString()); err != nil {
		return err
	}

	for _, part := range []struct{ contentType, content string }{
		{"text/plain; charset=UTF-8", textFallback},
		{"text/html; charset=UTF-8", m.HTML},
	} {
		w, err := alt.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return err
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(part.content)); err != nil {
			return err
		}
		if err := qp.Close(); err != nil {
			return err
		}
	}
	if err := alt.Close(); err != nil {
		return err
	}

	w, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"multipart/alternative; boundary=\"" + alt.Boundary() + "\""},
	})
	if err != nil {
		return err
	}
	_, err = w.Write(body.Bytes())
	return err
}

func writeAttachment(mixed *multipart.Writer, a Attachment) error {
	contentType := "application/octet-stream"
	switch strings.ToLower(filepath.Ext(a.Name)) {
	case ".csv":
		contentType = "text/csv; charset=utf-8"
	case ".pdf":
		contentType = "application/pdf"
	}
	w, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {contentType},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.Name})},
	})
	if err != nil {
		return err
	}

	encoded := base64.StdEncoding.EncodeToString(a.Data)
	const lineLen = 76
	for len(encoded) > lineLen {
		if _, err := fmt.Fprintf(w, "%s\r\n", encoded[:lineLen]); err != nil {
			return err
		}
		encoded = encoded[lineLen:]
	}
	_, err = fmt.Fprintf(w, "%s\r\n", encoded)
	return err
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	buf.WriteString(key)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

// addressDomain returns the domain part of addr, or "" when addr does not
// parse.
func addressDomain(addr string) string {
	a, err := mail.ParseAddress(addr)
	if err != nil {
		return ""
	}
	_, domain, _ := strings.Cut(a.Address, "@")
	return domain
}

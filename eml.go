package gomsg

import (
	"errors"
	"io"
	"strings"

	"github.com/emersion/go-message/mail"

	"github.com/aligator/gomsg/checkpoint"
)

// ErrComposeEML means the message could not be rendered as a mail.
var ErrComposeEML = errors.New("cannot compose eml")

// ComposeEML renders the message as an RFC 5322 mail: a multipart/mixed
// body with a multipart/alternative part for the plain and HTML bodies and
// one part per attachment. The compressed RTF body is not rendered, HTML or
// plain text carry the same content in practice.
func (m *Message) ComposeEML(w io.Writer) error {
	writer, err := mail.CreateWriter(w, m.emlHeader())
	if err != nil {
		return checkpoint.Wrap(err, ErrComposeEML)
	}
	if err := m.writeBodies(writer); err != nil {
		return err
	}
	for _, attachment := range m.Attachments {
		if err := writeAttachment(writer, attachment); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return checkpoint.Wrap(err, ErrComposeEML)
	}
	return nil
}

func (m *Message) emlHeader() mail.Header {
	var header mail.Header

	date := m.SentAt
	if date.IsZero() {
		date = m.ReceivedAt
	}
	if !date.IsZero() {
		header.SetDate(date)
	}
	header.SetSubject(m.Subject)
	if m.Sender.Email != "" || m.Sender.Name != "" {
		header.SetAddressList("From", []*mail.Address{{Name: m.Sender.Name, Address: m.Sender.Email}})
	}

	// Untyped recipients are addressed directly, many writers only type Cc
	// and Bcc explicitly.
	var to, cc, bcc []*mail.Address
	for _, recipient := range m.Recipients {
		if recipient.Email == "" {
			// An empty address cannot be represented in an address list.
			continue
		}
		address := &mail.Address{Name: recipient.Name, Address: recipient.Email}
		switch recipient.Type {
		case RecipientCc:
			cc = append(cc, address)
		case RecipientBcc:
			bcc = append(bcc, address)
		default:
			to = append(to, address)
		}
	}
	if len(to) > 0 {
		header.SetAddressList("To", to)
	}
	if len(cc) > 0 {
		header.SetAddressList("Cc", cc)
	}
	if len(bcc) > 0 {
		header.SetAddressList("Bcc", bcc)
	}

	if m.Headers != nil && m.Headers.MessageID != "" {
		header.SetMessageID(strings.Trim(m.Headers.MessageID, "<>"))
	}
	return header
}

// writeBodies writes the multipart/alternative part, plain text before HTML
// so readers pick the richest variant they understand. A message without
// any body still gets an empty plain text part, a mail needs one.
func (m *Message) writeBodies(writer *mail.Writer) error {
	inline, err := writer.CreateInline()
	if err != nil {
		return checkpoint.Wrap(err, ErrComposeEML)
	}

	if m.Body != "" || m.BodyHTML == "" {
		if err := writeInlinePart(inline, "text/plain", m.Body); err != nil {
			return err
		}
	}
	if m.BodyHTML != "" {
		if err := writeInlinePart(inline, "text/html", m.BodyHTML); err != nil {
			return err
		}
	}
	if err := inline.Close(); err != nil {
		return checkpoint.Wrap(err, ErrComposeEML)
	}
	return nil
}

func writeInlinePart(inline *mail.InlineWriter, contentType, content string) error {
	var header mail.InlineHeader
	header.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	part, err := inline.CreatePart(header)
	if err != nil {
		return checkpoint.Wrap(err, ErrComposeEML)
	}
	if _, err := io.WriteString(part, content); err != nil {
		_ = part.Close()
		return checkpoint.Wrap(err, ErrComposeEML)
	}
	if err := part.Close(); err != nil {
		return checkpoint.Wrap(err, ErrComposeEML)
	}
	return nil
}

func writeAttachment(writer *mail.Writer, attachment Attachment) error {
	var header mail.AttachmentHeader
	header.SetFilename(attachment.Name())
	contentType := attachment.MimeTag
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.SetContentType(contentType, nil)
	if attachment.ContentID != "" {
		header.Set("Content-Id", "<"+strings.Trim(attachment.ContentID, "<>")+">")
	}

	part, err := writer.CreateAttachment(header)
	if err != nil {
		return checkpoint.Wrap(err, ErrComposeEML)
	}
	if _, err := part.Write(attachment.Data); err != nil {
		_ = part.Close()
		return checkpoint.Wrap(err, ErrComposeEML)
	}
	if err := part.Close(); err != nil {
		return checkpoint.Wrap(err, ErrComposeEML)
	}
	return nil
}

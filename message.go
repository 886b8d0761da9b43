package gomsg

import (
	"time"
)

// Person is a display name and email address pair. Either part may be empty
// when the file does not carry it.
type Person struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// RecipientType tells how a recipient was addressed.
type RecipientType int32

const (
	// RecipientUnknown covers a missing recipient type property as well as
	// values outside the defined range.
	RecipientUnknown RecipientType = 0
	RecipientTo      RecipientType = 1
	RecipientCc      RecipientType = 2
	RecipientBcc     RecipientType = 3
)

func (t RecipientType) String() string {
	switch t {
	case RecipientTo:
		return "To"
	case RecipientCc:
		return "Cc"
	case RecipientBcc:
		return "Bcc"
	default:
		return "Unknown"
	}
}

// Recipient is one entry of the message's recipient table.
type Recipient struct {
	Person
	Type RecipientType `json:"type"`
}

// Attachment is one attached file. Data holds the complete payload. An
// embedded message attachment keeps its metadata but an empty payload.
type Attachment struct {
	Filename     string `json:"filename,omitempty"`
	LongFilename string `json:"longFilename,omitempty"`
	Extension    string `json:"extension,omitempty"`
	MimeTag      string `json:"mimeTag,omitempty"`
	ContentID    string `json:"contentId,omitempty"`
	Data         []byte `json:"-"`
}

// Name returns the best available filename, preferring the long form. When
// the file names neither, a generic name is derived from the extension.
func (a Attachment) Name() string {
	if a.LongFilename != "" {
		return a.LongFilename
	}
	if a.Filename != "" {
		return a.Filename
	}
	if a.Extension != "" {
		return "attachment" + a.Extension
	}
	return "attachment"
}

// Message is the decoded email. All fields are copied out of the underlying
// container, the Message stays valid after its source is gone.
type Message struct {
	Subject    string      `json:"subject,omitempty"`
	Sender     Person      `json:"sender"`
	Recipients []Recipient `json:"recipients,omitempty"`

	// DisplayTo, DisplayCc and DisplayBcc are the sender-side display
	// strings. They may name recipients the recipient table does not carry,
	// Bcc ones in particular.
	DisplayTo  string `json:"displayTo,omitempty"`
	DisplayCc  string `json:"displayCc,omitempty"`
	DisplayBcc string `json:"displayBcc,omitempty"`

	Body     string `json:"body,omitempty"`
	BodyHTML string `json:"bodyHtml,omitempty"`

	// RTFCompressed is the raw compressed RTF body, see RTF.
	RTFCompressed []byte `json:"-"`

	// Headers holds the parsed transport headers, nil when the message was
	// never sent over SMTP (drafts, calendar items).
	Headers *TransportHeaders `json:"headers,omitempty"`

	Attachments  []Attachment `json:"attachments,omitempty"`
	MessageClass string       `json:"messageClass,omitempty"`
	SentAt       time.Time    `json:"sentAt"`
	ReceivedAt   time.Time    `json:"receivedAt"`

	// Properties keeps every decoded property of the message root for
	// callers that need more than the typed fields.
	Properties PropertySet `json:"-"`

	// Warnings lists the streams that could not be read completely. The
	// affected fields carry whatever bytes were recovered.
	Warnings []string `json:"warnings,omitempty"`
}

// To returns the recipients addressed directly.
func (m *Message) To() []Recipient {
	return m.recipientsOfType(RecipientTo)
}

// Cc returns the carbon copy recipients.
func (m *Message) Cc() []Recipient {
	return m.recipientsOfType(RecipientCc)
}

// Bcc returns the blind carbon copy recipients. Most files store these only
// in DisplayBcc, if at all.
func (m *Message) Bcc() []Recipient {
	return m.recipientsOfType(RecipientBcc)
}

func (m *Message) recipientsOfType(want RecipientType) []Recipient {
	var matched []Recipient
	for _, recipient := range m.Recipients {
		if recipient.Type == want {
			matched = append(matched, recipient)
		}
	}
	return matched
}

// RTF decompresses the compressed RTF body. It returns the empty string
// without an error when the message has none.
func (m *Message) RTF() (string, error) {
	if len(m.RTFCompressed) == 0 {
		return "", nil
	}
	rtf, err := DecompressRTF(m.RTFCompressed)
	if err != nil {
		return "", err
	}
	return string(rtf), nil
}

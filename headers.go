package gomsg

import (
	"net/mail"
	"strings"
)

// TransportHeaders is the parsed transport header blob of a sent message.
// The typed fields hold the raw header values, Received in transport order.
type TransportHeaders struct {
	ContentType string   `json:"contentType,omitempty"`
	Date        string   `json:"date,omitempty"`
	MessageID   string   `json:"messageId,omitempty"`
	ReplyTo     string   `json:"replyTo,omitempty"`
	Received    []string `json:"received,omitempty"`

	// All is the complete header map for headers the typed fields do not
	// cover.
	All mail.Header `json:"-"`

	// Raw is the blob exactly as stored in the file.
	Raw string `json:"-"`
}

// parseTransportHeaders splits the header blob into a header map. The blob
// is an RFC 5322 header block without a body. When it cannot be parsed only
// Raw is filled, the original text must never get lost.
func parseTransportHeaders(raw string) *TransportHeaders {
	headers := &TransportHeaders{Raw: raw}
	// ReadMessage expects the blank line terminating the header block.
	message, err := mail.ReadMessage(strings.NewReader(raw + "\r\n\r\n"))
	if err != nil {
		return headers
	}
	headers.All = message.Header
	headers.ContentType = message.Header.Get("Content-Type")
	headers.Date = message.Header.Get("Date")
	headers.MessageID = message.Header.Get("Message-Id")
	headers.ReplyTo = message.Header.Get("Reply-To")
	headers.Received = message.Header["Received"]
	return headers
}

package msgtest

import (
	"encoding/binary"
	"fmt"
	"time"
	"unicode/utf16"
)

// Wire types used by the message builder.
const (
	wireInt32      = 0x0003
	wireBoolean    = 0x000B
	wireInt64      = 0x0014
	wireString8    = 0x001E
	wireString     = 0x001F
	wireSystemTime = 0x0040
	wireBinary     = 0x0102
)

// fixedProp is one record of a fixed width property stream.
type fixedProp struct {
	tag   uint32
	value [8]byte
}

// MessageBuilder assembles the storage layout of an Outlook message on top
// of a ContainerBuilder: property streams below the root, a fixed width
// property stream per storage and indexed storages for recipients and
// attachments.
type MessageBuilder struct {
	container   *ContainerBuilder
	fixed       []fixedProp
	recipients  []*SubStorageBuilder
	attachments []*SubStorageBuilder
}

// NewMessage returns a builder for an empty message.
func NewMessage() *MessageBuilder {
	return &MessageBuilder{container: NewContainer()}
}

// Container exposes the underlying container builder, for example to add
// out of place streams or to request one of the defects it can produce.
func (b *MessageBuilder) Container() *ContainerBuilder {
	return b.container
}

func substgName(id uint16, wireType uint16) string {
	return fmt.Sprintf("__substg1.0_%04X%04X", id, wireType)
}

// String adds a Unicode string property stream below the root.
func (b *MessageBuilder) String(id uint16, value string) *MessageBuilder {
	b.container.AddStream(substgName(id, wireString), encodeUTF16(value))
	return b
}

// String8 adds an 8 bit string property stream below the root. The builder
// writes the bytes as given, so stick to ASCII unless the test is about
// code pages.
func (b *MessageBuilder) String8(id uint16, value string) *MessageBuilder {
	b.container.AddStream(substgName(id, wireString8), []byte(value))
	return b
}

// Binary adds a binary property stream below the root.
func (b *MessageBuilder) Binary(id uint16, data []byte) *MessageBuilder {
	b.container.AddStream(substgName(id, wireBinary), data)
	return b
}

// Int32 adds a 32 bit integer to the fixed width property stream.
func (b *MessageBuilder) Int32(id uint16, value int32) *MessageBuilder {
	b.fixed = append(b.fixed, newFixedInt32(id, value))
	return b
}

// Bool adds a boolean to the fixed width property stream.
func (b *MessageBuilder) Bool(id uint16, value bool) *MessageBuilder {
	var v [8]byte
	if value {
		v[0] = 1
	}
	b.fixed = append(b.fixed, fixedProp{tag: uint32(id)<<16 | wireBoolean, value: v})
	return b
}

// Time adds a timestamp to the fixed width property stream.
func (b *MessageBuilder) Time(id uint16, t time.Time) *MessageBuilder {
	var v [8]byte
	binary.LittleEndian.PutUint64(v[:], toFileTime(t))
	b.fixed = append(b.fixed, fixedProp{tag: uint32(id)<<16 | wireSystemTime, value: v})
	return b
}

// Subject sets the subject property.
func (b *MessageBuilder) Subject(subject string) *MessageBuilder {
	return b.String(0x0037, subject)
}

// Body sets the plain text body property.
func (b *MessageBuilder) Body(body string) *MessageBuilder {
	return b.String(0x1000, body)
}

// HTML sets the HTML body property, stored binary like Outlook does.
func (b *MessageBuilder) HTML(html string) *MessageBuilder {
	return b.Binary(0x1013, []byte(html))
}

// Headers sets the transport header block property.
func (b *MessageBuilder) Headers(raw string) *MessageBuilder {
	return b.String(0x007D, raw)
}

// Sender sets the sender display name and SMTP address properties.
func (b *MessageBuilder) Sender(name string, email string) *MessageBuilder {
	return b.String(0x0C1A, name).String(0x5D01, email)
}

// NameID adds the named property mapping storage. It is empty, readers skip
// it anyway.
func (b *MessageBuilder) NameID() *MessageBuilder {
	b.container.AddStorage("__nameid_version1.0")
	return b
}

// AddRecipient adds the next recipient storage and returns its builder.
func (b *MessageBuilder) AddRecipient() *SubStorageBuilder {
	sub := &SubStorageBuilder{
		owner: b,
		path:  fmt.Sprintf("__recip_version1.0_#%08X", len(b.recipients)),
	}
	b.container.AddStorage(sub.path)
	b.recipients = append(b.recipients, sub)
	return sub
}

// AddAttachment adds the next attachment storage and returns its builder.
func (b *MessageBuilder) AddAttachment() *SubStorageBuilder {
	sub := &SubStorageBuilder{
		owner: b,
		path:  fmt.Sprintf("__attach_version1.0_#%08X", len(b.attachments)),
	}
	b.container.AddStorage(sub.path)
	b.attachments = append(b.attachments, sub)
	return sub
}

// Build finalizes the fixed width property streams and assembles the image.
func (b *MessageBuilder) Build() []byte {
	// The stream below the root carries counts, the ones below recipients
	// and attachments only a short reserved header.
	header := make([]byte, 32)
	binary.LittleEndian.PutUint32(header[8:], uint32(len(b.recipients)))
	binary.LittleEndian.PutUint32(header[12:], uint32(len(b.attachments)))
	binary.LittleEndian.PutUint32(header[16:], uint32(len(b.recipients)))
	binary.LittleEndian.PutUint32(header[20:], uint32(len(b.attachments)))
	b.container.AddStream("__properties_version1.0", append(header, encodeFixed(b.fixed)...))

	for _, sub := range b.recipients {
		sub.finalize()
	}
	for _, sub := range b.attachments {
		sub.finalize()
	}

	return b.container.Build()
}

// SubStorageBuilder fills one recipient or attachment storage.
type SubStorageBuilder struct {
	owner *MessageBuilder
	path  string
	fixed []fixedProp
}

// Done returns to the message builder.
func (s *SubStorageBuilder) Done() *MessageBuilder {
	return s.owner
}

// Path returns the name of the storage inside the container.
func (s *SubStorageBuilder) Path() string {
	return s.path
}

// String adds a Unicode string property stream to this storage.
func (s *SubStorageBuilder) String(id uint16, value string) *SubStorageBuilder {
	s.owner.container.AddStream(s.path+"/"+substgName(id, wireString), encodeUTF16(value))
	return s
}

// Binary adds a binary property stream to this storage.
func (s *SubStorageBuilder) Binary(id uint16, data []byte) *SubStorageBuilder {
	s.owner.container.AddStream(s.path+"/"+substgName(id, wireBinary), data)
	return s
}

// Int32 adds a 32 bit integer to this storage's fixed width property
// stream.
func (s *SubStorageBuilder) Int32(id uint16, value int32) *SubStorageBuilder {
	s.fixed = append(s.fixed, newFixedInt32(id, value))
	return s
}

// Name sets the display name property.
func (s *SubStorageBuilder) Name(name string) *SubStorageBuilder {
	return s.String(0x3001, name)
}

// Email sets the SMTP address property.
func (s *SubStorageBuilder) Email(email string) *SubStorageBuilder {
	return s.String(0x39FE, email)
}

// Type sets the recipient type property: 1 for To, 2 for Cc, 3 for Bcc.
func (s *SubStorageBuilder) Type(recipientType int32) *SubStorageBuilder {
	return s.Int32(0x0C15, recipientType)
}

// Filename sets the long filename property of an attachment.
func (s *SubStorageBuilder) Filename(name string) *SubStorageBuilder {
	return s.String(0x3707, name)
}

// MimeTag sets the mime type property of an attachment.
func (s *SubStorageBuilder) MimeTag(mime string) *SubStorageBuilder {
	return s.String(0x370E, mime)
}

// Data sets the content of an attachment.
func (s *SubStorageBuilder) Data(data []byte) *SubStorageBuilder {
	return s.Binary(0x3701, data)
}

func (s *SubStorageBuilder) finalize() {
	header := make([]byte, 8)
	s.owner.container.AddStream(s.path+"/__properties_version1.0", append(header, encodeFixed(s.fixed)...))
}

func newFixedInt32(id uint16, value int32) fixedProp {
	var v [8]byte
	binary.LittleEndian.PutUint32(v[:], uint32(value))
	return fixedProp{tag: uint32(id)<<16 | wireInt32, value: v}
}

func encodeFixed(props []fixedProp) []byte {
	out := make([]byte, 0, len(props)*16)
	for _, prop := range props {
		var record [16]byte
		binary.LittleEndian.PutUint32(record[0:], prop.tag)
		binary.LittleEndian.PutUint32(record[4:], 0x06) // readable and writable
		copy(record[8:], prop.value[:])
		out = append(out, record[:]...)
	}
	return out
}

// encodeUTF16 encodes a string the way string properties are stored, UTF-16
// little endian without a terminator.
func encodeUTF16(value string) []byte {
	units := utf16.Encode([]rune(value))
	out := make([]byte, len(units)*2)
	for i, unit := range units {
		binary.LittleEndian.PutUint16(out[i*2:], unit)
	}
	return out
}

// toFileTime converts a time.Time into a FILETIME value, the zero time maps
// to 0.
func toFileTime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.Unix()+11644473600)*10_000_000 + uint64(t.Nanosecond()/100)
}

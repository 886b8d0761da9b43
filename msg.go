// Package gomsg decodes Outlook .msg files into a typed, self contained
// Message: subject, sender, recipients, bodies, transport headers and
// attachments.
//
// A .msg file is a compound file container holding one stream or storage
// per MAPI property. The cfb package resolves the container and is also
// usable on its own, gomsg interprets the property streams found inside.
package gomsg

//go:generate go run ./cmd/generate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/afero"

	"github.com/aligator/gomsg/cfb"
	"github.com/aligator/gomsg/checkpoint"
)

// Parse decodes the Outlook message provided by reader. Everything is
// copied into the returned Message, the reader is not used afterwards.
func Parse(reader io.ReadSeeker) (*Message, error) {
	fsys, err := cfb.New(reader)
	if err != nil {
		return nil, checkpoint.From(err)
	}
	return Build(fsys)
}

// ParseBytes decodes an Outlook message held in memory.
func ParseBytes(data []byte) (*Message, error) {
	return Parse(bytes.NewReader(data))
}

// OpenFile decodes the Outlook message at path. Any afero filesystem works,
// use afero.NewOsFs() for the local disk.
func OpenFile(fsys afero.Fs, path string) (*Message, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return nil, checkpoint.From(err)
	}
	defer file.Close()
	return Parse(file)
}

// Build assembles the Message from an already opened container. fsys is
// usually a cfb.Fs, but any filesystem with the same layout works.
//
// Structural failures abort the build. A single unreadable stream does not:
// the affected field keeps the bytes that could be read and the stream is
// listed in Message.Warnings.
func Build(fsys afero.Fs) (*Message, error) {
	build := builder{
		fsys:    fsys,
		message: &Message{Properties: PropertySet{}},
	}
	if err := build.run(); err != nil {
		return nil, err
	}
	return build.message, nil
}

// builder carries the state of one Build call.
type builder struct {
	fsys    afero.Fs
	message *Message
}

func (b *builder) run() error {
	entries, err := afero.ReadDir(b.fsys, "")
	if err != nil {
		return checkpoint.From(err)
	}

	type indexedRecipient struct {
		index     uint32
		recipient Recipient
	}
	type indexedAttachment struct {
		index      uint32
		attachment Attachment
	}
	var recipients []indexedRecipient
	var attachments []indexedAttachment

	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() {
			if err := b.rootStream(name); err != nil {
				return err
			}
			continue
		}
		class, index, ok := classifyStorage(name)
		if !ok {
			continue
		}
		switch class {
		case storageRecipient:
			recipient, err := b.buildRecipient(name)
			if err != nil {
				return err
			}
			recipients = append(recipients, indexedRecipient{index: index, recipient: recipient})
		case storageAttachment:
			attachment, err := b.buildAttachment(name)
			if err != nil {
				return err
			}
			attachments = append(attachments, indexedAttachment{index: index, attachment: attachment})
		}
	}

	sort.SliceStable(recipients, func(i, j int) bool {
		return recipients[i].index < recipients[j].index
	})
	sort.SliceStable(attachments, func(i, j int) bool {
		return attachments[i].index < attachments[j].index
	})
	for _, entry := range recipients {
		b.message.Recipients = append(b.message.Recipients, entry.recipient)
	}
	for _, entry := range attachments {
		b.message.Attachments = append(b.message.Attachments, entry.attachment)
	}

	b.populate()
	return nil
}

// rootStream folds one stream directly below the root into the message
// property set.
func (b *builder) rootStream(name string) error {
	if name == propertiesStream {
		data, err := b.readStream(name)
		if err != nil {
			return err
		}
		fixed, err := parseFixedProperties(data, messagePropertiesHeaderLen)
		if err != nil {
			b.warnf("%s is too short for its header", name)
			return nil
		}
		for _, property := range fixed {
			b.message.Properties[property.Tag] = property
		}
		return nil
	}

	tag, ok := parseStreamTag(name)
	if !ok {
		return nil
	}
	data, err := b.readStream(name)
	if err != nil {
		return err
	}
	// A failed decode still keeps the raw bytes, see newProperty.
	property, _ := newProperty(tag, data)
	b.message.Properties[property.Tag] = property
	return nil
}

func (b *builder) buildRecipient(dir string) (Recipient, error) {
	properties, err := b.readPropertySet(dir)
	if err != nil {
		return Recipient{}, err
	}
	recipient := Recipient{
		Person: Person{
			Name:  properties.String(idDisplayName),
			Email: properties.String(idSMTPAddress, idEmailAddress),
		},
	}
	if value, ok := properties.Int32(idRecipientType); ok {
		if value >= int32(RecipientTo) && value <= int32(RecipientBcc) {
			recipient.Type = RecipientType(value)
		}
	}
	return recipient, nil
}

func (b *builder) buildAttachment(dir string) (Attachment, error) {
	properties, err := b.readPropertySet(dir)
	if err != nil {
		return Attachment{}, err
	}
	return Attachment{
		Filename:     properties.String(idAttachFilename),
		LongFilename: properties.String(idAttachLongFilename),
		Extension:    properties.String(idAttachExtension),
		MimeTag:      properties.String(idAttachMimeTag),
		ContentID:    properties.String(idAttachContentID),
		Data:         properties.Bytes(idAttachData),
	}, nil
}

// readPropertySet collects every property below one storage, from the fixed
// width stream as well as from the variable width ones.
func (b *builder) readPropertySet(dir string) (PropertySet, error) {
	entries, err := afero.ReadDir(b.fsys, dir)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	properties := PropertySet{}
	for _, entry := range entries {
		if entry.IsDir() {
			// Embedded message storages are left alone, their metadata
			// streams next to them are still collected.
			continue
		}
		name := entry.Name()
		streamPath := dir + "/" + name

		if name == propertiesStream {
			data, err := b.readStream(streamPath)
			if err != nil {
				return nil, err
			}
			fixed, err := parseFixedProperties(data, subPropertiesHeaderLen)
			if err != nil {
				b.warnf("%s is too short for its header", streamPath)
				continue
			}
			for _, property := range fixed {
				properties[property.Tag] = property
			}
			continue
		}

		tag, ok := parseStreamTag(name)
		if !ok {
			continue
		}
		data, err := b.readStream(streamPath)
		if err != nil {
			return nil, err
		}
		property, _ := newProperty(tag, data)
		properties[property.Tag] = property
	}
	return properties, nil
}

// readStream reads one stream completely. Recoverable failures degrade to
// the bytes that could be read plus a warning on the message, everything
// else aborts the build.
func (b *builder) readStream(path string) ([]byte, error) {
	data, err := afero.ReadFile(b.fsys, path)
	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, cfb.ErrTruncatedStream):
		b.warnf("%s is shorter than declared, kept %d bytes", path, len(data))
		return data, nil
	case errors.Is(err, cfb.ErrCorruptChain):
		b.warnf("%s has a corrupt sector chain, kept %d bytes", path, len(data))
		return data, nil
	case errors.Is(err, cfb.ErrTruncatedFile):
		b.warnf("%s reaches beyond the end of the file, kept %d bytes", path, len(data))
		return data, nil
	default:
		return nil, checkpoint.From(err)
	}
}

func (b *builder) warnf(format string, args ...interface{}) {
	b.message.Warnings = append(b.message.Warnings, fmt.Sprintf(format, args...))
}

// populate maps the well known properties onto the typed fields. Missing
// properties leave their field empty, unknown ones stay available through
// Message.Properties.
func (b *builder) populate() {
	properties := b.message.Properties
	message := b.message

	message.Subject = properties.String(idSubject, idNormalizedSubject)
	message.Sender = Person{
		Name:  properties.String(idSenderName),
		Email: properties.String(idSenderSMTPAddress, idSenderEmailAddress),
	}
	message.DisplayTo = properties.String(idDisplayTo)
	message.DisplayCc = properties.String(idDisplayCc)
	message.DisplayBcc = properties.String(idDisplayBcc)
	message.Body = properties.String(idBody)
	message.BodyHTML = htmlBody(properties)
	message.RTFCompressed = properties.Bytes(idRtfCompressed)
	message.MessageClass = properties.String(idMessageClass)
	message.SentAt = properties.Time(idClientSubmitTime)
	message.ReceivedAt = properties.Time(idMessageDeliveryTime)
	if raw := properties.String(idTransportHeaders); raw != "" {
		message.Headers = parseTransportHeaders(raw)
	}
}

// htmlBody returns the HTML body. Most writers store it as binary bytes,
// some as a string property.
func htmlBody(properties PropertySet) string {
	if data := properties.Bytes(idBodyHTML); len(data) > 0 {
		return string(data)
	}
	return properties.String(idBodyHTML)
}

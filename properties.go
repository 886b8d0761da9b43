package gomsg

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/aligator/gomsg/cfb"
	"github.com/aligator/gomsg/checkpoint"
)

// PropType is the 16 bit wire type of a property value.
type PropType uint16

// The wire types that occur in message files.
const (
	TypeUnspecified PropType = 0x0000
	TypeInteger16   PropType = 0x0002
	TypeInteger32   PropType = 0x0003
	TypeFloating32  PropType = 0x0004
	TypeFloating64  PropType = 0x0005
	TypeBoolean     PropType = 0x000B
	TypeObject      PropType = 0x000D
	TypeInteger64   PropType = 0x0014
	TypeString8     PropType = 0x001E
	TypeString      PropType = 0x001F
	TypeSystemTime  PropType = 0x0040
	TypeGUID        PropType = 0x0048
	TypeBinary      PropType = 0x0102
)

func (t PropType) String() string {
	switch t {
	case TypeUnspecified:
		return "Unspecified"
	case TypeInteger16:
		return "Integer16"
	case TypeInteger32:
		return "Integer32"
	case TypeFloating32:
		return "Floating32"
	case TypeFloating64:
		return "Floating64"
	case TypeBoolean:
		return "Boolean"
	case TypeObject:
		return "Object"
	case TypeInteger64:
		return "Integer64"
	case TypeString8:
		return "String8"
	case TypeString:
		return "String"
	case TypeSystemTime:
		return "SystemTime"
	case TypeGUID:
		return "GUID"
	case TypeBinary:
		return "Binary"
	default:
		return fmt.Sprintf("PropType(%#04x)", uint16(t))
	}
}

// Tag combines a property identifier with its wire type, the same layout
// MAPI uses: the identifier in the high 16 bits, the type in the low ones.
type Tag uint32

// NewTag builds a Tag from an identifier and a wire type.
func NewTag(id uint16, propType PropType) Tag {
	return Tag(uint32(id)<<16 | uint32(propType))
}

// ID returns the property identifier.
func (t Tag) ID() uint16 {
	return uint16(t >> 16)
}

// Type returns the wire type.
func (t Tag) Type() PropType {
	return PropType(t & 0xFFFF)
}

// String formats the tag the way it occurs in stream names, four hex digits
// identifier followed by four hex digits type.
func (t Tag) String() string {
	return fmt.Sprintf("%04X%04X", t.ID(), uint16(t.Type()))
}

// Property identifiers the model builder maps to message fields.
const (
	idMessageClass        uint16 = 0x001A
	idSubject             uint16 = 0x0037
	idClientSubmitTime    uint16 = 0x0039
	idTransportHeaders    uint16 = 0x007D
	idRecipientType       uint16 = 0x0C15
	idSenderName          uint16 = 0x0C1A
	idSenderEmailAddress  uint16 = 0x0C1F
	idDisplayBcc          uint16 = 0x0E02
	idDisplayCc           uint16 = 0x0E03
	idDisplayTo           uint16 = 0x0E04
	idMessageDeliveryTime uint16 = 0x0E06
	idNormalizedSubject   uint16 = 0x0E1D
	idBody                uint16 = 0x1000
	idRtfCompressed       uint16 = 0x1009
	idBodyHTML            uint16 = 0x1013
	idDisplayName         uint16 = 0x3001
	idEmailAddress        uint16 = 0x3003
	idSMTPAddress         uint16 = 0x39FE
	idAttachData          uint16 = 0x3701
	idAttachExtension     uint16 = 0x3703
	idAttachFilename      uint16 = 0x3704
	idAttachLongFilename  uint16 = 0x3707
	idAttachMimeTag       uint16 = 0x370E
	idAttachContentID     uint16 = 0x3712
	idSenderSMTPAddress   uint16 = 0x5D01
)

// substgPrefix starts the name of every variable width property stream,
// followed by the tag.
const substgPrefix = "__substg1.0_"

// parseStreamTag extracts the tag from a property stream name like
// "__substg1.0_0037001F".
func parseStreamTag(name string) (Tag, bool) {
	if !strings.HasPrefix(name, substgPrefix) {
		return 0, false
	}
	digits := name[len(substgPrefix):]
	if len(digits) != 8 {
		return 0, false
	}
	value, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, false
	}
	return Tag(value), true
}

// Property is one decoded property. Value holds the Go representation
// matching the wire type, or nil if the type is unknown to this package. Raw
// always keeps the undecoded bytes.
type Property struct {
	Tag   Tag
	Value interface{}
	Raw   []byte
}

// newProperty decodes the raw bytes of a property stream. A failed decode
// still returns a usable Property carrying the raw bytes, together with the
// error, one odd property must never fail a whole message.
func newProperty(tag Tag, raw []byte) (Property, error) {
	property := Property{Tag: tag, Raw: raw}
	value, err := decodeValue(tag.Type(), raw)
	if err != nil {
		return property, err
	}
	property.Value = value
	return property, nil
}

// decodeValue interprets raw bytes according to the wire type. Types this
// package does not know decode to nil without an error, callers fall back
// to the raw bytes then.
func decodeValue(propType PropType, raw []byte) (interface{}, error) {
	switch propType {
	case TypeInteger16:
		if err := need(raw, 2, propType); err != nil {
			return nil, err
		}
		return int16(binary.LittleEndian.Uint16(raw)), nil
	case TypeInteger32:
		if err := need(raw, 4, propType); err != nil {
			return nil, err
		}
		return int32(binary.LittleEndian.Uint32(raw)), nil
	case TypeInteger64:
		if err := need(raw, 8, propType); err != nil {
			return nil, err
		}
		return int64(binary.LittleEndian.Uint64(raw)), nil
	case TypeFloating32:
		if err := need(raw, 4, propType); err != nil {
			return nil, err
		}
		return math.Float32frombits(binary.LittleEndian.Uint32(raw)), nil
	case TypeFloating64:
		if err := need(raw, 8, propType); err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(raw)), nil
	case TypeBoolean:
		if err := need(raw, 1, propType); err != nil {
			return nil, err
		}
		return raw[0] != 0, nil
	case TypeSystemTime:
		if err := need(raw, 8, propType); err != nil {
			return nil, err
		}
		return cfb.ParseFileTime(binary.LittleEndian.Uint64(raw)), nil
	case TypeString:
		return decodeUnicodeString(raw)
	case TypeString8:
		return decodeString8(raw)
	case TypeGUID:
		if err := need(raw, 16, propType); err != nil {
			return nil, err
		}
		return formatGUID(raw), nil
	case TypeBinary:
		return append([]byte(nil), raw...), nil
	default:
		return nil, nil
	}
}

func need(raw []byte, n int, propType PropType) error {
	if len(raw) < n {
		return checkpoint.From(fmt.Errorf("%v needs %d bytes, got %d", propType, n, len(raw)))
	}
	return nil
}

// decodeUnicodeString decodes UTF-16LE bytes. Some writers include the
// terminator in the stream, so trailing NULs are dropped. A trailing odd
// byte is cut off, it cannot be part of any code unit.
func decodeUnicodeString(raw []byte) (string, error) {
	if len(raw)%2 != 0 {
		raw = raw[:len(raw)-1]
	}
	decoder := xunicode.UTF16(xunicode.LittleEndian, xunicode.IgnoreBOM).NewDecoder()
	decoded, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return "", checkpoint.From(err)
	}
	return strings.TrimRight(string(decoded), "\x00"), nil
}

// decodeString8 decodes 8 bit string bytes. The code page actually depends
// on another property, but Windows-1252 covers the vast majority of files
// and decodes every byte to something.
func decodeString8(raw []byte) (string, error) {
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return "", checkpoint.From(err)
	}
	return strings.TrimRight(string(decoded), "\x00"), nil
}

// formatGUID renders the usual dashed form. The first three groups are
// stored little endian, the rest big endian.
func formatGUID(raw []byte) string {
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		binary.LittleEndian.Uint32(raw[0:4]),
		binary.LittleEndian.Uint16(raw[4:6]),
		binary.LittleEndian.Uint16(raw[6:8]),
		binary.BigEndian.Uint16(raw[8:10]),
		raw[10:16])
}

// Fixed width property stream layout: the stream below the message root
// starts with a 32 byte header carrying the recipient and attachment
// counts, the ones below recipient and attachment storages with 8 reserved
// bytes. 16 byte records follow either way.
const (
	messagePropertiesHeaderLen = 32
	subPropertiesHeaderLen     = 8
	fixedRecordLen             = 16
)

// parseFixedProperties decodes the records of a "__properties_version1.0"
// stream. Variable width entries in there only carry sizes, their content
// lives in separate streams, so they are skipped. A trailing partial record
// is ignored.
func parseFixedProperties(data []byte, headerLen int) ([]Property, error) {
	if len(data) < headerLen {
		return nil, checkpoint.From(fmt.Errorf("fixed property stream needs a %d byte header, got %d bytes", headerLen, len(data)))
	}

	var properties []Property
	for offset := headerLen; offset+fixedRecordLen <= len(data); offset += fixedRecordLen {
		tag := Tag(binary.LittleEndian.Uint32(data[offset:]))
		value := data[offset+8 : offset+fixedRecordLen]

		width := 0
		switch tag.Type() {
		case TypeInteger16:
			width = 2
		case TypeInteger32, TypeFloating32:
			width = 4
		case TypeBoolean:
			width = 1
		case TypeInteger64, TypeFloating64, TypeSystemTime:
			width = 8
		default:
			continue
		}

		decoded, err := decodeValue(tag.Type(), value[:width])
		if err != nil {
			// Cannot happen with the widths above, but stay safe.
			continue
		}
		properties = append(properties, Property{
			Tag:   tag,
			Value: decoded,
			Raw:   append([]byte(nil), value[:width]...),
		})
	}
	return properties, nil
}

// PropertySet holds every property found below one storage, keyed by tag.
type PropertySet map[Tag]Property

// String returns the first non empty string property among ids, preferring
// the Unicode variant of each id over the 8 bit one.
func (ps PropertySet) String(ids ...uint16) string {
	for _, id := range ids {
		for _, propType := range [...]PropType{TypeString, TypeString8} {
			if property, ok := ps[NewTag(id, propType)]; ok {
				if value, ok := property.Value.(string); ok && value != "" {
					return value
				}
			}
		}
	}
	return ""
}

// Bytes returns the first binary property among ids, or nil.
func (ps PropertySet) Bytes(ids ...uint16) []byte {
	for _, id := range ids {
		if property, ok := ps[NewTag(id, TypeBinary)]; ok {
			if value, ok := property.Value.([]byte); ok {
				return value
			}
		}
	}
	return nil
}

// Int32 returns the 32 bit integer property with the given id.
func (ps PropertySet) Int32(id uint16) (int32, bool) {
	if property, ok := ps[NewTag(id, TypeInteger32)]; ok {
		if value, ok := property.Value.(int32); ok {
			return value, true
		}
	}
	return 0, false
}

// Time returns the timestamp property with the given id, or the zero
// time.Time.
func (ps PropertySet) Time(id uint16) time.Time {
	if property, ok := ps[NewTag(id, TypeSystemTime)]; ok {
		if value, ok := property.Value.(time.Time); ok {
			return value
		}
	}
	return time.Time{}
}

// Bool returns the boolean property with the given id.
func (ps PropertySet) Bool(id uint16) (bool, bool) {
	if property, ok := ps[NewTag(id, TypeBoolean)]; ok {
		if value, ok := property.Value.(bool); ok {
			return value, true
		}
	}
	return false, false
}

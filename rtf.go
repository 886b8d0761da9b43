package gomsg

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/aligator/gomsg/checkpoint"
)

// ErrInvalidRTF means a compressed RTF body violates the MS-OXRTFCP layout.
var ErrInvalidRTF = errors.New("invalid compressed RTF")

const (
	rtfCompressed   = 0x75465A4C // "LZFu"
	rtfUncompressed = 0x414C454D // "MELA"

	rtfHeaderLen = 16
	rtfDictLen   = 4096

	// rtfMaxSize caps the declared raw size. Real bodies stay far below it,
	// anything larger is a broken header.
	rtfMaxSize = 1 << 26
)

// rtfDictSeed is the predefined dictionary content. References may point
// into it before any output was produced.
const rtfDictSeed = "{\\rtf1\\ansi\\mac\\deff0\\deftab720{\\fonttbl;}" +
	"{\\f0\\fnil \\froman \\fswiss \\fmodern \\fscript \\fdecor " +
	"MS Sans SerifSymbolArialTimes New RomanCourier" +
	"{\\colortbl\\red0\\green0\\blue0\r\n" +
	"\\par \\pard\\plain\\f0\\fs20\\b\\i\\u\\tab\\tx"

// DecompressRTF expands a compressed RTF body as stored in the RTF body
// property. Uncompressed bodies marked MELA are copied through. The header
// CRC is not verified, popular writers get it wrong.
func DecompressRTF(data []byte) ([]byte, error) {
	if len(data) < rtfHeaderLen {
		return nil, checkpoint.From(fmt.Errorf("%w: header needs %d bytes, got %d", ErrInvalidRTF, rtfHeaderLen, len(data)))
	}
	compSize := binary.LittleEndian.Uint32(data[0:4])
	rawSize := binary.LittleEndian.Uint32(data[4:8])
	compType := binary.LittleEndian.Uint32(data[8:12])

	if rawSize > rtfMaxSize {
		return nil, checkpoint.From(fmt.Errorf("%w: declared size %d exceeds the %d limit", ErrInvalidRTF, rawSize, rtfMaxSize))
	}
	// compSize counts everything after itself. Trailing bytes beyond it are
	// padding and get cut off.
	if compSize < rtfHeaderLen-4 {
		return nil, checkpoint.From(fmt.Errorf("%w: declared payload of %d bytes is shorter than the header", ErrInvalidRTF, compSize))
	}
	if int64(compSize)+4 > int64(len(data)) {
		return nil, checkpoint.From(fmt.Errorf("%w: %d payload bytes declared but only %d present", ErrInvalidRTF, compSize, len(data)-4))
	}
	input := data[rtfHeaderLen : compSize+4]

	switch compType {
	case rtfUncompressed:
		if uint32(len(input)) < rawSize {
			return nil, checkpoint.From(fmt.Errorf("%w: uncompressed body holds %d of %d bytes", ErrInvalidRTF, len(input), rawSize))
		}
		return append([]byte(nil), input[:rawSize]...), nil
	case rtfCompressed:
		return decompressLZFu(input, rawSize)
	default:
		return nil, checkpoint.From(fmt.Errorf("%w: unknown compression type %#08x", ErrInvalidRTF, compType))
	}
}

// decompressLZFu runs the LZ77 variant of MS-OXRTFCP. Control bytes are
// read bit by bit starting at the least significant one, a zero bit means a
// literal byte and a one bit a two byte dictionary reference: a 12 bit
// offset and a 4 bit length minus two. Literals and copied bytes feed the
// circular dictionary, a reference whose offset equals the current write
// position terminates the stream.
func decompressLZFu(input []byte, rawSize uint32) ([]byte, error) {
	dict := make([]byte, rtfDictLen)
	writePos := copy(dict, rtfDictSeed)

	out := make([]byte, 0, rawSize)
	emit := func(b byte) {
		dict[writePos] = b
		writePos = (writePos + 1) % rtfDictLen
		out = append(out, b)
	}

	pos := 0
	for uint32(len(out)) < rawSize {
		if pos >= len(input) {
			return nil, checkpoint.From(fmt.Errorf("%w: input ended after %d of %d bytes", ErrInvalidRTF, len(out), rawSize))
		}
		control := input[pos]
		pos++
		for bit := 0; bit < 8 && uint32(len(out)) < rawSize; bit++ {
			if control&(1<<bit) == 0 {
				if pos >= len(input) {
					return nil, checkpoint.From(fmt.Errorf("%w: input ended inside a literal run", ErrInvalidRTF))
				}
				emit(input[pos])
				pos++
				continue
			}
			if pos+2 > len(input) {
				return nil, checkpoint.From(fmt.Errorf("%w: input ended inside a reference", ErrInvalidRTF))
			}
			reference := binary.BigEndian.Uint16(input[pos : pos+2])
			pos += 2
			offset := int(reference >> 4)
			if offset == writePos {
				return out, nil
			}
			length := int(reference&0x0F) + 2
			for i := 0; i < length; i++ {
				emit(dict[(offset+i)%rtfDictLen])
			}
		}
	}
	return out[:rawSize], nil
}

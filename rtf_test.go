package gomsg

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"
)

// compressedRTF builds a body with a valid header around payload. The CRC
// stays zero, it is not verified.
func compressedRTF(compType uint32, rawSize uint32, payload []byte) []byte {
	data := make([]byte, rtfHeaderLen, rtfHeaderLen+len(payload))
	binary.LittleEndian.PutUint32(data[0:4], uint32(rtfHeaderLen-4+len(payload)))
	binary.LittleEndian.PutUint32(data[4:8], rawSize)
	binary.LittleEndian.PutUint32(data[8:12], compType)
	return append(data, payload...)
}

func TestDecompressRTF(t *testing.T) {
	overdeclared := compressedRTF(rtfCompressed, 5, []byte{0x00, 'h', 'i'})
	binary.LittleEndian.PutUint32(overdeclared[0:4], 100)

	tests := []struct {
		name    string
		data    []byte
		want    []byte
		wantErr error
	}{
		{
			name: "literal bytes only",
			data: compressedRTF(rtfCompressed, 5, []byte{0x00, 'h', 'e', 'l', 'l', 'o'}),
			want: []byte("hello"),
		},
		{
			name: "a reference into the predefined dictionary",
			// Offset 0 length 4 copies the start of the dictionary, the
			// second reference points at the write position and terminates.
			data: compressedRTF(rtfCompressed, 64, []byte{0x03, 0x00, 0x02, 0x0D, 0x30}),
			want: []byte("{\\rt"),
		},
		{
			name: "an overlapping reference repeats fresh output",
			data: compressedRTF(rtfCompressed, 8, []byte{0x04, 'a', 'b', 0x0C, 0xF4}),
			want: []byte("abababab"),
		},
		{
			name: "the declared raw size cuts the output",
			data: compressedRTF(rtfCompressed, 3, []byte{0x00, 'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h'}),
			want: []byte("abc"),
		},
		{
			name: "an empty body",
			data: compressedRTF(rtfCompressed, 0, nil),
			want: []byte{},
		},
		{
			name: "uncompressed body is copied",
			data: compressedRTF(rtfUncompressed, 9, []byte("plain rtf")),
			want: []byte("plain rtf"),
		},
		{
			name: "uncompressed trailing padding is cut",
			data: compressedRTF(rtfUncompressed, 5, []byte("plain rtf")),
			want: []byte("plain"),
		},
		{
			name:    "too short for the header",
			data:    []byte{0x01, 0x02, 0x03},
			wantErr: ErrInvalidRTF,
		},
		{
			name:    "unknown compression type",
			data:    compressedRTF(0xDEADBEEF, 5, []byte{0x00, 'h', 'e', 'l', 'l', 'o'}),
			wantErr: ErrInvalidRTF,
		},
		{
			name:    "unbelievable raw size",
			data:    compressedRTF(rtfCompressed, 1<<27, []byte{0x00, 'h', 'i'}),
			wantErr: ErrInvalidRTF,
		},
		{
			name:    "more payload declared than present",
			data:    overdeclared,
			wantErr: ErrInvalidRTF,
		},
		{
			name:    "input ends inside a literal run",
			data:    compressedRTF(rtfCompressed, 10, []byte{0x00, 'a', 'b'}),
			wantErr: ErrInvalidRTF,
		},
		{
			name:    "input ends inside a reference",
			data:    compressedRTF(rtfCompressed, 10, []byte{0x01, 0x0C}),
			wantErr: ErrInvalidRTF,
		},
		{
			name:    "uncompressed body shorter than declared",
			data:    compressedRTF(rtfUncompressed, 20, []byte("plain")),
			wantErr: ErrInvalidRTF,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecompressRTF(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DecompressRTF() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr != nil {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecompressRTF() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMessage_RTF(t *testing.T) {
	tests := []struct {
		name    string
		message Message
		want    string
		wantErr error
	}{
		{
			name:    "no compressed body",
			message: Message{},
			want:    "",
		},
		{
			name: "compressed body",
			message: Message{
				RTFCompressed: compressedRTF(rtfCompressed, 5, []byte{0x00, 'h', 'e', 'l', 'l', 'o'}),
			},
			want: "hello",
		},
		{
			name: "broken body",
			message: Message{
				RTFCompressed: []byte{0x01, 0x02},
			},
			wantErr: ErrInvalidRTF,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.message.RTF()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Message.RTF() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("Message.RTF() = %q, want %q", got, tt.want)
			}
		})
	}
}

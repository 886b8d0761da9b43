package msgtest

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/spf13/afero"

	"github.com/aligator/gomsg/cfb"
)

func TestContainerBuilder_Build(t *testing.T) {
	image := NewContainer().
		AddStream("small.txt", []byte("small")).
		AddStream("sub/large.bin", bytes.Repeat([]byte{0xAB}, 5000)).
		AddStorage("empty").
		Build()

	if len(image)%512 != 0 {
		t.Errorf("Build() = %d bytes, want a multiple of the sector size", len(image))
	}
	if !bytes.Equal(image[:8], signature) {
		t.Errorf("Build() image does not start with the signature")
	}

	// The image has to be readable, the reader is the harder judge of the
	// layout anyway.
	fs, err := cfb.New(bytes.NewReader(image))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	content, err := afero.ReadFile(fs, "small.txt")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(content) != "small" {
		t.Errorf("ReadFile() = %q, want %q", content, "small")
	}

	content, err = afero.ReadFile(fs, "sub/large.bin")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(content, bytes.Repeat([]byte{0xAB}, 5000)) {
		t.Errorf("ReadFile() = %d bytes, want 5000 matching bytes", len(content))
	}

	info, err := fs.Stat("empty")
	if err != nil {
		t.Fatalf("Fs.Stat() error = %v", err)
	}
	if !info.IsDir() {
		t.Errorf("Fs.Stat().IsDir() = false, want true")
	}
}

func TestContainerBuilder_Version4(t *testing.T) {
	image := NewContainer().
		Version4().
		AddStream("small.txt", []byte("small")).
		AddStream("large.bin", bytes.Repeat([]byte{0xCD}, 9000)).
		Build()

	if len(image)%4096 != 0 {
		t.Errorf("Build() = %d bytes, want a multiple of the sector size", len(image))
	}
	if major := binary.LittleEndian.Uint16(image[26:]); major != 4 {
		t.Errorf("Build() wrote major version %d, want 4", major)
	}
	if shift := binary.LittleEndian.Uint16(image[30:]); shift != 12 {
		t.Errorf("Build() wrote sector shift %d, want 12", shift)
	}

	fs, err := cfb.New(bytes.NewReader(image))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	content, err := afero.ReadFile(fs, "large.bin")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(content, bytes.Repeat([]byte{0xCD}, 9000)) {
		t.Errorf("ReadFile() = %d bytes, want 9000 matching bytes", len(content))
	}
}

func TestContainerBuilder_DIFATSpill(t *testing.T) {
	// 7 MiB of stream data needs more FAT sectors than the 109 header slots
	// can point at.
	image := NewContainer().
		AddStream("big.bin", bytes.Repeat([]byte{0x5A}, 7<<20)).
		Build()

	if count := binary.LittleEndian.Uint32(image[72:]); count == 0 {
		t.Fatalf("Build() wrote no DIFAT sectors, the spill is missing")
	}
	first := binary.LittleEndian.Uint32(image[68:])
	fatSectors := binary.LittleEndian.Uint32(image[44:])
	if first != fatSectors {
		t.Errorf("Build() put the first DIFAT sector at %d, want %d right behind the FAT", first, fatSectors)
	}

	fs, err := cfb.New(bytes.NewReader(image))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	content, err := afero.ReadFile(fs, "big.bin")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(content, bytes.Repeat([]byte{0x5A}, 7<<20)) {
		t.Errorf("ReadFile() = %d bytes, want the original 7 MiB", len(content))
	}
}

func TestContainerBuilder_BuildIsDeterministic(t *testing.T) {
	build := func() []byte {
		return NewContainer().
			AddStream("one.txt", []byte("1")).
			AddStream("two.txt", []byte("2")).
			AddStream("sub/three.txt", []byte("3")).
			Shuffle(42).
			Build()
	}

	if !bytes.Equal(build(), build()) {
		t.Errorf("Build() produced two different images for the same content and seed")
	}
}

func TestContainerBuilder_DeclareSize(t *testing.T) {
	image := NewContainer().
		AddStream("cut.bin", []byte("short")).
		DeclareSize("cut.bin", 9000).
		Build()

	fs, err := cfb.New(bytes.NewReader(image))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	info, err := fs.Stat("cut.bin")
	if err != nil {
		t.Fatalf("Fs.Stat() error = %v", err)
	}
	if info.Size() != 9000 {
		t.Errorf("Fs.Stat().Size() = %d, want the declared 9000", info.Size())
	}
}

func TestCorruptSignature(t *testing.T) {
	image := NewContainer().AddStream("any.txt", []byte("any")).Build()
	corrupted := CorruptSignature(image)

	if bytes.Equal(corrupted[:8], signature) {
		t.Errorf("CorruptSignature() left the signature intact")
	}
	if !bytes.Equal(image[:8], signature) {
		t.Errorf("CorruptSignature() changed the original image")
	}
}

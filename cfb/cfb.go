// Package cfb implements a read only afero.Fs over a single compound file,
// the container format Outlook messages and other structured storage
// documents are saved in.
//
// A compound file is a tiny filesystem of its own: sectors are allocated
// through a file allocation table, streams are chains of sectors and a
// directory tree of storages and streams sits on top. Small streams live in
// a mini stream with its own allocation table. This package resolves all of
// that and exposes the directory tree as storages (directories) and streams
// (files).
package cfb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/aligator/gomsg/checkpoint"
)

// signature identifies a compound file. It is the first check run on any
// input.
var signature = [8]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// The ways a compound file can be unreadable. Every error returned by this
// package matches exactly one of them using errors.Is, io.EOF aside.
var (
	// ErrInvalidFormat means the input is no compound file at all.
	ErrInvalidFormat = errors.New("not a compound file")
	// ErrUnsupportedLayout means the header describes a layout this package
	// does not handle, for example an unknown version.
	ErrUnsupportedLayout = errors.New("unsupported compound file layout")
	// ErrTruncatedFile means the file ends before a sector the header or the
	// tables point at.
	ErrTruncatedFile = errors.New("file is shorter than its sector layout claims")
	// ErrCorruptChain means a sector chain cycles or links to a sector that
	// cannot exist.
	ErrCorruptChain = errors.New("corrupt allocation chain")
	// ErrInvalidDirectory means the directory entries or their tree links
	// are malformed.
	ErrInvalidDirectory = errors.New("invalid directory")
	// ErrTruncatedStream means a stream's chain provides fewer bytes than
	// the directory entry declares. Reads return the bytes that exist
	// together with this error.
	ErrTruncatedStream = errors.New("stream is shorter than its declared size")
)

// sector is a simple cache for one sector to avoid re-reading the same
// sector over and over when walking tables or consecutive entries.
type sector struct {
	current sectorID
	buffer  []byte
}

// Fs is a read only afero.Fs over one compound file.
//
// All reads go through a single cached sector, the lock serializes them. So
// a Fs may be shared between goroutines, but for parallel throughput give
// every goroutine its own Fs.
type Fs struct {
	lock        sync.Mutex
	reader      io.ReadSeeker
	header      Header
	sectorSize  uint32
	miniSize    uint32
	fat         []sectorID
	miniFAT     []sectorID
	entries     []ExtendedEntryHeader
	children    map[uint32][]uint32
	byPath      map[string]uint32
	sectorCache sector
}

// New reads the complete structure of the compound file provided by reader:
// header, allocation tables and the directory tree. The reader has to stay
// usable for as long as the Fs is used, stream content is read lazily.
func New(reader io.ReadSeeker) (*Fs, error) {
	return newFs(reader, false)
}

// NewSkipChecks works like New but skips the strict header validations.
// That may allow reading slightly out of spec files whose sector layout is
// still sane. Use with caution!
func NewSkipChecks(reader io.ReadSeeker) (*Fs, error) {
	return newFs(reader, true)
}

func newFs(reader io.ReadSeeker, skipChecks bool) (*Fs, error) {
	fs := &Fs{reader: reader}
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if err := fs.initialize(skipChecks); err != nil {
		return nil, err
	}
	return fs, nil
}

// initialize reads the header and everything needed to locate streams. The
// caller must hold fs.lock.
func (fs *Fs) initialize(skipChecks bool) error {
	if _, err := fs.reader.Seek(0, io.SeekStart); err != nil {
		return checkpoint.Wrap(err, fmt.Errorf("%w: cannot seek to the header", ErrTruncatedFile))
	}

	raw := make([]byte, headerSize)
	if n, err := io.ReadFull(fs.reader, raw); err != nil {
		if n >= len(signature) && !bytes.Equal(raw[:len(signature)], signature[:]) {
			// Not even the signature matches, so this is no truncated
			// compound file but something else entirely.
			return checkpoint.From(fmt.Errorf("%w: signature is % X", ErrInvalidFormat, raw[:len(signature)]))
		}
		return checkpoint.From(fmt.Errorf("%w: the header needs %d bytes, only %d are there", ErrTruncatedFile, headerSize, n))
	}

	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &fs.header); err != nil {
		return checkpoint.Wrap(err, ErrInvalidFormat)
	}
	if fs.header.Signature != signature {
		return checkpoint.From(fmt.Errorf("%w: signature is % X", ErrInvalidFormat, fs.header.Signature))
	}
	if err := fs.validateHeader(skipChecks); err != nil {
		return err
	}

	fs.sectorSize = 1 << fs.header.SectorShift
	fs.miniSize = 1 << fs.header.MiniSectorShift
	fs.sectorCache.current = freeSector
	fs.sectorCache.buffer = make([]byte, fs.sectorSize)

	if err := fs.loadTables(); err != nil {
		return err
	}
	return fs.loadDirectory()
}

func (fs *Fs) validateHeader(skipChecks bool) error {
	header := &fs.header
	if !skipChecks {
		if header.ByteOrder != byteOrderLittleEndian {
			return checkpoint.From(fmt.Errorf("%w: byte order %#04x", ErrUnsupportedLayout, header.ByteOrder))
		}
		switch header.MajorVersion {
		case 3:
			if header.SectorShift != 9 {
				return checkpoint.From(fmt.Errorf("%w: version 3 needs 512 byte sectors, sector shift is %d", ErrUnsupportedLayout, header.SectorShift))
			}
		case 4:
			if header.SectorShift != 12 {
				return checkpoint.From(fmt.Errorf("%w: version 4 needs 4096 byte sectors, sector shift is %d", ErrUnsupportedLayout, header.SectorShift))
			}
		default:
			return checkpoint.From(fmt.Errorf("%w: major version %d", ErrUnsupportedLayout, header.MajorVersion))
		}
		if header.MiniSectorShift != 6 {
			return checkpoint.From(fmt.Errorf("%w: mini sector shift %d", ErrUnsupportedLayout, header.MiniSectorShift))
		}
		if header.MiniStreamCutoff != miniStreamCutoff {
			return checkpoint.From(fmt.Errorf("%w: mini stream cutoff %d", ErrUnsupportedLayout, header.MiniStreamCutoff))
		}
	}

	// Even without checks the shifts must keep the sector arithmetic sane.
	if header.SectorShift < 7 || header.SectorShift > 15 {
		return checkpoint.From(fmt.Errorf("%w: sector shift %d", ErrUnsupportedLayout, header.SectorShift))
	}
	if header.MiniSectorShift >= header.SectorShift {
		return checkpoint.From(fmt.Errorf("%w: mini sector shift %d with sector shift %d", ErrUnsupportedLayout, header.MiniSectorShift, header.SectorShift))
	}
	return nil
}

// Header returns a copy of the raw file header.
func (fs *Fs) Header() Header {
	return fs.header
}

// fetch reads the requested sector into the cache if it is not already
// there. The caller must hold fs.lock.
func (fs *Fs) fetch(sector sectorID) error {
	if sector == fs.sectorCache.current {
		return nil
	}

	offset := sector.offset(fs.sectorSize)
	if _, err := fs.reader.Seek(offset, io.SeekStart); err != nil {
		fs.sectorCache.current = freeSector
		return checkpoint.Wrap(err, fmt.Errorf("%w: cannot seek to sector %d at offset %d", ErrTruncatedFile, sector, offset))
	}
	if _, err := io.ReadFull(fs.reader, fs.sectorCache.buffer); err != nil {
		fs.sectorCache.current = freeSector
		return checkpoint.From(fmt.Errorf("%w: sector %d at offset %d: %v", ErrTruncatedFile, sector, offset, err))
	}

	fs.sectorCache.current = sector
	return nil
}

// entryStreamSize returns the usable stream size of an entry.
func entryStreamSize(entry *ExtendedEntryHeader) int64 {
	return int64(entry.StreamSize)
}

// usesMiniStream reports whether the entry's content lives in the mini
// stream. The root entry holds the mini stream itself and always uses the
// regular chain.
func (fs *Fs) usesMiniStream(entry *ExtendedEntryHeader) bool {
	return entry.ObjectType != TypeRoot && uint64(entry.StreamSize) < uint64(fs.header.MiniStreamCutoff)
}

// readFileAt returns up to size bytes of the entry's stream starting at
// offset. io.EOF signals an offset at or beyond the end of the stream.
//
// If the allocation chain provides fewer bytes than the directory entry
// declares, readFileAt returns everything that exists in the requested range
// together with ErrTruncatedStream, so callers may still use the content.
func (fs *Fs) readFileAt(entry *ExtendedEntryHeader, offset int64, size int64) ([]byte, error) {
	streamSize := entryStreamSize(entry)
	if offset >= streamSize {
		return nil, io.EOF
	}
	if size > streamSize-offset {
		size = streamSize - offset
	}
	if size <= 0 {
		return []byte{}, nil
	}

	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.usesMiniStream(entry) {
		return fs.readMiniStreamAt(entry, offset, size)
	}
	return fs.readStreamAt(entry, offset, size)
}

// readStreamAt reads from a stream stored in regular sectors. The caller
// must hold fs.lock.
func (fs *Fs) readStreamAt(entry *ExtendedEntryHeader, offset int64, size int64) ([]byte, error) {
	chain, err := followChain(sectorID(entry.StartingSector), fs.fat)
	if err != nil {
		return nil, err
	}

	sectorSize := int64(fs.sectorSize)
	available := int64(len(chain)) * sectorSize
	if streamSize := entryStreamSize(entry); available > streamSize {
		available = streamSize
	}

	end := offset + size
	truncated := false
	if end > available {
		end = available
		truncated = true
	}

	content := make([]byte, 0, size)
	for index := offset / sectorSize; index*sectorSize < end; index++ {
		if err := fs.fetch(chain[index]); err != nil {
			return content, err
		}
		from := int64(0)
		if index*sectorSize < offset {
			from = offset - index*sectorSize
		}
		to := sectorSize
		if index*sectorSize+to > end {
			to = end - index*sectorSize
		}
		content = append(content, fs.sectorCache.buffer[from:to]...)
	}

	if truncated {
		return content, checkpoint.From(fmt.Errorf("%w: %q declares %d bytes but its chain only holds %d", ErrTruncatedStream, entry.Path, entryStreamSize(entry), available))
	}
	return content, nil
}

// readMiniStreamAt reads from a stream stored in mini sectors. Mini sectors
// are located inside the mini stream, which itself is a regular stream owned
// by the root entry. The caller must hold fs.lock.
func (fs *Fs) readMiniStreamAt(entry *ExtendedEntryHeader, offset int64, size int64) ([]byte, error) {
	miniChain, err := followChain(sectorID(entry.StartingSector), fs.miniFAT)
	if err != nil {
		return nil, err
	}
	root := &fs.entries[0]
	rootChain, err := followChain(sectorID(root.StartingSector), fs.fat)
	if err != nil {
		return nil, err
	}

	miniSize := int64(fs.miniSize)
	sectorSize := int64(fs.sectorSize)
	miniStreamSize := entryStreamSize(root)

	available := int64(len(miniChain)) * miniSize
	if streamSize := entryStreamSize(entry); available > streamSize {
		available = streamSize
	}

	end := offset + size
	truncated := false
	if end > available {
		end = available
		truncated = true
	}

	content := make([]byte, 0, size)
	for index := offset / miniSize; index*miniSize < end; index++ {
		// Position of this mini sector inside the mini stream, then inside
		// the regular sectors making up the mini stream.
		position := int64(miniChain[index]) * miniSize
		if position+miniSize > miniStreamSize || position/sectorSize >= int64(len(rootChain)) {
			truncated = true
			break
		}
		if err := fs.fetch(rootChain[position/sectorSize]); err != nil {
			return content, err
		}
		within := position % sectorSize

		base := index * miniSize
		from := int64(0)
		if base < offset {
			from = offset - base
		}
		to := miniSize
		if base+to > end {
			to = end - base
		}
		content = append(content, fs.sectorCache.buffer[within+from:within+to]...)
	}

	if truncated {
		return content, checkpoint.From(fmt.Errorf("%w: %q declares %d bytes but the mini stream only holds %d", ErrTruncatedStream, entry.Path, entryStreamSize(entry), int64(len(content))))
	}
	return content, nil
}

// readDir returns the children of a storage entry in canonical order.
func (fs *Fs) readDir(entry *ExtendedEntryHeader) ([]ExtendedEntryHeader, error) {
	if entry.ObjectType != TypeStorage && entry.ObjectType != TypeRoot {
		return nil, checkpoint.From(syscall.ENOTDIR)
	}

	// The tree is resolved once at load time and never changes, no lock
	// needed.
	ids := fs.children[entry.ID]
	content := make([]ExtendedEntryHeader, 0, len(ids))
	for _, id := range ids {
		content = append(content, fs.entries[id])
	}
	return content, nil
}

// lookup resolves a slash separated path to its directory entry.
func (fs *Fs) lookup(name string) (*ExtendedEntryHeader, error) {
	id, ok := fs.byPath[normalizePath(name)]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}
	return &fs.entries[id], nil
}

// normalizePath maps the various spellings of a path to the form used in
// the byPath index: forward slashes, no leading or trailing separator and
// the empty string for the root.
func normalizePath(name string) string {
	for len(name) > 0 && (name[0] == '/' || name[0] == '\\') {
		name = name[1:]
	}
	for len(name) > 0 && (name[len(name)-1] == '/' || name[len(name)-1] == '\\') {
		name = name[:len(name)-1]
	}
	if name == "." {
		return ""
	}
	return name
}

// Open opens the storage or stream at the given path for reading.
func (fs *Fs) Open(name string) (afero.File, error) {
	entry, err := fs.lookup(name)
	if err != nil {
		return nil, err
	}
	return newFile(fs, entry), nil
}

// OpenFile is like Open. Any flag requesting write access fails, the
// filesystem is read only.
func (fs *Fs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, checkpoint.From(syscall.EPERM)
	}
	return fs.Open(name)
}

// Stat returns the FileInfo of the storage or stream at the given path.
func (fs *Fs) Stat(name string) (os.FileInfo, error) {
	entry, err := fs.lookup(name)
	if err != nil {
		return nil, err
	}
	return entry.FileInfo(), nil
}

// Name returns the name of this filesystem.
func (fs *Fs) Name() string {
	return "cfb"
}

// Create is not supported as the filesystem is read only.
func (fs *Fs) Create(name string) (afero.File, error) {
	return nil, checkpoint.From(syscall.EPERM)
}

// Mkdir is not supported as the filesystem is read only.
func (fs *Fs) Mkdir(name string, perm os.FileMode) error {
	return checkpoint.From(syscall.EPERM)
}

// MkdirAll is not supported as the filesystem is read only.
func (fs *Fs) MkdirAll(path string, perm os.FileMode) error {
	return checkpoint.From(syscall.EPERM)
}

// Remove is not supported as the filesystem is read only.
func (fs *Fs) Remove(name string) error {
	return checkpoint.From(syscall.EPERM)
}

// RemoveAll is not supported as the filesystem is read only.
func (fs *Fs) RemoveAll(path string) error {
	return checkpoint.From(syscall.EPERM)
}

// Rename is not supported as the filesystem is read only.
func (fs *Fs) Rename(oldname, newname string) error {
	return checkpoint.From(syscall.EPERM)
}

// Chmod is not supported as the filesystem is read only.
func (fs *Fs) Chmod(name string, mode os.FileMode) error {
	return checkpoint.From(syscall.EPERM)
}

// Chown is not supported as the filesystem is read only.
func (fs *Fs) Chown(name string, uid, gid int) error {
	return checkpoint.From(syscall.EPERM)
}

// Chtimes is not supported as the filesystem is read only.
func (fs *Fs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return checkpoint.From(syscall.EPERM)
}

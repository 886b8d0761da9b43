package cfb

import (
	"errors"
	"io"
	"os"
	"syscall"

	"github.com/spf13/afero"

	"github.com/aligator/gomsg/checkpoint"
)

var (
	// ErrReadFile may happen on reading a stream. It may be caused by a
	// corrupt chain, a truncated file or a stream shorter than declared.
	ErrReadFile = errors.New("could not read the stream completely")
	// ErrSeekFile may happen if the seek parameters are out of range.
	ErrSeekFile = errors.New("could not seek inside of the stream")
	// ErrReadDir may happen if the entry is no storage or the container is
	// in a state where its children cannot be resolved.
	ErrReadDir = errors.New("could not read the storage")
)

// cfbFileFs provides everything a File needs from the container. It exists
// mainly so that the File tests can mock away the container.
// The mock can be regenerated using
//
//	mockgen -source=file.go -destination=file_mock.go -package cfb
type cfbFileFs interface {
	readFileAt(entry *ExtendedEntryHeader, offset int64, size int64) ([]byte, error)
	readDir(entry *ExtendedEntryHeader) ([]ExtendedEntryHeader, error)
}

// File is one open storage or stream of a compound file. It implements
// afero.File.
type File struct {
	fs     cfbFileFs
	entry  *ExtendedEntryHeader
	path   string
	stat   os.FileInfo
	offset int64
}

func newFile(fs cfbFileFs, entry *ExtendedEntryHeader) *File {
	return &File{
		fs:    fs,
		entry: entry,
		path:  entry.Path,
		stat:  entry.FileInfo(),
	}
}

// Close resets the file and releases its reference to the container.
func (f *File) Close() error {
	f.fs = nil
	f.entry = nil
	f.path = ""
	f.stat = nil
	f.offset = 0
	return nil
}

// Read reads as much of the stream into p as possible, starting at the
// current offset. At the end of the stream it returns io.EOF.
//
// A stream whose declared size exceeds its stored bytes yields the stored
// bytes and an error matching ErrTruncatedStream, so the caller may keep
// the partial content.
func (f *File) Read(p []byte) (n int, err error) {
	if f.fs == nil {
		return 0, checkpoint.From(afero.ErrFileClosed)
	}
	if f.stat.Size() <= f.offset {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	data, err := f.fs.readFileAt(f.entry, f.offset, int64(len(p)))
	n = copy(p, data)
	// Even a short or flagged read moves the offset, partial content still
	// counts as consumed.
	f.offset += int64(n)

	if err != nil {
		return n, checkpoint.Wrap(err, ErrReadFile)
	}
	return n, nil
}

// ReadAt works like Read but at the given offset. It does not use nor
// change the file's current offset.
func (f *File) ReadAt(p []byte, off int64) (n int, err error) {
	if f.fs == nil {
		return 0, checkpoint.From(afero.ErrFileClosed)
	}
	if off < 0 {
		return 0, checkpoint.Wrap(syscall.EINVAL, ErrReadFile)
	}

	data, err := f.fs.readFileAt(f.entry, off, int64(len(p)))
	n = copy(p, data)
	if err != nil {
		return n, checkpoint.Wrap(err, ErrReadFile)
	}
	// io.ReaderAt demands an error if fewer bytes than requested come back.
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Seek sets the offset for the next Read. Storages have no byte offset and
// refuse to seek, their handle position counts children instead.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.fs == nil {
		return 0, checkpoint.From(afero.ErrFileClosed)
	}
	if f.stat != nil && f.stat.IsDir() {
		return 0, checkpoint.Wrap(syscall.EISDIR, ErrSeekFile)
	}

	var absolute int64
	switch whence {
	case io.SeekStart:
		absolute = offset
	case io.SeekCurrent:
		absolute = f.offset + offset
	case io.SeekEnd:
		absolute = f.stat.Size() + offset
	default:
		return 0, checkpoint.Wrap(syscall.EINVAL, ErrSeekFile)
	}

	if absolute < 0 || absolute > f.stat.Size() {
		return 0, checkpoint.Wrap(afero.ErrOutOfRange, ErrSeekFile)
	}

	f.offset = absolute
	return absolute, nil
}

// Name returns the name of the storage or stream as it occurs in its parent
// storage.
func (f *File) Name() string {
	if f.stat == nil {
		return ""
	}
	return f.stat.Name()
}

// Readdir reads the contents of the storage and returns a slice of up to
// count FileInfo values, in canonical directory order. Subsequent calls
// continue where the previous one stopped. A short final batch comes with a
// nil error, the call after it returns io.EOF. count <= 0 returns all
// remaining children at once.
func (f *File) Readdir(count int) ([]os.FileInfo, error) {
	if f.fs == nil {
		return nil, checkpoint.From(afero.ErrFileClosed)
	}
	if f.stat == nil || !f.stat.IsDir() {
		return nil, checkpoint.Wrap(syscall.ENOTDIR, ErrReadDir)
	}

	content, err := f.fs.readDir(f.entry)
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	// Reading the root storage as a stream moves the offset in bytes, not in
	// children. Clamp it so such a handle lists nothing instead of slicing
	// out of range.
	offset := int(f.offset)
	if offset < 0 {
		offset = 0
	}
	if offset > len(content) {
		offset = len(content)
	}

	end := len(content)
	if count > 0 {
		if offset == end {
			return nil, io.EOF
		}
		if next := offset + count; next < end {
			end = next
		}
	}

	result := make([]os.FileInfo, 0, end-offset)
	for _, entry := range content[offset:end] {
		result = append(result, entry.FileInfo())
	}
	f.offset = int64(end)

	return result, nil
}

// Readdirnames works like Readdir but returns only the names.
func (f *File) Readdirnames(n int) ([]string, error) {
	content, err := f.Readdir(n)
	if len(content) == 0 {
		return nil, err
	}

	names := make([]string, 0, len(content))
	for _, info := range content {
		names = append(names, info.Name())
	}
	return names, err
}

// Stat returns the FileInfo describing the storage or stream.
func (f *File) Stat() (os.FileInfo, error) {
	if f.stat == nil {
		return nil, checkpoint.From(afero.ErrFileClosed)
	}
	return f.stat, nil
}

// Sync does nothing, there is never anything to flush.
func (f *File) Sync() error {
	return nil
}

// Write is not supported as the filesystem is read only.
func (f *File) Write(p []byte) (n int, err error) {
	return 0, checkpoint.From(syscall.EPERM)
}

// WriteAt is not supported as the filesystem is read only.
func (f *File) WriteAt(p []byte, off int64) (n int, err error) {
	return 0, checkpoint.From(syscall.EPERM)
}

// WriteString is not supported as the filesystem is read only.
func (f *File) WriteString(s string) (ret int, err error) {
	return 0, checkpoint.From(syscall.EPERM)
}

// Truncate is not supported as the filesystem is read only.
func (f *File) Truncate(size int64) error {
	return checkpoint.From(syscall.EPERM)
}

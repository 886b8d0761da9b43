package cfb

import (
	"io"
	"io/fs"

	"github.com/spf13/afero"

	"github.com/aligator/gomsg/checkpoint"
)

// GoDirEntry is a fs.DirEntry compatible wrapper around the FileInfo of a
// directory entry.
type GoDirEntry struct {
	fs.FileInfo
}

// Type returns the type bits of the entry's mode.
func (e GoDirEntry) Type() fs.FileMode {
	return e.FileInfo.Mode().Type()
}

// Info returns the FileInfo itself.
func (e GoDirEntry) Info() (fs.FileInfo, error) {
	return e.FileInfo, nil
}

// GoFile is a fs.ReadDirFile compatible wrapper around File.
type GoFile struct {
	*File
}

// ReadDir implements fs.ReadDirFile for the wrapped storage.
func (f GoFile) ReadDir(n int) ([]fs.DirEntry, error) {
	infos, err := f.Readdir(n)
	if err != nil && err != io.EOF {
		return nil, err
	}

	entries := make([]fs.DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, GoDirEntry{FileInfo: info})
	}
	return entries, err
}

// GoFs wraps Fs into a fs.FS compatible filesystem, usable with everything
// in the io/fs ecosystem including testing/fstest.
type GoFs struct {
	*Fs
}

// NewGoFS reads the compound file provided by reader just like New but
// returns a fs.FS compatible filesystem.
func NewGoFS(reader io.ReadSeeker) (*GoFs, error) {
	cfbFs, err := New(reader)
	if err != nil {
		return nil, checkpoint.From(err)
	}
	return &GoFs{Fs: cfbFs}, nil
}

// NewGoFSSkipChecks works like NewGoFS but skips the strict header
// validations. Use with caution!
func NewGoFSSkipChecks(reader io.ReadSeeker) (*GoFs, error) {
	cfbFs, err := NewSkipChecks(reader)
	if err != nil {
		return nil, checkpoint.From(err)
	}
	return &GoFs{Fs: cfbFs}, nil
}

// NewIOFS reads the compound file provided by reader just like New but
// returns it wrapped into afero's io/fs adapter. Compared to GoFs that also
// brings the afero implementations of Glob and ReadFile along.
func NewIOFS(reader io.ReadSeeker) (afero.IOFS, error) {
	cfbFs, err := New(reader)
	if err != nil {
		return afero.IOFS{}, checkpoint.From(err)
	}
	return afero.NewIOFS(cfbFs), nil
}

// NewIOFSSkipChecks works like NewIOFS but skips the strict header
// validations. Use with caution!
func NewIOFSSkipChecks(reader io.ReadSeeker) (afero.IOFS, error) {
	cfbFs, err := NewSkipChecks(reader)
	if err != nil {
		return afero.IOFS{}, checkpoint.From(err)
	}
	return afero.NewIOFS(cfbFs), nil
}

// Open opens the storage or stream at the given path following the io/fs
// path rules, so "." opens the root storage.
func (g *GoFs) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	file, err := g.Fs.Open(name)
	if err != nil {
		return nil, err
	}
	return GoFile{File: file.(*File)}, nil
}

package cfb

import (
	"os"
	"time"
)

// FileInfo returns an os.FileInfo for this entry.
func (h ExtendedEntryHeader) FileInfo() os.FileInfo {
	return entryHeaderFileInfo{entry: h}
}

type entryHeaderFileInfo struct {
	entry ExtendedEntryHeader
}

// Name returns the name of the storage or stream inside its parent.
func (e entryHeaderFileInfo) Name() string {
	return e.entry.Name
}

// Size returns the declared stream size. For the root entry that is the
// size of the mini stream, for other storages it is 0.
func (e entryHeaderFileInfo) Size() int64 {
	return int64(e.entry.StreamSize)
}

// Mode returns os.ModeDir for storages and 0 for streams. Compound files
// know nothing about permissions.
func (e entryHeaderFileInfo) Mode() os.FileMode {
	if e.IsDir() {
		return os.ModeDir
	}
	return 0
}

// ModTime returns the modification time of the entry. Writers rarely fill
// it for streams, in that case a zero time.Time is returned which can be
// checked using time.Time.IsZero.
func (e entryHeaderFileInfo) ModTime() time.Time {
	return ParseFileTime(e.entry.ModifiedTime)
}

// IsDir reports whether the entry is a storage. The root entry counts as
// storage.
func (e entryHeaderFileInfo) IsDir() bool {
	return e.entry.ObjectType == TypeStorage || e.entry.ObjectType == TypeRoot
}

// Sys returns the ExtendedEntryHeader of this entry. It allows access to
// the raw directory entry fields like the starting sector or the CLSID.
func (e entryHeaderFileInfo) Sys() interface{} {
	return e.entry
}

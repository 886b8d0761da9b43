package cfb

// Header is the raw 512 byte structure at the very beginning of every
// compound file. All multi byte fields are little endian, so a single
// binary.Read fills it directly from the first bytes of the file.
type Header struct {
	Signature            [8]byte
	CLSID                [16]byte
	MinorVersion         uint16
	MajorVersion         uint16
	ByteOrder            uint16
	SectorShift          uint16
	MiniSectorShift      uint16
	Reserved             [6]byte
	DirSectorCount       uint32
	FATSectorCount       uint32
	FirstDirSector       uint32
	TransactionSignature uint32
	MiniStreamCutoff     uint32
	FirstMiniFATSector   uint32
	MiniFATSectorCount   uint32
	FirstDIFATSector     uint32
	DIFATSectorCount     uint32
	DIFAT                [headerDIFATEntries]uint32
}

const (
	// headerSize is fixed. Version 4 files pad the rest of the first 4096
	// byte sector with zeros.
	headerSize = 512

	// headerDIFATEntries is the number of FAT sector locations stored
	// directly in the header before the DIFAT continues in its own sectors.
	headerDIFATEntries = 109

	byteOrderLittleEndian = 0xFFFE

	// Streams smaller than the cutoff live in the mini stream.
	miniStreamCutoff = 4096
)

// EntryHeader is one raw 128 byte directory entry.
type EntryHeader struct {
	NameRaw        [64]byte
	NameLength     uint16
	ObjectType     byte
	ColorFlag      byte
	LeftSiblingID  uint32
	RightSiblingID uint32
	ChildID        uint32
	CLSID          [16]byte
	StateFlags     uint32
	CreationTime   uint64
	ModifiedTime   uint64
	StartingSector uint32
	StreamSize     uint64
}

// entrySize is the on disk size of one directory entry.
const entrySize = 128

// The object types a directory entry can have.
const (
	TypeUnallocated byte = 0
	TypeStorage     byte = 1
	TypeStream      byte = 2
	TypeLockBytes   byte = 3
	TypeProperty    byte = 4
	TypeRoot        byte = 5
)

// ExtendedEntryHeader is a directory entry enriched with everything that
// needs decoding or context: the UTF-16 name as a Go string, the entry's
// index in the directory array and its slash separated path inside the
// container.
type ExtendedEntryHeader struct {
	EntryHeader
	Name string
	ID   uint32
	Path string
}

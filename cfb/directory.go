package cfb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode"
	"unicode/utf16"

	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/aligator/gomsg/checkpoint"
)

// loadDirectory reads the whole directory chain, decodes all entries and
// resolves the storage tree into the children and byPath indexes.
func (fs *Fs) loadDirectory() error {
	chain, err := followChain(sectorID(fs.header.FirstDirSector), fs.fat)
	if err != nil {
		return checkpoint.Wrap(err, ErrInvalidDirectory)
	}

	entriesPerSector := fs.sectorSize / entrySize
	for _, location := range chain {
		if err := fs.fetch(location); err != nil {
			return err
		}
		for i := uint32(0); i < entriesPerSector; i++ {
			record := fs.sectorCache.buffer[i*entrySize : (i+1)*entrySize]
			var raw EntryHeader
			if err := binary.Read(bytes.NewReader(record), binary.LittleEndian, &raw); err != nil {
				return checkpoint.Wrap(err, ErrInvalidDirectory)
			}
			if fs.header.MajorVersion == 3 {
				// Version 3 writers only maintain the low 32 bits of the
				// size and may leave garbage in the high ones.
				raw.StreamSize = uint64(uint32(raw.StreamSize))
			}

			entry := ExtendedEntryHeader{EntryHeader: raw, ID: uint32(len(fs.entries))}
			if raw.ObjectType != TypeUnallocated {
				entry.Name, err = decodeEntryName(&raw)
				if err != nil {
					return err
				}
			}
			fs.entries = append(fs.entries, entry)
		}
	}

	if len(fs.entries) == 0 || fs.entries[0].ObjectType != TypeRoot {
		return checkpoint.From(fmt.Errorf("%w: the first directory entry must be the root storage", ErrInvalidDirectory))
	}
	for i := 1; i < len(fs.entries); i++ {
		if fs.entries[i].ObjectType == TypeRoot {
			return checkpoint.From(fmt.Errorf("%w: more than one root storage (entry %d)", ErrInvalidDirectory, i))
		}
	}

	fs.children = make(map[uint32][]uint32)
	fs.byPath = map[string]uint32{"": 0}
	// Every entry may be placed in the tree at most once. The root counts
	// as placed from the start.
	placed := map[uint32]struct{}{0: {}}
	return fs.indexStorage(0, "", placed)
}

// indexStorage resolves the children of one storage and descends into the
// child storages. It fills children and byPath along the way.
func (fs *Fs) indexStorage(storageID uint32, prefix string, placed map[uint32]struct{}) error {
	kids, err := fs.childrenOf(storageID, placed)
	if err != nil {
		return err
	}
	fs.children[storageID] = kids

	for _, kid := range kids {
		entry := &fs.entries[kid]
		path := entry.Name
		if prefix != "" {
			path = prefix + "/" + entry.Name
		}
		if _, ok := fs.byPath[path]; ok {
			return checkpoint.From(fmt.Errorf("%w: duplicate name %q", ErrInvalidDirectory, path))
		}
		entry.Path = path
		fs.byPath[path] = kid

		if entry.ObjectType == TypeStorage {
			if err := fs.indexStorage(kid, path, placed); err != nil {
				return err
			}
		}
	}

	return nil
}

// childrenOf recovers the children of a storage in canonical order: an in
// order walk of the binary search tree hanging off the storage's child link.
// That order is deterministic no matter how the entries are laid out in the
// directory sectors.
//
// Unallocated entries and object types this package does not handle are
// skipped, but their sibling links are still followed. Some writers free
// entries without relinking the tree around them.
func (fs *Fs) childrenOf(storageID uint32, placed map[uint32]struct{}) ([]uint32, error) {
	var kids []uint32
	var walk func(id uint32) error
	walk = func(id uint32) error {
		if id == noStream {
			return nil
		}
		if id >= uint32(len(fs.entries)) {
			return checkpoint.From(fmt.Errorf("%w: link to entry %d but the directory only has %d entries", ErrInvalidDirectory, id, len(fs.entries)))
		}
		if _, ok := placed[id]; ok {
			return checkpoint.From(fmt.Errorf("%w: entry %d is referenced twice", ErrInvalidDirectory, id))
		}
		placed[id] = struct{}{}

		entry := &fs.entries[id]
		if err := walk(entry.LeftSiblingID); err != nil {
			return err
		}
		if entry.ObjectType == TypeStorage || entry.ObjectType == TypeStream {
			kids = append(kids, id)
		}
		return walk(entry.RightSiblingID)
	}

	if err := walk(fs.entries[storageID].ChildID); err != nil {
		return nil, err
	}
	return kids, nil
}

// decodeEntryName turns the raw UTF-16LE name field of an entry into a Go
// string. NameLength counts bytes including the two byte terminator.
func decodeEntryName(raw *EntryHeader) (string, error) {
	length := int(raw.NameLength)
	if length < 2 || length > len(raw.NameRaw) || length%2 != 0 {
		return "", checkpoint.From(fmt.Errorf("%w: entry name length %d", ErrInvalidDirectory, length))
	}

	decoder := xunicode.UTF16(xunicode.LittleEndian, xunicode.IgnoreBOM).NewDecoder()
	name, _, err := transform.Bytes(decoder, raw.NameRaw[:length-2])
	if err != nil {
		return "", checkpoint.Wrap(err, fmt.Errorf("%w: undecodable entry name", ErrInvalidDirectory))
	}
	return string(name), nil
}

// CompareNames orders directory entry names the way the on disk tree is
// sorted: shorter names first, names of equal length case insensitively by
// UTF-16 code unit. It returns -1, 0 or 1 like strings.Compare.
func CompareNames(a, b string) int {
	unitsA := utf16.Encode([]rune(a))
	unitsB := utf16.Encode([]rune(b))
	if len(unitsA) != len(unitsB) {
		if len(unitsA) < len(unitsB) {
			return -1
		}
		return 1
	}
	for i := range unitsA {
		ca := upperUTF16(unitsA[i])
		cb := upperUTF16(unitsB[i])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	return 0
}

// upperUTF16 uppercases a single UTF-16 code unit. Surrogates have no case
// and pass through.
func upperUTF16(c uint16) uint16 {
	if c >= 0xD800 && c < 0xE000 {
		return c
	}
	return uint16(unicode.ToUpper(rune(c)))
}

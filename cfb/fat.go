package cfb

import (
	"encoding/binary"
	"fmt"

	"github.com/aligator/gomsg/checkpoint"
)

// loadTables reads the DIFAT, the FAT and the Mini FAT. Everything else in
// the file is located through these tables.
func (fs *Fs) loadTables() error {
	difat, err := fs.readDIFAT()
	if err != nil {
		return err
	}
	if err := fs.readFAT(difat); err != nil {
		return err
	}
	return fs.readMiniFAT()
}

// readDIFAT collects the locations of all FAT sectors. The first 109 slots
// live directly in the header, everything beyond that in a chain of
// dedicated DIFAT sectors where the last 4 bytes of each sector point to the
// next one.
func (fs *Fs) readDIFAT() ([]sectorID, error) {
	difat := make([]sectorID, 0, headerDIFATEntries)
	for _, location := range fs.header.DIFAT {
		if sectorID(location).IsFree() {
			// Unused slots are fill, writers populate the array densely.
			continue
		}
		difat = append(difat, sectorID(location))
	}

	locationsPerSector := fs.sectorSize/4 - 1
	visited := make(map[sectorID]struct{})
	next := sectorID(fs.header.FirstDIFATSector)
	for !next.IsEndOfChain() && !next.IsFree() {
		if !next.IsRegular() {
			return nil, checkpoint.From(fmt.Errorf("%w: DIFAT chain hit sentinel %#08x", ErrCorruptChain, uint32(next)))
		}
		if _, ok := visited[next]; ok {
			return nil, checkpoint.From(fmt.Errorf("%w: DIFAT chain cycles back to sector %d", ErrCorruptChain, next))
		}
		visited[next] = struct{}{}

		if err := fs.fetch(next); err != nil {
			return nil, err
		}
		for i := uint32(0); i < locationsPerSector; i++ {
			location := sectorID(binary.LittleEndian.Uint32(fs.sectorCache.buffer[i*4:]))
			if location.IsFree() {
				continue
			}
			difat = append(difat, location)
		}
		next = sectorID(binary.LittleEndian.Uint32(fs.sectorCache.buffer[locationsPerSector*4:]))
	}

	return difat, nil
}

// readFAT concatenates every sector the DIFAT points at into the FAT, one
// chain link per sector of the file.
func (fs *Fs) readFAT(difat []sectorID) error {
	entriesPerSector := fs.sectorSize / 4
	fat := make([]sectorID, 0, uint32(len(difat))*entriesPerSector)
	for _, location := range difat {
		if !location.IsRegular() {
			return checkpoint.From(fmt.Errorf("%w: DIFAT lists sentinel %#08x as a FAT sector", ErrCorruptChain, uint32(location)))
		}
		if err := fs.fetch(location); err != nil {
			return err
		}
		for i := uint32(0); i < entriesPerSector; i++ {
			fat = append(fat, sectorID(binary.LittleEndian.Uint32(fs.sectorCache.buffer[i*4:])))
		}
	}

	fs.fat = fat
	return nil
}

// readMiniFAT walks the Mini FAT chain through the main FAT and loads it.
// Files without a mini stream just have no Mini FAT.
func (fs *Fs) readMiniFAT() error {
	first := sectorID(fs.header.FirstMiniFATSector)
	if first.IsEndOfChain() || first.IsFree() {
		return nil
	}

	chain, err := followChain(first, fs.fat)
	if err != nil {
		return err
	}
	entriesPerSector := fs.sectorSize / 4
	miniFAT := make([]sectorID, 0, uint32(len(chain))*entriesPerSector)
	for _, location := range chain {
		if err := fs.fetch(location); err != nil {
			return err
		}
		for i := uint32(0); i < entriesPerSector; i++ {
			miniFAT = append(miniFAT, sectorID(binary.LittleEndian.Uint32(fs.sectorCache.buffer[i*4:])))
		}
	}

	fs.miniFAT = miniFAT
	return nil
}

// followChain collects the chain starting at start by looking up each next
// sector in the given table until the end of chain marker. It works the same
// way for the FAT and the Mini FAT.
//
// A link that leaves the table or hits a non terminator sentinel is
// dangling, a link to an already collected sector is a cycle. Both corrupt
// the chain. An end of chain marker as start is fine and results in an empty
// chain, zero size streams are stored like that.
func followChain(start sectorID, table []sectorID) ([]sectorID, error) {
	var chain []sectorID
	visited := make(map[sectorID]struct{})
	for current := start; !current.IsEndOfChain(); {
		if !current.IsRegular() {
			return nil, checkpoint.From(fmt.Errorf("%w: link to sentinel %#08x", ErrCorruptChain, uint32(current)))
		}
		if uint32(current) >= uint32(len(table)) {
			return nil, checkpoint.From(fmt.Errorf("%w: link to sector %d but the table only covers %d sectors", ErrCorruptChain, current, len(table)))
		}
		if _, ok := visited[current]; ok {
			return nil, checkpoint.From(fmt.Errorf("%w: cycle back to sector %d", ErrCorruptChain, current))
		}
		visited[current] = struct{}{}
		chain = append(chain, current)
		current = table[current]
	}

	return chain, nil
}

package cfb

// sectorID addresses one sector of the file. The sector's bytes start at
// (id + 1) * sector size, the extra one accounting for the header which
// occupies the space of sector -1 so to say.
type sectorID uint32

// The values above maxRegSector are sentinels and never address a sector.
const (
	// maxRegSector is the largest sector id that addresses a real sector.
	maxRegSector sectorID = 0xFFFFFFFA
	// difatSector marks a sector that holds DIFAT entries.
	difatSector sectorID = 0xFFFFFFFC
	// fatSector marks a sector that holds FAT entries.
	fatSector sectorID = 0xFFFFFFFD
	// endOfChain terminates every sector chain.
	endOfChain sectorID = 0xFFFFFFFE
	// freeSector marks an unallocated sector or an unused table slot.
	freeSector sectorID = 0xFFFFFFFF

	// noStream is the empty sibling or child link in directory entries.
	noStream uint32 = 0xFFFFFFFF
)

// IsRegular reports whether the id addresses a real sector.
func (s sectorID) IsRegular() bool {
	return s <= maxRegSector
}

// IsDIFAT reports whether the sector is reserved for the DIFAT.
func (s sectorID) IsDIFAT() bool {
	return s == difatSector
}

// IsFAT reports whether the sector is reserved for the FAT.
func (s sectorID) IsFAT() bool {
	return s == fatSector
}

// IsEndOfChain reports whether the id terminates a chain.
func (s sectorID) IsEndOfChain() bool {
	return s == endOfChain
}

// IsFree reports whether the id marks unallocated space.
func (s sectorID) IsFree() bool {
	return s == freeSector
}

// offset returns the position of the sector's first byte in the file.
func (s sectorID) offset(sectorSize uint32) int64 {
	return (int64(s) + 1) * int64(sectorSize)
}

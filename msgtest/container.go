// Package msgtest assembles compound files and Outlook style messages in
// memory, so the tests and the testdata generator do not depend on binary
// fixtures.
//
// The produced images are version 3 compound files with 512 byte sectors
// unless Version4 switches a builder to 4096 byte sectors. Besides well
// formed files the container builder can produce specific defects on demand:
// chain cycles, dangling chain links, shuffled directory records and streams
// that declare more bytes than they store.
package msgtest

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/aligator/gomsg/cfb"
)

const (
	miniSectorSize = 64
	miniCutoff     = 4096

	entrySize = 128

	// headerDIFATSlots is the number of FAT locations the header itself can
	// hold before the DIFAT spills into its own sectors.
	headerDIFATSlots = 109

	difatSector = 0xFFFFFFFC
	fatSector   = 0xFFFFFFFD
	endOfChain  = 0xFFFFFFFE
	free        = 0xFFFFFFFF
	noStream    = 0xFFFFFFFF

	typeStorage byte = 1
	typeStream  byte = 2
	typeRoot    byte = 5
)

var signature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// node is one storage or stream being assembled.
type node struct {
	isStorage bool
	data      []byte
	children  map[string]*node
}

func newStorageNode() *node {
	return &node{isStorage: true, children: map[string]*node{}}
}

// ContainerBuilder assembles a compound file in memory. All methods return
// the builder itself so calls can be chained, Build produces the image.
type ContainerBuilder struct {
	root     *node
	declared map[string]uint64
	cycled   map[string]bool
	broken   map[string]bool
	shuffle  *int64
	version4 bool
}

// NewContainer returns a builder holding only an empty root storage.
func NewContainer() *ContainerBuilder {
	return &ContainerBuilder{
		root:     newStorageNode(),
		declared: map[string]uint64{},
		cycled:   map[string]bool{},
		broken:   map[string]bool{},
	}
}

// storage returns the storage at the slash separated path, creating it and
// everything along the way as needed.
func (b *ContainerBuilder) storage(path string) *node {
	current := b.root
	if path == "" {
		return current
	}
	for _, part := range strings.Split(path, "/") {
		child, ok := current.children[part]
		if !ok {
			child = newStorageNode()
			current.children[part] = child
		}
		if !child.isStorage {
			panic(fmt.Sprintf("msgtest: %q is a stream, not a storage", part))
		}
		current = child
	}
	return current
}

// AddStorage adds an empty storage at the slash separated path.
func (b *ContainerBuilder) AddStorage(path string) *ContainerBuilder {
	b.storage(path)
	return b
}

// AddStream adds a stream at the slash separated path, creating the
// storages along the way as needed.
func (b *ContainerBuilder) AddStream(path string, data []byte) *ContainerBuilder {
	dir, name := splitPath(path)
	b.storage(dir).children[name] = &node{data: data}
	return b
}

func splitPath(path string) (dir string, name string) {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i], path[i+1:]
	}
	return "", path
}

// DeclareSize overrides the size recorded in the stream's directory entry
// without changing its stored bytes. Declaring more than is stored produces
// a truncated stream.
func (b *ContainerBuilder) DeclareSize(path string, size uint64) *ContainerBuilder {
	b.declared[path] = size
	return b
}

// CycleChain rewrites the stream's chain so that its last sector points
// back at its first one.
func (b *ContainerBuilder) CycleChain(path string) *ContainerBuilder {
	b.cycled[path] = true
	return b
}

// BreakChain rewrites the stream's chain so that its last sector points at
// a sector far outside the file.
func (b *ContainerBuilder) BreakChain(path string) *ContainerBuilder {
	b.broken[path] = true
	return b
}

// Shuffle permutes the directory records using the given seed. The root has
// to stay the first record, everything else moves. The logical tree is
// unchanged, only the placement of the records differs.
func (b *ContainerBuilder) Shuffle(seed int64) *ContainerBuilder {
	b.shuffle = &seed
	return b
}

// Version4 switches the image to the version 4 layout with 4096 byte
// sectors. The mini stream geometry is the same in both versions.
func (b *ContainerBuilder) Version4() *ContainerBuilder {
	b.version4 = true
	return b
}

// flatEntry is one directory entry before serialization. The sibling and
// child links refer to the natural entry order and are remapped if the
// records get shuffled.
type flatEntry struct {
	name  string
	path  string
	typ   byte
	left  uint32
	right uint32
	child uint32
	start uint32
	size  uint64
	data  []byte
	mini  bool
}

// layout collects the sector arithmetic of one Build run.
type layout struct {
	sectorSize     int
	major          uint16
	shift          uint16
	fatSectors     int
	difatSectors   int
	dirSectors     int
	dirStart       uint32
	miniFATStart   uint32
	miniFATSectors int
}

// Build assembles the image. The sector layout is FAT, DIFAT spill,
// directory, Mini FAT, mini stream and then the regular streams. The first
// 109 FAT locations live in the header, the rest in chained DIFAT sectors.
func (b *ContainerBuilder) Build() []byte {
	entries := b.flatten()

	l := layout{sectorSize: 512, major: 3, shift: 9}
	if b.version4 {
		l = layout{sectorSize: 4096, major: 4, shift: 12}
	}
	entriesPerSector := l.sectorSize / entrySize
	fatPerSector := l.sectorSize / 4
	difatPerSector := fatPerSector - 1

	// Pack the small streams into the mini stream.
	var miniFAT []uint32
	var miniStream []byte
	for _, entry := range entries {
		if entry.typ != typeStream || !entry.mini || len(entry.data) == 0 {
			continue
		}
		count := (len(entry.data) + miniSectorSize - 1) / miniSectorSize
		entry.start = uint32(len(miniFAT))
		miniFAT = appendChain(miniFAT, count, b.cycled[entry.path], b.broken[entry.path])
		miniStream = append(miniStream, entry.data...)
		miniStream = append(miniStream, make([]byte, count*miniSectorSize-len(entry.data))...)
	}
	entries[0].size = uint64(len(miniStream))

	l.dirSectors = (len(entries) + entriesPerSector - 1) / entriesPerSector
	l.miniFATSectors = (len(miniFAT)*4 + l.sectorSize - 1) / l.sectorSize
	miniStreamSectors := (len(miniStream) + l.sectorSize - 1) / l.sectorSize
	regularSectors := 0
	for _, entry := range entries {
		if entry.typ == typeStream && !entry.mini {
			regularSectors += (len(entry.data) + l.sectorSize - 1) / l.sectorSize
		}
	}

	// The FAT covers its own sectors and any DIFAT spill too, so grow it
	// until everything fits.
	other := l.dirSectors + l.miniFATSectors + miniStreamSectors + regularSectors
	l.fatSectors = 1
	for {
		l.difatSectors = 0
		if l.fatSectors > headerDIFATSlots {
			l.difatSectors = (l.fatSectors - headerDIFATSlots + difatPerSector - 1) / difatPerSector
		}
		if l.fatSectors*fatPerSector >= other+l.fatSectors+l.difatSectors {
			break
		}
		l.fatSectors++
	}

	fat := make([]uint32, 0, l.fatSectors*fatPerSector)
	for i := 0; i < l.fatSectors; i++ {
		fat = append(fat, fatSector)
	}
	for i := 0; i < l.difatSectors; i++ {
		fat = append(fat, difatSector)
	}

	l.dirStart = uint32(len(fat))
	fat = appendChain(fat, l.dirSectors, false, false)

	l.miniFATStart = uint32(endOfChain)
	if l.miniFATSectors > 0 {
		l.miniFATStart = uint32(len(fat))
		fat = appendChain(fat, l.miniFATSectors, false, false)
	}

	miniStreamStart := uint32(endOfChain)
	if miniStreamSectors > 0 {
		miniStreamStart = uint32(len(fat))
		fat = appendChain(fat, miniStreamSectors, false, false)
	}
	entries[0].start = miniStreamStart

	for _, entry := range entries {
		if entry.typ != typeStream || entry.mini || len(entry.data) == 0 {
			continue
		}
		entry.start = uint32(len(fat))
		fat = appendChain(fat, (len(entry.data)+l.sectorSize-1)/l.sectorSize, b.cycled[entry.path], b.broken[entry.path])
	}

	total := len(fat)
	for len(fat) < l.fatSectors*fatPerSector {
		fat = append(fat, free)
	}

	image := make([]byte, (1+total)*l.sectorSize)
	putHeader(image, l)
	for i, value := range fat {
		binary.LittleEndian.PutUint32(image[l.sectorSize+i*4:], value)
	}
	putDIFATSectors(image, l, difatPerSector)

	order := b.entryOrder(len(entries))
	dirBase := (1 + int(l.dirStart)) * l.sectorSize
	for i, entry := range entries {
		slot := order[i]
		putEntry(image[dirBase+slot*entrySize:dirBase+(slot+1)*entrySize], entry, order)
	}
	for slot := len(entries); slot < l.dirSectors*entriesPerSector; slot++ {
		putFreeEntry(image[dirBase+slot*entrySize : dirBase+(slot+1)*entrySize])
	}

	if l.miniFATSectors > 0 {
		base := (1 + int(l.miniFATStart)) * l.sectorSize
		for i, value := range miniFAT {
			binary.LittleEndian.PutUint32(image[base+i*4:], value)
		}
		for i := len(miniFAT); i < l.miniFATSectors*fatPerSector; i++ {
			binary.LittleEndian.PutUint32(image[base+i*4:], free)
		}
	}
	if len(miniStream) > 0 {
		copy(image[(1+int(miniStreamStart))*l.sectorSize:], miniStream)
	}
	for _, entry := range entries {
		if entry.typ == typeStream && !entry.mini && len(entry.data) > 0 {
			copy(image[(1+int(entry.start))*l.sectorSize:], entry.data)
		}
	}

	return image
}

// flatten assigns entry ids breadth first and links every storage's
// children into a balanced name sorted tree.
func (b *ContainerBuilder) flatten() []*flatEntry {
	root := &flatEntry{name: "Root Entry", typ: typeRoot, left: noStream, right: noStream, child: noStream, start: endOfChain}
	entries := []*flatEntry{root}

	type job struct {
		storage *node
		entry   *flatEntry
		path    string
	}
	queue := []job{{storage: b.root, entry: root}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		names := make([]string, 0, len(current.storage.children))
		for name := range current.storage.children {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			return cfb.CompareNames(names[i], names[j]) < 0
		})

		ids := make([]uint32, 0, len(names))
		for _, name := range names {
			child := current.storage.children[name]
			path := name
			if current.path != "" {
				path = current.path + "/" + name
			}
			entry := &flatEntry{name: name, path: path, left: noStream, right: noStream, child: noStream, start: endOfChain}
			if child.isStorage {
				entry.typ = typeStorage
				entry.start = 0
				queue = append(queue, job{storage: child, entry: entry, path: path})
			} else {
				entry.typ = typeStream
				entry.data = child.data
				entry.size = uint64(len(child.data))
				if declared, ok := b.declared[path]; ok {
					entry.size = declared
				}
				entry.mini = entry.size < miniCutoff
			}
			ids = append(ids, uint32(len(entries)))
			entries = append(entries, entry)
		}
		current.entry.child = linkBST(entries, ids)
	}

	return entries
}

// linkBST links the given entries into a balanced binary search tree and
// returns its root. The ids have to be sorted by name already.
func linkBST(entries []*flatEntry, ids []uint32) uint32 {
	if len(ids) == 0 {
		return noStream
	}
	mid := len(ids) / 2
	root := ids[mid]
	entries[root].left = linkBST(entries, ids[:mid])
	entries[root].right = linkBST(entries, ids[mid+1:])
	return root
}

// appendChain appends a chain of count sequential sectors to the table. A
// cycled chain ends on its first sector again, a broken one on a sector far
// outside the file.
func appendChain(table []uint32, count int, cycled bool, broken bool) []uint32 {
	first := uint32(len(table))
	for i := 1; i < count; i++ {
		table = append(table, first+uint32(i))
	}
	switch {
	case cycled:
		table = append(table, first)
	case broken:
		table = append(table, 0x00FFFFF0)
	default:
		table = append(table, endOfChain)
	}
	return table
}

// entryOrder maps natural entry ids to their directory slots.
func (b *ContainerBuilder) entryOrder(count int) []int {
	order := make([]int, count)
	for i := range order {
		order[i] = i
	}
	if b.shuffle == nil || count <= 2 {
		return order
	}
	perm := rand.New(rand.NewSource(*b.shuffle)).Perm(count - 1)
	for i := 1; i < count; i++ {
		order[i] = perm[i-1] + 1
	}
	return order
}

func remap(order []int, id uint32) uint32 {
	if id == noStream {
		return noStream
	}
	return uint32(order[id])
}

func putEntry(dst []byte, entry *flatEntry, order []int) {
	units := utf16.Encode([]rune(entry.name))
	if len(units) > 31 {
		panic(fmt.Sprintf("msgtest: entry name %q is too long", entry.name))
	}
	for i, unit := range units {
		binary.LittleEndian.PutUint16(dst[i*2:], unit)
	}
	binary.LittleEndian.PutUint16(dst[64:], uint16((len(units)+1)*2))
	dst[66] = entry.typ
	dst[67] = 1 // black, readers do not rebalance anyway
	binary.LittleEndian.PutUint32(dst[68:], remap(order, entry.left))
	binary.LittleEndian.PutUint32(dst[72:], remap(order, entry.right))
	binary.LittleEndian.PutUint32(dst[76:], remap(order, entry.child))
	binary.LittleEndian.PutUint32(dst[116:], entry.start)
	binary.LittleEndian.PutUint64(dst[120:], entry.size)
}

func putFreeEntry(dst []byte) {
	binary.LittleEndian.PutUint32(dst[68:], noStream)
	binary.LittleEndian.PutUint32(dst[72:], noStream)
	binary.LittleEndian.PutUint32(dst[76:], noStream)
}

func putHeader(image []byte, l layout) {
	le := binary.LittleEndian
	copy(image, signature)
	le.PutUint16(image[24:], 0x003E) // minor version, always 0x3E
	le.PutUint16(image[26:], l.major)
	le.PutUint16(image[28:], 0xFFFE)
	le.PutUint16(image[30:], l.shift)
	le.PutUint16(image[32:], 6)
	if l.major == 4 {
		// Version 4 records the directory size, version 3 leaves it zero.
		le.PutUint32(image[40:], uint32(l.dirSectors))
	}
	le.PutUint32(image[44:], uint32(l.fatSectors))
	le.PutUint32(image[48:], l.dirStart)
	le.PutUint32(image[56:], miniCutoff)
	le.PutUint32(image[60:], l.miniFATStart)
	le.PutUint32(image[64:], uint32(l.miniFATSectors))
	firstDIFAT := uint32(endOfChain)
	if l.difatSectors > 0 {
		firstDIFAT = uint32(l.fatSectors)
	}
	le.PutUint32(image[68:], firstDIFAT)
	le.PutUint32(image[72:], uint32(l.difatSectors))
	for i := 0; i < headerDIFATSlots; i++ {
		value := uint32(free)
		if i < l.fatSectors {
			value = uint32(i)
		}
		le.PutUint32(image[76+i*4:], value)
	}
}

// putDIFATSectors writes the FAT locations beyond the header slots. The
// DIFAT sectors sit directly behind the FAT, each one chains to the next in
// its final entry and unused slots stay free.
func putDIFATSectors(image []byte, l layout, difatPerSector int) {
	le := binary.LittleEndian
	for s := 0; s < l.difatSectors; s++ {
		base := (1 + l.fatSectors + s) * l.sectorSize
		for slot := 0; slot < difatPerSector; slot++ {
			location := headerDIFATSlots + s*difatPerSector + slot
			value := uint32(free)
			if location < l.fatSectors {
				value = uint32(location)
			}
			le.PutUint32(image[base+slot*4:], value)
		}
		next := uint32(endOfChain)
		if s+1 < l.difatSectors {
			next = uint32(l.fatSectors + s + 1)
		}
		le.PutUint32(image[base+difatPerSector*4:], next)
	}
}

// CorruptSignature returns a copy of the image whose signature no longer
// identifies a compound file.
func CorruptSignature(image []byte) []byte {
	corrupted := append([]byte(nil), image...)
	corrupted[0] = 'X'
	return corrupted
}

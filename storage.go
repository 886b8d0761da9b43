package gomsg

import (
	"strconv"
	"strings"
)

// The fixed storage and stream names of the message layout.
const (
	// propertiesStream is the name of the fixed width property stream found
	// below the root and below every recipient and attachment storage.
	propertiesStream = "__properties_version1.0"

	// recipientPrefix starts the name of a recipient storage, followed by 8
	// hex digits of index.
	recipientPrefix = "__recip_version1.0_#"

	// attachmentPrefix starts the name of an attachment storage, followed by
	// 8 hex digits of index.
	attachmentPrefix = "__attach_version1.0_#"

	// nameidStorage holds the named property mappings. This package reads
	// properties by their well known identifiers only, so it is skipped.
	nameidStorage = "__nameid_version1.0"
)

// storageClass tells what role a storage below the root plays.
type storageClass int

const (
	storageUnknown storageClass = iota
	storageRecipient
	storageAttachment
	storageNameID
)

// classifyStorage derives the role and, for recipients and attachments, the
// index from a storage name. Indexes are assigned by the producing client
// and decide the final order no matter where the directory entry sits.
func classifyStorage(name string) (storageClass, uint32, bool) {
	switch {
	case strings.HasPrefix(name, recipientPrefix):
		index, ok := parseStorageIndex(name[len(recipientPrefix):])
		return storageRecipient, index, ok
	case strings.HasPrefix(name, attachmentPrefix):
		index, ok := parseStorageIndex(name[len(attachmentPrefix):])
		return storageAttachment, index, ok
	case name == nameidStorage:
		return storageNameID, 0, true
	default:
		return storageUnknown, 0, false
	}
}

// parseStorageIndex parses the 8 hex digits behind a recipient or
// attachment prefix.
func parseStorageIndex(digits string) (uint32, bool) {
	if len(digits) != 8 {
		return 0, false
	}
	value, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(value), true
}

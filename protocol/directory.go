package protocol

import (
	"errors"
	"fmt"
)

// File-type values that may appear in a directory entry's composed
// file-type field ((subtype << 8) | file_type).
const (
	FileTypeUnknown0001 uint16 = 0x0001
	FileTypeFitDevice   uint16 = 0x0180
	FileTypeFitActivity uint16 = 0x0480
)

const (
	directoryHeaderLen = 16
	directoryEntryLen  = 16

	expectedDirectoryVersion      = 1
	expectedDirectoryRecordLength = 16
	expectedDirectoryTimeFormat   = 1
)

// ErrBadDirectoryHeader is returned by ReadDirectory when the 16-byte
// header does not match the version/record-length/time-format this
// decoder understands.
var ErrBadDirectoryHeader = errors.New("protocol: bad directory header")

// DirectoryHeader is the decoded form of the 16-byte header that
// precedes every directory listing.
type DirectoryHeader struct {
	Version      byte
	RecordLength byte
	TimeFormat   byte
	PosixTime    int64
}

// DirectoryEntry is the logical, parsed form of one 16-byte raw
// directory record: POSIX time, length, index, and a composed file
// type drawn from the FileType* constants.
type DirectoryEntry struct {
	Index     uint16
	FileType  uint16
	Length    uint32
	PosixTime int64
}

// ReadDirectory decodes a reassembled directory buffer (the accumulator
// from a directory download) into a header and a map of entries keyed
// by index. A trailing remainder shorter than one full record is a
// clean end of directory, not an error — the device pads bursts.
func ReadDirectory(buf []byte) (DirectoryHeader, map[uint16]DirectoryEntry, error) {
	if len(buf) < directoryHeaderLen {
		return DirectoryHeader{}, nil, fmt.Errorf("%w: buffer shorter than header (%d bytes)", ErrBadDirectoryHeader, len(buf))
	}

	version := buf[0]
	recordLength := buf[1]
	timeFormat := buf[2]
	if version != expectedDirectoryVersion ||
		recordLength != expectedDirectoryRecordLength ||
		timeFormat != expectedDirectoryTimeFormat {
		return DirectoryHeader{}, nil, fmt.Errorf("%w: version=%d record_length=%d time_format=%d",
			ErrBadDirectoryHeader, version, recordLength, timeFormat)
	}

	header := DirectoryHeader{
		Version:      version,
		RecordLength: recordLength,
		TimeFormat:   timeFormat,
		PosixTime:    ToPosixTime(getLE32(buf, 8)),
	}

	entries := make(map[uint16]DirectoryEntry)
	offset := directoryHeaderLen
	for len(buf)-offset >= directoryEntryLen {
		rec := buf[offset : offset+directoryEntryLen]
		index := getLE16(rec, 0)
		fileType := uint16(rec[2])
		subtype := uint16(rec[3])
		entries[index] = DirectoryEntry{
			Index:     index,
			FileType:  (subtype << 8) | fileType,
			Length:    getLE32(rec, 8),
			PosixTime: ToPosixTime(getLE32(rec, 12)),
		}
		offset += directoryEntryLen
	}

	return header, entries, nil
}

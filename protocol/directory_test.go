package protocol

import (
	"errors"
	"testing"
)

func buildHeader(clock uint32) []byte {
	h := make([]byte, directoryHeaderLen)
	h[0] = 1  // version
	h[1] = 16 // record_length
	h[2] = 1  // time_format
	putLE32(h, 8, clock)
	return h
}

func buildEntry(index uint16, fileType, subtype byte, length, deviceTime uint32) []byte {
	e := make([]byte, directoryEntryLen)
	putLE16(e, 0, index)
	e[2] = fileType
	e[3] = subtype
	putLE32(e, 8, length)
	putLE32(e, 12, deviceTime)
	return e
}

func TestReadDirectoryScenarioS4(t *testing.T) {
	buf := append([]byte{}, buildHeader(0x78563412)...)
	buf = append(buf, buildEntry(2, 0x80, 0x04, 28, 0x78563411)...)

	header, entries, err := ReadDirectory(buf)
	if err != nil {
		t.Fatalf("ReadDirectory failed: %v", err)
	}
	if header.PosixTime != 2649980946 {
		t.Fatalf("header.PosixTime = %d, want 2649980946", header.PosixTime)
	}
	entry, ok := entries[2]
	if !ok {
		t.Fatal("expected entry with index 2")
	}
	if entry.PosixTime != 2649980945 {
		t.Fatalf("entry.PosixTime = %d, want 2649980945", entry.PosixTime)
	}
	if entry.Length != 28 {
		t.Fatalf("entry.Length = %d, want 28", entry.Length)
	}
	if entry.FileType != FileTypeFitActivity {
		t.Fatalf("entry.FileType = 0x%04X, want 0x%04X", entry.FileType, FileTypeFitActivity)
	}
}

func TestReadDirectoryRejectsBadHeader(t *testing.T) {
	buf := buildHeader(0)
	buf[1] = 8 // wrong record length
	_, _, err := ReadDirectory(buf)
	if !errors.Is(err, ErrBadDirectoryHeader) {
		t.Fatalf("err = %v, want ErrBadDirectoryHeader", err)
	}
}

func TestReadDirectoryDuplicateIndexLastWriterWins(t *testing.T) {
	buf := append([]byte{}, buildHeader(0)...)
	buf = append(buf, buildEntry(5, 0x80, 0x01, 100, 0)...)
	buf = append(buf, buildEntry(5, 0x80, 0x04, 200, 0)...)

	_, entries, err := ReadDirectory(buf)
	if err != nil {
		t.Fatalf("ReadDirectory failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	entry := entries[5]
	if entry.Length != 200 || entry.FileType != FileTypeFitActivity {
		t.Fatalf("last-writer-wins violated: got %+v", entry)
	}
}

func TestReadDirectoryTrailingPartialRecordIsNotAnError(t *testing.T) {
	buf := append([]byte{}, buildHeader(0)...)
	buf = append(buf, buildEntry(1, 0x80, 0x01, 10, 0)...)
	buf = append(buf, []byte{0xAA, 0xBB, 0xCC}...) // 3 trailing bytes, short of 16

	_, entries, err := ReadDirectory(buf)
	if err != nil {
		t.Fatalf("trailing partial record should not be an error, got %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
}

func TestReadDirectoryRejectsShortHeader(t *testing.T) {
	_, _, err := ReadDirectory([]byte{1, 16, 1})
	if !errors.Is(err, ErrBadDirectoryHeader) {
		t.Fatalf("err = %v, want ErrBadDirectoryHeader", err)
	}
}

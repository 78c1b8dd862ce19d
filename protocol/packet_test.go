package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestBuildSerializeParseRoundTrip(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	p := BuildPacket(3, 0x010B, payload)
	data := Serialize(p)

	got, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.Seqno != p.Seqno || got.Command != p.Command || !bytes.Equal(got.Payload, p.Payload) {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, p)
	}
	if !got.IsFromHost() {
		t.Fatal("expected host-origin packet")
	}
}

func TestScenarioS1KnownCRC(t *testing.T) {
	p := BuildPacket(SeqnoTerminal, 0x0600, nil)
	data := Serialize(p)
	want := []byte{0xE3, 0x00, 0x03, 0x01, 0x00, 0x06}
	if !bytes.Equal(data, want) {
		t.Fatalf("Serialize = % X, want % X", data, want)
	}

	got, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.Seqno != SeqnoTerminal {
		t.Fatalf("seqno = %d, want 7", got.Seqno)
	}
	if got.Length() != 6 {
		t.Fatalf("length = %d, want 6", got.Length())
	}
	if !got.IsFromHost() {
		t.Fatal("expected host-origin packet")
	}
}

func TestParseRejectsBadLength(t *testing.T) {
	_, err := Parse([]byte{0x00, 0x01})
	if !errors.Is(err, ErrBadLength) {
		t.Fatalf("err = %v, want ErrBadLength", err)
	}

	// payload_length says 10 bytes follow, but only 2 are present.
	_, err = Parse([]byte{0x00, 0x0A, 0x03, 0x01, 0x00, 0x00, 0x01, 0x02})
	if !errors.Is(err, ErrBadLength) {
		t.Fatalf("err = %v, want ErrBadLength", err)
	}
}

func TestParseRejectsBadCRC(t *testing.T) {
	p := BuildPacket(1, 0x0108, []byte{0xAA})
	data := Serialize(p)
	data[0] ^= 0x01 // flip a low CRC bit without touching seqno

	_, err := Parse(data)
	if !errors.Is(err, ErrBadCRC) {
		t.Fatalf("err = %v, want ErrBadCRC", err)
	}
}

func TestBuildAckPacket(t *testing.T) {
	p := BuildAckPacket(0x040B)
	if p.Command != 0x840B {
		t.Fatalf("ack command = 0x%04X, want 0x840B", p.Command)
	}
	if p.Seqno != SeqnoTerminal {
		t.Fatalf("ack seqno = %d, want 7", p.Seqno)
	}
	if len(p.Payload) != 0 {
		t.Fatalf("ack payload length = %d, want 0", len(p.Payload))
	}
}

func TestBuildPacketRejectsOversizePayload(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for payload > 14 bytes")
		}
	}()
	BuildPacket(1, 0x010B, make([]byte, 15))
}

func TestBuildPacketRejectsSeqnoOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for seqno > 7")
		}
	}()
	BuildPacket(8, 0x010B, nil)
}

func BenchmarkSerializeParse(b *testing.B) {
	p := BuildPacket(4, 0x030B, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		data := Serialize(p)
		if _, err := Parse(data); err != nil {
			b.Fatalf("Parse error: %v", err)
		}
	}
}

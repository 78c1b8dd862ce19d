package protocol

import (
	"errors"
	"fmt"
)

const (
	// SeqnoUninitialized marks a Burst that has never read a packet.
	SeqnoUninitialized = 0
	// SeqnoTerminal marks the last packet of a burst, and is also used
	// for every single-shot command packet.
	SeqnoTerminal = 7
	// seqnoInvalid is an in-memory-only sentinel for a burst that has
	// observed an out-of-order or post-terminal packet. It must never
	// appear on the wire.
	seqnoInvalid = 8

	seqnoCycleLen = 6

	peerHost   byte = 3
	peerDevice byte = 1

	maxPayloadLen  = 14
	minPacketLen   = 6
	maxPacketLen   = 20
	headerLenMinus = 1 // bytes[1:] is what the CRC covers
)

// ErrBadLength is returned by Parse when the buffer's overall length is
// outside [6, 20] or inconsistent with its own payload_length byte.
var ErrBadLength = errors.New("protocol: bad packet length")

// ErrBadCRC is returned by Parse when the 5-bit CRC in byte 0 does not
// match a freshly computed value over bytes [1:].
var ErrBadCRC = errors.New("protocol: bad packet crc")

// Packet is the decoded form of a single 6-to-20-byte GATT frame.
type Packet struct {
	Seqno    byte
	Sender   byte
	Receiver byte
	Command  uint16
	Payload  []byte
}

// Length is the on-wire length of p: 6 + len(Payload).
func (p Packet) Length() int {
	return minPacketLen + len(p.Payload)
}

// IsFromDevice reports whether p was sent by the device to the host.
func (p Packet) IsFromDevice() bool {
	return p.Sender == peerDevice && p.Receiver == peerHost
}

// IsFromHost reports whether p was sent by the host to the device.
func (p Packet) IsFromHost() bool {
	return p.Sender == peerHost && p.Receiver == peerDevice
}

// BuildPacket assembles an outbound packet. It is a programmer error
// (panic) to pass seqno > 7 or a payload longer than 14 bytes; the
// manager never does so, and a malformed caller has no way to recover
// the resulting bytes onto the wire correctly.
func BuildPacket(seqno byte, cmd uint16, payload []byte) Packet {
	if seqno > SeqnoTerminal {
		panic(fmt.Sprintf("protocol: seqno %d > 7", seqno))
	}
	if len(payload) > maxPayloadLen {
		panic(fmt.Sprintf("protocol: payload length %d > 14", len(payload)))
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	return Packet{
		Seqno:    seqno,
		Sender:   peerHost,
		Receiver: peerDevice,
		Command:  cmd,
		Payload:  buf,
	}
}

// BuildAckPacket builds the single-shot acknowledgement packet for cmd:
// seqno 7, command id cmd|0x8000, empty payload.
func BuildAckPacket(cmd uint16) Packet {
	return BuildPacket(SeqnoTerminal, AckCommand(cmd), nil)
}

// AckCommand sets the acknowledgement bit on a command id.
func AckCommand(cmd uint16) uint16 {
	return cmd | 0x8000
}

// Serialize renders p as the bytes that go on the wire: crc_and_seqno,
// payload_length, sender, receiver, command (LE), payload.
func Serialize(p Packet) []byte {
	out := make([]byte, p.Length())
	out[1] = byte(len(p.Payload))
	out[2] = p.Sender
	out[3] = p.Receiver
	putLE16(out, 4, p.Command)
	copy(out[6:], p.Payload)

	crc := crc8(out[1:]) & 0x1F
	out[0] = (p.Seqno << 5) | crc
	return out
}

// Parse decodes a buffer received from the device into a Packet,
// validating length consistency and the 5-bit CRC.
func Parse(data []byte) (Packet, error) {
	if len(data) < minPacketLen || len(data) > maxPacketLen {
		return Packet{}, fmt.Errorf("%w: total length %d", ErrBadLength, len(data))
	}
	payloadLen := int(data[1])
	if len(data) != minPacketLen+payloadLen {
		return Packet{}, fmt.Errorf("%w: length %d inconsistent with payload_length %d", ErrBadLength, len(data), payloadLen)
	}

	wantCRC := crc8(data[1:]) & 0x1F
	gotCRC := data[0] & 0x1F
	if wantCRC != gotCRC {
		return Packet{}, fmt.Errorf("%w: got 0x%02X want 0x%02X", ErrBadCRC, gotCRC, wantCRC)
	}

	payload := make([]byte, payloadLen)
	copy(payload, data[6:])

	return Packet{
		Seqno:    data[0] >> 5,
		Sender:   data[2],
		Receiver: data[3],
		Command:  getLE16(data, 4),
		Payload:  payload,
	}, nil
}

// NextSeqno advances an in-burst sequence number: (s mod 6) + 1. Callers
// must only pass s in 1..6.
func NextSeqno(s byte) byte {
	return (s % seqnoCycleLen) + 1
}

// SeqnoMatches reports whether observed satisfies expected: either an
// exact match, or the terminal marker 7, which always matches.
func SeqnoMatches(observed, expected byte) bool {
	return observed == expected || observed == SeqnoTerminal
}

package protocol

import "fmt"

// Command ids, little-endian on the wire. Acknowledgements from the
// device set the high bit (see AckCommand).
const (
	CmdDownload      uint16 = 0x010B
	CmdDownloadReply uint16 = 0x030B
	CmdErase         uint16 = 0x040B
	CmdEraseReply    uint16 = 0x050B
	CmdSetTime       uint16 = 0x0108
)

// ErrorCode classifies an error event surfaced to a ResultCallback.
type ErrorCode int

const (
	ErrorNone ErrorCode = iota
	ErrorBadHeader
	ErrorBadPayload
	ErrorUnexpected
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorNone:
		return "none"
	case ErrorBadHeader:
		return "bad_header"
	case ErrorBadPayload:
		return "bad_payload"
	case ErrorUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// Transport is the engine's only dependency on the outside world: it
// hands the caller a serialized packet and is told when the engine
// starts and stops expecting device traffic.
type Transport interface {
	// WriteValue delivers data to the GATT characteristic. A non-zero
	// return is treated as a fatal transport error.
	WriteValue(data []byte) int
	StartWaiting()
	FinishWaiting()
}

// ResultCallback receives every event the engine produces. All methods
// are logically optional: embed NopResultCallback to implement only the
// ones a given client cares about.
type ResultCallback interface {
	OnError(code ErrorCode, message string)
	OnParseClock(posixTime int64)
	OnParseDirectoryEntry(entry DirectoryEntry)
	OnFinishParsingDirectory()
	OnDownloadFile(index uint16, data []byte)
	OnEraseFile(index uint16, ok bool)
	OnSetTime(ok bool)
}

// NopResultCallback implements ResultCallback with no-op methods. Embed
// it in a client type and override only the callbacks of interest.
type NopResultCallback struct{}

func (NopResultCallback) OnError(ErrorCode, string)            {}
func (NopResultCallback) OnParseClock(int64)                   {}
func (NopResultCallback) OnParseDirectoryEntry(DirectoryEntry) {}
func (NopResultCallback) OnFinishParsingDirectory()            {}
func (NopResultCallback) OnDownloadFile(uint16, []byte)        {}
func (NopResultCallback) OnEraseFile(uint16, bool)             {}
func (NopResultCallback) OnSetTime(bool)                       {}

// errRejected is returned by a command variant's readPacket when the
// packet fails variant-level validation (surfaced to the manager as
// ErrorBadPayload).
type errRejected struct {
	reason string
}

func (e *errRejected) Error() string {
	return e.reason
}

func reject(format string, args ...any) error {
	return &errRejected{reason: fmt.Sprintf(format, args...)}
}

// readAck is the shared ack-validation helper used by every command
// variant's first accepted packet: it must be from-device and carry
// cmd's acknowledgement id.
func readAck(pkt Packet, cmd uint16) error {
	if !pkt.IsFromDevice() {
		return reject("ack not from device")
	}
	if pkt.Command != AckCommand(cmd) {
		return reject("ack command id 0x%04X, want 0x%04X", pkt.Command, AckCommand(cmd))
	}
	return nil
}

// commandVariant is the tagged-union member interface implemented by
// Download, Erase, and SetTime. The manager holds exactly one active
// variant at a time (or none).
type commandVariant interface {
	// makeCommandPacket returns the single outbound packet that starts
	// this command.
	makeCommandPacket() Packet
	// readPacket routes an inbound packet to the ack or reply path and
	// reports whether it was accepted.
	readPacket(pkt Packet) error
	// isTerminal reports whether the command has reached its terminal
	// state, without firing the completion closure. The manager uses
	// this to decide whether to send a reply-ack before the closure
	// runs, so that write_value for the ack is observed before the
	// completion event (see the manager's ordering tests).
	isTerminal() bool
	// finish fires the completion closure exactly once, the first time
	// it is called after isTerminal returns true. Calling it before
	// isTerminal is true, or more than once, is a no-op.
	finish()
	// shouldAckReply reports whether the manager must send a reply-ack
	// packet immediately after this command goes terminal.
	shouldAckReply() bool
	// makeReplyAckPacket builds that reply-ack packet. Only called when
	// shouldAckReply returns true.
	makeReplyAckPacket() Packet
	// name identifies the variant for logging/errors.
	name() string
}

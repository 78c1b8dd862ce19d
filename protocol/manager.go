package protocol

import "sort"

// Manager is the top-level protocol orchestrator (C8). It holds at most
// one active command variant, routes inbound notifications to it,
// serializes outbound packets through the transport, and fans events
// out to the result callback.
//
// Manager is not safe for concurrent use. The engine is single-threaded
// and cooperative (see the concurrency design notes): every exported
// method must run on the same serial execution context the caller uses
// to deliver notifications and timeouts. A Manager is also not
// re-entrant: calling any exported method from within a ResultCallback
// invocation panics.
type Manager struct {
	transport Transport
	callback  ResultCallback

	active commandVariant
	busy   bool
}

// NewManager constructs a Manager. Both transport and callback must be
// non-nil; callback may be NopResultCallback embedded in a type that
// only overrides the events the caller cares about.
func NewManager(transport Transport, callback ResultCallback) *Manager {
	return &Manager{transport: transport, callback: callback}
}

func (m *Manager) enter() {
	if m.busy {
		panic("protocol: Manager method invoked re-entrantly from within a result callback")
	}
	m.busy = true
}

func (m *Manager) leave() {
	m.busy = false
}

func (m *Manager) didError(code ErrorCode, message string) {
	m.callback.OnError(code, message)
}

// writePacket serializes and sends pkt. waitForAck controls whether the
// engine enters "waiting" for this write: it does for every command
// packet, but not for an unsolicited reply-ack.
func (m *Manager) writePacket(pkt Packet, waitForAck bool) {
	data := Serialize(pkt)
	if rc := m.transport.WriteValue(data); rc != 0 {
		m.didError(ErrorUnexpected, "transport write_value failed")
		return
	}
	if waitForAck {
		m.transport.StartWaiting()
	}
}

// NotifyValue delivers one inbound notification payload to the engine.
func (m *Manager) NotifyValue(data []byte) {
	m.enter()
	defer m.leave()

	pkt, err := Parse(data)
	if err != nil {
		m.didError(ErrorBadHeader, err.Error())
		return
	}

	if m.active == nil {
		m.didError(ErrorUnexpected, "value notification with no active command")
		return
	}

	if err := m.active.readPacket(pkt); err != nil {
		m.didError(ErrorBadPayload, err.Error())
		return
	}

	if !m.active.isTerminal() {
		return
	}

	finished := m.active
	// The reply-ack write, if any, must reach the transport before the
	// completion callback fires and before finish_waiting — the device
	// expects the ack promptly, and observers of the result callback
	// should see it as already having been sent.
	if finished.shouldAckReply() {
		m.writePacket(finished.makeReplyAckPacket(), false)
	}
	finished.finish()
	m.transport.FinishWaiting()
	m.active = nil
}

// NotifyTimeout signals that the caller's inactivity timer has expired
// while a command was in flight. It is a no-op if no command is active.
func (m *Manager) NotifyTimeout() {
	m.enter()
	defer m.leave()

	if m.active == nil {
		return
	}
	m.didError(ErrorUnexpected, m.active.name()+": timed out waiting for a response")
	m.active = nil
	m.transport.FinishWaiting()
}

// DownloadDirectory requests the device's directory listing. On
// completion, parses the accumulated bytes as a directory (§4.5) and
// fires OnParseClock, one OnParseDirectoryEntry per entry (in ascending
// index order), then OnFinishParsingDirectory.
func (m *Manager) DownloadDirectory() {
	m.enter()
	defer m.leave()

	onFinish := func(_ uint16, data []byte) {
		header, entries, err := ReadDirectory(data)
		if err != nil {
			m.didError(ErrorBadHeader, "parsing directory: "+err.Error())
			return
		}
		m.callback.OnParseClock(header.PosixTime)

		indices := make([]uint16, 0, len(entries))
		for idx := range entries {
			indices = append(indices, idx)
		}
		sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
		for _, idx := range indices {
			m.callback.OnParseDirectoryEntry(entries[idx])
		}
		m.callback.OnFinishParsingDirectory()
	}

	m.active = newDownload(0, 0, 0xFFFFFFFF, onFinish)
	m.writePacket(m.active.makeCommandPacket(), true)
}

// DownloadFile requests the file at index. On completion, fires
// OnDownloadFile with the accumulated bytes.
func (m *Manager) DownloadFile(index uint16) {
	m.enter()
	defer m.leave()

	onFinish := func(idx uint16, data []byte) {
		m.callback.OnDownloadFile(idx, data)
	}
	m.active = newDownload(index, 0, 0xFFFFFFFF, onFinish)
	m.writePacket(m.active.makeCommandPacket(), true)
}

// EraseFile requests deletion of the file at index. On completion,
// fires OnEraseFile with the device-reported success flag.
func (m *Manager) EraseFile(index uint16) {
	m.enter()
	defer m.leave()

	onFinish := func(idx uint16, ok bool) {
		m.callback.OnEraseFile(idx, ok)
	}
	m.active = newErase(index, onFinish)
	m.writePacket(m.active.makeCommandPacket(), true)
}

// SetTime requests the device's clock be set to posix, a POSIX
// timestamp in whole seconds. Callers that have a fractional time
// (e.g. sampled from a wall clock) must round up to the next whole
// second themselves before calling SetTime; the engine performs no
// rounding.
func (m *Manager) SetTime(posix int64) {
	m.enter()
	defer m.leave()

	onFinish := func(ok bool) {
		m.callback.OnSetTime(ok)
	}
	m.active = newSetTime(ToDeviceTime(posix), onFinish)
	m.writePacket(m.active.makeCommandPacket(), true)
}

package protocol

// eraseState implements commandVariant for the erase operation.
type eraseState struct {
	index uint16

	hasAck   bool
	replied  bool
	finished bool
	success  bool

	onFinish func(index uint16, ok bool)
}

func newErase(index uint16, onFinish func(uint16, bool)) *eraseState {
	return &eraseState{index: index, onFinish: onFinish}
}

func (e *eraseState) name() string { return "erase" }

func (e *eraseState) makeCommandPacket() Packet {
	payload := make([]byte, 2)
	putLE16(payload, 0, e.index)
	return BuildPacket(SeqnoTerminal, CmdErase, payload)
}

func (e *eraseState) readPacket(pkt Packet) error {
	if !e.hasAck {
		if err := readAck(pkt, CmdErase); err != nil {
			return err
		}
		e.hasAck = true
		return nil
	}
	return e.readReply(pkt)
}

func (e *eraseState) readReply(pkt Packet) error {
	if e.replied {
		return reject("erase: packet after reply already observed")
	}
	if !pkt.IsFromDevice() {
		return reject("erase reply not from device")
	}
	if pkt.Command != CmdEraseReply {
		return reject("erase reply command id 0x%04X, want 0x%04X", pkt.Command, CmdEraseReply)
	}
	if len(pkt.Payload) != 1 {
		return reject("erase reply payload length %d, want 1", len(pkt.Payload))
	}

	// A non-zero first byte means the device reported failure, not that
	// the packet is malformed: accept it, but carry success=false.
	e.success = pkt.Payload[0] == 0
	e.replied = true
	return nil
}

func (e *eraseState) isTerminal() bool {
	return e.finished || (e.hasAck && e.replied)
}

func (e *eraseState) finish() {
	if e.finished || !e.isTerminal() {
		return
	}
	e.finished = true
	if e.onFinish != nil {
		e.onFinish(e.index, e.success)
	}
}

func (e *eraseState) shouldAckReply() bool { return true }

func (e *eraseState) makeReplyAckPacket() Packet {
	return BuildAckPacket(CmdEraseReply)
}

package protocol

// setTimeState implements commandVariant for the set-clock operation.
// It has no device-originated reply: the ack alone is terminal.
type setTimeState struct {
	deviceTime uint32

	hasAck   bool
	finished bool

	onFinish func(ok bool)
}

func newSetTime(deviceTime uint32, onFinish func(bool)) *setTimeState {
	return &setTimeState{deviceTime: deviceTime, onFinish: onFinish}
}

func (s *setTimeState) name() string { return "set_time" }

func (s *setTimeState) makeCommandPacket() Packet {
	payload := make([]byte, 4)
	putLE32(payload, 0, s.deviceTime)
	return BuildPacket(SeqnoTerminal, CmdSetTime, payload)
}

func (s *setTimeState) readPacket(pkt Packet) error {
	// Defensive only: the manager clears the active slot as soon as
	// isTerminal is true, so a second packet never actually reaches
	// this variant in practice; it would surface as "no active
	// command" at the manager level instead.
	if s.hasAck {
		return reject("set_time: packet after ack already observed")
	}
	if err := readAck(pkt, CmdSetTime); err != nil {
		return err
	}
	s.hasAck = true
	return nil
}

// isTerminal/finish only report/fire once has_ack is true. The
// reference fires unconditionally from its equivalent hook; that is a
// defect fixed here rather than reproduced.
func (s *setTimeState) isTerminal() bool {
	return s.finished || s.hasAck
}

func (s *setTimeState) finish() {
	if s.finished {
		return
	}
	if !s.hasAck {
		return
	}
	s.finished = true
	if s.onFinish != nil {
		s.onFinish(true)
	}
}

func (s *setTimeState) shouldAckReply() bool       { return false }
func (s *setTimeState) makeReplyAckPacket() Packet { return Packet{} }

package protocol

// downloadState implements commandVariant for the download operation,
// used for both file downloads and directory listings (index 0).
type downloadState struct {
	index       uint16
	offset      uint32
	lengthLimit uint32

	hasAck   bool
	finished bool
	burst    Burst
	buf      []byte

	onFinish func(index uint16, data []byte)
}

// newDownload constructs a download variant. No defaults are applied:
// a caller with no specific bound passes offset 0 and lengthLimit
// 0xFFFFFFFF.
func newDownload(index uint16, offset, lengthLimit uint32, onFinish func(uint16, []byte)) *downloadState {
	return &downloadState{
		index:       index,
		offset:      offset,
		lengthLimit: lengthLimit,
		onFinish:    onFinish,
	}
}

func (d *downloadState) name() string { return "download" }

func (d *downloadState) makeCommandPacket() Packet {
	payload := make([]byte, 10)
	putLE16(payload, 0, d.index)
	putLE32(payload, 2, d.offset)
	putLE32(payload, 6, d.lengthLimit)
	return BuildPacket(SeqnoTerminal, CmdDownload, payload)
}

func (d *downloadState) readPacket(pkt Packet) error {
	if !d.hasAck {
		return d.readAck(pkt)
	}
	return d.readReply(pkt)
}

func (d *downloadState) readAck(pkt Packet) error {
	if err := readAck(pkt, CmdDownload); err != nil {
		return err
	}
	if len(pkt.Payload) < 10 {
		return reject("download ack payload too short (%d bytes)", len(pkt.Payload))
	}
	if got := getLE16(pkt.Payload, 0); got != d.index {
		return reject("download ack index %d, want %d", got, d.index)
	}
	if got := getLE32(pkt.Payload, 2); got != d.offset {
		return reject("download ack offset %d, want %d", got, d.offset)
	}
	announced := getLE32(pkt.Payload, 6)
	if announced > d.lengthLimit {
		return reject("download ack announces %d bytes, over limit %d", announced, d.lengthLimit)
	}

	var capacity uint32
	if d.index == 0 {
		// Directory listings announce a record count, not a byte count.
		capacity = announced * directoryEntryLen
	} else {
		capacity = announced
	}
	d.buf = make([]byte, 0, capacity)
	d.hasAck = true
	return nil
}

func (d *downloadState) readReply(pkt Packet) error {
	if d.burst.HasEnded() {
		return reject("download: packet after burst ended")
	}
	if pkt.Command != CmdDownloadReply {
		return reject("download reply command id 0x%04X, want 0x%04X", pkt.Command, CmdDownloadReply)
	}
	if len(pkt.Payload) == 0 {
		return reject("download reply has empty payload")
	}
	if !pkt.IsFromDevice() {
		return reject("download reply not from device")
	}

	next := d.burst.ReadPacket(pkt)
	if !next.IsValid() {
		return reject("download reply seqno %d out of sequence", pkt.Seqno)
	}
	d.burst = next
	d.buf = append(d.buf, pkt.Payload...)
	return nil
}

func (d *downloadState) isTerminal() bool {
	return d.finished || (d.hasAck && d.burst.HasEnded())
}

func (d *downloadState) finish() {
	if d.finished || !d.isTerminal() {
		return
	}
	d.finished = true
	if d.onFinish != nil {
		d.onFinish(d.index, d.buf)
	}
}

func (d *downloadState) shouldAckReply() bool       { return false }
func (d *downloadState) makeReplyAckPacket() Packet { return Packet{} }

package tsengine

import "testing"

func makePacket(pid uint16, cc uint8, pusi bool, payload []byte) []byte {
	buf := make([]byte, PacketSize)
	buf[0] = SyncByte
	buf[1] = byte(pid>>8) & 0x1F
	buf[2] = byte(pid)
	buf[3] = 0x10 | (cc & 0x0F) // payload only
	if pusi {
		buf[1] |= 0x40
	}
	copy(buf[4:], payload)
	return buf
}

func TestParsePacketRejectsBadSyncByte(t *testing.T) {
	buf := makePacket(0x100, 0, false, nil)
	buf[0] = 0x00
	if _, err := ParsePacket(buf); err == nil {
		t.Error("ParsePacket() with bad sync byte = nil error, want error")
	}
}

func TestParsePacketRejectsWrongSize(t *testing.T) {
	if _, err := ParsePacket(make([]byte, 100)); err == nil {
		t.Error("ParsePacket() with wrong size = nil error, want error")
	}
}

func TestParsePacketExtractsHeaderFields(t *testing.T) {
	payload := []byte{0xAA, 0xBB, 0xCC}
	buf := makePacket(0x123, 7, true, payload)

	p, err := ParsePacket(buf)
	if err != nil {
		t.Fatal(err)
	}
	if p.Header.PID != 0x123 {
		t.Errorf("PID = %#x, want 0x123", p.Header.PID)
	}
	if p.Header.ContinuityCounter != 7 {
		t.Errorf("CC = %d, want 7", p.Header.ContinuityCounter)
	}
	if !p.Header.PayloadUnitStartIndicator {
		t.Error("PUSI = false, want true")
	}
	if !p.Header.HasPayload() {
		t.Error("HasPayload() = false, want true")
	}
	if string(p.Payload[:3]) != string(payload) {
		t.Errorf("Payload = %v, want %v", p.Payload[:3], payload)
	}
}

func TestParsePacketSkipsAdaptationField(t *testing.T) {
	buf := make([]byte, PacketSize)
	buf[0] = SyncByte
	buf[1] = 0x01
	buf[2] = 0x00
	buf[3] = 0x30 // adaptation + payload
	buf[4] = 5    // adaptation_field_length
	buf[5] = 0x00 // no discontinuity
	copy(buf[4+1+5:], []byte{0x11, 0x22})

	p, err := ParsePacket(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Payload) < 2 || p.Payload[0] != 0x11 || p.Payload[1] != 0x22 {
		t.Errorf("Payload = %v, want to start with [0x11 0x22]", p.Payload)
	}
}

func TestParsePacketTransportErrorIndicatorSet(t *testing.T) {
	buf := makePacket(0x100, 0, false, nil)
	buf[1] |= 0x80
	p, err := ParsePacket(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Header.TransportErrorIndicator {
		t.Error("TransportErrorIndicator = false, want true")
	}
}

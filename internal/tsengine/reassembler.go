package tsengine

import (
	"log/slog"

	"github.com/leandrotsampa/demuxfs/internal/bits"
)

// sectionReassembler is the per-PID FIFO described in spec §4.2: it
// accumulates TS packet payloads until a complete PSI section (by
// section_length) is available, then hands each complete section back to
// the caller. State is touched only by the ingestion thread.
type sectionReassembler struct {
	pid      uint16
	buf      []byte
	lastCC   uint8
	haveCC   bool
	log      *slog.Logger
}

func newSectionReassembler(pid uint16, log *slog.Logger) *sectionReassembler {
	return &sectionReassembler{pid: pid, log: log}
}

// Add feeds one packet's payload into the reassembler and returns zero or
// more complete sections extracted from it. A continuity discrepancy not
// covered by an explicit discontinuity indicator discards any
// in-progress section for this PID, per spec §4.1's continuity rule.
func (r *sectionReassembler) Add(header PacketHeader, payload []byte) [][]byte {
	if header.TransportErrorIndicator {
		return nil
	}
	if !header.HasPayload() {
		return nil
	}

	if r.haveCC && !header.DiscontinuityIndicator {
		expected := (r.lastCC + 1) & 0x0F
		if header.ContinuityCounter != expected {
			if header.ContinuityCounter == r.lastCC {
				return nil // duplicate packet, drop silently
			}
			r.log.Warn("continuity discontinuity, discarding in-progress section",
				"pid", r.pid, "expected_cc", expected, "got_cc", header.ContinuityCounter)
			r.buf = nil
		}
	}
	r.lastCC = header.ContinuityCounter
	r.haveCC = true

	if len(payload) == 0 {
		return nil
	}

	if header.PayloadUnitStartIndicator {
		pointerField := int(payload[0])
		if 1+pointerField > len(payload) {
			r.log.Warn("pointer_field out of range, dropping packet", "pid", r.pid, "pointer_field", pointerField)
			r.buf = nil
			return nil
		}
		// Bytes before the pointer offset complete whatever section was
		// already in progress.
		r.buf = append(r.buf, payload[1:1+pointerField]...)
		var completed [][]byte
		completed = append(completed, r.drain()...)
		r.buf = append(r.buf, payload[1+pointerField:]...)
		completed = append(completed, r.drain()...)
		return completed
	}

	if r.buf == nil {
		// No PUSI seen yet for this PID's first packet; nothing to anchor to.
		return nil
	}
	r.buf = append(r.buf, payload...)
	return r.drain()
}

// drain extracts every complete section currently sitting at the front of
// buf, stopping at stuffing bytes, an incomplete trailing section, or a
// section_length that exceeds MaxSectionLength (which discards the whole
// buffer, per spec §4.2's failure handling).
func (r *sectionReassembler) drain() [][]byte {
	var out [][]byte
	for len(r.buf) > 0 {
		if r.buf[0] == 0xFF {
			r.buf = nil
			break
		}
		if len(r.buf) < 3 {
			break
		}
		sectionLength := bits.Uint12(r.buf[1], r.buf[2])
		if sectionLength > MaxSectionLength {
			r.log.Warn("section_length out of range, discarding buffer", "pid", r.pid, "section_length", sectionLength)
			r.buf = nil
			break
		}
		total := 3 + int(sectionLength)
		if len(r.buf) < total {
			break // wait for more packets
		}
		section := make([]byte, total)
		copy(section, r.buf[:total])
		out = append(out, section)
		r.buf = r.buf[total:]
	}
	return out
}

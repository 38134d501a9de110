package demuxfs

import (
	"bytes"
	"testing"

	"github.com/leandrotsampa/demuxfs/internal/crc32mpeg"
)

// buildPATSection assembles a minimal, correctly CRC-signed PAT section
// announcing a single program/PMT-PID pair.
func buildPATSection(programNumber, pmtPID uint16) []byte {
	body := []byte{
		byte(programNumber >> 8), byte(programNumber),
		0xE0 | byte(pmtPID>>8), byte(pmtPID),
	}
	sectionLength := 5 + len(body) + 4
	section := make([]byte, 3+sectionLength)
	section[0] = tableIDPAT
	section[1] = 0x80 | byte(sectionLength>>8&0x0F)
	section[2] = byte(sectionLength)
	section[3] = 0 // transport_stream_id
	section[4] = 1
	section[5] = 0xC1 // version 0, current_next_indicator=1
	section[6] = 0
	section[7] = 0
	copy(section[8:], body)

	crc := crc32mpeg.Sum(section[:len(section)-4])
	n := len(section)
	section[n-4] = byte(crc >> 24)
	section[n-3] = byte(crc >> 16)
	section[n-2] = byte(crc >> 8)
	section[n-1] = byte(crc)
	return section
}

// wrapInSinglePacket builds one 188-byte TS packet carrying section as a
// PUSI'd payload on pid, padded with stuffing bytes.
func wrapInSinglePacket(pid uint16, section []byte) []byte {
	pkt := make([]byte, 188)
	pkt[0] = 0x47
	pkt[1] = 0x40 | byte(pid>>8) // PUSI=1
	pkt[2] = byte(pid)
	pkt[3] = 0x10 // adaptation_field_control=01 (payload only), cc=0

	pkt[4] = 0x00 // pointer_field
	copy(pkt[5:], section)
	for i := 5 + len(section); i < len(pkt); i++ {
		pkt[i] = 0xFF
	}
	return pkt
}

func TestFeederEndToEndParsesPATAndRegistersPMT(t *testing.T) {
	section := buildPATSection(1, 0x0100)
	pkt := wrapInSinglePacket(pidPAT, section)

	feeder := NewFeeder()
	if err := feeder.Feed(bytes.NewReader(pkt)); err != nil {
		t.Fatal(err)
	}

	link, ok := feeder.Root().Lookup("PAT/Current/Programs/0x0001")
	if !ok {
		t.Fatal("PAT/Current/Programs/0x0001 was not created")
	}
	if !link.IsSymlink() || link.SymlinkTarget() != "../../../PMT/0x0100/Current" {
		t.Errorf("symlink target = %q", link.SymlinkTarget())
	}

	m := feeder.Metrics().Snapshot()
	if m.SectionsAccepted == 0 {
		t.Error("expected at least one accepted section")
	}
}

func TestFeederBootstrapMountsFixedTopLevelDirs(t *testing.T) {
	feeder := NewFeeder()
	for _, name := range []string{"PAT", "PMT", "NIT", "SDT", "DSM-CC"} {
		if _, ok := feeder.Root().Dentry().Child(name); !ok {
			t.Errorf("top-level directory %q was not bootstrapped", name)
		}
	}
}

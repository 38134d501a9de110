package tsengine

import (
	"testing"

	"github.com/leandrotsampa/demuxfs/internal/crc32mpeg"
)

func signedSection(tableID uint8, tableIDExt uint16, version uint8, current bool, body []byte) []byte {
	sectionLength := 5 + len(body) + 4
	section := make([]byte, 3+sectionLength)
	section[0] = tableID
	section[1] = 0x80 | byte(sectionLength>>8&0x0F)
	section[2] = byte(sectionLength)
	section[3] = byte(tableIDExt >> 8)
	section[4] = byte(tableIDExt)
	cn := byte(0)
	if current {
		cn = 1
	}
	section[5] = 0xC0 | (version&0x1F)<<1 | cn
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

func TestParseCommonHeaderAcceptsValidSection(t *testing.T) {
	section := signedSection(0x00, 0x0001, 3, true, []byte{0x01, 0x02, 0x03, 0x04})

	h, offset, err := ParseCommonHeader(section)
	if err != nil {
		t.Fatal(err)
	}
	if offset != 8 {
		t.Errorf("offset = %d, want 8", offset)
	}
	if h.TableID != 0x00 {
		t.Errorf("TableID = %#x, want 0x00", h.TableID)
	}
	if h.TableIDExtension != 0x0001 {
		t.Errorf("TableIDExtension = %#x, want 0x0001", h.TableIDExtension)
	}
	if h.VersionNumber != 3 {
		t.Errorf("VersionNumber = %d, want 3", h.VersionNumber)
	}
	if !h.CurrentNextIndicator {
		t.Error("CurrentNextIndicator = false, want true")
	}
}

func TestParseCommonHeaderRejectsCorruptCRC(t *testing.T) {
	section := signedSection(0x00, 0x0001, 0, true, []byte{0x01, 0x02})
	section[len(section)-1] ^= 0xFF

	if _, _, err := ParseCommonHeader(section); err == nil {
		t.Error("ParseCommonHeader() with corrupt CRC = nil error, want error")
	}
}

func TestParseCommonHeaderRejectsShortSection(t *testing.T) {
	if _, _, err := ParseCommonHeader([]byte{0x00, 0x01}); err == nil {
		t.Error("ParseCommonHeader() on 2-byte input = nil error, want error")
	}
}

func TestParseCommonHeaderRejectsOversizedLength(t *testing.T) {
	section := signedSection(0x00, 0x0001, 0, true, []byte{0x01})
	section[1] = 0x80 | 0x0F
	section[2] = 0xFF

	if _, _, err := ParseCommonHeader(section); err == nil {
		t.Error("ParseCommonHeader() with oversized section_length = nil error, want error")
	}
}

package tsengine

import (
	"fmt"

	"github.com/leandrotsampa/demuxfs/internal/bits"
	"github.com/leandrotsampa/demuxfs/internal/crc32mpeg"
)

// MaxSectionLength is the largest section_length a PSI section may declare
// (TS_MAX_SECTION_LENGTH in the original source).
const MaxSectionLength = 0x3FD

// LastPSITableID is the highest table_id value that uses the standard PSI
// common header layout; values above it use DSM-CC's variant layout.
const LastPSITableID = 0xBF

// CommonHeader is the 8-byte (plus CRC32 trailer) header shared by every
// PSI and DSM-CC section: table_id, section metadata, a table-specific
// 16-bit extension field (transport_stream_id for PAT, program_number for
// PMT, network_id for NIT, ...), version, and section numbering.
type CommonHeader struct {
	TableID                uint8
	SectionSyntaxIndicator bool
	PrivateIndicator       bool
	SectionLength          uint16
	TableIDExtension       uint16
	VersionNumber          uint8
	CurrentNextIndicator   bool
	SectionNumber          uint8
	LastSectionNumber      uint8
	CRC32                  uint32
}

// ParseCommonHeader decodes section's common 8-byte header, validates its
// declared section_length against the actual buffer and against
// MaxSectionLength, and verifies the CRC32 trailer over the whole section.
// It returns the header and the offset of the first byte beyond the
// 8-byte common prefix — where table-specific payload begins.
func ParseCommonHeader(section []byte) (*CommonHeader, int, error) {
	if len(section) < 8 {
		return nil, 0, fmt.Errorf("tsengine: section too short (%d bytes) for PSI common header", len(section))
	}

	h := &CommonHeader{
		TableID:                section[0],
		SectionSyntaxIndicator: bits.Bit(section[1], 0),
		PrivateIndicator:       bits.Bit(section[1], 1),
		SectionLength:          bits.Uint12(section[1], section[2]),
	}
	if h.SectionLength > MaxSectionLength {
		return nil, 0, fmt.Errorf("tsengine: section_length %d exceeds max %d", h.SectionLength, MaxSectionLength)
	}
	total := 3 + int(h.SectionLength)
	if total > len(section) {
		return nil, 0, fmt.Errorf("tsengine: section_length %d exceeds available %d bytes", h.SectionLength, len(section)-3)
	}
	if total < 8+4 {
		return nil, 0, fmt.Errorf("tsengine: section too short for header and CRC (section_length=%d)", h.SectionLength)
	}
	section = section[:total]

	h.TableIDExtension = bits.Uint16(section[3:5])
	h.VersionNumber = (section[5] >> 1) & 0x1F
	h.CurrentNextIndicator = section[5]&0x01 != 0
	h.SectionNumber = section[6]
	h.LastSectionNumber = section[7]
	h.CRC32 = bits.Uint32(section[total-4 : total])

	if err := crc32mpeg.Verify(section); err != nil {
		return nil, 0, fmt.Errorf("tsengine: table_id=%#02x: %w", h.TableID, err)
	}

	return h, 8, nil
}

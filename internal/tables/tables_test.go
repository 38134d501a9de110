package tables

import (
	"log/slog"

	"github.com/leandrotsampa/demuxfs/internal/crc32mpeg"
	"github.com/leandrotsampa/demuxfs/internal/dentry"
	"github.com/leandrotsampa/demuxfs/internal/descriptor"
	"github.com/leandrotsampa/demuxfs/internal/dispatch"
	"github.com/leandrotsampa/demuxfs/internal/metrics"
)

// buildSection assembles a complete, correctly CRC-signed PSI section for
// table parser tests.
func buildSection(tableID uint8, tableIDExt uint16, version uint8, current bool, body []byte) []byte {
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

func newTestContext() *Context {
	root := dentry.NewDir("")
	return NewContext(root, dispatch.NewParserTable(), dispatch.NewTableStore(), descriptor.NewRegistry(), slog.Default(), &metrics.Counters{})
}

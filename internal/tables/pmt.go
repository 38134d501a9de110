package tables

import (
	"fmt"

	"github.com/leandrotsampa/demuxfs/internal/bits"
	"github.com/leandrotsampa/demuxfs/internal/dentry"
	"github.com/leandrotsampa/demuxfs/internal/dispatch"
	"github.com/leandrotsampa/demuxfs/internal/fsutils"
	"github.com/leandrotsampa/demuxfs/internal/tsengine"
)

// PMTStream is one elementary stream entry from a Program Map Table.
type PMTStream struct {
	StreamType uint8
	PID        uint16
	Info       []byte // raw ES_info descriptor loop bytes
}

// PMT is a fully parsed Program Map Table.
type PMT struct {
	Header        tsengine.CommonHeader
	PCRPID        uint16
	ProgramInfo   []byte
	Streams       []PMTStream
}

// ParsePMT parses a PMT section. Unlike PAT/NIT, a PMT's top-level
// directory is keyed by the PID the section arrives on (not by
// program_number — ABNT NBR 15603 allows a program_number to be re-mapped
// to a different PID across a PAT update, but the dentry path PAT just
// published has to keep resolving to the same place while readers hold
// it).
func (c *Context) ParsePMT(pid uint16, section []byte) error {
	hdr, offset, err := tsengine.ParseCommonHeader(section)
	if err != nil {
		c.Metrics.SectionsRejectedCRC.Add(1)
		return fmt.Errorf("pmt: %w", err)
	}
	if !hdr.CurrentNextIndicator {
		return nil
	}

	key := dispatch.MakeKey(pid, hdr.TableID)
	if c.isDuplicateVersion(key, hdr.VersionNumber) {
		c.Metrics.SectionsDuplicate.Add(1)
		return nil
	}

	if offset+4 > len(section)-4 {
		c.Metrics.SectionsRejectedLen.Add(1)
		return fmt.Errorf("pmt: section too short for fixed fields")
	}
	pcrPID := bits.Uint13(section[offset], section[offset+1])
	programInfoLength := int(bits.Uint12(section[offset+2], section[offset+3]))
	offset += 4

	if offset+programInfoLength > len(section)-4 {
		c.Metrics.SectionsRejectedLen.Add(1)
		return fmt.Errorf("pmt: program_info_length %d overruns section", programInfoLength)
	}
	programInfo := append([]byte(nil), section[offset:offset+programInfoLength]...)
	offset += programInfoLength

	var streams []PMTStream
	end := len(section) - 4
	for offset < end {
		if offset+5 > end {
			c.Metrics.SectionsRejectedLen.Add(1)
			return fmt.Errorf("pmt: truncated stream entry")
		}
		streamType := section[offset]
		esPID := bits.Uint13(section[offset+1], section[offset+2])
		esInfoLength := int(bits.Uint12(section[offset+3], section[offset+4]))
		offset += 5
		if offset+esInfoLength > end {
			c.Metrics.SectionsRejectedLen.Add(1)
			return fmt.Errorf("pmt: ES_info_length %d overruns section", esInfoLength)
		}
		streams = append(streams, PMTStream{
			StreamType: streamType,
			PID:        esPID,
			Info:       append([]byte(nil), section[offset:offset+esInfoLength]...),
		})
		offset += esInfoLength
	}

	pmt := &PMT{Header: *hdr, PCRPID: pcrPID, ProgramInfo: programInfo, Streams: streams}

	pmtRoot := c.topLevelDir(PMTName)
	tableRoot := getOrCreateDir(pmtRoot, pidName(pid))
	c.supersede(tableRoot, key, hdr.VersionNumber, pmt, func(newDir *dentry.Dentry) {
		writeCommonHeaderLeaves(newDir, hdr, "program_number")
		fsutils.CreateNumberLeaf(newDir, "pcr_pid", uint64(pcrPID), 4)

		descDir := fsutils.CreateDirectory(newDir, DescriptorsName)
		c.decodeDescriptorLoop(programInfo, descDir)

		streamsDir := fsutils.CreateDirectory(newDir, StreamsName)
		for _, stream := range pmt.Streams {
			streamDir := fsutils.CreateDirectory(streamsDir, pidName(stream.PID))
			fsutils.CreateNumberLeaf(streamDir, "stream_type", uint64(stream.StreamType), 2)
			fsutils.CreateNumberLeaf(streamDir, "elementary_pid", uint64(stream.PID), 4)
			sDescDir := fsutils.CreateDirectory(streamDir, DescriptorsName)
			c.decodeDescriptorLoop(stream.Info, sDescDir)
		}
	})

	// PMT seeds the dispatcher with ES PIDs, per spec §4.4. A stream_type of
	// 0x0B marks an object-carousel PID (DSM-CC sections, not PES), so it
	// gets routed to the DII/DDB parsers instead of the PES placeholder.
	for _, stream := range pmt.Streams {
		if c.Parsers.HasPID(stream.PID) {
			continue
		}
		if stream.StreamType == streamTypeDSMCC {
			c.Parsers.Register(stream.PID, dispatch.OneOf(tableIDDII, tableIDDDB), c.parseDSMCCSection, nil)
		} else {
			c.Parsers.Register(stream.PID, dispatch.Any, c.parseElementaryStream, nil)
		}
	}

	c.Metrics.SectionsAccepted.Add(1)
	return nil
}

// streamTypeDSMCC is the stream_type value marking an elementary stream as
// object-carousel (DSM-CC) signalling rather than PES, per ISO/IEC 13818-1
// Table 2-34.
const streamTypeDSMCC = 0x0B

// parseDSMCCSection routes a section arriving on a carousel PID to the DII
// or DDB parser by table_id.
func (c *Context) parseDSMCCSection(pid uint16, section []byte) error {
	if len(section) < 1 {
		return fmt.Errorf("dsmcc: empty section")
	}
	switch section[0] {
	case tableIDDII:
		return c.ParseDII(pid, section)
	case tableIDDDB:
		return c.ParseDDB(pid, section)
	default:
		return fmt.Errorf("dsmcc: unexpected table_id %#02x on carousel pid", section[0])
	}
}

// parseElementaryStream is the placeholder PES handler a PMT installs for
// every elementary stream PID it announces; PES reassembly is explicitly
// out of scope for this core (spec §4.4).
func (c *Context) parseElementaryStream(pid uint16, section []byte) error {
	return nil
}

// decodeDescriptorLoop walks a raw descriptor_tag/descriptor_length/data
// loop, handing each entry to the descriptor registry.
func (c *Context) decodeDescriptorLoop(data []byte, parent *dentry.Dentry) {
	n := 1
	for offset := 0; offset+2 <= len(data); {
		tag := data[offset]
		length := int(data[offset+1])
		if offset+2+length > len(data) {
			c.Log.Warn("descriptor_length overruns loop, stopping", "tag", tag, "length", length)
			return
		}
		name := fmt.Sprintf("descriptor_%02d", n)
		if err := c.Descriptors.Decode(parent, name, tag, data[offset+2:offset+2+length]); err != nil {
			c.Log.Warn("descriptor decode failed", "tag", tag, "error", err)
		}
		offset += 2 + length
		n++
	}
}

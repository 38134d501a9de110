package tables

import (
	"fmt"

	"github.com/leandrotsampa/demuxfs/internal/bits"
	"github.com/leandrotsampa/demuxfs/internal/dentry"
	"github.com/leandrotsampa/demuxfs/internal/dispatch"
	"github.com/leandrotsampa/demuxfs/internal/fsutils"
	"github.com/leandrotsampa/demuxfs/internal/tsengine"
)

// NITTransportStream is one transport_stream loop entry from a Network
// Information Table.
type NITTransportStream struct {
	TransportStreamID uint16
	OriginalNetworkID uint16
	Descriptors       []byte
}

// NIT is a fully parsed Network Information Table.
type NIT struct {
	Header            tsengine.CommonHeader
	NetworkDescriptors []byte
	TransportStreams  []NITTransportStream
}

// ParseNIT parses a NIT section (table_id_extension carries network_id)
// and splices it into /NIT/Vnn, with one TransportStreams/0xTTTT/ subtree
// per entry in the transport_stream loop.
func (c *Context) ParseNIT(pid uint16, section []byte) error {
	hdr, offset, err := tsengine.ParseCommonHeader(section)
	if err != nil {
		c.Metrics.SectionsRejectedCRC.Add(1)
		return fmt.Errorf("nit: %w", err)
	}
	if !hdr.CurrentNextIndicator {
		return nil
	}

	key := dispatch.MakeKey(pid, hdr.TableID)
	if c.isDuplicateVersion(key, hdr.VersionNumber) {
		c.Metrics.SectionsDuplicate.Add(1)
		return nil
	}

	end := len(section) - 4
	if offset+2 > end {
		c.Metrics.SectionsRejectedLen.Add(1)
		return fmt.Errorf("nit: section too short for network_descriptors_length")
	}
	networkDescLength := int(bits.Uint12(section[offset], section[offset+1]))
	offset += 2
	if offset+networkDescLength > end {
		c.Metrics.SectionsRejectedLen.Add(1)
		return fmt.Errorf("nit: network_descriptors_length %d overruns section", networkDescLength)
	}
	networkDescriptors := append([]byte(nil), section[offset:offset+networkDescLength]...)
	offset += networkDescLength

	if offset+2 > end {
		c.Metrics.SectionsRejectedLen.Add(1)
		return fmt.Errorf("nit: section too short for transport_stream_loop_length")
	}
	loopLength := int(bits.Uint12(section[offset], section[offset+1]))
	offset += 2
	if offset+loopLength > end {
		c.Metrics.SectionsRejectedLen.Add(1)
		return fmt.Errorf("nit: transport_stream_loop_length %d overruns section", loopLength)
	}
	loopEnd := offset + loopLength

	var streams []NITTransportStream
	for offset < loopEnd {
		if offset+6 > loopEnd {
			c.Metrics.SectionsRejectedLen.Add(1)
			return fmt.Errorf("nit: truncated transport_stream entry")
		}
		tsID := bits.Uint16(section[offset : offset+2])
		onID := bits.Uint16(section[offset+2 : offset+4])
		descLength := int(bits.Uint12(section[offset+4], section[offset+5]))
		offset += 6
		if offset+descLength > loopEnd {
			c.Metrics.SectionsRejectedLen.Add(1)
			return fmt.Errorf("nit: transport_descriptors_length %d overruns loop", descLength)
		}
		streams = append(streams, NITTransportStream{
			TransportStreamID: tsID,
			OriginalNetworkID: onID,
			Descriptors:       append([]byte(nil), section[offset:offset+descLength]...),
		})
		offset += descLength
	}

	nit := &NIT{Header: *hdr, NetworkDescriptors: networkDescriptors, TransportStreams: streams}

	tableRoot := c.topLevelDir(NITName)
	c.supersede(tableRoot, key, hdr.VersionNumber, nit, func(newDir *dentry.Dentry) {
		writeCommonHeaderLeaves(newDir, hdr, "network_id")

		descDir := fsutils.CreateDirectory(newDir, DescriptorsName)
		c.decodeDescriptorLoop(networkDescriptors, descDir)

		tsDir := fsutils.CreateDirectory(newDir, TransportStreamsName)
		for _, ts := range nit.TransportStreams {
			tsEntryDir := fsutils.CreateDirectory(tsDir, fmt.Sprintf("%#04x", ts.TransportStreamID))
			fsutils.CreateNumberLeaf(tsEntryDir, "transport_stream_id", uint64(ts.TransportStreamID), 4)
			fsutils.CreateNumberLeaf(tsEntryDir, "original_network_id", uint64(ts.OriginalNetworkID), 4)
			entryDescDir := fsutils.CreateDirectory(tsEntryDir, DescriptorsName)
			c.decodeDescriptorLoop(ts.Descriptors, entryDescDir)
		}
	})

	c.Metrics.SectionsAccepted.Add(1)
	return nil
}

package tables

import (
	"fmt"

	"github.com/leandrotsampa/demuxfs/internal/bits"
	"github.com/leandrotsampa/demuxfs/internal/dentry"
	"github.com/leandrotsampa/demuxfs/internal/dispatch"
	"github.com/leandrotsampa/demuxfs/internal/fsutils"
	"github.com/leandrotsampa/demuxfs/internal/tsengine"
)

// DSMCCAdaptationHeader is the optional adaptation header a DSM-CC
// message or download-data header may carry.
type DSMCCAdaptationHeader struct {
	AdaptationType      uint8
	AdaptationDataBytes []byte
}

// DSMCCMessageHeader is a DII (DSM-CC message) header, per spec §4.5.
type DSMCCMessageHeader struct {
	ProtocolDiscriminator uint8
	DSMCCType             uint8
	MessageID             uint16
	TransactionID         uint32
	AdaptationLength      uint8
	MessageLength         uint16
	Adaptation            *DSMCCAdaptationHeader
}

// DSMCCDownloadDataHeader is a DDB (DSM-CC download data) header, per spec
// §4.5: identical to the message header except transaction_id is replaced
// by download_id.
type DSMCCDownloadDataHeader struct {
	ProtocolDiscriminator uint8
	DSMCCType             uint8
	MessageID             uint16
	DownloadID            uint32
	AdaptationLength      uint8
	MessageLength         uint16
	Adaptation            *DSMCCAdaptationHeader
}

// DSMCCSubDescriptor is one sub_descriptor entry inside a compatibility
// descriptor.
type DSMCCSubDescriptor struct {
	SubDescriptorType   uint8
	SubDescriptorLength uint8
	AdditionalInfo      []byte
}

// DSMCCDescriptorEntry is one descriptor entry inside a compatibility
// descriptor.
type DSMCCDescriptorEntry struct {
	DescriptorType     uint8
	DescriptorLength   uint8
	SpecifierType      uint8
	SpecifierData      [3]byte
	Model              uint16
	Version            uint16
	SubDescriptors     []DSMCCSubDescriptor
}

// DSMCCCompatibilityDescriptor is the compatibility_descriptor structure
// from spec §4.5.
type DSMCCCompatibilityDescriptor struct {
	Descriptors []DSMCCDescriptorEntry
}

// parseDSMCCMessageHeader decodes a 12-byte DSM-CC message header (DII)
// starting at offset, plus its optional adaptation payload, returning the
// header and the offset of the first byte beyond it.
func parseDSMCCMessageHeader(section []byte, offset int) (*DSMCCMessageHeader, int, error) {
	if offset+12 > len(section) {
		return nil, 0, fmt.Errorf("dsmcc: section too short for message_header")
	}
	h := &DSMCCMessageHeader{
		ProtocolDiscriminator: section[offset],
		DSMCCType:             section[offset+1],
		MessageID:             bits.Uint16(section[offset+2 : offset+4]),
		TransactionID:         bits.Uint32(section[offset+4 : offset+8]),
		AdaptationLength:      section[offset+9],
		MessageLength:         bits.Uint16(section[offset+10 : offset+12]),
	}
	next := offset + 12
	if h.AdaptationLength > 0 {
		if next+int(h.AdaptationLength) > len(section) {
			return nil, 0, fmt.Errorf("dsmcc: adaptation_length %d overruns section", h.AdaptationLength)
		}
		h.Adaptation = &DSMCCAdaptationHeader{
			AdaptationType:      section[next],
			AdaptationDataBytes: append([]byte(nil), section[next+1:next+int(h.AdaptationLength)]...),
		}
		next += int(h.AdaptationLength)
	}
	return h, next, nil
}

// parseDSMCCDownloadDataHeader decodes a 12-byte DSM-CC download data
// header (DDB): identical layout to the message header except
// transaction_id is download_id.
func parseDSMCCDownloadDataHeader(section []byte, offset int) (*DSMCCDownloadDataHeader, int, error) {
	if offset+12 > len(section) {
		return nil, 0, fmt.Errorf("dsmcc: section too short for download_data_header")
	}
	h := &DSMCCDownloadDataHeader{
		ProtocolDiscriminator: section[offset],
		DSMCCType:             section[offset+1],
		MessageID:             bits.Uint16(section[offset+2 : offset+4]),
		DownloadID:            bits.Uint32(section[offset+4 : offset+8]),
		AdaptationLength:      section[offset+9],
		MessageLength:         bits.Uint16(section[offset+10 : offset+12]),
	}
	next := offset + 12
	if h.AdaptationLength > 0 {
		if next+int(h.AdaptationLength) > len(section) {
			return nil, 0, fmt.Errorf("dsmcc: adaptation_length %d overruns section", h.AdaptationLength)
		}
		h.Adaptation = &DSMCCAdaptationHeader{
			AdaptationType:      section[next],
			AdaptationDataBytes: append([]byte(nil), section[next+1:next+int(h.AdaptationLength)]...),
		}
		next += int(h.AdaptationLength)
	}
	return h, next, nil
}

// parseDSMCCCompatibilityDescriptor decodes a compatibility_descriptor
// starting at offset, per spec §4.5.
func parseDSMCCCompatibilityDescriptor(section []byte, offset int) (*DSMCCCompatibilityDescriptor, int, error) {
	if offset+4 > len(section) {
		return nil, 0, fmt.Errorf("dsmcc: section too short for compatibility_descriptor header")
	}
	descriptorLength := bits.Uint16(section[offset : offset+2])
	descriptorCount := bits.Uint16(section[offset+2 : offset+4])
	o := offset + 4
	limit := offset + 2 + int(descriptorLength)
	if limit > len(section) {
		return nil, 0, fmt.Errorf("dsmcc: compatibility_descriptor_length %d overruns section", descriptorLength)
	}

	cd := &DSMCCCompatibilityDescriptor{Descriptors: make([]DSMCCDescriptorEntry, 0, descriptorCount)}
	for i := 0; i < int(descriptorCount); i++ {
		if o+11 > limit {
			return nil, 0, fmt.Errorf("dsmcc: truncated descriptor entry %d", i)
		}
		entry := DSMCCDescriptorEntry{
			DescriptorType:   section[o],
			DescriptorLength: section[o+1],
			SpecifierType:    section[o+2],
			Model:            bits.Uint16(section[o+6 : o+8]),
			Version:          bits.Uint16(section[o+8 : o+10]),
		}
		copy(entry.SpecifierData[:], section[o+3:o+6])
		subCount := int(section[o+10])
		o += 11

		for j := 0; j < subCount; j++ {
			if o+2 > limit {
				return nil, 0, fmt.Errorf("dsmcc: truncated sub_descriptor %d of descriptor %d", j, i)
			}
			subType := section[o]
			subLength := section[o+1]
			o += 2
			var info []byte
			if subLength > 0 {
				if o+int(subLength) > limit {
					return nil, 0, fmt.Errorf("dsmcc: sub_descriptor_length %d overruns descriptor", subLength)
				}
				info = append([]byte(nil), section[o:o+int(subLength)]...)
				o += int(subLength)
			}
			entry.SubDescriptors = append(entry.SubDescriptors, DSMCCSubDescriptor{
				SubDescriptorType:   subType,
				SubDescriptorLength: subLength,
				AdditionalInfo:      info,
			})
		}
		cd.Descriptors = append(cd.Descriptors, entry)
	}
	return cd, limit, nil
}

// createMessageHeaderDentries renders a DSMCCMessageHeader, matching
// dsmcc_create_message_header_dentries's field set.
func createMessageHeaderDentries(h *DSMCCMessageHeader, parent *dentry.Dentry) {
	fsutils.CreateNumberLeaf(parent, "protocol_discriminator", uint64(h.ProtocolDiscriminator), 2)
	fsutils.CreateNumberLeaf(parent, "dsmcc_type", uint64(h.DSMCCType), 2)
	fsutils.CreateNumberLeaf(parent, "message_id", uint64(h.MessageID), 4)
	fsutils.CreateNumberLeaf(parent, "transaction_id", uint64(h.TransactionID), 8)
	fsutils.CreateNumberLeaf(parent, "adaptation_length", uint64(h.AdaptationLength), 2)
	fsutils.CreateNumberLeaf(parent, "message_length", uint64(h.MessageLength), 4)
	if h.Adaptation != nil {
		fsutils.CreateNumberLeaf(parent, "adaptation_type", uint64(h.Adaptation.AdaptationType), 2)
		fsutils.CreateBinaryLeaf(parent, "adaptation_data_bytes", h.Adaptation.AdaptationDataBytes)
	}
}

// createDownloadDataHeaderDentries renders a DSMCCDownloadDataHeader,
// matching dsmcc_create_download_data_header_dentries's field set.
func createDownloadDataHeaderDentries(h *DSMCCDownloadDataHeader, parent *dentry.Dentry) {
	fsutils.CreateNumberLeaf(parent, "protocol_discriminator", uint64(h.ProtocolDiscriminator), 2)
	fsutils.CreateNumberLeaf(parent, "dsmcc_type", uint64(h.DSMCCType), 2)
	fsutils.CreateNumberLeaf(parent, "message_id", uint64(h.MessageID), 4)
	fsutils.CreateNumberLeaf(parent, "download_id", uint64(h.DownloadID), 8)
	fsutils.CreateNumberLeaf(parent, "adaptation_length", uint64(h.AdaptationLength), 2)
	fsutils.CreateNumberLeaf(parent, "message_length", uint64(h.MessageLength), 4)
	if h.Adaptation != nil {
		fsutils.CreateNumberLeaf(parent, "adaptation_type", uint64(h.Adaptation.AdaptationType), 2)
		fsutils.CreateBinaryLeaf(parent, "adaptation_data_bytes", h.Adaptation.AdaptationDataBytes)
	}
}

// createCompatibilityDescriptorDentries renders a compatibility_descriptor
// as nested descriptor_NN/sub_descriptor_NN directories, matching
// dsmcc_create_compatibility_descriptor_dentries.
func createCompatibilityDescriptorDentries(cd *DSMCCCompatibilityDescriptor, parent *dentry.Dentry) {
	fsutils.CreateNumberLeaf(parent, "descriptor_count", uint64(len(cd.Descriptors)), 4)
	for i, d := range cd.Descriptors {
		subdir := fsutils.CreateDirectory(parent, fmt.Sprintf("descriptor_%02d", i+1))
		fsutils.CreateNumberLeaf(subdir, "descriptor_type", uint64(d.DescriptorType), 2)
		fsutils.CreateNumberLeaf(subdir, "descriptor_length", uint64(d.DescriptorLength), 2)
		fsutils.CreateNumberLeaf(subdir, "specifier_type", uint64(d.SpecifierType), 2)
		fsutils.CreateBinaryLeaf(subdir, "specifier_data", d.SpecifierData[:])
		fsutils.CreateNumberLeaf(subdir, "model", uint64(d.Model), 4)
		fsutils.CreateNumberLeaf(subdir, "version", uint64(d.Version), 4)
		fsutils.CreateNumberLeaf(subdir, "sub_descriptor_count", uint64(len(d.SubDescriptors)), 2)
		for k, sub := range d.SubDescriptors {
			kdir := fsutils.CreateDirectory(subdir, fmt.Sprintf("sub_descriptor_%02d", k+1))
			fsutils.CreateNumberLeaf(kdir, "sub_descriptor_type", uint64(sub.SubDescriptorType), 2)
			fsutils.CreateNumberLeaf(kdir, "sub_descriptor_length", uint64(sub.SubDescriptorLength), 2)
			if sub.SubDescriptorLength > 0 {
				fsutils.CreateBinaryLeaf(kdir, "additional_information", sub.AdditionalInfo)
			}
		}
	}
}

// ParseDII parses a DSM-CC DII section (object-carousel download info
// indication) and splices it into /DSM-CC/0xPPPP/Vnn, keyed per-PID like
// PMT since a transport stream can carry more than one carousel.
func (c *Context) ParseDII(pid uint16, section []byte) error {
	hdr, offset, err := tsengine.ParseCommonHeader(section)
	if err != nil {
		c.Metrics.SectionsRejectedCRC.Add(1)
		return fmt.Errorf("dsmcc dii: %w", err)
	}

	key := dispatch.MakeKey(pid, hdr.TableID)
	if c.isDuplicateVersion(key, hdr.VersionNumber) {
		c.Metrics.SectionsDuplicate.Add(1)
		return nil
	}

	msgHeader, next, err := parseDSMCCMessageHeader(section, offset)
	if err != nil {
		c.Metrics.SectionsRejectedLen.Add(1)
		return fmt.Errorf("dsmcc dii: %w", err)
	}
	compatLen := len(section) - 4 - next
	var compat *DSMCCCompatibilityDescriptor
	if compatLen >= 4 {
		compat, _, err = parseDSMCCCompatibilityDescriptor(section, next)
		if err != nil {
			c.Log.Warn("dsmcc dii: compatibility_descriptor parse failed", "error", err)
			compat = nil
		}
	}

	dsmccRoot := c.topLevelDir(DSMCCName)
	tableRoot := getOrCreateDir(dsmccRoot, pidName(pid))
	c.supersede(tableRoot, key, hdr.VersionNumber, msgHeader, func(newDir *dentry.Dentry) {
		writeCommonHeaderLeaves(newDir, hdr, "table_id_extension")
		headerDir := fsutils.CreateDirectory(newDir, "MessageHeader")
		createMessageHeaderDentries(msgHeader, headerDir)
		if compat != nil {
			compatDir := fsutils.CreateDirectory(newDir, "CompatibilityDescriptor")
			createCompatibilityDescriptorDentries(compat, compatDir)
		}
	})

	c.Metrics.SectionsAccepted.Add(1)
	return nil
}

// ParseDDB parses a DSM-CC DDB section (object-carousel download data
// block) and splices it into /DSM-CC/0xPPPP/Vnn, sharing the same per-PID
// table root as DII since both carry the same carousel's signalling.
func (c *Context) ParseDDB(pid uint16, section []byte) error {
	hdr, offset, err := tsengine.ParseCommonHeader(section)
	if err != nil {
		c.Metrics.SectionsRejectedCRC.Add(1)
		return fmt.Errorf("dsmcc ddb: %w", err)
	}

	key := dispatch.MakeKey(pid, hdr.TableID)
	if c.isDuplicateVersion(key, hdr.VersionNumber) {
		c.Metrics.SectionsDuplicate.Add(1)
		return nil
	}

	dataHeader, _, err := parseDSMCCDownloadDataHeader(section, offset)
	if err != nil {
		c.Metrics.SectionsRejectedLen.Add(1)
		return fmt.Errorf("dsmcc ddb: %w", err)
	}

	dsmccRoot := c.topLevelDir(DSMCCName)
	tableRoot := getOrCreateDir(dsmccRoot, pidName(pid))
	c.supersede(tableRoot, key, hdr.VersionNumber, dataHeader, func(newDir *dentry.Dentry) {
		writeCommonHeaderLeaves(newDir, hdr, "table_id_extension")
		headerDir := fsutils.CreateDirectory(newDir, "DownloadDataHeader")
		createDownloadDataHeaderDentries(dataHeader, headerDir)
	})

	c.Metrics.SectionsAccepted.Add(1)
	return nil
}

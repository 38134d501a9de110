package descriptor

import (
	"fmt"

	"github.com/leandrotsampa/demuxfs/internal/dentry"
	"github.com/leandrotsampa/demuxfs/internal/fsutils"
)

// Well-known descriptor tags this starter set decodes. The registry is not
// an exhaustive per-tag library (spec §4.7 only requires the mapping and
// the fallback); these three are representative of ARIB STD-B10's
// network/service/event descriptors, the ones PAT/NIT/SDT/EIT most
// commonly carry.
const (
	TagNetworkName = 0x40
	TagService     = 0x48
	TagShortEvent  = 0x4D
)

// decodeNetworkName renders a network_name_descriptor: the remaining bytes
// are the network name, ARIB STD-B24 encoded text. Decoding that encoding
// is out of scope here; only the raw bytes are kept, with no text
// rendering alongside them.
func decodeNetworkName(payload []byte, parent *dentry.Dentry) error {
	fsutils.CreateBinaryLeaf(parent, "network_name", payload)
	return nil
}

// decodeService renders a service_descriptor: service_type, then two
// length-prefixed strings (provider name, service name).
func decodeService(payload []byte, parent *dentry.Dentry) error {
	if len(payload) < 2 {
		return fmt.Errorf("service_descriptor: payload too short (%d bytes)", len(payload))
	}
	serviceType := payload[0]
	fsutils.CreateNumberLeaf(parent, "service_type", uint64(serviceType), 2)

	providerLen := int(payload[1])
	offset := 2
	if offset+providerLen > len(payload) {
		return fmt.Errorf("service_descriptor: service_provider_name_length %d exceeds payload", providerLen)
	}
	fsutils.CreateBinaryLeaf(parent, "service_provider_name", payload[offset:offset+providerLen])
	offset += providerLen

	if offset >= len(payload) {
		return fmt.Errorf("service_descriptor: missing service_name_length")
	}
	nameLen := int(payload[offset])
	offset++
	if offset+nameLen > len(payload) {
		return fmt.Errorf("service_descriptor: service_name_length %d exceeds payload", nameLen)
	}
	fsutils.CreateBinaryLeaf(parent, "service_name", payload[offset:offset+nameLen])
	return nil
}

// decodeShortEvent renders a short_event_descriptor: a 3-byte ISO 639
// language code, then two length-prefixed strings (event name, text).
func decodeShortEvent(payload []byte, parent *dentry.Dentry) error {
	if len(payload) < 4 {
		return fmt.Errorf("short_event_descriptor: payload too short (%d bytes)", len(payload))
	}
	fsutils.CreateBinaryLeaf(parent, "iso_639_language_code", payload[0:3])

	offset := 3
	nameLen := int(payload[offset])
	offset++
	if offset+nameLen > len(payload) {
		return fmt.Errorf("short_event_descriptor: event_name_length %d exceeds payload", nameLen)
	}
	fsutils.CreateBinaryLeaf(parent, "event_name", payload[offset:offset+nameLen])
	offset += nameLen

	if offset >= len(payload) {
		return fmt.Errorf("short_event_descriptor: missing text_length")
	}
	textLen := int(payload[offset])
	offset++
	if offset+textLen > len(payload) {
		return fmt.Errorf("short_event_descriptor: text_length %d exceeds payload", textLen)
	}
	fsutils.CreateBinaryLeaf(parent, "text", payload[offset:offset+textLen])
	return nil
}

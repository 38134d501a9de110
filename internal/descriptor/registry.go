// Package descriptor implements the descriptor plug-in registry from spec
// §4.7: a mapping from an 8-bit descriptor_tag to a decoder that renders
// the descriptor's payload into a dentry subtree. The registry is purely
// additive — table parsers that walk a descriptor loop don't know the tag
// list themselves, they just ask the registry to decode each one.
package descriptor

import (
	"fmt"

	"github.com/leandrotsampa/demuxfs/internal/dentry"
	"github.com/leandrotsampa/demuxfs/internal/fsutils"
)

// Decoder renders one descriptor's payload (the bytes strictly after
// descriptor_tag/descriptor_length) into children of parent, which the
// caller has already named and installed as the enclosing descriptor's
// directory.
type Decoder func(payload []byte, parent *dentry.Dentry) error

// Registry maps descriptor_tag to Decoder. Unknown tags fall back to a
// generic binary leaf, per spec §4.7.
type Registry struct {
	decoders map[uint8]Decoder
}

// NewRegistry creates a registry pre-populated with the starter set of
// well-known decoders (service_descriptor, network_name_descriptor,
// short_event_descriptor). Callers can Register additional ones.
func NewRegistry() *Registry {
	r := &Registry{decoders: make(map[uint8]Decoder)}
	r.Register(TagNetworkName, decodeNetworkName)
	r.Register(TagService, decodeService)
	r.Register(TagShortEvent, decodeShortEvent)
	return r
}

// Register installs (or replaces) the decoder for tag.
func (r *Registry) Register(tag uint8, dec Decoder) {
	r.decoders[tag] = dec
}

// Decode renders one descriptor into a freshly created directory under
// parent, named descriptorName, containing a "descriptor_tag" and
// "descriptor_length" leaf plus whatever the tag's decoder (or, for
// unknown tags, a generic raw-bytes leaf) produces.
func (r *Registry) Decode(parent *dentry.Dentry, descriptorName string, tag uint8, payload []byte) error {
	dir := fsutils.CreateDirectory(parent, descriptorName)
	fsutils.CreateNumberLeaf(dir, "descriptor_tag", uint64(tag), 2)
	fsutils.CreateNumberLeaf(dir, "descriptor_length", uint64(len(payload)), 2)

	dec, ok := r.decoders[tag]
	if !ok {
		fsutils.CreateBinaryLeaf(dir, "raw_data", payload)
		return nil
	}
	if err := dec(payload, dir); err != nil {
		return fmt.Errorf("descriptor: tag %#02x: %w", tag, err)
	}
	return nil
}

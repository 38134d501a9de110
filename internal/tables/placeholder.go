package tables

import (
	"fmt"

	"github.com/leandrotsampa/demuxfs/internal/dentry"
	"github.com/leandrotsampa/demuxfs/internal/dispatch"
	"github.com/leandrotsampa/demuxfs/internal/tsengine"
)

// placeholderName maps a PID to the directory name used for the reserved,
// not-yet-bespoke table kinds: CAT, H/M/L-EIT, RST, TDT/TOT, DCT, DIT,
// SIT, PCAT, SDTT, BIT, NBIT/LDT, CDT. These PIDs exist in the
// reserved-PID map (spec §6) so the dispatcher doesn't drop their packets
// outright, but a full per-table dentry layout for each is out of scope
// for this core (spec §4.4 only specifies PAT's shape in full and leaves
// "other table parsers follow the same shape" as the general contract;
// these are parked behind a generic placeholder instead of guessed at).
var placeholderName = map[uint16]string{
	pidCAT:   "CAT",
	pidHEIT:  "EIT",
	pidMEIT:  "EIT",
	pidLEIT:  "EIT",
	pidRST:   "RST",
	pidTDT:   "TDT",
	pidDCT:   "DCT",
	pidDIT:   "DIT",
	pidSIT:   "SIT",
	pidPCAT:  "PCAT",
	pidSDTT1: "SDTT",
	pidSDTT2: "SDTT",
	pidBIT:   "BIT",
	pidNBIT:  "NBIT",
	pidCDT:   "CDT",
}

// ParsePlaceholder accepts a CRC-valid section on a reserved PID that has
// no dedicated parser, recording only that a table version was seen
// without attempting to decode its table-specific payload. It installs a
// minimal directory (common header leaves only) under the PID's mapped
// top-level name so the tree at least reflects that the table is present
// and what version it's on.
func (c *Context) ParsePlaceholder(pid uint16, section []byte) error {
	hdr, _, err := tsengine.ParseCommonHeader(section)
	if err != nil {
		c.Metrics.SectionsRejectedCRC.Add(1)
		return fmt.Errorf("placeholder: %w", err)
	}

	name, ok := placeholderName[pid]
	if !ok {
		name = fmt.Sprintf("PID_%#04x", pid)
	}

	key := dispatch.MakeKey(pid, hdr.TableID)
	if c.isDuplicateVersion(key, hdr.VersionNumber) {
		c.Metrics.SectionsDuplicate.Add(1)
		return nil
	}

	tableRoot := c.topLevelDir(name)
	c.supersede(tableRoot, key, hdr.VersionNumber, hdr, func(newDir *dentry.Dentry) {
		writeCommonHeaderLeaves(newDir, hdr, "table_id_extension")
	})

	c.Metrics.SectionsAccepted.Add(1)
	return nil
}

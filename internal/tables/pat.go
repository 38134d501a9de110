package tables

import (
	"fmt"

	"github.com/leandrotsampa/demuxfs/internal/dentry"
	"github.com/leandrotsampa/demuxfs/internal/dispatch"
	"github.com/leandrotsampa/demuxfs/internal/fsutils"
	"github.com/leandrotsampa/demuxfs/internal/tsengine"
)

// PATProgram is one {program_number, pid} entry from a Program Association
// Table.
type PATProgram struct {
	ProgramNumber uint16
	PID           uint16
}

// PAT is a fully parsed Program Association Table.
type PAT struct {
	Header   tsengine.CommonHeader
	Programs []PATProgram
}

// ParsePAT implements the PAT contract from spec §4.4: validate and
// idempotence-check the common header, parse the program loop, splice the
// result into /PAT/Vnn, and seed the dispatcher with the PMT (or NIT, for
// program_number 0) parser for every PID it announces.
func (c *Context) ParsePAT(pid uint16, section []byte) error {
	hdr, offset, err := tsengine.ParseCommonHeader(section)
	if err != nil {
		c.Metrics.SectionsRejectedCRC.Add(1)
		return fmt.Errorf("pat: %w", err)
	}
	if !hdr.CurrentNextIndicator {
		return nil
	}

	key := dispatch.MakeKey(pid, hdr.TableID)
	if c.isDuplicateVersion(key, hdr.VersionNumber) {
		c.Metrics.SectionsDuplicate.Add(1)
		return nil
	}

	numPrograms := (int(hdr.SectionLength) - 9) / 4
	if numPrograms < 0 || offset+numPrograms*4 > len(section)-4 {
		c.Metrics.SectionsRejectedLen.Add(1)
		return fmt.Errorf("pat: section_length implies %d programs, which overruns the section", numPrograms)
	}

	pat := &PAT{Header: *hdr, Programs: make([]PATProgram, numPrograms)}
	for i := 0; i < numPrograms; i++ {
		o := offset + i*4
		pat.Programs[i] = PATProgram{
			ProgramNumber: uint16(section[o])<<8 | uint16(section[o+1]),
			PID:           (uint16(section[o+2])<<8 | uint16(section[o+3])) & 0x1FFF,
		}
	}

	tableRoot := c.topLevelDir(PATName)
	c.supersede(tableRoot, key, hdr.VersionNumber, pat, func(newDir *dentry.Dentry) {
		writeCommonHeaderLeaves(newDir, hdr, "transport_stream_id")
		c.populatePATPrograms(pat, newDir)
	})

	c.Metrics.SectionsAccepted.Add(1)
	return nil
}

func (c *Context) populatePATPrograms(pat *PAT, versionDir *dentry.Dentry) {
	programsDir := fsutils.CreateDirectory(versionDir, ProgramsName)

	for _, prog := range pat.Programs {
		name := fmt.Sprintf("%#04x", prog.ProgramNumber)
		if prog.ProgramNumber == 0 {
			fsutils.CreateSymlink(programsDir, name, fmt.Sprintf("../../../%s/%s", NITName, fsutils.CurrentName))
			if !c.Parsers.HasPID(prog.PID) {
				c.Parsers.Register(prog.PID, dispatch.Exactly(tableIDNIT), c.ParseNIT, nil)
			}
			continue
		}
		fsutils.CreateSymlink(programsDir, name, fmt.Sprintf("../../../%s/%s/%s", PMTName, pidName(prog.PID), fsutils.CurrentName))
		if !c.Parsers.HasPID(prog.PID) {
			c.Parsers.Register(prog.PID, dispatch.Exactly(tableIDPMT), c.ParsePMT, nil)
		}
	}
}

// AnnouncesProgram reports whether the current PAT's Programs directory
// has a symlink for service_id — the Go analogue of pat_announces_service,
// used by callers that need to know whether a given service is currently
// on the air before following its PMT link.
func (c *Context) AnnouncesProgram(programNumber uint16) bool {
	path := fmt.Sprintf("%s/%s/%s", PATName, fsutils.CurrentName, ProgramsName)
	programsDir, ok := dentry.Lookup(c.Root, path)
	if !ok {
		return false
	}
	_, ok = programsDir.Child(fmt.Sprintf("%#04x", programNumber))
	return ok
}

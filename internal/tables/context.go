// Package tables implements the PSI/DSM-CC section parsers: PAT, PMT, NIT,
// SDT, the DSM-CC message/download-data headers and compatibility
// descriptor, and a generic placeholder for the remaining reserved table
// kinds the spec names but doesn't require a bespoke parser for. Every
// parser shares the same Context, the table-parsing analogue of
// demuxfs.c's struct demuxfs_data: the live dentry root, the two
// dispatch tables, the descriptor registry, and a logger/metrics pair.
package tables

import (
	"fmt"
	"log/slog"

	"github.com/leandrotsampa/demuxfs/internal/dentry"
	"github.com/leandrotsampa/demuxfs/internal/descriptor"
	"github.com/leandrotsampa/demuxfs/internal/dispatch"
	"github.com/leandrotsampa/demuxfs/internal/fsutils"
	"github.com/leandrotsampa/demuxfs/internal/metrics"
	"github.com/leandrotsampa/demuxfs/internal/tsengine"
)

// Fixed top-level directory names, per spec §6.
const (
	PATName   = "PAT"
	PMTName   = "PMT"
	NITName   = "NIT"
	SDTName   = "SDT"
	DSMCCName = "DSM-CC"

	ProgramsName        = "Programs"
	StreamsName         = "Streams"
	DescriptorsName     = "Descriptors"
	TransportStreamsName = "TransportStreams"
	ServicesName        = "Services"
)

// Context is the shared handle every table parser method hangs off of.
type Context struct {
	Root        *dentry.Dentry
	Parsers     *dispatch.ParserTable
	Tables      *dispatch.TableStore
	Descriptors *descriptor.Registry
	Log         *slog.Logger
	Metrics     *metrics.Counters
}

// NewContext wires a fresh Context around an already-bootstrapped dentry
// root and dispatch tables.
func NewContext(root *dentry.Dentry, parsers *dispatch.ParserTable, tables *dispatch.TableStore, descriptors *descriptor.Registry, log *slog.Logger, m *metrics.Counters) *Context {
	return &Context{
		Root:        root,
		Parsers:     parsers,
		Tables:      tables,
		Descriptors: descriptors,
		Log:         log.With("component", "tables"),
		Metrics:     m,
	}
}

// topLevelDir returns Root's child directory named name, creating it if
// this is the first table of that kind ever seen.
func (c *Context) topLevelDir(name string) *dentry.Dentry {
	if d, ok := c.Root.Child(name); ok {
		return d
	}
	return fsutils.CreateDirectory(c.Root, name)
}

// getOrCreateDir returns parent's child directory named name, creating it
// if absent. Used for PID-keyed subtrees (PMT's /PMT/0xPPPP) that persist
// across table versions even though the Vnn directory underneath them
// doesn't.
func getOrCreateDir(parent *dentry.Dentry, name string) *dentry.Dentry {
	if d, ok := parent.Child(name); ok {
		return d
	}
	return fsutils.CreateDirectory(parent, name)
}

// isDuplicateVersion reports whether key's installed table object already
// has the version parsed out of a freshly arrived section — the
// idempotent-delivery check every table parser runs before doing any
// further work (spec §4.4).
func (c *Context) isDuplicateVersion(key dispatch.Key, version uint8) bool {
	entry, ok := c.Tables.Get(key)
	return ok && entry.Version == version
}

// supersede installs a freshly parsed table's version directory, running
// populate to fill it in, then migrates forward and disposes whatever
// version directory it replaces (if any), and finally installs obj as
// key's current table object. It returns the new version directory.
//
// This mirrors pat_create_directory + the migrate/dispose/hashtable_add
// sequence at the end of pat_parse, generalized across table kinds.
func (c *Context) supersede(tableRoot *dentry.Dentry, key dispatch.Key, version uint8, obj any, populate func(newDir *dentry.Dentry)) *dentry.Dentry {
	newDir, oldDir := fsutils.CreateVersionDir(tableRoot, version)
	populate(newDir)

	if oldDir != nil {
		fsutils.MigrateChildren(oldDir, newDir)
		fsutils.DisposeTree(oldDir)
		c.Metrics.TablesSuperseded.Add(1)
	}
	c.Tables.Put(key, &dispatch.TableEntry{
		Object:  obj,
		Version: version,
	})
	return newDir
}

// writeCommonHeaderLeaves populates the PSI common header fields shared by
// every table kind. extName is the field-specific name of the 16-bit
// table_id_extension (transport_stream_id, program_number, network_id, ...).
func writeCommonHeaderLeaves(dir *dentry.Dentry, hdr *tsengine.CommonHeader, extName string) {
	fsutils.CreateNumberLeaf(dir, "table_id", uint64(hdr.TableID), 2)
	fsutils.CreateBoolLeaf(dir, "section_syntax_indicator", hdr.SectionSyntaxIndicator)
	fsutils.CreateNumberLeaf(dir, "section_length", uint64(hdr.SectionLength), 4)
	fsutils.CreateNumberLeaf(dir, extName, uint64(hdr.TableIDExtension), 4)
	fsutils.CreateNumberLeaf(dir, "version_number", uint64(hdr.VersionNumber), 2)
	fsutils.CreateBoolLeaf(dir, "current_next_indicator", hdr.CurrentNextIndicator)
	fsutils.CreateNumberLeaf(dir, "section_number", uint64(hdr.SectionNumber), 2)
	fsutils.CreateNumberLeaf(dir, "last_section_number", uint64(hdr.LastSectionNumber), 2)
	fsutils.CreateNumberLeaf(dir, "crc32", uint64(hdr.CRC32), 8)
}

// pidName formats a PID the way every PID-keyed symlink/directory name in
// this tree is rendered, matching the original's "%#04x" convention.
func pidName(pid uint16) string {
	return fmt.Sprintf("%#04x", pid)
}

// Package demuxfs ingests an ISDB-Tb MPEG-2 Transport Stream and exposes
// its parsed PSI/DSM-CC signalling tables as a versioned, cross-referenced,
// read-only dentry tree: one directory subtree per table version, a
// Current symlink tracking the active one, and symlinks standing in for
// PAT→PMT/NIT and similar inter-table references.
package demuxfs

import (
	"github.com/leandrotsampa/demuxfs/internal/dentry"
	"github.com/leandrotsampa/demuxfs/internal/fsutils"
)

// Root wraps the live dentry tree's root directory.
type Root struct {
	dentry *dentry.Dentry
}

// topLevelDirs are mounted empty at Bootstrap time, mirroring
// original_source/src/demuxfs.c's behaviour of creating every known table
// directory up front rather than lazily on first section — so a freshly
// started Root always has the full, fixed top-level layout from spec §6,
// even before a single packet has been fed in.
var topLevelDirs = []string{"PAT", "PMT", "NIT", "SDT", "EIT", "TDT", "TOT", "BIT", "SDTT", "CDT", "AIT", "DSM-CC"}

// NewRoot creates an empty dentry tree root.
func NewRoot() *Root {
	return &Root{dentry: dentry.NewDir("")}
}

// Bootstrap mounts the fixed set of top-level table directories (spec §6)
// so they exist, empty, before any section has been parsed. Called once by
// NewFeeder; safe to call again on an already-bootstrapped Root (existing
// directories are left untouched).
func (r *Root) Bootstrap() {
	for _, name := range topLevelDirs {
		if _, ok := r.dentry.Child(name); !ok {
			fsutils.CreateDirectory(r.dentry, name)
		}
	}
}

// Dentry returns the root dentry, the entry point for any path lookup.
func (r *Root) Dentry() *dentry.Dentry {
	return r.dentry
}

// Lookup resolves a slash-separated path from the root, following
// symlinks at intermediate components; a symlink that is the path's last
// component is returned itself, not followed. It is the Go analogue of
// original_source/src/tables/pat.c's pat_announces_service helper,
// generalized from "does the PAT announce this service" to "does any
// path resolve" so tests and a future VFS adapter can both use it.
func (r *Root) Lookup(path string) (*dentry.Dentry, bool) {
	return dentry.Lookup(r.dentry, path)
}

// Package fsutils builds and splices dentry subtrees: leaf file/symlink
// constructors that render a parsed field in decimal, hex, and binary, and
// the versioning operations (create a Vnn directory, retarget Current,
// migrate orphaned children forward across a table supersession) that
// every table parser shares.
package fsutils

import (
	"fmt"
	"time"

	"github.com/leandrotsampa/demuxfs/internal/bits"
	"github.com/leandrotsampa/demuxfs/internal/dentry"
)

// CurrentName is the name of the symlink that always points at a table's
// currently active version directory.
const CurrentName = "Current"

// CreateDirectory creates a child directory named name under parent.
func CreateDirectory(parent *dentry.Dentry, name string) *dentry.Dentry {
	d := dentry.NewDir(name)
	_ = parent.AddChild(d)
	return d
}

// CreateSymlink creates a child symlink named name under parent, pointing
// at target.
func CreateSymlink(parent *dentry.Dentry, name, target string) *dentry.Dentry {
	d := dentry.NewSymlink(name, target)
	_ = parent.AddChild(d)
	return d
}

// CreateNumberLeaf creates a file named name under parent holding value's
// decimal representation, with a "user.hex" extended attribute rendering
// it as 0x%0*x using hexWidth hex digits, per the file content rendering
// rules in spec §6.
func CreateNumberLeaf(parent *dentry.Dentry, name string, value uint64, hexWidth int) *dentry.Dentry {
	d := dentry.NewFile(name, []byte(fmt.Sprintf("%d", value)))
	d.SetXattr("user.hex", []byte(fmt.Sprintf("0x%0*x", hexWidth, value)))
	_ = parent.AddChild(d)
	return d
}

// CreateBoolLeaf creates a file named name rendering a boolean flag as "0"
// or "1", matching the numeric-leaf convention used for other single-bit
// PSI fields (current_next_indicator, section_syntax_indicator, ...).
func CreateBoolLeaf(parent *dentry.Dentry, name string, value bool) *dentry.Dentry {
	v := uint64(0)
	if value {
		v = 1
	}
	return CreateNumberLeaf(parent, name, v, 1)
}

// CreateBinaryLeaf creates a file named name under parent holding raw
// bytes exactly as they appeared on the wire.
func CreateBinaryLeaf(parent *dentry.Dentry, name string, data []byte) *dentry.Dentry {
	d := dentry.NewFile(name, append([]byte(nil), data...))
	_ = parent.AddChild(d)
	return d
}

// CreateDateLeaf creates a file named name under parent holding t's
// ISO-8601 rendering, for BCD-encoded date/time fields such as TDT/TOT's.
// No table parser calls it.
func CreateDateLeaf(parent *dentry.Dentry, name string, t time.Time) *dentry.Dentry {
	d := dentry.NewFile(name, []byte(bits.ISO8601(t)))
	_ = parent.AddChild(d)
	return d
}

// VersionDirName formats a table version number as the Vnn directory name.
func VersionDirName(version uint8) string {
	return fmt.Sprintf("V%02d", version)
}

// findVersionDir returns tableRoot's existing Vnn child, if any. A table
// directory holds at most one version subdirectory at a time; once a new
// version replaces it, the old one is migrated-from and disposed (see
// CreateVersionDir).
func findVersionDir(tableRoot *dentry.Dentry) (*dentry.Dentry, bool) {
	for _, child := range tableRoot.Children() {
		if child.IsDir() && len(child.Name()) == 3 && child.Name()[0] == 'V' {
			return child, true
		}
	}
	return nil, false
}

// CreateVersionDir creates a fresh Vnn directory under tableRoot for the
// given version, retargets tableRoot's Current symlink to it, and returns
// both the new directory and whatever version directory previously
// occupied tableRoot (nil if this is the table's first version). The
// caller is expected to migrate the old directory's orphaned children into
// the new one (MigrateChildren) and then dispose of it.
func CreateVersionDir(tableRoot *dentry.Dentry, version uint8) (newDir, oldDir *dentry.Dentry) {
	oldDir, hadOld := findVersionDir(tableRoot)
	name := VersionDirName(version)

	newDir = dentry.NewDir(name)
	newDir.Acquire() // the table store's own reference; released on disposal
	if hadOld {
		tableRoot.RemoveChild(oldDir.Name())
	}
	_ = tableRoot.AddChild(newDir)

	link := dentry.NewSymlink(CurrentName, name)
	tableRoot.ReplaceChild(link)

	if !hadOld {
		return newDir, nil
	}
	return newDir, oldDir
}

// MigrateChildren reparents every child of oldRoot that has no same-named
// counterpart in newRoot, preserving external references into leaves the
// new version did not recreate. Children left behind (name collisions)
// stay under oldRoot for the caller to dispose of along with oldRoot
// itself.
func MigrateChildren(oldRoot, newRoot *dentry.Dentry) {
	for _, child := range oldRoot.Children() {
		if _, collides := newRoot.Child(child.Name()); collides {
			continue
		}
		oldRoot.RemoveChild(child.Name())
		_ = newRoot.AddChild(child)
	}
}

// DisposeTree releases the installer's reference on root, acquired when it
// was created by CreateVersionDir. Once every reader that resolved root
// (or one of its descendants while root was live) has also released its
// own reference, root's disposer — if one was registered — runs.
func DisposeTree(root *dentry.Dentry) {
	root.Release()
}

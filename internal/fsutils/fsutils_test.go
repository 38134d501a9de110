package fsutils

import (
	"testing"

	"github.com/leandrotsampa/demuxfs/internal/dentry"
)

func TestCreateNumberLeafRendersDecimalAndHex(t *testing.T) {
	parent := dentry.NewDir("PAT")
	leaf := CreateNumberLeaf(parent, "version_number", 5, 2)

	if string(leaf.Content()) != "5" {
		t.Errorf("Content() = %q, want %q", leaf.Content(), "5")
	}
	hex, ok := leaf.Xattr("user.hex")
	if !ok || string(hex) != "0x05" {
		t.Errorf("user.hex = %q, ok=%v, want 0x05", hex, ok)
	}
}

func TestCreateVersionDirFirstTimeHasNoOldDir(t *testing.T) {
	table := dentry.NewDir("PAT")
	v0, old := CreateVersionDir(table, 0)
	if old != nil {
		t.Fatalf("old = %v, want nil on first version", old)
	}
	if v0.Name() != "V00" {
		t.Fatalf("new dir name = %q, want V00", v0.Name())
	}
	current, ok := table.Child(CurrentName)
	if !ok || current.SymlinkTarget() != "V00" {
		t.Fatalf("Current -> %v, want V00", current)
	}
}

func TestCreateVersionDirSupersedesPrevious(t *testing.T) {
	table := dentry.NewDir("PAT")
	v0, _ := CreateVersionDir(table, 0)
	_ = CreateDirectory(v0, "Programs")

	v1, old := CreateVersionDir(table, 1)
	if old == nil || old.Name() != "V00" {
		t.Fatalf("old = %v, want V00", old)
	}
	if _, stillThere := table.Child("V00"); stillThere {
		t.Error("V00 still a direct child of table after supersession")
	}
	current, _ := table.Child(CurrentName)
	if current.SymlinkTarget() != "V01" {
		t.Fatalf("Current -> %v, want V01", current.SymlinkTarget())
	}
	if v1.Name() != "V01" {
		t.Fatalf("new dir name = %q, want V01", v1.Name())
	}
}

func TestMigrateChildrenPreservesNonCollidingNames(t *testing.T) {
	oldDir := dentry.NewDir("V00")
	newDir := dentry.NewDir("V01")

	programs := dentry.NewDir("Programs")
	_ = oldDir.AddChild(programs)
	_ = oldDir.AddChild(dentry.NewFile("version_number", []byte("0")))

	// newDir already has its own freshly parsed version_number leaf.
	_ = newDir.AddChild(dentry.NewFile("version_number", []byte("1")))

	MigrateChildren(oldDir, newDir)

	if _, ok := newDir.Child("Programs"); !ok {
		t.Error("Programs not migrated into new version dir")
	}
	if _, ok := oldDir.Child("Programs"); ok {
		t.Error("Programs still present under old version dir after migration")
	}
	vn, _ := newDir.Child("version_number")
	if string(vn.Content()) != "1" {
		t.Errorf("version_number leaf was overwritten by migration, got %q", vn.Content())
	}
}

func TestDisposeTreeReleasesInstallerReference(t *testing.T) {
	table := dentry.NewDir("PAT")
	v0, _ := CreateVersionDir(table, 0)
	if v0.RefCount() != 1 {
		t.Fatalf("RefCount() after creation = %d, want 1", v0.RefCount())
	}
	fired := false
	v0.SetDisposer(func() { fired = true })

	DisposeTree(v0)
	if v0.RefCount() != 0 {
		t.Fatalf("RefCount() after dispose = %d, want 0", v0.RefCount())
	}
	if !fired {
		t.Error("disposer did not fire")
	}
}

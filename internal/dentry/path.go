package dentry

import "strings"

// maxSymlinkHops bounds the number of symlink resolutions a single
// top-level Lookup performs, guarding against a symlink cycle.
const maxSymlinkHops = 32

// Lookup resolves a slash-separated path starting at root, following
// symlinks encountered at intermediate path components. A symlink target is
// interpreted relative to the symlink's own directory, per the package
// invariant, so ".." components in a target (every cross-table reference in
// this tree — PAT's Programs/0xNNNN entries, every table's Current — is
// written relative to its own directory) are resolved by walking to
// Parent() rather than treated as an ordinary child name.
//
// If the path's *final* component is itself a symlink, Lookup returns the
// symlink dentry rather than following it, so a caller can inspect
// SymlinkTarget() without being forced through it (this is what lets a
// caller resolve "PAT/Current/Programs/0x0001" to the PMT cross-reference
// symlink itself rather than the PMT directory it points at). Symlinks
// encountered anywhere else along the path are always followed to
// completion.
func Lookup(root *Dentry, path string) (*Dentry, bool) {
	hops := 0
	return lookup(root, path, false, &hops)
}

// lookup is Lookup's recursive engine. resolveFinal is true whenever this
// call is itself resolving a symlink's target: following a symlink means
// reaching a non-symlink object, even if that target's own final component
// is another symlink.
func lookup(root *Dentry, path string, resolveFinal bool, hops *int) (*Dentry, bool) {
	cur := root
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if parent := cur.Parent(); parent != nil {
				cur = parent
			}
			continue
		}
		if !cur.IsDir() {
			return nil, false
		}
		next, ok := cur.Child(part)
		if !ok {
			return nil, false
		}
		if next.IsSymlink() && (i < len(parts)-1 || resolveFinal) {
			*hops++
			if *hops > maxSymlinkHops {
				return nil, false
			}
			resolved, ok := lookup(cur, next.SymlinkTarget(), true, hops)
			if !ok {
				return nil, false
			}
			next = resolved
		}
		cur = next
	}
	return cur, true
}

// Package crate models Serato crates: the folder-mirroring tree of crate
// nodes, the filename sanitizer, the track path resolver, and the binary
// .crate codec.
package crate

// DefaultDelimiter joins ancestor crate names into the hierarchical name
// Serato expects for subcrates (e.g. "House%%Deep").
const DefaultDelimiter = "%%"

// Node is one planned crate mirroring a single folder. Nodes form an
// ownership tree: each child belongs to exactly one parent, mirroring the
// filesystem, so cycles cannot occur. Nodes are built once and never
// mutated afterwards.
type Node struct {
	// Name is the folder basename, used as the crate's display name.
	Name string

	// SourcePath is the absolute path of the folder this node represents.
	SourcePath string

	// ParentDisplayName is the delimiter-joined chain of ancestor names.
	// Empty for a top-level node. Used for display and for composing the
	// storage-format name prefix, never for ownership.
	ParentDisplayName string

	// Tracks holds absolute paths of matching audio files, sorted by name.
	Tracks []string

	// Children holds subfolder crates, sorted by name.
	Children []*Node
}

// DisplayName returns the human-readable hierarchical name.
func (n *Node) DisplayName() string {
	if n.ParentDisplayName == "" {
		return n.Name
	}

	return n.ParentDisplayName + " > " + n.Name
}

// Count returns the number of crates and tracks in the subtree rooted at n.
func (n *Node) Count() (crates, tracks int) {
	crates = 1
	tracks = len(n.Tracks)

	for _, child := range n.Children {
		c, t := child.Count()
		crates += c
		tracks += t
	}

	return crates, tracks
}

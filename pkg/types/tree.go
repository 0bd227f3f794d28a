package types

// NodeKind distinguishes file and directory entries in a hash tree
type NodeKind string

const (
	NodeFile NodeKind = "file"
	NodeDir  NodeKind = "dir"
)

// FlatNode is one entry of a folder's content-addressed hash tree.
// Paths are folder-relative with forward slashes; the root directory's
// path is ".".
type FlatNode struct {
	Path string
	Hash string // sha256 hex
	Kind NodeKind
	Size int64 // raw byte size, files only
}

// HashTree is the flattened hash tree of one folder at one point in time.
type HashTree struct {
	RootHash string
	Nodes    map[string]FlatNode // keyed by FlatNode.Path
}

// FileCount returns the number of file nodes in the tree.
func (t *HashTree) FileCount() int {
	n := 0
	for _, node := range t.Nodes {
		if node.Kind == NodeFile {
			n++
		}
	}
	return n
}

// TreeDiff lists file paths whose content differs between two trees.
// Directories are never reported; only files are classified.
type TreeDiff struct {
	Added   []string `json:"added"`
	Changed []string `json:"changed"`
	Deleted []string `json:"deleted"`
}

// HasChanges reports whether the diff contains any entries.
func (d *TreeDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Changed) > 0 || len(d.Deleted) > 0
}

// Total returns the number of changed paths across all classes.
func (d *TreeDiff) Total() int {
	return len(d.Added) + len(d.Changed) + len(d.Deleted)
}

// FolderChange is the payload delivered to change listeners.
type FolderChange struct {
	Folder string
	Diff   TreeDiff
}

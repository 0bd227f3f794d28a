package hashtree

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"semdex/internal/fsys"
	"semdex/pkg/types"
)

// DefaultIgnore lists entry names skipped during tree construction. Matches
// are exact names, applied at every depth.
var DefaultIgnore = []string{
	".git",
	".hg",
	".svn",
	".idea",
	".vscode",
	".DS_Store",
	"node_modules",
	"vendor",
	"__pycache__",
	".venv",
	"venv",
	"dist",
	"build",
	"target",
}

// Builder constructs hash trees for folders.
type Builder struct {
	fs     fsys.FS
	ignore map[string]struct{}
	log    *zap.Logger
}

// NewBuilder creates a Builder. extraIgnore names are added on top of
// DefaultIgnore.
func NewBuilder(fs fsys.FS, extraIgnore []string, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	ignore := make(map[string]struct{}, len(DefaultIgnore)+len(extraIgnore))
	for _, name := range DefaultIgnore {
		ignore[name] = struct{}{}
	}
	for _, name := range extraIgnore {
		if name != "" {
			ignore[name] = struct{}{}
		}
	}
	return &Builder{fs: fs, ignore: ignore, log: log}
}

// Ignored reports whether an entry name is excluded from trees.
func (b *Builder) Ignored(name string) bool {
	_, ok := b.ignore[name]
	return ok
}

// Build walks the folder rooted at rootPath and returns its hash tree.
// Unreadable files and unlistable subdirectories are skipped; an unreadable
// root is an error.
func (b *Builder) Build(rootPath string) (*types.HashTree, error) {
	nodes := make(map[string]types.FlatNode)
	rootHash, err := b.hashDir(rootPath, ".", nodes)
	if err != nil {
		return nil, fmt.Errorf("hash tree for %s: %w", rootPath, err)
	}
	return &types.HashTree{RootHash: rootHash, Nodes: nodes}, nil
}

func (b *Builder) hashDir(absDir, relDir string, nodes map[string]types.FlatNode) (string, error) {
	entries, err := b.fs.List(absDir)
	if err != nil {
		return "", err
	}

	childHashes := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsSymlink || b.Ignored(entry.Name) {
			continue
		}

		childRel := path.Join(relDir, entry.Name)
		childAbs := filepath.Join(absDir, entry.Name)

		if entry.IsDir {
			hash, err := b.hashDir(childAbs, childRel, nodes)
			if err != nil {
				b.log.Warn("skipping unlistable directory",
					zap.String("path", childRel), zap.Error(err))
				continue
			}
			childHashes = append(childHashes, hash)
			continue
		}

		data, err := b.fs.ReadFile(childAbs)
		if err != nil {
			b.log.Debug("skipping unreadable file",
				zap.String("path", childRel), zap.Error(err))
			continue
		}
		sum := sha256.Sum256(data)
		hash := hex.EncodeToString(sum[:])
		nodes[childRel] = types.FlatNode{
			Path: childRel,
			Hash: hash,
			Kind: types.NodeFile,
			Size: int64(len(data)),
		}
		childHashes = append(childHashes, hash)
	}

	// Sorting child hashes keeps the digest independent of listing order.
	sort.Strings(childHashes)

	h := sha256.New()
	h.Write([]byte(relDir))
	for _, child := range childHashes {
		h.Write([]byte(child))
	}
	dirHash := hex.EncodeToString(h.Sum(nil))

	nodes[relDir] = types.FlatNode{Path: relDir, Hash: dirHash, Kind: types.NodeDir}
	return dirHash, nil
}

// Diff classifies file-level differences between two trees. A nil prev is
// treated as empty, so every current file reports as added.
func Diff(prev, curr *types.HashTree) types.TreeDiff {
	var diff types.TreeDiff

	var prevNodes map[string]types.FlatNode
	if prev != nil {
		prevNodes = prev.Nodes
	}
	var currNodes map[string]types.FlatNode
	if curr != nil {
		currNodes = curr.Nodes
	}

	for p, node := range currNodes {
		if node.Kind != types.NodeFile {
			continue
		}
		old, ok := prevNodes[p]
		switch {
		case !ok:
			diff.Added = append(diff.Added, p)
		case old.Hash != node.Hash:
			diff.Changed = append(diff.Changed, p)
		}
	}

	for p, node := range prevNodes {
		if node.Kind != types.NodeFile {
			continue
		}
		if _, ok := currNodes[p]; !ok {
			diff.Deleted = append(diff.Deleted, p)
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Changed)
	sort.Strings(diff.Deleted)
	return diff
}

package hashtree

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semdex/internal/fsys"
	"semdex/pkg/types"
)

// fakeFS serves an in-memory layout with a caller-controlled listing order.
type fakeFS struct {
	dirs    map[string][]fsys.Entry
	files   map[string][]byte
	readErr map[string]error
}

func (f *fakeFS) List(dir string) ([]fsys.Entry, error) {
	entries, ok := f.dirs[dir]
	if !ok {
		return nil, errors.New("no such directory: " + dir)
	}
	return entries, nil
}

func (f *fakeFS) ReadFile(path string) ([]byte, error) {
	if err, ok := f.readErr[path]; ok {
		return nil, err
	}
	data, ok := f.files[path]
	if !ok {
		return nil, errors.New("no such file: " + path)
	}
	return data, nil
}

func (f *fakeFS) Stat(path string) (fsys.Entry, error) {
	if _, ok := f.dirs[path]; ok {
		return fsys.Entry{Name: filepath.Base(path), IsDir: true}, nil
	}
	if data, ok := f.files[path]; ok {
		return fsys.Entry{Name: filepath.Base(path), Size: int64(len(data))}, nil
	}
	return fsys.Entry{}, errors.New("no such path: " + path)
}

func file(name string, size int64) fsys.Entry {
	return fsys.Entry{Name: name, Size: size}
}

func dir(name string) fsys.Entry {
	return fsys.Entry{Name: name, IsDir: true}
}

func TestBuildDeterminism(t *testing.T) {
	forward := &fakeFS{
		dirs: map[string][]fsys.Entry{
			"/r":     {file("a.py", 5), dir("lib"), file("b.py", 5)},
			"/r/lib": {file("c.py", 5)},
		},
		files: map[string][]byte{
			"/r/a.py":     []byte("aaaaa"),
			"/r/b.py":     []byte("bbbbb"),
			"/r/lib/c.py": []byte("ccccc"),
		},
	}
	reversed := &fakeFS{
		dirs: map[string][]fsys.Entry{
			"/r":     {file("b.py", 5), dir("lib"), file("a.py", 5)},
			"/r/lib": {file("c.py", 5)},
		},
		files: forward.files,
	}

	t1, err := NewBuilder(forward, nil, nil).Build("/r")
	require.NoError(t, err)
	t2, err := NewBuilder(reversed, nil, nil).Build("/r")
	require.NoError(t, err)

	assert.Equal(t, t1.RootHash, t2.RootHash, "root hash must not depend on listing order")
	assert.Equal(t, t1.Nodes, t2.Nodes)
}

func TestBuildNodes(t *testing.T) {
	fs := &fakeFS{
		dirs: map[string][]fsys.Entry{
			"/r":     {file("a.py", 3), dir("sub")},
			"/r/sub": {file("b.md", 2)},
		},
		files: map[string][]byte{
			"/r/a.py":     []byte("abc"),
			"/r/sub/b.md": []byte("md"),
		},
	}

	tree, err := NewBuilder(fs, nil, nil).Build("/r")
	require.NoError(t, err)

	require.Len(t, tree.Nodes, 4)
	assert.Equal(t, 2, tree.FileCount())

	root, ok := tree.Nodes["."]
	require.True(t, ok, "root directory node must use path '.'")
	assert.Equal(t, types.NodeDir, root.Kind)
	assert.Equal(t, root.Hash, tree.RootHash)

	a := tree.Nodes["a.py"]
	assert.Equal(t, types.NodeFile, a.Kind)
	assert.Equal(t, int64(3), a.Size)
	sum := sha256.Sum256([]byte("abc"))
	assert.Equal(t, hex.EncodeToString(sum[:]), a.Hash)

	sub, ok := tree.Nodes["sub"]
	require.True(t, ok)
	assert.Equal(t, types.NodeDir, sub.Kind)
	_, ok = tree.Nodes["sub/b.md"]
	assert.True(t, ok, "nested file paths use forward slashes")
}

func TestBuildSkips(t *testing.T) {
	t.Run("symlinks and ignored names", func(t *testing.T) {
		fs := &fakeFS{
			dirs: map[string][]fsys.Entry{
				"/r": {
					file("keep.py", 1),
					{Name: "link.py", IsSymlink: true},
					dir("node_modules"),
					dir(".git"),
					dir("custom"),
				},
			},
			files: map[string][]byte{
				"/r/keep.py": []byte("x"),
			},
		}

		tree, err := NewBuilder(fs, []string{"custom"}, nil).Build("/r")
		require.NoError(t, err)

		assert.Contains(t, tree.Nodes, "keep.py")
		assert.NotContains(t, tree.Nodes, "link.py")
		assert.NotContains(t, tree.Nodes, "node_modules")
		assert.NotContains(t, tree.Nodes, ".git")
		assert.NotContains(t, tree.Nodes, "custom")
	})

	t.Run("unreadable file", func(t *testing.T) {
		fs := &fakeFS{
			dirs: map[string][]fsys.Entry{
				"/r": {file("ok.py", 1), file("bad.py", 1)},
			},
			files: map[string][]byte{
				"/r/ok.py": []byte("x"),
			},
			readErr: map[string]error{
				"/r/bad.py": errors.New("permission denied"),
			},
		}

		tree, err := NewBuilder(fs, nil, nil).Build("/r")
		require.NoError(t, err)
		assert.Contains(t, tree.Nodes, "ok.py")
		assert.NotContains(t, tree.Nodes, "bad.py")
	})

	t.Run("missing root", func(t *testing.T) {
		fs := &fakeFS{dirs: map[string][]fsys.Entry{}}
		_, err := NewBuilder(fs, nil, nil).Build("/gone")
		assert.Error(t, err)
	})
}

func TestBuildSkipContentAffectsHash(t *testing.T) {
	// Two trees identical except for an ignored entry must hash equal.
	with := &fakeFS{
		dirs: map[string][]fsys.Entry{
			"/r":      {file("a.py", 1), dir(".git")},
			"/r/.git": {file("HEAD", 3)},
		},
		files: map[string][]byte{
			"/r/a.py":      []byte("x"),
			"/r/.git/HEAD": []byte("ref"),
		},
	}
	without := &fakeFS{
		dirs: map[string][]fsys.Entry{
			"/r": {file("a.py", 1)},
		},
		files: map[string][]byte{"/r/a.py": []byte("x")},
	}

	t1, err := NewBuilder(with, nil, nil).Build("/r")
	require.NoError(t, err)
	t2, err := NewBuilder(without, nil, nil).Build("/r")
	require.NoError(t, err)
	assert.Equal(t, t2.RootHash, t1.RootHash)
}

func TestBuildOS(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmp, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "main.py"), []byte("print(1)\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "pkg", "util.py"), []byte("x = 1\n"), 0o644))

	b := NewBuilder(fsys.NewOS(), nil, nil)

	first, err := b.Build(tmp)
	require.NoError(t, err)
	second, err := b.Build(tmp)
	require.NoError(t, err)
	assert.Equal(t, first.RootHash, second.RootHash)

	require.NoError(t, os.WriteFile(filepath.Join(tmp, "main.py"), []byte("print(2)\n"), 0o644))
	third, err := b.Build(tmp)
	require.NoError(t, err)
	assert.NotEqual(t, first.RootHash, third.RootHash, "content change must surface in root hash")

	diff := Diff(first, third)
	assert.Equal(t, []string{"main.py"}, diff.Changed)
	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Deleted)
}

func TestDiff(t *testing.T) {
	prev := &types.HashTree{
		RootHash: "r1",
		Nodes: map[string]types.FlatNode{
			".":          {Path: ".", Hash: "r1", Kind: types.NodeDir},
			"stay.py":    {Path: "stay.py", Hash: "h1", Kind: types.NodeFile},
			"change.py":  {Path: "change.py", Hash: "h2", Kind: types.NodeFile},
			"gone.py":    {Path: "gone.py", Hash: "h3", Kind: types.NodeFile},
			"moving-dir": {Path: "moving-dir", Hash: "d1", Kind: types.NodeDir},
		},
	}
	curr := &types.HashTree{
		RootHash: "r2",
		Nodes: map[string]types.FlatNode{
			".":         {Path: ".", Hash: "r2", Kind: types.NodeDir},
			"stay.py":   {Path: "stay.py", Hash: "h1", Kind: types.NodeFile},
			"change.py": {Path: "change.py", Hash: "h2x", Kind: types.NodeFile},
			"new.py":    {Path: "new.py", Hash: "h4", Kind: types.NodeFile},
			"other-dir": {Path: "other-dir", Hash: "d2", Kind: types.NodeDir},
		},
	}

	t.Run("classifies files only", func(t *testing.T) {
		diff := Diff(prev, curr)
		assert.Equal(t, []string{"new.py"}, diff.Added)
		assert.Equal(t, []string{"change.py"}, diff.Changed)
		assert.Equal(t, []string{"gone.py"}, diff.Deleted)
		assert.True(t, diff.HasChanges())
		assert.Equal(t, 3, diff.Total())
	})

	t.Run("nil prev means everything added", func(t *testing.T) {
		diff := Diff(nil, curr)
		assert.Equal(t, []string{"change.py", "new.py", "stay.py"}, diff.Added)
		assert.Empty(t, diff.Changed)
		assert.Empty(t, diff.Deleted)
	})

	t.Run("identical trees", func(t *testing.T) {
		diff := Diff(prev, prev)
		assert.False(t, diff.HasChanges())
	})
}

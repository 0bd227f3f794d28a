package fsys

import (
	"fmt"
	"io/fs"
	"os"
)

// Entry describes one directory entry.
type Entry struct {
	Name      string
	IsDir     bool
	IsSymlink bool
	Size      int64
}

// FS is the file-system provider consumed by the hash tree builder and the
// snapshot manager.
type FS interface {
	// List returns the entries of dir. Order is not guaranteed.
	List(dir string) ([]Entry, error)
	// ReadFile returns the raw bytes of the file at path.
	ReadFile(path string) ([]byte, error)
	// Stat describes the entry at path without following symlinks.
	Stat(path string) (Entry, error)
}

type osFS struct{}

// NewOS returns the operating-system backed provider.
func NewOS() FS {
	return osFS{}
}

func (osFS) List(dir string) ([]Entry, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		e := Entry{
			Name:      de.Name(),
			IsDir:     de.IsDir(),
			IsSymlink: de.Type()&fs.ModeSymlink != 0,
		}
		if !e.IsDir && !e.IsSymlink {
			if info, err := de.Info(); err == nil {
				e.Size = info.Size()
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (osFS) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	return data, nil
}

func (osFS) Stat(path string) (Entry, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return Entry{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return Entry{
		Name:      info.Name(),
		IsDir:     info.IsDir(),
		IsSymlink: info.Mode()&fs.ModeSymlink != 0,
		Size:      info.Size(),
	}, nil
}

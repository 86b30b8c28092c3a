package filesystems

import (
	"io/fs"
	"iter"
	"time"
)

// FileSystem abstracts the file queries the transformer and the manifest
// loader need, so tests can run against an in-memory tree
type FileSystem interface {
	// ReadFile reads the named file and returns its contents
	ReadFile(name string) ([]byte, error)

	// ReadDir iterates the entries of the named directory in the order the
	// backend yields them; callers must not assume any sorting
	ReadDir(name string) iter.Seq2[DirEntry, error]

	// Stat returns file info, or an error satisfying errors.Is(err, fs.ErrNotExist)
	Stat(name string) (FileInfo, error)

	Join(elem ...string) string
	Base(path string) string
	Dir(path string) string
}

// DirEntry provides information about a directory entry
type DirEntry interface {
	Name() string
	IsDir() bool
	Type() fs.FileMode
	Info() (FileInfo, error)
}

// FileInfo provides information about a file
type FileInfo interface {
	Name() string
	Size() int64
	Mode() fs.FileMode
	ModTime() time.Time
	IsDir() bool
	Sys() any
}

// DirExists reports whether name exists and is a directory
func DirExists(filesystem FileSystem, name string) bool {
	info, err := filesystem.Stat(name)
	return err == nil && info.IsDir()
}

// SubDirs iterates the names of the immediate subdirectories of dir. Listing
// errors end the iteration.
func SubDirs(filesystem FileSystem, dir string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for entry, err := range filesystem.ReadDir(dir) {
			if err != nil {
				return
			}
			if !entry.IsDir() {
				continue
			}
			if !yield(entry.Name()) {
				return
			}
		}
	}
}

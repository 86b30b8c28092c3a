package filesystems

import (
	"fmt"
	"io/fs"
	"iter"
	"path"
	"slices"
	"time"
)

// MemoryFS implements FileSystem over an in-memory tree. Directory listings
// follow insertion order, which lets tests pin the order a real file system
// would yield.
type MemoryFS struct {
	files    map[string][]byte
	dirs     map[string]bool
	children map[string][]string
}

// NewMemoryFS creates a new MemoryFS instance
func NewMemoryFS() *MemoryFS {
	return &MemoryFS{
		files:    make(map[string][]byte),
		dirs:     map[string]bool{".": true, "/": true},
		children: make(map[string][]string),
	}
}

// AddFile adds a file, creating missing parent directories
func (mfs *MemoryFS) AddFile(name string, content []byte) {
	name = path.Clean(name)
	mfs.files[name] = content
	mfs.link(name)
}

// AddDir adds a directory, creating missing parent directories
func (mfs *MemoryFS) AddDir(name string) {
	name = path.Clean(name)
	mfs.dirs[name] = true
	mfs.link(name)
}

// link records name under its parent, walking up until an already known
// ancestor is reached
func (mfs *MemoryFS) link(name string) {
	for {
		parent := path.Dir(name)
		if parent == name {
			return
		}
		child := path.Base(name)
		if slices.Contains(mfs.children[parent], child) {
			return
		}
		mfs.children[parent] = append(mfs.children[parent], child)
		if mfs.dirs[parent] {
			return
		}
		mfs.dirs[parent] = true
		name = parent
	}
}

func (mfs *MemoryFS) ReadFile(name string) ([]byte, error) {
	content, exists := mfs.files[path.Clean(name)]
	if !exists {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return content, nil
}

func (mfs *MemoryFS) ReadDir(name string) iter.Seq2[DirEntry, error] {
	return func(yield func(DirEntry, error) bool) {
		dir := path.Clean(name)
		if !mfs.dirs[dir] {
			yield(nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist})
			return
		}

		for _, child := range mfs.children[dir] {
			info, err := mfs.Stat(path.Join(dir, child))
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			if !yield(memoryDirEntry{info.(memoryFileInfo)}, nil) {
				return
			}
		}
	}
}

func (mfs *MemoryFS) Stat(name string) (FileInfo, error) {
	clean := path.Clean(name)
	if mfs.dirs[clean] {
		return memoryFileInfo{name: path.Base(clean), mode: fs.ModeDir | 0o755}, nil
	}
	if content, ok := mfs.files[clean]; ok {
		return memoryFileInfo{name: path.Base(clean), size: int64(len(content)), mode: 0o644}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

func (mfs *MemoryFS) Join(elem ...string) string {
	return path.Join(elem...)
}

func (mfs *MemoryFS) Base(p string) string {
	return path.Base(p)
}

func (mfs *MemoryFS) Dir(p string) string {
	return path.Dir(p)
}

func (mfs *MemoryFS) String() string {
	return fmt.Sprintf("memfs(%d files, %d dirs)", len(mfs.files), len(mfs.dirs))
}

type memoryDirEntry struct {
	info memoryFileInfo
}

func (e memoryDirEntry) Name() string            { return e.info.name }
func (e memoryDirEntry) IsDir() bool             { return e.info.IsDir() }
func (e memoryDirEntry) Type() fs.FileMode       { return e.info.mode.Type() }
func (e memoryDirEntry) Info() (FileInfo, error) { return e.info, nil }

type memoryFileInfo struct {
	name string
	size int64
	mode fs.FileMode
}

func (fi memoryFileInfo) Name() string       { return fi.name }
func (fi memoryFileInfo) Size() int64        { return fi.size }
func (fi memoryFileInfo) Mode() fs.FileMode  { return fi.mode }
func (fi memoryFileInfo) ModTime() time.Time { return time.Time{} }
func (fi memoryFileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi memoryFileInfo) Sys() any           { return nil }

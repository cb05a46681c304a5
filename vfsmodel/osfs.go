package vfsmodel

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"syscall"

	"github.com/djherbis/times"
	"github.com/pkg/xattr"

	"github.com/layerfs/layerfs/internal/errs"
	"github.com/layerfs/layerfs/pathspec"
	"github.com/layerfs/layerfs/stream"
)

// OSFileSystem opens the host file system directly: regular files,
// directories, and devices under a location. It is the back-end for
// OS-rooted path specs (§4.3, "OS specs open the host filesystem").
type OSFileSystem struct {
	factory *pathspec.Factory
}

// NewOSFileSystem returns the OS back-end. It holds no handles of its own
// (every OS-backed FileEntry opens and closes its own *os.File), so Close
// is a no-op; the resolver still caches it like any other FileSystem.
func NewOSFileSystem(factory *pathspec.Factory) *OSFileSystem {
	return &OSFileSystem{factory: factory}
}

func (fs *OSFileSystem) PathSeparator() string { return string(os.PathSeparator) }

func (fs *OSFileSystem) RootEntry() (FileEntry, error) {
	return fs.EntryAt("/")
}

func (fs *OSFileSystem) EntryBySpec(spec *pathspec.PathSpec) (FileEntry, error) {
	return fs.EntryAt(spec.String("location"))
}

func (fs *OSFileSystem) ExistsBySpec(spec *pathspec.PathSpec) (bool, error) {
	_, err := os.Lstat(spec.String("location"))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errs.BackEndFailure(err)
	}
	return true, nil
}

func (fs *OSFileSystem) JoinPath(segments ...string) string {
	return filepath.Join(segments...)
}

func (fs *OSFileSystem) SplitPath(location string) []string {
	clean := filepath.Clean(location)
	parts := strings.Split(clean, string(os.PathSeparator))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (fs *OSFileSystem) Close() error { return nil }

// EntryAt builds a FileEntry for an absolute host path without requiring a
// full PathSpec, used by RootEntry and by directory iteration.
func (fs *OSFileSystem) EntryAt(location string) (FileEntry, error) {
	info, err := os.Lstat(location)
	if os.IsNotExist(err) {
		return nil, errs.NotFound(location)
	}
	if os.IsPermission(err) {
		return nil, errs.AccessDenied(location)
	}
	if err != nil {
		return nil, errs.BackEndFailure(err)
	}
	return &osEntry{fs: fs, location: location, info: info}, nil
}

type osEntry struct {
	fs       *OSFileSystem
	location string
	info     os.FileInfo
}

func (e *osEntry) Name() string {
	if e.location == "/" {
		return "/"
	}
	return filepath.Base(e.location)
}

func (e *osEntry) PathSpec() *pathspec.PathSpec {
	spec, _ := e.fs.factory.New(pathspec.OS, nil, map[string]any{"location": e.location})
	return spec
}

func (e *osEntry) Parent() (FileEntry, error) {
	if e.location == "/" || e.location == "." {
		return nil, nil
	}
	return e.fs.EntryAt(filepath.Dir(e.location))
}

func (e *osEntry) SubEntries() (EntryIterator, error) {
	if !e.info.IsDir() {
		return nil, errs.InvalidData("'%s' is not a directory", e.location)
	}
	names, err := readDirNames(e.location)
	if err != nil {
		return nil, err
	}
	return &osEntryIterator{fs: e.fs, dir: e.location, names: names}, nil
}

func readDirNames(dir string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, errs.BackEndFailure(err)
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, errs.BackEndFailure(err)
	}
	sort.Strings(names)
	return names, nil
}

type osEntryIterator struct {
	fs    *OSFileSystem
	dir   string
	names []string
	pos   int
}

func (it *osEntryIterator) Next() (FileEntry, error) {
	if it.pos >= len(it.names) {
		return nil, nil
	}
	name := it.names[it.pos]
	it.pos++
	return it.fs.EntryAt(filepath.Join(it.dir, name))
}

func (it *osEntryIterator) Close() error { return nil }

func (e *osEntry) DataStreams() ([]DataStream, error) {
	return []DataStream{{
		Name: "",
		Open: func() (stream.Stream, error) { return e.GetFileObject("") },
	}}, nil
}

func (e *osEntry) Attributes() ([]Attribute, error) {
	if e.info.IsDir() {
		return nil, nil
	}
	names, err := xattr.List(e.location)
	if err != nil {
		// Extended attributes are frequently unsupported or denied;
		// that is not a back-end failure for the entry itself.
		return nil, nil
	}
	attrs := make([]Attribute, 0, len(names))
	for _, name := range names {
		name := name
		attrs = append(attrs, Attribute{
			Name: name,
			Type: AttributeExtended,
			Open: func() (stream.Stream, error) {
				data, err := xattr.Get(e.location, name)
				if err != nil {
					return nil, errs.BackEndFailure(err)
				}
				return newByteStream(data), nil
			},
		})
	}
	return attrs, nil
}

func (e *osEntry) Stat() (*Stat, error) {
	st := &Stat{Size: e.info.Size(), Mode: uint32(e.info.Mode().Perm())}

	switch {
	case e.info.IsDir():
		st.Type = TypeDirectory
	case e.info.Mode()&os.ModeSymlink != 0:
		st.Type = TypeLink
	case e.info.Mode()&os.ModeDevice != 0:
		st.Type = TypeDevice
	case e.info.Mode()&os.ModeSocket != 0:
		st.Type = TypeSocket
	case e.info.Mode()&os.ModeNamedPipe != 0:
		st.Type = TypePipe
	default:
		st.Type = TypeFile
	}

	st.ModifiedTime = e.info.ModTime()

	if sys, ok := e.info.Sys().(*syscall.Stat_t); ok {
		st.Owner = sys.Uid
		st.Group = sys.Gid
		st.Identifier = sys.Ino
		st.NumberLinks = uint32(sys.Nlink)
		if st.Type == TypeDevice {
			st.DeviceNumber = uint64(sys.Rdev)
		}
	}

	if ts, err := times.Stat(e.location); err == nil {
		st.AccessTime = ts.AccessTime()
		st.HasAccessTime = true
		if ts.HasChangeTime() {
			st.ChangeTime = ts.ChangeTime()
			st.HasChangeTime = true
		}
		if ts.HasBirthTime() {
			st.CreationTime = ts.BirthTime()
			st.HasCreateTime = true
		}
	}

	return st, nil
}

func (e *osEntry) LinkTarget() (string, error) {
	if e.info.Mode()&os.ModeSymlink == 0 {
		return "", nil
	}
	target, err := os.Readlink(e.location)
	if err != nil {
		return "", errs.BackEndFailure(err)
	}
	return target, nil
}

func (e *osEntry) GetFileObject(dataStream string) (ReadSeekCloserSizer, error) {
	if dataStream != "" {
		return nil, errs.InvalidData("OS entries have only the default data stream")
	}
	if segments, ok := globRawSegments(e.location); ok {
		return newConcatStream(segments)
	}
	f, err := os.Open(e.location)
	if err != nil {
		return nil, errs.BackEndFailure(err)
	}
	return &osFileStream{file: f, size: e.info.Size()}, nil
}

type osFileStream struct {
	file   *os.File
	size   int64
	cursor int64
}

func (s *osFileStream) Read(p []byte) (int, error) {
	n, err := s.file.Read(p)
	s.cursor += int64(n)
	return n, err
}

func (s *osFileStream) Seek(offset int64, whence int) (int64, error) {
	n, err := s.file.Seek(offset, whence)
	if err == nil {
		s.cursor = n
	}
	return n, err
}

func (s *osFileStream) ReadAt(p []byte, off int64) (int, error) { return s.file.ReadAt(p, off) }

func (s *osFileStream) Close() error          { return s.file.Close() }
func (s *osFileStream) Size() (int64, error)  { return s.size, nil }
func (s *osFileStream) Offset() int64         { return s.cursor }

// rawSegmentPattern matches dd-style split-image naming: "name.001",
// "name.002", etc. (dfvfs raw.GlobPathSpec). EWF's own ".E01"/".e01" family
// is handled by the EWF back-end instead, never by this glob.
var rawSegmentPattern = regexp.MustCompile(`^(.*)\.(\d{3,})$`)

// globRawSegments detects a numbered split-image leader and returns every
// sibling segment in index order, so the OS back-end can transparently
// present their concatenation as one stream.
func globRawSegments(location string) ([]string, bool) {
	dir, base := filepath.Split(location)
	m := rawSegmentPattern.FindStringSubmatch(base)
	if m == nil {
		return nil, false
	}
	prefix := m[1]
	width := len(m[2])

	var segments []string
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s.%0*d", prefix, width, i)
		full := filepath.Join(dir, name)
		if _, err := os.Stat(full); err != nil {
			break
		}
		segments = append(segments, full)
	}
	if len(segments) <= 1 {
		return nil, false
	}
	return segments, true
}

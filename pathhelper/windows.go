// Package pathhelper holds path-spec-adjacent utilities that sit above
// the resolver rather than inside it: Windows path normalization, a
// file-system searcher driven by FindSpec, and a data-slice stream view
// (§4.9).
package pathhelper

import (
	"strings"
	"sync"

	"github.com/layerfs/layerfs/internal/errs"
	"github.com/layerfs/layerfs/vfsmodel"
)

// VolumeTable maps a drive letter ("C:"), a volume GUID ("{GUID}"), or a
// UNC share (`\\server\share`) to the location prefix that addresses it
// on the target file system — the configured map a deployment supplies
// once it knows which volume a path's drive letter or GUID names.
type VolumeTable map[string]string

// CaseInsensitiveFileSystem is an optional vfsmodel.FileSystem capability:
// implement it to tell the Windows resolver to match
// path segments case-insensitively, the way FAT and NTFS do by default.
type CaseInsensitiveFileSystem interface {
	CaseInsensitive() bool
}

// WindowsResolver normalizes the Windows path forms dfvfs's
// windows_path_resolver handles (`C:\…`, `\??\…`, `\\.\…`, `\\?\…`,
// `\\server\share\…`, `\\?\Volume{GUID}\…`, `%ENV%`) into a single
// location on a target vfsmodel.FileSystem.
type WindowsResolver struct {
	Env     map[string]string
	Volumes VolumeTable

	mu         sync.Mutex
	shortNames map[string]map[string]string // per-directory location -> short name -> long name
}

// NewWindowsResolver returns a resolver using volumes for drive/GUID/UNC
// lookups and env for %VAR% substitution.
func NewWindowsResolver(volumes VolumeTable, env map[string]string) *WindowsResolver {
	return &WindowsResolver{
		Volumes:    volumes,
		Env:        env,
		shortNames: make(map[string]map[string]string),
	}
}

// Resolve normalizes raw and walks fs to produce fs's own location syntax.
func (r *WindowsResolver) Resolve(fs vfsmodel.FileSystem, raw string) (string, error) {
	expanded := r.expandEnv(raw)

	prefix, rest, err := splitVolumePrefix(expanded)
	if err != nil {
		return "", err
	}
	root, ok := r.Volumes[prefix]
	if !ok {
		return "", errs.PathSpecError("no volume mapping for '%s'", prefix)
	}

	segments := splitWindowsSegments(rest)
	if len(segments) == 0 {
		return root, nil
	}

	caseInsensitive := false
	if ci, ok := fs.(CaseInsensitiveFileSystem); ok {
		caseInsensitive = ci.CaseInsensitive()
	}

	location := root
	entry, err := walkTo(fs, root)
	if err != nil {
		return "", err
	}

	for _, segment := range segments {
		resolved, err := r.resolveSegment(fs, entry, location, segment, caseInsensitive)
		if err != nil {
			return "", err
		}
		location = fs.JoinPath(location, resolved)
		next, err := entryAtLocation(fs, entry, resolved)
		if err != nil {
			return "", err
		}
		entry = next
	}
	return location, nil
}

// resolveSegment matches one path component against entry's children,
// trying, in order: an exact match, a short-name-cache match (the 8.3
// form dfvfs falls back to for legacy paths), and a case-insensitive
// match when the file system declares it supports one.
func (r *WindowsResolver) resolveSegment(fs vfsmodel.FileSystem, entry vfsmodel.FileEntry, dirLocation, segment string, caseInsensitive bool) (string, error) {
	names, err := r.childNames(fs, entry, dirLocation)
	if err != nil {
		return "", err
	}
	for _, name := range names {
		if name == segment {
			return name, nil
		}
	}
	if long, ok := r.shortNameLookup(dirLocation, segment); ok {
		return long, nil
	}
	if caseInsensitive {
		for _, name := range names {
			if strings.EqualFold(name, segment) {
				return name, nil
			}
		}
	}
	return "", errs.NotFound(fs.JoinPath(dirLocation, segment))
}

func (r *WindowsResolver) childNames(fs vfsmodel.FileSystem, entry vfsmodel.FileEntry, dirLocation string) ([]string, error) {
	it, err := entry.SubEntries()
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var names []string
	shorts := make(map[string]string)
	for {
		child, err := it.Next()
		if err != nil {
			return nil, err
		}
		if child == nil {
			break
		}
		name := child.Name()
		names = append(names, name)
		shorts[shortName(name)] = name
	}
	r.mu.Lock()
	r.shortNames[dirLocation] = shorts
	r.mu.Unlock()
	return names, nil
}

func (r *WindowsResolver) shortNameLookup(dirLocation, segment string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cache, ok := r.shortNames[dirLocation]
	if !ok {
		return "", false
	}
	long, ok := cache[strings.ToUpper(segment)]
	return long, ok
}

// shortName derives an 8.3-style candidate from a long name, the same
// shape legacy tools expect when the format itself carries no distinct
// short-name attribute to read instead.
func shortName(long string) string {
	base, ext := long, ""
	if i := strings.LastIndexByte(long, '.'); i > 0 {
		base, ext = long[:i], long[i+1:]
	}
	if len(base) <= 8 && len(ext) <= 3 {
		return strings.ToUpper(long)
	}
	if len(base) > 6 {
		base = base[:6]
	}
	if len(ext) > 3 {
		ext = ext[:3]
	}
	short := base + "~1"
	if ext != "" {
		short += "." + ext
	}
	return strings.ToUpper(short)
}

func (r *WindowsResolver) expandEnv(path string) string {
	var out strings.Builder
	i := 0
	for i < len(path) {
		if path[i] == '%' {
			if end := strings.IndexByte(path[i+1:], '%'); end >= 0 {
				name := path[i+1 : i+1+end]
				if val, ok := r.Env[strings.ToUpper(name)]; ok {
					out.WriteString(val)
					i += end + 2
					continue
				}
			}
		}
		out.WriteByte(path[i])
		i++
	}
	return out.String()
}

// splitVolumePrefix recognizes every prefix form named in §4.9 and
// returns its volume key (what VolumeTable is keyed on) plus the
// remaining backslash-separated path.
func splitVolumePrefix(path string) (prefix, rest string, err error) {
	switch {
	case strings.HasPrefix(path, `\\?\Volume{`):
		end := strings.IndexByte(path[len(`\\?\Volume`):], '}')
		if end < 0 {
			return "", "", errs.PathSpecError("malformed volume GUID path '%s'", path)
		}
		guidEnd := len(`\\?\Volume`) + end + 1
		return path[len(`\\?\Volume`):guidEnd], strings.TrimPrefix(path[guidEnd:], `\`), nil
	case strings.HasPrefix(path, `\??\`):
		return splitDriveRest(path[len(`\??\`):])
	case strings.HasPrefix(path, `\\.\`):
		return splitDriveRest(path[len(`\\.\`):])
	case strings.HasPrefix(path, `\\?\`):
		return splitDriveRest(path[len(`\\?\`):])
	case strings.HasPrefix(path, `\\`):
		return splitUNC(path)
	default:
		return splitDriveRest(path)
	}
}

func splitDriveRest(path string) (string, string, error) {
	if len(path) < 2 || path[1] != ':' {
		return "", "", errs.PathSpecError("missing drive letter in '%s'", path)
	}
	drive := strings.ToUpper(path[:2])
	return drive, strings.TrimPrefix(path[2:], `\`), nil
}

func splitUNC(path string) (string, string, error) {
	parts := strings.SplitN(strings.TrimPrefix(path, `\\`), `\`, 3)
	if len(parts) < 2 {
		return "", "", errs.PathSpecError("malformed UNC path '%s'", path)
	}
	share := `\\` + parts[0] + `\` + parts[1]
	rest := ""
	if len(parts) == 3 {
		rest = parts[2]
	}
	return share, rest, nil
}

func splitWindowsSegments(rest string) []string {
	var out []string
	for _, s := range strings.Split(rest, `\`) {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// walkTo locates location by walking down from fs's root, matching each
// segment exactly — used only to find the configured volume root itself,
// which VolumeTable's caller is expected to supply in fs's own syntax.
func walkTo(fs vfsmodel.FileSystem, location string) (vfsmodel.FileEntry, error) {
	entry, err := fs.RootEntry()
	if err != nil {
		return nil, err
	}
	for _, segment := range fs.SplitPath(location) {
		entry, err = entryAtLocation(fs, entry, segment)
		if err != nil {
			return nil, err
		}
	}
	return entry, nil
}

func entryAtLocation(fs vfsmodel.FileSystem, current vfsmodel.FileEntry, name string) (vfsmodel.FileEntry, error) {
	it, err := current.SubEntries()
	if err != nil {
		return nil, err
	}
	defer it.Close()
	for {
		child, err := it.Next()
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, errs.NotFound(name)
		}
		if child.Name() == name {
			return child, nil
		}
	}
}

package fsbridge

import "strings"

// Backend paths always use '/' as the separator regardless of host OS, so
// these helpers operate on raw strings rather than path/filepath.

// splitBase splits a backend path into its directory part (without trailing
// separator) and base name. A path with no separator has an empty dir.
func splitBase(p string) (dir, base string) {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}

// joinSlash joins a directory and a child name with a single separator.
func joinSlash(dir, name string) string {
	dir = strings.TrimRight(dir, "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// relSlash returns p relative to root, with no leading separator. It assumes
// root is a prefix of p, which holds for paths produced by Backend.Find on
// the same root.
func relSlash(root, p string) string {
	return strings.TrimLeft(strings.TrimPrefix(p, root), "/")
}

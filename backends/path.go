package backends

import "strings"

// Backend paths are slash-separated regardless of host OS.

func joinSlash(dir, name string) string {
	dir = strings.TrimRight(dir, "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func splitBase(p string) (dir, base string) {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}

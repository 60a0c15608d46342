package task

import (
	"path"
	"strings"
)

// FilenameFromPath returns the last element of a slash-separated path without
// any "?query" suffix, e.g. "images/tree.png?123" gives "tree.png".
func FilenameFromPath(path string) string {
	start, end := 0, len(path)
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			start = i + 1
			break
		}
		if path[i] == '?' && end == len(path) {
			end = i
		}
	}
	return path[start:end]
}

// DirectoriesFromPath returns everything up to and including the last slash,
// or "" when path has no directory part.
func DirectoriesFromPath(path string) string {
	i := strings.LastIndexByte(path, '/')
	return path[:i+1]
}

// ImageFileFromPath returns the cleaned directories and file name of p with
// the "?query" suffix dropped, e.g. "a//b/tree.png?1" gives "a/b/tree.png".
func ImageFileFromPath(p string) string {
	return path.Clean(DirectoriesFromPath(p) + FilenameFromPath(p))
}

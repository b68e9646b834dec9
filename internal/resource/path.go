package resource

import "strings"

// Root is the path of the tree root.
const Root = "/"

// Path helpers for slash-delimited resource paths. Paths are absolute and
// never end in a slash, except for the root itself.

// Clean normalizes p to an absolute path without a trailing slash.
// E.g. "moduleA/css/" → "/moduleA/css", "" → "/"
func Clean(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return Root
	}
	return "/" + p
}

// Join appends name to the parent path.
func Join(parent, name string) string {
	if parent == Root || parent == "" {
		return "/" + name
	}
	return parent + "/" + name
}

// Base returns the last segment of p, or "" for the root.
func Base(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Dir returns the parent path of p. The parent of a top-level path is the root.
func Dir(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i <= 0 {
		return Root
	}
	return p[:i]
}

// TopLevelSegment returns the first path component under the root when p has
// a deeper component, i.e. the text between the first and second slash.
// E.g. "/moduleA/css/site.css" → ("moduleA", true); "/moduleA" → ("", false).
func TopLevelSegment(p string) (string, bool) {
	if !strings.HasPrefix(p, "/") {
		return "", false
	}
	rest := p[1:]
	i := strings.IndexByte(rest, '/')
	if i < 0 {
		return "", false
	}
	return rest[:i], true
}

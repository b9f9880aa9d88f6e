package common

import "strings"

// PathComponent is a single non-empty, slash-free path element. "." and ".."
// are not valid components.
type PathComponent string

// FilePath is an ordered sequence of components. The empty sequence denotes
// the root.
type FilePath []PathComponent

// SplitPath parses the internal ("/"-joined) representation of a path into
// its components, rejecting anything that cannot round-trip: empty
// components, ".", "..", a leading slash, or an embedded NUL byte.
func SplitPath(internal string) (FilePath, error) {
	if internal == "" {
		return FilePath{}, nil
	}
	if strings.HasPrefix(internal, "/") {
		return nil, &PathError{Reason: "absolute path where internal path expected", Path: internal}
	}
	if strings.IndexByte(internal, 0) >= 0 {
		return nil, &PathError{Reason: "embedded NUL byte", Path: internal}
	}
	parts := strings.Split(internal, "/")
	ret := make(FilePath, 0, len(parts))
	for _, p := range parts {
		switch p {
		case "":
			return nil, &PathError{Reason: "empty path component", Path: internal}
		case ".":
			return nil, &PathError{Reason: "'.' path component", Path: internal}
		case "..":
			return nil, &PathError{Reason: "'..' path component", Path: internal}
		}
		if strings.IndexByte(p, '\\') >= 0 {
			return nil, &PathError{Reason: "backslash in path component", Path: internal}
		}
		ret = append(ret, PathComponent(p))
	}
	return ret, nil
}

// JoinPath renders components back to the internal "/"-joined form.
func JoinPath(p FilePath) string {
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = string(c)
	}
	return strings.Join(parts, "/")
}

func (p FilePath) String() string {
	return JoinPath(p)
}

func (p FilePath) IsRoot() bool {
	return len(p) == 0
}

// Parent returns the path's parent and its final component. Calling Parent
// on the root path panics: callers must check IsRoot first.
func (p FilePath) Parent() (FilePath, PathComponent) {
	if p.IsRoot() {
		panic("common: Parent of root path")
	}
	return p[:len(p)-1], p[len(p)-1]
}

// Child appends a component, returning a new path (p is never mutated).
func (p FilePath) Child(c PathComponent) FilePath {
	ret := make(FilePath, len(p)+1)
	copy(ret, p)
	ret[len(p)] = c
	return ret
}

// IsPrefixOf reports whether b's component sequence starts with a's.
func (a FilePath) IsPrefixOf(b FilePath) bool {
	if len(a) > len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Equal reports whether two paths have identical components.
func (a FilePath) Equal(b FilePath) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Compare orders paths lexicographically, component by component, bytewise
// within a component, shorter-is-smaller on a shared prefix. This is the
// order cset serialization relies on for byte-identical canonical output.
func (a FilePath) Compare(b FilePath) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// ComparePaths is Compare as a free function, handy as a sort.Slice less-func
// building block for pairs that carry a path alongside other data.
func ComparePaths(a, b FilePath) int {
	return a.Compare(b)
}

package common

import (
	"fmt"
	"sort"

	"golang.org/x/xerrors"
)

// PathError reports a malformed path: empty component, "..", an absolute
// path where an internal one was expected, and the like.
type PathError struct {
	Reason string
	Path   string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("bad path %q: %s", e.Path, e.Reason)
}

// RosterErrorKind enumerates the ways a roster operation can fail.
type RosterErrorKind int

const (
	RosterNodeNotFound RosterErrorKind = iota
	RosterWrongKind
	RosterNameCollision
	RosterDropAttached
	RosterReattachOldLocation
	RosterNotDirectory
	RosterNotDetached
	RosterDetachRoot
)

func (k RosterErrorKind) String() string {
	switch k {
	case RosterNodeNotFound:
		return "node not found"
	case RosterWrongKind:
		return "wrong node kind"
	case RosterNameCollision:
		return "child name collision"
	case RosterDropAttached:
		return "cannot drop an attached node"
	case RosterReattachOldLocation:
		return "cannot re-attach a node at its old location"
	case RosterNotDirectory:
		return "parent is not a directory"
	case RosterNotDetached:
		return "node is not detached"
	case RosterDetachRoot:
		return "cannot detach the root node"
	default:
		return "roster error"
	}
}

// RosterError reports a violation of roster-level invariants.
type RosterError struct {
	Kind RosterErrorKind
	Path string
}

func (e *RosterError) Error() string {
	if e.Path == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %q", e.Kind.String(), e.Path)
}

// CsetInvalid reports a cset that is not normalized, or whose application
// against a particular roster is inapplicable.
type CsetInvalid struct {
	Path   string
	Reason string
}

func (e *CsetInvalid) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid cset: %s", e.Reason)
	}
	return fmt.Sprintf("invalid cset at %q: %s", e.Path, e.Reason)
}

// ContentMismatch reports a delta (patch) whose precondition file id does
// not match the file's current content.
type ContentMismatch struct {
	Path     string
	Expected FileId
	Actual   FileId
}

func (e *ContentMismatch) Error() string {
	return fmt.Sprintf("content mismatch at %q: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// MergeConflictKind enumerates the distinct conflict shapes the merge
// engine can report.
type MergeConflictKind int

const (
	ConflictContent MergeConflictKind = iota
	ConflictDuplicateName
	ConflictOrphanedNode
	ConflictInvalidName
	ConflictAttr
	ConflictMissingRoot
	ConflictMultipleNames
	ConflictDirectoryLoop
)

func (k MergeConflictKind) String() string {
	switch k {
	case ConflictContent:
		return "content"
	case ConflictDuplicateName:
		return "duplicate-name"
	case ConflictOrphanedNode:
		return "orphaned-node"
	case ConflictInvalidName:
		return "invalid-name"
	case ConflictAttr:
		return "attr"
	case ConflictMissingRoot:
		return "missing-root"
	case ConflictMultipleNames:
		return "multiple-names"
	case ConflictDirectoryLoop:
		return "directory-loop"
	default:
		return "conflict"
	}
}

// MergeConflict is returned as structured data, never raised: the merge
// engine reports every conflict it finds in one pass rather than stopping
// at the first one.
type MergeConflict struct {
	Kind    MergeConflictKind
	Path    string
	Detail  string
	NodeIds []NodeId
}

func (c MergeConflict) Error() string {
	if c.Detail == "" {
		return fmt.Sprintf("%s conflict at %q", c.Kind, c.Path)
	}
	return fmt.Sprintf("%s conflict at %q: %s", c.Kind, c.Path, c.Detail)
}

// SortConflicts orders conflicts by path then kind, the stable presentation
// order required by spec ("every other error kind yields a one-line
// explanation"; conflicts specifically must sort by path, then kind).
func SortConflicts(cs []MergeConflict) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Path != cs[j].Path {
			return cs[i].Path < cs[j].Path
		}
		return cs[i].Kind < cs[j].Kind
	})
}

// SerializationError reports a malformed basic_io stanza, with enough
// position information to point a user at the offending line.
type SerializationError struct {
	Line, Column int
	Expected     string
	Got          string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization error at %d:%d: expected %s, got %q", e.Line, e.Column, e.Expected, e.Got)
}

// HashMismatch is fatal: a roster reconstructed from a revision did not hash
// to the revision's declared manifest id.
type HashMismatch struct {
	Claimed string
	Actual  string
}

func (e *HashMismatch) Error() string {
	return fmt.Sprintf("hash mismatch: claimed %s, actual %s", e.Claimed, e.Actual)
}

// IntegrityAssertion signals an internal invariant violation. It is fatal:
// the core never tries to recover from one, it aborts the operation.
type IntegrityAssertion struct {
	Message string
}

func (e *IntegrityAssertion) Error() string {
	return "integrity assertion failed: " + e.Message
}

// Assert panics with an IntegrityAssertion if cond is false. It is the
// core's only use of panic: every recoverable error is returned as a
// structured value instead. Callers at process boundaries (the engine
// facade) may recover it and report a fatal structured error instead of
// crashing the process.
func Assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(&IntegrityAssertion{Message: fmt.Sprintf(format, args...)})
	}
}

// NewSerializationError is a convenience constructor used by the basic_io
// tokenizer.
func NewSerializationError(line, col int, expected, got string) error {
	return xerrors.Errorf("%w", &SerializationError{Line: line, Column: col, Expected: expected, Got: got})
}

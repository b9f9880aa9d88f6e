// Package restrict implements the Restriction filter (spec §4.8): the
// path-based mask every tree-walking operation uses to limit the portion
// of a roster it touches. Grounded on the monotone restrictions.hh header
// (original_source): a restriction carries included/excluded path sets and
// a depth bound, and is validated against the roster(s) it will be applied
// to before use.
package restrict

import (
	"sort"

	"github.com/ironhold/revgraph/common"
	"github.com/ironhold/revgraph/roster"
)

// IncludeRule mirrors restriction::include_rules: whether an empty
// included-paths list means "include nothing explicitly listed" (explicit)
// or "include everything" (implicit, the default every read-only command
// uses).
type IncludeRule int

const (
	ImplicitIncludes IncludeRule = iota
	ExplicitIncludes
)

// IgnorePredicate reports whether a path should be treated as ignored
// (e.g. the workspace collaborator's ignore-file rules); the restriction
// itself is agnostic to what drives it.
type IgnorePredicate func(common.FilePath) bool

// AlwaysFalse is the default ignore predicate: nothing is ignored.
func AlwaysFalse(common.FilePath) bool { return false }

// Restriction filters nodes/paths of a roster by inclusion/exclusion path
// lists and a depth bound (-1 = unlimited), matching spec §4.8.
type Restriction struct {
	IncludedPaths []common.FilePath
	ExcludedPaths []common.FilePath
	Depth         int
	Rule          IncludeRule
	Ignore        IgnorePredicate
}

// New builds a restriction with sane defaults (unlimited depth, implicit
// includes, nothing ignored).
func New(included, excluded []common.FilePath) *Restriction {
	return &Restriction{
		IncludedPaths: included,
		ExcludedPaths: excluded,
		Depth:         -1,
		Rule:          ImplicitIncludes,
		Ignore:        AlwaysFalse,
	}
}

func (r *Restriction) IsEmpty() bool {
	return len(r.IncludedPaths) == 0 && len(r.ExcludedPaths) == 0 && r.Depth == -1
}

// Validate checks every listed include/exclude path names an existing node
// in at least one of the given rosters (spec §4.8: "validated against a
// roster (or a pair of rosters for diff)"). Pass a single roster for a
// non-diff restriction, or two for a from/to diff restriction.
func (r *Restriction) Validate(rosters ...*roster.Roster) error {
	check := func(p common.FilePath) error {
		for _, ros := range rosters {
			if _, err := ros.GetNode(p); err == nil {
				return nil
			}
		}
		return &common.PathError{Reason: "restriction path does not exist in any given roster", Path: p.String()}
	}
	for _, p := range r.IncludedPaths {
		if err := check(p); err != nil {
			return err
		}
	}
	for _, p := range r.ExcludedPaths {
		if err := check(p); err != nil {
			return err
		}
	}
	return nil
}

// IncludesPath reports whether path passes the restriction: some included
// path is a prefix of it (or the rule is implicit and nothing is listed),
// no excluded path is a prefix, the ignore predicate doesn't reject it, and
// its depth from the nearest matching included root is within bound.
func (r *Restriction) IncludesPath(p common.FilePath) bool {
	if r.Ignore != nil && r.Ignore(p) {
		return false
	}
	for _, ex := range r.ExcludedPaths {
		if ex.IsPrefixOf(p) {
			return false
		}
	}
	if len(r.IncludedPaths) == 0 {
		return r.Rule == ImplicitIncludes
	}
	best := -1
	for _, in := range r.IncludedPaths {
		if in.IsPrefixOf(p) {
			if d := len(p) - len(in); best == -1 || d < best {
				best = d
			}
		}
	}
	if best == -1 {
		return false
	}
	return r.Depth < 0 || best <= r.Depth
}

// Includes reports whether the node with the given id, as positioned in
// ros, passes the restriction (spec §6 "restriction::includes(roster,
// node_id) -> bool").
func (r *Restriction) Includes(ros *roster.Roster, id common.NodeId) bool {
	p, err := ros.PathOf(id)
	if err != nil {
		return false
	}
	return r.IncludesPath(p)
}

// MakeRestrictedRoster builds a roster r such that r[p] == to[p] for every
// path the mask includes, and r[p] == from[p] otherwise (spec §4.8): the
// "sliding control" between two revisions that produces a third revision
// anywhere in between. from and to must share the same root id.
func MakeRestrictedRoster(from, to *roster.Roster, mask *Restriction) (*roster.Roster, error) {
	common.Assert(from.Root() == to.Root(), "MakeRestrictedRoster: from/to rosters have different roots")

	type pick struct {
		node *roster.Node
		path common.FilePath
	}
	picks := map[common.NodeId]pick{}
	seenPaths := map[string]bool{}

	choose := func(path common.FilePath) {
		key := path.String()
		if seenPaths[key] {
			return
		}
		seenPaths[key] = true
		toNode, toErr := to.GetNode(path)
		fromNode, fromErr := from.GetNode(path)
		var node *roster.Node
		switch {
		case mask.IncludesPath(path) && toErr == nil:
			node = toNode
		case fromErr == nil:
			node = fromNode
		default:
			return
		}
		picks[node.Id] = pick{node: node, path: path}
	}

	var walkErr error
	if err := to.Walk(func(path common.FilePath, _ *roster.Node) error {
		choose(path)
		return nil
	}); err != nil {
		walkErr = err
	}
	if err := from.Walk(func(path common.FilePath, _ *roster.Node) error {
		choose(path)
		return nil
	}); err != nil {
		walkErr = err
	}
	if walkErr != nil {
		return nil, walkErr
	}

	ids := make([]common.NodeId, 0, len(picks))
	for id := range picks {
		ids = append(ids, id)
	}
	// Path order is already topological: a path's parent prefix always
	// compares smaller than the path itself, so ancestors are attached
	// before their descendants in this single pass.
	sort.Slice(ids, func(i, j int) bool { return picks[ids[i]].path.Compare(picks[ids[j]].path) < 0 })

	b := roster.NewBuilder(from.Root())
	if root, ok := picks[from.Root()]; ok {
		b.SetRootAttrs(root.node.Attrs)
	}
	for _, id := range ids {
		if id == from.Root() {
			continue
		}
		pk := picks[id]
		_, name := pk.path.Parent()
		var err error
		if pk.node.IsDir() {
			err = b.AddDir(id, pk.node.Parent, name, pk.node.Attrs)
		} else {
			err = b.AddFile(id, pk.node.Parent, name, pk.node.Content, pk.node.Attrs)
		}
		if err != nil {
			return nil, err
		}
	}
	return b.Roster(), nil
}

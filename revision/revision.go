// Package revision implements the Revision type (spec §3 "Revision"): a
// set of parent edges, each carrying a cset, plus the manifest id the
// resulting roster must hash to. It also implements the manifest/revision
// hashing and canonical serialization that make revision ids interoperable
// across implementations (spec §4.7).
package revision

import (
	"sort"

	"github.com/ironhold/revgraph/basicio"
	"github.com/ironhold/revgraph/common"
	"github.com/ironhold/revgraph/cset"
)

// Edge is one parent edge of a revision: the cset that transforms the
// parent's roster into this revision's roster. A root revision has exactly
// one edge, whose Parent is common.NullRevisionId; a merge has exactly two.
type Edge struct {
	Parent common.RevisionId
	Cset   *cset.Cset
}

// Revision is the immutable DAG node: the manifest id it declares plus one
// or two parent edges (spec §3 "Revision").
type Revision struct {
	NewManifest common.ManifestId
	Edges       []Edge
}

func (r *Revision) IsRoot() bool {
	return len(r.Edges) == 1 && r.Edges[0].Parent == common.NullRevisionId
}

func (r *Revision) IsMerge() bool {
	return len(r.Edges) == 2
}

// sortedEdges returns Edges ordered by parent revision id, the order
// canonical text requires (spec §4.7 "for each edge, sorted by parent
// revision id").
func (r *Revision) sortedEdges() []Edge {
	ret := append([]Edge(nil), r.Edges...)
	sort.Slice(ret, func(i, j int) bool { return ret[i].Parent.String() < ret[j].Parent.String() })
	return ret
}

// WriteCanonical renders the revision's canonical basic_io text (spec
// §4.7): a format_version stanza, a new_manifest stanza, then per edge (in
// parent-id order) an old_revision stanza followed by that edge's cset
// stanzas.
func (r *Revision) WriteCanonical() ([]byte, error) {
	stanzas := []basicio.Stanza{
		{basicio.NewLine("format_version", basicio.String("1"))},
		{basicio.NewLine("new_manifest", basicio.Hex(r.NewManifest.Bytes()))},
	}
	for _, e := range r.sortedEdges() {
		stanzas = append(stanzas, basicio.Stanza{
			basicio.NewLine("old_revision", basicio.Hex(e.Parent.Bytes())),
		})
		csBytes, err := e.Cset.WriteCanonical()
		if err != nil {
			return nil, err
		}
		csStanzas, err := basicio.ParseStanzas(csBytes)
		if err != nil {
			return nil, err
		}
		stanzas = append(stanzas, csStanzas...)
	}
	return basicio.WriteStanzas(stanzas)
}

// HashRevision computes the revision id: the content hash of the
// revision's canonical text (spec §3, §4.7).
func (r *Revision) HashRevision() (common.RevisionId, error) {
	data, err := r.WriteCanonical()
	if err != nil {
		return common.RevisionId{}, err
	}
	return common.HashRevisionId(data), nil
}

// ParseCanonical reconstructs a Revision from its canonical text.
func ParseCanonical(data []byte) (*Revision, error) {
	stanzas, err := basicio.ParseStanzas(data)
	if err != nil {
		return nil, err
	}
	if len(stanzas) < 2 {
		return nil, &common.SerializationError{Expected: "format_version and new_manifest stanzas"}
	}
	fv, ok := stanzas[0].Find("format_version")
	if !ok {
		return nil, &common.SerializationError{Expected: "format_version"}
	}
	if v, _ := fv.Str(0); v != "1" {
		return nil, &common.SerializationError{Expected: "format_version \"1\"", Got: v}
	}
	manifestLine, ok := stanzas[1].Find("new_manifest")
	if !ok {
		return nil, &common.SerializationError{Expected: "new_manifest"}
	}
	manifestBytes, ok := manifestLine.HexBytes(0)
	if !ok || len(manifestBytes) != common.HashSize {
		return nil, &common.SerializationError{Expected: "40-hex-char manifest id"}
	}
	var manifest common.ManifestId
	copy(manifest[:], manifestBytes)

	r := &Revision{NewManifest: manifest}

	var curParent *common.RevisionId
	var curCsetStanzas []basicio.Stanza
	flush := func() error {
		if curParent == nil {
			return nil
		}
		csBytes, err := basicio.WriteStanzas(curCsetStanzas)
		if err != nil {
			return err
		}
		cs, err := cset.ParseCanonical(csBytes)
		if err != nil {
			return err
		}
		r.Edges = append(r.Edges, Edge{Parent: *curParent, Cset: cs})
		return nil
	}

	for _, st := range stanzas[2:] {
		if line, ok := st.Find("old_revision"); ok {
			if err := flush(); err != nil {
				return nil, err
			}
			raw, ok := line.HexBytes(0)
			if !ok || len(raw) != common.HashSize {
				return nil, &common.SerializationError{Expected: "40-hex-char revision id"}
			}
			var rid common.RevisionId
			copy(rid[:], raw)
			curParent = &rid
			curCsetStanzas = nil
			continue
		}
		if curParent == nil {
			return nil, &common.SerializationError{Expected: "old_revision"}
		}
		curCsetStanzas = append(curCsetStanzas, st)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return r, nil
}

package roster

import (
	"github.com/ironhold/revgraph/basicio"
	"github.com/ironhold/revgraph/common"
)

// WriteCanonical renders the roster to basic_io stanzas in DFS path order
// (spec §4.7). When includeMarks is non-nil it is consulted to append the
// marking stanzas inline (print_local_parts = true); pass nil to get the
// structural-only text whose hash is the manifest id.
func (r *Roster) WriteCanonical(includeMarks func(common.NodeId) []basicio.Line) ([]byte, error) {
	stanzas := []basicio.Stanza{
		{basicio.NewLine("format_version", basicio.String("1"))},
	}
	var walkErr error
	_ = r.Walk(func(path common.FilePath, n *Node) error {
		var st basicio.Stanza
		if n.IsDir() {
			st = append(st, basicio.NewLine("dir", basicio.String(common.JoinPath(path))))
		} else {
			st = append(st, basicio.NewLine("file", basicio.String(common.JoinPath(path))))
			st = append(st, basicio.NewLine("content", basicio.Hex(n.Content.Bytes())))
		}
		for _, k := range n.Attrs.SortedKeys() {
			a := n.Attrs[k]
			if a.Live {
				st = append(st, basicio.NewLine("attr", basicio.String(string(k)), basicio.String(string(a.Value))))
			} else {
				st = append(st, basicio.NewLine("dormant_attr", basicio.String(string(k))))
			}
		}
		if includeMarks != nil {
			st = append(st, includeMarks(n.Id)...)
		}
		stanzas = append(stanzas, st)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return basicio.WriteStanzas(stanzas)
}

// HashManifest computes the manifest id: the content hash of the roster's
// canonical text without marking data (spec §3, §4.7).
func (r *Roster) HashManifest() (common.ManifestId, error) {
	data, err := r.WriteCanonical(nil)
	if err != nil {
		return common.ManifestId{}, err
	}
	return common.HashManifestId(data), nil
}

// ParseCanonical reconstructs a Roster from its canonical text. idSource
// mints the NodeId for every node encountered, in DFS order, matching the
// order the original roster's node ids would have been assigned on a fresh
// read (the ids are not themselves part of the canonical text: only the
// tree shape, names, content and attrs are).
func ParseCanonical(data []byte, idSource common.NodeIdSource) (*Roster, error) {
	stanzas, err := basicio.ParseStanzas(data)
	if err != nil {
		return nil, err
	}
	if len(stanzas) == 0 {
		return nil, &common.SerializationError{Expected: "format_version stanza"}
	}
	fv, ok := stanzas[0].Find("format_version")
	if !ok {
		return nil, &common.SerializationError{Expected: "format_version"}
	}
	if v, _ := fv.Str(0); v != "1" {
		return nil, &common.SerializationError{Expected: "format_version \"1\"", Got: v}
	}

	r := &Roster{nodes: common.NewCowNodeMap[*Node](), oldLocations: map[common.NodeId]oldLocation{}}
	rootSet := false

	for _, st := range stanzas[1:] {
		var path common.FilePath
		var n *Node
		id := idSource.Next()

		if dirLine, ok := st.Find("dir"); ok {
			pstr, _ := dirLine.Str(0)
			path, err = common.SplitPath(pstr)
			if err != nil {
				return nil, err
			}
			n = NewDirNode(id, NullNodeId, "")
		} else if fileLine, ok := st.Find("file"); ok {
			pstr, _ := fileLine.Str(0)
			path, err = common.SplitPath(pstr)
			if err != nil {
				return nil, err
			}
			contentLine, ok := st.Find("content")
			if !ok {
				return nil, &common.SerializationError{Expected: "content"}
			}
			raw, ok := contentLine.HexBytes(0)
			if !ok || len(raw) != common.HashSize {
				return nil, &common.SerializationError{Expected: "40-hex-char content id"}
			}
			var fid common.FileId
			copy(fid[:], raw)
			n = NewFileNode(id, NullNodeId, "", fid)
		} else {
			return nil, &common.SerializationError{Expected: "dir or file"}
		}

		for _, line := range st {
			switch line.Symbol {
			case "attr":
				k, _ := line.Str(0)
				v, _ := line.Str(1)
				n.SetAttr(common.AttrKey(k), common.AttrValue(v))
			case "dormant_attr":
				k, _ := line.Str(0)
				n.ClearAttr(common.AttrKey(k))
			}
		}

		if path.IsRoot() {
			n.Parent = NullNodeId
			n.Name = ""
			r.root = id
			rootSet = true
			r.nodes.Set(id, n)
			continue
		}

		parentPath, name := path.Parent()
		parent, err := r.GetNode(parentPath)
		if err != nil {
			return nil, &common.SerializationError{Expected: "parent directory for " + common.JoinPath(path)}
		}
		parentClone, err := r.GetNodeForUpdate(parent.Id)
		if err != nil {
			return nil, err
		}
		n.Parent = parent.Id
		n.Name = name
		parentClone.SetChild(name, id)
		r.putNode(parentClone)
		r.putNode(n)
	}

	if !rootSet {
		return nil, &common.SerializationError{Expected: "a \"dir \\\"\\\"\" root stanza"}
	}
	return r, nil
}

package cset

import (
	"github.com/ironhold/revgraph/basicio"
	"github.com/ironhold/revgraph/common"
)

// WriteCanonical renders a cset as basic_io stanzas: the seven sections of
// spec §3 in fixed order, one stanza per entry (spec §4.7). cs should
// already be Canonicalize()d; this function does not sort.
func (c *Cset) WriteCanonical() ([]byte, error) {
	var stanzas []basicio.Stanza

	for _, p := range c.NodesDeleted {
		stanzas = append(stanzas, basicio.Stanza{
			basicio.NewLine("delete", basicio.String(common.JoinPath(p))),
		})
	}
	for _, rn := range c.NodesRenamed {
		stanzas = append(stanzas, basicio.Stanza{
			basicio.NewLine("rename", basicio.String(common.JoinPath(rn.Src))),
			basicio.NewLine("to", basicio.String(common.JoinPath(rn.Dst))),
		})
	}
	for _, p := range c.DirsAdded {
		stanzas = append(stanzas, basicio.Stanza{
			basicio.NewLine("add_dir", basicio.String(common.JoinPath(p))),
		})
	}
	for _, fa := range c.FilesAdded {
		stanzas = append(stanzas, basicio.Stanza{
			basicio.NewLine("add_file", basicio.String(common.JoinPath(fa.Path))),
			basicio.NewLine("content", basicio.Hex(fa.Content.Bytes())),
		})
	}
	for _, d := range c.Deltas {
		stanzas = append(stanzas, basicio.Stanza{
			basicio.NewLine("patch", basicio.String(common.JoinPath(d.Path))),
			basicio.NewLine("from", basicio.Hex(d.Old.Bytes())),
			basicio.NewLine("to", basicio.Hex(d.New.Bytes())),
		})
	}
	for _, ac := range c.AttrsCleared {
		stanzas = append(stanzas, basicio.Stanza{
			basicio.NewLine("clear_attr", basicio.String(common.JoinPath(ac.Path)), basicio.String(string(ac.Key))),
		})
	}
	for _, as := range c.AttrsSet {
		stanzas = append(stanzas, basicio.Stanza{
			basicio.NewLine("set_attr", basicio.String(common.JoinPath(as.Path)), basicio.String(string(as.Key))),
			basicio.NewLine("value", basicio.String(string(as.Value))),
		})
	}

	return basicio.WriteStanzas(stanzas)
}

// ParseCanonical parses a cset from its canonical basic_io text. It accepts
// stanzas in any order (the fixed order is a writer guarantee, not a reader
// requirement) and does not run Validate; callers that need a normalized,
// checked cset should call Validate themselves.
func ParseCanonical(data []byte) (*Cset, error) {
	stanzas, err := basicio.ParseStanzas(data)
	if err != nil {
		return nil, err
	}
	c := New()

	for _, st := range stanzas {
		switch {
		case has(st, "delete"):
			p, err := pathOf(st, "delete")
			if err != nil {
				return nil, err
			}
			c.NodesDeleted = append(c.NodesDeleted, p)

		case has(st, "rename"):
			src, err := pathOf(st, "rename")
			if err != nil {
				return nil, err
			}
			toLine, ok := st.Find("to")
			if !ok {
				return nil, &common.SerializationError{Expected: "to"}
			}
			toStr, _ := toLine.Str(0)
			dst, err := common.SplitPath(toStr)
			if err != nil {
				return nil, err
			}
			c.NodesRenamed = append(c.NodesRenamed, Rename{Src: src, Dst: dst})

		case has(st, "add_dir"):
			p, err := pathOf(st, "add_dir")
			if err != nil {
				return nil, err
			}
			c.DirsAdded = append(c.DirsAdded, p)

		case has(st, "add_file"):
			p, err := pathOf(st, "add_file")
			if err != nil {
				return nil, err
			}
			fid, err := hexFileId(st, "content")
			if err != nil {
				return nil, err
			}
			c.FilesAdded = append(c.FilesAdded, FileAdd{Path: p, Content: fid})

		case has(st, "patch"):
			p, err := pathOf(st, "patch")
			if err != nil {
				return nil, err
			}
			oldId, err := hexFileId(st, "from")
			if err != nil {
				return nil, err
			}
			newId, err := hexFileId(st, "to")
			if err != nil {
				return nil, err
			}
			c.Deltas = append(c.Deltas, Delta{Path: p, Old: oldId, New: newId})

		case has(st, "clear_attr"):
			line, _ := st.Find("clear_attr")
			pstr, _ := line.Str(0)
			key, _ := line.Str(1)
			p, err := common.SplitPath(pstr)
			if err != nil {
				return nil, err
			}
			c.AttrsCleared = append(c.AttrsCleared, AttrClear{Path: p, Key: common.AttrKey(key)})

		case has(st, "set_attr"):
			line, _ := st.Find("set_attr")
			pstr, _ := line.Str(0)
			key, _ := line.Str(1)
			p, err := common.SplitPath(pstr)
			if err != nil {
				return nil, err
			}
			valueLine, ok := st.Find("value")
			if !ok {
				return nil, &common.SerializationError{Expected: "value"}
			}
			val, _ := valueLine.Str(0)
			c.AttrsSet = append(c.AttrsSet, AttrSet{Path: p, Key: common.AttrKey(key), Value: common.AttrValue(val)})

		default:
			return nil, &common.SerializationError{Expected: "a recognized cset stanza"}
		}
	}
	return c, nil
}

func has(st basicio.Stanza, symbol string) bool {
	_, ok := st.Find(symbol)
	return ok
}

func pathOf(st basicio.Stanza, symbol string) (common.FilePath, error) {
	line, _ := st.Find(symbol)
	s, _ := line.Str(0)
	return common.SplitPath(s)
}

func hexFileId(st basicio.Stanza, symbol string) (common.FileId, error) {
	line, ok := st.Find(symbol)
	if !ok {
		return common.FileId{}, &common.SerializationError{Expected: symbol}
	}
	raw, ok := line.HexBytes(0)
	if !ok || len(raw) != common.HashSize {
		return common.FileId{}, &common.SerializationError{Expected: "40-hex-char content id"}
	}
	var fid common.FileId
	copy(fid[:], raw)
	return fid, nil
}

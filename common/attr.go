package common

// AttrKey and AttrValue are opaque byte-string-backed types; the engine
// never interprets their contents, only compares and serializes them.
type AttrKey string
type AttrValue string

// Attr is one entry of a node's attribute map. A dormant attr is one that
// was cleared: the key is retained with Live == false so that the clear
// itself can participate in later three-way merges (a dormant marker beats
// "key absent" when reconciling history).
type Attr struct {
	Live  bool
	Value AttrValue
}

// AttrMap is a node's full set of attributes, keyed by AttrKey. Dormant
// entries are kept in the map (Live == false) rather than deleted.
type AttrMap map[AttrKey]Attr

// Clone returns a shallow copy sufficient for copy-on-write unsharing: Attr
// values are small immutable structs, so copying the map is enough.
func (m AttrMap) Clone() AttrMap {
	if m == nil {
		return nil
	}
	ret := make(AttrMap, len(m))
	for k, v := range m {
		ret[k] = v
	}
	return ret
}

// SortedKeys returns the map's keys in bytewise order, the order attribute
// stanzas are serialized in.
func (m AttrMap) SortedKeys() []AttrKey {
	keys := make([]AttrKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// Equal reports whether two attr maps have identical live/dormant state for
// every key.
func (m AttrMap) Equal(other AttrMap) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		ov, ok := other[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

package common

// Concat is a small byte-concatenation helper in the same spirit as the
// teacher's common.Concat, trimmed to the shapes this module actually needs.
func Concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	ret := make([]byte, 0, n)
	for _, p := range parts {
		ret = append(ret, p...)
	}
	return ret
}

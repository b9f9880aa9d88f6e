// Package store implements a reference common.Database collaborator backed
// by github.com/iotaledger/hive.go/kvstore — the same abstract KVStore the
// teacher's hiveadaptor.go bridges to its trie's KVReader/KVWriter
// interface (SPEC_FULL.md §3 "Reference storage adaptor"). It is one
// worked implementation of the §6 Database contract, useful for tests and
// as an example for real collaborators; the core itself never imports it.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/iotaledger/hive.go/kvstore"

	"github.com/ironhold/revgraph/common"
	"github.com/ironhold/revgraph/revision"
)

// notFound reports whether err is the kvstore's "no such key" sentinel, as
// opposed to a real I/O failure. The parents, children, heads and roster
// lookups treat the two differently: a missing key is a normal "not cached"
// outcome, not an error to wrap and propagate. GetFile and GetRevisionBytes
// return a missing key as an error.
func notFound(err error) bool {
	return err != nil && errors.Is(err, kvstore.ErrKeyNotFound)
}

var (
	prefixFile     = []byte{'f'}
	prefixRevision = []byte{'r'}
	prefixRoster   = []byte{'R'}
	prefixMarking  = []byte{'M'}
	prefixParents  = []byte{'p'}
	prefixChildren = []byte{'c'}
	prefixHeads    = []byte{'h'}
	prefixCert     = []byte{'C'}
)

// HiveDatabase adapts a kvstore.KVStore to common.Database, in the same
// spirit as the teacher's HiveKVStoreAdaptor: key composition by prefix,
// panicking on an I/O error the teacher's adaptor didn't expect either, but
// wrapped here so the methods return errors instead (the core's collaborator
// contract returns errors; the teacher's trie.go.KVReader/KVWriter do not).
type HiveDatabase struct {
	kv kvstore.KVStore
}

func NewHiveDatabase(kv kvstore.KVStore) *HiveDatabase {
	return &HiveDatabase{kv: kv}
}

func key(prefix []byte, parts ...[]byte) []byte {
	return common.Concat(append([][]byte{prefix}, parts...)...)
}

func (d *HiveDatabase) GetFile(id common.FileId) ([]byte, error) {
	v, err := d.kv.Get(key(prefixFile, id.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("store: get file %s: %w", id, err)
	}
	return v, nil
}

func (d *HiveDatabase) PutFile(data []byte) (common.FileId, error) {
	id := common.HashFileId(data)
	if err := d.kv.Set(key(prefixFile, id.Bytes()), data); err != nil {
		return common.FileId{}, fmt.Errorf("store: put file: %w", err)
	}
	return id, nil
}

func (d *HiveDatabase) GetRevisionBytes(id common.RevisionId) ([]byte, error) {
	v, err := d.kv.Get(key(prefixRevision, id.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("store: get revision %s: %w", id, err)
	}
	return v, nil
}

func (d *HiveDatabase) PutRevisionBytes(id common.RevisionId, data []byte) error {
	if err := d.kv.Set(key(prefixRevision, id.Bytes()), data); err != nil {
		return fmt.Errorf("store: put revision %s: %w", id, err)
	}
	return d.recordParents(id, data)
}

// recordParents parses a revision's canonical text for its old_revision
// edges and records the parent/children edges they name, so Parents and
// Children don't have to re-parse revision bytes on every call.
func (d *HiveDatabase) recordParents(id common.RevisionId, data []byte) error {
	parsed, err := revision.ParseCanonical(data)
	if err != nil {
		return fmt.Errorf("store: parse revision %s: %w", id, err)
	}
	parents := make([]common.RevisionId, 0, len(parsed.Edges))
	for _, e := range parsed.Edges {
		if e.Parent != common.NullRevisionId {
			parents = append(parents, e.Parent)
		}
	}
	if err := d.kv.Set(key(prefixParents, id.Bytes()), encodeRevisionIds(parents)); err != nil {
		return fmt.Errorf("store: record parent edges: %w", err)
	}
	for _, p := range parents {
		existing, _ := d.Children(p)
		existing = appendUniqueRevisionId(existing, id)
		if err := d.kv.Set(key(prefixChildren, p.Bytes()), encodeRevisionIds(existing)); err != nil {
			return fmt.Errorf("store: record child edge: %w", err)
		}
	}
	return nil
}

func (d *HiveDatabase) Parents(id common.RevisionId) ([]common.RevisionId, error) {
	v, err := d.kv.Get(key(prefixParents, id.Bytes()))
	if notFound(err) || v == nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get parents %s: %w", id, err)
	}
	return decodeRevisionIds(v)
}

func (d *HiveDatabase) Children(id common.RevisionId) ([]common.RevisionId, error) {
	v, err := d.kv.Get(key(prefixChildren, id.Bytes()))
	if notFound(err) || v == nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get children %s: %w", id, err)
	}
	return decodeRevisionIds(v)
}

func (d *HiveDatabase) Heads(branch string) ([]common.RevisionId, error) {
	v, err := d.kv.Get(key(prefixHeads, []byte(branch)))
	if notFound(err) || v == nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get heads %q: %w", branch, err)
	}
	return decodeRevisionIds(v)
}

// SetHeads replaces the recorded head set for a branch; a real netsync
// collaborator calls this as revisions arrive, which is out of the core's
// scope but needed for this reference adaptor to be useful standalone.
func (d *HiveDatabase) SetHeads(branch string, heads []common.RevisionId) error {
	sort.Slice(heads, func(i, j int) bool { return heads[i].String() < heads[j].String() })
	return d.kv.Set(key(prefixHeads, []byte(branch)), encodeRevisionIds(heads))
}

func (d *HiveDatabase) GetRosterBytes(id common.RevisionId) (rosterText, markingText []byte, ok bool, err error) {
	rosterText, err = d.kv.Get(key(prefixRoster, id.Bytes()))
	if notFound(err) || rosterText == nil {
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, fmt.Errorf("store: get roster %s: %w", id, err)
	}
	markingText, err = d.kv.Get(key(prefixMarking, id.Bytes()))
	if err != nil && !notFound(err) {
		return nil, nil, false, fmt.Errorf("store: get marking %s: %w", id, err)
	}
	return rosterText, markingText, true, nil
}

func (d *HiveDatabase) PutRosterBytes(id common.RevisionId, rosterText, markingText []byte) error {
	if err := d.kv.Set(key(prefixRoster, id.Bytes()), rosterText); err != nil {
		return fmt.Errorf("store: put roster %s: %w", id, err)
	}
	if err := d.kv.Set(key(prefixMarking, id.Bytes()), markingText); err != nil {
		return fmt.Errorf("store: put marking %s: %w", id, err)
	}
	return nil
}

func (d *HiveDatabase) CertStore() common.CertStore {
	return &hiveCertStore{kv: d.kv}
}

type hiveCertStore struct {
	kv kvstore.KVStore
}

func (c *hiveCertStore) GetCerts(id common.RevisionId) ([]common.Cert, error) {
	prefix := key(prefixCert, id.Bytes())
	var ret []common.Cert
	err := c.kv.Iterate(prefix, func(k kvstore.Key, v kvstore.Value) bool {
		cert, decodeErr := decodeCert(v)
		if decodeErr != nil {
			return true
		}
		cert.Revision = id
		if keyId, ok := certKeyIdFromKey(k, prefix); ok {
			cert.Key = keyId
		}
		ret = append(ret, cert)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("store: get certs %s: %w", id, err)
	}
	return ret, nil
}

// certKeyIdFromKey recovers the KeyId component from a prefixCert key, which
// is laid out as prefix | revision bytes | key bytes | name bytes.
func certKeyIdFromKey(k kvstore.Key, prefix []byte) (common.KeyId, bool) {
	rest := k[len(prefix):]
	if len(rest) < common.HashSize {
		return common.KeyId{}, false
	}
	var keyId common.KeyId
	copy(keyId[:], rest[:common.HashSize])
	return keyId, true
}

func (c *hiveCertStore) PutCert(cert common.Cert) error {
	k := key(prefixCert, cert.Revision.Bytes(), cert.Key.Bytes(), []byte(cert.Name))
	return c.kv.Set(k, encodeCert(cert))
}

// --- small encodings for the composite values above; none of this is part
// of the canonical basic_io wire format (spec §4.7), which governs only
// roster/cset/revision/cert *text*. These are purely this adaptor's private
// on-disk layout.

func encodeRevisionIds(ids []common.RevisionId) []byte {
	buf := make([]byte, 0, 4+len(ids)*common.HashSize)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(ids)))
	buf = append(buf, lenBuf[:]...)
	for _, id := range ids {
		buf = append(buf, id.Bytes()...)
	}
	return buf
}

func decodeRevisionIds(data []byte) ([]common.RevisionId, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("store: truncated revision id list")
	}
	n := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	if len(data) != int(n)*common.HashSize {
		return nil, fmt.Errorf("store: corrupt revision id list")
	}
	ret := make([]common.RevisionId, n)
	for i := range ret {
		copy(ret[i][:], data[i*common.HashSize:(i+1)*common.HashSize])
	}
	return ret, nil
}

func appendUniqueRevisionId(ids []common.RevisionId, id common.RevisionId) []common.RevisionId {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func encodeCert(c common.Cert) []byte {
	buf := make([]byte, 0)
	buf = appendLenPrefixed(buf, []byte(c.Name))
	buf = appendLenPrefixed(buf, c.Value)
	buf = appendLenPrefixed(buf, c.Signature)
	return buf
}

func decodeCert(data []byte) (common.Cert, error) {
	name, rest, err := readLenPrefixed(data)
	if err != nil {
		return common.Cert{}, err
	}
	value, rest, err := readLenPrefixed(rest)
	if err != nil {
		return common.Cert{}, err
	}
	sig, _, err := readLenPrefixed(rest)
	if err != nil {
		return common.Cert{}, err
	}
	return common.Cert{Name: string(name), Value: value, Signature: sig}, nil
}

func appendLenPrefixed(buf, data []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, data...)
}

func readLenPrefixed(data []byte) (value, rest []byte, err error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("store: truncated length-prefixed field")
	}
	n := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	if len(data) < int(n) {
		return nil, nil, fmt.Errorf("store: truncated length-prefixed field body")
	}
	return data[:n], data[n:], nil
}

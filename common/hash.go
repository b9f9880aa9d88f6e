// Package common holds the primitive types shared by every other package in
// this module: content hashes, paths, attribute keys/values, node ids, the
// structured error taxonomy, and the collaborator interfaces the core calls
// out through (Database, NodeIdSource, ConflictResolver, Observer).
package common

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// HashSize is the fixed digest length used throughout the engine: a 160-bit
// blake2b hash, serialized as 40 lowercase hex characters.
const HashSize = 20

// ContentHash is a fixed-size content hash. The zero value (all-zero bytes)
// is the "null" hash.
type ContentHash [HashSize]byte

// FileId, ManifestId, RevisionId and KeyId are tagged flavors of ContentHash.
// They are distinct Go types so the compiler catches a file id handed to a
// function expecting a revision id, even though the underlying bytes are the
// same shape.
type (
	FileId     ContentHash
	ManifestId ContentHash
	RevisionId ContentHash
	KeyId      ContentHash
)

// NullRevisionId is the distinguished parent id of a root revision.
var NullRevisionId RevisionId

// NullFileId is the distinguished "no content" file id.
var NullFileId FileId

func (h ContentHash) IsNull() bool {
	return h == ContentHash{}
}

func (h ContentHash) String() string {
	return hex.EncodeToString(h[:])
}

func (h ContentHash) Bytes() []byte {
	return h[:]
}

func (id FileId) IsNull() bool     { return ContentHash(id).IsNull() }
func (id FileId) String() string   { return ContentHash(id).String() }
func (id FileId) Bytes() []byte    { return ContentHash(id).Bytes() }
func (id ManifestId) IsNull() bool { return ContentHash(id).IsNull() }
func (id ManifestId) String() string {
	return ContentHash(id).String()
}
func (id ManifestId) Bytes() []byte { return ContentHash(id).Bytes() }
func (id RevisionId) IsNull() bool  { return ContentHash(id).IsNull() }
func (id RevisionId) String() string {
	return ContentHash(id).String()
}
func (id RevisionId) Bytes() []byte { return ContentHash(id).Bytes() }
func (id KeyId) IsNull() bool       { return ContentHash(id).IsNull() }
func (id KeyId) String() string     { return ContentHash(id).String() }
func (id KeyId) Bytes() []byte      { return ContentHash(id).Bytes() }

// HashBytes computes the canonical content hash of data.
func HashBytes(data []byte) ContentHash {
	hash, err := blake2b.New(HashSize, nil)
	if err != nil {
		// only occurs if HashSize is out of blake2b's supported range,
		// which is a programming error, not a runtime condition.
		panic(err)
	}
	if _, err := hash.Write(data); err != nil {
		panic(err)
	}
	var ret ContentHash
	copy(ret[:], hash.Sum(nil))
	return ret
}

func HashFileId(data []byte) FileId         { return FileId(HashBytes(data)) }
func HashManifestId(data []byte) ManifestId { return ManifestId(HashBytes(data)) }
func HashRevisionId(data []byte) RevisionId { return RevisionId(HashBytes(data)) }

// ParseContentHash decodes a 40-hex-character string into a ContentHash.
func ParseContentHash(s string) (ContentHash, error) {
	var ret ContentHash
	b, err := hex.DecodeString(s)
	if err != nil {
		return ret, fmt.Errorf("malformed content hash %q: %w", s, err)
	}
	if len(b) != HashSize {
		return ret, fmt.Errorf("malformed content hash %q: want %d bytes, got %d", s, HashSize, len(b))
	}
	copy(ret[:], b)
	return ret, nil
}

func ParseFileId(s string) (FileId, error) {
	h, err := ParseContentHash(s)
	return FileId(h), err
}

func ParseManifestId(s string) (ManifestId, error) {
	h, err := ParseContentHash(s)
	return ManifestId(h), err
}

func ParseRevisionId(s string) (RevisionId, error) {
	h, err := ParseContentHash(s)
	return RevisionId(h), err
}

func ParseKeyId(s string) (KeyId, error) {
	h, err := ParseContentHash(s)
	return KeyId(h), err
}

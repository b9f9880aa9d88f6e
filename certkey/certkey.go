// Package certkey implements signature verification for the cert store
// collaborator named in spec §6 ("a cert store"). Cert semantics
// themselves are out of the core's scope (spec §1), but the core names
// KeyId as a primitive and the Database collaborator interface names a
// cert store, so this package gives a CertStore implementation a concrete
// way to check a cert's signature against its claimed KeyId before handing
// the assertion to the core — the same kind of abstract-group commitment
// work the teacher's models/trie_kzg_bn256 package does with
// go.dedis.ch/kyber/v3, here used for Schnorr signatures over edwards25519
// instead of KZG polynomial commitments (see SPEC_FULL.md §3).
package certkey

import (
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/group/edwards25519"
	"go.dedis.ch/kyber/v3/sign/schnorr"

	"github.com/ironhold/revgraph/common"
)

// suite is the fixed group+hash pairing every key and signature in this
// package is computed over, mirroring the single fixed curve the teacher's
// KZG model commits to (models/trie_kzg_bn256 uses bn256; certs use
// edwards25519, the curve kyber's schnorr package is built against).
var suite = edwards25519.NewBlakeSHA256Ed25519()

// KeyPair is a Schnorr signing keypair. GenerateKeyPair is provided for
// tests and tools; the core itself never generates keys.
type KeyPair struct {
	Private kyber.Scalar
	Public  kyber.Point
}

func GenerateKeyPair() (*KeyPair, error) {
	priv := suite.Scalar().Pick(suite.RandomStream())
	pub := suite.Point().Mul(priv, nil)
	return &KeyPair{Private: priv, Public: pub}, nil
}

// KeyIdOf computes the KeyId a public key is addressed by: the content
// hash of its marshaled bytes, the same "hash the marshaled commitment"
// pattern the teacher's vectorCommitment.AsKey() uses.
func KeyIdOf(pub kyber.Point) (common.KeyId, error) {
	b, err := pub.MarshalBinary()
	if err != nil {
		return common.KeyId{}, err
	}
	return common.KeyId(common.HashBytes(b)), nil
}

// Sign produces a Schnorr signature of msg under priv.
func Sign(priv kyber.Scalar, msg []byte) ([]byte, error) {
	return schnorr.Sign(suite, priv, msg)
}

// Verify checks that sig is a valid Schnorr signature of msg under the
// public key addressed by keyId. The caller (a CertStore implementation)
// supplies the actual public key bytes it has on file for keyId; this
// function only checks that they hash to the claimed id and that the
// signature verifies, so a cert can't be accepted under a KeyId whose
// public key the verifier doesn't actually hold.
func Verify(keyId common.KeyId, pubKeyBytes []byte, msg, sig []byte) error {
	pub := suite.Point()
	if err := pub.UnmarshalBinary(pubKeyBytes); err != nil {
		return err
	}
	gotId, err := KeyIdOf(pub)
	if err != nil {
		return err
	}
	if gotId != keyId {
		return &common.HashMismatch{Claimed: keyId.String(), Actual: gotId.String()}
	}
	return schnorr.Verify(suite, pub, msg, sig)
}

// VerifyCert checks a common.Cert's signature against its claimed KeyId,
// given the public key bytes a CertStore holds for that key. The message
// signed is the cert's (revision || name || value) concatenation, matching
// the teacher's common.Concat convention for building hash/sign inputs.
func VerifyCert(c common.Cert, pubKeyBytes []byte) error {
	msg := common.Concat(c.Revision.Bytes(), []byte(c.Name), c.Value)
	return Verify(c.Key, pubKeyBytes, msg, c.Signature)
}

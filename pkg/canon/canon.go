// Package canon computes the content-addressed digest used to decide
// whether a local artifact and the one recorded in state have diverged.
//
// Every kind's Hash method funnels its property bag through Digest, which
// serializes via RFC 8785 JSON Canonicalization (sorted keys at every depth,
// no HTML escaping) before hashing, so two semantically identical property
// bags built in different key order always produce the same digest.
package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Digest returns "sha256:<hex>" over the RFC 8785 canonical JSON encoding
// of v. v must be JSON-marshalable (typically a map[string]interface{}
// property bag).
func Digest(v interface{}) (string, error) {
	b, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// Canonicalize returns the RFC 8785 canonical JSON bytes for v. v is first
// marshaled with the standard encoder (so struct tags are honored), then
// re-serialized into RFC 8785 form: keys sorted lexicographically at every
// depth, no HTML escaping, minimal number formatting.
func Canonicalize(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canon: marshal: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canon: jcs transform: %w", err)
	}
	return out, nil
}

// HashBytes returns "sha256:<hex>" over raw bytes, with no canonicalization.
// Used when the content is already a fixed byte stream (e.g. a policy.xml
// fragment read verbatim from disk).
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

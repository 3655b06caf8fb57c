// Package canonicalize implements the Canonical Codec: a byte-stable JSON
// encoding (RFC 8785 JSON Canonicalization Scheme, with an additional
// 2-space-indented "pretty" form for on-disk snapshots) plus the SHA-256
// hashing every identity computation in this module flows through.
package canonicalize

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/gowebpki/jcs"
	"golang.org/x/text/unicode/norm"
)

// JCS returns the compact RFC 8785 canonical JSON representation of v:
// map keys sorted lexicographically by UTF-8 bytes, no HTML escaping,
// numbers preserved exactly when passed as json.Number, strings
// NFC-normalized before encoding.
//
// v is first round-tripped through the standard library so that struct
// field tags are respected, then re-encoded recursively so that ordering
// and escaping follow RFC 8785 rather than Go's defaults.
func JCS(v interface{}) ([]byte, error) {
	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: pre-marshal failed: %w", err)
	}

	var generic interface{}
	decoder := json.NewDecoder(bytes.NewReader(intermediate))
	decoder.UseNumber()
	if err := decoder.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonicalize: intermediate decode failed: %w", err)
	}

	return marshalRecursive(generic)
}

// EncodeCompact produces the frozen compact canonical form used as the
// hash target for inputs_hash (SPEC_FULL §4.1, §4.5): no indentation,
// "," and ":" separators, sorted keys. It delegates the final transform
// to the gowebpki/jcs RFC 8785 implementation so the compact contract
// this module relies on for identity computation is backed by the same
// library the rest of the ecosystem uses, not only a hand-rolled pass.
func EncodeCompact(v interface{}) ([]byte, error) {
	intermediate, err := JCS(v)
	if err != nil {
		return nil, err
	}
	transformed, err := jcs.Transform(intermediate)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: jcs transform failed: %w", err)
	}
	return transformed, nil
}

// EncodePretty produces the 2-space-indented, trailing-newline canonical
// form snapshots are written to disk in (SPEC_FULL §4.1, §4.4). Key
// ordering and string normalization are identical to the compact form;
// only whitespace differs.
func EncodePretty(v interface{}) ([]byte, error) {
	compact, err := JCS(v)
	if err != nil {
		return nil, err
	}

	var generic interface{}
	decoder := json.NewDecoder(bytes.NewReader(compact))
	decoder.UseNumber()
	if err := decoder.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonicalize: pretty re-decode failed: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(generic); err != nil {
		return nil, fmt.Errorf("canonicalize: pretty encode failed: %w", err)
	}
	// json.Encoder already appends exactly one trailing newline.
	return buf.Bytes(), nil
}

// Hash returns the "sha256:"-prefixed hex digest of raw bytes. All
// identity-bearing hashes in this module (snapshot hashes, inputs_hash,
// artifact hashes) are produced by this function.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// HashBytes returns the bare hex digest (no "sha256:" prefix) of raw
// bytes, kept for callers that compose their own prefixed identifiers.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CanonicalHash returns the "sha256:"-prefixed hex digest of the compact
// canonical JSON representation of v.
func CanonicalHash(v interface{}) (string, error) {
	b, err := EncodeCompact(v)
	if err != nil {
		return "", err
	}
	return Hash(b), nil
}

// JCSString returns the compact canonical form as a string.
func JCSString(v interface{}) (string, error) {
	data, err := JCS(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func marshalRecursive(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // RFC 8785 forbids HTML escaping.

	switch t := v.(type) {
	case nil:
		return []byte("null"), nil
	case bool:
		if t {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case json.Number:
		if err := rejectNonFinite(t); err != nil {
			return nil, err
		}
		return []byte(t.String()), nil
	case string:
		normalized := norm.NFC.String(t)
		if err := enc.Encode(normalized); err != nil {
			return nil, err
		}
		// json.Encoder appends a trailing newline; trim it back off.
		return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
	case []interface{}:
		buf.Reset()
		buf.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := marshalRecursive(elem)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case map[string]interface{}:
		buf.Reset()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := marshalRecursive(norm.NFC.String(k))
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')

			vb, err := marshalRecursive(t[k])
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		// Fallback for types outside the json.Number/string/map/slice set
		// (e.g. a bare float64 when UseNumber wasn't applied upstream).
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
	}
}

func rejectNonFinite(n json.Number) error {
	switch n.String() {
	case "NaN", "Infinity", "-Infinity":
		return fmt.Errorf("canonicalize: non-finite number %q is not representable", n.String())
	}
	return nil
}

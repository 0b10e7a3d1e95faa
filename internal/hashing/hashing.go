// Package hashing computes the deterministic ChartSpec content hash and the
// combined cache key, per spec.md §4.1.
//
// encoding/json already sorts map[string]X keys when marshaling a typed Go
// map, but a ChartSpec's filter Values and any future free-form payload can
// carry arbitrary map[string]interface{} trees decoded from caller JSON —
// those must be re-normalised explicitly rather than relying on marshal
// internals. Canonicalize decodes to a generic tree and re-serialises it
// with keys sorted at every level, mirroring hashing.py's recursive
// _normalize.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
)

// Canonicalize renders spec as a minimal JSON document with map keys sorted
// at every nesting level and no insignificant whitespace. Two specs that
// differ only in map-key order or whitespace produce byte-identical output;
// specs that differ in the order of semantically-ordered sequences (measures,
// filter conditions) do not, because those are Go slices and their order is
// preserved as encountered.
func Canonicalize(spec chartspec.ChartSpec) ([]byte, error) {
	raw, err := json.Marshal(spec)
	if err != nil {
		return nil, err
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}

	normalized := normalize(generic)
	return json.Marshal(normalized)
}

// normalize recursively rebuilds maps as sorted-key ordered structures so
// that json.Marshal's (already-sorted) map[string]interface{} encoding is not
// the only thing keeping us deterministic — this also protects against
// future callers feeding in pre-built map[string]interface{} trees directly.
func normalize(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(orderedMap, 0, len(keys))
		for _, k := range keys {
			out = append(out, kv{key: k, value: normalize(v[k])})
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}

// kv and orderedMap implement json.Marshaler to emit object keys in a fixed
// (sorted) order regardless of Go's map iteration randomisation.
type kv struct {
	key   string
	value interface{}
}

type orderedMap []kv

func (m orderedMap) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 64)
	buf = append(buf, '{')
	for i, pair := range m {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyJSON, err := json.Marshal(pair.key)
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyJSON...)
		buf = append(buf, ':')
		valJSON, err := json.Marshal(pair.value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, valJSON...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// SpecHash returns the hex-encoded SHA-256 digest of the canonical form of
// spec. The digest value is part of the cache-key invariant under test, so a
// faster non-cryptographic hash (xxhash, pulled in transitively by go-redis'
// ring client) is not a substitute here even though it is already present in
// the module graph.
func SpecHash(spec chartspec.ChartSpec) (string, error) {
	canon, err := Canonicalize(spec)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// CacheKey combines the routed table name with the spec's content hash, per
// spec.md §4.1: CacheKey(spec, table) = table + ":" + hex(hash(canonical(spec))).
func CacheKey(spec chartspec.ChartSpec, table string) (string, error) {
	h, err := SpecHash(spec)
	if err != nil {
		return "", err
	}
	return table + ":" + h, nil
}

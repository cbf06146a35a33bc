package changes

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes a canonical JSON rendering of v (object keys sorted at
// every depth). It detects content changes; it is not collision resistant and
// must not be used for integrity checks.
func Fingerprint(v any) (string, error) {
	raw, ok := v.(json.RawMessage)
	if !ok {
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		raw = encoded
	}
	canonical, err := Canonicalize(raw)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(xxhash.Sum64(canonical), 36), nil
}

// SameContent reports whether two JSON payloads are equal after
// canonicalization. Payloads that fail to parse are compared byte-wise.
func SameContent(a, b json.RawMessage) bool {
	fa, errA := Fingerprint(a)
	fb, errB := Fingerprint(b)
	if errA != nil || errB != nil {
		return bytes.Equal(a, b)
	}
	return fa == fb
}

// Canonicalize re-encodes JSON with sorted object keys and no insignificant
// whitespace. Numbers keep their original textual form.
func Canonicalize(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(encoded)
	}
	return nil
}

package tags

import "strings"

// Map is a typed view over a resource's key/value tags.
//
// Cloud APIs hand tags back as loose lists of {Key,Value} pairs; Map gives
// callers a single Lookup capability instead of duck-typed dict walking.
type Map struct {
	kv map[string]string
}

// Pair is one raw tag as returned by a cloud API.
type Pair struct {
	Key   string
	Value string
}

// FromPairs builds a Map from raw API pairs. Later duplicates win.
func FromPairs(pairs []Pair) Map {
	kv := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if p.Key == "" {
			continue
		}
		kv[p.Key] = p.Value
	}
	return Map{kv: kv}
}

// FromMap wraps an existing key/value map (copied).
func FromMap(m map[string]string) Map {
	kv := make(map[string]string, len(m))
	for k, v := range m {
		if k == "" {
			continue
		}
		kv[k] = v
	}
	return Map{kv: kv}
}

// Lookup returns the value for key and whether it was present.
func (m Map) Lookup(key string) (string, bool) {
	if m.kv == nil {
		return "", false
	}
	v, ok := m.kv[key]
	return v, ok
}

// Len reports the number of tags.
func (m Map) Len() int { return len(m.kv) }

// DefaultProtectionKey is the tag that exempts a resource from stop actions.
const DefaultProtectionKey = "DoNotShutdown"

// Protection decides whether a resource may be stopped automatically.
//
// A resource is exempt iff the protection tag's value equals "true",
// case-insensitively. Protection only ever suppresses stops; starts are
// never withheld.
type Protection struct {
	Key string
}

func (p Protection) key() string {
	if strings.TrimSpace(p.Key) == "" {
		return DefaultProtectionKey
	}
	return p.Key
}

// Exempt reports whether the given tags mark the resource as protected.
func (p Protection) Exempt(m Map) bool {
	v, ok := m.Lookup(p.key())
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Well-known property keys carried by authentication properties.
const (
	RedirectURIKey  = ".redirect"
	IssuedAtKey     = ".issued"
	ExpiresAtKey    = ".expires"
	IsPersistentKey = ".persistent"
	AllowRefreshKey = ".refresh"
)

// propertyTimeFormat is RFC 1123 with a literal GMT zone, which is how the
// timestamps have always been written into the bag.
const propertyTimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// Properties is an insertion-ordered string map. The order is part of the
// encoded form, so two bags with the same entries in a different order
// encode differently.
//
// The zero value is an empty bag ready to use. A nil *Properties reads as
// empty.
type Properties struct {
	keys   []string
	values map[string]string
}

// NewProperties returns an empty bag.
func NewProperties() *Properties {
	return &Properties{}
}

// PropertiesFromPairs builds a bag from alternating key/value arguments.
// A trailing key without a value is ignored.
func PropertiesFromPairs(kv ...string) *Properties {
	p := NewProperties()
	for i := 0; i+1 < len(kv); i += 2 {
		p.Set(kv[i], kv[i+1])
	}
	return p
}

// Set stores value under key. Replacing a value keeps the key's position.
func (p *Properties) Set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

func (p *Properties) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := p.values[key]
	return v, ok
}

func (p *Properties) Delete(key string) {
	if p == nil {
		return
	}
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}

func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Keys returns the keys in insertion order.
func (p *Properties) Keys() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Range calls fn for each entry in order until fn returns false.
func (p *Properties) Range(fn func(key, value string) bool) {
	if p == nil {
		return
	}
	for _, k := range p.keys {
		if !fn(k, p.values[k]) {
			return
		}
	}
}

func (p *Properties) Clone() *Properties {
	c := NewProperties()
	p.Range(func(k, v string) bool {
		c.Set(k, v)
		return true
	})
	return c
}

// Equal reports whether both bags hold the same entries in the same order.
func (p *Properties) Equal(other *Properties) bool {
	if p.Len() != other.Len() {
		return false
	}
	if p.Len() == 0 {
		return true
	}
	for i, k := range p.keys {
		if other.keys[i] != k || other.values[k] != p.values[k] {
			return false
		}
	}
	return true
}

// Map returns a plain copy of the entries; ordering is lost.
func (p *Properties) Map() map[string]string {
	out := make(map[string]string, p.Len())
	p.Range(func(k, v string) bool {
		out[k] = v
		return true
	})
	return out
}

// MarshalJSON writes the entries as an object in insertion order.
func (p *Properties) MarshalJSON() ([]byte, error) {
	var sb strings.Builder
	sb.WriteByte('{')
	var err error
	first := true
	p.Range(func(k, v string) bool {
		if !first {
			sb.WriteByte(',')
		}
		first = false
		var kb, vb []byte
		if kb, err = json.Marshal(k); err != nil {
			return false
		}
		if vb, err = json.Marshal(v); err != nil {
			return false
		}
		sb.Write(kb)
		sb.WriteByte(':')
		sb.Write(vb)
		return true
	})
	if err != nil {
		return nil, err
	}
	sb.WriteByte('}')
	return []byte(sb.String()), nil
}

func (p *Properties) RedirectURI() (string, bool) {
	return p.Get(RedirectURIKey)
}

func (p *Properties) SetRedirectURI(uri string) {
	p.Set(RedirectURIKey, uri)
}

func (p *Properties) IssuedAt() (time.Time, bool) {
	return p.getTime(IssuedAtKey)
}

func (p *Properties) SetIssuedAt(t time.Time) {
	p.Set(IssuedAtKey, t.UTC().Format(propertyTimeFormat))
}

// ExpiresAt is the moment after which the surrounding ticket is stale.
func (p *Properties) ExpiresAt() (time.Time, bool) {
	return p.getTime(ExpiresAtKey)
}

func (p *Properties) SetExpiresAt(t time.Time) {
	p.Set(ExpiresAtKey, t.UTC().Format(propertyTimeFormat))
}

func (p *Properties) IsPersistent() bool {
	v, _ := p.getBool(IsPersistentKey)
	return v
}

func (p *Properties) SetIsPersistent(v bool) {
	if !v {
		p.Delete(IsPersistentKey)
		return
	}
	p.Set(IsPersistentKey, "True")
}

func (p *Properties) AllowRefresh() (bool, bool) {
	return p.getBool(AllowRefreshKey)
}

func (p *Properties) SetAllowRefresh(v bool) {
	if v {
		p.Set(AllowRefreshKey, "True")
		return
	}
	p.Set(AllowRefreshKey, "False")
}

func (p *Properties) getTime(key string) (time.Time, bool) {
	v, ok := p.Get(key)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(propertyTimeFormat, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (p *Properties) getBool(key string) (bool, bool) {
	v, ok := p.Get(key)
	if !ok {
		return false, false
	}
	switch strings.ToLower(v) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

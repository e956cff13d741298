package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProperties_KeepsInsertionOrder(t *testing.T) {
	p := NewProperties()
	p.Set("b", "1")
	p.Set("a", "2")
	p.Set("c", "3")
	p.Set("a", "22")

	assert.Equal(t, []string{"b", "a", "c"}, p.Keys())
	v, ok := p.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "22", v)

	p.Delete("b")
	assert.Equal(t, []string{"a", "c"}, p.Keys())
	assert.Equal(t, 2, p.Len())
}

func TestProperties_NilReadsAsEmpty(t *testing.T) {
	var p *Properties

	assert.Zero(t, p.Len())
	assert.Nil(t, p.Keys())
	_, ok := p.Get("x")
	assert.False(t, ok)
	assert.True(t, p.Equal(NewProperties()))
	assert.True(t, NewProperties().Equal(p))
	assert.Zero(t, p.Clone().Len())
}

func TestProperties_EqualIsOrderSensitive(t *testing.T) {
	a := PropertiesFromPairs("k1", "v1", "k2", "v2")
	b := PropertiesFromPairs("k2", "v2", "k1", "v1")

	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(a.Clone()))
}

func TestProperties_MarshalJSONKeepsOrder(t *testing.T) {
	p := PropertiesFromPairs("z", "1", "a", "\"q\"")

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `{"z":"1","a":"\"q\""}`, string(b))
}

func TestProperties_WellKnownKeys(t *testing.T) {
	p := NewProperties()
	issued := time.Date(2024, 3, 9, 10, 11, 12, 0, time.UTC)

	p.SetRedirectURI("https://app.example.com/after")
	p.SetIssuedAt(issued)
	p.SetExpiresAt(issued.Add(15 * time.Minute))
	p.SetIsPersistent(true)
	p.SetAllowRefresh(false)

	v, _ := p.Get(IssuedAtKey)
	assert.Equal(t, "Sat, 09 Mar 2024 10:11:12 GMT", v)

	uri, ok := p.RedirectURI()
	assert.True(t, ok)
	assert.Equal(t, "https://app.example.com/after", uri)

	got, ok := p.IssuedAt()
	require.True(t, ok)
	assert.True(t, got.Equal(issued))

	exp, ok := p.ExpiresAt()
	require.True(t, ok)
	assert.True(t, exp.Equal(issued.Add(15*time.Minute)))

	assert.True(t, p.IsPersistent())
	refresh, ok := p.AllowRefresh()
	assert.True(t, ok)
	assert.False(t, refresh)

	p.SetIsPersistent(false)
	_, ok = p.Get(IsPersistentKey)
	assert.False(t, ok)
}

func TestProperties_UnparsableValues(t *testing.T) {
	p := PropertiesFromPairs(ExpiresAtKey, "tomorrow", AllowRefreshKey, "maybe")

	_, ok := p.ExpiresAt()
	assert.False(t, ok)
	_, ok = p.AllowRefresh()
	assert.False(t, ok)
}

func TestRequestToken_Equal(t *testing.T) {
	a := NewRequestToken("abc", "xyz", true, nil)
	b := &RequestToken{Token: "abc", TokenSecret: "xyz", CallbackConfirmed: true}

	assert.True(t, a.Equal(b))
	b.CallbackConfirmed = false
	assert.False(t, a.Equal(b))

	var n *RequestToken
	assert.True(t, n.Equal(nil))
	assert.False(t, n.Equal(a))
}

package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPayloadTriState(t *testing.T) {
	p := Payload{"a": Int(1), "b": Null{}}

	assert.Equal(t, Present, p.Field("a").State)
	assert.Equal(t, Nulled, p.Field("b").State)
	assert.Equal(t, Absent, p.Field("c").State)
	assert.Equal(t, "null", Nulled.String())
}

func TestPayloadOverlayKeepsExplicitNulls(t *testing.T) {
	base := Payload{"a": Int(1), "b": Int(2)}
	base.Overlay(Payload{"b": Null{}, "c": Int(3)})

	assert.Equal(t, Payload{"a": Int(1), "b": Null{}, "c": Int(3)}, base)
}

func TestPayloadStripNullsAndSplit(t *testing.T) {
	p := Payload{"a": Int(1), "b": Null{}, "note": String("x")}

	assert.Equal(t, Payload{"a": Int(1), "note": String("x")}, p.StripNulls())

	rest, eph := p.Split(map[string]bool{"note": true})
	assert.Equal(t, Payload{"a": Int(1), "b": Null{}}, rest)
	assert.Equal(t, Payload{"note": String("x")}, eph)
	assert.Equal(t, rest, p.Without(map[string]bool{"note": true}))
}

func TestEqualIgnoringNulls(t *testing.T) {
	assert.True(t, EqualIgnoringNulls(Payload{"a": Int(1), "b": Null{}}, Payload{"a": Int(1)}))
	assert.False(t, EqualIgnoringNulls(Payload{"a": Int(1)}, Payload{"a": Int(2)}))
	assert.True(t, EqualIgnoringNulls(nil, Payload{}))
}

func TestKeys(t *testing.T) {
	k := Keys{"id": Int(7), "region": String("eu"), "gone": Null{}}

	assert.True(t, k.Complete([]string{"id", "region"}))
	assert.False(t, k.Complete([]string{"id", "gone"}))
	assert.False(t, k.Complete(nil))
	assert.Equal(t, "7__eu", k.Render([]string{"id", "region"}))
	assert.Equal(t, Keys{"id": Int(7)}, k.Project([]string{"id", "missing"}))
}

func TestLookupPrefersKeys(t *testing.T) {
	keys := Keys{"id": Int(1)}
	data := Payload{"id": Int(2), "ssn": String("123")}

	assert.Equal(t, Int(1), Lookup(keys, data, "id"))
	assert.Equal(t, String("123"), Lookup(keys, data, "ssn"))
	assert.Nil(t, Lookup(keys, data, "nope"))
}

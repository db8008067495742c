package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestUnmarshalValueNumbers(t *testing.T) {
	v, err := UnmarshalValue([]byte(`42`))
	require.NoError(t, err)
	assert.Equal(t, Int(42), v)

	v, err = UnmarshalValue([]byte(`1.25`))
	require.NoError(t, err)
	require.IsType(t, Decimal{}, v)
	assert.Equal(t, "1.25", v.(Decimal).Text())

	v, err = UnmarshalValue([]byte(`null`))
	require.NoError(t, err)
	assert.Equal(t, Null{}, v)
}

func TestEqualIntDecimal(t *testing.T) {
	assert.True(t, Equal(Int(2), MustDecimal("2.00")))
	assert.False(t, Equal(Int(2), MustDecimal("2.01")))
	assert.True(t, Equal(Null{}, Null{}))
	assert.False(t, Equal(Null{}, String("")))
	assert.True(t, Equal(Object{"a": Array{Int(1)}}, Object{"a": Array{Int(1)}}))
}

func TestFromAnyRejectsFloats(t *testing.T) {
	_, err := FromAny(map[string]any{"x": 1.5})
	require.Error(t, err)

	v, err := FromAny(map[string]any{"x": json.Number("1.5"), "y": nil})
	require.NoError(t, err)
	obj := v.(Object)
	assert.Equal(t, "1.5", obj["x"].(Decimal).Text())
	assert.Equal(t, Null{}, obj["y"])
}

func TestToAnyRoundTrip(t *testing.T) {
	in := Object{"a": Int(1), "b": Array{String("x"), Null{}}, "c": MustDecimal("0.5")}
	back, err := FromAny(ToAny(in))
	require.NoError(t, err)
	assert.True(t, Equal(in, back))
}

func TestPayloadYAML(t *testing.T) {
	src := `
a: 1
b: ~
c: 2.50
d: hello
e: [1, two]
f: {g: true}
`
	var p Payload
	require.NoError(t, yaml.Unmarshal([]byte(src), &p))

	assert.Equal(t, Int(1), p["a"])
	assert.Equal(t, Field{State: Nulled, Value: Null{}}, p.Field("b"))
	assert.Equal(t, "2.5", p["c"].(Decimal).Text())
	assert.Equal(t, String("hello"), p["d"])
	assert.Equal(t, Array{Int(1), String("two")}, p["e"])
	assert.Equal(t, Object{"g": Bool(true)}, p["f"])
	assert.Equal(t, Absent, p.Field("missing").State)
}

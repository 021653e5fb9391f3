package sesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codecFixture struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestJSONCodecRoundTrip(t *testing.T) {
	c := JSONCodec{}
	in := codecFixture{Name: "sesh", Count: 3}

	data, err := c.Encode(in)
	require.NoError(t, err)

	var out codecFixture
	require.NoError(t, c.Decode(data, &out))
	assert.Equal(t, in, out)
}

func TestCBORCodecRoundTrip(t *testing.T) {
	c := NewCBORCodec()
	in := codecFixture{Name: "sesh", Count: 3}

	data, err := c.Encode(in)
	require.NoError(t, err)

	var out codecFixture
	require.NoError(t, c.Decode(data, &out))
	assert.Equal(t, in, out)
}

func TestCBORCodecDeterministic(t *testing.T) {
	c := NewCBORCodec()
	in := codecFixture{Name: "sesh", Count: 3}

	a, err := c.Encode(in)
	require.NoError(t, err)
	b, err := c.Encode(in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDefaultCodecIsJSON(t *testing.T) {
	_, ok := DefaultCodec.(JSONCodec)
	assert.True(t, ok)
}

package sesh

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumberFromIntNormalizesNonNegative(t *testing.T) {
	n := NumberFromInt(5)
	assert.True(t, n.IsUint())
	assert.False(t, n.IsInt())

	u, ok := n.AsUint()
	assert.True(t, ok)
	assert.Equal(t, uint64(5), u)
}

func TestNumberFromIntNegative(t *testing.T) {
	n := NumberFromInt(-5)
	assert.True(t, n.IsInt())
	assert.False(t, n.IsUint())

	i, ok := n.AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(-5), i)
}

func TestNumberFromFloatRejectsNonFinite(t *testing.T) {
	_, err := NumberFromFloat(math.NaN())
	assert.ErrorIs(t, err, ErrFloatMustBeFinite)

	_, err = NumberFromFloat(math.Inf(1))
	assert.ErrorIs(t, err, ErrFloatMustBeFinite)

	_, err = NumberFromFloat(math.Inf(-1))
	assert.ErrorIs(t, err, ErrFloatMustBeFinite)
}

func TestNumberFromFloatCanonicalizesNegativeZero(t *testing.T) {
	pos, err := NumberFromFloat(0)
	assert.NoError(t, err)
	neg, err := NumberFromFloat(math.Copysign(0, -1))
	assert.NoError(t, err)
	assert.True(t, pos.Equal(neg))
}

func TestNumberAsIntFromPositiveIntOverflow(t *testing.T) {
	n := NumberFromUint(math.MaxUint64)
	_, ok := n.AsInt()
	assert.False(t, ok)
}

func TestNumberAsFloatLossyBoundary(t *testing.T) {
	exact := NumberFromUint(1 << 53)
	f, ok := exact.AsFloat()
	assert.True(t, ok)
	assert.Equal(t, float64(1<<53), f)

	inexact := NumberFromUint((1 << 53) + 1)
	_, ok = inexact.AsFloat()
	assert.False(t, ok)
}

func TestNumberEqualIsVariantStrict(t *testing.T) {
	asInt := NumberFromInt(5)
	asFloat, err := NumberFromFloat(5.0)
	assert.NoError(t, err)
	assert.False(t, asInt.Equal(asFloat))
	assert.True(t, asInt.Equal(NumberFromInt(5)))
}

package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDGeneratorNext(t *testing.T) {
	g := NewIDGenerator()

	first := g.Next(IDAccount)
	second := g.Next(IDAccount)

	assert.True(t, strings.HasPrefix(first, "acc_"))
	assert.NotEqual(t, first, second)

	ord1, ok := ParseIDOrdinal(first)
	require.True(t, ok)
	ord2, ok := ParseIDOrdinal(second)
	require.True(t, ok)
	assert.Equal(t, ord1+1, ord2)
}

func TestIDGeneratorNamespacesAreIndependent(t *testing.T) {
	g := NewIDGenerator()

	g.Next(IDUser)
	g.Next(IDUser)
	cardID := g.Next(IDCard)

	ord, ok := ParseIDOrdinal(cardID)
	require.True(t, ok)
	assert.Equal(t, int64(1), ord)
}

func TestIDGeneratorObservePrimesCounter(t *testing.T) {
	g := NewIDGenerator()
	g.Observe(IDAccountTxn, "atxn_1700000000_41")

	next := g.Next(IDAccountTxn)
	ord, ok := ParseIDOrdinal(next)
	require.True(t, ok)
	assert.Equal(t, int64(42), ord)
}

func TestIDGeneratorObserveSkipsMalformed(t *testing.T) {
	g := NewIDGenerator()
	g.Observe(IDUser, "legacy-user-id")
	g.Observe(IDUser, "u_notanumber")

	next := g.Next(IDUser)
	ord, ok := ParseIDOrdinal(next)
	require.True(t, ok)
	assert.Equal(t, int64(1), ord)
}

func TestParseIDOrdinal(t *testing.T) {
	ord, ok := ParseIDOrdinal("u_1700000000_7")
	require.True(t, ok)
	assert.Equal(t, int64(7), ord)

	_, ok = ParseIDOrdinal("nounderscore")
	assert.False(t, ok)

	_, ok = ParseIDOrdinal("u_x_y")
	assert.False(t, ok)
}

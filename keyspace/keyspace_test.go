package keyspace_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaultwarden-hd/hdcore/keyspace"
)

func TestGlobalLocalRoundtrip(t *testing.T) {
	cases := []uint32{0, 1, keyspace.U31Max, keyspace.GlobalOffsetHardened, keyspace.GlobalOffsetHardened + 1,
		keyspace.GlobalOffsetHardenedSecurified, keyspace.GlobalOffsetHardenedSecurified + 42, ^uint32(0)}

	for _, v := range cases {
		c, err := keyspace.FromGlobalKeySpace(v)
		require.NoError(t, err)
		assert.Equal(t, v, c.ToGlobal(), "roundtrip for %d", v)

		rebuilt, err := keyspace.FromLocalKeySpace(c.IndexInLocalKeySpace(), c.Space())
		require.NoError(t, err)
		assert.Equal(t, c.ToGlobal(), rebuilt.ToGlobal())
	}
}

func TestSecurifiedU30RangeInvariant(t *testing.T) {
	s, err := keyspace.NewSecurifiedU30(7)
	require.NoError(t, err)
	g := s.ToGlobal()
	assert.GreaterOrEqual(t, g, keyspace.GlobalOffsetHardenedSecurified)
	assert.Less(t, g, ^uint32(0))
}

func TestUnsecurifiedRangeInvariant(t *testing.T) {
	hardened, err := keyspace.NewUnsecurifiedHardened(3)
	require.NoError(t, err)
	g := hardened.ToGlobal()
	assert.GreaterOrEqual(t, g, keyspace.GlobalOffsetHardened)
	assert.Less(t, g, keyspace.GlobalOffsetHardenedSecurified)

	unhardened, err := keyspace.NewUnhardened(3)
	require.NoError(t, err)
	g2 := unhardened.ToGlobal()
	assert.Less(t, g2, keyspace.GlobalOffsetHardened)
}

func TestCheckedAddStaysWithinKeySpace(t *testing.T) {
	u, err := keyspace.NewUnsecurifiedHardened(keyspace.U30Max - 1)
	require.NoError(t, err)

	_, err = u.CheckedAdd(1)
	assert.NoError(t, err)

	_, err = u.CheckedAdd(2)
	assert.Error(t, err)
}

func TestFromGlobalKeySpaceOutOfRangeNeverFails(t *testing.T) {
	// Every uint32 value belongs to exactly one of the three ranges,
	// so FromGlobalKeySpace never errors; only FromLocalKeySpace does.
	_, err := keyspace.FromGlobalKeySpace(0)
	assert.NoError(t, err)
}

func TestFromLocalKeySpaceRejectsOutOfRange(t *testing.T) {
	_, err := keyspace.FromLocalKeySpace(keyspace.U30Max+1, keyspace.SpaceSecurified)
	assert.Error(t, err)

	_, err = keyspace.FromLocalKeySpace(keyspace.U31Max+1, keyspace.SpaceUnhardened)
	assert.Error(t, err)
}

func TestCompareOrdering(t *testing.T) {
	u0, _ := keyspace.NewUnhardened(0)
	u1, _ := keyspace.NewUnhardened(1)
	h0, _ := keyspace.NewUnsecurifiedHardened(0)
	s0, _ := keyspace.NewSecurifiedU30(0)

	assert.Equal(t, -1, keyspace.Compare(u0, u1))
	assert.Equal(t, -1, keyspace.Compare(h0, s0))
	assert.Equal(t, 0, keyspace.Compare(u0, u0))
}

func TestTextRoundtrip(t *testing.T) {
	cases := []string{"0", "44H", "1022'", "0S", "7^"}
	for _, raw := range cases {
		c, err := keyspace.ParseComponent(raw)
		require.NoError(t, err, raw)
		rendered := keyspace.String(c)

		c2, err := keyspace.ParseComponent(rendered)
		require.NoError(t, err)
		assert.Equal(t, c.ToGlobal(), c2.ToGlobal())
	}
}

func TestBIP32OnlyFallback(t *testing.T) {
	c, err := keyspace.ParseComponent("1073741824H")
	require.NoError(t, err)
	assert.Equal(t, keyspace.SpaceSecurified, c.Space())
	assert.Equal(t, uint32(0), c.IndexInLocalKeySpace())
}

func TestParsePathTolerantOfMissingPrefix(t *testing.T) {
	withPrefix, err := keyspace.ParsePath("m/44H/1022H/0H")
	require.NoError(t, err)
	withoutPrefix, err := keyspace.ParsePath("44H/1022H/0H")
	require.NoError(t, err)
	require.Len(t, withPrefix, 3)
	require.Len(t, withoutPrefix, 3)
	for i := range withPrefix {
		assert.Equal(t, withPrefix[i].ToGlobal(), withoutPrefix[i].ToGlobal())
	}
}

func TestRenderPathLeadingM(t *testing.T) {
	components, err := keyspace.ParsePath("44H/1022H/0H")
	require.NoError(t, err)
	rendered := keyspace.RenderPath(components)
	assert.Equal(t, "m/44H/1022H/0H", rendered)
}

func TestIsHardenedAndIsUnsecurified(t *testing.T) {
	u, _ := keyspace.NewUnhardened(0)
	h, _ := keyspace.NewUnsecurifiedHardened(0)
	s, _ := keyspace.NewSecurifiedU30(0)

	assert.False(t, keyspace.IsHardened(u))
	assert.True(t, keyspace.IsHardened(h))
	assert.True(t, keyspace.IsHardened(s))

	assert.True(t, keyspace.IsUnsecurified(u))
	assert.True(t, keyspace.IsUnsecurified(h))
	assert.False(t, keyspace.IsUnsecurified(s))
}

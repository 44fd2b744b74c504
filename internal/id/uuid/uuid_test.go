package uuid

import (
	"testing"

	googleuuid "github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewIDProducesValidUUIDs(t *testing.T) {
	t.Parallel()
	gen := New()

	a, err := gen.NewID()
	require.NoError(t, err)
	b, err := gen.NewID()
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	for _, id := range []string{a, b} {
		parsed, err := googleuuid.Parse(id)
		require.NoError(t, err)
		require.Equal(t, googleuuid.Version(7), parsed.Version())
	}
}

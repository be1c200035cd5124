package reference_test

import (
	"testing"

	"github.com/brickingsoft/proactor/pkg/reference"
	"github.com/stretchr/testify/require"
)

type closer struct {
	closed int
}

func (c *closer) Close() error {
	c.closed++
	return nil
}

func TestPointer(t *testing.T) {
	c := &closer{}
	p := reference.Make(c)
	require.EqualValues(t, 1, p.Count())

	second := p.Retain()
	require.EqualValues(t, 2, p.Count())
	require.Same(t, c, second.Value())

	require.NoError(t, p.Close())
	require.Equal(t, 0, c.closed)
	require.NoError(t, second.Close())
	require.Equal(t, 1, c.closed)

	require.Panics(t, func() { _ = p.Close() })
	require.Panics(t, func() { p.Retain() })
}

func TestMake_Nil(t *testing.T) {
	require.Panics(t, func() { reference.Make[*closer](nil) })
}

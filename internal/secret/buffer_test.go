package secret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromBytesZeroesSource(t *testing.T) {
	t.Parallel()

	source := []byte("0123456789abcdef0123456789abcdef")

	buf, err := NewFromBytes(source)
	require.NoError(t, err)

	assert.Equal(t, make([]byte, 32), source)

	data, err := buf.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", string(data))

	require.NoError(t, buf.Close())
	require.NoError(t, buf.Close())

	assert.True(t, buf.closed)
	assert.Nil(t, buf.data)

	_, err = buf.Bytes()
	require.ErrorIs(t, err, ErrClosed)
}

func TestNewRejectsInvalidSize(t *testing.T) {
	t.Parallel()

	_, err := New(0)
	require.Error(t, err)

	_, err = NewFromBytes(nil)
	require.Error(t, err)
}

func TestCloseReleasesRegion(t *testing.T) {
	t.Parallel()

	buf, err := New(16)
	require.NoError(t, err)

	data, err := buf.Bytes()
	require.NoError(t, err)

	for i := range data {
		data[i] = 0xAA
	}

	require.NoError(t, buf.Close())
	assert.Nil(t, buf.data)
}

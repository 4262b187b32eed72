package media_test

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"

	"github.com/storefront/mediastore/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizePolicy_Check(t *testing.T) {
	p := media.NewSizePolicy(2)
	assert.Equal(t, int64(2000), p.MaxUploadBytes())

	assert.NoError(t, p.Check(0))
	assert.NoError(t, p.Check(2000))
	assert.ErrorIs(t, p.Check(2001), media.ErrPayloadTooLarge)
}

func TestSizePolicy_Unlimited(t *testing.T) {
	for _, kb := range []int64{0, -5} {
		p := media.NewSizePolicy(kb)
		assert.True(t, p.Unlimited())
		assert.NoError(t, p.Check(1<<40))
	}
	var zero media.SizePolicy
	assert.True(t, zero.Unlimited())
}

func TestSizePolicy_Limit(t *testing.T) {
	p := media.NewSizePolicy(1)

	got, err := io.ReadAll(p.Limit(bytes.NewReader(make([]byte, 1000))))
	require.NoError(t, err)
	assert.Len(t, got, 1000)

	_, err = io.ReadAll(p.Limit(bytes.NewReader(make([]byte, 1001))))
	assert.ErrorIs(t, err, media.ErrPayloadTooLarge)

	// one byte per read must not change the outcome
	got, err = io.ReadAll(p.Limit(iotest.OneByteReader(bytes.NewReader(make([]byte, 1000)))))
	require.NoError(t, err)
	assert.Len(t, got, 1000)

	_, err = io.ReadAll(p.Limit(iotest.OneByteReader(bytes.NewReader(make([]byte, 1001)))))
	assert.ErrorIs(t, err, media.ErrPayloadTooLarge)
}

func TestSizePolicy_LimitUnlimitedPassesThrough(t *testing.T) {
	r := bytes.NewReader([]byte("abc"))
	assert.Same(t, r, media.NewSizePolicy(0).Limit(r))
}

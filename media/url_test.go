package media_test

import (
	"testing"

	"github.com/storefront/mediastore/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLProjector_PublicURL(t *testing.T) {
	p := media.StoragePath{Directory: []string{"suppliers", "42", "logo"}, FileName: "logo.png"}

	assert.Equal(t, "/storage/suppliers/42/logo/logo.png", media.NewURLProjector("/storage").PublicURL(p))
	assert.Equal(t, "https://shop.example/storage/suppliers/42/logo/logo.png",
		media.NewURLProjector("https://shop.example/storage/").PublicURL(p))
	assert.Equal(t, "/suppliers/42/logo/logo.png", media.NewURLProjector("").PublicURL(p))
}

func TestURLProjector_RoundTrip(t *testing.T) {
	u := media.NewURLProjector("https://shop.example/storage")
	paths := []media.StoragePath{
		{Directory: []string{"suppliers", "42", "logo"}, FileName: "logo.png"},
		{Directory: []string{"products", "7", "colors", "3", "video"}, FileName: "summer sale #1.mp4"},
		{Directory: []string{"products", "7", "colors", "3", "image"}, FileName: "50%?.jpg"},
	}
	for _, p := range paths {
		t.Run(p.Key(), func(t *testing.T) {
			got, ok := u.RelativePath(u.PublicURL(p))
			require.True(t, ok)
			assert.Equal(t, p, got)
		})
	}
}

func TestURLProjector_RelativePathRejects(t *testing.T) {
	u := media.NewURLProjector("/storage")

	for _, raw := range []string{
		"/other/suppliers/42/logo/logo.png",
		"/storage/logo.png",
		"/storage/suppliers/../logo/x.png",
		"/storage/suppliers/%zz/logo.png",
		"/storagex/suppliers/42/logo/logo.png",
	} {
		_, ok := u.RelativePath(raw)
		assert.False(t, ok, raw)
	}

	p, ok := u.RelativePath("/storage/suppliers/42/logo/logo.png?v=2")
	require.True(t, ok)
	assert.Equal(t, "suppliers/42/logo/logo.png", p.Key())
}

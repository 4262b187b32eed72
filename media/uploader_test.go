package media_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/storefront/mediastore/events"
	"github.com/storefront/mediastore/logger/adapters/mock"
	"github.com/storefront/mediastore/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUploader(t *testing.T, opts ...media.StoreOption) (*media.Uploader, *fixture) {
	t.Helper()
	f := newFixture(t, opts...)
	return media.NewUploader(f.store, media.DefaultClassifier(), f.log), f
}

func upload(data []byte, filename string) media.UploadRequest {
	return media.UploadRequest{Content: bytes.NewReader(data), Size: int64(len(data)), OriginalFilename: filename}
}

func TestUploader_SupplierLogo(t *testing.T) {
	u, f := newUploader(t)
	data := payload(500)

	asset, err := u.CreateSupplierLogo(context.Background(), 42, upload(data, "logo.png"))
	require.NoError(t, err)

	assert.Equal(t, "suppliers/42/logo/logo.png", asset.Path.Key())
	assert.Equal(t, "/storage/suppliers/42/logo/logo.png", asset.PublicURL)
	assert.Equal(t, int64(500), asset.BytesWritten)
	assert.Equal(t, data, f.read(t, "suppliers/42/logo/logo.png"))

	rec := asset.Record()
	assert.Equal(t, media.PictureRecord{
		Name:      "logo",
		Src:       "/storage/suppliers/42/logo/logo.png",
		Type:      "image",
		Extension: "png",
		OwnerIDs:  media.OwnerChain{42},
	}, rec)

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"logo","src":"/storage/suppliers/42/logo/logo.png","type":"image","extension":"png","owner_ids":[42]}`, string(raw))
}

func TestUploader_ColorVideo(t *testing.T) {
	u, f := newUploader(t)
	data := []byte("not really an mpeg stream")

	asset, err := u.StoreColorPicture(context.Background(), 7, 3, upload(data, "Spin.MP4"))
	require.NoError(t, err)

	assert.Equal(t, "products/7/colors/3/video/Spin.mp4", asset.Path.Key())
	assert.Equal(t, media.Video, asset.Class)
	assert.Equal(t, media.OwnerChain{7, 3}, asset.Owner)
	assert.Equal(t, data, f.read(t, asset.Path.Key()))
	assert.Equal(t, "video", asset.Record().Type)
}

func TestUploader_NameAndExtensionOverride(t *testing.T) {
	u, _ := newUploader(t)
	req := upload(payload(20), "IMG_0001.jpeg")
	req.Name = "hero"
	req.Extension = ".JPG"

	asset, err := u.StoreColorPicture(context.Background(), 7, 3, req)
	require.NoError(t, err)
	assert.Equal(t, "products/7/colors/3/image/hero.jpg", asset.Path.Key())
}

func TestUploader_SniffsMissingExtension(t *testing.T) {
	u, f := newUploader(t)
	data := payload(200)

	asset, err := u.StoreColorPicture(context.Background(), 7, 3, upload(data, "upload"))
	require.NoError(t, err)
	assert.Equal(t, "products/7/colors/3/image/upload.png", asset.Path.Key())
	assert.Equal(t, data, f.read(t, asset.Path.Key()), "sniffed bytes are written too")
}

func TestUploader_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		run     func(u *media.Uploader) error
		wantErr error
	}{
		{
			name: "unclassified colour media",
			run: func(u *media.Uploader) error {
				_, err := u.StoreColorPicture(context.Background(), 7, 3, upload([]byte("%PDF-1.4"), "brochure.pdf"))
				return err
			},
			wantErr: media.ErrUnclassifiedMediaRejected,
		},
		{
			name: "video as supplier logo",
			run: func(u *media.Uploader) error {
				_, err := u.CreateSupplierLogo(context.Background(), 42, upload([]byte("x"), "intro.mp4"))
				return err
			},
			wantErr: media.ErrUnclassifiedMediaRejected,
		},
		{
			name: "invalid owner",
			run: func(u *media.Uploader) error {
				_, err := u.StoreColorPicture(context.Background(), 7, 0, upload(payload(10), "a.png"))
				return err
			},
			wantErr: media.ErrInvalidOwnerChain,
		},
		{
			name: "no extension and no content",
			run: func(u *media.Uploader) error {
				_, err := u.CreateSupplierLogo(context.Background(), 42, media.UploadRequest{OriginalFilename: "logo"})
				return err
			},
			wantErr: media.ErrInvalidFileName,
		},
		{
			name: "extension with separator",
			run: func(u *media.Uploader) error {
				req := upload(payload(10), "logo")
				req.Extension = "p/ng"
				_, err := u.CreateSupplierLogo(context.Background(), 42, req)
				return err
			},
			wantErr: media.ErrInvalidFileName,
		},
		{
			name: "hidden file name",
			run: func(u *media.Uploader) error {
				req := upload(payload(10), "x.png")
				req.Name = ".htaccess"
				_, err := u.CreateSupplierLogo(context.Background(), 42, req)
				return err
			},
			wantErr: media.ErrInvalidFileName,
		},
		{
			name: "too large",
			run: func(u *media.Uploader) error {
				_, err := u.CreateSupplierLogo(context.Background(), 42, upload(payload(2001), "logo.png"))
				return err
			},
			wantErr: media.ErrPayloadTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, f := newUploader(t)
			err := tt.run(u)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.backend.puts.Load())
			assert.Empty(t, f.recorder.Events())
		})
	}
}

func TestUploader_SizeBoundary(t *testing.T) {
	u, _ := newUploader(t, media.WithSizePolicy(media.NewSizePolicy(1)))

	_, err := u.StoreColorPicture(context.Background(), 7, 3, upload(payload(1000), "exact.png"))
	require.NoError(t, err)

	_, err = u.StoreColorPicture(context.Background(), 7, 3, upload(payload(1001), "over.png"))
	assert.ErrorIs(t, err, media.ErrPayloadTooLarge)
}

func TestUploader_UpdateReusesExisting(t *testing.T) {
	u, f := newUploader(t)
	first := payload(100)

	created, err := u.CreateSupplierLogo(context.Background(), 42, upload(first, "logo.png"))
	require.NoError(t, err)

	updated, err := u.UpdateSupplierLogo(context.Background(), 42, upload(payload(150), "logo.png"))
	require.NoError(t, err)
	assert.True(t, updated.Reused)
	assert.Equal(t, created.PublicURL, updated.PublicURL)
	assert.Equal(t, first, f.read(t, "suppliers/42/logo/logo.png"))

	other, err := u.UpdateSupplierLogo(context.Background(), 42, upload(payload(150), "new-logo.png"))
	require.NoError(t, err)
	assert.False(t, other.Reused)
	assert.True(t, f.exists("suppliers/42/logo/new-logo.png"))
}

func TestUploader_UpdateColorPicture(t *testing.T) {
	u, f := newUploader(t)
	first := payload(100)

	_, err := u.StoreColorPicture(context.Background(), 7, 3, upload(first, "front.png"))
	require.NoError(t, err)
	asset, err := u.UpdateColorPicture(context.Background(), 7, 3, upload(payload(120), "front.png"))
	require.NoError(t, err)
	assert.True(t, asset.Reused)
	assert.Equal(t, first, f.read(t, "products/7/colors/3/image/front.png"))
}

func TestUploader_CreateCollisionIsReplaced(t *testing.T) {
	u, f := newUploader(t)
	_, err := u.CreateSupplierLogo(context.Background(), 42, upload(payload(100), "logo.png"))
	require.NoError(t, err)

	second := payload(120)
	_, err = u.CreateSupplierLogo(context.Background(), 42, upload(second, "logo.png"))
	require.NoError(t, err)
	assert.Equal(t, second, f.read(t, "suppliers/42/logo/logo.png"))
	assert.Equal(t, []events.Type{events.TypeStored, events.TypeReplaced}, f.recorder.Types())
}

func TestUploader_Plan(t *testing.T) {
	u, f := newUploader(t)

	_, class, target, err := u.Plan(media.ProductColorLayout, media.UploadRequest{
		OriginalFilename: `C:\Users\me\Desktop\promo.MPEG`,
		Owner:            media.OwnerChain{7, 3},
	}, media.UploadOptions{RequireClass: true})
	require.NoError(t, err)
	assert.Equal(t, media.Video, class)
	assert.Equal(t, "products/7/colors/3/video/promo.mpeg", target.Key())
	assert.Zero(t, f.backend.puts.Load())
}

func TestUploader_RemoveAsset(t *testing.T) {
	u, f := newUploader(t)
	asset, err := u.CreateSupplierLogo(context.Background(), 42, upload(payload(10), "logo.png"))
	require.NoError(t, err)

	assert.True(t, u.RemoveAsset(context.Background(), asset.PublicURL))
	assert.False(t, f.exists(asset.Path.Key()))
	assert.False(t, u.RemoveAsset(context.Background(), asset.PublicURL))
	assert.Empty(t, f.log.EntriesAt(mock.LevelError))

	assert.False(t, u.RemoveAsset(context.Background(), "https://elsewhere.example/x.png"))
	assert.Len(t, f.log.EntriesAt(mock.LevelError), 1)
}

func TestUploader_RemoveAssetFailureIsNotFatal(t *testing.T) {
	u, f := newUploader(t)
	asset, err := u.CreateSupplierLogo(context.Background(), 42, upload(payload(10), "logo.png"))
	require.NoError(t, err)

	f.backend.deleteErr = errors.New("read-only file system")
	assert.False(t, u.RemoveAsset(context.Background(), asset.PublicURL))
	assert.True(t, f.exists(asset.Path.Key()))
	assert.Contains(t, f.recorder.Types(), events.TypeDeleteFailed)
}

func TestUploader_RemoveSupplier(t *testing.T) {
	u, f := newUploader(t)
	ctx := context.Background()
	for _, name := range []string{"logo.png", "logo-dark.png"} {
		_, err := u.CreateSupplierLogo(ctx, 42, upload(payload(10), name))
		require.NoError(t, err)
	}

	assert.Equal(t, 2, u.RemoveSupplier(ctx, 42))
	assert.False(t, f.exists("suppliers/42"))
	assert.Zero(t, u.RemoveSupplier(ctx, 42))

	f.backend.deleteErr = errors.New("busy")
	assert.Zero(t, u.RemoveSupplier(ctx, 43))
	assert.Len(t, f.log.EntriesAt(mock.LevelError), 2, "store and uploader both report the failure")
}

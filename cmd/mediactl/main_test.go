package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/storefront/mediastore/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{}
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	a.close(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func setupEnv(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("STORAGE_TYPE", "local")
	t.Setenv("MEDIA_STORAGE_ROOT", root)
	t.Setenv("MEDIA_PUBLIC_BASE", "/storage")
	t.Setenv("LOG_LEVEL", "error")
	return root
}

func TestPutLogoAndRemove(t *testing.T) {
	root := setupEnv(t)
	src := writeFile(t, t.TempDir(), "logo.png", []byte("\x89PNG\r\n\x1a\nrest"))

	out, err := run(t, "put-logo", "--supplier", "42", src)
	require.NoError(t, err)

	var rec media.PictureRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "/storage/suppliers/42/logo/logo.png", rec.Src)
	assert.Equal(t, "image", rec.Type)
	assert.FileExists(t, filepath.Join(root, "suppliers", "42", "logo", "logo.png"))

	out, err = run(t, "rm", rec.Src)
	require.NoError(t, err)
	assert.Contains(t, out, "removed=true")
	assert.NoFileExists(t, filepath.Join(root, "suppliers", "42", "logo", "logo.png"))
}

func TestPutColorWithNameAndPurge(t *testing.T) {
	root := setupEnv(t)
	src := writeFile(t, t.TempDir(), "clip.mp4", []byte("frames"))

	out, err := run(t, "put-color", "--product", "7", "--color", "3", "--name", "spin", src)
	require.NoError(t, err)
	assert.Contains(t, out, "/storage/products/7/colors/3/video/spin.mp4")
	assert.FileExists(t, filepath.Join(root, "products", "7", "colors", "3", "video", "spin.mp4"))

	logo := writeFile(t, t.TempDir(), "logo.gif", []byte("GIF89a"))
	_, err = run(t, "put-logo", "--supplier", "9", logo)
	require.NoError(t, err)

	out, err = run(t, "purge-supplier", "9")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 1 assets")
}

func TestPutRejectsUnclassified(t *testing.T) {
	setupEnv(t)
	src := writeFile(t, t.TempDir(), "notes.txt", []byte("hello"))

	_, err := run(t, "put-color", "--product", "7", "--color", "3", src)
	assert.ErrorIs(t, err, media.ErrUnclassifiedMediaRejected)
}

func TestEnvFile(t *testing.T) {
	setupEnv(t)
	root := t.TempDir()
	envFile := writeFile(t, t.TempDir(), "media.env", []byte("MEDIA_STORAGE_ROOT="+root+"\nMEDIA_PUBLIC_BASE=https://cdn.example/media\n"))
	src := writeFile(t, t.TempDir(), "logo.png", []byte("png"))

	out, err := run(t, "--env-file", envFile, "put-logo", "--supplier", "1", src)
	require.NoError(t, err)
	assert.Contains(t, out, "https://cdn.example/media/suppliers/1/logo/logo.png")
	assert.FileExists(t, filepath.Join(root, "suppliers", "1", "logo", "logo.png"))
}

func TestWatchNeedsRedisEvents(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "watch")
	assert.ErrorContains(t, err, "MEDIA_EVENTS_ENABLED")
}

func TestInvalidSupplierID(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "purge-supplier", "abc")
	assert.Error(t, err)
}

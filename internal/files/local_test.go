// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package files

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocal(t *testing.T) (*Local, string) {
	t.Helper()
	root := t.TempDir()
	l, err := NewLocal(root, nil)
	require.NoError(t, err)
	return l, root
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLocal_ReadFileText(t *testing.T) {
	l, root := newTestLocal(t)
	writeFile(t, filepath.Join(root, "src", "app.ts"), "export const x = 1;\n")

	got, err := l.ReadFile(context.Background(), "src/app.ts")
	require.NoError(t, err)
	assert.Equal(t, Content{Content: "export const x = 1;\n", Encoding: EncodingUTF8}, got)
}

func TestLocal_ReadFileMediaIsBase64(t *testing.T) {
	l, root := newTestLocal(t)
	raw := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}
	require.NoError(t, os.WriteFile(filepath.Join(root, "logo.PNG"), raw, 0644))

	got, err := l.ReadFile(context.Background(), "logo.PNG")
	require.NoError(t, err)
	assert.Equal(t, EncodingBase64, got.Encoding)
	assert.Equal(t, base64.StdEncoding.EncodeToString(raw), got.Content)

	decoded, err := got.Bytes()
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestLocal_SVGIsText(t *testing.T) {
	l, root := newTestLocal(t)
	writeFile(t, filepath.Join(root, "icon.svg"), "<svg/>")

	got, err := l.ReadFile(context.Background(), "icon.svg")
	require.NoError(t, err)
	assert.Equal(t, EncodingUTF8, got.Encoding)
}

func TestLocal_ReadFileErrors(t *testing.T) {
	l, root := newTestLocal(t)

	_, err := l.ReadFile(context.Background(), "missing.go")
	assert.True(t, IsNotFound(err))
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing.go", nf.Path)

	require.NoError(t, os.Mkdir(filepath.Join(root, "dir"), 0755))
	_, err = l.ReadFile(context.Background(), "dir")
	assert.Error(t, err)
	assert.False(t, IsNotFound(err))

	writeFile(t, filepath.Join(root, "big.txt"), "0123456789")
	_, err = l.WithMaxFileSize(4).ReadFile(context.Background(), "big.txt")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestLocal_Resolve(t *testing.T) {
	l, root := newTestLocal(t)
	home := t.TempDir()
	l.WithHome(home)

	tests := []struct {
		in   string
		want string
	}{
		{"a/b.go", filepath.Join(root, "a", "b.go")},
		{"./a/../c.go", filepath.Join(root, "c.go")},
		{"~", home},
		{"~/notes.md", filepath.Join(home, "notes.md")},
		{filepath.Join(home, "x"), filepath.Join(home, "x")},
	}
	for _, tt := range tests {
		got, err := l.Resolve(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := l.Resolve("   ")
	assert.Error(t, err)
}

func TestLocal_ReadDirectory(t *testing.T) {
	l, root := newTestLocal(t)
	writeFile(t, filepath.Join(root, "b.txt"), "")
	writeFile(t, filepath.Join(root, "A.md"), "")
	writeFile(t, filepath.Join(root, ".env"), "SECRET=1")
	writeFile(t, filepath.Join(root, "src", "main.go"), "")
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0755))

	got, err := l.ReadDirectory(context.Background(), ".")
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Name: "src", Path: filepath.Join(root, "src"), Type: EntryFolder},
		{Name: "A.md", Path: filepath.Join(root, "A.md"), Type: EntryFile},
		{Name: "b.txt", Path: filepath.Join(root, "b.txt"), Type: EntryFile},
	}, got)

	_, err = l.ReadDirectory(context.Background(), "nope")
	assert.True(t, IsNotFound(err))
}

func TestLocal_ReadDirectoryHomeAlias(t *testing.T) {
	l, _ := newTestLocal(t)
	home := t.TempDir()
	writeFile(t, filepath.Join(home, "todo.md"), "")
	l.WithHome(home)

	got, err := l.ReadDirectory(context.Background(), "~")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, filepath.Join(home, "todo.md"), got[0].Path)
}

func TestLocal_WriteFile(t *testing.T) {
	l, root := newTestLocal(t)
	ctx := context.Background()

	require.NoError(t, l.WriteFile(ctx, "out/new.md", "# hi"))
	data, err := os.ReadFile(filepath.Join(root, "out", "new.md"))
	require.NoError(t, err)
	assert.Equal(t, "# hi", string(data))

	// Existing permissions survive a rewrite
	script := filepath.Join(root, "run.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"), 0755))
	require.NoError(t, l.WriteFile(ctx, "run.sh", "#!/bin/sh\necho hi\n"))
	info, err := os.Stat(script)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())

	assert.Error(t, l.WriteFile(ctx, "out", "x"), "writing over a directory must fail")
}

func TestLocal_CancelledContext(t *testing.T) {
	l, _ := newTestLocal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.ReadFile(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = l.ReadDirectory(ctx, ".")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, l.WriteFile(ctx, "x", ""), context.Canceled)
}

func TestLocal_MediaPlaylist(t *testing.T) {
	l, root := newTestLocal(t)
	assets := filepath.Join(root, "assets")
	for _, name := range []string{"logo.png", "demo.mp4", "a.gif", "notes.txt", "icon.svg", ".hidden.png"} {
		writeFile(t, filepath.Join(assets, name), "x")
	}
	require.NoError(t, os.Mkdir(filepath.Join(assets, "more.png"), 0755))

	got, err := l.MediaPlaylist(context.Background(), "assets/logo.png")
	require.NoError(t, err)

	var names []string
	for _, e := range got {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"a.gif", "demo.mp4", "icon.svg", "logo.png"}, names)
}

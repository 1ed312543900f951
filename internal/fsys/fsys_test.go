package fsys

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMem_ReadAndStat(t *testing.T) {
	m := NewMem().AddFile("/proj/src/a.ts", "export const a = 1\n")

	data, err := m.ReadFile("/proj/src/a.ts")
	require.NoError(t, err)
	assert.Equal(t, "export const a = 1\n", string(data))

	info, err := m.Stat("/proj/src")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = m.Stat("/proj/missing.ts")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestMem_Symlinks(t *testing.T) {
	m := NewMem().
		AddFile("/home/u/.ssh/id_rsa", "KEY").
		AddSymlink("/proj/key", "/home/u/.ssh/id_rsa").
		AddSymlink("/proj/rel", "../home/u/.ssh/id_rsa").
		AddSymlink("/proj/linkdir", "/home/u").
		AddSymlink("/proj/dangling", "/nowhere").
		AddSymlink("/proj/loop", "/proj/loop")

	t.Run("absolute target", func(t *testing.T) {
		real, err := m.RealPath("/proj/key")
		require.NoError(t, err)
		assert.Equal(t, "/home/u/.ssh/id_rsa", real)
	})

	t.Run("relative target", func(t *testing.T) {
		real, err := m.RealPath("/proj/rel")
		require.NoError(t, err)
		assert.Equal(t, "/home/u/.ssh/id_rsa", real)
	})

	t.Run("intermediate directory link", func(t *testing.T) {
		real, err := m.RealPath("/proj/linkdir/.ssh/id_rsa")
		require.NoError(t, err)
		assert.Equal(t, "/home/u/.ssh/id_rsa", real)
	})

	t.Run("dangling", func(t *testing.T) {
		_, err := m.RealPath("/proj/dangling")
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})

	t.Run("loop", func(t *testing.T) {
		_, err := m.RealPath("/proj/loop")
		assert.True(t, errors.Is(err, ErrTooManyLinks))
	})

	t.Run("read dir reports link type", func(t *testing.T) {
		entries, err := m.ReadDir("/proj")
		require.NoError(t, err)
		require.Len(t, entries, 5)
		assert.Equal(t, "dangling", entries[0].Name())
		assert.Equal(t, fs.ModeSymlink, entries[0].Type())
	})
}

func TestMem_Deny(t *testing.T) {
	m := NewMem().AddFile("/proj/secret/a.txt", "x").Deny("/proj/secret")

	_, err := m.ReadDir("/proj/secret")
	assert.True(t, errors.Is(err, fs.ErrPermission))

	_, err = m.Stat("/proj/secret")
	assert.NoError(t, err)
}

func TestOS_RealPath(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target.txt")
	require.NoError(t, os.WriteFile(target, []byte("hi"), 0o600))
	link := filepath.Join(dir, "link.txt")
	require.NoError(t, os.Symlink(target, link))

	realDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	got, err := OS{}.RealPath(link)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(realDir, "target.txt"), got)
	assert.True(t, IsRegular(OS{}, link))
	assert.True(t, IsDir(OS{}, dir))
}

func TestWithin(t *testing.T) {
	tests := []struct {
		path, root string
		want       bool
	}{
		{"/proj", "/proj", true},
		{"/proj/a/b.go", "/proj", true},
		{"/project/a.go", "/proj", false},
		{"/a.go", "/proj", false},
		{"/proj/..hidden", "/proj", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Within(tt.path, tt.root))
		})
	}
}

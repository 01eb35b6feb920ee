package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()

	fs, err := NewFS(t.TempDir())
	require.NoError(t, err)

	bdg, err := NewBadger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { bdg.Close() })

	return map[string]Backend{"fs": fs, "badger": bdg}
}

func TestSaveLoadDelete(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.Load("files/doc.txt")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, b.Save("files/doc.txt", []byte("hello")))
			data, err := b.Load("files/doc.txt")
			require.NoError(t, err)
			assert.Equal(t, "hello", string(data))

			// Overwrite replaces, never appends.
			require.NoError(t, b.Save("files/doc.txt", []byte("hi")))
			data, err = b.Load("files/doc.txt")
			require.NoError(t, err)
			assert.Equal(t, "hi", string(data))

			exists, err := b.Exists("files/doc.txt")
			require.NoError(t, err)
			assert.True(t, exists)

			require.NoError(t, b.Delete("files/doc.txt"))
			_, err = b.Load("files/doc.txt")
			assert.ErrorIs(t, err, ErrNotFound)

			// Deleting an absent key is a no-op.
			require.NoError(t, b.Delete("files/doc.txt"))
		})
	}
}

func TestEmptyBlob(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.Save("files/empty.txt", nil))

			exists, err := b.Exists("files/empty.txt")
			require.NoError(t, err)
			assert.True(t, exists)

			data, err := b.Load("files/empty.txt")
			require.NoError(t, err)
			assert.Empty(t, data)
		})
	}
}

func TestRename(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, b.Rename("files/a", "files/b"), ErrNotFound)

			require.NoError(t, b.Save("files/a", []byte("body")))
			require.NoError(t, b.Rename("files/a", "files/sub/a"))

			_, err := b.Load("files/a")
			assert.ErrorIs(t, err, ErrNotFound)

			data, err := b.Load("files/sub/a")
			require.NoError(t, err)
			assert.Equal(t, "body", string(data))
		})
	}
}

func TestListAndDirs(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.List("files/docs")
			assert.ErrorIs(t, err, ErrNotFound)

			exists, err := b.DirExists("files/docs")
			require.NoError(t, err)
			assert.False(t, exists)

			require.NoError(t, b.MkDir("files/docs"))
			exists, err = b.DirExists("files/docs")
			require.NoError(t, err)
			assert.True(t, exists)

			names, err := b.List("files/docs")
			require.NoError(t, err)
			assert.Empty(t, names)

			require.NoError(t, b.Save("files/docs/b.txt", []byte("b")))
			require.NoError(t, b.Save("files/docs/a.txt", []byte("a")))
			require.NoError(t, b.Save("files/docs/deep/c.txt", []byte("c")))

			names, err = b.List("files/docs")
			require.NoError(t, err)
			assert.Equal(t, []string{"a.txt", "b.txt", "deep"}, names)
		})
	}
}
